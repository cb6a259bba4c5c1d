package db

import (
	"context"
	"fmt"

	"github.com/ukydev/fleet-manager/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTripCollection implements TripCollection for MongoDB.
type MongoTripCollection struct {
	Collection *mongo.Collection
}

// InsertTrip stores a new trip under a freshly generated identifier, which
// is written back to trip.
func (c *MongoTripCollection) InsertTrip(ctx context.Context, trip *models.Trip) error {
	if trip.ID != "" {
		return fmt.Errorf("insert trip: identifier %q was already assigned", trip.ID)
	}
	trip.ID = primitive.NewObjectID().Hex()
	if err := insertOne(ctx, c.Collection, trip); err != nil {
		trip.ID = ""
		return err
	}
	return nil
}

// FindTripByID finds a trip by its ID.
func (c *MongoTripCollection) FindTripByID(ctx context.Context, id string) (*models.Trip, error) {
	var trip models.Trip
	if err := findOne(ctx, c.Collection, bson.M{"_id": id}, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

func tripQuery(f TripFilter) bson.M {
	q := bson.M{}
	if f.Status != "" {
		q["status"] = string(f.Status)
	}
	if f.DriverID != "" {
		q["assignedDriver"] = f.DriverID
	}
	if f.VehicleID != "" {
		q["assignedVehicle"] = f.VehicleID
	}
	return q
}

// FindTrips queries trip records, earliest trip date first.
func (c *MongoTripCollection) FindTrips(ctx context.Context, filter TripFilter) ([]*models.Trip, error) {
	opts := options.Find().SetSort(bson.D{{Key: "tripDate", Value: 1}})

	trips := []*models.Trip{}
	err := findAll(ctx, c.Collection, tripQuery(filter), opts, func(cur *mongo.Cursor) error {
		var t models.Trip
		if err := cur.Decode(&t); err != nil {
			return err
		}
		trips = append(trips, &t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trips, nil
}

// UpdateTrip replaces the stored trip record.
func (c *MongoTripCollection) UpdateTrip(ctx context.Context, trip *models.Trip) error {
	return replaceByID(ctx, c.Collection, trip.ID, trip)
}

// DeleteTrip deletes a trip by its ID.
func (c *MongoTripCollection) DeleteTrip(ctx context.Context, id string) error {
	return deleteByID(ctx, c.Collection, id)
}
