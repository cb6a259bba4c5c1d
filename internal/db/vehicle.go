package db

import (
	"context"

	"github.com/ukydev/fleet-manager/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoVehicleCollection implements VehicleCollection for MongoDB.
type MongoVehicleCollection struct {
	Collection *mongo.Collection
}

// InsertVehicle inserts a vehicle record into the collection.
func (c *MongoVehicleCollection) InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	return insertOne(ctx, c.Collection, vehicle)
}

// FindVehicleByID finds a vehicle by its ID.
func (c *MongoVehicleCollection) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := findOne(ctx, c.Collection, bson.M{"_id": id}, &vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func vehicleQuery(f VehicleFilter) bson.M {
	q := bson.M{}
	if f.Type != "" {
		q["type"] = string(f.Type)
	}
	if f.MaintenanceStatus != "" {
		q["maintenanceStatus"] = string(f.MaintenanceStatus)
	}
	if f.Operational != nil {
		q["status"] = *f.Operational
	}
	return q
}

// FindVehicles queries vehicle records from the collection.
func (c *MongoVehicleCollection) FindVehicles(ctx context.Context, filter VehicleFilter) ([]*models.Vehicle, error) {
	opts := options.Find().SetSort(bson.D{{Key: "registrationNumber", Value: 1}})

	vehicles := []*models.Vehicle{}
	err := findAll(ctx, c.Collection, vehicleQuery(filter), opts, func(cur *mongo.Cursor) error {
		var v models.Vehicle
		if err := cur.Decode(&v); err != nil {
			return err
		}
		vehicles = append(vehicles, &v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}

// UpdateVehicle replaces the stored vehicle record.
func (c *MongoVehicleCollection) UpdateVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	return replaceByID(ctx, c.Collection, vehicle.ID, vehicle)
}

// DeleteVehicle deletes a vehicle by its ID.
func (c *MongoVehicleCollection) DeleteVehicle(ctx context.Context, id string) error {
	return deleteByID(ctx, c.Collection, id)
}
