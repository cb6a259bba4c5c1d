package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/fleet-manager/internal/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, cfg config.Mongo) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// Store groups the fleet collections of one database.
type Store struct {
	client   *mongo.Client
	database *mongo.Database

	users       *MongoUserCollection
	vehicles    *MongoVehicleCollection
	trips       *MongoTripCollection
	credentials *MongoCredentialCollection
}

// NewStore wraps the named database.
func NewStore(client *mongo.Client, database string) *Store {
	d := client.Database(database)
	return &Store{
		client:      client,
		database:    d,
		users:       &MongoUserCollection{Collection: d.Collection(UsersCollection)},
		vehicles:    &MongoVehicleCollection{Collection: d.Collection(VehiclesCollection)},
		trips:       &MongoTripCollection{Collection: d.Collection(TripsCollection)},
		credentials: &MongoCredentialCollection{Collection: d.Collection(CredentialsCollection)},
	}
}

func (s *Store) Users() *MongoUserCollection             { return s.users }
func (s *Store) Vehicles() *MongoVehicleCollection       { return s.vehicles }
func (s *Store) Trips() *MongoTripCollection             { return s.trips }
func (s *Store) Credentials() *MongoCredentialCollection { return s.credentials }

// WithTransaction runs fn inside a multi-document transaction. Collection
// calls made with the ctx passed to fn join the transaction. fn may be
// retried by the driver on transient errors, so it must re-read what it writes.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// EnsureIndexes creates the unique and lookup indexes the collections rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "status", Value: 1}}},
		},
		VehiclesCollection: {
			{Keys: bson.D{{Key: "registrationNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		TripsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "tripDate", Value: 1}}},
			{Keys: bson.D{{Key: "assignedDriver", Value: 1}}},
		},
		CredentialsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for name, idx := range indexes {
		if _, err := s.database.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func insertOne(ctx context.Context, coll *mongo.Collection, doc interface{}) error {
	if coll == nil {
		return errNilColl
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return err
	}
	return nil
}

func findOne(ctx context.Context, coll *mongo.Collection, filter bson.M, out interface{}) error {
	if coll == nil {
		return errNilColl
	}
	err := coll.FindOne(ctx, filter).Decode(out)
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	return err
}

func replaceByID(ctx context.Context, coll *mongo.Collection, id string, doc interface{}) error {
	if coll == nil {
		return errNilColl
	}
	if id == "" {
		return fmt.Errorf("replace: empty id")
	}
	result, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id string) error {
	if coll == nil {
		return errNilColl
	}
	result, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// findAll decodes every document matching filter with decode.
func findAll(ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions, decode func(*mongo.Cursor) error) error {
	if coll == nil {
		return errNilColl
	}
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		if err := decode(cursor); err != nil {
			return fmt.Errorf("decode %s document: %w", coll.Name(), err)
		}
	}
	return cursor.Err()
}
