package db

import (
	"context"
	"fmt"

	"github.com/ukydev/fleet-manager/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Change is one change-stream event. Entity is nil for deletes.
type Change[T any] struct {
	Operation string
	ID        string
	Entity    *T
	Err       error
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument bson.Raw `bson:"fullDocument,omitempty"`
}

// watch streams changes of coll until ctx is done. The returned channel is
// closed when the stream ends; a failure is delivered as a final Change with Err set.
func watch[T any](ctx context.Context, coll *mongo.Collection) (<-chan Change[T], error) {
	if coll == nil {
		return nil, errNilColl
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := coll.Watch(ctx, mongo.Pipeline{}, opts)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", coll.Name(), err)
	}

	out := make(chan Change[T])
	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		send := func(c Change[T]) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for stream.Next(ctx) {
			var ev changeEvent
			if err := stream.Decode(&ev); err != nil {
				if !send(Change[T]{Err: fmt.Errorf("decode change event: %w", err)}) {
					return
				}
				continue
			}
			c := Change[T]{Operation: ev.OperationType, ID: ev.DocumentKey.ID}
			if len(ev.FullDocument) > 0 {
				var entity T
				if err := bson.Unmarshal(ev.FullDocument, &entity); err != nil {
					c.Err = fmt.Errorf("decode %s %s: %w", coll.Name(), c.ID, err)
				} else {
					c.Entity = &entity
				}
			}
			if !send(c) {
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			send(Change[T]{Err: err})
		}
	}()
	return out, nil
}

// Watch streams vehicle changes until ctx is done.
func (c *MongoVehicleCollection) Watch(ctx context.Context) (<-chan Change[models.Vehicle], error) {
	return watch[models.Vehicle](ctx, c.Collection)
}

// Watch streams trip changes until ctx is done.
func (c *MongoTripCollection) Watch(ctx context.Context) (<-chan Change[models.Trip], error) {
	return watch[models.Trip](ctx, c.Collection)
}
