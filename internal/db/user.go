package db

import (
	"context"

	"github.com/ukydev/fleet-manager/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserCollection implements UserCollection for MongoDB
type MongoUserCollection struct {
	Collection *mongo.Collection
}

// InsertUser inserts a new user into the database
func (c *MongoUserCollection) InsertUser(ctx context.Context, user *models.User) error {
	return insertOne(ctx, c.Collection, user)
}

// FindUserByID finds a user by their ID
func (c *MongoUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := findOne(ctx, c.Collection, bson.M{"_id": id}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByEmail finds a user by their email
func (c *MongoUserCollection) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := findOne(ctx, c.Collection, bson.M{"email": email}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindDrivers lists drivers, optionally only those available for assignment.
func (c *MongoUserCollection) FindDrivers(ctx context.Context, availableOnly bool) ([]*models.User, error) {
	filter := bson.M{"role": string(models.RoleDriver)}
	if availableOnly {
		filter["status"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	drivers := []*models.User{}
	err := findAll(ctx, c.Collection, filter, opts, func(cur *mongo.Cursor) error {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return err
		}
		drivers = append(drivers, &u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drivers, nil
}

// UpdateUser replaces the stored user record.
func (c *MongoUserCollection) UpdateUser(ctx context.Context, user *models.User) error {
	return replaceByID(ctx, c.Collection, user.ID, user)
}

// DeleteUser deletes a user from the database
func (c *MongoUserCollection) DeleteUser(ctx context.Context, id string) error {
	return deleteByID(ctx, c.Collection, id)
}

// MongoCredentialCollection implements CredentialCollection for MongoDB.
type MongoCredentialCollection struct {
	Collection *mongo.Collection
}

func (c *MongoCredentialCollection) InsertCredential(ctx context.Context, cred models.Credential) error {
	return insertOne(ctx, c.Collection, cred)
}

func (c *MongoCredentialCollection) FindCredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	var cred models.Credential
	if err := findOne(ctx, c.Collection, bson.M{"email": email}, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (c *MongoCredentialCollection) FindCredentialByUserID(ctx context.Context, userID string) (*models.Credential, error) {
	var cred models.Credential
	if err := findOne(ctx, c.Collection, bson.M{"_id": userID}, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

// UpdateCredential replaces the stored credential of cred.UserID.
func (c *MongoCredentialCollection) UpdateCredential(ctx context.Context, cred models.Credential) error {
	return replaceByID(ctx, c.Collection, cred.UserID, cred)
}
