package db

import (
	"context"
	"errors"

	"github.com/ukydev/fleet-manager/internal/models"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("document already exists")
	errNilColl   = errors.New("mongo collection is nil")
)

// Collection names.
const (
	UsersCollection       = "users"
	VehiclesCollection    = "vehicles"
	TripsCollection       = "trips"
	CredentialsCollection = "credentials"
)

// UserCollection defines the interface for user database operations
type UserCollection interface {
	InsertUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindDrivers(ctx context.Context, availableOnly bool) ([]*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error
}

// VehicleFilter narrows FindVehicles. Zero fields match everything.
type VehicleFilter struct {
	Type              models.VehicleType
	MaintenanceStatus models.MaintenanceStatus
	Operational       *bool
}

// VehicleCollection defines the interface for vehicle data operations.
type VehicleCollection interface {
	InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error
	FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
	FindVehicles(ctx context.Context, filter VehicleFilter) ([]*models.Vehicle, error)
	UpdateVehicle(ctx context.Context, vehicle *models.Vehicle) error
	DeleteVehicle(ctx context.Context, id string) error
}

// TripFilter narrows FindTrips. Zero fields match everything.
type TripFilter struct {
	Status    models.TripStatus
	DriverID  string
	VehicleID string
}

// TripCollection defines the interface for trip data operations.
type TripCollection interface {
	// InsertTrip assigns the trip its identifier.
	InsertTrip(ctx context.Context, trip *models.Trip) error
	FindTripByID(ctx context.Context, id string) (*models.Trip, error)
	FindTrips(ctx context.Context, filter TripFilter) ([]*models.Trip, error)
	UpdateTrip(ctx context.Context, trip *models.Trip) error
	DeleteTrip(ctx context.Context, id string) error
}

// CredentialCollection stores password hashes.
type CredentialCollection interface {
	InsertCredential(ctx context.Context, cred models.Credential) error
	FindCredentialByEmail(ctx context.Context, email string) (*models.Credential, error)
	FindCredentialByUserID(ctx context.Context, userID string) (*models.Credential, error)
	UpdateCredential(ctx context.Context, cred models.Credential) error
}

// Transactor runs fn so that every write made through ctx inside it is
// committed together or not at all.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
