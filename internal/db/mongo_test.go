package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-manager/internal/config"
	"github.com/ukydev/fleet-manager/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

func TestConnectMongo_BadURI(t *testing.T) {
	client, err := ConnectMongo(context.Background(), config.Mongo{URI: "mongodb://bad:uri", ConnectTimeout: time.Second})
	if err == nil {
		t.Error("expected error for bad URI, got nil")
	}
	if client != nil {
		t.Error("expected nil client on error")
	}
}

func TestNilCollection(t *testing.T) {
	ctx := context.Background()
	users := &MongoUserCollection{}
	vehicles := &MongoVehicleCollection{}
	trips := &MongoTripCollection{}
	creds := &MongoCredentialCollection{}

	driver := testDriver(t)
	_, err := users.FindUserByID(ctx, "x")
	assert.ErrorIs(t, err, errNilColl)
	assert.ErrorIs(t, users.InsertUser(ctx, driver), errNilColl)
	_, err = users.FindDrivers(ctx, true)
	assert.ErrorIs(t, err, errNilColl)

	_, err = vehicles.FindVehicles(ctx, VehicleFilter{})
	assert.ErrorIs(t, err, errNilColl)
	assert.ErrorIs(t, vehicles.DeleteVehicle(ctx, "x"), errNilColl)

	trip := &models.Trip{}
	assert.ErrorIs(t, trips.InsertTrip(ctx, trip), errNilColl)
	assert.Empty(t, trip.ID, "failed insert must not leave an id behind")
	_, err = trips.Watch(ctx)
	assert.ErrorIs(t, err, errNilColl)

	_, err = creds.FindCredentialByEmail(ctx, "a@b.c")
	assert.ErrorIs(t, err, errNilColl)
}

func TestInsertTrip_RejectsPresetID(t *testing.T) {
	trips := &MongoTripCollection{}
	err := trips.InsertTrip(context.Background(), &models.Trip{ID: "abc"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, errNilColl)
}

func TestVehicleQuery(t *testing.T) {
	operational := true
	tests := []struct {
		name   string
		filter VehicleFilter
		want   bson.M
	}{
		{"empty", VehicleFilter{}, bson.M{}},
		{"type", VehicleFilter{Type: models.VehicleVan}, bson.M{"type": "Van"}},
		{
			"all",
			VehicleFilter{Type: models.VehicleTruck, MaintenanceStatus: models.MaintenanceScheduled, Operational: &operational},
			bson.M{"type": "Truck", "maintenanceStatus": "Scheduled", "status": true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, vehicleQuery(tt.filter))
		})
	}
}

func TestTripQuery(t *testing.T) {
	got := tripQuery(TripFilter{Status: models.TripInProgress, DriverID: "d1"})
	assert.Equal(t, bson.M{"status": "In Progress", "assignedDriver": "d1"}, got)
	assert.Equal(t, bson.M{"assignedVehicle": "v1"}, tripQuery(TripFilter{VehicleID: "v1"}))
}

func testDriver(t *testing.T) *models.User {
	t.Helper()
	u, err := models.NewDriver("Asha", "asha@example.com", "555-0100", models.DriverProfile{
		Experience:        models.ExperienceLessThanFive,
		License:           "DL-42",
		GeoPreference:     models.GeoPlain,
		VehiclePreference: models.VehicleVan,
		Available:         true,
	})
	require.NoError(t, err)
	return u
}

// testStore connects to the database named by MONGO_URI, or skips.
func testStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" || uri == "uri" {
		t.Skip("MONGO_URI not set or invalid, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := ConnectMongo(ctx, config.Mongo{URI: uri, ConnectTimeout: 5 * time.Second})
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	store := NewStore(client, "test_fleet")
	require.NoError(t, store.database.Drop(ctx))
	require.NoError(t, store.EnsureIndexes(ctx))
	t.Cleanup(func() {
		_ = store.database.Drop(context.Background())
		_ = store.Close(context.Background())
	})
	return store
}

func TestMongoUserCollection_Integration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	users := store.Users()

	driver := testDriver(t)
	require.NoError(t, users.InsertUser(ctx, driver))
	assert.ErrorIs(t, users.InsertUser(ctx, driver), ErrDuplicate)

	manager, err := models.NewFleetManager("Ravi", "ravi@example.com", "555-0101")
	require.NoError(t, err)
	require.NoError(t, users.InsertUser(ctx, manager))

	found, err := users.FindUserByID(ctx, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, driver, found)

	found, err = users.FindUserByEmail(ctx, "ravi@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleFleet, found.Role())

	drivers, err := users.FindDrivers(ctx, true)
	require.NoError(t, err)
	require.Len(t, drivers, 1)
	assert.Equal(t, driver.ID, drivers[0].ID)

	p, _ := driver.Driver()
	p.Available = false
	require.NoError(t, users.UpdateUser(ctx, driver))
	drivers, err = users.FindDrivers(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, drivers)

	_, err = users.FindUserByID(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, users.DeleteUser(ctx, manager.ID))
	assert.ErrorIs(t, users.DeleteUser(ctx, manager.ID), ErrNotFound)
}

func TestMongoTripCollection_Integration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	trips := store.Trips()

	trip, err := models.NewTrip(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), "Depot", "Harbour", 42.5, 1.5)
	require.NoError(t, err)
	require.NoError(t, trips.InsertTrip(ctx, trip))
	require.NotEmpty(t, trip.ID)

	found, err := trips.FindTripByID(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, trip, found)

	listed, err := trips.FindTrips(ctx, TripFilter{Status: models.TripScheduled})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	listed, err = trips.FindTrips(ctx, TripFilter{Status: models.TripCompleted})
	require.NoError(t, err)
	assert.Empty(t, listed)

	trip.EndLocation = "Airport"
	require.NoError(t, trips.UpdateTrip(ctx, trip))
	found, err = trips.FindTripByID(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, "Airport", found.EndLocation)
}

func TestMongoVehicleCollection_Integration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	vehicles := store.Vehicles()

	v, err := models.NewVehicle(models.Vehicle{
		Type:               models.VehicleTruck,
		Model:              "Tata Prima",
		RegistrationNumber: "KA-01-1234",
		FuelType:           models.FuelDiesel,
		Mileage:            6,
		Status:             true,
		MaintenanceStatus:  models.MaintenanceCompleted,
	})
	require.NoError(t, err)
	require.NoError(t, vehicles.InsertVehicle(ctx, v))

	dup := *v
	dup.ID = "other"
	assert.ErrorIs(t, vehicles.InsertVehicle(ctx, &dup), ErrDuplicate)

	operational := true
	listed, err := vehicles.FindVehicles(ctx, VehicleFilter{Type: models.VehicleTruck, Operational: &operational})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, v, listed[0])

	missing := *v
	missing.ID = "missing"
	assert.ErrorIs(t, vehicles.UpdateVehicle(ctx, &missing), ErrNotFound)
}
