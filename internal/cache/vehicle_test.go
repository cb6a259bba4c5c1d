package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-manager/internal/config"
	"github.com/ukydev/fleet-manager/internal/models"
)

func TestNop(t *testing.T) {
	ctx := context.Background()
	var c VehicleCache = Nop{}
	require.NoError(t, c.Set(ctx, &models.Vehicle{ID: "v1"}))
	_, ok, err := c.Get(ctx, "v1")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Invalidate(ctx, "v1"))
}

func TestVehicleKey(t *testing.T) {
	assert.Equal(t, "vehicle:abc", vehicleKey("abc"))
}

// Integration test (requires running Redis)
func TestRedisVehicleCache_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping integration test")
	}
	ctx := context.Background()
	rdb, err := Connect(ctx, config.Redis{Addr: addr, DB: 15})
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	defer rdb.Close()

	c := NewRedisVehicleCache(rdb, time.Minute)
	v, err := models.NewVehicle(models.Vehicle{
		Type:               models.VehicleCar,
		Model:              "Nexon EV",
		RegistrationNumber: "MH-12-0001",
		FuelType:           models.FuelElectric,
		Mileage:            8,
		TotalDistance:      1500,
		Status:             true,
		MaintenanceStatus:  models.MaintenanceCompleted,
	})
	require.NoError(t, err)

	_, ok, err := c.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, v))
	got, ok, err := c.Get(ctx, v.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, v, got)

	require.NoError(t, c.Invalidate(ctx, v.ID))
	_, ok, err = c.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, rdb.Set(ctx, vehicleKey("broken"), "{not json", time.Minute).Err())
	_, ok, err = c.Get(ctx, "broken")
	require.NoError(t, err)
	assert.False(t, ok)
}
