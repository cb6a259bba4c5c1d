package models

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var tripDate = time.Date(2025, time.February, 14, 9, 30, 0, 0, time.UTC)

func inProgressTrip(distance float64, vehicle *Vehicle) *Trip {
	return &Trip{
		ID:                "65f0c0ffee0000000000abcd",
		TripDate:          tripDate,
		StartLocation:     "Bengaluru",
		EndLocation:       "Mysuru",
		Distance:          distance,
		EstimatedTime:     3.5,
		Status:            TripInProgress,
		AssignedDriverID:  "driver-1",
		AssignedVehicleID: vehicle.ID,
	}
}

func TestNewTrip(t *testing.T) {
	trip, err := NewTrip(tripDate, "Bengaluru", "Mysuru", 145.2, 3.5)
	require.NoError(t, err)
	assert.Equal(t, TripScheduled, trip.Status)
	assert.Empty(t, trip.ID)
	assert.Empty(t, trip.AssignedDriverID)
	assert.Empty(t, trip.AssignedVehicleID)

	_, err = NewTrip(time.Time{}, "", "Mysuru", -1, -2)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	for _, field := range []string{"tripDate", "startLocation", "distance", "estimatedTime"} {
		assert.True(t, verr.Has(field), "expected %s in %v", field, verr)
	}
}

func TestTrip_ValidateRequiresAssignmentsOnceUnderway(t *testing.T) {
	trip, err := NewTrip(tripDate, "A", "B", 10, 1)
	require.NoError(t, err)
	trip.Status = TripInProgress

	var verr *ValidationError
	require.True(t, errors.As(trip.Validate(), &verr))
	assert.True(t, verr.Has("assignedDriver"))
	assert.True(t, verr.Has("assignedVehicle"))
}

func TestTrip_AssignAndStart(t *testing.T) {
	driver := testDriver(t)
	vehicle := testVehicle(t)
	trip, err := NewTrip(tripDate, "A", "B", 10, 1)
	require.NoError(t, err)

	err = trip.Assign(driver, vehicle)
	assert.True(t, errors.Is(err, ErrPrecondition), "unsaved trip cannot be assigned")

	trip.ID = "trip-1"
	require.Error(t, trip.Start())

	staff, err := NewMaintenance("Ravi", "ravi@example.com", "1", 0)
	require.NoError(t, err)
	assert.True(t, errors.Is(trip.Assign(staff, vehicle), ErrPrecondition))

	require.NoError(t, trip.Assign(driver, vehicle))
	assert.Equal(t, driver.ID, trip.AssignedDriverID)
	assert.Equal(t, vehicle.ID, trip.AssignedVehicleID)
	p, _ := driver.Driver()
	assert.Equal(t, "trip-1", p.UpcomingTripID)

	require.NoError(t, trip.Start())
	assert.Equal(t, TripInProgress, trip.Status)
	assert.True(t, errors.Is(trip.Start(), ErrPrecondition))
	assert.True(t, errors.Is(trip.Assign(driver, vehicle), ErrPrecondition))
}

func TestTrip_Complete_KeepsScheduledMaintenance(t *testing.T) {
	vehicle := testVehicle(t)
	vehicle.TotalDistance = 0
	vehicle.MaintenanceStatus = MaintenanceScheduled
	trip := inProgressTrip(120, vehicle)

	res, err := trip.Complete(vehicle, MaintenancePolicy{Interval: 100, Basis: BasisCumulative})
	require.NoError(t, err)
	assert.Equal(t, TripCompleted, trip.Status)
	assert.Equal(t, 120, vehicle.TotalDistance)
	assert.Equal(t, MaintenanceScheduled, vehicle.MaintenanceStatus)
	assert.True(t, res.MaintenanceDue)
	assert.False(t, res.MaintenanceScheduled)
	assert.Equal(t, 120, res.DistanceAdded)
	assert.Equal(t, 120, res.TotalDistance)
	assert.Equal(t, "driver-1", res.DriverID)
}

func TestTrip_Complete_SchedulesMaintenance(t *testing.T) {
	vehicle := testVehicle(t)
	vehicle.TotalDistance = 9950
	trip := inProgressTrip(80.4, vehicle)

	res, err := trip.Complete(vehicle, MaintenancePolicy{Interval: 10000, Basis: BasisCumulative})
	require.NoError(t, err)
	assert.Equal(t, 10030, vehicle.TotalDistance)
	assert.Equal(t, MaintenanceScheduled, vehicle.MaintenanceStatus)
	assert.True(t, res.MaintenanceScheduled)
}

func TestTrip_Complete_DoesNotDowngradeActiveCycle(t *testing.T) {
	vehicle := testVehicle(t)
	vehicle.MaintenanceStatus = MaintenanceActive
	trip := inProgressTrip(500, vehicle)

	_, err := trip.Complete(vehicle, MaintenancePolicy{Interval: 100, Basis: BasisCumulative})
	require.NoError(t, err)
	assert.Equal(t, MaintenanceActive, vehicle.MaintenanceStatus)
}

func TestTrip_Complete_Twice(t *testing.T) {
	vehicle := testVehicle(t)
	trip := inProgressTrip(50, vehicle)
	policy := MaintenancePolicy{}

	_, err := trip.Complete(vehicle, policy)
	require.NoError(t, err)
	require.Equal(t, 50, vehicle.TotalDistance)

	_, err = trip.Complete(vehicle, policy)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPrecondition))
	assert.Equal(t, 50, vehicle.TotalDistance, "mileage must not be applied twice")
}

func TestTrip_Complete_PreconditionsLeaveEntitiesUntouched(t *testing.T) {
	vehicle := testVehicle(t)
	vehicle.TotalDistance = 700
	other := testVehicle(t)

	tests := []struct {
		name    string
		trip    func() *Trip
		vehicle *Vehicle
	}{
		{"scheduled without driver", func() *Trip {
			tr := inProgressTrip(120, vehicle)
			tr.Status = TripScheduled
			tr.AssignedDriverID = ""
			return tr
		}, vehicle},
		{"in progress without vehicle reference", func() *Trip {
			tr := inProgressTrip(120, vehicle)
			tr.AssignedVehicleID = ""
			return tr
		}, vehicle},
		{"nil vehicle", func() *Trip { return inProgressTrip(120, vehicle) }, nil},
		{"different vehicle", func() *Trip { return inProgressTrip(120, vehicle) }, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trip := tt.trip()
			before := *trip
			res, err := trip.Complete(tt.vehicle, MaintenancePolicy{Interval: 100})
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, ErrPrecondition), "got %v", err)
			assert.Equal(t, before, *trip)
			assert.Equal(t, 700, vehicle.TotalDistance)
			assert.Equal(t, 0, other.TotalDistance)
		})
	}
}

func TestMaintenancePolicy_Due(t *testing.T) {
	tests := []struct {
		name        string
		policy      MaintenancePolicy
		before      int
		after       int
		lastService int
		expected    bool
	}{
		{"disabled", MaintenancePolicy{}, 0, 5000, 0, false},
		{"cumulative crosses first multiple", MaintenancePolicy{100, BasisCumulative}, 0, 120, 0, true},
		{"cumulative lands on multiple", MaintenancePolicy{100, BasisCumulative}, 50, 100, 0, true},
		{"cumulative stays below", MaintenancePolicy{100, BasisCumulative}, 120, 180, 0, false},
		{"cumulative crosses later multiple", MaintenancePolicy{100, BasisCumulative}, 180, 210, 0, true},
		{"empty basis is cumulative", MaintenancePolicy{Interval: 100}, 90, 110, 0, true},
		{"since service reached", MaintenancePolicy{1000, BasisSinceService}, 5900, 6100, 5000, true},
		{"since service not reached", MaintenancePolicy{1000, BasisSinceService}, 5500, 5900, 5000, false},
		{"no distance added", MaintenancePolicy{100, BasisCumulative}, 100, 100, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Due(tt.before, tt.after, tt.lastService); got != tt.expected {
				t.Errorf("Due(%d, %d, %d) = %v, want %v", tt.before, tt.after, tt.lastService, got, tt.expected)
			}
		})
	}
}

func TestParseThresholdBasis(t *testing.T) {
	b, err := ParseThresholdBasis("since_service")
	require.NoError(t, err)
	assert.Equal(t, BasisSinceService, b)
	_, err = ParseThresholdBasis("weekly")
	assert.Error(t, err)
}

func TestTrip_DocumentUsesReferences(t *testing.T) {
	vehicle := testVehicle(t)
	trip := inProgressTrip(12, vehicle)
	doc := trip.Document()
	assert.Equal(t, "In Progress", doc["status"])
	assert.Equal(t, "driver-1", doc["assignedDriver"])
	assert.Equal(t, vehicle.ID, doc["assignedVehicle"])

	scheduled, err := NewTrip(tripDate, "A", "B", 1, 1)
	require.NoError(t, err)
	doc = scheduled.Document()
	assert.NotContains(t, doc, "id")
	assert.NotContains(t, doc, "assignedDriver")
	assert.NotContains(t, doc, "assignedVehicle")
}

func TestTrip_RoundTrip(t *testing.T) {
	vehicle := testVehicle(t)
	trip := inProgressTrip(145.25, vehicle)

	decoded, err := DecodeTrip(trip.Document())
	require.NoError(t, err)
	assert.Equal(t, trip, decoded)

	data, err := json.Marshal(trip)
	require.NoError(t, err)
	var fromJSON Trip
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Equal(t, *trip, fromJSON)

	raw, err := trip.MarshalBSON()
	require.NoError(t, err)
	var fromBSON Trip
	require.NoError(t, fromBSON.UnmarshalBSON(raw))
	assert.Equal(t, *trip, fromBSON)
}

func TestDecodeTrip_Shapes(t *testing.T) {
	oid := primitive.NewObjectID()
	trip, err := DecodeTrip(Document{
		"id":            oid.Hex(),
		"tripDate":      primitive.NewDateTimeFromTime(tripDate),
		"startLocation": "A",
		"endLocation":   "B",
		"distance":      int32(42),
		"estimatedTime": 1.5,
		"status":        "Scheduled",
	})
	require.NoError(t, err)
	assert.Equal(t, oid.Hex(), trip.ID)
	assert.True(t, trip.TripDate.Equal(tripDate))
	assert.Equal(t, 42.0, trip.Distance)

	_, err = DecodeTrip(Document{
		"tripDate":      "yesterday",
		"startLocation": "A",
		"endLocation":   "B",
		"distance":      "far",
		"estimatedTime": 1.5,
		"status":        "Completed",
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("tripDate"))
	assert.True(t, verr.Has("distance"))
}

func TestDecodeTrip_CompletedWithoutAssignments(t *testing.T) {
	_, err := DecodeTrip(Document{
		"tripDate":      tripDate,
		"startLocation": "A",
		"endLocation":   "B",
		"distance":      1.0,
		"estimatedTime": 1.0,
		"status":        "Completed",
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("assignedDriver"))
	assert.True(t, verr.Has("assignedVehicle"))
}

func TestNewTrip_RejectsOutOfRangeNumbers(t *testing.T) {
	tests := []struct {
		name          string
		distance      float64
		estimatedTime float64
		field         string
	}{
		{"huge distance", 1e19, 1, "distance"},
		{"infinite distance", math.Inf(1), 1, "distance"},
		{"NaN distance", math.NaN(), 1, "distance"},
		{"distance above max", MaxTripDistance + 1, 1, "distance"},
		{"huge duration", 100, 1e12, "estimatedTime"},
		{"NaN duration", 100, math.NaN(), "estimatedTime"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTrip(tripDate, "A", "B", tt.distance, tt.estimatedTime)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.True(t, verr.Has(tt.field))
		})
	}

	_, err := NewTrip(tripDate, "A", "B", MaxTripDistance, MaxTripHours)
	assert.NoError(t, err)
}

func TestTrip_Complete_TruncatesDistance(t *testing.T) {
	vehicle := testVehicle(t)
	vehicle.TotalDistance = 0
	trip := inProgressTrip(120.6, vehicle)

	res, err := trip.Complete(vehicle, MaintenancePolicy{})
	require.NoError(t, err)
	assert.Equal(t, 120, res.DistanceAdded)
	assert.Equal(t, 120, vehicle.TotalDistance)
}

func TestTrip_Complete_OdometerNeverDecreases(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		distance float64
	}{
		{"distance beyond any trip", 500, 1e19},
		{"odometer overflow", math.MaxInt - 10, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vehicle := testVehicle(t)
			vehicle.TotalDistance = tt.total
			trip := inProgressTrip(tt.distance, vehicle)

			res, err := trip.Complete(vehicle, MaintenancePolicy{Interval: 100, Basis: BasisCumulative})
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, ErrPrecondition))
			assert.Equal(t, tt.total, vehicle.TotalDistance)
			assert.Equal(t, TripInProgress, trip.Status)
			assert.Equal(t, MaintenanceCompleted, vehicle.MaintenanceStatus)
		})
	}
}

func TestTrip_RoundTrip_SubMillisecondDate(t *testing.T) {
	date := time.Date(2025, time.February, 12, 9, 30, 0, 123456789, time.UTC)
	trip, err := NewTrip(date, "Bengaluru", "Mysuru", 145.2, 3.5)
	require.NoError(t, err)
	trip.ID = "65f0c0ffee0000000000abcd"
	assert.Equal(t, date.Truncate(time.Millisecond), trip.TripDate)

	raw, err := trip.MarshalBSON()
	require.NoError(t, err)
	var fromBSON Trip
	require.NoError(t, fromBSON.UnmarshalBSON(raw))
	assert.Equal(t, *trip, fromBSON)

	data, err := json.Marshal(trip)
	require.NoError(t, err)
	var fromJSON Trip
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Equal(t, *trip, fromJSON)

	decoded, err := DecodeTrip(Document{
		"tripDate":      date.Format(time.RFC3339Nano),
		"startLocation": "A",
		"endLocation":   "B",
		"distance":      1.0,
		"estimatedTime": 1.0,
		"status":        "Scheduled",
	})
	require.NoError(t, err)
	assert.Equal(t, date.Truncate(time.Millisecond), decoded.TripDate)
}
