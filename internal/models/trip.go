package models

import (
	"math"
	"time"
)

// Trip represents a scheduled movement of a vehicle by a driver.
type Trip struct {
	// ID is assigned by the store on first insert.
	ID            string     `doc:"id"`
	TripDate      time.Time  `doc:"tripDate" validate:"required"`
	StartLocation string     `doc:"startLocation" validate:"required"`
	EndLocation   string     `doc:"endLocation" validate:"required"`
	Distance      float64    `doc:"distance" validate:"gte=0"`      // in kilometers
	EstimatedTime float64    `doc:"estimatedTime" validate:"gte=0"` // in hours
	Status        TripStatus `doc:"status" validate:"enum"`

	AssignedDriverID  string `doc:"assignedDriver"`
	AssignedVehicleID string `doc:"assignedVehicle"`
}

// Upper bounds for a single trip. Larger values are rejected as data errors.
const (
	MaxTripDistance = 100_000 // km
	MaxTripHours    = 2_000
)

// Completion summarises the effect of completing a trip.
type Completion struct {
	TripID               string `json:"trip_id"`
	DriverID             string `json:"driver_id"`
	VehicleID            string `json:"vehicle_id"`
	DistanceAdded        int    `json:"distance_added"`
	TotalDistance        int    `json:"total_distance"`
	MaintenanceDue       bool   `json:"maintenance_due"`
	MaintenanceScheduled bool   `json:"maintenance_scheduled"`
}

// NewTrip creates a scheduled trip without assignments. The date is kept to
// millisecond precision, the resolution of the store.
func NewTrip(date time.Time, start, end string, distance, estimatedTime float64) (*Trip, error) {
	t := &Trip{
		TripDate:      date.UTC().Truncate(time.Millisecond),
		StartLocation: start,
		EndLocation:   end,
		Distance:      distance,
		EstimatedTime: estimatedTime,
		Status:        TripScheduled,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Trip) assigned() bool {
	return t.AssignedDriverID != "" && t.AssignedVehicleID != ""
}

func (t *Trip) Validate() error {
	errs := &ValidationError{}
	if err := validateStruct(t); err != nil {
		errs.merge(err)
	}
	checkBound(errs, "distance", t.Distance, MaxTripDistance)
	checkBound(errs, "estimatedTime", t.EstimatedTime, MaxTripHours)
	if t.Status == TripInProgress || t.Status == TripCompleted {
		if t.AssignedDriverID == "" {
			errs.Add("assignedDriver", "is required once a trip is %s", t.Status)
		}
		if t.AssignedVehicleID == "" {
			errs.Add("assignedVehicle", "is required once a trip is %s", t.Status)
		}
	}
	return errs.orNil()
}

func checkBound(errs *ValidationError, field string, v, max float64) {
	if errs.Has(field) {
		return
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v > max {
		errs.Add(field, "must be a number no greater than %g", max)
	}
}

// Assign links the trip to a driver and a vehicle and points the driver's
// upcoming trip back at it. Only scheduled, already stored trips can be assigned.
func (t *Trip) Assign(driver *User, vehicle *Vehicle) error {
	const op = "assign trip"
	if t.ID == "" {
		return NewPreconditionError(op, "trip has not been stored yet")
	}
	if t.Status != TripScheduled {
		return NewPreconditionError(op, "trip %s is %s, want %s", t.ID, t.Status, TripScheduled)
	}
	if driver == nil || vehicle == nil {
		return NewPreconditionError(op, "driver and vehicle are both required")
	}
	profile, ok := driver.Driver()
	if !ok {
		return NewPreconditionError(op, "user %s is a %s, not a driver", driver.ID, driver.Role())
	}
	t.AssignedDriverID = driver.ID
	t.AssignedVehicleID = vehicle.ID
	profile.UpcomingTripID = t.ID
	return nil
}

// Start moves a scheduled, fully assigned trip to in progress.
func (t *Trip) Start() error {
	const op = "start trip"
	if t.Status != TripScheduled {
		return NewPreconditionError(op, "trip %s is %s, want %s", t.ID, t.Status, TripScheduled)
	}
	if !t.assigned() {
		return NewPreconditionError(op, "trip %s has no assigned driver and vehicle", t.ID)
	}
	t.Status = TripInProgress
	return nil
}

// Complete finishes an in-progress trip: the trip becomes completed, its
// distance in whole kilometres (truncated) is added to the vehicle's odometer and, if policy says the new
// total makes maintenance due, a maintenance cycle is scheduled unless one is
// already open. Nothing is mutated when an error is returned.
func (t *Trip) Complete(vehicle *Vehicle, policy MaintenancePolicy) (*Completion, error) {
	const op = "complete trip"
	if t.Status != TripInProgress {
		return nil, NewPreconditionError(op, "trip %s is %s, want %s", t.ID, t.Status, TripInProgress)
	}
	if !t.assigned() {
		return nil, NewPreconditionError(op, "trip %s has no assigned driver and vehicle", t.ID)
	}
	if vehicle == nil || vehicle.ID != t.AssignedVehicleID {
		return nil, NewPreconditionError(op, "vehicle does not match assigned vehicle %s", t.AssignedVehicleID)
	}

	if math.IsNaN(t.Distance) || t.Distance < 0 || t.Distance > MaxTripDistance {
		return nil, NewPreconditionError(op, "trip %s has invalid distance %g", t.ID, t.Distance)
	}
	added := int(t.Distance)
	before := vehicle.TotalDistance
	after := before + added
	if after < before {
		return nil, NewPreconditionError(op, "odometer of vehicle %s would overflow", vehicle.ID)
	}
	due := policy.Due(before, after, vehicle.LastServiceDistance)

	t.Status = TripCompleted
	vehicle.TotalDistance = after
	scheduled := false
	if due {
		scheduled = vehicle.ScheduleMaintenance()
	}

	return &Completion{
		TripID:               t.ID,
		DriverID:             t.AssignedDriverID,
		VehicleID:            vehicle.ID,
		DistanceAdded:        added,
		TotalDistance:        after,
		MaintenanceDue:       due,
		MaintenanceScheduled: scheduled,
	}, nil
}

func (t *Trip) Document() Document {
	doc := Document{
		"tripDate":      t.TripDate.UTC().Truncate(time.Millisecond),
		"startLocation": t.StartLocation,
		"endLocation":   t.EndLocation,
		"distance":      t.Distance,
		"estimatedTime": t.EstimatedTime,
		"status":        string(t.Status),
	}
	if t.ID != "" {
		doc[keyID] = t.ID
	}
	if t.AssignedDriverID != "" {
		doc["assignedDriver"] = t.AssignedDriverID
	}
	if t.AssignedVehicleID != "" {
		doc["assignedVehicle"] = t.AssignedVehicleID
	}
	return doc
}

// DecodeTrip builds a trip from its record. The id and both references may
// be absent.
func DecodeTrip(doc Document) (*Trip, error) {
	r := newDocReader(doc)
	t := &Trip{
		ID:                r.OptionalString(keyID),
		TripDate:          r.Time("tripDate"),
		StartLocation:     r.String("startLocation"),
		EndLocation:       r.String("endLocation"),
		Distance:          r.Float("distance"),
		EstimatedTime:     r.Float("estimatedTime"),
		Status:            enum(r, "status", ParseTripStatus),
		AssignedDriverID:  r.OptionalString("assignedDriver"),
		AssignedVehicleID: r.OptionalString("assignedVehicle"),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t Trip) MarshalJSON() ([]byte, error) {
	return marshalDocJSON(t.Document())
}

func (t *Trip) UnmarshalJSON(data []byte) error {
	doc, err := unmarshalDocJSON(data)
	if err != nil {
		return err
	}
	decoded, err := DecodeTrip(doc)
	if err != nil {
		return err
	}
	*t = *decoded
	return nil
}

func (t Trip) MarshalBSON() ([]byte, error) {
	return marshalDocBSON(t.Document())
}

func (t *Trip) UnmarshalBSON(data []byte) error {
	doc, err := unmarshalDocBSON(data)
	if err != nil {
		return err
	}
	decoded, err := DecodeTrip(doc)
	if err != nil {
		return err
	}
	*t = *decoded
	return nil
}
