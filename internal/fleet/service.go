// Package fleet coordinates users, vehicles and trips into units of work
// that keep the stored records consistent with each other.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-manager/internal/cache"
	"github.com/ukydev/fleet-manager/internal/db"
	"github.com/ukydev/fleet-manager/internal/events"
	"github.com/ukydev/fleet-manager/internal/models"
)

// ErrForbidden is returned when the acting user may not touch the entity.
var ErrForbidden = errors.New("not permitted for this user")

// Actor identifies who performs an operation.
type Actor struct {
	UserID string
	Role   models.Role
}

// Deps are the collaborators of a Service. Cache and Events may be nil.
type Deps struct {
	Users    db.UserCollection
	Vehicles db.VehicleCollection
	Trips    db.TripCollection
	Tx       db.Transactor
	Cache    cache.VehicleCache
	Events   events.Publisher
	Policy   models.MaintenancePolicy
	Log      logrus.FieldLogger
}

// Service implements the fleet operations.
type Service struct {
	users    db.UserCollection
	vehicles db.VehicleCollection
	trips    db.TripCollection
	tx       db.Transactor
	cache    cache.VehicleCache
	events   events.Publisher
	policy   models.MaintenancePolicy
	log      logrus.FieldLogger
}

func NewService(d Deps) *Service {
	s := &Service{
		users:    d.Users,
		vehicles: d.Vehicles,
		trips:    d.Trips,
		tx:       d.Tx,
		cache:    d.Cache,
		events:   d.Events,
		policy:   d.Policy,
		log:      d.Log,
	}
	if s.cache == nil {
		s.cache = cache.Nop{}
	}
	if s.events == nil {
		s.events = events.NopPublisher{}
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

// Policy returns the maintenance policy applied on trip completion.
func (s *Service) Policy() models.MaintenancePolicy { return s.policy }

func (s *Service) publish(ctx context.Context, ev events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.WithFields(logrus.Fields{
			"event":  ev.Type,
			"entity": ev.EntityID,
		}).WithError(err).Warn("failed to publish event")
	}
}

// CreateUser stores a new user. Drivers cannot be created already holding a trip.
func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	if p, ok := user.Driver(); ok && p.UpcomingTripID != "" {
		return models.NewValidationError("upcomingTrip", "is set by trip assignment")
	}
	if err := s.users.InsertUser(ctx, user); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role()}).Info("user created")
	return nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, err)
	}
	return u, nil
}

// ListDrivers returns drivers ordered by experience, most senior first.
// Drivers of equal experience keep the store's order.
func (s *Service) ListDrivers(ctx context.Context, availableOnly bool) ([]*models.User, error) {
	drivers, err := s.users.FindDrivers(ctx, availableOnly)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	sort.SliceStable(drivers, func(i, j int) bool {
		return driverPriority(drivers[i]) < driverPriority(drivers[j])
	})
	return drivers, nil
}

func driverPriority(u *models.User) int {
	if p, ok := u.Driver(); ok {
		return p.Experience.Priority()
	}
	return 0
}

// CreateVehicle validates and stores v, assigning an ID when it has none.
func (s *Service) CreateVehicle(ctx context.Context, v models.Vehicle) (*models.Vehicle, error) {
	vehicle, err := models.NewVehicle(v)
	if err != nil {
		return nil, err
	}
	if err := s.vehicles.InsertVehicle(ctx, vehicle); err != nil {
		return nil, fmt.Errorf("insert vehicle: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"vehicle_id":   vehicle.ID,
		"registration": vehicle.RegistrationNumber,
	}).Info("vehicle created")
	return vehicle, nil
}

// GetVehicle reads through the vehicle cache. Cache failures fall back to
// the store.
func (s *Service) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	v, ok, err := s.cache.Get(ctx, id)
	if err != nil {
		s.log.WithField("vehicle_id", id).WithError(err).Warn("vehicle cache read failed")
	}
	if ok {
		return v, nil
	}
	v, err = s.vehicles.FindVehicleByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("vehicle %s: %w", id, err)
	}
	if err := s.cache.Set(ctx, v); err != nil {
		s.log.WithField("vehicle_id", id).WithError(err).Warn("vehicle cache write failed")
	}
	return v, nil
}

func (s *Service) ListVehicles(ctx context.Context, filter db.VehicleFilter) ([]*models.Vehicle, error) {
	vehicles, err := s.vehicles.FindVehicles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return vehicles, nil
}

func (s *Service) invalidate(ctx context.Context, vehicleID string) {
	if err := s.cache.Invalidate(ctx, vehicleID); err != nil {
		s.log.WithField("vehicle_id", vehicleID).WithError(err).Warn("vehicle cache invalidation failed")
	}
}

// TripRequest describes a trip to schedule.
type TripRequest struct {
	TripDate      time.Time `json:"tripDate"`
	StartLocation string    `json:"startLocation"`
	EndLocation   string    `json:"endLocation"`
	Distance      float64   `json:"distance"`
	EstimatedTime float64   `json:"estimatedTime"`
}

// CreateTrip stores a new scheduled, unassigned trip.
func (s *Service) CreateTrip(ctx context.Context, req TripRequest) (*models.Trip, error) {
	trip, err := models.NewTrip(req.TripDate, req.StartLocation, req.EndLocation, req.Distance, req.EstimatedTime)
	if err != nil {
		return nil, err
	}
	if err := s.trips.InsertTrip(ctx, trip); err != nil {
		return nil, fmt.Errorf("insert trip: %w", err)
	}
	s.log.WithField("trip_id", trip.ID).Info("trip scheduled")
	return trip, nil
}

func (s *Service) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	t, err := s.trips.FindTripByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("trip %s: %w", id, err)
	}
	return t, nil
}

func (s *Service) ListTrips(ctx context.Context, filter db.TripFilter) ([]*models.Trip, error) {
	trips, err := s.trips.FindTrips(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	return trips, nil
}

// AssignTrip links a scheduled trip to an available driver and an
// operational vehicle. The driver becomes unavailable and points back at
// the trip.
func (s *Service) AssignTrip(ctx context.Context, tripID, driverID, vehicleID string) (*models.Trip, error) {
	const op = "assign trip"
	var trip *models.Trip
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		if trip, err = s.GetTrip(ctx, tripID); err != nil {
			return err
		}
		driver, err := s.GetUser(ctx, driverID)
		if err != nil {
			return err
		}
		vehicle, err := s.vehicles.FindVehicleByID(ctx, vehicleID)
		if err != nil {
			return fmt.Errorf("vehicle %s: %w", vehicleID, err)
		}

		if p, ok := driver.Driver(); ok && (!p.Available || p.UpcomingTripID != "") {
			return models.NewPreconditionError(op, "driver %s is not available", driver.ID)
		}
		if !vehicle.Status {
			return models.NewPreconditionError(op, "vehicle %s is out of service", vehicle.ID)
		}
		if err := trip.Assign(driver, vehicle); err != nil {
			return err
		}
		p, _ := driver.Driver()
		p.Available = false

		if err := s.trips.UpdateTrip(ctx, trip); err != nil {
			return fmt.Errorf("update trip: %w", err)
		}
		if err := s.users.UpdateUser(ctx, driver); err != nil {
			return fmt.Errorf("update driver: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"trip_id":    trip.ID,
		"driver_id":  driverID,
		"vehicle_id": vehicleID,
	}).Info("trip assigned")
	s.publish(ctx, events.New(events.TripAssigned, trip.ID, trip))
	return trip, nil
}

// checkDriver rejects drivers acting on trips that are not theirs.
func checkDriver(by Actor, trip *models.Trip) error {
	if by.Role == models.RoleDriver && trip.AssignedDriverID != by.UserID {
		return fmt.Errorf("trip %s: %w", trip.ID, ErrForbidden)
	}
	return nil
}

// StartTrip moves an assigned trip to in progress.
func (s *Service) StartTrip(ctx context.Context, tripID string, by Actor) (*models.Trip, error) {
	trip, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if err := checkDriver(by, trip); err != nil {
		return nil, err
	}
	if err := trip.Start(); err != nil {
		return nil, err
	}
	if err := s.trips.UpdateTrip(ctx, trip); err != nil {
		return nil, fmt.Errorf("update trip: %w", err)
	}

	s.log.WithField("trip_id", trip.ID).Info("trip started")
	s.publish(ctx, events.New(events.TripStarted, trip.ID, trip))
	return trip, nil
}

// CompleteTrip completes an in-progress trip, adds its distance to the
// vehicle, schedules maintenance when the policy says so and releases the
// driver. All records change together or not at all.
func (s *Service) CompleteTrip(ctx context.Context, tripID string, by Actor) (*models.Completion, error) {
	var completion *models.Completion
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		trip, err := s.GetTrip(ctx, tripID)
		if err != nil {
			return err
		}
		if err := checkDriver(by, trip); err != nil {
			return err
		}
		vehicle, err := s.vehicles.FindVehicleByID(ctx, trip.AssignedVehicleID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("vehicle %s: %w", trip.AssignedVehicleID, err)
		}

		c, err := trip.Complete(vehicle, s.policy)
		if err != nil {
			return err
		}
		if err := s.trips.UpdateTrip(ctx, trip); err != nil {
			return fmt.Errorf("update trip: %w", err)
		}
		if err := s.vehicles.UpdateVehicle(ctx, vehicle); err != nil {
			return fmt.Errorf("update vehicle: %w", err)
		}
		if err := s.releaseDriver(ctx, trip); err != nil {
			return err
		}
		completion = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, completion.VehicleID)
	s.log.WithFields(logrus.Fields{
		"trip_id":         completion.TripID,
		"vehicle_id":      completion.VehicleID,
		"distance_added":  completion.DistanceAdded,
		"total_distance":  completion.TotalDistance,
		"maintenance_due": completion.MaintenanceDue,
	}).Info("trip completed")
	s.publish(ctx, events.New(events.TripCompleted, completion.TripID, completion))
	if completion.MaintenanceScheduled {
		s.publish(ctx, events.New(events.MaintenanceDue, completion.VehicleID, completion))
	}
	return completion, nil
}

// releaseDriver makes the trip's driver available again if the driver still
// points at the trip. A driver deleted meanwhile is skipped.
func (s *Service) releaseDriver(ctx context.Context, trip *models.Trip) error {
	driver, err := s.users.FindUserByID(ctx, trip.AssignedDriverID)
	if errors.Is(err, db.ErrNotFound) {
		s.log.WithFields(logrus.Fields{
			"trip_id":   trip.ID,
			"driver_id": trip.AssignedDriverID,
		}).Warn("assigned driver no longer exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("driver %s: %w", trip.AssignedDriverID, err)
	}
	p, ok := driver.Driver()
	if !ok || p.UpcomingTripID != trip.ID {
		return nil
	}
	p.UpcomingTripID = ""
	p.Available = true
	if err := s.users.UpdateUser(ctx, driver); err != nil {
		return fmt.Errorf("update driver: %w", err)
	}
	return nil
}

// AdvanceMaintenance moves a vehicle's open maintenance cycle forward. The
// read and the write share one transaction so a concurrent trip completion
// cannot be overwritten. Maintenance staff may only advance vehicles
// assigned to them.
func (s *Service) AdvanceMaintenance(ctx context.Context, vehicleID string, by Actor) (*models.Vehicle, error) {
	if by.Role == models.RoleMaintenance {
		staff, err := s.GetUser(ctx, by.UserID)
		if err != nil {
			return nil, err
		}
		p, ok := staff.Maintenance()
		if !ok || !containsID(p.AssignedVehicles, vehicleID) {
			return nil, fmt.Errorf("vehicle %s: %w", vehicleID, ErrForbidden)
		}
	}

	var vehicle *models.Vehicle
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		v, err := s.vehicles.FindVehicleByID(ctx, vehicleID)
		if err != nil {
			return fmt.Errorf("vehicle %s: %w", vehicleID, err)
		}
		if err := v.AdvanceMaintenance(); err != nil {
			return err
		}
		if err := s.vehicles.UpdateVehicle(ctx, v); err != nil {
			return fmt.Errorf("update vehicle: %w", err)
		}
		vehicle = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, vehicle.ID)

	s.log.WithFields(logrus.Fields{
		"vehicle_id": vehicle.ID,
		"status":     vehicle.MaintenanceStatus,
	}).Info("maintenance advanced")
	s.publish(ctx, events.New(events.MaintenanceAdvanced, vehicle.ID, vehicle))
	return vehicle, nil
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// AssignVehicleToStaff adds a vehicle to a maintenance worker's list. Adding
// a vehicle that is already listed changes nothing.
func (s *Service) AssignVehicleToStaff(ctx context.Context, staffID, vehicleID string) (*models.User, error) {
	var staff *models.User
	changed := false
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		u, err := s.GetUser(ctx, staffID)
		if err != nil {
			return err
		}
		p, ok := u.Maintenance()
		if !ok {
			return models.NewPreconditionError("assign vehicle", "user %s is a %s, not maintenance personnel", u.ID, u.Role())
		}
		if _, err := s.vehicles.FindVehicleByID(ctx, vehicleID); err != nil {
			return fmt.Errorf("vehicle %s: %w", vehicleID, err)
		}
		staff, changed = u, p.AssignVehicle(vehicleID)
		if !changed {
			return nil
		}
		if err := s.users.UpdateUser(ctx, u); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return staff, nil
	}
	s.log.WithFields(logrus.Fields{"user_id": staff.ID, "vehicle_id": vehicleID}).Info("vehicle assigned to maintenance staff")
	return staff, nil
}

// VehicleWatcher streams vehicle changes.
type VehicleWatcher interface {
	Watch(ctx context.Context) (<-chan db.Change[models.Vehicle], error)
}

// WatchVehicles drops cached vehicles as they change in the store, until
// ctx is done or the stream ends.
func (s *Service) WatchVehicles(ctx context.Context, w VehicleWatcher) error {
	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	for c := range changes {
		if c.Err != nil {
			s.log.WithField("vehicle_id", c.ID).WithError(c.Err).Warn("vehicle change rejected")
		}
		if c.ID != "" {
			s.invalidate(ctx, c.ID)
		}
	}
	return ctx.Err()
}

// TripWatcher streams trip changes.
type TripWatcher interface {
	Watch(ctx context.Context) (<-chan db.Change[models.Trip], error)
}

// WatchTrips logs every trip change seen by the store, including writes
// made by other processes.
func (s *Service) WatchTrips(ctx context.Context, w TripWatcher) error {
	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	for c := range changes {
		entry := s.log.WithFields(logrus.Fields{"trip_id": c.ID, "operation": c.Operation})
		switch {
		case c.Err != nil:
			entry.WithError(c.Err).Warn("trip change rejected")
		case c.Entity != nil:
			entry.WithFields(logrus.Fields{
				"status":     c.Entity.Status,
				"driver_id":  c.Entity.AssignedDriverID,
				"vehicle_id": c.Entity.AssignedVehicleID,
			}).Info("trip changed")
		default:
			entry.Info("trip changed")
		}
	}
	return ctx.Err()
}
