package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-manager/internal/db"
	"github.com/ukydev/fleet-manager/internal/fleet"
	"github.com/ukydev/fleet-manager/internal/middleware"
	"github.com/ukydev/fleet-manager/internal/models"
)

// FleetService is the part of fleet.Service the HTTP layer uses.
type FleetService interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListDrivers(ctx context.Context, availableOnly bool) ([]*models.User, error)
	CreateVehicle(ctx context.Context, v models.Vehicle) (*models.Vehicle, error)
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
	ListVehicles(ctx context.Context, filter db.VehicleFilter) ([]*models.Vehicle, error)
	AdvanceMaintenance(ctx context.Context, vehicleID string, by fleet.Actor) (*models.Vehicle, error)
	CreateTrip(ctx context.Context, req fleet.TripRequest) (*models.Trip, error)
	GetTrip(ctx context.Context, id string) (*models.Trip, error)
	ListTrips(ctx context.Context, filter db.TripFilter) ([]*models.Trip, error)
	AssignTrip(ctx context.Context, tripID, driverID, vehicleID string) (*models.Trip, error)
	StartTrip(ctx context.Context, tripID string, by fleet.Actor) (*models.Trip, error)
	CompleteTrip(ctx context.Context, tripID string, by fleet.Actor) (*models.Completion, error)
	AssignVehicleToStaff(ctx context.Context, staffID, vehicleID string) (*models.User, error)
}

// FleetHandler serves users, vehicles, trips and maintenance.
type FleetHandler struct {
	svc FleetService
	log logrus.FieldLogger
}

func NewFleetHandler(svc FleetService, log logrus.FieldLogger) *FleetHandler {
	return &FleetHandler{svc: svc, log: log}
}

func actor(r *http.Request) fleet.Actor {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return fleet.Actor{}
	}
	return fleet.Actor{UserID: claims.UserID, Role: claims.Role}
}

// CreateUser accepts a user record of any role.
func (h *FleetHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if err := decodeJSON(r, &user); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.svc.CreateUser(r.Context(), &user); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, &user)
}

func (h *FleetHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ListDrivers lists drivers, most experienced first. ?available=true limits
// the list to drivers free for assignment.
func (h *FleetHandler) ListDrivers(w http.ResponseWriter, r *http.Request) {
	available, _ := strconv.ParseBool(r.URL.Query().Get("available"))
	drivers, err := h.svc.ListDrivers(r.Context(), available)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, drivers)
}

func (h *FleetHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var v models.Vehicle
	if err := decodeJSON(r, &v); err != nil {
		writeError(w, h.log, err)
		return
	}
	vehicle, err := h.svc.CreateVehicle(r.Context(), v)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, vehicle)
}

func (h *FleetHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.svc.GetVehicle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// ListVehicles supports ?type=, ?maintenanceStatus= and ?operational= filters.
func (h *FleetHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter db.VehicleFilter
	if s := q.Get("type"); s != "" {
		t, err := models.ParseVehicleType(s)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		filter.Type = t
	}
	if s := q.Get("maintenanceStatus"); s != "" {
		ms, err := models.ParseMaintenanceStatus(s)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		filter.MaintenanceStatus = ms
	}
	if s := q.Get("operational"); s != "" {
		op, err := strconv.ParseBool(s)
		if err != nil {
			writeError(w, h.log, models.NewValidationError("operational", "must be a boolean"))
			return
		}
		filter.Operational = &op
	}

	vehicles, err := h.svc.ListVehicles(r.Context(), filter)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

func (h *FleetHandler) AdvanceMaintenance(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.svc.AdvanceMaintenance(r.Context(), r.PathValue("id"), actor(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

func (h *FleetHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req fleet.TripRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	trip, err := h.svc.CreateTrip(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

func (h *FleetHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := h.svc.GetTrip(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	by := actor(r)
	if by.Role == models.RoleDriver && trip.AssignedDriverID != by.UserID {
		writeError(w, h.log, fleet.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// ListTrips supports ?status=, ?driver= and ?vehicle= filters. Drivers only
// ever see their own trips.
func (h *FleetHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := db.TripFilter{DriverID: q.Get("driver"), VehicleID: q.Get("vehicle")}
	if s := q.Get("status"); s != "" {
		st, err := models.ParseTripStatus(s)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		filter.Status = st
	}
	if by := actor(r); by.Role == models.RoleDriver {
		filter.DriverID = by.UserID
	}

	trips, err := h.svc.ListTrips(r.Context(), filter)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

type assignRequest struct {
	DriverID  string `json:"driverId"`
	VehicleID string `json:"vehicleId"`
}

func (h *FleetHandler) AssignTrip(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	errs := &models.ValidationError{}
	if req.DriverID == "" {
		errs.Add("driverId", "is required")
	}
	if req.VehicleID == "" {
		errs.Add("vehicleId", "is required")
	}
	if len(errs.Errors) > 0 {
		writeError(w, h.log, errs)
		return
	}

	trip, err := h.svc.AssignTrip(r.Context(), r.PathValue("id"), req.DriverID, req.VehicleID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *FleetHandler) StartTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := h.svc.StartTrip(r.Context(), r.PathValue("id"), actor(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *FleetHandler) CompleteTrip(w http.ResponseWriter, r *http.Request) {
	completion, err := h.svc.CompleteTrip(r.Context(), r.PathValue("id"), actor(r))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, completion)
}

type staffVehicleRequest struct {
	VehicleID string `json:"vehicleId"`
}

func (h *FleetHandler) AssignVehicleToStaff(w http.ResponseWriter, r *http.Request) {
	var req staffVehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if req.VehicleID == "" {
		writeError(w, h.log, models.NewValidationError("vehicleId", "is required"))
		return
	}
	staff, err := h.svc.AssignVehicleToStaff(r.Context(), r.PathValue("id"), req.VehicleID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, staff)
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
