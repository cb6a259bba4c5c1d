package handlers

import (
	"net/http"

	"github.com/ukydev/fleet-manager/internal/middleware"
	"github.com/ukydev/fleet-manager/internal/models"
)

// Routes registers every endpoint on mux. Authentication is applied by the
// caller around the whole mux; the per-route checks here only need claims.
func Routes(mux *http.ServeMux, authH *AuthHandler, fleetH *FleetHandler, am *middleware.AuthMiddleware) {
	perm := func(action string, h http.HandlerFunc) http.Handler {
		return am.RequirePermission(action)(h)
	}

	mux.HandleFunc("GET /health", Health)

	mux.HandleFunc("POST /api/auth/register", authH.Register)
	mux.HandleFunc("POST /api/auth/login", authH.Login)
	mux.HandleFunc("GET /api/auth/profile", authH.GetProfile)
	mux.HandleFunc("POST /api/auth/password", authH.ChangePassword)

	mux.Handle("POST /api/users", perm(models.ActionManageUsers, fleetH.CreateUser))
	mux.Handle("GET /api/users/{id}", perm(models.ActionViewUsers, fleetH.GetUser))
	mux.Handle("GET /api/drivers", perm(models.ActionViewUsers, fleetH.ListDrivers))

	mux.Handle("POST /api/vehicles", perm(models.ActionManageVehicles, fleetH.CreateVehicle))
	mux.Handle("GET /api/vehicles", perm(models.ActionViewVehicles, fleetH.ListVehicles))
	mux.Handle("GET /api/vehicles/{id}", perm(models.ActionViewVehicles, fleetH.GetVehicle))
	mux.Handle("POST /api/vehicles/{id}/maintenance/advance", perm(models.ActionUpdateMaintenance, fleetH.AdvanceMaintenance))

	mux.Handle("POST /api/trips", perm(models.ActionManageTrips, fleetH.CreateTrip))
	mux.Handle("GET /api/trips", perm(models.ActionViewTrips, fleetH.ListTrips))
	mux.Handle("GET /api/trips/{id}", perm(models.ActionViewTrips, fleetH.GetTrip))
	mux.Handle("POST /api/trips/{id}/assign", perm(models.ActionManageTrips, fleetH.AssignTrip))
	mux.Handle("POST /api/trips/{id}/start", perm(models.ActionStartTrip, fleetH.StartTrip))
	mux.Handle("POST /api/trips/{id}/complete", perm(models.ActionCompleteTrip, fleetH.CompleteTrip))

	mux.Handle("POST /api/maintenance/{id}/vehicles", perm(models.ActionManageUsers, fleetH.AssignVehicleToStaff))
}
