package models

// Actions checked by HasPermission.
const (
	ActionManageUsers       = "manage_users"
	ActionViewUsers         = "view_users"
	ActionManageVehicles    = "manage_vehicles"
	ActionViewVehicles      = "view_vehicles"
	ActionManageTrips       = "manage_trips"
	ActionViewTrips         = "view_trips"
	ActionStartTrip         = "start_trip"
	ActionCompleteTrip      = "complete_trip"
	ActionUpdateMaintenance = "update_maintenance"
)

// HasPermission checks if the role may perform a specific action
func (r Role) HasPermission(action string) bool {
	switch r {
	case RoleFleet:
		return true
	case RoleDriver:
		return action == ActionViewTrips || action == ActionViewVehicles ||
			action == ActionStartTrip || action == ActionCompleteTrip
	case RoleMaintenance:
		return action == ActionViewVehicles || action == ActionViewTrips ||
			action == ActionUpdateMaintenance
	default:
		return false
	}
}
