package models

// Role represents the capacity a user acts in.
type Role string

const (
	RoleFleet       Role = "Fleet Manager"
	RoleDriver      Role = "Driver"
	RoleMaintenance Role = "Maintenance Personnel"
)

// MaintenanceStatus is the state of a vehicle's current maintenance cycle.
type MaintenanceStatus string

const (
	MaintenanceScheduled MaintenanceStatus = "Scheduled"
	MaintenanceActive    MaintenanceStatus = "Active"
	MaintenanceCompleted MaintenanceStatus = "Completed"
)

// Experience is a driver's experience bracket.
type Experience string

const (
	ExperienceLessThanOne  Experience = "Less than 1 year"
	ExperienceLessThanFive Experience = "Less than 5 years"
	ExperienceMoreThanFive Experience = "More than 5 years"
)

// Priority ranks experience for assignment. Lower is more senior.
func (e Experience) Priority() int {
	switch e {
	case ExperienceLessThanOne:
		return 3
	case ExperienceLessThanFive:
		return 2
	case ExperienceMoreThanFive:
		return 1
	default:
		return 0
	}
}

// GeoPreference is the terrain a driver prefers.
type GeoPreference string

const (
	GeoHilly GeoPreference = "Hilly Areas"
	GeoPlain GeoPreference = "Plain Areas"
)

// VehicleType is the kind of fleet vehicle.
type VehicleType string

const (
	VehicleTruck VehicleType = "Truck"
	VehicleVan   VehicleType = "Van"
	VehicleCar   VehicleType = "Car"
)

// FuelType is the energy source of a vehicle.
type FuelType string

const (
	FuelPetrol   FuelType = "Petrol"
	FuelDiesel   FuelType = "Diesel"
	FuelHybrid   FuelType = "Hybrid"
	FuelElectric FuelType = "Electric"
)

// TripStatus is the lifecycle state of a trip.
type TripStatus string

const (
	TripScheduled  TripStatus = "Scheduled"
	TripInProgress TripStatus = "In Progress"
	TripCompleted  TripStatus = "Completed"
)

// RoleValues lists every role in display order.
func RoleValues() []Role {
	return []Role{RoleFleet, RoleDriver, RoleMaintenance}
}

// MaintenanceStatusValues lists the maintenance cycle states in lifecycle order.
func MaintenanceStatusValues() []MaintenanceStatus {
	return []MaintenanceStatus{MaintenanceScheduled, MaintenanceActive, MaintenanceCompleted}
}

// ExperienceValues lists experience bands from least to most senior.
func ExperienceValues() []Experience {
	return []Experience{ExperienceLessThanOne, ExperienceLessThanFive, ExperienceMoreThanFive}
}

// GeoPreferenceValues lists the terrain preferences a driver can state.
func GeoPreferenceValues() []GeoPreference {
	return []GeoPreference{GeoHilly, GeoPlain}
}

// VehicleTypeValues lists the supported vehicle types.
func VehicleTypeValues() []VehicleType {
	return []VehicleType{VehicleTruck, VehicleVan, VehicleCar}
}

// FuelTypeValues lists the supported fuel types.
func FuelTypeValues() []FuelType {
	return []FuelType{FuelPetrol, FuelDiesel, FuelHybrid, FuelElectric}
}

// TripStatusValues lists trip states in lifecycle order.
func TripStatusValues() []TripStatus {
	return []TripStatus{TripScheduled, TripInProgress, TripCompleted}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return contains(RoleValues(), r) }

// Valid reports whether s is a known maintenance status.
func (s MaintenanceStatus) Valid() bool { return contains(MaintenanceStatusValues(), s) }

// Valid reports whether e is a known experience band.
func (e Experience) Valid() bool { return contains(ExperienceValues(), e) }

// Valid reports whether g is a known geographic preference.
func (g GeoPreference) Valid() bool { return contains(GeoPreferenceValues(), g) }

// Valid reports whether t is a known vehicle type.
func (t VehicleType) Valid() bool { return contains(VehicleTypeValues(), t) }

// Valid reports whether f is a known fuel type.
func (f FuelType) Valid() bool { return contains(FuelTypeValues(), f) }

// Valid reports whether s is a known trip status.
func (s TripStatus) Valid() bool { return contains(TripStatusValues(), s) }

// ParseRole parses a role tag, failing with a *ValidationError for unknown values.
func ParseRole(s string) (Role, error) {
	return parseEnum("role", s, RoleValues())
}

// ParseMaintenanceStatus parses a maintenance status tag, failing with a *ValidationError for unknown values.
func ParseMaintenanceStatus(s string) (MaintenanceStatus, error) {
	return parseEnum("maintenanceStatus", s, MaintenanceStatusValues())
}

// ParseExperience parses an experience tag, failing with a *ValidationError for unknown values.
func ParseExperience(s string) (Experience, error) {
	return parseEnum("experience", s, ExperienceValues())
}

// ParseGeoPreference parses a geographic preference tag, failing with a *ValidationError for unknown values.
func ParseGeoPreference(s string) (GeoPreference, error) {
	return parseEnum("geoPreference", s, GeoPreferenceValues())
}

// ParseVehicleType parses a vehicle type tag, failing with a *ValidationError for unknown values.
func ParseVehicleType(s string) (VehicleType, error) {
	return parseEnum("type", s, VehicleTypeValues())
}

// ParseFuelType parses a fuel type tag, failing with a *ValidationError for unknown values.
func ParseFuelType(s string) (FuelType, error) {
	return parseEnum("fuelType", s, FuelTypeValues())
}

// ParseTripStatus parses a trip status tag, failing with a *ValidationError for unknown values.
func ParseTripStatus(s string) (TripStatus, error) {
	return parseEnum("status", s, TripStatusValues())
}

func parseEnum[T ~string](field, s string, values []T) (T, error) {
	for _, v := range values {
		if string(v) == s {
			return v, nil
		}
	}
	var zero T
	return zero, NewValidationError(field, "unknown value %q", s)
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
