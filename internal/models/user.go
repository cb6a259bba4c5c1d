package models

import (
	"github.com/google/uuid"
)

// User is a person in exactly one capacity. The shared identity fields live
// here; the role-specific payload is held privately so that the role can only
// follow from how the user was constructed.
type User struct {
	ID    string `doc:"id"`
	Name  string `doc:"name" validate:"required"`
	Email string `doc:"email" validate:"required,email"`
	Phone string `doc:"phone"`

	profile profile
}

type profile interface {
	role() Role
	document(doc Document)
}

// DriverProfile holds the fields specific to drivers.
type DriverProfile struct {
	Experience        Experience    `doc:"experience" validate:"enum"`
	License           string        `doc:"license" validate:"required"`
	GeoPreference     GeoPreference `doc:"geoPreference" validate:"enum"`
	VehiclePreference VehicleType   `doc:"vehiclePreference" validate:"enum"`
	// Available reports whether the driver can take a new trip.
	Available bool `doc:"status"`
	// UpcomingTripID names the trip this driver is assigned to, if any.
	UpcomingTripID string `doc:"upcomingTrip"`
}

func (*DriverProfile) role() Role { return RoleDriver }

func (p *DriverProfile) document(doc Document) {
	doc["experience"] = string(p.Experience)
	doc["license"] = p.License
	doc["geoPreference"] = string(p.GeoPreference)
	doc["vehiclePreference"] = string(p.VehiclePreference)
	doc["status"] = p.Available
	if p.UpcomingTripID != "" {
		doc["upcomingTrip"] = p.UpcomingTripID
	}
}

// MaintenanceProfile holds the fields specific to maintenance staff.
type MaintenanceProfile struct {
	MaintenanceIndex int      `doc:"maintenanceIndex" validate:"gte=0"`
	AssignedVehicles []string `doc:"assignedVehicles"`
}

func (*MaintenanceProfile) role() Role { return RoleMaintenance }

func (p *MaintenanceProfile) document(doc Document) {
	doc["maintenanceIndex"] = p.MaintenanceIndex
	doc["assignedVehicles"] = append([]string{}, p.AssignedVehicles...)
}

// AssignVehicle appends vehicleID unless it is already assigned.
func (p *MaintenanceProfile) AssignVehicle(vehicleID string) bool {
	if contains(p.AssignedVehicles, vehicleID) {
		return false
	}
	p.AssignedVehicles = append(p.AssignedVehicles, vehicleID)
	return true
}

// NewFleetManager creates a fleet manager.
func NewFleetManager(name, email, phone string) (*User, error) {
	return newUser(name, email, phone, nil)
}

// NewDriver creates a driver. The driver starts with no upcoming trip.
func NewDriver(name, email, phone string, p DriverProfile) (*User, error) {
	p.UpcomingTripID = ""
	return newUser(name, email, phone, &p)
}

// NewMaintenance creates a maintenance staff member with no assigned vehicles.
func NewMaintenance(name, email, phone string, maintenanceIndex int) (*User, error) {
	return newUser(name, email, phone, &MaintenanceProfile{
		MaintenanceIndex: maintenanceIndex,
		AssignedVehicles: []string{},
	})
}

func newUser(name, email, phone string, p profile) (*User, error) {
	u := &User{
		ID:      uuid.NewString(),
		Name:    name,
		Email:   email,
		Phone:   phone,
		profile: p,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Role returns the role implied by the user's variant.
func (u *User) Role() Role {
	if u.profile == nil {
		return RoleFleet
	}
	return u.profile.role()
}

// Driver returns the driver payload when the user is a driver.
func (u *User) Driver() (*DriverProfile, bool) {
	p, ok := u.profile.(*DriverProfile)
	return p, ok
}

// Maintenance returns the maintenance payload when the user is maintenance staff.
func (u *User) Maintenance() (*MaintenanceProfile, bool) {
	p, ok := u.profile.(*MaintenanceProfile)
	return p, ok
}

func (u *User) Validate() error {
	errs := &ValidationError{}
	if err := validateStruct(u); err != nil {
		errs.merge(err)
	}
	if u.profile != nil {
		if err := validateStruct(u.profile); err != nil {
			errs.merge(err)
		}
	}
	return errs.orNil()
}

// Document encodes the user as a flat record discriminated by role.
func (u *User) Document() Document {
	doc := Document{
		"name":  u.Name,
		"email": u.Email,
		"phone": u.Phone,
		"role":  string(u.Role()),
	}
	if u.ID != "" {
		doc[keyID] = u.ID
	}
	if u.profile != nil {
		u.profile.document(doc)
	}
	return doc
}

// DecodeUser builds a user of the variant named by the record's role.
// A missing id is replaced with a fresh one.
func DecodeUser(doc Document) (*User, error) {
	r := newDocReader(doc)
	u := &User{
		ID:    r.OptionalString(keyID),
		Name:  r.String("name"),
		Email: r.String("email"),
		Phone: r.String("phone"),
	}
	switch enum(r, "role", ParseRole) {
	case RoleDriver:
		u.profile = &DriverProfile{
			Experience:        enum(r, "experience", ParseExperience),
			License:           r.String("license"),
			GeoPreference:     enum(r, "geoPreference", ParseGeoPreference),
			VehiclePreference: enum(r, "vehiclePreference", ParseVehicleType),
			Available:         r.Bool("status"),
			UpcomingTripID:    r.OptionalString("upcomingTrip"),
		}
	case RoleMaintenance:
		u.profile = &MaintenanceProfile{
			MaintenanceIndex: r.Int("maintenanceIndex"),
			AssignedVehicles: r.OptionalStrings("assignedVehicles"),
		}
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

func (u User) MarshalJSON() ([]byte, error) {
	return marshalDocJSON(u.Document())
}

func (u *User) UnmarshalJSON(data []byte) error {
	doc, err := unmarshalDocJSON(data)
	if err != nil {
		return err
	}
	decoded, err := DecodeUser(doc)
	if err != nil {
		return err
	}
	*u = *decoded
	return nil
}

func (u User) MarshalBSON() ([]byte, error) {
	return marshalDocBSON(u.Document())
}

func (u *User) UnmarshalBSON(data []byte) error {
	doc, err := unmarshalDocBSON(data)
	if err != nil {
		return err
	}
	decoded, err := DecodeUser(doc)
	if err != nil {
		return err
	}
	*u = *decoded
	return nil
}
