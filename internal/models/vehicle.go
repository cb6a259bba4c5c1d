package models

import (
	"github.com/google/uuid"
)

// Vehicle represents a fleet vehicle.
type Vehicle struct {
	ID                 string      `doc:"id"`
	Type               VehicleType `doc:"type" validate:"enum"`
	Model              string      `doc:"model" validate:"required"`
	RegistrationNumber string      `doc:"registrationNumber" validate:"required"`
	FuelType           FuelType    `doc:"fuelType" validate:"enum"`
	Mileage            int         `doc:"mileage" validate:"gte=0"` // km per litre or per charge-equivalent
	RC                 string      `doc:"rc"`
	Insurance          string      `doc:"insurance"`
	Pollution          string      `doc:"pollution"`
	VehicleImage       string      `doc:"vehicleImage"`
	TotalDistance      int         `doc:"totalDistance" validate:"gte=0"` // in kilometers
	// Status reports whether the vehicle is in service.
	Status            bool              `doc:"status"`
	MaintenanceStatus MaintenanceStatus `doc:"maintenanceStatus" validate:"enum"`
	// LastServiceDistance is TotalDistance when the last maintenance cycle completed.
	LastServiceDistance int `doc:"lastServiceDistance" validate:"gte=0"`
}

// NewVehicle assigns an ID when v has none and validates it.
func NewVehicle(v Vehicle) (*Vehicle, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

func (v *Vehicle) Validate() error {
	errs := &ValidationError{}
	if err := validateStruct(v); err != nil {
		errs.merge(err)
	}
	if v.LastServiceDistance > v.TotalDistance {
		errs.Add("lastServiceDistance", "must not exceed totalDistance")
	}
	return errs.orNil()
}

// ScheduleMaintenance opens a new maintenance cycle. A cycle that is already
// scheduled or active is left alone and false is returned.
func (v *Vehicle) ScheduleMaintenance() bool {
	if v.MaintenanceStatus != MaintenanceCompleted {
		return false
	}
	v.MaintenanceStatus = MaintenanceScheduled
	return true
}

// AdvanceMaintenance moves the current cycle forward: scheduled to active,
// active to completed. Completing a cycle records the service odometer.
func (v *Vehicle) AdvanceMaintenance() error {
	switch v.MaintenanceStatus {
	case MaintenanceScheduled:
		v.MaintenanceStatus = MaintenanceActive
	case MaintenanceActive:
		v.MaintenanceStatus = MaintenanceCompleted
		v.LastServiceDistance = v.TotalDistance
	default:
		return NewPreconditionError("advance maintenance", "vehicle %s has no open maintenance cycle", v.ID)
	}
	return nil
}

func (v *Vehicle) Document() Document {
	doc := Document{
		"type":                string(v.Type),
		"model":               v.Model,
		"registrationNumber":  v.RegistrationNumber,
		"fuelType":            string(v.FuelType),
		"mileage":             v.Mileage,
		"rc":                  v.RC,
		"insurance":           v.Insurance,
		"pollution":           v.Pollution,
		"vehicleImage":        v.VehicleImage,
		"totalDistance":       v.TotalDistance,
		"status":              v.Status,
		"maintenanceStatus":   string(v.MaintenanceStatus),
		"lastServiceDistance": v.LastServiceDistance,
	}
	if v.ID != "" {
		doc[keyID] = v.ID
	}
	return doc
}

// DecodeVehicle builds a vehicle from its record. Every field is required
// except id, which is generated when absent, and lastServiceDistance.
func DecodeVehicle(doc Document) (*Vehicle, error) {
	r := newDocReader(doc)
	v := &Vehicle{
		ID:                  r.OptionalString(keyID),
		Type:                enum(r, "type", ParseVehicleType),
		Model:               r.String("model"),
		RegistrationNumber:  r.String("registrationNumber"),
		FuelType:            enum(r, "fuelType", ParseFuelType),
		Mileage:             r.Int("mileage"),
		RC:                  r.String("rc"),
		Insurance:           r.String("insurance"),
		Pollution:           r.String("pollution"),
		VehicleImage:        r.String("vehicleImage"),
		TotalDistance:       r.Int("totalDistance"),
		Status:              r.Bool("status"),
		MaintenanceStatus:   enum(r, "maintenanceStatus", ParseMaintenanceStatus),
		LastServiceDistance: r.OptionalInt("lastServiceDistance"),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v Vehicle) MarshalJSON() ([]byte, error) {
	return marshalDocJSON(v.Document())
}

func (v *Vehicle) UnmarshalJSON(data []byte) error {
	doc, err := unmarshalDocJSON(data)
	if err != nil {
		return err
	}
	decoded, err := DecodeVehicle(doc)
	if err != nil {
		return err
	}
	*v = *decoded
	return nil
}

func (v Vehicle) MarshalBSON() ([]byte, error) {
	return marshalDocBSON(v.Document())
}

func (v *Vehicle) UnmarshalBSON(data []byte) error {
	doc, err := unmarshalDocBSON(data)
	if err != nil {
		return err
	}
	decoded, err := DecodeVehicle(doc)
	if err != nil {
		return err
	}
	*v = *decoded
	return nil
}
