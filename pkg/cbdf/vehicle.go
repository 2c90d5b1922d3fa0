package cbdf

import "time"

type Vehicle struct {
	PrimaryIdentifier string `groups:"basic" bson:",omitempty"`

	CreationDateTime     time.Time `groups:"detailed" bson:",omitempty"`
	ModificationDateTime time.Time `groups:"detailed" bson:",omitempty"`

	Kind VehicleKind `groups:"basic"`
	Name string      `groups:"basic"`

	// Seats for trains and planes, zero for cars
	Capacity int `groups:"basic"`

	// Only meaningful for trains, used for timetable calculation
	SpeedKmh float64 `groups:"basic" bson:",omitempty"`

	Status VehicleStatus `groups:"basic"`

	// Set whenever the vehicle is booked, cleared once no active claim remains
	BookedUntil *time.Time `groups:"basic" json:",omitempty" bson:",omitempty"`

	// Serialization marker for the booking path, never exposed to callers
	WindowLock *VehicleWindowLock `groups:"internal" json:"-" bson:",omitempty"`
}

// VehicleWindowLock is a short-lived claim on the right to scan and commit
// a booking window for the vehicle.
type VehicleWindowLock struct {
	Token    string
	LockedAt time.Time
}

type VehicleKind string

const (
	VehicleKindTrain VehicleKind = "train"
	VehicleKindCar   VehicleKind = "car"
	VehicleKindPlane VehicleKind = "plane"
)

type VehicleStatus string

const (
	VehicleStatusAvailable    VehicleStatus = "available"
	VehicleStatusBooked       VehicleStatus = "booked"
	VehicleStatusMaintenance  VehicleStatus = "maintenance"
	VehicleStatusOutOfService VehicleStatus = "outOfService"
)

// IsBookable reports whether a new booking window may be attached to the
// vehicle. Booked vehicles are handled by the conflict check instead.
func (v *Vehicle) IsBookable() bool {
	return v.Status == VehicleStatusAvailable || v.Status == VehicleStatusBooked
}

// IsVacant reports whether nothing holds the vehicle at all. Resources
// booked one at a time (hotel rooms) accept a new booking only while
// vacant - an existing hold rejects it outright instead of going through
// the window scan.
func (v *Vehicle) IsVacant() bool {
	return v.Status == VehicleStatusAvailable
}
