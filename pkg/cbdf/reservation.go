package cbdf

import (
	"time"

	"golang.org/x/exp/slices"
)

// Reservation is the one record shape shared by every booking kind. The
// Kind discriminator says what ResourceRef points at - a trip for counted
// seat bookings, a vehicle for exclusive window bookings.
type Reservation struct {
	PrimaryIdentifier string `groups:"basic" bson:",omitempty"`

	CreationDateTime     time.Time `groups:"detailed" bson:",omitempty"`
	ModificationDateTime time.Time `groups:"detailed" bson:",omitempty"`

	Kind ReservationKind `groups:"basic"`

	ResourceRef string `groups:"basic"`
	UserRef     string `groups:"internal"`

	Window Window `groups:"basic"`

	// Seats held for counted kinds, always 1 for exclusive kinds
	Quantity int `groups:"basic"`

	Status        ReservationStatus `groups:"basic"`
	PaymentStatus PaymentStatus     `groups:"basic"`
}

type ReservationKind string

const (
	ReservationKindTrainTrip ReservationKind = "trainTrip"
	ReservationKindCar       ReservationKind = "car"
	ReservationKindFlight    ReservationKind = "flight"
	ReservationKindHotelRoom ReservationKind = "hotelRoom"
)

// IsCounted reports whether the reservation holds a seat quantity on a trip
// rather than an exclusive window on a vehicle.
func (k ReservationKind) IsCounted() bool {
	return k == ReservationKindTrainTrip || k == ReservationKindFlight
}

type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusExpired   ReservationStatus = "expired"
)

var validReservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationStatusActive:    {ReservationStatusCancelled, ReservationStatusExpired},
	ReservationStatusCancelled: {},
	ReservationStatusExpired:   {},
}

func (s ReservationStatus) CanTransitionTo(target ReservationStatus) bool {
	return slices.Contains(validReservationTransitions[s], target)
}

func (s ReservationStatus) IsTerminal() bool {
	return len(validReservationTransitions[s]) == 0
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)
