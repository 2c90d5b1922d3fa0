package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tripline/tripline/pkg/cbdf"
	"github.com/tripline/tripline/pkg/conflict"
	"github.com/tripline/tripline/pkg/database"
	"github.com/tripline/tripline/pkg/ledger"
	"github.com/tripline/tripline/pkg/lifecycle"
	"go.mongodb.org/mongo-driver/bson"
)

type CreateReservationInput struct {
	Kind        cbdf.ReservationKind
	ResourceRef string
	UserRef     string

	// Seats for counted kinds, ignored for exclusive kinds
	Quantity int

	// Window for exclusive kinds, derived from the trip for counted kinds
	Window cbdf.Window
}

// CreateReservation commits a reservation with the ordering the invariants
// demand: validation, then the conflict check, then the ledger mutation,
// and only then the active reservation record. A failure at any step
// leaves no partial state.
func (e *Engine) CreateReservation(ctx context.Context, input CreateReservationInput) (*cbdf.Reservation, error) {
	if input.UserRef == "" {
		return nil, cbdf.NewValidationError("user reference is required")
	}

	if input.Kind.IsCounted() {
		return e.createCountedReservation(ctx, input)
	}

	switch input.Kind {
	case cbdf.ReservationKindCar, cbdf.ReservationKindHotelRoom:
		return e.createExclusiveReservation(ctx, input)
	}

	return nil, cbdf.NewValidationError(fmt.Sprintf("unknown reservation kind %s", input.Kind))
}

func (e *Engine) createCountedReservation(ctx context.Context, input CreateReservationInput) (*cbdf.Reservation, error) {
	if input.Quantity <= 0 {
		return nil, cbdf.NewValidationError("seat quantity must be positive")
	}

	trip, err := loadTrip(ctx, input.ResourceRef)
	if err != nil {
		return nil, err
	}

	if trip.Status.IsTerminal() {
		return nil, cbdf.NewStateError(string(trip.Status), "reserve seats")
	}

	if err := ledger.ReserveSeats(ctx, trip.PrimaryIdentifier, input.Quantity); err != nil {
		return nil, err
	}

	reservation := newReservation(input)
	reservation.Window = trip.Window()

	if err := insertReservation(ctx, reservation); err != nil {
		if releaseErr := ledger.ReleaseSeats(ctx, trip.PrimaryIdentifier, input.Quantity); releaseErr != nil {
			log.Error().Err(releaseErr).Str("trip", trip.PrimaryIdentifier).Msg("Failed to release seats after reservation insert failure")
		}

		return nil, err
	}

	e.notify(input.UserRef, "Booking confirmed",
		fmt.Sprintf("%d seats reserved on trip %s", input.Quantity, trip.PrimaryIdentifier), "booking")

	return reservation, nil
}

func (e *Engine) createExclusiveReservation(ctx context.Context, input CreateReservationInput) (*cbdf.Reservation, error) {
	if !input.Window.IsValid() {
		return nil, cbdf.NewValidationError("reservation window must end after it starts")
	}

	vehicle, err := loadVehicle(ctx, input.ResourceRef)
	if err != nil {
		return nil, err
	}

	// Rooms are one booking at a time - the flag flip is the whole gate
	// and the exclusive acquire only matches a vacant room, so a second
	// booking loses atomically. Cars take sequential windows instead: the
	// interval scan plus insert runs under the vehicle's window lock so a
	// racing booking cannot slip in between them.
	if input.Kind == cbdf.ReservationKindHotelRoom {
		if !vehicle.IsVacant() {
			return nil, cbdf.NewStateError(string(vehicle.Status), "book")
		}

		if err := ledger.AcquireVehicleExclusive(ctx, vehicle.PrimaryIdentifier, input.Window.End); err != nil {
			return nil, err
		}
	} else {
		if !vehicle.IsBookable() {
			return nil, cbdf.NewStateError(string(vehicle.Status), "book")
		}

		lock, err := ledger.LockVehicleWindow(ctx, vehicle.PrimaryIdentifier)
		if err != nil {
			return nil, err
		}
		defer lock.Unlock(ctx)

		hold, err := conflict.ReservationConflict(ctx, vehicle.PrimaryIdentifier, input.Window, "")
		if err != nil {
			return nil, err
		}
		if hold != nil {
			return nil, cbdf.NewConflictError(vehicle.PrimaryIdentifier,
				fmt.Sprintf("time window conflicts with booking %s", hold.Identifier))
		}

		if err := ledger.AcquireVehicle(ctx, vehicle.PrimaryIdentifier, input.Window.End); err != nil {
			return nil, err
		}
	}

	input.Quantity = 1
	reservation := newReservation(input)

	if err := insertReservation(ctx, reservation); err != nil {
		if releaseErr := ledger.ReleaseVehicle(ctx, vehicle.PrimaryIdentifier, time.Now()); releaseErr != nil {
			log.Error().Err(releaseErr).Str("vehicle", vehicle.PrimaryIdentifier).Msg("Failed to release vehicle after reservation insert failure")
		}

		return nil, err
	}

	e.notify(input.UserRef, "Booking confirmed",
		fmt.Sprintf("%s booked from %s to %s", vehicle.Name,
			input.Window.Start.Format(time.RFC822), input.Window.End.Format(time.RFC822)), "booking")

	return reservation, nil
}

// UpdateReservationSeats re-validates remaining capacity through the same
// ledger API as creation - a seat increase reserves the delta, a decrease
// releases it. The reservation status never changes.
func (e *Engine) UpdateReservationSeats(ctx context.Context, reservationIdentifier string, userRef string, newQuantity int) (*cbdf.Reservation, error) {
	if newQuantity <= 0 {
		return nil, cbdf.NewValidationError("seat quantity must be positive")
	}

	reservation, err := loadOwnedReservation(ctx, reservationIdentifier, userRef)
	if err != nil {
		return nil, err
	}

	if reservation.Status != cbdf.ReservationStatusActive {
		return nil, cbdf.NewStateError(string(reservation.Status), "change seats")
	}
	if !reservation.Kind.IsCounted() {
		return nil, cbdf.NewValidationError("only seat reservations can change quantity")
	}

	delta := newQuantity - reservation.Quantity
	if delta == 0 {
		return reservation, nil
	}

	if delta > 0 {
		err = ledger.ReserveSeats(ctx, reservation.ResourceRef, delta)
	} else {
		err = ledger.ReleaseSeats(ctx, reservation.ResourceRef, -delta)
	}
	if err != nil {
		return nil, err
	}

	reservationsCollection := database.GetCollection("reservations")
	result, err := reservationsCollection.UpdateOne(ctx, bson.M{
		"primaryidentifier": reservation.PrimaryIdentifier,
		"quantity":          reservation.Quantity,
	}, bson.M{
		"$set": bson.M{
			"quantity":             newQuantity,
			"modificationdatetime": time.Now(),
		},
	})

	if err == nil && result.MatchedCount == 0 {
		err = cbdf.NewConflictError(reservation.PrimaryIdentifier, "reservation changed concurrently, retry")
	}

	if err != nil {
		// Undo the ledger delta so capacity stays consistent with the
		// unchanged reservation
		var compensateErr error
		if delta > 0 {
			compensateErr = ledger.ReleaseSeats(ctx, reservation.ResourceRef, delta)
		} else {
			compensateErr = ledger.ReserveSeats(ctx, reservation.ResourceRef, -delta)
		}
		if compensateErr != nil {
			log.Error().Err(compensateErr).Str("reservation", reservation.PrimaryIdentifier).Msg("Failed to compensate seat delta")
		}

		return nil, err
	}

	reservation.Quantity = newQuantity

	return reservation, nil
}

// UpdateReservationWindow moves an exclusive booking to a new window,
// re-running the conflict scan with the booking itself excluded.
func (e *Engine) UpdateReservationWindow(ctx context.Context, reservationIdentifier string, userRef string, window cbdf.Window) (*cbdf.Reservation, error) {
	if !window.IsValid() {
		return nil, cbdf.NewValidationError("reservation window must end after it starts")
	}

	reservation, err := loadOwnedReservation(ctx, reservationIdentifier, userRef)
	if err != nil {
		return nil, err
	}

	if reservation.Status != cbdf.ReservationStatusActive {
		return nil, cbdf.NewStateError(string(reservation.Status), "change window")
	}
	if reservation.Kind.IsCounted() {
		return nil, cbdf.NewValidationError("seat reservations follow the trip window")
	}

	lock, err := ledger.LockVehicleWindow(ctx, reservation.ResourceRef)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock(ctx)

	hold, err := conflict.ReservationConflict(ctx, reservation.ResourceRef, window, reservation.PrimaryIdentifier)
	if err != nil {
		return nil, err
	}
	if hold != nil {
		return nil, cbdf.NewConflictError(reservation.ResourceRef,
			fmt.Sprintf("time window conflicts with booking %s", hold.Identifier))
	}

	reservationsCollection := database.GetCollection("reservations")
	_, err = reservationsCollection.UpdateOne(ctx, bson.M{
		"primaryidentifier": reservation.PrimaryIdentifier,
	}, bson.M{
		"$set": bson.M{
			"window":               window,
			"modificationdatetime": time.Now(),
		},
	})
	if err != nil {
		return nil, err
	}

	reservation.Window = window

	// Extend or shrink the vehicle hold to match the moved window
	if err := ledger.AcquireVehicle(ctx, reservation.ResourceRef, window.End); err != nil {
		return nil, err
	}
	if err := ledger.ReleaseVehicle(ctx, reservation.ResourceRef, time.Now()); err != nil {
		log.Error().Err(err).Str("vehicle", reservation.ResourceRef).Msg("Failed to refresh vehicle hold")
	}

	return reservation, nil
}

// CancelReservation cancels an active reservation and releases its ledger
// hold. Cancellation is allowed even after the window has started.
func (e *Engine) CancelReservation(ctx context.Context, reservationIdentifier string, userRef string) error {
	reservation, err := loadOwnedReservation(ctx, reservationIdentifier, userRef)
	if err != nil {
		return err
	}

	if _, err := lifecycle.Transition(ctx, reservation, lifecycle.EventCancel); err != nil {
		return err
	}

	e.notify(reservation.UserRef, "Booking cancelled",
		fmt.Sprintf("Your booking %s has been cancelled", reservation.PrimaryIdentifier), "booking")

	return nil
}

func newReservation(input CreateReservationInput) *cbdf.Reservation {
	now := time.Now()

	return &cbdf.Reservation{
		PrimaryIdentifier:    newIdentifier("reservation"),
		CreationDateTime:     now,
		ModificationDateTime: now,

		Kind:        input.Kind,
		ResourceRef: input.ResourceRef,
		UserRef:     input.UserRef,

		Window:   input.Window,
		Quantity: input.Quantity,

		Status:        cbdf.ReservationStatusActive,
		PaymentStatus: cbdf.PaymentStatusPending,
	}
}

func insertReservation(ctx context.Context, reservation *cbdf.Reservation) error {
	reservationsCollection := database.GetCollection("reservations")
	_, err := reservationsCollection.InsertOne(ctx, reservation)

	return err
}

func loadOwnedReservation(ctx context.Context, identifier string, userRef string) (*cbdf.Reservation, error) {
	var reservation *cbdf.Reservation
	reservationsCollection := database.GetCollection("reservations")
	reservationsCollection.FindOne(ctx, bson.M{"primaryidentifier": identifier}).Decode(&reservation)

	if reservation == nil {
		return nil, cbdf.NewNotFoundError("Reservation", identifier)
	}

	if userRef != "" && reservation.UserRef != userRef {
		return nil, cbdf.NewNotFoundError("Reservation", identifier)
	}

	return reservation, nil
}
