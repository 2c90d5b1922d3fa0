package lifecycle

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tripline/tripline/pkg/cbdf"
	"github.com/tripline/tripline/pkg/database"
	"github.com/tripline/tripline/pkg/ledger"
	"go.mongodb.org/mongo-driver/bson"
)

// Event is something that happens to a reservation.
type Event string

const (
	// EventCancel is user or admin triggered
	EventCancel Event = "cancel"
	// EventExpire is time triggered, only the sweeper raises it
	EventExpire Event = "expire"
)

func targetStatus(event Event) (cbdf.ReservationStatus, error) {
	switch event {
	case EventCancel:
		return cbdf.ReservationStatusCancelled, nil
	case EventExpire:
		return cbdf.ReservationStatusExpired, nil
	}

	return "", cbdf.NewValidationError("unknown reservation event")
}

// Transition moves a reservation to the status the event demands and
// applies the compensating ledger release. The status flip is a
// conditional update on the current status, so a racing transition loses
// cleanly and the release runs at most once.
func Transition(ctx context.Context, reservation *cbdf.Reservation, event Event) (cbdf.ReservationStatus, error) {
	target, err := targetStatus(event)
	if err != nil {
		return "", err
	}

	if !reservation.Status.CanTransitionTo(target) {
		return "", cbdf.NewStateError(string(reservation.Status), string(target))
	}

	reservationsCollection := database.GetCollection("reservations")

	result, err := reservationsCollection.UpdateOne(ctx, bson.M{
		"primaryidentifier": reservation.PrimaryIdentifier,
		"status":            reservation.Status,
	}, bson.M{
		"$set": bson.M{
			"status":               target,
			"modificationdatetime": time.Now(),
		},
	})
	if err != nil {
		return "", err
	}

	if result.MatchedCount == 0 {
		return "", cbdf.NewStateError(string(reservation.Status), string(target))
	}

	if err := releaseLedger(ctx, reservation); err != nil {
		// The reservation already left active so the release cannot be
		// double-applied - surface the failure for the caller to retry
		log.Error().Err(err).
			Str("reservation", reservation.PrimaryIdentifier).
			Msg("Ledger release failed after status transition")

		return "", err
	}

	reservation.Status = target

	return target, nil
}

func releaseLedger(ctx context.Context, reservation *cbdf.Reservation) error {
	if reservation.Kind.IsCounted() {
		return ledger.ReleaseSeats(ctx, reservation.ResourceRef, reservation.Quantity)
	}

	return ledger.ReleaseVehicle(ctx, reservation.ResourceRef, time.Now())
}
