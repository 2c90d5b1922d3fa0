package cbdf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestReservationStatusTransitions(t *testing.T) {
	assert.True(t, ReservationStatusActive.CanTransitionTo(ReservationStatusCancelled))
	assert.True(t, ReservationStatusActive.CanTransitionTo(ReservationStatusExpired))

	// Double cancel and cancel-after-expiry are illegal
	assert.False(t, ReservationStatusCancelled.CanTransitionTo(ReservationStatusCancelled))
	assert.False(t, ReservationStatusExpired.CanTransitionTo(ReservationStatusCancelled))

	assert.False(t, ReservationStatusActive.IsTerminal())
	assert.True(t, ReservationStatusCancelled.IsTerminal())
	assert.True(t, ReservationStatusExpired.IsTerminal())
}

func TestTripStatusTransitions(t *testing.T) {
	assert.True(t, TripStatusPreparing.CanTransitionTo(TripStatusPrepared))
	assert.True(t, TripStatusPreparing.CanTransitionTo(TripStatusOnWay))
	assert.True(t, TripStatusPrepared.CanTransitionTo(TripStatusOnWay))
	assert.True(t, TripStatusOnWay.CanTransitionTo(TripStatusCompleted))

	assert.False(t, TripStatusCompleted.CanTransitionTo(TripStatusOnWay))
	assert.False(t, TripStatusCancelled.CanTransitionTo(TripStatusOnWay))
	assert.False(t, TripStatusCompleted.CanTransitionTo(TripStatusCancelled))

	assert.True(t, TripStatusCompleted.IsTerminal())
	assert.True(t, TripStatusCancelled.IsTerminal())
	assert.False(t, TripStatusPreparing.IsTerminal())
}

func TestVehicleHoldSemantics(t *testing.T) {
	booked := &Vehicle{Status: VehicleStatusBooked}

	// A booked vehicle still accepts sequential windows - overlap is the
	// conflict scan's job
	assert.True(t, booked.IsBookable())

	// But it is not vacant, so one-booking-at-a-time resources (hotel
	// rooms) must refuse a second booking while a hold exists
	assert.False(t, booked.IsVacant())

	available := &Vehicle{Status: VehicleStatusAvailable}
	assert.True(t, available.IsBookable())
	assert.True(t, available.IsVacant())

	maintenance := &Vehicle{Status: VehicleStatusMaintenance}
	assert.False(t, maintenance.IsBookable())
	assert.False(t, maintenance.IsVacant())
}

func TestWindowValidity(t *testing.T) {
	window := Window{Start: day(1), End: day(2)}
	assert.True(t, window.IsValid())

	backwards := Window{Start: day(2), End: day(1)}
	assert.False(t, backwards.IsValid())

	empty := Window{Start: day(1), End: day(1)}
	assert.False(t, empty.IsValid())
}

func TestWindowElapsed(t *testing.T) {
	window := Window{Start: day(1), End: day(2)}

	assert.False(t, window.HasStarted(day(1).Add(-1)))
	assert.True(t, window.HasStarted(day(1)))

	assert.False(t, window.HasElapsed(day(2).Add(-1)))
	assert.True(t, window.HasElapsed(day(2)), "half-open window has elapsed at its end instant")
}
