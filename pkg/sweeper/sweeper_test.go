package sweeper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tripline/tripline/pkg/cbdf"
)

var sweepTime = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func TestVehicleDue(t *testing.T) {
	lapsed := sweepTime.Add(-time.Hour)
	held := sweepTime.Add(time.Hour)

	vehicle := &cbdf.Vehicle{Status: cbdf.VehicleStatusBooked, BookedUntil: &lapsed}
	assert.True(t, vehicleDue(vehicle, sweepTime))

	vehicle = &cbdf.Vehicle{Status: cbdf.VehicleStatusBooked, BookedUntil: &held}
	assert.False(t, vehicleDue(vehicle, sweepTime))

	// A booked vehicle with no hold end is treated as lapsed
	vehicle = &cbdf.Vehicle{Status: cbdf.VehicleStatusBooked}
	assert.True(t, vehicleDue(vehicle, sweepTime))

	// Already released - the second sweep is a no-op
	vehicle = &cbdf.Vehicle{Status: cbdf.VehicleStatusAvailable, BookedUntil: &lapsed}
	assert.False(t, vehicleDue(vehicle, sweepTime))

	vehicle = &cbdf.Vehicle{Status: cbdf.VehicleStatusMaintenance}
	assert.False(t, vehicleDue(vehicle, sweepTime))
}

func TestReservationDue(t *testing.T) {
	elapsed := cbdf.Window{Start: sweepTime.Add(-2 * time.Hour), End: sweepTime.Add(-time.Hour)}
	current := cbdf.Window{Start: sweepTime.Add(-time.Hour), End: sweepTime.Add(time.Hour)}

	reservation := &cbdf.Reservation{Status: cbdf.ReservationStatusActive, Window: elapsed}
	assert.True(t, reservationDue(reservation, sweepTime))

	reservation = &cbdf.Reservation{Status: cbdf.ReservationStatusActive, Window: current}
	assert.False(t, reservationDue(reservation, sweepTime))

	// Expired and cancelled reservations never transition again
	reservation = &cbdf.Reservation{Status: cbdf.ReservationStatusExpired, Window: elapsed}
	assert.False(t, reservationDue(reservation, sweepTime))

	reservation = &cbdf.Reservation{Status: cbdf.ReservationStatusCancelled, Window: elapsed}
	assert.False(t, reservationDue(reservation, sweepTime))
}

func TestTripPhase(t *testing.T) {
	future := &cbdf.Trip{
		Status:        cbdf.TripStatusPreparing,
		DepartureTime: sweepTime.Add(time.Hour),
		ArrivalTime:   sweepTime.Add(3 * time.Hour),
	}
	assert.EqualValues(t, "", tripPhase(future, sweepTime))

	departed := &cbdf.Trip{
		Status:        cbdf.TripStatusPreparing,
		DepartureTime: sweepTime.Add(-time.Hour),
		ArrivalTime:   sweepTime.Add(time.Hour),
	}
	assert.EqualValues(t, cbdf.TripStatusOnWay, tripPhase(departed, sweepTime))

	departedPrepared := &cbdf.Trip{
		Status:        cbdf.TripStatusPrepared,
		DepartureTime: sweepTime.Add(-time.Hour),
		ArrivalTime:   sweepTime.Add(time.Hour),
	}
	assert.EqualValues(t, cbdf.TripStatusOnWay, tripPhase(departedPrepared, sweepTime))

	arrived := &cbdf.Trip{
		Status:        cbdf.TripStatusOnWay,
		DepartureTime: sweepTime.Add(-time.Hour),
		ArrivalTime:   sweepTime.Add(-10 * time.Minute),
	}
	assert.EqualValues(t, cbdf.TripStatusCompleted, tripPhase(arrived, sweepTime))

	// Completed and cancelled trips never move again
	completed := &cbdf.Trip{
		Status:        cbdf.TripStatusCompleted,
		DepartureTime: sweepTime.Add(-2 * time.Hour),
		ArrivalTime:   sweepTime.Add(-time.Hour),
	}
	assert.EqualValues(t, "", tripPhase(completed, sweepTime))

	cancelled := &cbdf.Trip{
		Status:        cbdf.TripStatusCancelled,
		DepartureTime: sweepTime.Add(-2 * time.Hour),
		ArrivalTime:   sweepTime.Add(-time.Hour),
	}
	assert.EqualValues(t, "", tripPhase(cancelled, sweepTime))
}

func TestTripPhaseIsIdempotent(t *testing.T) {
	trip := &cbdf.Trip{
		Status:        cbdf.TripStatusPreparing,
		DepartureTime: sweepTime.Add(-time.Hour),
		ArrivalTime:   sweepTime.Add(time.Hour),
	}

	next := tripPhase(trip, sweepTime)
	assert.EqualValues(t, cbdf.TripStatusOnWay, next)

	// Applying the transition and re-running the same sweep instant
	// produces no further transition until arrival passes
	trip.Status = next
	assert.EqualValues(t, "", tripPhase(trip, sweepTime))
}
