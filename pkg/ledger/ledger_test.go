package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tripline/tripline/pkg/cbdf"
)

func TestAcquirable(t *testing.T) {
	// Sequential-window resources may stack another window on a booked
	// vehicle - the conflict scan rules out overlap
	assert.True(t, acquirable(cbdf.VehicleStatusAvailable, false))
	assert.True(t, acquirable(cbdf.VehicleStatusBooked, false))

	// One-booking-at-a-time resources reject any existing hold
	assert.True(t, acquirable(cbdf.VehicleStatusAvailable, true))
	assert.False(t, acquirable(cbdf.VehicleStatusBooked, true))

	assert.False(t, acquirable(cbdf.VehicleStatusMaintenance, false))
	assert.False(t, acquirable(cbdf.VehicleStatusMaintenance, true))
	assert.False(t, acquirable(cbdf.VehicleStatusOutOfService, false))
	assert.False(t, acquirable(cbdf.VehicleStatusOutOfService, true))
}

func TestCanReserve(t *testing.T) {
	trip := &cbdf.Trip{Status: cbdf.TripStatusPreparing, AvailableSeats: 2}

	assert.True(t, canReserve(trip, 1))
	assert.True(t, canReserve(trip, 2))

	// Over-reservation is rejected outright, never clamped to what remains
	assert.False(t, canReserve(trip, 3))

	empty := &cbdf.Trip{Status: cbdf.TripStatusPreparing, AvailableSeats: 0}
	assert.False(t, canReserve(empty, 1))

	cancelled := &cbdf.Trip{Status: cbdf.TripStatusCancelled, AvailableSeats: 10}
	assert.False(t, canReserve(cancelled, 1))
}

func TestLatestClaimEnd(t *testing.T) {
	base := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	// No remaining claims - the vehicle may become vacant
	_, claimed := latestClaimEnd(nil)
	assert.False(t, claimed)

	// A single active claim keeps the vehicle held until its window end
	latest, claimed := latestClaimEnd([]time.Time{base.Add(time.Hour)})
	assert.True(t, claimed)
	assert.Equal(t, base.Add(time.Hour), latest)

	// Multiple claims hold the vehicle until the furthest one ends
	latest, claimed = latestClaimEnd([]time.Time{
		base.Add(time.Hour),
		base.Add(4 * time.Hour),
		base.Add(2 * time.Hour),
	})
	assert.True(t, claimed)
	assert.Equal(t, base.Add(4*time.Hour), latest)
}

func TestWindowLockStale(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, windowLockStale(now.Add(-10*time.Second), now))
	assert.True(t, windowLockStale(now.Add(-31*time.Second), now))

	// Exactly at the boundary the lock is still held
	assert.False(t, windowLockStale(now.Add(-windowLockStaleAfter), now))
}
