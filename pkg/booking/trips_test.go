package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRemainingSeatsAfterSwap(t *testing.T) {
	// Nothing sold yet - new vehicle starts fully available
	seats, fits := remainingSeatsAfterSwap(100, 100, 60)
	assert.True(t, fits)
	assert.Equal(t, 60, seats)

	// 40 sold, new vehicle seats them with 20 spare
	seats, fits = remainingSeatsAfterSwap(100, 60, 60)
	assert.True(t, fits)
	assert.Equal(t, 20, seats)

	// 40 sold, exact fit
	seats, fits = remainingSeatsAfterSwap(100, 60, 40)
	assert.True(t, fits)
	assert.Equal(t, 0, seats)

	// 40 sold, new vehicle too small
	_, fits = remainingSeatsAfterSwap(100, 60, 39)
	assert.False(t, fits)
}

func TestRebuildRequired(t *testing.T) {
	price := 42.0
	assert.False(t, rebuildRequired(UpdateTripInput{Price: &price}))
	assert.False(t, rebuildRequired(UpdateTripInput{}))

	// Anything the timetable is derived from triggers a full rebuild, and
	// with it the reservation window sync
	departure := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	assert.True(t, rebuildRequired(UpdateTripInput{DepartureTime: &departure}))

	vehicleRef := "tripline:vehicle:1"
	assert.True(t, rebuildRequired(UpdateTripInput{VehicleRef: &vehicleRef}))

	stopDuration := 10
	assert.True(t, rebuildRequired(UpdateTripInput{StopDurationMinutes: &stopDuration}))
}
