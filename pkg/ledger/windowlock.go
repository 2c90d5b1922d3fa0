package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tripline/tripline/pkg/cbdf"
	"github.com/tripline/tripline/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
)

const windowLockStaleAfter = 30 * time.Second

// WindowLock serializes the conflict-scan-then-commit sequence for one
// vehicle. Taking it is a conditional write on the vehicle document, so of
// two racing bookings exactly one holds the lock while it scans existing
// windows and inserts its own - the loser gets a retryable ConflictError
// instead of a stale look at the windows.
type WindowLock struct {
	VehicleIdentifier string

	token string
}

// LockVehicleWindow takes the scan lock on a vehicle. Locks left behind by
// a crashed process go stale and may be taken over.
func LockVehicleWindow(ctx context.Context, vehicleIdentifier string) (*WindowLock, error) {
	token := uuid.New().String()
	now := time.Now()

	vehiclesCollection := database.GetCollection("vehicles")

	result, err := vehiclesCollection.UpdateOne(ctx, bson.M{
		"primaryidentifier": vehicleIdentifier,
		"$or": bson.A{
			bson.M{"windowlock": bson.M{"$exists": false}},
			bson.M{"windowlock.lockedat": bson.M{"$lt": now.Add(-windowLockStaleAfter)}},
		},
	}, bson.M{
		"$set": bson.M{
			"windowlock": cbdf.VehicleWindowLock{Token: token, LockedAt: now},
		},
	})
	if err != nil {
		return nil, err
	}

	if result.MatchedCount == 0 {
		return nil, describeLockFailure(ctx, vehicleIdentifier, now)
	}

	return &WindowLock{VehicleIdentifier: vehicleIdentifier, token: token}, nil
}

// Unlock releases the lock if this holder still owns it. A takeover after
// the lock went stale leaves nothing to release.
func (l *WindowLock) Unlock(ctx context.Context) {
	vehiclesCollection := database.GetCollection("vehicles")

	_, err := vehiclesCollection.UpdateOne(ctx, bson.M{
		"primaryidentifier": l.VehicleIdentifier,
		"windowlock.token":  l.token,
	}, bson.M{
		"$unset": bson.M{"windowlock": ""},
	})
	if err != nil {
		log.Error().Err(err).Str("vehicle", l.VehicleIdentifier).Msg("Failed to release window lock")
	}
}

// windowLockStale mirrors the takeover filter - a lock this old belongs to
// a process that never released it.
func windowLockStale(lockedAt time.Time, now time.Time) bool {
	return lockedAt.Before(now.Add(-windowLockStaleAfter))
}

func describeLockFailure(ctx context.Context, vehicleIdentifier string, now time.Time) error {
	vehiclesCollection := database.GetCollection("vehicles")

	var vehicle *cbdf.Vehicle
	vehiclesCollection.FindOne(ctx, bson.M{"primaryidentifier": vehicleIdentifier}).Decode(&vehicle)

	if vehicle == nil {
		return cbdf.NewNotFoundError("Vehicle", vehicleIdentifier)
	}

	if vehicle.WindowLock != nil && !windowLockStale(vehicle.WindowLock.LockedAt, now) {
		return cbdf.NewConflictError(vehicleIdentifier, "another booking is in flight for this vehicle, retry")
	}

	// Lock released or went stale between the update and this read
	return cbdf.NewConflictError(vehicleIdentifier, "vehicle changed concurrently, retry")
}
