package ledger

import (
	"context"
	"time"

	"github.com/tripline/tripline/pkg/cbdf"
	"github.com/tripline/tripline/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
)

// AcquireVehicle marks a vehicle booked the instant a window is attached to
// it, extending booked_until if the new window ends later than the current
// one. Already-booked vehicles are admitted - sequential windows on the
// same vehicle are legal and the conflict scan rules out overlap.
func AcquireVehicle(ctx context.Context, vehicleIdentifier string, until time.Time) error {
	return acquire(ctx, vehicleIdentifier, until, false)
}

// AcquireVehicleExclusive books a vehicle only while it is completely free.
// One-booking-at-a-time resources (hotel rooms) go through this - an
// existing hold fails the acquire instead of stacking a second window.
func AcquireVehicleExclusive(ctx context.Context, vehicleIdentifier string, until time.Time) error {
	return acquire(ctx, vehicleIdentifier, until, true)
}

// acquirable mirrors the acquire guard filter - which vehicle statuses a
// new hold may attach to in each mode.
func acquirable(status cbdf.VehicleStatus, exclusive bool) bool {
	if exclusive {
		return status == cbdf.VehicleStatusAvailable
	}

	return status == cbdf.VehicleStatusAvailable || status == cbdf.VehicleStatusBooked
}

func acquire(ctx context.Context, vehicleIdentifier string, until time.Time, exclusive bool) error {
	statusFilter := bson.M{"$in": bson.A{cbdf.VehicleStatusAvailable, cbdf.VehicleStatusBooked}}
	if exclusive {
		statusFilter = bson.M{"$eq": cbdf.VehicleStatusAvailable}
	}

	vehiclesCollection := database.GetCollection("vehicles")

	result, err := vehiclesCollection.UpdateOne(ctx, bson.M{
		"primaryidentifier": vehicleIdentifier,
		"status":            statusFilter,
	}, bson.M{
		"$set": bson.M{
			"status":               cbdf.VehicleStatusBooked,
			"modificationdatetime": time.Now(),
		},
		"$max": bson.M{"bookeduntil": until},
	})
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return describeAcquireFailure(ctx, vehicleIdentifier, exclusive)
	}

	return nil
}

// ReleaseVehicle flips a vehicle back to available, but only once no
// active claim - trip or reservation - still covers a current or future
// window on it. A stale release while another booking holds the vehicle
// just refreshes booked_until instead.
func ReleaseVehicle(ctx context.Context, vehicleIdentifier string, now time.Time) error {
	latestClaimEnd, claimed, err := latestActiveClaim(ctx, vehicleIdentifier, now)
	if err != nil {
		return err
	}

	vehiclesCollection := database.GetCollection("vehicles")

	if claimed {
		_, err = vehiclesCollection.UpdateOne(ctx, bson.M{
			"primaryidentifier": vehicleIdentifier,
			"status":            cbdf.VehicleStatusBooked,
		}, bson.M{
			"$set": bson.M{
				"bookeduntil":          latestClaimEnd,
				"modificationdatetime": time.Now(),
			},
		})

		return err
	}

	// No-op when the vehicle is already available or in maintenance
	_, err = vehiclesCollection.UpdateOne(ctx, bson.M{
		"primaryidentifier": vehicleIdentifier,
		"status":            cbdf.VehicleStatusBooked,
	}, bson.M{
		"$set": bson.M{
			"status":               cbdf.VehicleStatusAvailable,
			"modificationdatetime": time.Now(),
		},
		"$unset": bson.M{"bookeduntil": ""},
	})

	return err
}

// latestActiveClaim scans non-cancelled trips assigned to the vehicle and
// active reservations holding it directly, returning the furthest window
// end still current or in the future.
func latestActiveClaim(ctx context.Context, vehicleIdentifier string, now time.Time) (time.Time, bool, error) {
	var claimEnds []time.Time

	tripsCollection := database.GetCollection("trips")
	cursor, err := tripsCollection.Find(ctx, bson.M{
		"vehicleref":  vehicleIdentifier,
		"status":      bson.M{"$nin": bson.A{cbdf.TripStatusCancelled, cbdf.TripStatusCompleted}},
		"arrivaltime": bson.M{"$gt": now},
	})
	if err != nil {
		return time.Time{}, false, err
	}

	for cursor.Next(ctx) {
		var trip cbdf.Trip
		if err := cursor.Decode(&trip); err != nil {
			return time.Time{}, false, err
		}

		claimEnds = append(claimEnds, trip.ArrivalTime)
	}

	reservationsCollection := database.GetCollection("reservations")
	cursor, err = reservationsCollection.Find(ctx, bson.M{
		"resourceref": vehicleIdentifier,
		"status":      cbdf.ReservationStatusActive,
		"window.end":  bson.M{"$gt": now},
	})
	if err != nil {
		return time.Time{}, false, err
	}

	for cursor.Next(ctx) {
		var reservation cbdf.Reservation
		if err := cursor.Decode(&reservation); err != nil {
			return time.Time{}, false, err
		}

		claimEnds = append(claimEnds, reservation.Window.End)
	}

	latest, claimed := latestClaimEnd(claimEnds)

	return latest, claimed, nil
}

// latestClaimEnd reduces the remaining claim windows to the furthest end.
// No claims means the vehicle may become vacant.
func latestClaimEnd(claimEnds []time.Time) (time.Time, bool) {
	var latest time.Time

	for _, end := range claimEnds {
		if end.After(latest) {
			latest = end
		}
	}

	return latest, len(claimEnds) > 0
}

func describeAcquireFailure(ctx context.Context, vehicleIdentifier string, exclusive bool) error {
	vehiclesCollection := database.GetCollection("vehicles")

	var vehicle *cbdf.Vehicle
	vehiclesCollection.FindOne(ctx, bson.M{"primaryidentifier": vehicleIdentifier}).Decode(&vehicle)

	if vehicle == nil {
		return cbdf.NewNotFoundError("Vehicle", vehicleIdentifier)
	}

	// The guard filter missed but the status would pass now - the vehicle
	// changed underneath us
	if acquirable(vehicle.Status, exclusive) {
		return cbdf.NewConflictError(vehicleIdentifier, "vehicle changed concurrently, retry")
	}

	return cbdf.NewStateError(string(vehicle.Status), "book vehicle")
}
