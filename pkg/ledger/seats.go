package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/tripline/tripline/pkg/cbdf"
	"github.com/tripline/tripline/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ReserveSeats atomically decrements a trip's available seats. The guard
// filter makes the check-then-decrement a single conditional update so two
// concurrent reservations can never over-commit the trip.
func ReserveSeats(ctx context.Context, tripIdentifier string, quantity int) error {
	if quantity <= 0 {
		return cbdf.NewValidationError("seat quantity must be positive")
	}

	tripsCollection := database.GetCollection("trips")

	result, err := tripsCollection.UpdateOne(ctx, bson.M{
		"primaryidentifier": tripIdentifier,
		"status":            bson.M{"$nin": bson.A{cbdf.TripStatusCancelled, cbdf.TripStatusCompleted}},
		"availableseats":    bson.M{"$gte": quantity},
	}, bson.M{
		"$inc": bson.M{"availableseats": -quantity},
		"$set": bson.M{"modificationdatetime": time.Now()},
	})
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return describeSeatFailure(ctx, tripIdentifier, quantity)
	}

	return nil
}

// ReleaseSeats atomically increments a trip's available seats, clamped to
// the vehicle capacity snapshot so a double release can never create seats
// that do not exist.
func ReleaseSeats(ctx context.Context, tripIdentifier string, quantity int) error {
	if quantity <= 0 {
		return cbdf.NewValidationError("seat quantity must be positive")
	}

	tripsCollection := database.GetCollection("trips")

	result, err := tripsCollection.UpdateOne(ctx, bson.M{
		"primaryidentifier": tripIdentifier,
	}, mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.M{
			"availableseats": bson.M{
				"$min": bson.A{
					"$vehiclecapacity",
					bson.M{"$add": bson.A{"$availableseats", quantity}},
				},
			},
			"modificationdatetime": time.Now(),
		}}},
	})
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		return cbdf.NewNotFoundError("Trip", tripIdentifier)
	}

	return nil
}

// canReserve mirrors the reserve guard filter - the trip must be live and
// still hold at least the requested seats. A request the guard would
// reject is refused outright, never clamped down to what remains.
func canReserve(trip *cbdf.Trip, quantity int) bool {
	return !trip.Status.IsTerminal() && trip.AvailableSeats >= quantity
}

func describeSeatFailure(ctx context.Context, tripIdentifier string, quantity int) error {
	tripsCollection := database.GetCollection("trips")

	var trip *cbdf.Trip
	tripsCollection.FindOne(ctx, bson.M{"primaryidentifier": tripIdentifier}).Decode(&trip)

	if trip == nil {
		return cbdf.NewNotFoundError("Trip", tripIdentifier)
	}

	// The guard filter missed but the trip would pass now - seats freed up
	// between the update and this read
	if canReserve(trip, quantity) {
		return cbdf.NewConflictError(tripIdentifier, "trip changed concurrently, retry")
	}

	if trip.Status.IsTerminal() {
		return cbdf.NewStateError(string(trip.Status), "reserve seats")
	}

	if trip.AvailableSeats == 0 {
		return cbdf.NewConflictError(tripIdentifier, "no seats remaining")
	}

	return cbdf.NewConflictError(tripIdentifier,
		fmt.Sprintf("only %d seats remaining, requested %d", trip.AvailableSeats, quantity))
}
