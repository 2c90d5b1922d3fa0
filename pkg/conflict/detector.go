package conflict

import (
	"context"

	"github.com/tripline/tripline/pkg/cbdf"
	"github.com/tripline/tripline/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
)

// Hold is an existing non-cancelled claim on a resource.
type Hold struct {
	Identifier string
	Window     cbdf.Window
}

// FirstOverlap returns the first hold whose half-open window overlaps the
// proposed one, skipping the hold being edited. Nil means no conflict.
func FirstOverlap(holds []Hold, window cbdf.Window, excludeIdentifier string) *Hold {
	for _, hold := range holds {
		if hold.Identifier == excludeIdentifier {
			continue
		}

		if hold.Window.Overlaps(window) {
			return &hold
		}
	}

	return nil
}

// TripConflict checks the proposed vehicle-level window against every
// non-cancelled trip already assigned to the vehicle.
func TripConflict(ctx context.Context, vehicleRef string, window cbdf.Window, excludeTripIdentifier string) (*Hold, error) {
	tripsCollection := database.GetCollection("trips")

	cursor, err := tripsCollection.Find(ctx, bson.M{
		"vehicleref": vehicleRef,
		"status":     bson.M{"$ne": cbdf.TripStatusCancelled},
	})
	if err != nil {
		return nil, err
	}

	var holds []Hold
	for cursor.Next(ctx) {
		var trip cbdf.Trip
		if err := cursor.Decode(&trip); err != nil {
			return nil, err
		}

		holds = append(holds, Hold{
			Identifier: trip.PrimaryIdentifier,
			Window:     trip.Window(),
		})
	}

	return FirstOverlap(holds, window, excludeTripIdentifier), nil
}

// ReservationConflict checks the proposed window against every
// non-cancelled reservation holding the same resource.
func ReservationConflict(ctx context.Context, resourceRef string, window cbdf.Window, excludeReservationIdentifier string) (*Hold, error) {
	reservationsCollection := database.GetCollection("reservations")

	cursor, err := reservationsCollection.Find(ctx, bson.M{
		"resourceref": resourceRef,
		"status":      bson.M{"$ne": cbdf.ReservationStatusCancelled},
	})
	if err != nil {
		return nil, err
	}

	var holds []Hold
	for cursor.Next(ctx) {
		var reservation cbdf.Reservation
		if err := cursor.Decode(&reservation); err != nil {
			return nil, err
		}

		holds = append(holds, Hold{
			Identifier: reservation.PrimaryIdentifier,
			Window:     reservation.Window,
		})
	}

	return FirstOverlap(holds, window, excludeReservationIdentifier), nil
}
