package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/tripline/tripline/pkg/cbdf"
	"github.com/tripline/tripline/pkg/database"
	"github.com/tripline/tripline/pkg/ledger"
	"github.com/tripline/tripline/pkg/lifecycle"
	"go.mongodb.org/mongo-driver/bson"
)

// EntityError is a single entity that failed during a sweep. It never
// aborts the batch - the sweep logs it and carries on.
type EntityError struct {
	Entity     string
	Identifier string
	Err        error
}

func (e EntityError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Entity, e.Identifier, e.Err)
}

// RunSweep applies every time-driven transition that is due: vehicles past
// their booking window, reservations past their window end, and trips
// crossing their departure or arrival boundary. Each pass is idempotent -
// re-running against already transitioned entities is a no-op.
func RunSweep(ctx context.Context, now time.Time) []EntityError {
	var entityErrors []EntityError

	entityErrors = append(entityErrors, sweepVehicles(ctx, now)...)
	entityErrors = append(entityErrors, sweepReservations(ctx, now)...)
	entityErrors = append(entityErrors, sweepTrips(ctx, now)...)

	return entityErrors
}

// vehicleDue reports whether a booked vehicle's hold has lapsed. A missing
// booked_until counts as lapsed - the claim re-check on release decides
// whether the vehicle actually frees up.
func vehicleDue(vehicle *cbdf.Vehicle, now time.Time) bool {
	if vehicle.Status != cbdf.VehicleStatusBooked {
		return false
	}

	return vehicle.BookedUntil == nil || !now.Before(*vehicle.BookedUntil)
}

func reservationDue(reservation *cbdf.Reservation, now time.Time) bool {
	if reservation.Status != cbdf.ReservationStatusActive {
		return false
	}

	return reservation.Window.HasElapsed(now)
}

// tripPhase is the status a trip should move to at the given instant, or
// empty when no transition is due.
func tripPhase(trip *cbdf.Trip, now time.Time) cbdf.TripStatus {
	switch trip.Status {
	case cbdf.TripStatusPreparing, cbdf.TripStatusPrepared:
		if trip.Window().HasStarted(now) {
			return cbdf.TripStatusOnWay
		}
	case cbdf.TripStatusOnWay:
		if trip.Window().HasElapsed(now) {
			return cbdf.TripStatusCompleted
		}
	}

	return ""
}

func sweepVehicles(ctx context.Context, now time.Time) []EntityError {
	vehiclesCollection := database.GetCollection("vehicles")

	cursor, err := vehiclesCollection.Find(ctx, bson.M{
		"status": cbdf.VehicleStatusBooked,
		"$or": bson.A{
			bson.M{"bookeduntil": bson.M{"$lte": now}},
			bson.M{"bookeduntil": bson.M{"$exists": false}},
		},
	})
	if err != nil {
		return []EntityError{{Entity: "vehicle", Identifier: "*", Err: err}}
	}

	p := pool.NewWithResults[*EntityError]()
	p.WithMaxGoroutines(16)

	for cursor.Next(ctx) {
		var vehicle cbdf.Vehicle
		if err := cursor.Decode(&vehicle); err != nil {
			log.Error().Err(err).Msg("Failed to decode vehicle")
			continue
		}

		p.Go(func() *EntityError {
			if !vehicleDue(&vehicle, now) {
				return nil
			}

			if err := ledger.ReleaseVehicle(ctx, vehicle.PrimaryIdentifier, now); err != nil {
				return &EntityError{Entity: "vehicle", Identifier: vehicle.PrimaryIdentifier, Err: err}
			}

			log.Debug().Str("vehicle", vehicle.PrimaryIdentifier).Msg("Released lapsed vehicle hold")

			return nil
		})
	}

	return collectErrors(p.Wait())
}

func sweepReservations(ctx context.Context, now time.Time) []EntityError {
	reservationsCollection := database.GetCollection("reservations")

	cursor, err := reservationsCollection.Find(ctx, bson.M{
		"status":     cbdf.ReservationStatusActive,
		"window.end": bson.M{"$lte": now},
	})
	if err != nil {
		return []EntityError{{Entity: "reservation", Identifier: "*", Err: err}}
	}

	p := pool.NewWithResults[*EntityError]()
	p.WithMaxGoroutines(16)

	for cursor.Next(ctx) {
		var reservation cbdf.Reservation
		if err := cursor.Decode(&reservation); err != nil {
			log.Error().Err(err).Msg("Failed to decode reservation")
			continue
		}

		p.Go(func() *EntityError {
			if !reservationDue(&reservation, now) {
				return nil
			}

			if _, err := lifecycle.Transition(ctx, &reservation, lifecycle.EventExpire); err != nil {
				return &EntityError{Entity: "reservation", Identifier: reservation.PrimaryIdentifier, Err: err}
			}

			log.Debug().Str("reservation", reservation.PrimaryIdentifier).Msg("Expired reservation")

			return nil
		})
	}

	return collectErrors(p.Wait())
}

func sweepTrips(ctx context.Context, now time.Time) []EntityError {
	var entityErrors []EntityError

	// Departures first so a trip whose whole window has already passed
	// moves through onWay and completes within one sweep
	entityErrors = append(entityErrors, promoteDepartedTrips(ctx, now)...)
	entityErrors = append(entityErrors, completeArrivedTrips(ctx, now)...)

	return entityErrors
}

func promoteDepartedTrips(ctx context.Context, now time.Time) []EntityError {
	tripsCollection := database.GetCollection("trips")

	cursor, err := tripsCollection.Find(ctx, bson.M{
		"status":        bson.M{"$in": bson.A{cbdf.TripStatusPreparing, cbdf.TripStatusPrepared}},
		"departuretime": bson.M{"$lte": now},
	})
	if err != nil {
		return []EntityError{{Entity: "trip", Identifier: "*", Err: err}}
	}

	var entityErrors []EntityError

	for cursor.Next(ctx) {
		var trip cbdf.Trip
		if err := cursor.Decode(&trip); err != nil {
			log.Error().Err(err).Msg("Failed to decode trip")
			continue
		}

		if tripPhase(&trip, now) != cbdf.TripStatusOnWay {
			continue
		}

		result, err := tripsCollection.UpdateOne(ctx, bson.M{
			"primaryidentifier": trip.PrimaryIdentifier,
			"status":            trip.Status,
		}, bson.M{
			"$set": bson.M{
				"status":               cbdf.TripStatusOnWay,
				"modificationdatetime": time.Now(),
			},
		})
		if err != nil {
			entityErrors = append(entityErrors, EntityError{Entity: "trip", Identifier: trip.PrimaryIdentifier, Err: err})
			continue
		}

		if result.MatchedCount > 0 {
			log.Info().Str("trip", trip.PrimaryIdentifier).Msg("Trip departed")
		}
	}

	return entityErrors
}

func completeArrivedTrips(ctx context.Context, now time.Time) []EntityError {
	tripsCollection := database.GetCollection("trips")

	cursor, err := tripsCollection.Find(ctx, bson.M{
		"status":      cbdf.TripStatusOnWay,
		"arrivaltime": bson.M{"$lte": now},
	})
	if err != nil {
		return []EntityError{{Entity: "trip", Identifier: "*", Err: err}}
	}

	var entityErrors []EntityError

	for cursor.Next(ctx) {
		var trip cbdf.Trip
		if err := cursor.Decode(&trip); err != nil {
			log.Error().Err(err).Msg("Failed to decode trip")
			continue
		}

		if tripPhase(&trip, now) != cbdf.TripStatusCompleted {
			continue
		}

		result, err := tripsCollection.UpdateOne(ctx, bson.M{
			"primaryidentifier": trip.PrimaryIdentifier,
			"status":            cbdf.TripStatusOnWay,
		}, bson.M{
			"$set": bson.M{
				"status":               cbdf.TripStatusCompleted,
				"modificationdatetime": time.Now(),
			},
		})
		if err != nil {
			entityErrors = append(entityErrors, EntityError{Entity: "trip", Identifier: trip.PrimaryIdentifier, Err: err})
			continue
		}

		if result.MatchedCount == 0 {
			// Another sweep got there first
			continue
		}

		log.Info().Str("trip", trip.PrimaryIdentifier).Msg("Trip completed")

		entityErrors = append(entityErrors, expireTripReservations(ctx, trip.PrimaryIdentifier)...)

		if err := ledger.ReleaseVehicle(ctx, trip.VehicleRef, now); err != nil {
			entityErrors = append(entityErrors, EntityError{Entity: "vehicle", Identifier: trip.VehicleRef, Err: err})
		}
	}

	return entityErrors
}

func expireTripReservations(ctx context.Context, tripIdentifier string) []EntityError {
	reservationsCollection := database.GetCollection("reservations")

	cursor, err := reservationsCollection.Find(ctx, bson.M{
		"resourceref": tripIdentifier,
		"status":      cbdf.ReservationStatusActive,
	})
	if err != nil {
		return []EntityError{{Entity: "reservation", Identifier: "*", Err: err}}
	}

	var entityErrors []EntityError

	for cursor.Next(ctx) {
		var reservation cbdf.Reservation
		if err := cursor.Decode(&reservation); err != nil {
			log.Error().Err(err).Msg("Failed to decode reservation")
			continue
		}

		if _, err := lifecycle.Transition(ctx, &reservation, lifecycle.EventExpire); err != nil {
			entityErrors = append(entityErrors, EntityError{Entity: "reservation", Identifier: reservation.PrimaryIdentifier, Err: err})
		}
	}

	return entityErrors
}

func collectErrors(results []*EntityError) []EntityError {
	var entityErrors []EntityError

	for _, result := range results {
		if result != nil {
			entityErrors = append(entityErrors, *result)
		}
	}

	return entityErrors
}
