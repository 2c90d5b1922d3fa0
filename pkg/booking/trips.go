package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tripline/tripline/pkg/cbdf"
	"github.com/tripline/tripline/pkg/conflict"
	"github.com/tripline/tripline/pkg/database"
	"github.com/tripline/tripline/pkg/geo"
	"github.com/tripline/tripline/pkg/ledger"
	"github.com/tripline/tripline/pkg/lifecycle"
	"github.com/tripline/tripline/pkg/timetable"
	"go.mongodb.org/mongo-driver/bson"
)

type CreateTripInput struct {
	RouteRef            string
	VehicleRef          string
	DepartureTime       time.Time
	Price               float64
	StopDurationMinutes int
}

type UpdateTripInput struct {
	VehicleRef          *string
	DepartureTime       *time.Time
	Price               *float64
	StopDurationMinutes *int
}

// CreateTrip builds the timetable for the route, checks the vehicle is
// free over the resulting window, books the vehicle and commits the trip.
// Validation and the conflict check happen before any mutation.
func (e *Engine) CreateTrip(ctx context.Context, input CreateTripInput) (*cbdf.Trip, error) {
	if input.DepartureTime.IsZero() {
		return nil, cbdf.NewValidationError("departure time is required")
	}
	if input.StopDurationMinutes < 0 {
		return nil, cbdf.NewValidationError("stop duration cannot be negative")
	}
	if input.Price < 0 {
		return nil, cbdf.NewValidationError("price cannot be negative")
	}

	route, err := loadRoute(ctx, input.RouteRef)
	if err != nil {
		return nil, err
	}

	vehicle, err := loadVehicle(ctx, input.VehicleRef)
	if err != nil {
		return nil, err
	}

	if vehicle.Kind != cbdf.VehicleKindTrain {
		return nil, cbdf.NewValidationError("trips can only be assigned a train")
	}
	if vehicle.SpeedKmh <= 0 {
		return nil, cbdf.NewValidationError("vehicle speed must be positive")
	}
	if !vehicle.IsBookable() {
		return nil, cbdf.NewStateError(string(vehicle.Status), "assign to trip")
	}

	rows, err := e.Timetable.BuildForRoute(route, vehicle.SpeedKmh, input.StopDurationMinutes)
	if err != nil {
		return nil, err
	}

	estimatedMinutes := timetable.EstimatedMinutes(rows)
	arrivalTime := input.DepartureTime.Add(time.Duration(estimatedMinutes) * time.Minute)
	window := cbdf.Window{Start: input.DepartureTime, End: arrivalTime}

	// The scan and the insert run under the vehicle's window lock so two
	// racing trips cannot both see a clear window
	lock, err := ledger.LockVehicleWindow(ctx, vehicle.PrimaryIdentifier)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock(ctx)

	hold, err := conflict.TripConflict(ctx, vehicle.PrimaryIdentifier, window, "")
	if err != nil {
		return nil, err
	}
	if hold != nil {
		return nil, cbdf.NewConflictError(vehicle.PrimaryIdentifier,
			fmt.Sprintf("time window conflicts with trip %s", hold.Identifier))
	}

	if err := ledger.AcquireVehicle(ctx, vehicle.PrimaryIdentifier, arrivalTime); err != nil {
		return nil, err
	}

	now := time.Now()
	trip := &cbdf.Trip{
		PrimaryIdentifier:    newIdentifier("trip"),
		CreationDateTime:     now,
		ModificationDateTime: now,

		RouteRef:        route.PrimaryIdentifier,
		VehicleRef:      vehicle.PrimaryIdentifier,
		VehicleCapacity: vehicle.Capacity,

		DepartureTime:       input.DepartureTime,
		ArrivalTime:         arrivalTime,
		EstimatedMinutes:    estimatedMinutes,
		EstimatedDisplay:    geo.FormatMinutes(estimatedMinutes),
		StopDurationMinutes: input.StopDurationMinutes,

		Stations: rows,

		AvailableSeats: vehicle.Capacity,
		Price:          input.Price,

		Status: cbdf.TripStatusPreparing,
	}

	tripsCollection := database.GetCollection("trips")
	_, err = tripsCollection.InsertOne(ctx, trip)
	if err != nil {
		// Compensate the vehicle hold so a failed insert leaves no
		// partial state behind
		if releaseErr := ledger.ReleaseVehicle(ctx, vehicle.PrimaryIdentifier, time.Now()); releaseErr != nil {
			log.Error().Err(releaseErr).Str("vehicle", vehicle.PrimaryIdentifier).Msg("Failed to release vehicle after trip insert failure")
		}

		return nil, err
	}

	return trip, nil
}

// UpdateTrip recomputes the full timetable from the trip's route whenever
// the vehicle, departure time or stop duration changes - timetables are
// never patched incrementally.
func (e *Engine) UpdateTrip(ctx context.Context, tripIdentifier string, input UpdateTripInput) (*cbdf.Trip, error) {
	trip, err := loadTrip(ctx, tripIdentifier)
	if err != nil {
		return nil, err
	}

	if trip.Status.IsTerminal() {
		return nil, cbdf.NewStateError(string(trip.Status), "update trip")
	}

	updates := bson.M{"modificationdatetime": time.Now()}

	if input.Price != nil {
		if *input.Price < 0 {
			return nil, cbdf.NewValidationError("price cannot be negative")
		}

		trip.Price = *input.Price
		updates["price"] = trip.Price
	}

	if rebuildRequired(input) {
		targetVehicleRef := trip.VehicleRef
		if input.VehicleRef != nil {
			targetVehicleRef = *input.VehicleRef
		}

		// The rebuilt window's scan and persist run under the target
		// vehicle's window lock, same as trip creation
		lock, err := ledger.LockVehicleWindow(ctx, targetVehicleRef)
		if err != nil {
			return nil, err
		}
		defer lock.Unlock(ctx)

		if err := e.rebuildTimetable(ctx, trip, input, updates); err != nil {
			return nil, err
		}
	}

	tripsCollection := database.GetCollection("trips")
	_, err = tripsCollection.UpdateOne(ctx, bson.M{"primaryidentifier": trip.PrimaryIdentifier}, bson.M{"$set": updates})
	if err != nil {
		return nil, err
	}

	if rebuildRequired(input) {
		// Bookings on the trip follow its timetable - a rescheduled trip
		// must not strand its active reservations at the old window, or
		// the sweeper would expire them at the stale end time
		if err := syncReservationWindows(ctx, trip.PrimaryIdentifier, trip.Window()); err != nil {
			log.Error().Err(err).Str("trip", trip.PrimaryIdentifier).Msg("Failed to move reservation windows with the trip")
		}
	}

	return trip, nil
}

// rebuildRequired reports whether a trip update touches anything the
// timetable is derived from. Price changes never rebuild.
func rebuildRequired(input UpdateTripInput) bool {
	return input.VehicleRef != nil || input.DepartureTime != nil || input.StopDurationMinutes != nil
}

// syncReservationWindows moves every active reservation on the trip to the
// trip's current window.
func syncReservationWindows(ctx context.Context, tripIdentifier string, window cbdf.Window) error {
	reservationsCollection := database.GetCollection("reservations")

	_, err := reservationsCollection.UpdateMany(ctx, bson.M{
		"resourceref": tripIdentifier,
		"status":      cbdf.ReservationStatusActive,
	}, bson.M{
		"$set": bson.M{
			"window":               window,
			"modificationdatetime": time.Now(),
		},
	})

	return err
}

func (e *Engine) rebuildTimetable(ctx context.Context, trip *cbdf.Trip, input UpdateTripInput, updates bson.M) error {
	previousVehicleRef := trip.VehicleRef

	vehicleRef := trip.VehicleRef
	if input.VehicleRef != nil {
		vehicleRef = *input.VehicleRef
	}

	departureTime := trip.DepartureTime
	if input.DepartureTime != nil {
		departureTime = *input.DepartureTime
	}

	stopDuration := trip.StopDurationMinutes
	if input.StopDurationMinutes != nil {
		if *input.StopDurationMinutes < 0 {
			return cbdf.NewValidationError("stop duration cannot be negative")
		}
		stopDuration = *input.StopDurationMinutes
	}

	vehicle, err := loadVehicle(ctx, vehicleRef)
	if err != nil {
		return err
	}

	if vehicle.Kind != cbdf.VehicleKindTrain {
		return cbdf.NewValidationError("trips can only be assigned a train")
	}
	if vehicle.SpeedKmh <= 0 {
		return cbdf.NewValidationError("vehicle speed must be positive")
	}

	route, err := loadRoute(ctx, trip.RouteRef)
	if err != nil {
		return err
	}

	rows, err := e.Timetable.BuildForRoute(route, vehicle.SpeedKmh, stopDuration)
	if err != nil {
		return err
	}

	estimatedMinutes := timetable.EstimatedMinutes(rows)
	arrivalTime := departureTime.Add(time.Duration(estimatedMinutes) * time.Minute)
	window := cbdf.Window{Start: departureTime, End: arrivalTime}

	hold, err := conflict.TripConflict(ctx, vehicle.PrimaryIdentifier, window, trip.PrimaryIdentifier)
	if err != nil {
		return err
	}
	if hold != nil {
		return cbdf.NewConflictError(vehicle.PrimaryIdentifier,
			fmt.Sprintf("time window conflicts with trip %s", hold.Identifier))
	}

	if vehicle.PrimaryIdentifier != previousVehicleRef {
		seatsRemaining, fits := remainingSeatsAfterSwap(trip.VehicleCapacity, trip.AvailableSeats, vehicle.Capacity)
		if !fits {
			return cbdf.NewConflictError(vehicle.PrimaryIdentifier, "vehicle is too small for the seats already reserved")
		}

		trip.VehicleCapacity = vehicle.Capacity
		trip.AvailableSeats = seatsRemaining
		updates["vehiclecapacity"] = trip.VehicleCapacity
		updates["availableseats"] = trip.AvailableSeats
	}

	if err := ledger.AcquireVehicle(ctx, vehicle.PrimaryIdentifier, arrivalTime); err != nil {
		return err
	}

	if vehicle.PrimaryIdentifier != previousVehicleRef {
		if err := ledger.ReleaseVehicle(ctx, previousVehicleRef, time.Now()); err != nil {
			log.Error().Err(err).Str("vehicle", previousVehicleRef).Msg("Failed to release previous vehicle")
		}
	}

	trip.VehicleRef = vehicle.PrimaryIdentifier
	trip.DepartureTime = departureTime
	trip.ArrivalTime = arrivalTime
	trip.EstimatedMinutes = estimatedMinutes
	trip.EstimatedDisplay = geo.FormatMinutes(estimatedMinutes)
	trip.StopDurationMinutes = stopDuration
	trip.Stations = rows

	updates["vehicleref"] = trip.VehicleRef
	updates["departuretime"] = trip.DepartureTime
	updates["arrivaltime"] = trip.ArrivalTime
	updates["estimatedminutes"] = trip.EstimatedMinutes
	updates["estimateddisplay"] = trip.EstimatedDisplay
	updates["stopdurationminutes"] = trip.StopDurationMinutes
	updates["stations"] = trip.Stations

	return nil
}

// remainingSeatsAfterSwap carries the seats already sold over to the new
// vehicle. A swap that cannot seat the existing holders is rejected.
func remainingSeatsAfterSwap(oldCapacity int, oldAvailable int, newCapacity int) (int, bool) {
	sold := oldCapacity - oldAvailable

	if sold > newCapacity {
		return 0, false
	}

	return newCapacity - sold, true
}

// PrepareTrip marks a trip ready for departure. Readiness is an operator
// action - time-driven transitions stay with the sweeper.
func (e *Engine) PrepareTrip(ctx context.Context, tripIdentifier string) error {
	trip, err := loadTrip(ctx, tripIdentifier)
	if err != nil {
		return err
	}

	if !trip.Status.CanTransitionTo(cbdf.TripStatusPrepared) {
		return cbdf.NewStateError(string(trip.Status), string(cbdf.TripStatusPrepared))
	}

	tripsCollection := database.GetCollection("trips")
	result, err := tripsCollection.UpdateOne(ctx, bson.M{
		"primaryidentifier": trip.PrimaryIdentifier,
		"status":            cbdf.TripStatusPreparing,
	}, bson.M{
		"$set": bson.M{
			"status":               cbdf.TripStatusPrepared,
			"modificationdatetime": time.Now(),
		},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return cbdf.NewStateError(string(trip.Status), string(cbdf.TripStatusPrepared))
	}

	return nil
}

// CancelTrip cancels the trip, cascades cancellation to every active
// reservation on it and frees the vehicle if nothing else claims it.
func (e *Engine) CancelTrip(ctx context.Context, tripIdentifier string) error {
	trip, err := loadTrip(ctx, tripIdentifier)
	if err != nil {
		return err
	}

	if !trip.Status.CanTransitionTo(cbdf.TripStatusCancelled) {
		return cbdf.NewStateError(string(trip.Status), string(cbdf.TripStatusCancelled))
	}

	tripsCollection := database.GetCollection("trips")
	result, err := tripsCollection.UpdateOne(ctx, bson.M{
		"primaryidentifier": trip.PrimaryIdentifier,
		"status":            trip.Status,
	}, bson.M{
		"$set": bson.M{
			"status":               cbdf.TripStatusCancelled,
			"modificationdatetime": time.Now(),
		},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return cbdf.NewStateError(string(trip.Status), string(cbdf.TripStatusCancelled))
	}

	e.cascadeReservations(ctx, trip.PrimaryIdentifier, lifecycle.EventCancel, "Trip cancelled",
		fmt.Sprintf("Your booking on trip %s has been cancelled", trip.PrimaryIdentifier))

	if err := ledger.ReleaseVehicle(ctx, trip.VehicleRef, time.Now()); err != nil {
		log.Error().Err(err).Str("vehicle", trip.VehicleRef).Msg("Failed to release vehicle after trip cancellation")
	}

	return nil
}

func (e *Engine) cascadeReservations(ctx context.Context, tripIdentifier string, event lifecycle.Event, title string, message string) {
	reservationsCollection := database.GetCollection("reservations")

	cursor, err := reservationsCollection.Find(ctx, bson.M{
		"resourceref": tripIdentifier,
		"status":      cbdf.ReservationStatusActive,
	})
	if err != nil {
		log.Error().Err(err).Str("trip", tripIdentifier).Msg("Failed to load reservations for cascade")
		return
	}

	for cursor.Next(ctx) {
		var reservation cbdf.Reservation
		if err := cursor.Decode(&reservation); err != nil {
			log.Error().Err(err).Msg("Failed to decode reservation")
			continue
		}

		if _, err := lifecycle.Transition(ctx, &reservation, event); err != nil {
			log.Error().Err(err).Str("reservation", reservation.PrimaryIdentifier).Msg("Failed to cascade reservation transition")
			continue
		}

		e.notify(reservation.UserRef, title, message, "booking")
	}
}

func loadRoute(ctx context.Context, identifier string) (*cbdf.Route, error) {
	var route *cbdf.Route
	routesCollection := database.GetCollection("routes")
	routesCollection.FindOne(ctx, bson.M{"primaryidentifier": identifier}).Decode(&route)

	if route == nil {
		return nil, cbdf.NewNotFoundError("Route", identifier)
	}

	return route, nil
}

func loadVehicle(ctx context.Context, identifier string) (*cbdf.Vehicle, error) {
	var vehicle *cbdf.Vehicle
	vehiclesCollection := database.GetCollection("vehicles")
	vehiclesCollection.FindOne(ctx, bson.M{"primaryidentifier": identifier}).Decode(&vehicle)

	if vehicle == nil {
		return nil, cbdf.NewNotFoundError("Vehicle", identifier)
	}

	return vehicle, nil
}

func loadTrip(ctx context.Context, identifier string) (*cbdf.Trip, error) {
	var trip *cbdf.Trip
	tripsCollection := database.GetCollection("trips")
	tripsCollection.FindOne(ctx, bson.M{"primaryidentifier": identifier}).Decode(&trip)

	if trip == nil {
		return nil, cbdf.NewNotFoundError("Trip", identifier)
	}

	return trip, nil
}
