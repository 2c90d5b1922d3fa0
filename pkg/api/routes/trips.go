package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/rs/zerolog/log"
	"github.com/tripline/tripline/pkg/booking"
	"github.com/tripline/tripline/pkg/cbdf"
	"github.com/tripline/tripline/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TripsRouter(router fiber.Router, engine *booking.Engine) {
	router.Get("/", listTrips)
	router.Get("/:identifier", getTrip)

	router.Post("/", func(c *fiber.Ctx) error {
		return createTrip(c, engine)
	})
	router.Patch("/:identifier", func(c *fiber.Ctx) error {
		return updateTrip(c, engine)
	})
	router.Post("/:identifier/prepare", func(c *fiber.Ctx) error {
		return prepareTrip(c, engine)
	})
	router.Post("/:identifier/cancel", func(c *fiber.Ctx) error {
		return cancelTrip(c, engine)
	})
}

func listTrips(c *fiber.Ctx) error {
	query := bson.M{}

	if status := c.Query("status"); status != "" {
		query["status"] = status
	}
	if routeRef := c.Query("route"); routeRef != "" {
		query["routeref"] = routeRef
	}

	if fromString := c.Query("from"); fromString != "" {
		from, err := time.Parse(time.RFC3339, fromString)

		if err != nil {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "Parameter from should be an RFC3339 datetime",
			})
		}

		query["departuretime"] = bson.M{"$gte": from}
	}

	trips := []cbdf.Trip{}

	tripsCollection := database.GetCollection("trips")
	opts := options.Find().SetSort(bson.M{"departuretime": 1})
	cursor, _ := tripsCollection.Find(context.Background(), query, opts)

	for cursor.Next(context.TODO()) {
		var trip *cbdf.Trip
		err := cursor.Decode(&trip)
		if err != nil {
			log.Error().Err(err).Msg("Failed to decode Trip")
			continue
		}

		trips = append(trips, *trip)
	}

	tripsReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic"},
	}, trips)

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sherrif could not reduce trips",
		})
	}

	return c.JSON(tripsReduced)
}

func getTrip(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	tripsCollection := database.GetCollection("trips")
	var trip *cbdf.Trip
	tripsCollection.FindOne(context.Background(), bson.M{"primaryidentifier": identifier}).Decode(&trip)

	if trip == nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Trip matching Trip Identifier",
		})
	}

	trip.GetReferences()

	tripReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic", "detailed"},
	}, trip)

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sherrif could not reduce trip",
		})
	}

	return c.JSON(tripReduced)
}

func createTrip(c *fiber.Ctx, engine *booking.Engine) error {
	var requestBody struct {
		RouteRef            string
		VehicleRef          string
		DepartureTime       time.Time
		Price               float64
		StopDurationMinutes int
	}
	c.BodyParser(&requestBody)

	trip, err := engine.CreateTrip(c.Context(), booking.CreateTripInput{
		RouteRef:            requestBody.RouteRef,
		VehicleRef:          requestBody.VehicleRef,
		DepartureTime:       requestBody.DepartureTime,
		Price:               requestBody.Price,
		StopDurationMinutes: requestBody.StopDurationMinutes,
	})

	if err != nil {
		return handleBookingError(c, err)
	}

	return c.JSON(trip)
}

func updateTrip(c *fiber.Ctx, engine *booking.Engine) error {
	identifier := c.Params("identifier")

	var requestBody struct {
		VehicleRef          *string
		DepartureTime       *time.Time
		Price               *float64
		StopDurationMinutes *int
	}
	c.BodyParser(&requestBody)

	trip, err := engine.UpdateTrip(c.Context(), identifier, booking.UpdateTripInput{
		VehicleRef:          requestBody.VehicleRef,
		DepartureTime:       requestBody.DepartureTime,
		Price:               requestBody.Price,
		StopDurationMinutes: requestBody.StopDurationMinutes,
	})

	if err != nil {
		return handleBookingError(c, err)
	}

	return c.JSON(trip)
}

func prepareTrip(c *fiber.Ctx, engine *booking.Engine) error {
	identifier := c.Params("identifier")

	if err := engine.PrepareTrip(c.Context(), identifier); err != nil {
		return handleBookingError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}

func cancelTrip(c *fiber.Ctx, engine *booking.Engine) error {
	identifier := c.Params("identifier")

	if err := engine.CancelTrip(c.Context(), identifier); err != nil {
		return handleBookingError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}
