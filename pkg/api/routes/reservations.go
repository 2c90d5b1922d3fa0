package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/tripline/tripline/pkg/booking"
	"github.com/tripline/tripline/pkg/cbdf"
	"github.com/tripline/tripline/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ReservationsRouter(router fiber.Router, engine *booking.Engine) {
	router.Get("/", listReservations)
	router.Get("/:identifier", getReservation)

	router.Post("/", func(c *fiber.Ctx) error {
		return createReservation(c, engine)
	})
	router.Patch("/:identifier", func(c *fiber.Ctx) error {
		return updateReservation(c, engine)
	})
	router.Post("/:identifier/cancel", func(c *fiber.Ctx) error {
		return cancelReservation(c, engine)
	})
}

func userID(c *fiber.Ctx) string {
	return c.Get("X-User-Id", "")
}

func listReservations(c *fiber.Ctx) error {
	user := userID(c)

	if user == "" {
		c.SendStatus(fiber.StatusUnauthorized)
		return c.JSON(fiber.Map{
			"error": "No userid set",
		})
	}

	query := bson.M{"userref": user}

	if status := c.Query("status"); status != "" {
		query["status"] = status
	}

	reservations := []cbdf.Reservation{}

	reservationsCollection := database.GetCollection("reservations")
	opts := options.Find().SetSort(bson.M{"window.start": 1})
	cursor, _ := reservationsCollection.Find(context.Background(), query, opts)

	for cursor.Next(context.TODO()) {
		var reservation *cbdf.Reservation
		err := cursor.Decode(&reservation)
		if err != nil {
			log.Error().Err(err).Msg("Failed to decode Reservation")
			continue
		}

		reservations = append(reservations, *reservation)
	}

	return c.JSON(reservations)
}

func getReservation(c *fiber.Ctx) error {
	identifier := c.Params("identifier")
	user := userID(c)

	reservationsCollection := database.GetCollection("reservations")
	var reservation *cbdf.Reservation
	reservationsCollection.FindOne(context.Background(), bson.M{"primaryidentifier": identifier}).Decode(&reservation)

	// Reservations are private to their owner - a wrong owner gets the same
	// response as a missing record
	if reservation == nil || reservation.UserRef != user {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Reservation matching Reservation Identifier",
		})
	}

	return c.JSON(reservation)
}

func createReservation(c *fiber.Ctx, engine *booking.Engine) error {
	user := userID(c)

	if user == "" {
		c.SendStatus(fiber.StatusUnauthorized)
		return c.JSON(fiber.Map{
			"error": "No userid set",
		})
	}

	var requestBody struct {
		Kind        string
		ResourceRef string
		Quantity    int
		WindowStart time.Time
		WindowEnd   time.Time
	}
	c.BodyParser(&requestBody)

	reservation, err := engine.CreateReservation(c.Context(), booking.CreateReservationInput{
		Kind:        cbdf.ReservationKind(requestBody.Kind),
		ResourceRef: requestBody.ResourceRef,
		UserRef:     user,
		Quantity:    requestBody.Quantity,
		Window: cbdf.Window{
			Start: requestBody.WindowStart,
			End:   requestBody.WindowEnd,
		},
	})

	if err != nil {
		return handleBookingError(c, err)
	}

	return c.JSON(reservation)
}

func updateReservation(c *fiber.Ctx, engine *booking.Engine) error {
	identifier := c.Params("identifier")
	user := userID(c)

	if user == "" {
		c.SendStatus(fiber.StatusUnauthorized)
		return c.JSON(fiber.Map{
			"error": "No userid set",
		})
	}

	var requestBody struct {
		Quantity    *int
		WindowStart *time.Time
		WindowEnd   *time.Time
	}
	c.BodyParser(&requestBody)

	var reservation *cbdf.Reservation
	var err error

	switch {
	case requestBody.Quantity != nil:
		reservation, err = engine.UpdateReservationSeats(c.Context(), identifier, user, *requestBody.Quantity)
	case requestBody.WindowStart != nil && requestBody.WindowEnd != nil:
		reservation, err = engine.UpdateReservationWindow(c.Context(), identifier, user, cbdf.Window{
			Start: *requestBody.WindowStart,
			End:   *requestBody.WindowEnd,
		})
	default:
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Request requires either a quantity or a full window",
		})
	}

	if err != nil {
		return handleBookingError(c, err)
	}

	return c.JSON(reservation)
}

func cancelReservation(c *fiber.Ctx, engine *booking.Engine) error {
	identifier := c.Params("identifier")
	user := userID(c)

	if user == "" {
		c.SendStatus(fiber.StatusUnauthorized)
		return c.JSON(fiber.Map{
			"error": "No userid set",
		})
	}

	if err := engine.CancelReservation(c.Context(), identifier, user); err != nil {
		return handleBookingError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}
