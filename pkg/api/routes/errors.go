package routes

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tripline/tripline/pkg/cbdf"
)

// handleBookingError translates the booking error types into HTTP statuses.
// Anything unrecognised is treated as an internal failure.
func handleBookingError(c *fiber.Ctx, err error) error {
	var validationError *cbdf.ValidationError
	var notFoundError *cbdf.NotFoundError
	var conflictError *cbdf.ConflictError
	var stateError *cbdf.StateError

	switch {
	case errors.As(err, &validationError):
		c.SendStatus(fiber.StatusBadRequest)
	case errors.As(err, &notFoundError):
		c.SendStatus(fiber.StatusNotFound)
	case errors.As(err, &conflictError):
		c.SendStatus(fiber.StatusConflict)
	case errors.As(err, &stateError):
		c.SendStatus(fiber.StatusConflict)
	default:
		c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.JSON(fiber.Map{
		"error": err.Error(),
	})
}
