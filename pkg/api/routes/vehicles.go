package routes

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tripline/tripline/pkg/cbdf"
	"github.com/tripline/tripline/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
)

func VehiclesRouter(router fiber.Router) {
	router.Get("/", listVehicles)
	router.Get("/:identifier", getVehicle)
	router.Post("/", createVehicle)
}

func listVehicles(c *fiber.Ctx) error {
	query := bson.M{}

	if kind := c.Query("kind"); kind != "" {
		query["kind"] = kind
	}
	if status := c.Query("status"); status != "" {
		query["status"] = status
	}

	vehicles := []cbdf.Vehicle{}

	vehiclesCollection := database.GetCollection("vehicles")
	cursor, _ := vehiclesCollection.Find(context.Background(), query)

	for cursor.Next(context.TODO()) {
		var vehicle *cbdf.Vehicle
		err := cursor.Decode(&vehicle)
		if err != nil {
			log.Error().Err(err).Msg("Failed to decode Vehicle")
			continue
		}

		vehicles = append(vehicles, *vehicle)
	}

	return c.JSON(vehicles)
}

func getVehicle(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	vehiclesCollection := database.GetCollection("vehicles")
	var vehicle *cbdf.Vehicle
	vehiclesCollection.FindOne(context.Background(), bson.M{"primaryidentifier": identifier}).Decode(&vehicle)

	if vehicle == nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Vehicle matching Vehicle Identifier",
		})
	}

	return c.JSON(vehicle)
}

func createVehicle(c *fiber.Ctx) error {
	var requestBody struct {
		Kind     string
		Name     string
		Capacity int
		SpeedKmh float64
	}
	c.BodyParser(&requestBody)

	if requestBody.Name == "" {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Vehicle requires a name",
		})
	}

	kind := cbdf.VehicleKind(requestBody.Kind)
	switch kind {
	case cbdf.VehicleKindTrain, cbdf.VehicleKindCar, cbdf.VehicleKindPlane:
	default:
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": fmt.Sprintf("Unknown vehicle kind %s", requestBody.Kind),
		})
	}

	if kind == cbdf.VehicleKindTrain && requestBody.SpeedKmh <= 0 {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Trains require a positive speed",
		})
	}

	now := time.Now()
	vehicle := cbdf.Vehicle{
		PrimaryIdentifier:    fmt.Sprintf("tripline:vehicle:%s", uuid.New().String()),
		CreationDateTime:     now,
		ModificationDateTime: now,

		Kind:     kind,
		Name:     requestBody.Name,
		Capacity: requestBody.Capacity,
		SpeedKmh: requestBody.SpeedKmh,

		Status: cbdf.VehicleStatusAvailable,
	}

	vehiclesCollection := database.GetCollection("vehicles")
	_, err := vehiclesCollection.InsertOne(context.Background(), vehicle)

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(vehicle)
}
