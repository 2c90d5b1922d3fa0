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

func RoutesRouter(router fiber.Router) {
	router.Get("/", listRoutes)
	router.Get("/:identifier", getRoute)
	router.Post("/", createRoute)
}

func listRoutes(c *fiber.Ctx) error {
	query := bson.M{}

	if stationRef := c.Query("station"); stationRef != "" {
		query["stationrefs"] = stationRef
	}

	routes := []cbdf.Route{}

	routesCollection := database.GetCollection("routes")
	cursor, _ := routesCollection.Find(context.Background(), query)

	for cursor.Next(context.TODO()) {
		var route *cbdf.Route
		err := cursor.Decode(&route)
		if err != nil {
			log.Error().Err(err).Msg("Failed to decode Route")
			continue
		}

		routes = append(routes, *route)
	}

	return c.JSON(routes)
}

func getRoute(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	routesCollection := database.GetCollection("routes")
	var route *cbdf.Route
	routesCollection.FindOne(context.Background(), bson.M{"primaryidentifier": identifier}).Decode(&route)

	if route == nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Route matching Route Identifier",
		})
	}

	return c.JSON(route)
}

func createRoute(c *fiber.Ctx) error {
	var requestBody struct {
		Name          string
		StationRefs   []string
		International bool
	}
	c.BodyParser(&requestBody)

	if requestBody.Name == "" {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Route requires a name",
		})
	}
	if len(requestBody.StationRefs) < 2 {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Route requires at least 2 stations",
		})
	}

	// Reject unknown stations up front so trips built from this route
	// never fail the station lookup
	stationsCollection := database.GetCollection("stations")
	for _, stationRef := range requestBody.StationRefs {
		count, _ := stationsCollection.CountDocuments(context.Background(), bson.M{"primaryidentifier": stationRef})

		if count == 0 {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": fmt.Sprintf("Unknown station %s", stationRef),
			})
		}
	}

	now := time.Now()
	route := cbdf.Route{
		PrimaryIdentifier:    fmt.Sprintf("tripline:route:%s", uuid.New().String()),
		CreationDateTime:     now,
		ModificationDateTime: now,

		Name:          requestBody.Name,
		StationRefs:   requestBody.StationRefs,
		International: requestBody.International,
	}

	routesCollection := database.GetCollection("routes")
	_, err := routesCollection.InsertOne(context.Background(), route)

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(route)
}
