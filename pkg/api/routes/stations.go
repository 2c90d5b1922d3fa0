package routes

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tripline/tripline/pkg/cbdf"
	"github.com/tripline/tripline/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
)

func StationsRouter(router fiber.Router) {
	router.Get("/", listStations)
	router.Get("/:identifier", getStation)
	router.Post("/", createStation)
}

func listStations(c *fiber.Ctx) error {
	boundsQuery := c.Query("bounds")

	query := bson.M{}

	if boundsQuery != "" {
		boundsQuerySplit := strings.Split(boundsQuery, ",")
		if len(boundsQuerySplit) != 4 {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "Bounds must contain 4 co-ordinates",
			})
		}
		bottomLeftLon, _ := strconv.ParseFloat(boundsQuerySplit[0], 32)
		bottomLeftLat, _ := strconv.ParseFloat(boundsQuerySplit[1], 32)
		topRightLon, _ := strconv.ParseFloat(boundsQuerySplit[2], 32)
		topRightLat, _ := strconv.ParseFloat(boundsQuerySplit[3], 32)

		query["location"] = bson.M{"$geoWithin": bson.M{"$box": bson.A{bson.A{bottomLeftLon, bottomLeftLat}, bson.A{topRightLon, topRightLat}}}}
	}

	if country := c.Query("country"); country != "" {
		query["country"] = country
	}

	stations := []cbdf.Station{}

	stationsCollection := database.GetCollection("stations")
	cursor, _ := stationsCollection.Find(context.Background(), query)

	for cursor.Next(context.TODO()) {
		var station *cbdf.Station
		err := cursor.Decode(&station)
		if err != nil {
			log.Error().Err(err).Msg("Failed to decode Station")
			continue
		}

		stations = append(stations, *station)
	}

	return c.JSON(stations)
}

func getStation(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	stationsCollection := database.GetCollection("stations")
	var station *cbdf.Station
	stationsCollection.FindOne(context.Background(), bson.M{"primaryidentifier": identifier}).Decode(&station)

	if station == nil {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Could not find Station matching Station Identifier",
		})
	}

	return c.JSON(station)
}

func createStation(c *fiber.Ctx) error {
	var requestBody struct {
		Name      string
		City      string
		Country   string
		Code      string
		Longitude float64
		Latitude  float64
	}
	c.BodyParser(&requestBody)

	if requestBody.Name == "" || requestBody.Code == "" {
		c.SendStatus(fiber.StatusBadRequest)
		return c.JSON(fiber.Map{
			"error": "Station requires a name and a code",
		})
	}

	now := time.Now()
	station := cbdf.Station{
		PrimaryIdentifier:    fmt.Sprintf("tripline:station:%s", uuid.New().String()),
		CreationDateTime:     now,
		ModificationDateTime: now,

		Name:    requestBody.Name,
		City:    requestBody.City,
		Country: requestBody.Country,
		Code:    requestBody.Code,

		Location: &cbdf.Location{
			Type:        "Point",
			Coordinates: []float64{requestBody.Longitude, requestBody.Latitude},
		},
	}

	stationsCollection := database.GetCollection("stations")
	_, err := stationsCollection.InsertOne(context.Background(), station)

	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(station)
}
