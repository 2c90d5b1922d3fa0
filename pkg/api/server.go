package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tripline/tripline/pkg/api/routes"
	"github.com/tripline/tripline/pkg/booking"
)

func SetupServer(listen string, engine *booking.Engine) error {
	webApp := fiber.New()
	webApp.Use(NewLogger())

	group := webApp.Group("/core")

	group.Get("version", routes.APIVersion)

	routes.StationsRouter(group.Group("/stations"))
	routes.RoutesRouter(group.Group("/routes"))
	routes.VehiclesRouter(group.Group("/vehicles"))

	routes.TripsRouter(group.Group("/trips"), engine)
	routes.ReservationsRouter(group.Group("/reservations"), engine)

	routes.AccountRouter(group.Group("/account"))

	return webApp.Listen(listen)
}
