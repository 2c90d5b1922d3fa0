package api

import (
	"github.com/rs/zerolog/log"
	"github.com/tripline/tripline/pkg/booking"
	"github.com/tripline/tripline/pkg/notify"
	"github.com/tripline/tripline/pkg/redis_client"
	"github.com/tripline/tripline/pkg/timetable"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the core web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					stationCache := &timetable.StationCache{}
					stationCache.Setup()

					var notifier booking.Notifier
					publisher, err := notify.NewQueuePublisher()
					if err != nil {
						log.Error().Err(err).Msg("Notifications disabled")
					} else {
						notifier = publisher
					}

					engine := booking.NewEngine(&timetable.Builder{StationCache: stationCache}, notifier)

					return SetupServer(c.String("listen"), engine)
				},
			},
		},
	}
}
