package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tripline/tripline/pkg/api"
	"github.com/tripline/tripline/pkg/database"
	"github.com/tripline/tripline/pkg/notify"
	"github.com/tripline/tripline/pkg/sweeper"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	if os.Getenv("TRIPLINE_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("TRIPLINE_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	if err := database.Connect(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	app := &cli.App{
		Name:        "tripline",
		Description: "Single binary of truth for Tripline - runs all the services",

		Commands: []*cli.Command{
			api.RegisterCLI(),
			sweeper.RegisterCLI(),
			notify.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
