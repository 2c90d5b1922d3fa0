package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "sweeper",
		Usage: "Applies time-driven status transitions",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the status sweeper",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "interval",
						Value: 1 * time.Minute,
						Usage: "time between sweeps",
					},
					&cli.BoolFlag{
						Name:  "once",
						Usage: "run a single sweep and exit",
					},
				},
				Action: func(c *cli.Context) error {
					sweep()

					if c.Bool("once") {
						return nil
					}

					for range time.Tick(c.Duration("interval")) {
						sweep()
					}

					return nil
				},
			},
		},
	}
}

func sweep() {
	startTime := time.Now()

	entityErrors := RunSweep(context.Background(), startTime)

	for _, entityError := range entityErrors {
		log.Error().
			Str("entity", entityError.Entity).
			Str("identifier", entityError.Identifier).
			Err(entityError.Err).
			Msg("Sweep entity failed")
	}

	log.Debug().
		Int("failures", len(entityErrors)).
		Str("duration", time.Since(startTime).String()).
		Msg("Sweep complete")
}
