package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	skeincmd "github.com/dmelo/skein/pkg/cmd"
	"github.com/dmelo/skein/pkg/config"
	"github.com/dmelo/skein/pkg/log"
)

const defaultPort = 9080

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "skein-api",
		Usage:                 "Submit and inspect content-analysis runs",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Storage URL for the run audit trail (file path or redis://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "agent-url",
				Usage:   "Endpoint of the text-generation agent service",
				Sources: cli.EnvVars("AGENT_URL"),
			},
			&cli.StringFlag{
				Name:    "agent-api-key",
				Usage:   "API key sent to the agent service",
				Sources: cli.EnvVars("AGENT_API_KEY"),
			},
			&cli.BoolFlag{
				Name:    "dispatch-only",
				Usage:   "Only persist and publish requests; workers execute them",
				Sources: cli.EnvVars("DISPATCH_ONLY"),
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the capabilities/watches YAML configuration",
				Sources: cli.EnvVars("SKEIN_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Skein API")

			registry := skeincmd.NewRegistry(ctx, logger)
			store := skeincmd.NewPersistence(command.String("database-url"))

			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := skeincmd.NewEventBus(command.String("event-bus"), "skein-api", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			var configFile *config.File

			if path := command.String("config"); path != "" {
				var err error

				configFile, err = config.Load(path)
				if err != nil {
					return err
				}
			}

			api := NewAPI(logger, store, registry, eventBus, APIConfig{
				AgentURL:     command.String("agent-url"),
				AgentAPIKey:  command.String("agent-api-key"),
				DispatchOnly: command.Bool("dispatch-only"),
				File:         configFile,
			})

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
