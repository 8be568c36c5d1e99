package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	skeincmd "github.com/dmelo/skein/pkg/cmd"
	"github.com/dmelo/skein/pkg/log"
	"github.com/dmelo/skein/pkg/otelhelper"
)

func main() {
	logger := log.WithModule("worker")

	command := &cli.Command{
		Name:                  "skein-worker",
		Usage:                 "Execute content-analysis runs from the event bus",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Storage URL for the run audit trail (file path or redis://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "kafka",
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
				Name:    "otel",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("OTEL_ENABLED"),
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

			logger.InfoContext(ctx, "Initializing Skein worker")

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			registry := skeincmd.NewRegistry(ctx, logger)
			store := skeincmd.NewPersistence(command.String("database-url"))

			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := skeincmd.NewEventBus(command.String("event-bus"), "skein-worker", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			worker := NewWorker(logger, store, registry, eventBus, WorkerConfig{
				AgentURL:    command.String("agent-url"),
				AgentAPIKey: command.String("agent-api-key"),
			})

			if command.Bool("otel") {
				tracer, err := otelhelper.NewTracer(ctx, "skein-worker")
				if err != nil {
					logger.ErrorContext(ctx, "Failed to initialize tracing", "error", err)
				} else {
					worker.tracer = tracer
				}
			}

			return worker.Run(ctx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
