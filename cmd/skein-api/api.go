// Package main provides the Skein API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/dmelo/skein/pkg/agent"
	"github.com/dmelo/skein/pkg/config"
	"github.com/dmelo/skein/pkg/eventbus"
	"github.com/dmelo/skein/pkg/persistence"
	"github.com/dmelo/skein/pkg/propagation"
	"github.com/dmelo/skein/pkg/protocol"
	"github.com/dmelo/skein/pkg/registry"
	"github.com/dmelo/skein/pkg/resilience"
	"github.com/dmelo/skein/pkg/runner"
	"github.com/dmelo/skein/pkg/watch"
	"github.com/dmelo/skein/pkg/web"
)

// APIConfig carries the runtime options of the API binary.
type APIConfig struct {
	AgentURL     string
	AgentAPIKey  string
	DispatchOnly bool
	File         *config.File
}

type API struct {
	logger   *slog.Logger
	store    persistence.Persistence
	registry *registry.Registry
	eventBus eventbus.EventBus
	config   APIConfig
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	config APIConfig,
) *API {
	return &API{
		logger:   logger,
		store:    store,
		registry: reg,
		eventBus: eventBus,
		config:   config,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	breakers := resilience.NewBreakerRegistry(resilience.DefaultCircuitBreakerConfig())
	degradations := resilience.NewDegradationRegistry()
	invoker := resilience.NewInvoker(resilience.DefaultInvokerConfig(), breakers, degradations, a.logger)

	var textAgent *agent.HTTPAgent
	if a.config.AgentURL != "" {
		textAgent = agent.NewHTTPAgent(agent.Config{
			Endpoint: a.config.AgentURL,
			APIKey:   a.config.AgentAPIKey,
		}, a.logger)
	}

	var controller *runner.Controller
	if !a.config.DispatchOnly {
		classifier := propagation.NewClassifier(propagation.DefaultPlaceholderConfig())
		propagator := propagation.NewPropagator(classifier, a.logger)
		executor := runner.NewStageExecutor(a.registry, agentOrNil(textAgent), propagator, invoker, a.logger)
		controller = runner.NewController(
			runner.DefaultControllerConfig(),
			executor,
			a.store,
			a.eventBus,
			nil,
			a.logger,
			a.eventBus.GenerateID(),
		)
	}

	manager := runner.NewManager(controller, a.store, a.eventBus, runner.DefaultPolicy(), a.logger)

	a.applyConfig(manager)

	handlers := web.NewAPIHandlers(manager, a.store, a.registry, breakers, degradations, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Skein API")
	})

	handlers.RegisterRoutes(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}

// applyConfig configures declared capabilities and schedules watches from
// the loaded configuration file.
func (a *API) applyConfig(manager *runner.Manager) {
	if a.config.File == nil {
		return
	}

	ctx := context.Background()

	for _, capabilityConfig := range a.config.File.Capabilities {
		err := a.registry.Configure(ctx, capabilityConfig.Factory, capabilityConfig.Config)
		if err != nil {
			a.logger.Error("Failed to configure capability", "factory", capabilityConfig.Factory, "error", err)
		}
	}

	if len(a.config.File.Watches) == 0 {
		return
	}

	watcher := watch.NewWatcher(manager, a.logger)

	for _, watchConfig := range a.config.File.Watches {
		err := watcher.Add(watch.Watch{
			ID:       watchConfig.ID,
			CronExpr: watchConfig.Cron,
			Request:  watchConfig.Request(),
			Enabled:  watchConfig.Enabled,
		})
		if err != nil {
			a.logger.Error("Failed to schedule watch", "watch_id", watchConfig.ID, "error", err)
		}
	}

	watcher.Start()
}

// agentOrNil keeps the executor's Agent interface nil when no agent client
// is configured, so agent stages fail with a clear diagnostic.
func agentOrNil(textAgent *agent.HTTPAgent) protocol.Agent {
	if textAgent == nil {
		return nil
	}

	return textAgent
}
