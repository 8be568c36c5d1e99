// Package web provides HTTP handlers and REST API endpoints for run
// management and resilience introspection.
package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/dmelo/skein/pkg/models"
	"github.com/dmelo/skein/pkg/persistence"
	"github.com/dmelo/skein/pkg/registry"
	"github.com/dmelo/skein/pkg/resilience"
	"github.com/dmelo/skein/pkg/runner"
)

type APIHandlers struct {
	manager   *runner.Manager
	store     persistence.Persistence
	registry  *registry.Registry
	breakers  *resilience.BreakerRegistry
	degraded  *resilience.DegradationRegistry
	validator *validator.Validate
}

func NewAPIHandlers(
	manager *runner.Manager,
	store persistence.Persistence,
	reg *registry.Registry,
	breakers *resilience.BreakerRegistry,
	degraded *resilience.DegradationRegistry,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		manager:   manager,
		store:     store,
		registry:  reg,
		breakers:  breakers,
		degraded:  degraded,
		validator: validate,
	}
}

// RegisterRoutes mounts every API route on the app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	app.Post("/runs", h.SubmitRun)
	app.Get("/runs", h.ListRuns)
	app.Get("/runs/:id", h.GetRun)
	app.Post("/runs/:id/cancel", h.CancelRun)
	app.Get("/capabilities", h.ListCapabilities)
	app.Get("/resilience/breakers", h.BreakerSnapshots)
	app.Get("/resilience/degradations", h.DegradationSnapshots)
	app.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) SubmitRun(c fiber.Ctx) error {
	var req SubmitRunRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	request := models.AnalysisRequest{
		TargetURL:   req.TargetURL,
		Depth:       models.Depth(req.Depth),
		TenantID:    req.TenantID,
		WorkspaceID: req.WorkspaceID,
		Metadata:    req.Metadata,
	}
	if request.Depth == "" {
		request.Depth = models.DepthStandard
	}

	run, err := h.manager.Submit(c.Context(), request)
	if err != nil {
		if models.IsValidationError(err) {
			return badRequest(c, err.Error())
		}

		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(TransformRunResponse(run, false))
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	run, err := h.manager.Status(c.Context(), id)
	if err != nil {
		if errors.Is(err, runner.ErrRunNotFound) {
			return notFound(c, "Run not found")
		}

		return internalError(c, err)
	}

	includeContext := c.Query("include_context") == "true"

	return c.JSON(TransformRunResponse(run, includeContext))
}

func (h *APIHandlers) ListRuns(c fiber.Ctx) error {
	runs, err := h.store.Runs(c.Context(), c.Query("tenant_id"))
	if err != nil {
		return internalError(c, err)
	}

	responses := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		responses = append(responses, TransformRunResponse(run, false))
	}

	return c.JSON(fiber.Map{
		"runs":        responses,
		"total_count": len(responses),
	})
}

func (h *APIHandlers) CancelRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	err := h.manager.Cancel(id)
	if err != nil {
		if errors.Is(err, runner.ErrRunFinished) {
			return conflict(c, "Run is not active")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *APIHandlers) ListCapabilities(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"capabilities": h.registry.Schemas(),
	})
}

func (h *APIHandlers) BreakerSnapshots(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"breakers": h.breakers.Snapshots(),
	})
}

func (h *APIHandlers) DegradationSnapshots(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"degradations": h.degraded.Snapshot(),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.store.HealthCheck(c.Context())

	status := "healthy"
	message := "Skein API is healthy"
	httpStatus := http.StatusOK

	if err != nil {
		status = "unhealthy"
		message = "Skein API is unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}
