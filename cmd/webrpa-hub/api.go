// Package main provides the Web RPA hub API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/webrpa/hub/pkg/eventbus"
	"github.com/webrpa/hub/pkg/persistence"
	"github.com/webrpa/hub/pkg/services"
	"github.com/webrpa/hub/pkg/stats"
	"github.com/webrpa/hub/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	trending    *stats.Refresher
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	trending *stats.Refresher,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		trending:    trending,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	workflowService := services.NewWorkflow(a.persistence, a.eventBus, a.logger)

	handlers := web.NewAPIHandlers(workflowService, a.trending, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Web RPA Hub")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.ShareWorkflow)
	w.Post("/validate", handlers.ValidateWorkflow)
	w.Get("/trending", handlers.GetTrending)
	w.Get("/:fingerprint", handlers.GetWorkflow)
	w.Get("/:fingerprint/download", handlers.DownloadWorkflow)
	w.Delete("/:fingerprint", handlers.DeleteWorkflow)

	app.Get("/catalog", handlers.GetCatalog)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
