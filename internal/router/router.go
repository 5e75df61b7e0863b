package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/markwise/markwise-api/internal/config"
	"github.com/markwise/markwise-api/internal/handler"
	"github.com/markwise/markwise-api/internal/middleware"
	"github.com/markwise/markwise-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	EvaluationHandler   *handler.EvaluationHandler
	GenerationHandler   *handler.GenerationHandler
	ConfiguredProviders []string
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.ConfiguredProviders))

	if deps.EvaluationHandler != nil {
		evaluate := api.Group("/evaluate", middleware.RateLimit("evaluate", cfg.EvaluateRateLimit, cfg.RateLimitWindow))
		deps.EvaluationHandler.Register(evaluate)
	}

	if deps.GenerationHandler != nil {
		generate := api.Group("/generate", middleware.RateLimit("generate", cfg.GenerateRateLimit, cfg.RateLimitWindow))
		deps.GenerationHandler.Register(generate)
	}
}
