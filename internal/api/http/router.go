package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/ticket-routing/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Compliance *handlers.ComplianceHandler
	Registry   *prometheus.Registry
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	v1 := app.Group("/v1")
	v1.Post("/tickets", cfg.Compliance.SubmitTicket)
	v1.Post("/tickets/:id/rules", cfg.Compliance.ApplyRules)
	v1.Get("/tickets/:id/sla", cfg.Compliance.GetSLAStatus)
	v1.Get("/sla/statistics", cfg.Compliance.GetSLAStatistics)
	v1.Post("/sla/breach-time", cfg.Compliance.CalculateBreachTime)
	v1.Post("/spam/check", cfg.Compliance.CheckSpam)
	v1.Post("/escalations/sweep", cfg.Compliance.RunEscalationSweep)
}
