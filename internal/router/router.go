package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/abm312/expert-suitability-engine/internal/handler"
	"github.com/abm312/expert-suitability-engine/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Health    *handler.HealthHandler
	Search    *handler.SearchHandler
	Discover  *handler.DiscoverHandler
	Creator   *handler.CreatorHandler
	Catalogue *handler.CatalogueHandler
	Gatherer  prometheus.Gatherer
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, corsOrigins string) {
	// Order matters: recover wraps everything, metrics see the final status.
	app.Use(recoverer.New())
	app.Use(handler.MetricsMiddleware())
	app.Use(middleware.NewRequestLogger())
	app.Use(middleware.NewCORS(corsOrigins))

	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	if h.Gatherer != nil {
		app.Get("/metrics", handler.MetricsHandler(h.Gatherer))
	}

	read := middleware.NewReadRateLimiter().Handler()
	api := app.Group("/api")

	api.Get("/progress", h.Search.Progress)
	api.Post("/search", middleware.NewSearchRateLimiter().Handler(), h.Search.Search)
	api.Post("/discover", middleware.NewDiscoverRateLimiter().Handler(), h.Discover.Discover)

	api.Get("/creators", read, h.Creator.List)
	api.Get("/creators/:id", read, h.Creator.Detail)
	api.Post("/creators/:id/refresh", middleware.NewRefreshRateLimiter().Handler(), h.Creator.Refresh)

	api.Get("/metrics", read, h.Catalogue.Metrics)
	api.Get("/filters", read, h.Catalogue.Filters)
}
