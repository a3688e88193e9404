package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/leads-discovery/internal/config"
	"github.com/octobees/leads-discovery/internal/handler"
	middlewarepkg "github.com/octobees/leads-discovery/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Discovery *handler.DiscoveryHandler
	Companies *handler.CompaniesHandler
	Health    echo.HandlerFunc
	// Metrics serves the Prometheus exposition format; nil disables /metrics.
	Metrics http.Handler
}

// Register wires all HTTP routes for the API.
func Register(e *echo.Echo, cfg *config.Config, handlers Handlers) {
	health := handlers.Health
	if health == nil {
		health = handler.Health(nil)
	}
	e.GET("/healthz", health)

	if handlers.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(handlers.Metrics))
	}

	e.POST("/discover", handlers.Discovery.Stream, middlewarepkg.DiscoverRateLimiter(cfg.RateLimitDiscover))

	e.GET("/companies", handlers.Companies.List)
	e.GET("/companies/:id/contacts", handlers.Companies.Contacts)
}
