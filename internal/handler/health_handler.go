package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health handles GET /healthz. A nil pinger only reports liveness.
func Health(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				return Error(c, http.StatusServiceUnavailable, "database unavailable")
			}
		}
		return Success(c, http.StatusOK, "ok", nil)
	}
}
