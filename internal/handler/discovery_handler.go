package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/octobees/leads-discovery/internal/discovery"
	"github.com/octobees/leads-discovery/internal/dto"
	"github.com/octobees/leads-discovery/internal/logging"
)

// Discoverer starts a discovery and streams its events until the channel closes.
type Discoverer interface {
	StartDiscovery(ctx context.Context, req discovery.Request) <-chan discovery.Event
}

// DiscoveryHandler streams discovery events as newline delimited JSON.
type DiscoveryHandler struct {
	discoverer Discoverer
	logger     *zap.Logger
}

// NewDiscoveryHandler creates a new handler instance.
func NewDiscoveryHandler(discoverer Discoverer, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{discoverer: discoverer, logger: logging.OrNop(logger).Named("discover")}
}

// Stream handles POST /discover. Validation failures answer with the JSON
// envelope; once the stream starts every outcome is reported as an event.
func (h *DiscoveryHandler) Stream(c echo.Context) error {
	var req dto.DiscoverRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Normalize(); err != nil {
		return Error(c, http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	events := h.discoverer.StartDiscovery(ctx, discovery.Request{
		Query:       req.Query,
		TargetCount: req.TargetCount,
		Origin:      c.RealIP(),
	})

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(res)
	writable := true
	for ev := range events {
		if !writable {
			continue
		}
		if err := enc.Encode(ev); err != nil {
			// The client is gone; keep draining until the run observes the cancelled context.
			h.logger.Debug("stop writing discovery stream", zap.Error(err))
			writable = false
			continue
		}
		res.Flush()
	}
	return nil
}
