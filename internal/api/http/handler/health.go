package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dtroode/breathesense-server/internal/api/http/response"
	"github.com/dtroode/breathesense-server/internal/logger"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// Health reports store reachability.
type Health struct {
	store   Pinger
	timeout time.Duration
	logger  *logger.Logger
}

// NewHealth creates a new Health handler.
func NewHealth(store Pinger, logger *logger.Logger) *Health {
	return &Health{store: store, timeout: 2 * time.Second, logger: logger}
}

// Check answers 200 when the store responds and 503 otherwise.
func (h *Health) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("Health handler: store unreachable", "error", err.Error())
		response.JSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}

	response.JSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
