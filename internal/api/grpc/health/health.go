// Package health implements the gRPC health checking protocol on top of the
// user store.
package health

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/dtroode/breathesense-server/internal/logger"
)

// ServiceName is the name probes use for the account API.
const ServiceName = "breathesense.Account"

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health answers health probes. The overall server ("") and ServiceName
// are SERVING while the store responds.
type Health struct {
	healthpb.UnimplementedHealthServer
	store   Pinger
	timeout time.Duration
	logger  *logger.Logger
}

var _ healthpb.HealthServer = (*Health)(nil)

// New creates a new Health server.
func New(store Pinger, logger *logger.Logger) *Health {
	return &Health{store: store, timeout: 2 * time.Second, logger: logger}
}

// Check reports the serving status of req.Service.
func (h *Health) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	switch req.GetService() {
	case "", ServiceName:
	default:
		return nil, status.Errorf(codes.NotFound, "unknown service %q", req.GetService())
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("Health server: store unreachable",
			"service", req.GetService(),
			"error", err.Error())
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}

	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
