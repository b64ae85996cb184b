package router

import (
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/dtroode/breathesense-server/internal/api/grpc/health"
	"github.com/dtroode/breathesense-server/internal/api/grpc/middleware"
	"github.com/dtroode/breathesense-server/internal/logger"
)

// Router represents the gRPC router of the operations endpoint.
// It serves the health checking protocol and server reflection.
type Router struct {
	store  health.Pinger
	logger *logger.Logger
}

// New creates new gRPC Router instance.
func New(store health.Pinger, logger *logger.Logger) *Router {
	return &Router{store: store, logger: logger}
}

// Register registers all gRPC services and middleware.
//
// Returns the configured gRPC server instance.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	recoveryOpt := recovery.WithRecoveryHandlerContext(logging.RecoveryHandler)

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			recovery.UnaryServerInterceptor(recoveryOpt),
		),
		grpc.ChainStreamInterceptor(
			recovery.StreamServerInterceptor(recoveryOpt),
		),
	)

	healthpb.RegisterHealthServer(s, health.New(r.store, r.logger))
	reflection.Register(s)

	return s
}
