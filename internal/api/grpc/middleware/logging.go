package middleware

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/breathesense-server/internal/logger"
)

// Logging is a unary interceptor that logs gRPC requests and results.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// HandleGRPC logs method name, duration and status for each unary request.
// Health probes are frequent, so successful calls are logged at debug level.
func (l *Logging) HandleGRPC(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()

	resp, err := handler(ctx, req)

	statusCode := codes.OK
	if err != nil {
		if st, ok := status.FromError(err); ok {
			statusCode = st.Code()
		} else {
			statusCode = codes.Internal
		}
	}

	args := []any{
		"method", info.FullMethod,
		"duration_ms", time.Since(start).Milliseconds(),
		"status", statusCode.String(),
	}

	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
		if statusCode == codes.Internal || statusCode == codes.Unknown {
			level = slog.LevelError
		}
		args = append(args, "error", err.Error())
	}

	l.logger.Log(ctx, level, "gRPC request completed", args...)

	return resp, err
}

// RecoveryHandler converts a panic into an Internal status and logs it.
func (l *Logging) RecoveryHandler(ctx context.Context, p any) error {
	l.logger.Error("gRPC handler panic recovered", "panic", p)
	return status.Error(codes.Internal, "internal server error")
}
