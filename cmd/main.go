package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpContext "github.com/dtroode/breathesense-server/internal/api/http/context"
	httpMiddleware "github.com/dtroode/breathesense-server/internal/api/http/middleware"
	httpRouter "github.com/dtroode/breathesense-server/internal/api/http/router"
	httpServer "github.com/dtroode/breathesense-server/internal/api/http/server"
	grpcRouter "github.com/dtroode/breathesense-server/internal/api/grpc/router"
	grpcServer "github.com/dtroode/breathesense-server/internal/api/grpc/server"
	"github.com/dtroode/breathesense-server/internal/config"
	"github.com/dtroode/breathesense-server/internal/logger"
	"github.com/dtroode/breathesense-server/internal/metrics"
	"github.com/dtroode/breathesense-server/internal/model"
	"github.com/dtroode/breathesense-server/internal/password"
	mongoRepo "github.com/dtroode/breathesense-server/internal/repository/mongo"
	"github.com/dtroode/breathesense-server/internal/repository/postgres"
	"github.com/dtroode/breathesense-server/internal/server"
	"github.com/dtroode/breathesense-server/internal/service"
	"github.com/dtroode/breathesense-server/internal/token"
	"github.com/dtroode/breathesense-server/internal/validation"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	logAppVersion()

	userStore, closeStore, err := openUserStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize storage", "driver", cfg.StoreDriver, "error", err)
	}
	defer closeStore()

	hasher, err := password.NewBcrypt(cfg.Password.Cost)
	if err != nil {
		logger.Fatal("failed to create password hasher", "error", err)
	}
	tokenManager, err := token.NewJWT(cfg.JWT.Secret)
	if err != nil {
		logger.Fatal("failed to create token manager", "error", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	validator := validation.New()
	accountService := service.NewAccount(userStore, hasher, tokenManager, validator, collector, logger)
	adminService := service.NewAdmin(userStore, validator, logger)

	trustedProxies, err := cfg.RateLimit.TrustedProxyPrefixes()
	if err != nil {
		logger.Fatal("failed to parse trusted proxies", "error", err)
	}
	rateLimiter := httpMiddleware.NewRateLimiter(httpMiddleware.RateLimiterConfig{
		Rate:           httpMiddleware.PerMinute(cfg.RateLimit.AuthPerMinute),
		Burst:          cfg.RateLimit.AuthBurst,
		TrustedProxies: trustedProxies,
	}, logger)

	handler := httpRouter.New(httpRouter.Deps{
		AccountService: accountService,
		AdminService:   adminService,
		Store:          userStore,
		TokenManager:   tokenManager,
		ContextManager: httpContext.NewManager(),
		RateLimiter:    rateLimiter,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(registry),
		Logger:         logger,
	}).Register()

	servers := []model.Server{
		httpServer.NewHTTPServer(handler, fmt.Sprintf(":%s", cfg.HTTP.Port), httpServer.Timeouts{
			Read:  cfg.HTTP.ReadTimeout,
			Write: cfg.HTTP.WriteTimeout,
			Idle:  cfg.HTTP.IdleTimeout,
		}),
	}
	if cfg.GRPC.Enabled {
		s := grpcRouter.New(userStore, logger).Register()
		servers = append(servers, grpcServer.NewGRPCServer(s, fmt.Sprintf(":%s", cfg.GRPC.Port)))
	}

	sl := server.NewSecurityLayer(cfg.TLS.Enabled, cfg.TLS.CertFileName, cfg.TLS.PrivateKeyFileName)

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(s model.Server) {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address(), "tls", cfg.TLS.Enabled)
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "address", s.Address(), "error", err)
				stop()
			}
		}(s)
	}

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for _, s := range servers {
		if err := s.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.Address())
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

// openUserStore connects the configured backend and returns it with its
// cleanup function.
func openUserStore(ctx context.Context, cfg *config.Config) (model.UserStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		conn, err := mongoRepo.NewConnection(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = conn.Close(closeCtx)
		}

		repo := mongoRepo.NewUserRepository(conn.Collection(cfg.Mongo.Collection))
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("failed to create indexes: %w", err)
		}
		return repo, closeFn, nil

	default:
		db, err := postgres.NewConnection(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewUserRepository(db), func() { _ = db.Close() }, nil
	}
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
