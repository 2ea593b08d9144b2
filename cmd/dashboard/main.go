package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/lorrc/civic-dashboard/internal/adapters/primary/http"
	mw "github.com/lorrc/civic-dashboard/internal/adapters/primary/http/middleware"
	"github.com/lorrc/civic-dashboard/internal/adapters/primary/websocket"
	"github.com/lorrc/civic-dashboard/internal/adapters/secondary/push"
	"github.com/lorrc/civic-dashboard/internal/adapters/secondary/remote"
	"github.com/lorrc/civic-dashboard/internal/adapters/secondary/synthetic"
	"github.com/lorrc/civic-dashboard/internal/adapters/secondary/tokenstore"
	"github.com/lorrc/civic-dashboard/internal/auth"
	"github.com/lorrc/civic-dashboard/internal/config"
	"github.com/lorrc/civic-dashboard/internal/core/ports"
	"github.com/lorrc/civic-dashboard/internal/core/services"
	"github.com/lorrc/civic-dashboard/internal/core/viewmodel"
	"github.com/lorrc/civic-dashboard/internal/infrastructure/logging"
	"github.com/lorrc/civic-dashboard/internal/infrastructure/metrics"
	"github.com/lorrc/civic-dashboard/internal/session"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// 3. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 4. Session persistence
	tokens, pinger, closeStore, err := openTokenStore(ctx, cfg.Session)
	if err != nil {
		return err
	}
	defer closeStore()
	store := session.NewStore(tokens, logger)

	// 5. Real-time relay and the remote service
	pushChannel := push.NewChannel(push.Config{
		URL:          cfg.Remote.PushURL,
		ReconnectMin: time.Second,
		ReconnectMax: 30 * time.Second,
	}, store, logger, m)
	hub := websocket.NewHub(logger, websocket.WithUpstream(pushChannel))
	remoteClient := remote.NewClient(remote.Config{
		BaseURL: cfg.Remote.BaseURL,
		Timeout: cfg.Remote.Timeout,
	}, store, hub, logger, m)

	// 6. Dependency Injection (Wiring the Hexagon)
	tokenManager := auth.NewTokenManager(cfg.Session.MockAuthSecret, cfg.Session.MockTokenTTL)
	localAuth := session.NewMockAuthenticator(tokenManager)
	source := synthetic.NewSource(cfg.Gateway.SyntheticSeed, logger)

	latch := services.NewAvailability(cfg.Gateway.RetryAfter, time.Now, logger, m)
	gateway := services.NewGateway(remoteClient, source, latch, logger, m)
	reconciler := viewmodel.NewReconciler(logger, viewmodel.WithBroadcaster(hub))
	sessions := services.NewSessionService(store, remoteClient, localAuth, latch, pushChannel, reconciler, logger)
	loader := services.NewPageLoader(gateway, reconciler, pushChannel, logger)
	authz := services.NewAuthorizationService()

	restoreCtx, cancel := context.WithTimeout(ctx, cfg.Remote.Timeout+time.Second)
	if err := sessions.Restore(restoreCtx); err != nil {
		logger.Warn("session not restored", "error", err)
	}
	cancel()
	defer pushChannel.Disconnect()

	// 7. Rate limiters
	var generalLimiter, authLimiter *mw.RateLimiter
	var codeLimiter *mw.RateLimitByKey
	if cfg.RateLimit.Enabled {
		generalLimiter = mw.NewRateLimiter(ctx, mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})
		authLimiter = mw.NewRateLimiter(ctx, mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.AuthRPS,
			BurstSize:         cfg.RateLimit.AuthBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})
		codeLimiter = mw.NewRateLimitByKey(ctx, mw.RateLimiterConfig{
			RequestsPerSecond: 1.0 / 30,
			BurstSize:         3,
			CleanupInterval:   time.Minute,
			TTL:               10 * time.Minute,
		})
	}

	// 8. Handlers (Primary Adapters)
	errorHandler := httpAdapter.NewErrorHandler(logger)
	handlers := httpAdapter.Handlers{
		Auth:      httpAdapter.NewAuthHandler(sessions, authz, gateway, mw.SessionAuth(store), codeLimiter, errorHandler, logger),
		Tickets:   httpAdapter.NewTicketHandler(gateway, errorHandler, logger),
		Workers:   httpAdapter.NewWorkerHandler(gateway, errorHandler, logger),
		Analytics: httpAdapter.NewAnalyticsHandler(gateway, errorHandler, logger),
		Users:     httpAdapter.NewAdminHandler(gateway, errorHandler, logger),
		Dashboard: httpAdapter.NewDashboardHandler(loader, reconciler, errorHandler, logger),
		WebSocket: httpAdapter.NewWebSocketHandler(hub, store, cfg.WebSocket, cfg.IsDevelopment(), errorHandler, logger),
		Health:    httpAdapter.NewHealthHandler(remoteClient, pushChannel, gateway, pinger, cfg.App.Version),
	}
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		Session:        store,
		Authz:          authz,
		Metrics:        m,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		GeneralLimiter: generalLimiter,
		AuthLimiter:    authLimiter,
		Logger:         logger,
	}, handlers)

	// 9. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("server starting", "port", cfg.Server.Port, "remote", cfg.Remote.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// openTokenStore builds the configured token persistence. The returned
// checker is non-nil only for stores that can be probed.
func openTokenStore(ctx context.Context, cfg config.SessionConfig) (ports.TokenStore, httpAdapter.HealthChecker, func(), error) {
	switch cfg.Store {
	case config.SessionStoreMemory:
		return tokenstore.NewMemory(), nil, func() {}, nil
	case config.SessionStoreRedis:
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		store, err := tokenstore.NewRedisFromURL(dialCtx, cfg.RedisURL, cfg.RedisKey, cfg.MockTokenTTL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open redis token store: %w", err)
		}
		return store, store, func() { _ = store.Close() }, nil
	default:
		return tokenstore.NewFile(cfg.TokenFile), nil, func() {}, nil
	}
}
