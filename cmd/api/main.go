package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/okadago/backend/internal/config"
	"github.com/okadago/backend/internal/dispatch"
	"github.com/okadago/backend/internal/events"
	"github.com/okadago/backend/internal/fare"
	"github.com/okadago/backend/internal/infra"
	"github.com/okadago/backend/internal/registry"
	"github.com/okadago/backend/internal/security"
	"github.com/okadago/backend/internal/server"
	"github.com/okadago/backend/internal/sweeper"
)

func main() {
	envFiles := config.LoadDotEnvUp(8)

	logger, _ := zap.NewProduction()
	if os.Getenv("APP_ENV") == "local" {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()
	if len(envFiles) > 0 {
		logger.Info("env files loaded", zap.Strings("files", envFiles))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infraDeps, err := infra.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("infra init failed", zap.Error(err))
	}
	defer infraDeps.Close()

	hub := events.NewHub(logger.Named("ws"))
	go hub.Run(ctx)

	var pub events.Publisher = hub
	if infraDeps.AMQP != nil {
		pub = events.Multi{hub, infraDeps.AMQP}
	}

	jwtm := security.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.AccessTTL, cfg.Security.RefreshTTL)
	reg := registry.New(infraDeps.Store, infraDeps.Settings, jwtm, infraDeps.Refresh, pub, logger.Named("registry"))
	engine := dispatch.New(infraDeps.Store, infraDeps.Settings, pub, logger.Named("dispatch"))

	if cfg.Security.AdminEmail != "" {
		if err := reg.EnsureAdmin(ctx, cfg.Security.AdminEmail, cfg.Security.AdminPassword); err != nil {
			logger.Fatal("bootstrap admin failed", zap.Error(err))
		}
	}

	sw := sweeper.New(infraDeps.Store.Repos().Rides, engine,
		cfg.Dispatch.PendingRideTimeout, cfg.Dispatch.SweepInterval, logger)
	go sw.Run(ctx)

	httpServer := &http.Server{
		Addr: cfg.App.HTTPAddr,
		Handler: server.NewRouter(*cfg, server.Deps{
			Registry: reg,
			Engine:   engine,
			Settings: infraDeps.Settings,
			Fares:    fare.NewCalculator(infraDeps.Settings),
			JWT:      jwtm,
			Hub:      hub,
			Redis:    infraDeps.Redis,
		}, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.App.ReadTimeout,
		WriteTimeout:      cfg.App.WriteTimeout,
	}

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.App.HTTPAddr), zap.String("env", cfg.App.Env))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}
