package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"setoran-pa/internal/adapters/backend"
	"setoran-pa/internal/adapters/http/middleware"
	"setoran-pa/internal/adapters/http/routes"
	"setoran-pa/internal/adapters/identity"
	"setoran-pa/internal/adapters/persistence/models"
	"setoran-pa/internal/adapters/persistence/repositories"
	"setoran-pa/internal/config"
	"setoran-pa/internal/core/services"
	"setoran-pa/internal/pkg/logger"
	"setoran-pa/internal/pkg/sealer"

	"github.com/gofiber/fiber/v2"

	_ "setoran-pa/docs" // Swagger docs
)

// @title Setoran PA API
// @version 1.0
// @description Local gateway for advisors validating students' Quran memorization deposits
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@tif.uin-suska.ac.id

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath /api/v1
// @schemes http

func main() {
	if err := run(); err != nil {
		logger.Log.Errorf("❌ %v", err)
		os.Exit(1)
	}
}

// run wires and serves the gateway. It returns once the server stops, after
// the token store and the roster sync have been released.
func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Init(cfg.LogLevel)

	store, cleanup, err := openTokenStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}
	defer cleanup()

	auth := identity.New(identity.Config{
		BaseURL:      cfg.Identity.BaseURL,
		Realm:        cfg.Identity.Realm,
		ClientID:     cfg.Identity.ClientID,
		ClientSecret: cfg.Identity.ClientSecret,
		Scopes:       cfg.Identity.Scopes,
		Timeout:      cfg.Identity.Timeout,
	}, nil)
	client, err := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, nil)
	if err != nil {
		return fmt.Errorf("invalid backend configuration: %w", err)
	}

	session := services.NewSessionService(store, auth)
	deposits := services.NewDepositService(session, client)

	if cfg.RosterSyncSchedule != "" {
		job, err := services.NewRosterSync(cfg.RosterSyncSchedule, session, deposits)
		if err != nil {
			return fmt.Errorf("invalid ROSTER_SYNC_SCHEDULE: %w", err)
		}
		job.Start()
		defer job.Stop()
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Setoran PA API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	routes.Setup(app, routes.Dependencies{
		AppMode:  cfg.AppMode,
		Store:    store,
		Session:  session,
		Deposits: deposits,
	})

	// Graceful shutdown
	done := make(chan struct{})
	defer close(done)
	go gracefulShutdown(app, done)

	// Start server
	logger.Log.Infof("🚀 Server starting on port %s [MODE: %s, TOKEN_STORE: %s]", cfg.Port, cfg.AppMode, cfg.TokenStore.Driver)
	if err := app.Listen(":" + cfg.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// openTokenStore builds the configured credential store, sealed when a key is set
func openTokenStore(cfg *config.Config) (repositories.TokenStore, func(), error) {
	var store repositories.TokenStore
	cleanup := func() {}

	switch cfg.TokenStore.Driver {
	case "mysql":
		db, err := config.ConnectDatabase(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := models.AutoMigrate(db); err != nil {
			config.CloseDatabase()
			return nil, nil, err
		}
		logger.Log.Info("✅ Database migration completed")
		store = repositories.NewGormTokenStore(db, cfg.TokenStore.Profile)
		cleanup = func() { config.CloseDatabase() }
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rdb, err := config.ConnectRedis(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		store = repositories.NewRedisTokenStore(rdb, cfg.TokenStore.Profile)
		cleanup = func() { rdb.Close() }
	default:
		logger.Log.Warn("⚠️ Using in-memory token store, credentials are lost on restart")
		store = repositories.NewMemoryTokenStore()
	}

	if cfg.TokenStore.Key == "" {
		return store, cleanup, nil
	}
	s, err := sealer.New(cfg.TokenStore.Key)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return repositories.NewSealedTokenStore(store, s), cleanup, nil
}

// gracefulShutdown stops app on SIGINT or SIGTERM. It returns without
// shutting down once done is closed.
func gracefulShutdown(app *fiber.App, done <-chan struct{}) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case <-done:
		return
	}

	logger.Log.Info("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		logger.Log.Errorf("❌ Error during shutdown: %v", err)
	}
	logger.Log.Info("✅ Server stopped gracefully")
}
