package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giannis84/matchday-favourites/internal"
	"github.com/giannis84/matchday-favourites/internal/config"
	"github.com/giannis84/matchday-favourites/internal/database"
	"github.com/giannis84/matchday-favourites/internal/favourites"
	"github.com/giannis84/matchday-favourites/internal/logging"
	"github.com/giannis84/matchday-favourites/internal/metrics"
	"github.com/giannis84/matchday-favourites/internal/remote"
	"github.com/giannis84/matchday-favourites/internal/routes"
	"github.com/giannis84/matchday-favourites/internal/session"
	"github.com/giannis84/matchday-favourites/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String(logging.ErrorKey, err.Error()))
		os.Exit(1)
	}

	// Initialize shared dependencies
	logger := logging.NewLogger(cfg.LogFormat, cfg.LogLevel)
	logger.Info("configuration loaded",
		slog.String("api_addr", cfg.APIAddr()),
		slog.String("health_addr", cfg.HealthAddr()),
		slog.String("store_driver", cfg.StoreDriver),
		slog.Bool("optimistic_updates", cfg.OptimisticUpdates),
	)
	m := metrics.New()

	// Pick the favourites store
	var (
		factory session.StoreFactory
		pinger  store.Pinger
		db      *sql.DB
	)
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err = database.Connect(cfg.PostgresConnString())
		if err != nil {
			logger.Error("failed to initialise database", slog.String(logging.ErrorKey, err.Error()))
			os.Exit(1)
		}
		pg := database.NewPostgresStore(db)
		factory = func(string) store.Store { return pg }
		pinger = pg
		logger.Info("database ready")
	default:
		client := remote.NewClient(cfg.RemoteBaseURL, cfg.RemoteTimeout, m)
		factory = func(token string) store.Store { return client.ForToken(token) }
		pinger = client
		logger.Info("remote favourites store configured", slog.String("base_url", cfg.RemoteBaseURL))
	}

	manager := session.NewManager(factory, session.Options{
		IdleTimeout: cfg.SessionIdleTimeout,
		Favourites:  favourites.Options{Optimistic: cfg.OptimisticUpdates, Metrics: m},
		Metrics:     m,
	})

	// A mutation is one store call plus one refetch.
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 2*cfg.RemoteTimeout + 5*time.Second
	}

	// Create health check and favourites http services
	healthService := internal.NewService(internal.ServiceConfig{
		Addr:   cfg.HealthAddr(),
		Logger: logger,
		Routes: routes.RegisterHealthRoutes(pinger.Ping, m.Handler()),
	})
	apiService := internal.NewService(internal.ServiceConfig{
		Addr:           cfg.APIAddr(),
		Logger:         logger,
		Routes:         routes.RegisterFavouritesRoutes(manager, cfg.AuthConfig(), cfg.RateLimitConfig()),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Start http service threads
	go func() {
		if err := healthService.ListenAndServeWrapper("health check api"); err != nil && err != http.ErrServerClosed {
			logger.Error("health check service failed", slog.String(logging.ErrorKey, err.Error()))
			os.Exit(1)
		}
	}()
	go func() {
		if err := apiService.ListenAndServeWrapper("favourites api"); err != nil && err != http.ErrServerClosed {
			logger.Error("favourites service failed", slog.String(logging.ErrorKey, err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit

	// Shutdown http service threads gracefully
	logger.Info("shutting down service", slog.String("signal", receivedSignal.String()))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiService.HTTPServer.Shutdown(ctx); err != nil {
		logger.Error("API service shutdown error", slog.String(logging.ErrorKey, err.Error()))
	}
	if err := healthService.HTTPServer.Shutdown(ctx); err != nil {
		logger.Error("health service shutdown error", slog.String(logging.ErrorKey, err.Error()))
	}
	manager.Close()
	if db != nil {
		db.Close()
	}
	logger.Info("exiting...")
}
