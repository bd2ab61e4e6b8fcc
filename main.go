package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evxiong/notion-movies/config"
	"github.com/evxiong/notion-movies/database"
	"github.com/evxiong/notion-movies/handlers"
	"github.com/evxiong/notion-movies/services"
	"github.com/evxiong/notion-movies/shared/logger"
	"github.com/evxiong/notion-movies/shared/middleware"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Environment, cfg.Debug)

	logger.Info("Initializing notion-movies components...")

	// Initialize session store
	services.InitSessionStore(cfg)

	// Connect to credential store
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.UpsertKeyIncludesTemplate); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Wire services
	creds := services.NewCredentialStore(db, cfg.UpsertKeyIncludesTemplate)
	tmdb := services.NewTMDBClient(cfg.TMDBAPIKey, services.NewIMDbResolver())
	runner := services.NewRunner(tmdb, services.WritePolicy{
		SuppressUnknownRuntime:  cfg.SuppressUnknownRuntime,
		ContinueAfterImageError: cfg.ContinueAfterImageError,
	})
	oauth := services.NewOAuthClient(cfg)

	h := handlers.New(cfg, creds, runner, oauth)

	// Setup routes
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.Health)
	mux.HandleFunc("POST /{$}", h.Webhook)
	mux.HandleFunc("GET /connect", h.Connect)
	mux.HandleFunc("GET /auth", h.Callback)
	mux.HandleFunc("POST /internal/sync", h.Sync)

	handler := middleware.Recover(middleware.Logging(mux))

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // enrichment runs synchronously inside the webhook
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Listening", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
