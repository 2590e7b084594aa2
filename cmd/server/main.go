// Study Planner Agent server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/api"
	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/config"
	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/engine"
	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/middleware"
	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/planner"
	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/session"
	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/store"
	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/transcript"
	"github.com/scotthnguyen/cf-ai-study-planner-agent/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "model", cfg.Engine.Model, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	transcriptLog, err := transcript.New(transcript.Config{
		Enabled:   cfg.Transcript.Enabled,
		Dir:       cfg.Transcript.Dir,
		QueueSize: cfg.Transcript.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize transcript logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := transcriptLog.Close(); closeErr != nil {
			slog.Warn("Failed to close transcript logger", "error", closeErr)
		}
	}()

	// Initialize services.
	genClient := engine.NewClient(engine.Config{
		AccountID: cfg.Engine.AccountID,
		APIToken:  cfg.Engine.APIToken,
		Model:     cfg.Engine.Model,
		BaseURL:   cfg.Engine.BaseURL,
	})

	reconciler := planner.NewService(repo, genClient, planner.GenParams{
		Temperature: cfg.Engine.Temperature,
		MaxTokens:   cfg.Engine.MaxTokens,
	}, cfg.Engine.Timeout)

	sessions := session.NewManager()

	// Initialize handlers.
	handler := api.NewHandler(reconciler, repo, sessions, transcriptLog)
	wsHandler := api.NewWSHandler(reconciler, sessions, transcriptLog, cfg.AllowedOrigins())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))

	handler.RegisterRoutes(r)

	// WebSocket chat endpoint.
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // generation turns can exceed any fixed write budget
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Retention sweeper (no-op unless SESSION_RETENTION is set).
	store.StartRetentionWorker(ctx, repo, cfg.SessionRetention)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
