// Questline - multi-helper founder coaching server
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
	"github.com/lmittmann/tint"
	"github.com/questline-app/questline/internal/api"
	"github.com/questline-app/questline/internal/catalog"
	"github.com/questline-app/questline/internal/coach"
	"github.com/questline-app/questline/internal/config"
	"github.com/questline-app/questline/internal/identity"
	"github.com/questline-app/questline/internal/journey"
	"github.com/questline-app/questline/internal/middleware"
	"github.com/questline-app/questline/internal/store"
	"github.com/questline-app/questline/internal/synchro"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("Starting server", "port", cfg.Port, "backend", cfg.Backend, "dev", cfg.IsDevelopment())

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

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		slog.Error("Failed to load journey catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("Journey catalog loaded", "steps", len(cat.Steps()))

	// The completion client is always built: even under the thread backend it
	// serves the extractor, which needs a plain non-streaming completion.
	completion := coach.NewCompletionBackend(coach.CompletionBackendConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})
	defer completion.Close()

	var backend coach.Backend = completion
	if cfg.Backend == config.BackendThread {
		threads := coach.NewThreadBackend(coach.ThreadBackendConfig{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			AssistantID: cfg.LLM.AssistantID,
			LockTimeout: cfg.Stream.ThreadLockTimeout,
		})
		defer threads.Close()
		backend = threads
	}

	// Initialize services.
	orch := coach.NewOrchestrator(backend, cat, cfg.Stream.TurnTimeout)
	sync := synchro.NewService(repo, synchro.NewLLMExtractor(completion))
	journeys := journey.NewService(repo, cat)

	// Initialize handlers.
	h := api.NewHandler(repo, cat, orch, sync, journeys, cfg)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	corsOrigins := []string{"*"}
	if cfg.FrontendURL != "" {
		corsOrigins = []string{cfg.FrontendURL}
	}
	r.Use(middleware.CORS(corsOrigins))
	r.Use(identity.Middleware(repo, cfg.DevUserID, cfg.IsDevelopment()))

	h.RegisterRoutes(r)

	// Create server.
	// Note: SSE connections require long timeouts (no WriteTimeout).
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
