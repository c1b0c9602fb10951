package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/s1natex/taskboard-GO/internal/middleware"
	"github.com/s1natex/taskboard-GO/internal/tasks"
)

func main() {
	logger := newLoggerFromEnv()
	slog.SetDefault(logger) // for third-party packages that use slog

	addr := envOr("ADDR", ":8080")
	dbPath := envOr("DB_PATH", filepath.Join("data", "tasks.db"))

	dsn, err := tasks.SQLiteFileDSN(dbPath)
	if err != nil {
		logger.Error("db_dsn", slog.String("error", err.Error()))
		os.Exit(1)
	}
	repo, err := tasks.NewSQLiteRepo(dsn)
	if err != nil {
		logger.Error("db_open", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer repo.Close()

	schemaCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = repo.EnsureSchema(schemaCtx)
	cancel()
	if err != nil {
		logger.Error("db_schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	shutdownTracing, err := setupTracing(context.Background())
	if err != nil {
		logger.Error("tracing_setup", slog.String("error", err.Error()))
		os.Exit(1)
	}

	svc := tasks.NewService(repo, logger)
	r := newRouter(svc, logger)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Root context cancelled on SIGINT/SIGTERM
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listen", slog.String("addr", addr), slog.String("db", dbPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown_signal")
	case err := <-errCh:
		logger.Error("server_error", slog.String("error", err.Error()))
	}

	// Stop accepting new requests; wait for in-flight with timeout.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_shutdown", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing_shutdown", slog.String("error", err.Error()))
	}
	logger.Info("server_stopped")
}

// newRouter wires the health and metrics endpoints, task routes, and the
// middleware stack
func newRouter(svc *tasks.Service, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// ---- Middleware stack (order matters a bit) ----
	// RequestID first so downstream can include it (logger, traces, etc.)
	r.Use(chimw.RequestID)

	// Panic recovery: never crash the server; returns 500 on panics
	r.Use(chimw.Recoverer)

	// Timeouts: cancel handlers that exceed this duration
	r.Use(chimw.Timeout(15 * time.Second))

	// CORS: the task UI is served from elsewhere, so stay permissive
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "Trace-Id"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Use(middleware.RateLimitMiddleware(limiterFromEnv()))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.RequestLogger(logger))

	// ---- Routes ----

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", middleware.MetricsHandler())

	// task routes under /api
	tasks.RegisterRoutes(r, svc)

	return r
}

func newLoggerFromEnv() *slog.Logger {
	level := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: l,
	})
	return slog.New(handler)
}

// limiterFromEnv builds the global limiter; RATE_LIMIT_RPS unset or <= 0
// disables limiting.
func limiterFromEnv() *rate.Limiter {
	return middleware.NewLimiter(envFloat("RATE_LIMIT_RPS", 0), envInt("RATE_LIMIT_BURST", 1))
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
