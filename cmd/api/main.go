package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/pmilosev/idemgate/internal/config"
	"github.com/pmilosev/idemgate/internal/database"
	"github.com/pmilosev/idemgate/internal/events"
	"github.com/pmilosev/idemgate/internal/idempotency"
	idemmemory "github.com/pmilosev/idemgate/internal/idempotency/memory"
	idempostgres "github.com/pmilosev/idemgate/internal/idempotency/postgres"
	idemredis "github.com/pmilosev/idemgate/internal/idempotency/redis"
	"github.com/pmilosev/idemgate/internal/orders/adapters"
	httpadapter "github.com/pmilosev/idemgate/internal/orders/adapters/http"
	orderspostgres "github.com/pmilosev/idemgate/internal/orders/adapters/postgres"
	ordersapp "github.com/pmilosev/idemgate/internal/orders/app"
	ordersmetrics "github.com/pmilosev/idemgate/internal/orders/metrics"
	"github.com/pmilosev/idemgate/internal/telemetry"
)

const meterName = "github.com/pmilosev/idemgate"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.NewLogger(parseLogLevel(cfg.Telemetry.LogLevel))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.OTelEndpoint != "" {
		tel, err := telemetry.Initialize(ctx, telemetry.Config{
			ServiceName:    cfg.Service.Name,
			ServiceVersion: cfg.Service.Version,
			Environment:    cfg.Service.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
			EnableTracing:  cfg.Telemetry.EnableTracing,
			EnableMetrics:  cfg.Telemetry.EnableMetrics,
			SampleRate:     cfg.Telemetry.SampleRate,
		})
		if err != nil {
			return fmt.Errorf("initialize telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := tel.Shutdown(shutdownCtx); err != nil {
				logger.Error("telemetry shutdown failed", "error", err)
			}
		}()
	}

	meter := otel.Meter(meterName)

	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		logger.Info("running database migrations", "path", cfg.Database.MigrationsPath)
		if err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("migrations completed")
	}

	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create database metrics: %w", err)
	}
	orderMetrics, err := ordersmetrics.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create order metrics: %w", err)
	}
	eventMetrics, err := events.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create event metrics: %w", err)
	}
	idemMetrics, err := idempotency.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create idempotency metrics: %w", err)
	}
	httpMetrics, err := httpadapter.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create http metrics: %w", err)
	}

	idemStore, storeCleanup, err := newIdempotencyStore(ctx, cfg, pool, logger)
	if err != nil {
		return fmt.Errorf("create idempotency store: %w", err)
	}
	defer storeCleanup()

	interceptor := idempotency.New(idemStore, logger, idempotency.WithMetrics(idemMetrics))

	repo := adapters.NewObservableRepository(orderspostgres.NewRepository(pool), dbMetrics)
	eventBus := adapters.NewObservableEventBus(events.NewNoopBus(), eventMetrics)

	service := ordersapp.NewService(repo, eventBus, logger, orderMetrics)

	handlerOpts := []idempotency.Option{idempotency.WithTTL(cfg.Idempotency.CreateOrderTTL)}
	if !cfg.Idempotency.ValidatePayload {
		handlerOpts = append(handlerOpts, idempotency.WithoutPayloadValidation())
	}
	ordersHandler := httpadapter.NewHandler(service, interceptor, handlerOpts...)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.CheckHealth(r.Context(), pool); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	ordersHandler.Register(mux)

	handler := withRecovery(withLogging(httpadapter.WithMetrics(mux, httpMetrics)))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if cfg.Idempotency.Backend == "postgres" {
		go runJanitor(ctx, idempostgres.NewStore(pool), cfg.Idempotency.JanitorInterval, logger)
	}

	go func() {
		logger.Info("http server starting", "port", cfg.HTTP.Port, "idempotency_backend", cfg.Idempotency.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}

// newIdempotencyStore selects the configured backend. The returned cleanup
// closes backend-owned resources (the redis client); the shared pgx pool is
// owned by run.
func newIdempotencyStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (idempotency.Store, func(), error) {
	switch cfg.Idempotency.Backend {
	case "memory":
		logger.Warn("using in-memory idempotency store, entries are lost on restart")
		return idemmemory.NewStore(), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return idemredis.NewStore(client), func() { _ = client.Close() }, nil
	case "postgres":
		return idempostgres.NewStore(pool), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown idempotency backend %q", cfg.Idempotency.Backend)
	}
}

// runJanitor reclaims expired postgres entries on a fixed interval. Expiry
// correctness does not depend on it: reads already filter expired rows.
func runJanitor(ctx context.Context, store *idempostgres.Store, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := store.DeleteExpired(ctx)
			if err != nil {
				logger.Warn("expired idempotency entry cleanup failed", "error", err)
				continue
			}
			if deleted > 0 {
				logger.Info("expired idempotency entries reclaimed", "count", deleted)
			}
		}
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		slog.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start),
		)
	})
}

func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.ErrorContext(r.Context(), "panic recovered", "error", rec)
				respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
