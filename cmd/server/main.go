package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/rollcall/internal/auth"
	"github.com/JonMunkholm/rollcall/internal/config"
	"github.com/JonMunkholm/rollcall/internal/core"
	"github.com/JonMunkholm/rollcall/internal/events"
	"github.com/JonMunkholm/rollcall/internal/logging"
	"github.com/JonMunkholm/rollcall/internal/metrics"
	"github.com/JonMunkholm/rollcall/internal/roster"
	"github.com/JonMunkholm/rollcall/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	store, err := roster.Open(ctx, roster.Options{
		Backend:         cfg.Database.Backend,
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		slog.Error("failed to open roster store", "backend", cfg.Database.Backend, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	health := []web.HealthCheck{{Name: "roster", Check: store.Ping}}

	queue, redisClient := openQueue(cfg)
	if redisClient != nil {
		defer redisClient.Close()
		health = append(health, web.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			if !events.Healthy(ctx, redisClient) {
				return errors.New("redis unreachable")
			}
			return nil
		}})
	}

	collector := metrics.New()

	service := core.NewService(store, core.ServiceConfig{
		MaxFileSize:    cfg.Import.MaxFileSize,
		MaxAttempts:    cfg.Import.RateMaxAttempts,
		RateWindow:     cfg.Import.RateWindow,
		FingerprintTTL: cfg.Import.FingerprintTTL,
		MaxConcurrent:  cfg.Import.MaxConcurrent,
		MaxWait:        cfg.Import.MaxWaitTime,
	},
		core.WithPublisher(queue),
		core.WithMetrics(collector),
	)

	opts := web.Options{
		Metrics: collector.Handler(),
		Health:  health,
	}
	if cfg.Auth.JWTSigningKey != "" {
		opts.Verifier = auth.NewVerifier(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)
	}
	var ipLimiter *core.RateLimiter
	if cfg.Rate.Enabled {
		ipLimiter = core.NewRateLimiter(cfg.Rate.RequestsPerMinute, time.Minute)
		opts.IPLimiter = ipLimiter
	}

	server := web.NewServer(service, cfg, opts)

	// Background jobs stop when jobCtx is cancelled.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.Limiter().Run(jobCtx, cfg.Import.SweepInterval)
	go service.Duplicates().Run(jobCtx, cfg.Import.SweepInterval)
	if ipLimiter != nil {
		go core.RunSweeper(jobCtx, "ip_rate_limiter", cfg.Import.SweepInterval, ipLimiter)
	}
	go func() {
		if err := events.Run(jobCtx, queue, events.LogHandler); err != nil {
			slog.Error("event consumer failed", "error", err)
		}
	}()

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		if status := service.ImportStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.Drain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		cancelJobs()
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// openQueue builds the roster event queue named in cfg. The redis client
// is returned so the caller can health-check and close it.
func openQueue(cfg *config.Config) (events.Queue, *redis.Client) {
	if !strings.EqualFold(cfg.Queue.Backend, "redis") {
		return events.NewInMemory(cfg.Queue.Size), nil
	}

	client := events.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if !events.Healthy(ctx, client) {
		slog.Warn("redis not reachable at startup; events will retry on publish", "addr", cfg.Redis.Addr)
	}
	return events.NewRedisQueue(client, cfg.Queue.Key), client
}
