package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/hooplab/passport/internal/adapters/ai"
	"github.com/hooplab/passport/internal/adapters/cache"
	"github.com/hooplab/passport/internal/adapters/http/api"
	"github.com/hooplab/passport/internal/adapters/store"
	service "github.com/hooplab/passport/internal/app"
	"github.com/hooplab/passport/internal/config"
	"github.com/hooplab/passport/internal/domain/content"
	"github.com/hooplab/passport/pkg/logger"
	"github.com/hooplab/passport/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Our custom registry carries the service metrics; drop the default
	// collectors so /healthz does not serve duplicates.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithGameWindow(cfg.MinGames, cfg.MaxGames),
		service.WithReportsPerHour(cfg.ReportsPerHour),
		service.WithCacheTTL(time.Duration(cfg.CacheTTLSeconds) * time.Second),
		service.WithAITimeout(time.Duration(cfg.AI.TimeoutSeconds) * time.Second),
		service.WithGuardrails(content.Guardrails{
			MedicalTerms:    cfg.Guardrails.MedicalTerms,
			GuaranteeTerms:  cfg.Guardrails.GuaranteeTerms,
			DisclaimerTerms: cfg.Guardrails.DisclaimerTerms,
		}),
	}

	if cfg.AI.APIKey != "" {
		inner := ai.NewHTTPClient(
			ai.WithBaseURL(cfg.AI.BaseURL),
			ai.WithAPIKey(cfg.AI.APIKey),
			ai.WithModel(cfg.AI.Model),
			ai.WithTimeout(time.Duration(cfg.AI.TimeoutSeconds)*time.Second),
			ai.WithClientLogger(log.Named("ai")),
		)
		opts = append(opts, service.WithAIClient(ai.NewRetryClient(inner,
			ai.WithMaxAttempts(cfg.AI.MaxAttempts),
			ai.WithBackoffBase(time.Duration(cfg.AI.BackoffBaseMS)*time.Millisecond),
			ai.WithRetryLogger(log.Named("ai.retry")),
		)))
	} else {
		log.Warn(ctx, "no AI API key configured; using the static offline client")
	}

	if cfg.CacheBackend == "redis" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		opts = append(opts, service.WithCache(cache.NewRedisCache(rdb,
			cache.WithRedisTTL(time.Duration(cfg.CacheTTLSeconds)*time.Second),
			cache.WithRedisLogger(log.Named("cache")),
		)))
		defer func() { _ = rdb.Close() }()
	}

	if cfg.PostgresDSN != "" {
		pool, err := store.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error(ctx, "failed to connect to postgres", logger.Error(err))
			return
		}
		defer pool.Close()
		if err := pool.EnsureSchema(ctx); err != nil {
			log.Error(ctx, "failed to apply schema", logger.Error(err))
			return
		}
		opts = append(opts,
			service.WithReportStore(store.NewPostgresReportStore(pool)),
			service.WithPlayerStore(store.NewPostgresPlayerStore(pool)),
		)
	}

	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop(context.Background())

	// Periodically refresh the service gauges for scrapes between requests.
	go startServiceMetricsUpdater(ctx, svc)

	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// startServiceMetricsUpdater refreshes the gauge metrics that GetStats
// derives from the stores and queue.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := svc.GetStats(ctx)
			if queueLen, ok := stats["queue_length"].(int); ok {
				metrics.UpdateQueueSize(queueLen)
			}
		}
	}
}
