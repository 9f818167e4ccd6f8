package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rparrett/jornet/internal/adapters/http/api"
	"github.com/rparrett/jornet/internal/adapters/http/swagger"
	app "github.com/rparrett/jornet/internal/app"
	"github.com/rparrett/jornet/internal/config"
	"github.com/rparrett/jornet/internal/persistence/migrations"
	registrypg "github.com/rparrett/jornet/internal/registry/postgres"
	scorestorepg "github.com/rparrett/jornet/internal/scorestore/postgres"
	"github.com/rparrett/jornet/pkg/logger"
	"github.com/rparrett/jornet/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// The service collects its own runtime metrics; the default Go
	// collectors would duplicate them.
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

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	opts := []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.RebuildWorkers),
		app.WithQueueSize(cfg.RebuildQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithSubmitRetry(cfg.SubmitRetryAttempts,
			time.Duration(cfg.SubmitRetryInitialMS)*time.Millisecond,
			time.Duration(cfg.SubmitRetryMaxMS)*time.Millisecond),
	}

	// An empty database_url runs the service on the in-memory stores.
	if cfg.DatabaseURL != "" {
		if err := migrations.Apply(ctx, cfg.DatabaseURL, cfg.MigrationsDir, log); err != nil {
			log.Error(ctx, "migrations failed", logger.Error(err))
			return
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error(ctx, "database pool failed", logger.Error(err))
			return
		}
		defer pool.Close()
		opts = append(opts,
			app.WithRegistry(registrypg.NewStore(pool)),
			app.WithScoreStore(scorestorepg.NewStore(pool)),
		)
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()
	swagger.Register(mux)
	api.NewServer(svc, svc,
		api.WithMaxTopLimit(cfg.MaxTopLimit),
		api.WithMaxAroundWindow(cfg.MaxAroundWindow),
		api.WithAdminToken(cfg.AdminToken),
	).Register(mux)

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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
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

// startSystemMetricsUpdater periodically samples runtime memory and
// goroutine metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
