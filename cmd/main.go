package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/gamepulse/internal/adapters/credentials"
	"github.com/okian/gamepulse/internal/adapters/gameplan"
	"github.com/okian/gamepulse/internal/adapters/http/api"
	"github.com/okian/gamepulse/internal/adapters/http/swagger"
	repository "github.com/okian/gamepulse/internal/adapters/repository"
	app "github.com/okian/gamepulse/internal/app"
	"github.com/okian/gamepulse/internal/config"
	"github.com/okian/gamepulse/internal/domain/scoring"
	"github.com/okian/gamepulse/pkg/logger"
	"github.com/okian/gamepulse/pkg/metrics"
)

// HTTP server timeout constants. Writes allow for a cold cache refresh.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 2 * time.Minute
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.InitWithFormat(cfg.LogFormat, os.Stdout); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := newService(ctx, cfg)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build service", logger.Error(err))
		return
	}
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("upstream", cfg.UpstreamBaseURL),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// newService wires the upstream client, credential store and cache from cfg.
// The returned service is not started.
func newService(ctx context.Context, cfg *config.Config) (*app.Service, error) {
	client, err := gameplan.New(cfg.UpstreamBaseURL,
		gameplan.WithPageSize(cfg.PageSize),
		gameplan.WithMaxRetries(cfg.MaxRetries),
		gameplan.WithBackoff(cfg.RetryBackoff()),
		gameplan.WithTimeout(cfg.RequestTimeout()),
		gameplan.WithLogger(logger.Named("gameplan")),
	)
	if err != nil {
		return nil, err
	}

	var creds credentials.Store = credentials.NewMemoryStore()
	if cfg.CredentialsFile != "" {
		creds = credentials.NewFileStore(cfg.CredentialsFile)
	}

	return app.New(
		app.WithLogger(logger.Named("service")),
		app.WithFetcher(client),
		app.WithStore(repository.NewSnapshotStore(ctx, repository.WithExpiry(cfg.CacheExpiry()))),
		app.WithCredentials(creds),
		app.WithFallbackAPIKey(cfg.APIKey),
		app.WithScoringEngine(scoring.NewEngine(scoring.WithActivityWindowDays(cfg.ActivityWindowDays))),
		app.WithTrendDays(cfg.TaskTrendDays, cfg.ActivityTrendDays),
	), nil
}

// newHandler registers docs and API routes and wraps them in the outer
// middleware chain. Access logs are only written at debug level.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service) http.Handler {
	r := mux.NewRouter()
	swagger.Register(ctx, r)
	api.NewServer(svc).Register(ctx, r)

	var access io.Writer
	if strings.EqualFold(cfg.LogLevel, "debug") {
		access = os.Stdout
	}
	return api.Handler(r, api.HandlerOptions{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AccessLog:      access,
		Logger:         logger.Named("http"),
	})
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
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

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystem(m.Alloc, runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordGCPause(avgPauseMs)
	}
}
