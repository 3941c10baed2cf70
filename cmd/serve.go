package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/okian/dietlens/internal/adapters/http/api"
	"github.com/okian/dietlens/internal/adapters/http/site"
	"github.com/okian/dietlens/internal/adapters/http/swagger"
	"github.com/okian/dietlens/internal/adapters/storage"
	app "github.com/okian/dietlens/internal/app"
	"github.com/okian/dietlens/internal/config"
	"github.com/okian/dietlens/internal/domain/nutrition"
	"github.com/okian/dietlens/pkg/logger"
	"github.com/okian/dietlens/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 60 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// setup loads configuration and initializes logging from it.
func setup(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fail(ctx, "failed to load config", err)
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithLevel(cfg.LogLevel)); err != nil {
		return nil, fail(ctx, "failed to initialize logging", err)
	}
	return cfg, nil
}

// newService builds the analysis service for cfg.
func newService(cfg *config.Config, src nutrition.Source) *app.Service {
	return app.New(
		app.WithLogger(logger.Named("service")),
		app.WithSource(src, cfg.StorageBackend),
		app.WithLocation(cfg.Container, cfg.Blob),
		app.WithAnalyzer(nutrition.NewAnalyzer(nutrition.WithSampleLimit(cfg.SampleLimit))),
	)
}

// newHandler registers every route on a fresh mux.
func newHandler(ctx context.Context, deps api.Dependencies) http.Handler {
	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)
	api.NewServer(deps).Register(ctx, mux)
	return mux
}

func runServe(ctx context.Context) error {
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	log := logger.Get()

	src, err := storage.Open(cfg.StorageBackend, cfg.StorageOptions()...)
	if err != nil {
		return fail(ctx, "failed to open storage", err)
	}
	if cfg.StorageBackend == string(storage.BackendAzure) && cfg.StorageConnectionString == "" {
		log.Warn(ctx, "AzureWebJobsStorage is not set; analysis requests will fail until it is configured")
	}

	svc := newService(cfg, src)
	if err := svc.Start(ctx); err != nil {
		return fail(ctx, "failed to start service", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fail(ctx, "HTTP server failed", err)
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())) //nolint:gosec // pid fits in int32
	if err != nil {
		logger.Get().Warn(ctx, "process stats unavailable", logger.Error(err))
		proc = nil
	}

	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics(ctx, proc)
		}
	}
}

// updateSystemMetrics updates system-level metrics. proc may be nil.
func updateSystemMetrics(ctx context.Context, proc *process.Process) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		// Average pause across all collections so far
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}

	if proc == nil {
		return
	}
	mem, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return
	}
	cpu, err := proc.PercentWithContext(ctx, 0)
	if err != nil {
		return
	}
	metrics.UpdateProcessUsage(mem.RSS, cpu)
}
