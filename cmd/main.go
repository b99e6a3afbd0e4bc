package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/passtrack/internal/adapters/http/api"
	"github.com/okian/passtrack/internal/adapters/http/swagger"
	"github.com/okian/passtrack/internal/adapters/repository"
	"github.com/okian/passtrack/internal/adapters/repository/sqlite"
	app "github.com/okian/passtrack/internal/app"
	"github.com/okian/passtrack/internal/config"
	"github.com/okian/passtrack/internal/domain/model"
	"github.com/okian/passtrack/pkg/logger"
	"github.com/okian/passtrack/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

// stores is whatever backs sessions and teams. The service closes it on Stop.
type stores struct {
	sessions repository.Store
	teams    repository.TeamStore
}

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "passtrack exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	log := logger.Get()

	if err := initMetrics(cfg); err != nil {
		return err
	}

	st, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	log.Info(ctx, "storage ready", logger.String("driver", cfg.StoreDriver))

	svc := app.New(st.sessions, st.teams,
		app.WithLogger(logger.Named("service")),
		app.WithScoreRange(model.ScoreRange{Min: cfg.ScoreMin, Max: cfg.ScoreMax}),
		app.WithDefaultThreshold(cfg.DefaultThreshold),
		app.WithDedupeSize(cfg.DedupeSize),
	)
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutMS)*time.Millisecond)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	// An unfinished session is stored rather than lost on shutdown.
	if done, ok, err := svc.Complete(shutdownCtx); err != nil {
		log.Error(ctx, "completing active session on shutdown failed", logger.Error(err))
	} else if ok {
		log.Info(ctx, "active session completed on shutdown", logger.String("session_id", done.ID))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// initMetrics applies the configured metric names and latency buckets.
func initMetrics(cfg *config.Config) error {
	buckets, err := cfg.MetricsBuckets()
	if err != nil {
		return err
	}
	metrics.Init(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithHistogramBuckets(buckets),
	)
	return nil
}

// buildStores opens the configured storage driver.
func buildStores(ctx context.Context, cfg *config.Config) (stores, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.StorePath)
		if err != nil {
			return stores{}, fmt.Errorf("open sqlite store %s: %w", cfg.StorePath, err)
		}
		return stores{sessions: db, teams: db}, nil
	case "memory", "":
		mem := repository.NewMemStore()
		return stores{sessions: mem, teams: mem}, nil
	default:
		return stores{}, fmt.Errorf("%w: unknown store driver %q", config.ErrInvalidConfig, cfg.StoreDriver)
	}
}

// newHandler registers the docs and business routes.
func newHandler(ctx context.Context, svc *app.Service) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, api.WithLogger(logger.Named("api"))).Register(ctx, mux)
	return mux
}

// startServiceMetricsUpdater refreshes the service gauges until ctx ends.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = svc.GetStats(ctx)
		}
	}
}
