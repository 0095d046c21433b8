package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/stockscore/internal/adapters/http/api"
	"github.com/okian/stockscore/internal/adapters/http/swagger"
	app "github.com/okian/stockscore/internal/app"
	"github.com/okian/stockscore/internal/config"
	"github.com/okian/stockscore/internal/domain/scoring"
	"github.com/okian/stockscore/pkg/logger"
	"github.com/okian/stockscore/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, nil); err != nil {
		logger.Get().Error(ctx, "stockscore stopped with error", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// run loads configuration, serves HTTP until ctx is done and drains the
// pipeline. A listener may be supplied; otherwise cfg.Addr is bound. Weight
// configuration errors are returned before anything starts.
func run(ctx context.Context, ln net.Listener) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	engine, err := cfg.Engine()
	if err != nil {
		return fmt.Errorf("build scoring engine: %w", err)
	}
	if err := metrics.RegisterRuntimeCollectors(); err != nil {
		log.Warn(ctx, "runtime collectors not registered", logger.Error(err))
	}

	svc := newService(cfg, engine)
	// Workers outlive the signal so queued analyses can drain.
	if err := svc.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	if cfg.WatchlistPath != "" {
		n, err := svc.RunWatchlist(ctx)
		if err != nil {
			log.Warn(ctx, "initial watchlist run incomplete", logger.Error(err))
		}
		log.Info(ctx, "initial watchlist enqueued", logger.Int("companies", n))
	}

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	if ln == nil {
		ln, err = net.Listen("tcp", cfg.Addr)
		if err != nil {
			_ = svc.Stop(ctx)
			return fmt.Errorf("listen %s: %w", cfg.Addr, err)
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a server failure
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			_ = svc.Stop(context.Background())
			return fmt.Errorf("serve: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown server: %w", err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	log.Info(shutdownCtx, "server stopped")
	return errors.Join(errs...)
}

func newService(cfg *config.Config, engine *scoring.Engine) *app.Service {
	opts := []app.Option{
		app.WithLogger(logger.Get().Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
	}
	if cfg.ReportDir != "" {
		opts = append(opts, app.WithReportDir(cfg.ReportDir))
	}
	if cfg.WatchlistPath != "" {
		opts = append(opts, app.WithSchedule(cfg.Schedule, cfg.WatchlistPath))
	}
	return app.New(engine, opts...)
}

// newHandler builds the HTTP mux with the business API and its OpenAPI description.
func newHandler(cfg *config.Config, svc *app.Service) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(mux)
	api.NewServer(svc, func() any { return svc.GetStats() }, api.WithMaxLimit(cfg.MaxLeaderboardLimit)).Register(mux)
	return mux
}

// startServiceMetricsUpdater refreshes queue and worker gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats refreshes the queue and active-worker gauges.
			_ = svc.GetStats()
		}
	}
}
