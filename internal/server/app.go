// Package server builds the application's dependencies and runs the HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/JakeFAU/page-analyzer/internal/analyzer"
	"github.com/JakeFAU/page-analyzer/internal/api"
	"github.com/JakeFAU/page-analyzer/internal/clock/system"
	"github.com/JakeFAU/page-analyzer/internal/config"
	"github.com/JakeFAU/page-analyzer/internal/extract"
	collyfetcher "github.com/JakeFAU/page-analyzer/internal/fetcher/colly"
	"github.com/JakeFAU/page-analyzer/internal/logging"
	"github.com/JakeFAU/page-analyzer/internal/metrics"
	"github.com/JakeFAU/page-analyzer/internal/ratelimit"
	memorystore "github.com/JakeFAU/page-analyzer/internal/storage/memory"
	pgstore "github.com/JakeFAU/page-analyzer/internal/storage/postgres"
	"github.com/JakeFAU/page-analyzer/internal/telemetry"
	"github.com/JakeFAU/page-analyzer/internal/web"
)

// App contains the application's dependencies.
type App struct {
	cfg            *config.Config
	logger         *zap.Logger
	apiServer      *api.Server
	db             *pgstore.DB
	tracerShutdown telemetry.ShutdownFunc
}

type repositories struct {
	urls   analyzer.URLRepository
	checks analyzer.CheckRepository
	pinger api.Pinger
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.Telemetry.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	app := &App{cfg: cfg, logger: logger}
	app.logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.Bool("postgres", cfg.UsesPostgres()),
		zap.Bool("telemetry", cfg.Telemetry.Enabled),
	)

	app.tracerShutdown, err = telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("tracer init failed: %w", err)
	}
	metrics.Init()

	repos, err := setupStorage(ctx, app)
	if err != nil {
		return nil, err
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.Fetch.UserAgent,
		Timeout:      cfg.Fetch.Timeout,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
	}, logger.Named("fetcher"))
	app.logger.Info("using colly fetcher",
		zap.Duration("timeout", cfg.Fetch.Timeout),
		zap.String("user_agent", cfg.Fetch.UserAgent),
	)

	limiter := ratelimit.New(ratelimit.Config{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst})
	if cfg.RateLimit.RPS > 0 {
		app.logger.Info("rate limiter enabled",
			zap.Float64("rps", cfg.RateLimit.RPS),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
	}

	svc := analyzer.NewService(
		repos.urls,
		repos.checks,
		fetcher,
		extract.New(),
		limiter,
		system.New(),
		logger.Named("checker"),
	)

	renderer, err := web.New()
	if err != nil {
		return nil, fmt.Errorf("template init failed: %w", err)
	}

	app.apiServer = api.NewServer(
		svc,
		renderer,
		api.NewSessionStore(cfg.Session),
		*cfg,
		logger,
		repos.pinger,
	)
	return app, nil
}

func setupStorage(ctx context.Context, app *App) (repositories, error) {
	if !app.cfg.UsesPostgres() {
		app.logger.Warn("no database DSN configured, using in-memory storage")
		store := memorystore.NewStore()
		return repositories{urls: store.URLs(), checks: store.Checks()}, nil
	}

	if app.cfg.DB.MigrateOnStart {
		if err := pgstore.Migrate(ctx, app.cfg.DB.DSN); err != nil {
			return repositories{}, fmt.Errorf("database migration failed: %w", err)
		}
		app.logger.Info("database migrations applied")
	}

	db, err := pgstore.New(ctx, pgstore.Config{
		DSN:             app.cfg.DB.DSN,
		MaxConns:        app.cfg.DB.MaxConns,
		MinConns:        app.cfg.DB.MinConns,
		MaxConnLifetime: app.cfg.DB.MaxConnLifetime,
		QueryTimeout:    app.cfg.DB.QueryTimeout,
	})
	if err != nil {
		return repositories{}, fmt.Errorf("database init failed: %w", err)
	}
	app.db = db
	app.logger.Info("postgres storage initialized",
		zap.Int32("max_conns", app.cfg.DB.MaxConns),
		zap.Duration("query_timeout", app.cfg.DB.QueryTimeout),
	)
	return repositories{urls: db.URLs(), checks: db.Checks(), pinger: db}, nil
}

// Handler returns the root HTTP handler, traced when telemetry is enabled.
func (a *App) Handler() http.Handler {
	h := a.apiServer.Handler()
	if a.cfg.Telemetry.Enabled {
		h = otelhttp.NewHandler(h, a.cfg.Telemetry.ServiceName)
	}
	return h
}

// Run starts the application and blocks until the context is canceled or
// SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	closeErr := a.Close(shutdownCtx)

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return closeErr
	}
}

// Close releases the database pool and flushes observability.
func (a *App) Close(ctx context.Context) error {
	if a.db != nil {
		a.db.Close()
	}
	var errs []error
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	a.logger.Info("shutdown complete")
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
