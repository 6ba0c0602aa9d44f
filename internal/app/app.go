// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auditpostgres "github.com/hirewell/interview-reminders/internal/audit/postgres"
	"github.com/hirewell/interview-reminders/internal/config"
	interviewspostgres "github.com/hirewell/interview-reminders/internal/interviews/postgres"
	"github.com/hirewell/interview-reminders/internal/monitoring"
	"github.com/hirewell/interview-reminders/internal/pkg/httputil"
	"github.com/hirewell/interview-reminders/internal/pkg/metrics"
	"github.com/hirewell/interview-reminders/internal/pkg/postgres"
	"github.com/hirewell/interview-reminders/internal/queue"
	queuepostgres "github.com/hirewell/interview-reminders/internal/queue/postgres"
	"github.com/hirewell/interview-reminders/internal/reminders"
	"github.com/hirewell/interview-reminders/internal/reminders/email"
	"github.com/hirewell/interview-reminders/internal/scheduler"
	"github.com/hirewell/interview-reminders/internal/version"
	"github.com/hirewell/interview-reminders/migrations"
)

// App represents the application instance: the reminder pipeline plus the
// monitoring HTTP surface. All components are composed here explicitly; the
// queue instance is injected into both the scheduler and the worker.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc

	reminderQueue *queue.Queue
	schedulerLoop *scheduler.Scheduler
	workerPool    *queue.Worker
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := runMigrations(cfg.Database.URL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		metricsCancel: metricsCancel,
	}

	if err := app.setupPipeline(); err != nil {
		db.Close()
		metricsCancel()
		return nil, fmt.Errorf("setup pipeline: %w", err)
	}

	go app.collectDBMetrics(metricsCtx)
	go app.collectQueueMetrics(metricsCtx)

	router := app.setupRouter()

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// setupPipeline wires the queue, scheduler and worker pool.
func (a *App) setupPipeline() error {
	cfg := a.config

	retry := queue.RetryPolicy{
		MaxAttempts:    cfg.Queue.MaxAttempts,
		InitialBackoff: cfg.Queue.InitialBackoff,
		Multiplier:     cfg.Queue.Multiplier,
		MaxBackoff:     cfg.Queue.MaxBackoff,
	}
	retention := queue.RetentionPolicy{
		MaxCompleted: cfg.Queue.KeepCompleted,
		MaxFailed:    cfg.Queue.KeepFailed,
	}

	a.reminderQueue = queue.New(queuepostgres.NewStorage(a.db), retry, retention)

	store := interviewspostgres.NewStore(a.db)

	sender, err := email.NewSender(email.Config{
		Enabled:      cfg.Email.Enabled,
		SMTPHost:     cfg.Email.SMTPHost,
		SMTPPort:     cfg.Email.SMTPPort,
		SMTPUser:     cfg.Email.SMTPUser,
		SMTPPassword: cfg.Email.SMTPPassword,
		FromAddress:  cfg.Email.FromAddress,
		RateLimit:    cfg.Email.RateLimit,
	})
	if err != nil {
		return fmt.Errorf("create email sender: %w", err)
	}

	if !cfg.Email.Enabled {
		slog.Warn("email sender is disabled: reminders will be marked sent without delivery")
	}

	renderer, err := reminders.NewRenderer()
	if err != nil {
		return fmt.Errorf("create reminder renderer: %w", err)
	}

	processor := reminders.NewProcessor(store, renderer, sender, auditpostgres.NewSink(a.db), cfg.Worker.DispatchTimeout)

	a.workerPool = queue.NewWorker(queue.WorkerConfig{
		NumWorkers:    cfg.Worker.NumWorkers,
		PollInterval:  cfg.Worker.PollInterval,
		PruneInterval: cfg.Worker.PruneInterval,
	}, a.reminderQueue, processor.Process)

	schedulerConfig := scheduler.Config{
		TickInterval: cfg.Scheduler.TickInterval,
		WindowLow:    cfg.Scheduler.WindowLow,
		WindowHigh:   cfg.Scheduler.WindowHigh,
		TickTimeout:  cfg.Scheduler.TickTimeout,
	}
	if err := schedulerConfig.Validate(); err != nil {
		return fmt.Errorf("scheduler config: %w", err)
	}

	a.schedulerLoop = scheduler.New(schedulerConfig, store, a.reminderQueue)

	return nil
}

func (a *App) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	store := interviewspostgres.NewStore(a.db)
	monitoringService := monitoring.NewService(a.reminderQueue, store)
	monitoringHandler := monitoring.NewHandler(monitoringService)

	r.Route("/api/v1", func(r chi.Router) {
		monitoringHandler.RegisterRoutes(r)
	})

	return r
}

// Run starts the pipeline and the HTTP servers. It blocks until the main
// server stops.
func (a *App) Run(ctx context.Context) error {
	a.schedulerLoop.Start(ctx)
	a.workerPool.Start(ctx)

	// Start metrics server in background
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully drains the pipeline: no new ticks are produced,
// in-flight jobs finish their attempt, then servers and the pool close.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	a.metricsCancel()

	a.schedulerLoop.Stop()
	a.workerPool.Stop()

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	a.db.Close()

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) collectDBMetrics(ctx context.Context) {
	// Collect immediately on start
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) collectQueueMetrics(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats, err := a.reminderQueue.Stats(ctx)
			if err != nil {
				slog.Error("failed to get queue stats", "error", err)
				continue
			}
			queue.RecordQueueStats(stats)
		case <-ctx.Done():
			return
		}
	}
}

func runMigrations(databaseURL string) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}

	migrator, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	slog.Info("migrations applied")
	return nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		a.logger.Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
