package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/calebmoore/lessonforge-api/internal/config"
	"github.com/calebmoore/lessonforge-api/internal/coordinator"
	"github.com/calebmoore/lessonforge-api/internal/events"
	"github.com/calebmoore/lessonforge-api/internal/notify"
	"github.com/calebmoore/lessonforge-api/internal/platform/gemini"
	"github.com/calebmoore/lessonforge-api/internal/platform/metrics"
	"github.com/calebmoore/lessonforge-api/internal/platform/postgres"
	"github.com/calebmoore/lessonforge-api/internal/service"
	"github.com/calebmoore/lessonforge-api/internal/store"
	"github.com/calebmoore/lessonforge-api/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger  *slog.Logger
	db      *sql.DB
	metrics *metrics.Metrics

	// Stores (using interfaces for proper abstraction)
	jobStore     store.JobStore
	cacheStore   store.CacheStore
	historyStore store.HistoryStore

	// Collaborators
	generator *gemini.Generator
	notifier  notify.Notifier
	coord     *coordinator.Coordinator

	// Service interfaces
	jobService service.JobService

	// Event system
	eventEmitter events.EventEmitter

	// Task handling
	taskQueue  *task.TaskQueue
	taskRunner *task.TaskRunner
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger, and
// database connection that must be established before application
// initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
	}

	// Initialize stores
	app.jobStore = postgres.NewPostgresJobStore(db)
	app.cacheStore = postgres.NewPostgresCacheStore(db)
	app.historyStore = postgres.NewPostgresHistoryStore(db)

	// Create the LLM generator, which serves as both the content generator
	// and the research provider
	var err error
	app.generator, err = gemini.NewGenerator(
		ctx,
		logger.With("component", "llm_generator"),
		cfg.LLM,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
	}
	logger.Info("LLM generator initialized successfully")

	// Initialize the notifier and the coordinator
	app.notifier = notify.NewLogNotifier(logger)
	app.coord = coordinator.New(
		app.generator,
		app.generator,
		app.cacheStore,
		cfg.Coordinator.MinQuorum,
		app.metrics,
	)

	// Initialize the task queue and runner
	app.taskQueue = task.NewTaskQueue(cfg.Task.QueueSize, logger)

	taskFactory := task.NewGenerationTaskFactory(
		app.jobStore,
		app.historyStore,
		app.coord,
		app.notifier,
		app.metrics,
		logger,
	)

	app.taskRunner = task.NewTaskRunner(
		app.jobStore,
		app.cacheStore,
		app.taskQueue,
		taskFactory,
		app.notifier,
		app.metrics,
		task.TaskRunnerConfig{
			WorkerCount:    cfg.Task.WorkerCount,
			JobTimeout:     time.Duration(cfg.Task.JobTimeoutMinutes) * time.Minute,
			ReaperInterval: time.Duration(cfg.Task.ReaperIntervalSeconds) * time.Second,
			SweepInterval:  time.Duration(cfg.Cache.SweepIntervalMinutes) * time.Minute,
			EvictionPolicy: store.EvictionPolicy{
				Retention:   time.Duration(cfg.Cache.RetentionDays) * 24 * time.Hour,
				UnusedFor:   time.Duration(cfg.Cache.UnusedDays) * 24 * time.Hour,
				MaxUseCount: int64(cfg.Cache.MinUseCount),
			},
		},
		logger,
	)
	if err := app.taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	// Initialize event emitter and register the job event handler so
	// submissions flow onto the queue
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(task.NewJobEventHandler(app.jobStore, taskFactory, app.taskQueue, logger))
	app.eventEmitter = emitter

	// Initialize job service
	jobRepoAdapter := service.NewJobRepositoryAdapter(app.jobStore, db)
	app.jobService, err = service.NewJobService(
		jobRepoAdapter,
		app.eventEmitter,
		app.metrics,
		cfg.Task.MaxAttempts,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	// Stop task runner
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	// Close database connection
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
