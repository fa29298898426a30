package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/engram-srs/engram/internal/config"
	"github.com/engram-srs/engram/internal/domain/fsrs"
	"github.com/engram-srs/engram/internal/platform/postgres"
	"github.com/engram-srs/engram/internal/service/forecast"
	"github.com/engram-srs/engram/internal/service/scheduler"
	"github.com/engram-srs/engram/internal/store"
)

// application holds all the shared application dependencies to
// simplify management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	cardStore    store.CardStore
	deckStore    store.DeckStore
	logStore     store.ReviewLogStore
	sessionStore store.SessionStore

	// Services
	engine           *fsrs.Engine
	schedulerService scheduler.SchedulerService
	forecastService  forecast.ForecastService
}

// newApplication creates a new application instance with all
// dependencies initialized.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: database connection required", store.ErrNotInitialized)
	}

	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	app.cardStore = postgres.NewPostgresCardStore(db, logger)
	app.deckStore = postgres.NewPostgresDeckStore(db, logger)
	app.logStore = postgres.NewPostgresReviewLogStore(db, logger)
	app.sessionStore = postgres.NewPostgresSessionStore(db, logger)

	app.engine = fsrs.NewEngine(fsrs.NewParams(fsrs.ParamsConfig{
		GrowthFactor:        cfg.FSRS.GrowthFactor,
		RetrievabilitySlope: cfg.FSRS.RetrievabilitySlope,
		LapseFactor:         cfg.FSRS.LapseFactor,
		MaxIntervalDays:     cfg.FSRS.MaxIntervalDays,
	}), logger)

	app.schedulerService = scheduler.NewSchedulerService(
		db,
		app.cardStore,
		app.deckStore,
		app.logStore,
		app.sessionStore,
		app.engine,
		logger,
	)

	app.forecastService = forecast.NewForecastService(
		app.cardStore,
		app.deckStore,
		app.logStore,
		app.engine,
		logger,
	)

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}
	app.logger.Info("Application shutdown completed")
}
