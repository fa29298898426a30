package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/engram-srs/engram/internal/api"
	apiMiddleware "github.com/engram-srs/engram/internal/api/middleware"
	"github.com/engram-srs/engram/internal/platform/metrics"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	schedulerHandler := api.NewSchedulerHandler(app.schedulerService, app.logger)
	forecastHandler := api.NewForecastHandler(
		app.forecastService,
		app.config.Forecast.DefaultHorizonDays,
		app.logger,
	)

	r.Route("/api", func(r chi.Router) {
		// Card selection and rating
		r.Get("/decks/{id}/next", schedulerHandler.GetNext)
		r.Get("/groups/{tag}/next", schedulerHandler.GetNextForGroup)
		r.Post("/cards/{id}/rate", schedulerHandler.Rate)
		r.Get("/cards/{id}/preview", schedulerHandler.Preview)

		// Sessions and quota counts
		r.Post("/decks/{id}/sessions", schedulerHandler.StartSession)
		r.Post("/decks/{id}/sessions/resume", schedulerHandler.ResumeSession)
		r.Get("/sessions/{id}", schedulerHandler.GetSessionProgress)
		r.Post("/sessions/{id}/end", schedulerHandler.EndSession)
		r.Get("/decks/{id}/counts", schedulerHandler.GetDailyCounts)

		// Forecasts
		r.Get("/decks/{id}/forecast/backlog", forecastHandler.ProjectBacklog)
		r.Get("/decks/{id}/forecast/maturity", forecastHandler.SimulateMaturity)
		r.Get("/groups/{tag}/forecast/backlog", forecastHandler.ProjectBacklogForGroup)
		r.Get("/groups/{tag}/forecast/maturity", forecastHandler.SimulateMaturityForGroup)
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
