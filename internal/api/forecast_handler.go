package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/engram-srs/engram/internal/api/shared"
	"github.com/engram-srs/engram/internal/service/forecast"
)

// ForecastHandler handles workload-projection HTTP requests.
type ForecastHandler struct {
	service        forecast.ForecastService
	defaultHorizon int
	logger         *slog.Logger
}

// NewForecastHandler creates a new ForecastHandler. defaultHorizon
// applies when a request does not name a horizon.
func NewForecastHandler(service forecast.ForecastService, defaultHorizon int, logger *slog.Logger) *ForecastHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ForecastHandler")
	}
	return &ForecastHandler{
		service:        service,
		defaultHorizon: defaultHorizon,
		logger:         logger.With(slog.String("component", "forecast_handler")),
	}
}

// ProjectBacklog handles GET /decks/{id}/forecast/backlog requests.
// The days query parameter sets the horizon.
func (h *ForecastHandler) ProjectBacklog(w http.ResponseWriter, r *http.Request) {
	deckID, ok := pathUUID(w, r, "id", "Deck")
	if !ok {
		return
	}
	days, ok := h.horizonParam(w, r)
	if !ok {
		return
	}

	result, err := h.service.ProjectBacklog(r.Context(), deckID, days)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// ProjectBacklogForGroup handles GET /groups/{tag}/forecast/backlog
// requests.
func (h *ForecastHandler) ProjectBacklogForGroup(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	if tag == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Tag is required")
		return
	}
	days, ok := h.horizonParam(w, r)
	if !ok {
		return
	}

	result, err := h.service.ProjectBacklogForGroup(r.Context(), tag, days)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// SimulateMaturity handles GET /decks/{id}/forecast/maturity requests.
func (h *ForecastHandler) SimulateMaturity(w http.ResponseWriter, r *http.Request) {
	deckID, ok := pathUUID(w, r, "id", "Deck")
	if !ok {
		return
	}
	days, ok := h.horizonParam(w, r)
	if !ok {
		return
	}

	result, err := h.service.SimulateMaturity(r.Context(), deckID, days)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// SimulateMaturityForGroup handles GET /groups/{tag}/forecast/maturity
// requests.
func (h *ForecastHandler) SimulateMaturityForGroup(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	if tag == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Tag is required")
		return
	}
	days, ok := h.horizonParam(w, r)
	if !ok {
		return
	}

	result, err := h.service.SimulateMaturityForGroup(r.Context(), tag, days)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// horizonParam reads the days query parameter, falling back to the
// configured default. Range validation happens in the service.
func (h *ForecastHandler) horizonParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return h.defaultHorizon, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid days parameter")
		return 0, false
	}
	return days, true
}
