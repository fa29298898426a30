package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/engram-srs/engram/internal/api/shared"
	"github.com/engram-srs/engram/internal/domain"
	"github.com/engram-srs/engram/internal/platform/logger"
	"github.com/engram-srs/engram/internal/redact"
	"github.com/engram-srs/engram/internal/service/scheduler"
)

// SchedulerHandler handles card-selection, rating, and session HTTP
// requests.
type SchedulerHandler struct {
	service scheduler.SchedulerService
	logger  *slog.Logger
}

// NewSchedulerHandler creates a new SchedulerHandler.
func NewSchedulerHandler(service scheduler.SchedulerService, logger *slog.Logger) *SchedulerHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for SchedulerHandler")
	}
	return &SchedulerHandler{
		service: service,
		logger:  logger.With(slog.String("component", "scheduler_handler")),
	}
}

// GetNext handles GET /decks/{id}/next requests. The allow_new query
// parameter (default true) permits offering a new card when nothing is
// due. Responds 204 when no card can be offered.
func (h *SchedulerHandler) GetNext(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	deckID, ok := pathUUID(w, r, "id", "Deck")
	if !ok {
		return
	}
	opts := scheduler.NextOptions{AllowNew: r.URL.Query().Get("allow_new") != "false"}

	card, err := h.service.GetNext(r.Context(), deckID, opts)
	if errors.Is(err, scheduler.ErrNoCardAvailable) {
		log.Debug("no card available", slog.String("deck_id", deckID.String()))
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cardToResponse(card))
}

// GetNextForGroup handles GET /groups/{tag}/next requests: GetNext
// over the union of all decks sharing the tag.
func (h *SchedulerHandler) GetNextForGroup(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	tag := chi.URLParam(r, "tag")
	if tag == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Tag is required")
		return
	}
	opts := scheduler.NextOptions{AllowNew: r.URL.Query().Get("allow_new") != "false"}

	card, err := h.service.GetNextForGroup(r.Context(), tag, opts)
	if errors.Is(err, scheduler.ErrNoCardAvailable) {
		log.Debug("no card available", slog.String("tag", tag))
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cardToResponse(card))
}

// RateRequest represents the request body for rating a card.
type RateRequest struct {
	Rating    string `json:"rating" validate:"required,oneof=again hard good easy"`
	ElapsedMs int64  `json:"elapsed_ms" validate:"gte=0"`
}

// Rate handles POST /cards/{id}/rate requests. The rating applies
// atomically: card state, review log, and session counters either all
// update or none do.
func (h *SchedulerHandler) Rate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	cardID, ok := pathUUID(w, r, "id", "Card")
	if !ok {
		return
	}

	var req RateRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("card_id", cardID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	card, err := h.service.Rate(r.Context(), cardID, domain.Rating(req.Rating),
		time.Duration(req.ElapsedMs)*time.Millisecond)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("rated card",
		slog.String("card_id", cardID.String()),
		slog.String("rating", req.Rating))
	shared.RespondWithJSON(w, r, http.StatusOK, cardToResponse(card))
}

// Preview handles GET /cards/{id}/preview requests: the projected
// outcome of each possible rating, without mutating anything.
func (h *SchedulerHandler) Preview(w http.ResponseWriter, r *http.Request) {
	cardID, ok := pathUUID(w, r, "id", "Card")
	if !ok {
		return
	}

	preview, err := h.service.Preview(r.Context(), cardID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, previewToResponse(preview))
}

// StartSession handles POST /decks/{id}/sessions requests.
func (h *SchedulerHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	deckID, ok := pathUUID(w, r, "id", "Deck")
	if !ok {
		return
	}

	session, err := h.service.StartSession(r.Context(), deckID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, sessionToResponse(session))
}

// ResumeSession handles POST /decks/{id}/sessions/resume requests:
// returns the deck's open session, starting one if none is open.
func (h *SchedulerHandler) ResumeSession(w http.ResponseWriter, r *http.Request) {
	deckID, ok := pathUUID(w, r, "id", "Deck")
	if !ok {
		return
	}

	session, err := h.service.ResumeSession(r.Context(), deckID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(session))
}

// GetSessionProgress handles GET /sessions/{id} requests.
func (h *SchedulerHandler) GetSessionProgress(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUUID(w, r, "id", "Session")
	if !ok {
		return
	}

	session, err := h.service.GetSessionProgress(r.Context(), sessionID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(session))
}

// EndSession handles POST /sessions/{id}/end requests. Ending an
// already ended session succeeds without changing its end time.
func (h *SchedulerHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUUID(w, r, "id", "Session")
	if !ok {
		return
	}

	if err := h.service.EndSession(r.Context(), sessionID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetDailyCounts handles GET /decks/{id}/counts requests: the deck's
// due/new counts and today's quota consumption.
func (h *SchedulerHandler) GetDailyCounts(w http.ResponseWriter, r *http.Request) {
	deckID, ok := pathUUID(w, r, "id", "Deck")
	if !ok {
		return
	}

	counts, err := h.service.GetDailyCounts(r.Context(), deckID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, counts)
}

// pathUUID extracts and parses a UUID path parameter, writing a 400
// response on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, param, label string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, param)
	if raw == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, label+" ID is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid "+label+" ID format")
		return uuid.Nil, false
	}
	return id, true
}
