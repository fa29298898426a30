package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engram-srs/engram/internal/domain"
	"github.com/engram-srs/engram/internal/mocks"
	"github.com/engram-srs/engram/internal/service/scheduler"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func schedulerRouter(svc scheduler.SchedulerService) http.Handler {
	h := NewSchedulerHandler(svc, testLogger())
	r := chi.NewRouter()
	r.Get("/decks/{id}/next", h.GetNext)
	r.Get("/groups/{tag}/next", h.GetNextForGroup)
	r.Post("/cards/{id}/rate", h.Rate)
	r.Get("/cards/{id}/preview", h.Preview)
	r.Post("/decks/{id}/sessions", h.StartSession)
	r.Post("/sessions/{id}/end", h.EndSession)
	r.Get("/sessions/{id}", h.GetSessionProgress)
	r.Get("/decks/{id}/counts", h.GetDailyCounts)
	return r
}

func testCard() *domain.Card {
	return &domain.Card{
		ID:         uuid.New(),
		DeckID:     uuid.New(),
		State:      domain.CardStateReview,
		Stability:  25,
		Difficulty: 4,
		Reps:       8,
		DueAt:      time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestGetNextReturnsCard(t *testing.T) {
	t.Parallel()

	card := testCard()
	var gotOpts scheduler.NextOptions
	svc := &mocks.MockSchedulerService{
		GetNextFn: func(ctx context.Context, deckID uuid.UUID, opts scheduler.NextOptions) (*domain.Card, error) {
			gotOpts = opts
			return card, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/decks/"+card.DeckID.String()+"/next", nil)
	w := httptest.NewRecorder()
	schedulerRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gotOpts.AllowNew, "allow_new defaults to true")

	var resp CardResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, card.ID.String(), resp.ID)
	assert.Equal(t, "review", resp.State)
	assert.True(t, resp.Mature)
}

func TestGetNextAllowNewFalse(t *testing.T) {
	t.Parallel()

	var gotOpts scheduler.NextOptions
	svc := &mocks.MockSchedulerService{
		GetNextFn: func(ctx context.Context, deckID uuid.UUID, opts scheduler.NextOptions) (*domain.Card, error) {
			gotOpts = opts
			return testCard(), nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/decks/"+uuid.NewString()+"/next?allow_new=false", nil)
	w := httptest.NewRecorder()
	schedulerRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, gotOpts.AllowNew)
}

func TestGetNextNoCardAvailable(t *testing.T) {
	t.Parallel()

	svc := &mocks.MockSchedulerService{
		GetNextFn: func(ctx context.Context, deckID uuid.UUID, opts scheduler.NextOptions) (*domain.Card, error) {
			return nil, scheduler.ErrNoCardAvailable
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/decks/"+uuid.NewString()+"/next", nil)
	w := httptest.NewRecorder()
	schedulerRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestGetNextInvalidDeckID(t *testing.T) {
	t.Parallel()

	svc := &mocks.MockSchedulerService{}
	req := httptest.NewRequest(http.MethodGet, "/decks/not-a-uuid/next", nil)
	w := httptest.NewRecorder()
	schedulerRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetNextUnknownDeck(t *testing.T) {
	t.Parallel()

	svc := &mocks.MockSchedulerService{
		GetNextFn: func(ctx context.Context, deckID uuid.UUID, opts scheduler.NextOptions) (*domain.Card, error) {
			return nil, scheduler.ErrDeckNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/decks/"+uuid.NewString()+"/next", nil)
	w := httptest.NewRecorder()
	schedulerRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Deck not found")
}

func TestRateSuccess(t *testing.T) {
	t.Parallel()

	card := testCard()
	var gotRating domain.Rating
	var gotElapsed time.Duration
	svc := &mocks.MockSchedulerService{
		RateFn: func(ctx context.Context, cardID uuid.UUID, rating domain.Rating, elapsed time.Duration) (*domain.Card, error) {
			gotRating = rating
			gotElapsed = elapsed
			return card, nil
		},
	}

	body := strings.NewReader(`{"rating": "good", "elapsed_ms": 2500}`)
	req := httptest.NewRequest(http.MethodPost, "/cards/"+card.ID.String()+"/rate", body)
	w := httptest.NewRecorder()
	schedulerRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.RatingGood, gotRating)
	assert.Equal(t, 2500*time.Millisecond, gotElapsed)
}

func TestRateRejectsUnknownRating(t *testing.T) {
	t.Parallel()

	called := false
	svc := &mocks.MockSchedulerService{
		RateFn: func(ctx context.Context, cardID uuid.UUID, rating domain.Rating, elapsed time.Duration) (*domain.Card, error) {
			called = true
			return nil, nil
		},
	}

	body := strings.NewReader(`{"rating": "perfect"}`)
	req := httptest.NewRequest(http.MethodPost, "/cards/"+uuid.NewString()+"/rate", body)
	w := httptest.NewRecorder()
	schedulerRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, called, "validation must reject before the service runs")
}

func TestRateRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	svc := &mocks.MockSchedulerService{}
	req := httptest.NewRequest(http.MethodPost, "/cards/"+uuid.NewString()+"/rate",
		strings.NewReader(`{"rating": `))
	w := httptest.NewRecorder()
	schedulerRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateUnknownCard(t *testing.T) {
	t.Parallel()

	svc := &mocks.MockSchedulerService{
		RateFn: func(ctx context.Context, cardID uuid.UUID, rating domain.Rating, elapsed time.Duration) (*domain.Card, error) {
			return nil, scheduler.ErrCardNotFound
		},
	}

	body := strings.NewReader(`{"rating": "again"}`)
	req := httptest.NewRequest(http.MethodPost, "/cards/"+uuid.NewString()+"/rate", body)
	w := httptest.NewRecorder()
	schedulerRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Card not found")
}

func TestStartSessionCreated(t *testing.T) {
	t.Parallel()

	deckID := uuid.New()
	svc := &mocks.MockSchedulerService{
		StartSessionFn: func(ctx context.Context, id uuid.UUID) (*domain.ReviewSession, error) {
			session, err := domain.NewReviewSession(id, 12)
			require.NoError(t, err)
			return session, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/decks/"+deckID.String()+"/sessions", nil)
	w := httptest.NewRecorder()
	schedulerRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp SessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, deckID.String(), resp.DeckID)
	assert.Equal(t, 12, resp.GoalTotal)
	assert.Nil(t, resp.EndedAt)
}

func TestEndSessionNoContent(t *testing.T) {
	t.Parallel()

	svc := &mocks.MockSchedulerService{
		EndSessionFn: func(ctx context.Context, sessionID uuid.UUID) error {
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+uuid.NewString()+"/end", nil)
	w := httptest.NewRecorder()
	schedulerRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestGetDailyCounts(t *testing.T) {
	t.Parallel()

	svc := &mocks.MockSchedulerService{
		GetDailyCountsFn: func(ctx context.Context, deckID uuid.UUID) (scheduler.DailyCounts, error) {
			return scheduler.DailyCounts{DueCount: 7, NewCount: 3, NewRemaining: 2}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/decks/"+uuid.NewString()+"/counts", nil)
	w := httptest.NewRecorder()
	schedulerRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp scheduler.DailyCounts
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 7, resp.DueCount)
	assert.Equal(t, 2, resp.NewRemaining)
}
