// Package scheduler implements quota-aware, session-tracked card
// selection: due reviews before new cards, per-profile daily caps with
// a configurable rollover hour, and atomic rating application through
// the memory-model engine.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/engram-srs/engram/internal/domain"
	"github.com/engram-srs/engram/internal/domain/fsrs"
)

// Common error types for the scheduler service.
var (
	// ErrNoCardAvailable indicates that no card can be offered right
	// now: nothing is due and either new cards are excluded or their
	// quota is exhausted. This is a normal outcome, not a failure.
	ErrNoCardAvailable = errors.New("no card available")

	// ErrCardNotFound indicates that the card does not exist.
	ErrCardNotFound = errors.New("card not found")

	// ErrDeckNotFound indicates that the deck (or deck group) does not
	// exist.
	ErrDeckNotFound = errors.New("deck not found")

	// ErrSessionNotFound indicates that the review session does not
	// exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidRating indicates an invalid rating value was provided.
	ErrInvalidRating = errors.New("invalid rating")
)

// NextOptions controls a single getNext decision.
type NextOptions struct {
	// AllowNew permits offering a new card when no review card is
	// eligible. Due review cards always take precedence regardless.
	AllowNew bool
}

// DailyCounts is the quota/count snapshot exposed to callers.
type DailyCounts struct {
	DueCount          int `json:"due_count"`
	NewCount          int `json:"new_count"`
	NewRatedToday     int `json:"new_rated_today"`
	ReviewsRatedToday int `json:"reviews_rated_today"`
	NewRemaining      int `json:"new_remaining"`
	ReviewsRemaining  int `json:"reviews_remaining"`
}

// ProfileResolver resolves the effective scheduling profile for a deck
// group tag. Tag-hierarchy resolution (most-specific tag wins) is
// external to this core; callers supply it as a pure function.
type ProfileResolver func(ctx context.Context, tag string) (*domain.Profile, error)

// SchedulerService orchestrates card selection, rating, and session
// lifecycle for decks and deck groups.
type SchedulerService interface {
	// GetNext returns the next card to present for the deck: the first
	// eligible due review card, else (when allowed and under quota) the
	// next new card in insertion order.
	// Returns ErrNoCardAvailable when nothing can be offered.
	GetNext(ctx context.Context, deckID uuid.UUID, opts NextOptions) (*domain.Card, error)

	// GetNextForGroup behaves like GetNext over the union of all decks
	// sharing the tag, with quotas evaluated against the aggregate
	// group.
	GetNextForGroup(ctx context.Context, tag string, opts NextOptions) (*domain.Card, error)

	// Rate applies a rating to the card as one atomic unit: load
	// state, run the memory model, persist the card, append the
	// immutable review log, and update quota/session counters. An
	// unknown card ID fails without side effects.
	Rate(ctx context.Context, cardID uuid.UUID, rating domain.Rating, elapsed time.Duration) (*domain.Card, error)

	// Preview returns the outcome of each possible rating for the card
	// without mutating anything.
	Preview(ctx context.Context, cardID uuid.UUID) (map[domain.Rating]*fsrs.Outcome, error)

	// StartSession opens a review session for the deck. The goal total
	// is snapshotted from the current due and new counts capped by the
	// profile quotas, and is not recomputed mid-session.
	StartSession(ctx context.Context, deckID uuid.UUID) (*domain.ReviewSession, error)

	// ResumeSession returns the deck's open session, starting a new
	// one if none is open.
	ResumeSession(ctx context.Context, deckID uuid.UUID) (*domain.ReviewSession, error)

	// GetSessionProgress returns the session's current state.
	// Returns ErrSessionNotFound for an unknown ID, without side
	// effects.
	GetSessionProgress(ctx context.Context, sessionID uuid.UUID) (*domain.ReviewSession, error)

	// EndSession closes the session (idempotent). Returns
	// ErrSessionNotFound for an unknown ID, without side effects.
	EndSession(ctx context.Context, sessionID uuid.UUID) error

	// GetDailyCounts returns the deck's due/new counts and today's
	// quota consumption.
	GetDailyCounts(ctx context.Context, deckID uuid.UUID) (DailyCounts, error)
}

// ServiceError wraps scheduler failures with the operation that
// produced them so consumers can differentiate with errors.As.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}
