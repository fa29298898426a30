package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for ReviewLog.
var (
	ErrEmptyLogID     = errors.New("review log ID cannot be empty")
	ErrEmptyLogCardID = errors.New("review log card ID cannot be empty")
)

// ReviewLog is the immutable audit record appended after every rating.
// It captures the full memory state before and after the rating so the
// review history can be audited or re-simulated without loss.
type ReviewLog struct {
	ID            uuid.UUID  `json:"id"`
	CardID        uuid.UUID  `json:"card_id"`
	DeckID        uuid.UUID  `json:"deck_id"`
	SessionID     *uuid.UUID `json:"session_id"` // nil when rated outside a session
	Rating        Rating     `json:"rating"`
	ReviewedAt    time.Time  `json:"reviewed_at"`
	ElapsedMs     int64      `json:"elapsed_ms"` // Time since the previous review of this card
	OldState      CardState  `json:"old_state"`
	OldStability  float64    `json:"old_stability"`
	OldDifficulty float64    `json:"old_difficulty"`
	OldDueAt      time.Time  `json:"old_due_at"`
	NewState      CardState  `json:"new_state"`
	NewStability  float64    `json:"new_stability"`
	NewDifficulty float64    `json:"new_difficulty"`
	NewDueAt      time.Time  `json:"new_due_at"`
}

// Validate checks the log entry's structural invariants.
func (l *ReviewLog) Validate() error {
	if l.ID == uuid.Nil {
		return ErrEmptyLogID
	}
	if l.CardID == uuid.Nil {
		return ErrEmptyLogCardID
	}
	if !l.Rating.IsValid() {
		return ErrInvalidRating
	}
	return nil
}
