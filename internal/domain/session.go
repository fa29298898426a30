package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for ReviewSession.
var (
	ErrEmptySessionID     = errors.New("session ID cannot be empty")
	ErrEmptySessionDeckID = errors.New("session deck ID cannot be empty")
	ErrNegativeGoal       = errors.New("session goal cannot be negative")
)

// ReviewSession records one sitting of study against a deck or deck
// group. GoalTotal is a snapshot computed at session start from the
// due and new counts capped by the profile quotas; it is never
// recomputed mid-session. DoneUnique counts distinct card IDs rated in
// the session, incrementing at most once per card.
type ReviewSession struct {
	ID         uuid.UUID  `json:"id"`
	DeckID     uuid.UUID  `json:"deck_id"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at"` // nil while the session is open
	GoalTotal  int        `json:"goal_total"`
	DoneUnique int        `json:"done_unique"`
}

// NewReviewSession starts a session against the given deck with a
// snapshotted goal.
func NewReviewSession(deckID uuid.UUID, goalTotal int) (*ReviewSession, error) {
	session := &ReviewSession{
		ID:        uuid.New(),
		DeckID:    deckID,
		StartedAt: time.Now().UTC(),
		GoalTotal: goalTotal,
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}

	return session, nil
}

// Validate checks the session's structural invariants.
func (s *ReviewSession) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptySessionID
	}
	if s.DeckID == uuid.Nil {
		return ErrEmptySessionDeckID
	}
	if s.GoalTotal < 0 {
		return ErrNegativeGoal
	}
	return nil
}

// IsOpen reports whether the session has not been ended.
func (s *ReviewSession) IsOpen() bool {
	return s.EndedAt == nil
}

// End closes the session at the given time. Ending an already ended
// session is a no-op; the original end time is kept.
func (s *ReviewSession) End(now time.Time) {
	if s.EndedAt != nil {
		return
	}
	t := now.UTC()
	s.EndedAt = &t
}
