package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// CardState is the lifecycle state of a card's memory model.
type CardState string

// Possible card lifecycle states. A card starts as new and moves to
// review on its first rating; it never returns to new.
const (
	CardStateNew    CardState = "new"
	CardStateReview CardState = "review"
)

// MatureStabilityDays is the maturity threshold: a review card is
// mature when its stability strictly exceeds this many days. A card at
// exactly 21 days is not mature.
const MatureStabilityDays = 21.0

// Common validation errors for Card.
var (
	ErrEmptyCardID      = errors.New("card ID cannot be empty")
	ErrEmptyCardDeckID  = errors.New("card deck ID cannot be empty")
	ErrInvalidCardState = errors.New("invalid card state")
	ErrInvalidStability = errors.New("stability must be positive for review cards")
)

// Card tracks the spaced-repetition memory state for a single
// flashcard. Stability and Difficulty are only meaningful once the
// card has entered the review state; both are mutated exclusively by
// the fsrs engine.
type Card struct {
	ID             uuid.UUID  `json:"id"`
	DeckID         uuid.UUID  `json:"deck_id"`
	State          CardState  `json:"state"`
	Stability      float64    `json:"stability"`  // Modeled retention half-life in days
	Difficulty     float64    `json:"difficulty"` // 1 (easiest) to 10 (hardest)
	Reps           int        `json:"reps"`       // Total number of ratings applied
	Lapses         int        `json:"lapses"`     // Number of "again" ratings
	Position       int        `json:"position"`   // Insertion order within the deck, for new-card ordering
	DueAt          time.Time  `json:"due_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at"` // nil before first review
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewCard creates a new card in the given deck, immediately due.
func NewCard(deckID uuid.UUID, position int) (*Card, error) {
	now := time.Now().UTC()
	card := &Card{
		ID:        uuid.New(),
		DeckID:    deckID,
		State:     CardStateNew,
		Position:  position,
		DueAt:     now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks the card's structural invariants.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyCardID
	}
	if c.DeckID == uuid.Nil {
		return ErrEmptyCardDeckID
	}
	if c.State != CardStateNew && c.State != CardStateReview {
		return ErrInvalidCardState
	}
	if c.State == CardStateReview && c.Stability <= 0 {
		return ErrInvalidStability
	}
	return nil
}

// IsDue reports whether the card is scheduled at or before now.
func (c *Card) IsDue(now time.Time) bool {
	return !c.DueAt.After(now)
}

// IsMature reports whether the card counts as mature for reporting:
// a review-state card whose stability strictly exceeds 21 days. The
// classification is derived at read time and never persisted.
func (c *Card) IsMature() bool {
	return c.State == CardStateReview && c.Stability > MatureStabilityDays
}

// Clone returns a deep copy of the card. Pointer fields are copied by
// value so the copy can be mutated freely (used by forecast
// simulations, which never write back).
func (c *Card) Clone() *Card {
	out := *c
	if c.LastReviewedAt != nil {
		v := *c.LastReviewedAt
		out.LastReviewedAt = &v
	}
	return &out
}
