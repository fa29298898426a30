package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewCard(t *testing.T) {
	t.Parallel()

	deckID := uuid.New()
	card, err := NewCard(deckID, 3)
	if err != nil {
		t.Fatalf("NewCard() unexpected error: %v", err)
	}

	if card.State != CardStateNew {
		t.Errorf("State = %q, want %q", card.State, CardStateNew)
	}
	if card.DeckID != deckID {
		t.Errorf("DeckID = %v, want %v", card.DeckID, deckID)
	}
	if card.Position != 3 {
		t.Errorf("Position = %d, want 3", card.Position)
	}
	if card.LastReviewedAt != nil {
		t.Error("LastReviewedAt should be nil before the first review")
	}
	if !card.IsDue(time.Now().UTC()) {
		t.Error("a new card should be immediately due")
	}
}

func TestCardValidate(t *testing.T) {
	t.Parallel()

	valid := Card{
		ID:        uuid.New(),
		DeckID:    uuid.New(),
		State:     CardStateReview,
		Stability: 2.5,
	}

	tests := []struct {
		name    string
		mutate  func(c *Card)
		wantErr error
	}{
		{
			name:    "valid review card",
			mutate:  func(c *Card) {},
			wantErr: nil,
		},
		{
			name:    "empty ID",
			mutate:  func(c *Card) { c.ID = uuid.Nil },
			wantErr: ErrEmptyCardID,
		},
		{
			name:    "empty deck ID",
			mutate:  func(c *Card) { c.DeckID = uuid.Nil },
			wantErr: ErrEmptyCardDeckID,
		},
		{
			name:    "invalid state",
			mutate:  func(c *Card) { c.State = "suspended" },
			wantErr: ErrInvalidCardState,
		},
		{
			name: "review card without stability",
			mutate: func(c *Card) {
				c.Stability = 0
			},
			wantErr: ErrInvalidStability,
		},
		{
			name: "new card may have zero stability",
			mutate: func(c *Card) {
				c.State = CardStateNew
				c.Stability = 0
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			card := valid
			tt.mutate(&card)

			if err := card.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestCardIsMature pins the strict maturity boundary: exactly 21 days
// of stability is not mature, anything above is.
func TestCardIsMature(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		state     CardState
		stability float64
		want      bool
	}{
		{"new card never mature", CardStateNew, 100, false},
		{"review below threshold", CardStateReview, 5, false},
		{"review exactly at threshold", CardStateReview, 21.0, false},
		{"review just above threshold", CardStateReview, 21.0 + 1.0/1440.0, true},
		{"review far above threshold", CardStateReview, 365, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			card := Card{State: tt.state, Stability: tt.stability}
			if got := card.IsMature(); got != tt.want {
				t.Errorf("IsMature() with stability %v = %v, want %v", tt.stability, got, tt.want)
			}
		})
	}
}

func TestCardClone(t *testing.T) {
	t.Parallel()

	reviewed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	card := Card{
		ID:             uuid.New(),
		DeckID:         uuid.New(),
		State:          CardStateReview,
		Stability:      3,
		LastReviewedAt: &reviewed,
	}

	clone := card.Clone()
	clone.Stability = 99
	*clone.LastReviewedAt = reviewed.AddDate(0, 0, 7)

	if card.Stability != 3 {
		t.Errorf("mutating the clone changed the original stability: %v", card.Stability)
	}
	if !card.LastReviewedAt.Equal(reviewed) {
		t.Errorf("mutating the clone changed the original LastReviewedAt: %v", card.LastReviewedAt)
	}
}
