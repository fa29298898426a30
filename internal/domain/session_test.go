package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewReviewSession(t *testing.T) {
	t.Parallel()

	deckID := uuid.New()
	session, err := NewReviewSession(deckID, 12)
	if err != nil {
		t.Fatalf("NewReviewSession() unexpected error: %v", err)
	}

	if session.DeckID != deckID {
		t.Errorf("DeckID = %v, want %v", session.DeckID, deckID)
	}
	if session.GoalTotal != 12 {
		t.Errorf("GoalTotal = %d, want 12", session.GoalTotal)
	}
	if session.DoneUnique != 0 {
		t.Errorf("DoneUnique = %d, want 0", session.DoneUnique)
	}
	if !session.IsOpen() {
		t.Error("a new session should be open")
	}
}

func TestNewReviewSessionRejectsNegativeGoal(t *testing.T) {
	t.Parallel()

	if _, err := NewReviewSession(uuid.New(), -1); err != ErrNegativeGoal {
		t.Errorf("NewReviewSession() error = %v, want %v", err, ErrNegativeGoal)
	}
}

// TestReviewSessionEndIdempotent verifies ending twice keeps the
// original end time.
func TestReviewSessionEndIdempotent(t *testing.T) {
	t.Parallel()

	session, err := NewReviewSession(uuid.New(), 5)
	if err != nil {
		t.Fatalf("NewReviewSession() unexpected error: %v", err)
	}

	first := time.Date(2026, 8, 10, 10, 0, 0, 0, time.UTC)
	session.End(first)

	if session.IsOpen() {
		t.Fatal("session should be closed after End")
	}
	if !session.EndedAt.Equal(first) {
		t.Errorf("EndedAt = %v, want %v", session.EndedAt, first)
	}

	session.End(first.Add(time.Hour))
	if !session.EndedAt.Equal(first) {
		t.Errorf("second End changed EndedAt to %v, want %v", session.EndedAt, first)
	}
}
