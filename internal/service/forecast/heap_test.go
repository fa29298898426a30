package forecast

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/engram-srs/engram/internal/domain"
)

func simCard(id uuid.UUID) *domain.Card {
	return &domain.Card{ID: id, State: domain.CardStateReview, Stability: 3}
}

func TestEventHeapPopsByDueTime(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	h := newEventHeap([]*simEvent{
		{card: simCard(uuid.New()), due: base.AddDate(0, 0, 3)},
		{card: simCard(uuid.New()), due: base},
		{card: simCard(uuid.New()), due: base.AddDate(0, 0, 1)},
	})

	var popped []time.Time
	for h.Len() > 0 {
		popped = append(popped, h.pop().due)
	}

	for i := 1; i < len(popped); i++ {
		if popped[i].Before(popped[i-1]) {
			t.Fatalf("heap order violated: %v before %v", popped[i], popped[i-1])
		}
	}
}

// TestEventHeapTieBreak pins the stable tie-break: equal due times pop
// in card-ID order, so identical inputs replay identically.
func TestEventHeapTieBreak(t *testing.T) {
	t.Parallel()

	due := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	c := uuid.MustParse("00000000-0000-0000-0000-00000000000c")

	h := newEventHeap([]*simEvent{
		{card: simCard(c), due: due},
		{card: simCard(a), due: due},
		{card: simCard(b), due: due},
	})

	for _, want := range []uuid.UUID{a, b, c} {
		if got := h.pop().card.ID; got != want {
			t.Fatalf("pop order = %v, want %v", got, want)
		}
	}
}

func TestEventHeapPeek(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	h := newEventHeap(nil)
	if h.peek() != nil {
		t.Fatal("peek on empty heap should return nil")
	}

	h.push(&simEvent{card: simCard(uuid.New()), due: base.AddDate(0, 0, 2)})
	h.push(&simEvent{card: simCard(uuid.New()), due: base})

	if got := h.peek().due; !got.Equal(base) {
		t.Errorf("peek().due = %v, want %v", got, base)
	}
	if h.Len() != 2 {
		t.Errorf("peek must not remove: Len() = %d, want 2", h.Len())
	}
}
