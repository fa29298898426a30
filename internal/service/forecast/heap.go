package forecast

import (
	"container/heap"
	"time"

	"github.com/engram-srs/engram/internal/domain"
)

// simEvent is one pending simulated review: an ephemeral card copy
// plus heap bookkeeping. Never persisted.
type simEvent struct {
	card  *domain.Card
	due   time.Time
	count int // Projected reviews generated for this card so far
}

// eventHeap is a binary min-heap of simulated reviews ordered by due
// time, with card ID as the stable tie-break so identical inputs pop
// in identical order.
type eventHeap []*simEvent

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].card.ID.String() < h[j].card.ID.String()
	}
	return h[i].due.Before(h[j].due)
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*simEvent))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return ev
}

// newEventHeap builds a heap from the given events in O(n).
func newEventHeap(events []*simEvent) *eventHeap {
	h := eventHeap(events)
	heap.Init(&h)
	return &h
}

func (h *eventHeap) push(ev *simEvent) { heap.Push(h, ev) }

func (h *eventHeap) pop() *simEvent { return heap.Pop(h).(*simEvent) }

// peek returns the earliest event without removing it, or nil when the
// heap is empty.
func (h *eventHeap) peek() *simEvent {
	if len(*h) == 0 {
		return nil
	}
	return (*h)[0]
}
