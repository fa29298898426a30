package mocks

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/engram-srs/engram/internal/domain"
	"github.com/engram-srs/engram/internal/store"
)

// Verify interface compliance at compile time.
var _ store.ReviewLogStore = (*MemoryReviewLogStore)(nil)

// MemoryReviewLogStore implements store.ReviewLogStore backed by an
// append-only slice.
type MemoryReviewLogStore struct {
	mu      sync.Mutex
	entries []*domain.ReviewLog

	// Custom behavior overrides
	CreateFn func(ctx context.Context, entry *domain.ReviewLog) error
}

// NewMemoryReviewLogStore creates an empty in-memory review log store.
func NewMemoryReviewLogStore() *MemoryReviewLogStore {
	return &MemoryReviewLogStore{}
}

// Create implements store.ReviewLogStore.Create.
func (m *MemoryReviewLogStore) Create(ctx context.Context, entry *domain.ReviewLog) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *entry
	m.entries = append(m.entries, &copied)
	return nil
}

// Entries returns a snapshot of all log entries in insertion order.
func (m *MemoryReviewLogStore) Entries() []*domain.ReviewLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.ReviewLog, len(m.entries))
	copy(out, m.entries)
	return out
}

// DailyCounts implements store.ReviewLogStore.DailyCounts. Cards are
// counted once per day regardless of how often they were rated, and
// classified by the state they were in when rated.
func (m *MemoryReviewLogStore) DailyCounts(
	ctx context.Context,
	deckIDs []uuid.UUID,
	dayStart time.Time,
) (store.DailyReviewCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := deckSet(deckIDs)
	newSeen := make(map[uuid.UUID]bool)
	reviewSeen := make(map[uuid.UUID]bool)
	for _, entry := range m.entries {
		if !members[entry.DeckID] || entry.ReviewedAt.Before(dayStart) {
			continue
		}
		if entry.OldState == domain.CardStateNew {
			newSeen[entry.CardID] = true
		} else {
			reviewSeen[entry.CardID] = true
		}
	}
	return store.DailyReviewCounts{
		NewCount:    len(newSeen),
		ReviewCount: len(reviewSeen),
	}, nil
}

// CountRange implements store.ReviewLogStore.CountRange.
func (m *MemoryReviewLogStore) CountRange(
	ctx context.Context,
	deckIDs []uuid.UUID,
	from, to time.Time,
) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := deckSet(deckIDs)
	count := 0
	for _, entry := range m.entries {
		if members[entry.DeckID] && !entry.ReviewedAt.Before(from) && entry.ReviewedAt.Before(to) {
			count++
		}
	}
	return count, nil
}

// RatingCounts implements store.ReviewLogStore.RatingCounts, counting
// over the most recent `limit` entries.
func (m *MemoryReviewLogStore) RatingCounts(
	ctx context.Context,
	deckIDs []uuid.UUID,
	limit int,
) ([]store.RatingCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := deckSet(deckIDs)
	counts := make(map[domain.Rating]int)
	taken := 0
	for i := len(m.entries) - 1; i >= 0 && taken < limit; i-- {
		entry := m.entries[i]
		if !members[entry.DeckID] {
			continue
		}
		counts[entry.Rating]++
		taken++
	}

	var result []store.RatingCount
	for _, rating := range domain.AllRatings {
		if counts[rating] > 0 {
			result = append(result, store.RatingCount{Rating: rating, Count: counts[rating]})
		}
	}
	return result, nil
}

// WithTx implements store.ReviewLogStore.WithTx.
func (m *MemoryReviewLogStore) WithTx(tx *sql.Tx) store.ReviewLogStore {
	return m
}
