package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/engram-srs/engram/internal/domain"
	"github.com/engram-srs/engram/internal/store"
)

// Verify interface compliance at compile time.
var _ store.CardStore = (*MemoryCardStore)(nil)

// MemoryCardStore implements store.CardStore backed by a map.
type MemoryCardStore struct {
	mu    sync.Mutex
	cards map[uuid.UUID]*domain.Card

	// Custom behavior overrides
	GetForUpdateFn func(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	UpdateFn       func(ctx context.Context, card *domain.Card) error
}

// NewMemoryCardStore creates an empty in-memory card store.
func NewMemoryCardStore() *MemoryCardStore {
	return &MemoryCardStore{cards: make(map[uuid.UUID]*domain.Card)}
}

// CreateMultiple implements store.CardStore.CreateMultiple.
func (m *MemoryCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, card := range cards {
		if _, ok := m.cards[card.ID]; ok {
			return store.ErrDuplicateEntity
		}
		m.cards[card.ID] = card.Clone()
	}
	return nil
}

// GetByID implements store.CardStore.GetByID.
func (m *MemoryCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	card, ok := m.cards[id]
	if !ok {
		return nil, store.ErrCardNotFound
	}
	return card.Clone(), nil
}

// GetForUpdate implements store.CardStore.GetForUpdate. Locking is a
// no-op in memory.
func (m *MemoryCardStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	if m.GetForUpdateFn != nil {
		return m.GetForUpdateFn(ctx, id)
	}
	return m.GetByID(ctx, id)
}

// GetByDecks implements store.CardStore.GetByDecks. Results are ordered
// by position then ID so scenarios are deterministic.
func (m *MemoryCardStore) GetByDecks(ctx context.Context, deckIDs []uuid.UUID) ([]*domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := deckSet(deckIDs)
	var result []*domain.Card
	for _, card := range m.cards {
		if members[card.DeckID] {
			result = append(result, card.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Position != result[j].Position {
			return result[i].Position < result[j].Position
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

// Update implements store.CardStore.Update.
func (m *MemoryCardStore) Update(ctx context.Context, card *domain.Card) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, card)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[card.ID]; !ok {
		return store.ErrCardNotFound
	}
	m.cards[card.ID] = card.Clone()
	return nil
}

// UpdateMultiple implements store.CardStore.UpdateMultiple.
func (m *MemoryCardStore) UpdateMultiple(ctx context.Context, cards []*domain.Card) error {
	for _, card := range cards {
		if err := m.Update(ctx, card); err != nil {
			return err
		}
	}
	return nil
}

// NextDue implements store.CardStore.NextDue. The random order is
// deliberately deterministic here: tests need reproducible picks.
func (m *MemoryCardStore) NextDue(
	ctx context.Context,
	deckIDs []uuid.UUID,
	now time.Time,
	order domain.ReviewOrder,
) (*domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := deckSet(deckIDs)
	var due []*domain.Card
	for _, card := range m.cards {
		if members[card.DeckID] && card.State == domain.CardStateReview && card.IsDue(now) {
			due = append(due, card)
		}
	}
	if len(due) == 0 {
		return nil, store.ErrCardNotFound
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].DueAt.Equal(due[j].DueAt) {
			return due[i].DueAt.Before(due[j].DueAt)
		}
		return due[i].ID.String() < due[j].ID.String()
	})
	return due[0].Clone(), nil
}

// NextNew implements store.CardStore.NextNew.
func (m *MemoryCardStore) NextNew(ctx context.Context, deckIDs []uuid.UUID) (*domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := deckSet(deckIDs)
	var fresh []*domain.Card
	for _, card := range m.cards {
		if members[card.DeckID] && card.State == domain.CardStateNew {
			fresh = append(fresh, card)
		}
	}
	if len(fresh) == 0 {
		return nil, store.ErrCardNotFound
	}
	sort.Slice(fresh, func(i, j int) bool {
		if fresh[i].Position != fresh[j].Position {
			return fresh[i].Position < fresh[j].Position
		}
		return fresh[i].ID.String() < fresh[j].ID.String()
	})
	return fresh[0].Clone(), nil
}

// CountDue implements store.CardStore.CountDue.
func (m *MemoryCardStore) CountDue(ctx context.Context, deckIDs []uuid.UUID, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := deckSet(deckIDs)
	count := 0
	for _, card := range m.cards {
		if members[card.DeckID] && card.State == domain.CardStateReview && card.IsDue(now) {
			count++
		}
	}
	return count, nil
}

// CountNew implements store.CardStore.CountNew.
func (m *MemoryCardStore) CountNew(ctx context.Context, deckIDs []uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := deckSet(deckIDs)
	count := 0
	for _, card := range m.cards {
		if members[card.DeckID] && card.State == domain.CardStateNew {
			count++
		}
	}
	return count, nil
}

// ScheduledDueByDay implements store.CardStore.ScheduledDueByDay.
// Overdue cards land in bucket 0; due dates past the horizon are
// dropped.
func (m *MemoryCardStore) ScheduledDueByDay(
	ctx context.Context,
	deckIDs []uuid.UUID,
	from time.Time,
	days int,
) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members := deckSet(deckIDs)
	buckets := make([]int, days)
	for _, card := range m.cards {
		if !members[card.DeckID] || card.State != domain.CardStateReview {
			continue
		}
		day := int(card.DueAt.Sub(from).Hours() / 24)
		if day < 0 {
			day = 0
		}
		if day >= days {
			continue
		}
		buckets[day]++
	}
	return buckets, nil
}

// WithTx implements store.CardStore.WithTx. Transactions are a no-op
// in memory.
func (m *MemoryCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return m
}

func deckSet(deckIDs []uuid.UUID) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(deckIDs))
	for _, id := range deckIDs {
		set[id] = true
	}
	return set
}
