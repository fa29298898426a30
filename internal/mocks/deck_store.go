package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/engram-srs/engram/internal/domain"
	"github.com/engram-srs/engram/internal/store"
)

// Verify interface compliance at compile time.
var _ store.DeckStore = (*MemoryDeckStore)(nil)

// MemoryDeckStore implements store.DeckStore backed by maps.
type MemoryDeckStore struct {
	mu       sync.Mutex
	decks    map[uuid.UUID]*domain.Deck
	profiles map[uuid.UUID]*domain.Profile

	// Custom behavior overrides
	GetWithProfileFn func(ctx context.Context, id uuid.UUID) (*domain.Deck, *domain.Profile, error)
}

// NewMemoryDeckStore creates an empty in-memory deck store.
func NewMemoryDeckStore() *MemoryDeckStore {
	return &MemoryDeckStore{
		decks:    make(map[uuid.UUID]*domain.Deck),
		profiles: make(map[uuid.UUID]*domain.Profile),
	}
}

// Create implements store.DeckStore.Create.
func (m *MemoryDeckStore) Create(ctx context.Context, deck *domain.Deck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.decks[deck.ID]; ok {
		return store.ErrDuplicateEntity
	}
	copied := *deck
	m.decks[deck.ID] = &copied
	return nil
}

// GetByID implements store.DeckStore.GetByID.
func (m *MemoryDeckStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deck, ok := m.decks[id]
	if !ok {
		return nil, store.ErrDeckNotFound
	}
	copied := *deck
	return &copied, nil
}

// GetWithProfile implements store.DeckStore.GetWithProfile.
func (m *MemoryDeckStore) GetWithProfile(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Deck, *domain.Profile, error) {
	if m.GetWithProfileFn != nil {
		return m.GetWithProfileFn(ctx, id)
	}

	deck, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	profile, err := m.GetProfile(ctx, deck.ProfileID)
	if err != nil {
		return nil, nil, err
	}
	return deck, profile, nil
}

// GetByTag implements store.DeckStore.GetByTag. Results are ordered by
// name then ID for determinism.
func (m *MemoryDeckStore) GetByTag(ctx context.Context, tag string) ([]*domain.Deck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.Deck
	for _, deck := range m.decks {
		if deck.Tag == tag {
			copied := *deck
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

// CreateProfile implements store.DeckStore.CreateProfile.
func (m *MemoryDeckStore) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[profile.ID]; ok {
		return store.ErrDuplicateEntity
	}
	copied := *profile
	m.profiles[profile.ID] = &copied
	return nil
}

// GetProfile implements store.DeckStore.GetProfile.
func (m *MemoryDeckStore) GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[id]
	if !ok {
		return nil, store.ErrProfileNotFound
	}
	copied := *profile
	return &copied, nil
}

// WithTx implements store.DeckStore.WithTx.
func (m *MemoryDeckStore) WithTx(tx *sql.Tx) store.DeckStore {
	return m
}
