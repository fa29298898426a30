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
var _ store.SessionStore = (*MemorySessionStore)(nil)

// MemorySessionStore implements store.SessionStore backed by maps,
// including the per-session distinct-card tracking.
type MemorySessionStore struct {
	mu           sync.Mutex
	sessions     map[uuid.UUID]*domain.ReviewSession
	sessionCards map[uuid.UUID]map[uuid.UUID]bool
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions:     make(map[uuid.UUID]*domain.ReviewSession),
		sessionCards: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

// Create implements store.SessionStore.Create.
func (m *MemorySessionStore) Create(ctx context.Context, session *domain.ReviewSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = cloneSession(session)
	return nil
}

// GetByID implements store.SessionStore.GetByID.
func (m *MemorySessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ReviewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	return cloneSession(session), nil
}

// GetActive implements store.SessionStore.GetActive, returning the
// most recently started open session for the deck.
func (m *MemorySessionStore) GetActive(ctx context.Context, deckID uuid.UUID) (*domain.ReviewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var active *domain.ReviewSession
	for _, session := range m.sessions {
		if session.DeckID != deckID || !session.IsOpen() {
			continue
		}
		if active == nil || session.StartedAt.After(active.StartedAt) {
			active = session
		}
	}
	if active == nil {
		return nil, store.ErrSessionNotFound
	}
	return cloneSession(active), nil
}

// MarkCardReviewed implements store.SessionStore.MarkCardReviewed.
func (m *MemorySessionStore) MarkCardReviewed(ctx context.Context, sessionID, cardID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return false, store.ErrSessionNotFound
	}
	cards := m.sessionCards[sessionID]
	if cards == nil {
		cards = make(map[uuid.UUID]bool)
		m.sessionCards[sessionID] = cards
	}
	if cards[cardID] {
		return false, nil
	}
	cards[cardID] = true
	return true, nil
}

// HasCardBeenReviewed implements store.SessionStore.HasCardBeenReviewed.
func (m *MemorySessionStore) HasCardBeenReviewed(ctx context.Context, sessionID, cardID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionCards[sessionID][cardID], nil
}

// IncrementProgress implements store.SessionStore.IncrementProgress.
func (m *MemorySessionStore) IncrementProgress(ctx context.Context, sessionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return store.ErrSessionNotFound
	}
	session.DoneUnique++
	return nil
}

// End implements store.SessionStore.End.
func (m *MemorySessionStore) End(ctx context.Context, sessionID uuid.UUID, endedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return store.ErrSessionNotFound
	}
	session.End(endedAt)
	return nil
}

// WithTx implements store.SessionStore.WithTx.
func (m *MemorySessionStore) WithTx(tx *sql.Tx) store.SessionStore {
	return m
}

func cloneSession(s *domain.ReviewSession) *domain.ReviewSession {
	out := *s
	if s.EndedAt != nil {
		v := *s.EndedAt
		out.EndedAt = &v
	}
	return &out
}
