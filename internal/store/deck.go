package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/engram-srs/engram/internal/domain"
)

// DeckStore defines the interface for deck and profile persistence.
type DeckStore interface {
	// Create saves a new deck.
	Create(ctx context.Context, deck *domain.Deck) error

	// GetByID retrieves a deck by its unique ID.
	// Returns ErrDeckNotFound if the deck does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Deck, error)

	// GetWithProfile retrieves a deck together with its resolved
	// scheduling profile.
	// Returns ErrDeckNotFound or ErrProfileNotFound respectively.
	GetWithProfile(ctx context.Context, id uuid.UUID) (*domain.Deck, *domain.Profile, error)

	// GetByTag retrieves all decks sharing the given tag (a deck
	// group). The result may be empty.
	GetByTag(ctx context.Context, tag string) ([]*domain.Deck, error)

	// CreateProfile saves a new scheduling profile.
	CreateProfile(ctx context.Context, profile *domain.Profile) error

	// GetProfile retrieves a profile by its unique ID.
	// Returns ErrProfileNotFound if the profile does not exist.
	GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error)

	// WithTx returns a DeckStore bound to the provided transaction.
	WithTx(tx *sql.Tx) DeckStore
}
