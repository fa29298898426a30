package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/engram-srs/engram/internal/domain"
)

// CardStore defines the interface for card persistence, including the
// aggregate queries the scheduler and forecast engine run over the
// card population.
type CardStore interface {
	// CreateMultiple saves multiple cards. It MUST run within a
	// transaction (use WithTx together with store.RunInTransaction) so
	// partial inserts are impossible.
	CreateMultiple(ctx context.Context, cards []*domain.Card) error

	// GetByID retrieves a card by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// GetForUpdate retrieves a card with a row-level lock using
	// SELECT FOR UPDATE. Use within a transaction when the card will
	// be updated; this is what makes rate() atomic with respect to a
	// concurrent getNext().
	// Returns ErrCardNotFound if the card does not exist.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// GetByDecks retrieves all cards belonging to the given decks.
	GetByDecks(ctx context.Context, deckIDs []uuid.UUID) ([]*domain.Card, error)

	// Update persists a card's memory state.
	// Returns ErrCardNotFound if the card does not exist.
	Update(ctx context.Context, card *domain.Card) error

	// UpdateMultiple persists several cards as one batch. It MUST run
	// within a transaction.
	UpdateMultiple(ctx context.Context, cards []*domain.Card) error

	// NextDue returns the first review-state card due at or before now
	// across the given decks, ordered per the profile's review order
	// ("due-date": ascending due time with card ID as the stable
	// tie-break; "random": uniform over the due set).
	// Returns ErrCardNotFound when no card is due.
	NextDue(ctx context.Context, deckIDs []uuid.UUID, now time.Time, order domain.ReviewOrder) (*domain.Card, error)

	// NextNew returns the next never-reviewed card across the given
	// decks in insertion order.
	// Returns ErrCardNotFound when no new card remains.
	NextNew(ctx context.Context, deckIDs []uuid.UUID) (*domain.Card, error)

	// CountDue returns the number of review-state cards due at or
	// before now across the given decks.
	CountDue(ctx context.Context, deckIDs []uuid.UUID, now time.Time) (int, error)

	// CountNew returns the number of new cards across the given decks.
	CountNew(ctx context.Context, deckIDs []uuid.UUID) (int, error)

	// ScheduledDueByDay returns, for each of the `days` day-buckets
	// starting at `from`, how many review cards have their stored due
	// date inside that bucket. Bucket 0 additionally includes every
	// card already overdue at `from`.
	ScheduledDueByDay(ctx context.Context, deckIDs []uuid.UUID, from time.Time, days int) ([]int, error)

	// WithTx returns a CardStore bound to the provided transaction.
	WithTx(tx *sql.Tx) CardStore
}
