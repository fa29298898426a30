package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/engram-srs/engram/internal/domain"
)

// SessionStore defines the interface for review session persistence.
type SessionStore interface {
	// Create saves a new review session.
	Create(ctx context.Context, session *domain.ReviewSession) error

	// GetByID retrieves a session by its unique ID.
	// Returns ErrSessionNotFound if the session does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ReviewSession, error)

	// GetActive returns the open session for the given deck, if any.
	// Returns ErrSessionNotFound when no session is open.
	GetActive(ctx context.Context, deckID uuid.UUID) (*domain.ReviewSession, error)

	// MarkCardReviewed records that the card was rated within the
	// session and reports whether this was the first rating of that
	// card in the session. Repeated ratings of the same card return
	// false and have no further effect.
	MarkCardReviewed(ctx context.Context, sessionID, cardID uuid.UUID) (bool, error)

	// HasCardBeenReviewed reports whether the card has already been
	// rated within the session.
	HasCardBeenReviewed(ctx context.Context, sessionID, cardID uuid.UUID) (bool, error)

	// IncrementProgress adds one to the session's doneUnique counter.
	// Returns ErrSessionNotFound if the session does not exist.
	IncrementProgress(ctx context.Context, sessionID uuid.UUID) error

	// End closes the session at the given time. Ending an already
	// ended session keeps the original end time (idempotent).
	// Returns ErrSessionNotFound if the session does not exist.
	End(ctx context.Context, sessionID uuid.UUID, endedAt time.Time) error

	// WithTx returns a SessionStore bound to the provided transaction.
	WithTx(tx *sql.Tx) SessionStore
}
