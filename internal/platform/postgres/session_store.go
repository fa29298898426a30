package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/engram-srs/engram/internal/domain"
	"github.com/engram-srs/engram/internal/store"
)

const sessionColumns = `id, deck_id, started_at, ended_at, goal_total, done_unique`

// PostgresSessionStore implements the store.SessionStore interface
// using a PostgreSQL database as the storage backend. Distinct-card
// tracking is backed by the session_cards table with a composite
// primary key.
type PostgresSessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSessionStore creates a new PostgreSQL implementation of
// the SessionStore interface. If logger is nil, a default logger is
// used.
func NewPostgresSessionStore(db store.DBTX, logger *slog.Logger) *PostgresSessionStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

// Ensure PostgresSessionStore implements store.SessionStore.
var _ store.SessionStore = (*PostgresSessionStore)(nil)

// WithTx returns a SessionStore bound to the provided transaction.
func (s *PostgresSessionStore) WithTx(tx *sql.Tx) store.SessionStore {
	return &PostgresSessionStore{db: tx, logger: s.logger}
}

// Create implements store.SessionStore.Create.
func (s *PostgresSessionStore) Create(ctx context.Context, session *domain.ReviewSession) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO review_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.db.ExecContext(ctx, query,
		session.ID, session.DeckID, session.StartedAt,
		nullableTime(session.EndedAt), session.GoalTotal, session.DoneUnique,
	); err != nil {
		return fmt.Errorf("failed to insert review session: %w", err)
	}
	return nil
}

// GetByID implements store.SessionStore.GetByID.
func (s *PostgresSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ReviewSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM review_sessions WHERE id = $1`

	session, err := scanSession(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err, store.ErrSessionNotFound)
	}
	return session, nil
}

// GetActive implements store.SessionStore.GetActive. When several
// sessions are somehow open, the most recently started wins.
func (s *PostgresSessionStore) GetActive(ctx context.Context, deckID uuid.UUID) (*domain.ReviewSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM review_sessions
		WHERE deck_id = $1 AND ended_at IS NULL
		ORDER BY started_at DESC LIMIT 1`

	session, err := scanSession(s.db.QueryRowContext(ctx, query, deckID))
	if err != nil {
		return nil, mapNoRows(err, store.ErrSessionNotFound)
	}
	return session, nil
}

// MarkCardReviewed implements store.SessionStore.MarkCardReviewed.
func (s *PostgresSessionStore) MarkCardReviewed(ctx context.Context, sessionID, cardID uuid.UUID) (bool, error) {
	query := `
		INSERT INTO session_cards (session_id, card_id)
		VALUES ($1, $2)
		ON CONFLICT (session_id, card_id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, sessionID, cardID)
	if err != nil {
		return false, fmt.Errorf("failed to mark card reviewed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// HasCardBeenReviewed implements store.SessionStore.HasCardBeenReviewed.
func (s *PostgresSessionStore) HasCardBeenReviewed(ctx context.Context, sessionID, cardID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM session_cards WHERE session_id = $1 AND card_id = $2
	)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, sessionID, cardID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to query session card: %w", err)
	}
	return exists, nil
}

// IncrementProgress implements store.SessionStore.IncrementProgress.
func (s *PostgresSessionStore) IncrementProgress(ctx context.Context, sessionID uuid.UUID) error {
	query := `UPDATE review_sessions SET done_unique = done_unique + 1 WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session progress: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

// End implements store.SessionStore.End. Ending an already ended
// session is a no-op that keeps the original end time.
func (s *PostgresSessionStore) End(ctx context.Context, sessionID uuid.UUID, endedAt time.Time) error {
	query := `UPDATE review_sessions SET ended_at = $2 WHERE id = $1 AND ended_at IS NULL`

	result, err := s.db.ExecContext(ctx, query, sessionID, endedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		// Either the session is already ended (fine) or it never
		// existed (an error). Disambiguate with a lookup.
		if _, err := s.GetByID(ctx, sessionID); err != nil {
			return err
		}
	}
	return nil
}

// scanSession scans one session row in sessionColumns order.
func scanSession(row rowScanner) (*domain.ReviewSession, error) {
	var session domain.ReviewSession
	var endedAt sql.NullTime

	if err := row.Scan(
		&session.ID, &session.DeckID, &session.StartedAt,
		&endedAt, &session.GoalTotal, &session.DoneUnique,
	); err != nil {
		return nil, err
	}

	if endedAt.Valid {
		t := endedAt.Time.UTC()
		session.EndedAt = &t
	}
	return &session, nil
}
