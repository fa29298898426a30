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

// PostgresReviewLogStore implements the store.ReviewLogStore interface
// using a PostgreSQL database as the storage backend. Log entries are
// append-only.
type PostgresReviewLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewLogStore creates a new PostgreSQL implementation of
// the ReviewLogStore interface. If logger is nil, a default logger is
// used.
func NewPostgresReviewLogStore(db store.DBTX, logger *slog.Logger) *PostgresReviewLogStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReviewLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_log_store")),
	}
}

// Ensure PostgresReviewLogStore implements store.ReviewLogStore.
var _ store.ReviewLogStore = (*PostgresReviewLogStore)(nil)

// WithTx returns a ReviewLogStore bound to the provided transaction.
func (s *PostgresReviewLogStore) WithTx(tx *sql.Tx) store.ReviewLogStore {
	return &PostgresReviewLogStore{db: tx, logger: s.logger}
}

// Create implements store.ReviewLogStore.Create.
func (s *PostgresReviewLogStore) Create(ctx context.Context, entry *domain.ReviewLog) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO review_logs (
			id, card_id, deck_id, session_id, rating, reviewed_at, elapsed_ms,
			old_state, old_stability, old_difficulty, old_due_at,
			new_state, new_stability, new_difficulty, new_due_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	var sessionID any
	if entry.SessionID != nil {
		sessionID = *entry.SessionID
	}

	if _, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.CardID, entry.DeckID, sessionID, entry.Rating,
		entry.ReviewedAt, entry.ElapsedMs,
		entry.OldState, entry.OldStability, entry.OldDifficulty, entry.OldDueAt,
		entry.NewState, entry.NewStability, entry.NewDifficulty, entry.NewDueAt,
	); err != nil {
		return fmt.Errorf("failed to insert review log: %w", err)
	}
	return nil
}

// DailyCounts implements store.ReviewLogStore.DailyCounts. Counters
// are distinct card IDs so repeated ratings of one card consume a
// quota slot only once per rollover period.
func (s *PostgresReviewLogStore) DailyCounts(
	ctx context.Context,
	deckIDs []uuid.UUID,
	dayStart time.Time,
) (store.DailyReviewCounts, error) {
	var counts store.DailyReviewCounts
	if len(deckIDs) == 0 {
		return counts, nil
	}

	placeholders, args := idArgs(deckIDs)
	args = append(args, dayStart.UTC())
	query := fmt.Sprintf(`
		SELECT
			COUNT(DISTINCT card_id) FILTER (WHERE old_state = 'new'),
			COUNT(DISTINCT card_id) FILTER (WHERE old_state = 'review')
		FROM review_logs
		WHERE deck_id IN (%s) AND reviewed_at >= $%d`, placeholders, len(args))

	if err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&counts.NewCount, &counts.ReviewCount,
	); err != nil {
		return counts, fmt.Errorf("failed to query daily review counts: %w", err)
	}
	return counts, nil
}

// CountRange implements store.ReviewLogStore.CountRange.
func (s *PostgresReviewLogStore) CountRange(
	ctx context.Context,
	deckIDs []uuid.UUID,
	from, to time.Time,
) (int, error) {
	if len(deckIDs) == 0 {
		return 0, nil
	}

	placeholders, args := idArgs(deckIDs)
	args = append(args, from.UTC(), to.UTC())
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM review_logs
		WHERE deck_id IN (%s) AND reviewed_at >= $%d AND reviewed_at < $%d`,
		placeholders, len(args)-1, len(args))

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count review logs: %w", err)
	}
	return count, nil
}

// RatingCounts implements store.ReviewLogStore.RatingCounts.
func (s *PostgresReviewLogStore) RatingCounts(
	ctx context.Context,
	deckIDs []uuid.UUID,
	limit int,
) ([]store.RatingCount, error) {
	if len(deckIDs) == 0 || limit <= 0 {
		return nil, nil
	}

	placeholders, args := idArgs(deckIDs)
	args = append(args, limit)
	query := fmt.Sprintf(`
		SELECT rating, COUNT(*)
		FROM (
			SELECT rating FROM review_logs
			WHERE deck_id IN (%s)
			ORDER BY reviewed_at DESC
			LIMIT $%d
		) recent
		GROUP BY rating`, placeholders, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rating counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []store.RatingCount
	for rows.Next() {
		var rc store.RatingCount
		if err := rows.Scan(&rc.Rating, &rc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan rating count row: %w", err)
		}
		result = append(result, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rating count rows: %w", err)
	}
	return result, nil
}
