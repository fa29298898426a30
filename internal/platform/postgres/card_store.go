package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/engram-srs/engram/internal/domain"
	"github.com/engram-srs/engram/internal/store"
)

// cardColumns is the column list every card query selects, in the
// order scanCard expects.
const cardColumns = `id, deck_id, state, stability, difficulty, reps, lapses, position,
	due_at, last_reviewed_at, created_at, updated_at`

// PostgresCardStore implements the store.CardStore interface using a
// PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a new PostgreSQL implementation of the
// CardStore interface. If logger is nil, a default logger is used.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// Ensure PostgresCardStore implements store.CardStore.
var _ store.CardStore = (*PostgresCardStore)(nil)

// WithTx returns a CardStore bound to the provided transaction.
func (s *PostgresCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &PostgresCardStore{db: tx, logger: s.logger}
}

// CreateMultiple implements store.CardStore.CreateMultiple.
func (s *PostgresCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	query := `
		INSERT INTO cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	for _, card := range cards {
		if err := card.Validate(); err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
		if _, err := s.db.ExecContext(ctx, query,
			card.ID, card.DeckID, card.State, card.Stability, card.Difficulty,
			card.Reps, card.Lapses, card.Position,
			card.DueAt, nullableTime(card.LastReviewedAt), card.CreatedAt, card.UpdatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: card %s", store.ErrDuplicateEntity, card.ID)
			}
			return fmt.Errorf("failed to insert card: %w", err)
		}
	}
	return nil
}

// GetByID implements store.CardStore.GetByID.
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`
	return s.scanOne(ctx, query, id)
}

// GetForUpdate implements store.CardStore.GetForUpdate. The row lock
// is held until the surrounding transaction commits or rolls back.
func (s *PostgresCardStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1 FOR UPDATE`
	return s.scanOne(ctx, query, id)
}

// GetByDecks implements store.CardStore.GetByDecks.
func (s *PostgresCardStore) GetByDecks(ctx context.Context, deckIDs []uuid.UUID) ([]*domain.Card, error) {
	if len(deckIDs) == 0 {
		return nil, nil
	}
	placeholders, args := idArgs(deckIDs)
	query := `SELECT ` + cardColumns + ` FROM cards
		WHERE deck_id IN (` + placeholders + `)
		ORDER BY position ASC, created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards by deck: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cards []*domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating card rows: %w", err)
	}
	return cards, nil
}

// Update implements store.CardStore.Update.
func (s *PostgresCardStore) Update(ctx context.Context, card *domain.Card) error {
	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE cards
		SET state = $2, stability = $3, difficulty = $4, reps = $5, lapses = $6,
			due_at = $7, last_reviewed_at = $8, updated_at = $9
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		card.ID, card.State, card.Stability, card.Difficulty, card.Reps, card.Lapses,
		card.DueAt, nullableTime(card.LastReviewedAt), card.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrCardNotFound
	}
	return nil
}

// UpdateMultiple implements store.CardStore.UpdateMultiple.
func (s *PostgresCardStore) UpdateMultiple(ctx context.Context, cards []*domain.Card) error {
	for _, card := range cards {
		if err := s.Update(ctx, card); err != nil {
			return err
		}
	}
	return nil
}

// NextDue implements store.CardStore.NextDue.
func (s *PostgresCardStore) NextDue(
	ctx context.Context,
	deckIDs []uuid.UUID,
	now time.Time,
	order domain.ReviewOrder,
) (*domain.Card, error) {
	if len(deckIDs) == 0 {
		return nil, store.ErrCardNotFound
	}

	orderClause := "ORDER BY due_at ASC, id ASC"
	if order == domain.ReviewOrderRandom {
		orderClause = "ORDER BY random()"
	}

	placeholders, args := idArgs(deckIDs)
	args = append(args, now.UTC())
	query := fmt.Sprintf(`SELECT `+cardColumns+` FROM cards
		WHERE deck_id IN (%s) AND state = 'review' AND due_at <= $%d
		%s LIMIT 1`, placeholders, len(args), orderClause)

	return s.scanOne(ctx, query, args...)
}

// NextNew implements store.CardStore.NextNew.
func (s *PostgresCardStore) NextNew(ctx context.Context, deckIDs []uuid.UUID) (*domain.Card, error) {
	if len(deckIDs) == 0 {
		return nil, store.ErrCardNotFound
	}

	placeholders, args := idArgs(deckIDs)
	query := `SELECT ` + cardColumns + ` FROM cards
		WHERE deck_id IN (` + placeholders + `) AND state = 'new'
		ORDER BY position ASC, created_at ASC, id ASC LIMIT 1`

	return s.scanOne(ctx, query, args...)
}

// CountDue implements store.CardStore.CountDue.
func (s *PostgresCardStore) CountDue(ctx context.Context, deckIDs []uuid.UUID, now time.Time) (int, error) {
	if len(deckIDs) == 0 {
		return 0, nil
	}

	placeholders, args := idArgs(deckIDs)
	args = append(args, now.UTC())
	query := fmt.Sprintf(`SELECT COUNT(*) FROM cards
		WHERE deck_id IN (%s) AND state = 'review' AND due_at <= $%d`, placeholders, len(args))

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count due cards: %w", err)
	}
	return count, nil
}

// CountNew implements store.CardStore.CountNew.
func (s *PostgresCardStore) CountNew(ctx context.Context, deckIDs []uuid.UUID) (int, error) {
	if len(deckIDs) == 0 {
		return 0, nil
	}

	placeholders, args := idArgs(deckIDs)
	query := `SELECT COUNT(*) FROM cards
		WHERE deck_id IN (` + placeholders + `) AND state = 'new'`

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count new cards: %w", err)
	}
	return count, nil
}

// ScheduledDueByDay implements store.CardStore.ScheduledDueByDay.
// Cards already overdue at `from` are clamped into bucket 0.
func (s *PostgresCardStore) ScheduledDueByDay(
	ctx context.Context,
	deckIDs []uuid.UUID,
	from time.Time,
	days int,
) ([]int, error) {
	buckets := make([]int, days)
	if len(deckIDs) == 0 || days <= 0 {
		return buckets, nil
	}

	placeholders, args := idArgs(deckIDs)
	from = from.UTC()
	args = append(args, from, from.AddDate(0, 0, days))
	query := fmt.Sprintf(`
		SELECT GREATEST(0, FLOOR(EXTRACT(EPOCH FROM (due_at - $%d)) / 86400))::int AS day, COUNT(*)
		FROM cards
		WHERE deck_id IN (%s) AND state = 'review' AND due_at < $%d
		GROUP BY day`, len(args)-1, placeholders, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled due counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var day, count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("failed to scan due count row: %w", err)
		}
		if day >= 0 && day < days {
			buckets[day] = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due count rows: %w", err)
	}
	return buckets, nil
}

// scanOne runs a single-row card query and maps sql.ErrNoRows to
// store.ErrCardNotFound.
func (s *PostgresCardStore) scanOne(ctx context.Context, query string, args ...any) (*domain.Card, error) {
	card, err := scanCard(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapNoRows(err, store.ErrCardNotFound)
	}
	return card, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanCard.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanCard scans one card row in cardColumns order.
func scanCard(row rowScanner) (*domain.Card, error) {
	var card domain.Card
	var lastReviewedAt sql.NullTime

	if err := row.Scan(
		&card.ID, &card.DeckID, &card.State, &card.Stability, &card.Difficulty,
		&card.Reps, &card.Lapses, &card.Position,
		&card.DueAt, &lastReviewedAt, &card.CreatedAt, &card.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if lastReviewedAt.Valid {
		t := lastReviewedAt.Time.UTC()
		card.LastReviewedAt = &t
	}
	return &card, nil
}

// idArgs builds a placeholder list ($1,$2,...) and matching args for
// an IN clause over UUIDs.
func idArgs(ids []uuid.UUID) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	return strings.Join(placeholders, ", "), args
}

// nullableTime converts a *time.Time to the driver-friendly NullTime.
func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
