package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/engram-srs/engram/internal/domain"
	"github.com/engram-srs/engram/internal/store"
)

const deckColumns = `id, name, tag, profile_id, created_at, updated_at`

const profileColumns = `id, name, request_retention, mode, new_cards_per_day,
	reviews_per_day, review_order, next_day_starts_at, created_at, updated_at`

// PostgresDeckStore implements the store.DeckStore interface using a
// PostgreSQL database as the storage backend.
type PostgresDeckStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresDeckStore creates a new PostgreSQL implementation of the
// DeckStore interface. If logger is nil, a default logger is used.
func NewPostgresDeckStore(db store.DBTX, logger *slog.Logger) *PostgresDeckStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresDeckStore{
		db:     db,
		logger: logger.With(slog.String("component", "deck_store")),
	}
}

// Ensure PostgresDeckStore implements store.DeckStore.
var _ store.DeckStore = (*PostgresDeckStore)(nil)

// WithTx returns a DeckStore bound to the provided transaction.
func (s *PostgresDeckStore) WithTx(tx *sql.Tx) store.DeckStore {
	return &PostgresDeckStore{db: tx, logger: s.logger}
}

// Create implements store.DeckStore.Create.
func (s *PostgresDeckStore) Create(ctx context.Context, deck *domain.Deck) error {
	if err := deck.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO decks (` + deckColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.db.ExecContext(ctx, query,
		deck.ID, deck.Name, deck.Tag, deck.ProfileID, deck.CreatedAt, deck.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: deck %s", store.ErrDuplicateEntity, deck.ID)
		}
		return fmt.Errorf("failed to insert deck: %w", err)
	}
	return nil
}

// GetByID implements store.DeckStore.GetByID.
func (s *PostgresDeckStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deck, error) {
	query := `SELECT ` + deckColumns + ` FROM decks WHERE id = $1`

	deck, err := scanDeck(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err, store.ErrDeckNotFound)
	}
	return deck, nil
}

// GetWithProfile implements store.DeckStore.GetWithProfile.
func (s *PostgresDeckStore) GetWithProfile(ctx context.Context, id uuid.UUID) (*domain.Deck, *domain.Profile, error) {
	deck, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	profile, err := s.GetProfile(ctx, deck.ProfileID)
	if err != nil {
		return nil, nil, err
	}
	return deck, profile, nil
}

// GetByTag implements store.DeckStore.GetByTag.
func (s *PostgresDeckStore) GetByTag(ctx context.Context, tag string) ([]*domain.Deck, error) {
	query := `SELECT ` + deckColumns + ` FROM decks WHERE tag = $1 ORDER BY name ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to query decks by tag: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var decks []*domain.Deck
	for rows.Next() {
		deck, err := scanDeck(rows)
		if err != nil {
			return nil, err
		}
		decks = append(decks, deck)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deck rows: %w", err)
	}
	return decks, nil
}

// CreateProfile implements store.DeckStore.CreateProfile.
func (s *PostgresDeckStore) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := s.db.ExecContext(ctx, query,
		profile.ID, profile.Name, profile.RequestRetention, profile.Mode,
		profile.NewCardsPerDay, profile.ReviewsPerDay, profile.ReviewOrder,
		profile.NextDayStartsAt, profile.CreatedAt, profile.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: profile %s", store.ErrDuplicateEntity, profile.ID)
		}
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// GetProfile implements store.DeckStore.GetProfile.
func (s *PostgresDeckStore) GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	var profile domain.Profile
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&profile.ID, &profile.Name, &profile.RequestRetention, &profile.Mode,
		&profile.NewCardsPerDay, &profile.ReviewsPerDay, &profile.ReviewOrder,
		&profile.NextDayStartsAt, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		return nil, mapNoRows(err, store.ErrProfileNotFound)
	}
	return &profile, nil
}

// scanDeck scans one deck row in deckColumns order.
func scanDeck(row rowScanner) (*domain.Deck, error) {
	var deck domain.Deck
	if err := row.Scan(
		&deck.ID, &deck.Name, &deck.Tag, &deck.ProfileID, &deck.CreatedAt, &deck.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &deck, nil
}
