package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/engram-srs/engram/internal/domain"
)

// DailyReviewCounts holds the distinct-card counters consumed by the
// quota logic. NewCount counts cards that were in the new state when
// rated; ReviewCount counts cards that were already in review.
type DailyReviewCounts struct {
	NewCount    int
	ReviewCount int
}

// RatingCount is one row of the empirical rating distribution mined
// from the review history.
type RatingCount struct {
	Rating domain.Rating
	Count  int
}

// ReviewLogStore defines the interface for the immutable review log
// and the aggregate queries derived from it.
type ReviewLogStore interface {
	// Create appends an immutable review log entry. Entries are never
	// updated or deleted.
	Create(ctx context.Context, entry *domain.ReviewLog) error

	// DailyCounts returns the distinct-card new/review counters for
	// reviews at or after the given day boundary across the decks.
	DailyCounts(ctx context.Context, deckIDs []uuid.UUID, dayStart time.Time) (DailyReviewCounts, error)

	// CountRange returns the total number of review log entries in
	// [from, to) across the decks. Used to derive historical daily
	// throughput for forecast capacity.
	CountRange(ctx context.Context, deckIDs []uuid.UUID, from, to time.Time) (int, error)

	// RatingCounts returns how often each rating occurs among the most
	// recent `limit` log entries for the decks. Feeds the forecast
	// engine's empirical rating distribution.
	RatingCounts(ctx context.Context, deckIDs []uuid.UUID, limit int) ([]RatingCount, error)

	// WithTx returns a ReviewLogStore bound to the provided transaction.
	WithTx(tx *sql.Tx) ReviewLogStore
}
