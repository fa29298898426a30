package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/engram-srs/engram/internal/domain"
	"github.com/engram-srs/engram/internal/domain/fsrs"
	"github.com/engram-srs/engram/internal/platform/logger"
	"github.com/engram-srs/engram/internal/platform/metrics"
	"github.com/engram-srs/engram/internal/store"
)

// Verify interface compliance at compile time.
var _ SchedulerService = (*schedulerServiceImpl)(nil)

// schedulerServiceImpl implements the SchedulerService interface.
type schedulerServiceImpl struct {
	db       *sql.DB
	cards    store.CardStore
	decks    store.DeckStore
	logs     store.ReviewLogStore
	sessions store.SessionStore
	engine   *fsrs.Engine
	resolver ProfileResolver
	logger   *slog.Logger
	now      func() time.Time
	runTx    func(ctx context.Context, db *sql.DB, fn store.TxFn) error
}

// Option customizes the scheduler service.
type Option func(*schedulerServiceImpl)

// WithClock overrides the service's time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *schedulerServiceImpl) {
		s.now = now
	}
}

// WithTxRunner overrides the transaction helper. Intended for tests
// running against in-memory stores.
func WithTxRunner(runTx func(ctx context.Context, db *sql.DB, fn store.TxFn) error) Option {
	return func(s *schedulerServiceImpl) {
		s.runTx = runTx
	}
}

// WithProfileResolver supplies the pure function resolving a deck
// group tag to its effective profile. Without it, the profile of the
// group's first deck applies.
func WithProfileResolver(resolver ProfileResolver) Option {
	return func(s *schedulerServiceImpl) {
		s.resolver = resolver
	}
}

// NewSchedulerService creates a new SchedulerService implementation.
func NewSchedulerService(
	db *sql.DB,
	cards store.CardStore,
	decks store.DeckStore,
	logs store.ReviewLogStore,
	sessions store.SessionStore,
	engine *fsrs.Engine,
	log *slog.Logger,
	opts ...Option,
) SchedulerService {
	if cards == nil || decks == nil || logs == nil || sessions == nil {
		// ALLOW-PANIC: Constructor enforcing required dependencies
		panic("scheduler stores cannot be nil")
	}
	if engine == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("engine cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	s := &schedulerServiceImpl{
		db:       db,
		cards:    cards,
		decks:    decks,
		logs:     logs,
		sessions: sessions,
		engine:   engine,
		logger:   log.With(slog.String("component", "scheduler_service")),
		now:      func() time.Time { return time.Now().UTC() },
		runTx:    store.RunInTransaction,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetNext implements SchedulerService.GetNext.
func (s *schedulerServiceImpl) GetNext(
	ctx context.Context,
	deckID uuid.UUID,
	opts NextOptions,
) (*domain.Card, error) {
	_, profile, err := s.deckWithProfile(ctx, deckID)
	if err != nil {
		return nil, err
	}
	return s.next(ctx, []uuid.UUID{deckID}, profile, opts)
}

// GetNextForGroup implements SchedulerService.GetNextForGroup. The
// selection logic is identical to GetNext over the union of the
// group's cards; quotas are evaluated against the aggregate group.
func (s *schedulerServiceImpl) GetNextForGroup(
	ctx context.Context,
	tag string,
	opts NextOptions,
) (*domain.Card, error) {
	deckIDs, profile, err := s.resolveGroup(ctx, tag)
	if err != nil {
		return nil, err
	}
	return s.next(ctx, deckIDs, profile, opts)
}

// next runs one card-selection decision: eligible due review cards
// strictly precede new cards, each gated by its daily quota.
func (s *schedulerServiceImpl) next(
	ctx context.Context,
	deckIDs []uuid.UUID,
	profile *domain.Profile,
	opts NextOptions,
) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	counts, err := s.logs.DailyCounts(ctx, deckIDs, profile.DayStart(now))
	if err != nil {
		return nil, fmt.Errorf("failed to load daily counts: %w", err)
	}

	if domain.QuotaAllows(profile.ReviewsPerDay, counts.ReviewCount) {
		card, err := s.cards.NextDue(ctx, deckIDs, now, profile.ReviewOrder)
		if err == nil {
			metrics.NextCardRequests.WithLabelValues("review").Inc()
			return card, nil
		}
		if !errors.Is(err, store.ErrCardNotFound) {
			return nil, fmt.Errorf("failed to query due cards: %w", err)
		}
	}

	if opts.AllowNew && domain.QuotaAllows(profile.NewCardsPerDay, counts.NewCount) {
		card, err := s.cards.NextNew(ctx, deckIDs)
		if err == nil {
			metrics.NextCardRequests.WithLabelValues("new").Inc()
			return card, nil
		}
		if !errors.Is(err, store.ErrCardNotFound) {
			return nil, fmt.Errorf("failed to query new cards: %w", err)
		}
	}

	log.Debug("no card available",
		slog.Int("deck_count", len(deckIDs)),
		slog.Bool("allow_new", opts.AllowNew))
	metrics.NextCardRequests.WithLabelValues("none").Inc()
	return nil, ErrNoCardAvailable
}

// Rate implements SchedulerService.Rate. The whole read-compute-
// persist-log sequence runs inside one transaction with a row lock on
// the card, so a concurrent getNext never observes partial writes.
func (s *schedulerServiceImpl) Rate(
	ctx context.Context,
	cardID uuid.UUID,
	rating domain.Rating,
	elapsed time.Duration,
) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !rating.IsValid() {
		return nil, ErrInvalidRating
	}

	now := s.now()
	var updated *domain.Card

	err := s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.cards.WithTx(tx)
		decks := s.decks.WithTx(tx)
		logs := s.logs.WithTx(tx)
		sessions := s.sessions.WithTx(tx)

		card, err := cards.GetForUpdate(ctx, cardID)
		if err != nil {
			if errors.Is(err, store.ErrCardNotFound) {
				return ErrCardNotFound
			}
			return fmt.Errorf("failed to load card: %w", err)
		}

		_, profile, err := decks.GetWithProfile(ctx, card.DeckID)
		if err != nil {
			return fmt.Errorf("failed to resolve profile: %w", err)
		}

		outcome, err := s.engine.ComputeOutcome(card, rating, elapsed, now, profile)
		if err != nil {
			return fmt.Errorf("failed to compute outcome: %w", err)
		}

		if err := cards.Update(ctx, outcome.Card); err != nil {
			return fmt.Errorf("failed to persist card: %w", err)
		}

		entry := &domain.ReviewLog{
			ID:            uuid.New(),
			CardID:        card.ID,
			DeckID:        card.DeckID,
			Rating:        rating,
			ReviewedAt:    now,
			ElapsedMs:     elapsed.Milliseconds(),
			OldState:      card.State,
			OldStability:  card.Stability,
			OldDifficulty: card.Difficulty,
			OldDueAt:      card.DueAt,
			NewState:      outcome.Card.State,
			NewStability:  outcome.Card.Stability,
			NewDifficulty: outcome.Card.Difficulty,
			NewDueAt:      outcome.Card.DueAt,
		}

		// Attach the open session, if any, and bump its distinct-card
		// counter at most once per card.
		session, err := sessions.GetActive(ctx, card.DeckID)
		switch {
		case err == nil:
			entry.SessionID = &session.ID
			first, err := sessions.MarkCardReviewed(ctx, session.ID, card.ID)
			if err != nil {
				return fmt.Errorf("failed to mark session card: %w", err)
			}
			if first {
				if err := sessions.IncrementProgress(ctx, session.ID); err != nil {
					return fmt.Errorf("failed to update session progress: %w", err)
				}
			}
		case !errors.Is(err, store.ErrSessionNotFound):
			return fmt.Errorf("failed to look up active session: %w", err)
		}

		if err := logs.Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to append review log: %w", err)
		}

		updated = outcome.Card
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCardNotFound) {
			return nil, err
		}
		log.Error("failed to rate card",
			slog.String("error", err.Error()),
			slog.String("card_id", cardID.String()),
			slog.String("rating", string(rating)))
		return nil, &ServiceError{Operation: "rate", Message: "rating failed", Err: err}
	}

	metrics.RatingsTotal.WithLabelValues(string(rating)).Inc()
	log.Debug("rated card",
		slog.String("card_id", cardID.String()),
		slog.String("rating", string(rating)),
		slog.Float64("stability", updated.Stability),
		slog.Float64("difficulty", updated.Difficulty),
		slog.Time("due_at", updated.DueAt))
	return updated, nil
}

// Preview implements SchedulerService.Preview.
func (s *schedulerServiceImpl) Preview(
	ctx context.Context,
	cardID uuid.UUID,
) (map[domain.Rating]*fsrs.Outcome, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, store.ErrCardNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to load card: %w", err)
	}

	_, profile, err := s.deckWithProfile(ctx, card.DeckID)
	if err != nil {
		return nil, err
	}

	return s.engine.PreviewOutcomes(card, s.now(), profile)
}

// StartSession implements SchedulerService.StartSession.
func (s *schedulerServiceImpl) StartSession(
	ctx context.Context,
	deckID uuid.UUID,
) (*domain.ReviewSession, error) {
	counts, err := s.GetDailyCounts(ctx, deckID)
	if err != nil {
		return nil, err
	}

	session, err := domain.NewReviewSession(deckID, counts.ReviewsRemaining+counts.NewRemaining)
	if err != nil {
		return nil, fmt.Errorf("failed to build session: %w", err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Debug("started session",
		slog.String("session_id", session.ID.String()),
		slog.String("deck_id", deckID.String()),
		slog.Int("goal_total", session.GoalTotal))
	return session, nil
}

// ResumeSession implements SchedulerService.ResumeSession.
func (s *schedulerServiceImpl) ResumeSession(
	ctx context.Context,
	deckID uuid.UUID,
) (*domain.ReviewSession, error) {
	session, err := s.sessions.GetActive(ctx, deckID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, store.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to look up active session: %w", err)
	}
	return s.StartSession(ctx, deckID)
}

// GetSessionProgress implements SchedulerService.GetSessionProgress.
func (s *schedulerServiceImpl) GetSessionProgress(
	ctx context.Context,
	sessionID uuid.UUID,
) (*domain.ReviewSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

// EndSession implements SchedulerService.EndSession.
func (s *schedulerServiceImpl) EndSession(ctx context.Context, sessionID uuid.UUID) error {
	err := s.sessions.End(ctx, sessionID, s.now())
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// GetDailyCounts implements SchedulerService.GetDailyCounts.
func (s *schedulerServiceImpl) GetDailyCounts(
	ctx context.Context,
	deckID uuid.UUID,
) (DailyCounts, error) {
	var result DailyCounts

	_, profile, err := s.deckWithProfile(ctx, deckID)
	if err != nil {
		return result, err
	}

	now := s.now()
	deckIDs := []uuid.UUID{deckID}

	rated, err := s.logs.DailyCounts(ctx, deckIDs, profile.DayStart(now))
	if err != nil {
		return result, fmt.Errorf("failed to load daily counts: %w", err)
	}

	due, err := s.cards.CountDue(ctx, deckIDs, now)
	if err != nil {
		return result, fmt.Errorf("failed to count due cards: %w", err)
	}
	fresh, err := s.cards.CountNew(ctx, deckIDs)
	if err != nil {
		return result, fmt.Errorf("failed to count new cards: %w", err)
	}

	result.DueCount = due
	result.NewCount = fresh
	result.NewRatedToday = rated.NewCount
	result.ReviewsRatedToday = rated.ReviewCount
	result.NewRemaining = domain.QuotaRemaining(profile.NewCardsPerDay, rated.NewCount, fresh)
	result.ReviewsRemaining = domain.QuotaRemaining(profile.ReviewsPerDay, rated.ReviewCount, due)
	return result, nil
}

// deckWithProfile loads a deck and its profile, mapping store
// not-found errors to the service sentinel.
func (s *schedulerServiceImpl) deckWithProfile(
	ctx context.Context,
	deckID uuid.UUID,
) (*domain.Deck, *domain.Profile, error) {
	deck, profile, err := s.decks.GetWithProfile(ctx, deckID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, nil, ErrDeckNotFound
		}
		return nil, nil, fmt.Errorf("failed to load deck: %w", err)
	}
	return deck, profile, nil
}

// resolveGroup resolves a deck group tag to its member deck IDs and
// effective profile. The supplied ProfileResolver wins when present;
// otherwise the first member deck's profile applies.
func (s *schedulerServiceImpl) resolveGroup(
	ctx context.Context,
	tag string,
) ([]uuid.UUID, *domain.Profile, error) {
	decks, err := s.decks.GetByTag(ctx, tag)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load deck group: %w", err)
	}
	if len(decks) == 0 {
		return nil, nil, ErrDeckNotFound
	}

	deckIDs := make([]uuid.UUID, len(decks))
	for i, deck := range decks {
		deckIDs[i] = deck.ID
	}

	if s.resolver != nil {
		profile, err := s.resolver(ctx, tag)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve group profile: %w", err)
		}
		return deckIDs, profile, nil
	}

	profile, err := s.decks.GetProfile(ctx, decks[0].ProfileID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load group profile: %w", err)
	}
	return deckIDs, profile, nil
}
