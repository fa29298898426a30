package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/engram-srs/engram/internal/domain"
	"github.com/engram-srs/engram/internal/domain/fsrs"
	"github.com/engram-srs/engram/internal/platform/metrics"
	"github.com/engram-srs/engram/internal/store"
)

// Verify interface compliance at compile time.
var _ ForecastService = (*forecastServiceImpl)(nil)

// forecastServiceImpl implements the ForecastService interface.
type forecastServiceImpl struct {
	cards    store.CardStore
	decks    store.DeckStore
	logs     store.ReviewLogStore
	engine   *fsrs.Engine
	resolver ProfileResolver
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes the forecast service.
type Option func(*forecastServiceImpl)

// WithClock overrides the service's time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *forecastServiceImpl) {
		s.now = now
	}
}

// WithProfileResolver supplies the pure function resolving a deck
// group tag to its effective profile. Without it, the profile of the
// group's first deck applies.
func WithProfileResolver(resolver ProfileResolver) Option {
	return func(s *forecastServiceImpl) {
		s.resolver = resolver
	}
}

// NewForecastService creates a new ForecastService implementation.
func NewForecastService(
	cards store.CardStore,
	decks store.DeckStore,
	logs store.ReviewLogStore,
	engine *fsrs.Engine,
	log *slog.Logger,
	opts ...Option,
) ForecastService {
	if cards == nil || decks == nil || logs == nil {
		// ALLOW-PANIC: Constructor enforcing required dependencies
		panic("forecast stores cannot be nil")
	}
	if engine == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("engine cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	s := &forecastServiceImpl{
		cards:  cards,
		decks:  decks,
		logs:   logs,
		engine: engine,
		logger: log.With(slog.String("component", "forecast_service")),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProjectBacklog implements ForecastService.ProjectBacklog.
func (s *forecastServiceImpl) ProjectBacklog(
	ctx context.Context,
	deckID uuid.UUID,
	horizonDays int,
) (*BacklogForecast, error) {
	profile, err := s.deckProfile(ctx, deckID)
	if err != nil {
		return nil, err
	}
	return s.projectBacklog(ctx, []uuid.UUID{deckID}, profile, horizonDays)
}

// ProjectBacklogForGroup implements ForecastService.ProjectBacklogForGroup.
func (s *forecastServiceImpl) ProjectBacklogForGroup(
	ctx context.Context,
	tag string,
	horizonDays int,
) (*BacklogForecast, error) {
	deckIDs, profile, err := s.resolveGroup(ctx, tag)
	if err != nil {
		return nil, err
	}
	return s.projectBacklog(ctx, deckIDs, profile, horizonDays)
}

// SimulateMaturity implements ForecastService.SimulateMaturity.
func (s *forecastServiceImpl) SimulateMaturity(
	ctx context.Context,
	deckID uuid.UUID,
	maxDays int,
) (*MaturityForecast, error) {
	profile, err := s.deckProfile(ctx, deckID)
	if err != nil {
		return nil, err
	}
	return s.simulateMaturity(ctx, []uuid.UUID{deckID}, profile, maxDays)
}

// SimulateMaturityForGroup implements ForecastService.SimulateMaturityForGroup.
func (s *forecastServiceImpl) SimulateMaturityForGroup(
	ctx context.Context,
	tag string,
	maxDays int,
) (*MaturityForecast, error) {
	deckIDs, profile, err := s.resolveGroup(ctx, tag)
	if err != nil {
		return nil, err
	}
	return s.simulateMaturity(ctx, deckIDs, profile, maxDays)
}

// projectBacklog runs the backlog forecast: stored due dates within
// the horizon, extended with heap-ordered projections of each review
// card's subsequent reviews under an assumed "good" rating, then the
// backlog recurrence against daily capacity.
func (s *forecastServiceImpl) projectBacklog(
	ctx context.Context,
	deckIDs []uuid.UUID,
	profile *domain.Profile,
	horizonDays int,
) (*BacklogForecast, error) {
	if horizonDays <= 0 || horizonDays > MaxHorizonDays {
		return nil, ErrInvalidHorizon
	}

	started := time.Now()
	defer func() {
		metrics.ForecastRuns.WithLabelValues("backlog").Inc()
		metrics.ForecastDuration.WithLabelValues("backlog").Observe(time.Since(started).Seconds())
	}()

	from := s.now()

	scheduled, err := s.cards.ScheduledDueByDay(ctx, deckIDs, from, horizonDays+1)
	if err != nil {
		return nil, &ServiceError{Operation: "backlog", Message: "failed to load scheduled due counts", Err: err}
	}
	if len(scheduled) < horizonDays+1 {
		grown := make([]int, horizonDays+1)
		copy(grown, scheduled)
		scheduled = grown
	}

	cards, err := s.cards.GetByDecks(ctx, deckIDs)
	if err != nil {
		return nil, &ServiceError{Operation: "backlog", Message: "failed to load cards", Err: err}
	}

	if err := s.extendWithProjections(ctx, cards, profile, from, horizonDays, scheduled); err != nil {
		return nil, err
	}

	capacity, err := s.dailyCapacity(ctx, deckIDs, profile, from)
	if err != nil {
		return nil, &ServiceError{Operation: "backlog", Message: "failed to derive capacity", Err: err}
	}

	days := make([]BacklogDay, horizonDays+1)
	days[0] = BacklogDay{Day: 0, ScheduledDue: scheduled[0], Backlog: scheduled[0]}
	for i := 1; i <= horizonDays; i++ {
		backlog := days[i-1].Backlog + scheduled[i] - capacity
		if backlog < 0 {
			backlog = 0
		}
		days[i] = BacklogDay{Day: i, ScheduledDue: scheduled[i], Backlog: backlog}
	}

	s.logger.Debug("projected backlog",
		slog.Int("deck_count", len(deckIDs)),
		slog.Int("horizon_days", horizonDays),
		slog.Int("capacity", capacity),
		slog.Int("final_backlog", days[horizonDays].Backlog))

	return &BacklogForecast{Days: days, DailyCapacity: capacity, GeneratedAt: from}, nil
}

// extendWithProjections adds, for each review card, the reviews it
// would generate beyond its stored due date under repeated "good"
// ratings. Projections are heap-ordered by due time; per-card and (for
// intensive profiles) per-day event caps bound the work, and hitting a
// cap silently halts further projection rather than failing.
func (s *forecastServiceImpl) extendWithProjections(
	ctx context.Context,
	cards []*domain.Card,
	profile *domain.Profile,
	from time.Time,
	horizonDays int,
	scheduled []int,
) error {
	var seed []*simEvent
	for _, card := range cards {
		if card.State != domain.CardStateReview {
			continue
		}
		due := card.DueAt
		if due.Before(from) {
			due = from
		}
		outcome, err := s.engine.ComputeOutcome(card, domain.RatingGood, 0, due, profile)
		if err != nil {
			return &ServiceError{Operation: "backlog", Message: "failed to project card", Err: err}
		}
		seed = append(seed, &simEvent{card: outcome.Card, due: outcome.Card.DueAt, count: 1})
	}

	perDayCap := -1
	if profile.Mode == domain.SchedulingModeIntensive {
		perDayCap = maxEventsPerDay
	}
	projected := make([]int, horizonDays+1)

	h := newEventHeap(seed)
	lastCheckpoint := 0
	for h.Len() > 0 {
		ev := h.pop()
		day := dayIndex(from, ev.due)
		if day > horizonDays {
			continue
		}

		if day >= lastCheckpoint+checkpointDays {
			lastCheckpoint = day
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if perDayCap >= 0 && projected[day] >= perDayCap {
			// Day budget exhausted; halt this card's projection.
			continue
		}
		projected[day]++
		scheduled[day]++

		if ev.count >= maxEventsPerCard {
			continue
		}
		outcome, err := s.engine.ComputeOutcome(ev.card, domain.RatingGood, 0, ev.due, profile)
		if err != nil {
			return &ServiceError{Operation: "backlog", Message: "failed to project card", Err: err}
		}
		h.push(&simEvent{card: outcome.Card, due: outcome.Card.DueAt, count: ev.count + 1})
	}
	return nil
}

// simulateMaturity advances the full population day by day. Each day
// processes due review cards first, then introduces new cards, both
// bounded by daily caps; ratings come from the deterministic selector
// over the empirical distribution.
func (s *forecastServiceImpl) simulateMaturity(
	ctx context.Context,
	deckIDs []uuid.UUID,
	profile *domain.Profile,
	maxDays int,
) (*MaturityForecast, error) {
	if maxDays <= 0 || maxDays > MaxHorizonDays {
		return nil, ErrInvalidHorizon
	}

	started := time.Now()
	defer func() {
		metrics.ForecastRuns.WithLabelValues("maturity").Inc()
		metrics.ForecastDuration.WithLabelValues("maturity").Observe(time.Since(started).Seconds())
	}()

	from := s.now()

	cards, err := s.cards.GetByDecks(ctx, deckIDs)
	if err != nil {
		return nil, &ServiceError{Operation: "maturity", Message: "failed to load cards", Err: err}
	}

	counts, err := s.logs.RatingCounts(ctx, deckIDs, ratingSampleLimit)
	if err != nil {
		return nil, &ServiceError{Operation: "maturity", Message: "failed to load rating history", Err: err}
	}
	dist := DistributionFromCounts(counts)
	selector := dist.selector()

	reviewCap := profile.ReviewsPerDay
	if reviewCap < 0 {
		reviewCap, err = s.historicalThroughput(ctx, deckIDs, from, defaultDailyReviews)
		if err != nil {
			return nil, &ServiceError{Operation: "maturity", Message: "failed to derive review pace", Err: err}
		}
	}
	newCap := profile.NewCardsPerDay
	if newCap < 0 {
		newCap = defaultDailyNew
	}

	run := newMaturityRun(cards, profile, s.engine, selector, from, reviewCap, newCap)
	result, err := run.execute(ctx, maxDays)
	if err != nil {
		return nil, err
	}

	result.TotalCards = len(cards)
	result.LapseRate = dist.LapseRate()
	result.GeneratedAt = from
	s.finalizeMaintenance(result, profile)

	s.logger.Debug("simulated maturity",
		slog.Int("deck_count", len(deckIDs)),
		slog.Int("total_cards", result.TotalCards),
		slog.Int("days_simulated", len(result.Days)),
		slog.Bool("all_mature", result.AllMature),
		slog.Bool("equilibrium", result.ReachedEquilibrium))

	return result, nil
}

// finalizeMaintenance computes the observed maintenance level over the
// tail window and the theoretical cross-check from the lapse rate.
func (s *forecastServiceImpl) finalizeMaintenance(result *MaturityForecast, profile *domain.Profile) {
	if result.TotalCards == 0 || len(result.Days) == 0 {
		return
	}

	window := confirmWindowDays
	if window > len(result.Days) {
		window = len(result.Days)
	}
	var reviews int
	for _, day := range result.Days[len(result.Days)-window:] {
		reviews += day.ReviewsDone
	}
	dailyRate := float64(reviews) / float64(window) / float64(result.TotalCards)
	result.MaintenancePercent = dailyRate * 100

	// Cross-check: a share lapseRate of daily reviews drops back to
	// learning, each spending roughly relearnDays before re-maturing.
	relearn := s.relearnDays(profile)
	result.TheoreticalMaintenancePercent = dailyRate * result.LapseRate * relearn * 100
}

// relearnDays estimates how long a just-lapsed mature card takes to
// re-cross the maturity threshold under repeated "good" ratings.
func (s *forecastServiceImpl) relearnDays(profile *domain.Profile) float64 {
	now := time.Now().UTC()
	card := &domain.Card{
		ID:         uuid.New(),
		DeckID:     uuid.New(),
		State:      domain.CardStateReview,
		Stability:  domain.MatureStabilityDays / 2,
		Difficulty: 5,
		DueAt:      now,
	}

	var days float64
	at := now
	for i := 0; i < 10 && card.Stability <= domain.MatureStabilityDays; i++ {
		outcome, err := s.engine.ComputeOutcome(card, domain.RatingGood, 0, at, profile)
		if err != nil {
			break
		}
		days += float64(outcome.IntervalMinutes) / (24 * 60)
		card = outcome.Card
		at = card.DueAt
	}
	return days
}

// dailyCapacity derives the daily review capacity: the profile's
// explicit cap, else trailing historical throughput, else the default.
func (s *forecastServiceImpl) dailyCapacity(
	ctx context.Context,
	deckIDs []uuid.UUID,
	profile *domain.Profile,
	now time.Time,
) (int, error) {
	if profile.ReviewsPerDay >= 0 {
		return profile.ReviewsPerDay, nil
	}
	return s.historicalThroughput(ctx, deckIDs, now, defaultDailyReviews)
}

// historicalThroughput returns the mean daily review count over the
// trailing throughput window, or fallback when the history is empty.
func (s *forecastServiceImpl) historicalThroughput(
	ctx context.Context,
	deckIDs []uuid.UUID,
	now time.Time,
	fallback int,
) (int, error) {
	total, err := s.logs.CountRange(ctx, deckIDs, now.AddDate(0, 0, -throughputWindowDays), now)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return fallback, nil
	}
	perDay := total / throughputWindowDays
	if perDay < 1 {
		perDay = 1
	}
	return perDay, nil
}

// deckProfile loads the deck's profile, mapping store not-found
// errors to the service sentinel.
func (s *forecastServiceImpl) deckProfile(ctx context.Context, deckID uuid.UUID) (*domain.Profile, error) {
	_, profile, err := s.decks.GetWithProfile(ctx, deckID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrDeckNotFound
		}
		return nil, fmt.Errorf("failed to load deck: %w", err)
	}
	return profile, nil
}

// resolveGroup resolves a deck group tag to its member deck IDs and
// effective profile.
func (s *forecastServiceImpl) resolveGroup(
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

// dayIndex returns which simulated day the timestamp falls in,
// bounded below by zero so overdue work lands on day 0.
func dayIndex(from, at time.Time) int {
	if !at.After(from) {
		return 0
	}
	return int(at.Sub(from).Hours() / 24)
}
