package scheduler_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engram-srs/engram/internal/domain"
	"github.com/engram-srs/engram/internal/domain/fsrs"
	"github.com/engram-srs/engram/internal/mocks"
	"github.com/engram-srs/engram/internal/service/scheduler"
	"github.com/engram-srs/engram/internal/store"
)

// fakeClock is a mutable time source shared between the test and the
// service under test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// passthroughTx runs the transaction body directly against the
// in-memory stores.
func passthroughTx(ctx context.Context, db *sql.DB, fn store.TxFn) error {
	return fn(ctx, nil)
}

type schedulerFixture struct {
	cards    *mocks.MemoryCardStore
	decks    *mocks.MemoryDeckStore
	logs     *mocks.MemoryReviewLogStore
	sessions *mocks.MemorySessionStore
	clock    *fakeClock
	svc      scheduler.SchedulerService
	deck     *domain.Deck
	profile  *domain.Profile
}

// newFixture builds a scheduler service over in-memory stores with one
// deck bound to the given profile. The clock starts at noon UTC, well
// past the default 04:00 rollover.
func newFixture(t *testing.T, profile *domain.Profile, opts ...scheduler.Option) *schedulerFixture {
	t.Helper()

	f := &schedulerFixture{
		cards:    mocks.NewMemoryCardStore(),
		decks:    mocks.NewMemoryDeckStore(),
		logs:     mocks.NewMemoryReviewLogStore(),
		sessions: mocks.NewMemorySessionStore(),
		clock:    newFakeClock(time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)),
		profile:  profile,
	}

	ctx := context.Background()
	require.NoError(t, f.decks.CreateProfile(ctx, profile))

	deck, err := domain.NewDeck("kanji", "jp", profile.ID)
	require.NoError(t, err)
	require.NoError(t, f.decks.Create(ctx, deck))
	f.deck = deck

	opts = append([]scheduler.Option{
		scheduler.WithClock(f.clock.Now),
		scheduler.WithTxRunner(passthroughTx),
	}, opts...)
	f.svc = scheduler.NewSchedulerService(
		nil, f.cards, f.decks, f.logs, f.sessions, fsrs.NewEngine(nil, nil), nil, opts...)
	return f
}

func (f *schedulerFixture) addNewCard(t *testing.T, position int) *domain.Card {
	t.Helper()
	card, err := domain.NewCard(f.deck.ID, position)
	require.NoError(t, err)
	card.DueAt = f.clock.Now()
	require.NoError(t, f.cards.CreateMultiple(context.Background(), []*domain.Card{card}))
	return card
}

func (f *schedulerFixture) addReviewCard(t *testing.T, due time.Time, stability float64) *domain.Card {
	t.Helper()
	reviewed := due.AddDate(0, 0, -1)
	card := &domain.Card{
		ID:             uuid.New(),
		DeckID:         f.deck.ID,
		State:          domain.CardStateReview,
		Stability:      stability,
		Difficulty:     5,
		Reps:           1,
		DueAt:          due,
		LastReviewedAt: &reviewed,
	}
	require.NoError(t, f.cards.CreateMultiple(context.Background(), []*domain.Card{card}))
	return card
}

func TestGetNextPrefersDueReviewsOverNew(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.DefaultProfile())
	ctx := context.Background()

	f.addNewCard(t, 0)
	review := f.addReviewCard(t, f.clock.Now().Add(-time.Hour), 3)

	card, err := f.svc.GetNext(ctx, f.deck.ID, scheduler.NextOptions{AllowNew: true})
	require.NoError(t, err)
	assert.Equal(t, review.ID, card.ID, "due review must precede new cards")
}

func TestGetNextOrdersDueByDueDate(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.DefaultProfile())
	ctx := context.Background()

	f.addReviewCard(t, f.clock.Now().Add(-time.Hour), 3)
	older := f.addReviewCard(t, f.clock.Now().Add(-48*time.Hour), 3)

	card, err := f.svc.GetNext(ctx, f.deck.ID, scheduler.NextOptions{})
	require.NoError(t, err)
	assert.Equal(t, older.ID, card.ID)
}

func TestGetNextWithoutAllowNewSkipsNewCards(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.DefaultProfile())
	ctx := context.Background()

	f.addNewCard(t, 0)

	_, err := f.svc.GetNext(ctx, f.deck.ID, scheduler.NextOptions{AllowNew: false})
	assert.ErrorIs(t, err, scheduler.ErrNoCardAvailable)
}

func TestGetNextZeroNewQuotaNeverOffersNew(t *testing.T) {
	t.Parallel()
	profile := domain.DefaultProfile()
	profile.NewCardsPerDay = 0
	f := newFixture(t, profile)
	ctx := context.Background()

	f.addNewCard(t, 0)

	_, err := f.svc.GetNext(ctx, f.deck.ID, scheduler.NextOptions{AllowNew: true})
	assert.ErrorIs(t, err, scheduler.ErrNoCardAvailable)
}

func TestGetNextExhaustedReviewQuotaFallsThroughToNew(t *testing.T) {
	t.Parallel()
	profile := domain.DefaultProfile()
	profile.ReviewsPerDay = 1
	f := newFixture(t, profile)
	ctx := context.Background()

	first := f.addReviewCard(t, f.clock.Now().Add(-2*time.Hour), 3)
	f.addReviewCard(t, f.clock.Now().Add(-time.Hour), 3)
	fresh := f.addNewCard(t, 0)

	_, err := f.svc.Rate(ctx, first.ID, domain.RatingGood, 0)
	require.NoError(t, err)

	// One review consumed today: the second due card is quota-blocked,
	// so the new card is offered instead.
	card, err := f.svc.GetNext(ctx, f.deck.ID, scheduler.NextOptions{AllowNew: true})
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, card.ID)
}

func TestGetNextUnknownDeck(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.DefaultProfile())

	_, err := f.svc.GetNext(context.Background(), uuid.New(), scheduler.NextOptions{})
	assert.ErrorIs(t, err, scheduler.ErrDeckNotFound)
}

// TestNewCardQuotaAcrossDays walks the canonical quota scenario: ten
// new cards under a two-per-day cap, rated through the service, with
// the counters resetting at the profile's rollover hour.
func TestNewCardQuotaAcrossDays(t *testing.T) {
	t.Parallel()
	profile := domain.DefaultProfile()
	profile.NewCardsPerDay = 2
	f := newFixture(t, profile)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		f.addNewCard(t, i)
	}

	for i := 0; i < 2; i++ {
		card, err := f.svc.GetNext(ctx, f.deck.ID, scheduler.NextOptions{AllowNew: true})
		require.NoError(t, err)
		assert.Equal(t, i, card.Position, "new cards must come in insertion order")

		_, err = f.svc.Rate(ctx, card.ID, domain.RatingGood, 0)
		require.NoError(t, err)
	}

	// Quota exhausted for today.
	_, err := f.svc.GetNext(ctx, f.deck.ID, scheduler.NextOptions{AllowNew: true})
	assert.ErrorIs(t, err, scheduler.ErrNoCardAvailable)

	counts, err := f.svc.GetDailyCounts(ctx, f.deck.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, counts.NewCount)
	assert.Equal(t, 2, counts.NewRatedToday)
	assert.Equal(t, 0, counts.NewRemaining)
	assert.Equal(t, 0, counts.DueCount)

	// Three days on, the two graduated cards (scheduled 2.4 days out)
	// are due and take precedence, and the new-card quota is fresh.
	f.clock.Advance(72 * time.Hour)

	card, err := f.svc.GetNext(ctx, f.deck.ID, scheduler.NextOptions{AllowNew: true})
	require.NoError(t, err)
	assert.Equal(t, domain.CardStateReview, card.State)

	counts, err = f.svc.GetDailyCounts(ctx, f.deck.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.DueCount)
	assert.Equal(t, 2, counts.NewRemaining)
	assert.Equal(t, 0, counts.NewRatedToday)
}

func TestRateInvalidRating(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.DefaultProfile())

	_, err := f.svc.Rate(context.Background(), uuid.New(), "perfect", 0)
	assert.ErrorIs(t, err, scheduler.ErrInvalidRating)
	assert.Empty(t, f.logs.Entries(), "an invalid rating must leave no trace")
}

func TestRateUnknownCardHasNoSideEffects(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.DefaultProfile())

	_, err := f.svc.Rate(context.Background(), uuid.New(), domain.RatingGood, 0)
	assert.ErrorIs(t, err, scheduler.ErrCardNotFound)
	assert.Empty(t, f.logs.Entries(), "a failed rating must leave no trace")
}

func TestRateAppendsLogWithStateTransition(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.DefaultProfile())
	ctx := context.Background()

	card := f.addNewCard(t, 0)

	updated, err := f.svc.Rate(ctx, card.ID, domain.RatingGood, 1500*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, domain.CardStateReview, updated.State)

	entries := f.logs.Entries()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, card.ID, entry.CardID)
	assert.Equal(t, domain.RatingGood, entry.Rating)
	assert.Equal(t, int64(1500), entry.ElapsedMs)
	assert.Equal(t, domain.CardStateNew, entry.OldState)
	assert.Equal(t, domain.CardStateReview, entry.NewState)
	assert.Equal(t, updated.Stability, entry.NewStability)
	assert.Nil(t, entry.SessionID, "no session was open")
}

func TestRateCountsDistinctCardsPerSession(t *testing.T) {
	t.Parallel()
	profile := domain.DefaultProfile()
	profile.Mode = domain.SchedulingModeIntensive
	f := newFixture(t, profile)
	ctx := context.Background()

	f.addReviewCard(t, f.clock.Now().Add(-time.Hour), 3)
	f.addReviewCard(t, f.clock.Now().Add(-time.Hour), 4)

	session, err := f.svc.StartSession(ctx, f.deck.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, session.GoalTotal)

	card, err := f.svc.GetNext(ctx, f.deck.ID, scheduler.NextOptions{})
	require.NoError(t, err)

	// Rate the same card twice: progress counts distinct cards only.
	_, err = f.svc.Rate(ctx, card.ID, domain.RatingAgain, 0)
	require.NoError(t, err)
	_, err = f.svc.Rate(ctx, card.ID, domain.RatingGood, 0)
	require.NoError(t, err)

	progress, err := f.svc.GetSessionProgress(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.DoneUnique)
	assert.Equal(t, 2, progress.GoalTotal, "goal is snapshotted, never recomputed")

	for _, entry := range f.logs.Entries() {
		require.NotNil(t, entry.SessionID)
		assert.Equal(t, session.ID, *entry.SessionID)
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.DefaultProfile())
	ctx := context.Background()

	f.addReviewCard(t, f.clock.Now().Add(-time.Hour), 3)
	f.addNewCard(t, 0)

	session, err := f.svc.StartSession(ctx, f.deck.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, session.GoalTotal, "goal is due plus quota-capped new")

	resumed, err := f.svc.ResumeSession(ctx, f.deck.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, resumed.ID, "resume must return the open session")

	require.NoError(t, f.svc.EndSession(ctx, session.ID))

	progress, err := f.svc.GetSessionProgress(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, progress.IsOpen())

	// With no open session, resume starts a fresh one.
	fresh, err := f.svc.ResumeSession(ctx, f.deck.ID)
	require.NoError(t, err)
	assert.NotEqual(t, session.ID, fresh.ID)
}

func TestSessionNotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.DefaultProfile())
	ctx := context.Background()

	_, err := f.svc.GetSessionProgress(ctx, uuid.New())
	assert.ErrorIs(t, err, scheduler.ErrSessionNotFound)
	assert.ErrorIs(t, f.svc.EndSession(ctx, uuid.New()), scheduler.ErrSessionNotFound)
}

func TestPreviewDoesNotChangeState(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.DefaultProfile())
	ctx := context.Background()

	card := f.addReviewCard(t, f.clock.Now().Add(-time.Hour), 3)

	preview, err := f.svc.Preview(ctx, card.ID)
	require.NoError(t, err)
	assert.Len(t, preview, len(domain.AllRatings))

	stored, err := f.cards.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, card.Stability, stored.Stability)
	assert.Equal(t, card.DueAt, stored.DueAt)
	assert.Empty(t, f.logs.Entries())
}

func TestGetNextForGroupPoolsDecks(t *testing.T) {
	t.Parallel()
	f := newFixture(t, domain.DefaultProfile())
	ctx := context.Background()

	// Second deck sharing the tag, with its own due card.
	other, err := domain.NewDeck("vocab", "jp", f.profile.ID)
	require.NoError(t, err)
	require.NoError(t, f.decks.Create(ctx, other))

	reviewed := f.clock.Now().Add(-48 * time.Hour)
	card := &domain.Card{
		ID:             uuid.New(),
		DeckID:         other.ID,
		State:          domain.CardStateReview,
		Stability:      3,
		Difficulty:     5,
		DueAt:          f.clock.Now().Add(-24 * time.Hour),
		LastReviewedAt: &reviewed,
	}
	require.NoError(t, f.cards.CreateMultiple(ctx, []*domain.Card{card}))
	f.addReviewCard(t, f.clock.Now().Add(-time.Hour), 3)

	got, err := f.svc.GetNextForGroup(ctx, "jp", scheduler.NextOptions{})
	require.NoError(t, err)
	assert.Equal(t, card.ID, got.ID, "the oldest due card across the group wins")

	_, err = f.svc.GetNextForGroup(ctx, "nope", scheduler.NextOptions{})
	assert.ErrorIs(t, err, scheduler.ErrDeckNotFound)
}

func TestGetNextForGroupUsesResolverProfile(t *testing.T) {
	t.Parallel()

	// The resolver-supplied profile forbids reviews entirely; the due
	// card must be withheld even though the deck's own profile allows it.
	restricted := domain.DefaultProfile()
	restricted.ReviewsPerDay = 0
	resolver := func(ctx context.Context, tag string) (*domain.Profile, error) {
		return restricted, nil
	}

	f := newFixture(t, domain.DefaultProfile(), scheduler.WithProfileResolver(resolver))
	f.addReviewCard(t, f.clock.Now().Add(-time.Hour), 3)

	_, err := f.svc.GetNextForGroup(context.Background(), "jp", scheduler.NextOptions{})
	assert.ErrorIs(t, err, scheduler.ErrNoCardAvailable)
}
