package fsrs

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/engram-srs/engram/internal/domain"
)

var testNow = time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	return NewEngine(nil, nil)
}

func standardProfile() *domain.Profile {
	profile := domain.DefaultProfile()
	profile.Mode = domain.SchedulingModeStandard
	return profile
}

func intensiveProfile() *domain.Profile {
	profile := domain.DefaultProfile()
	profile.Mode = domain.SchedulingModeIntensive
	return profile
}

func reviewCard(stability, difficulty float64, lastReviewed time.Time) *domain.Card {
	return &domain.Card{
		ID:             uuid.New(),
		DeckID:         uuid.New(),
		State:          domain.CardStateReview,
		Stability:      stability,
		Difficulty:     difficulty,
		Reps:           3,
		DueAt:          testNow,
		LastReviewedAt: &lastReviewed,
	}
}

func newCard() *domain.Card {
	return &domain.Card{
		ID:     uuid.New(),
		DeckID: uuid.New(),
		State:  domain.CardStateNew,
		DueAt:  testNow,
	}
}

func TestRetrievability(t *testing.T) {
	t.Parallel()
	engine := testEngine()

	if got := engine.Retrievability(0, 10); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Retrievability(0, 10) = %v, want 1", got)
	}
	// R = (1 + t/(9S))^-1: at t = 9S the card is at 50%.
	if got := engine.Retrievability(90, 10); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Retrievability(9S, S) = %v, want 0.5", got)
	}
}

// TestAgainResetsToMinimumInterval pins the hard rule: "again" always
// yields the profile minimum interval and increments lapses, no matter
// how large stability was.
func TestAgainResetsToMinimumInterval(t *testing.T) {
	t.Parallel()
	engine := testEngine()

	tests := []struct {
		name        string
		profile     *domain.Profile
		wantMinutes int
	}{
		{"standard mode", standardProfile(), 1440},
		{"intensive mode", intensiveProfile(), 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			card := reviewCard(800, 3, testNow.AddDate(0, 0, -30))
			outcome, err := engine.ComputeOutcome(card, domain.RatingAgain, 0, testNow, tt.profile)
			if err != nil {
				t.Fatalf("ComputeOutcome() unexpected error: %v", err)
			}

			if outcome.IntervalMinutes != tt.wantMinutes {
				t.Errorf("IntervalMinutes = %d, want %d", outcome.IntervalMinutes, tt.wantMinutes)
			}
			if outcome.Card.Lapses != card.Lapses+1 {
				t.Errorf("Lapses = %d, want %d", outcome.Card.Lapses, card.Lapses+1)
			}
			wantDue := testNow.Add(time.Duration(tt.wantMinutes) * time.Minute)
			if !outcome.Card.DueAt.Equal(wantDue) {
				t.Errorf("DueAt = %v, want %v", outcome.Card.DueAt, wantDue)
			}
		})
	}
}

// TestStabilityMonotonicity: stability never decreases on a successful
// rating and strictly decreases on "again".
func TestStabilityMonotonicity(t *testing.T) {
	t.Parallel()
	engine := testEngine()
	profile := standardProfile()

	for _, rating := range []domain.Rating{domain.RatingHard, domain.RatingGood, domain.RatingEasy} {
		card := reviewCard(12, 6, testNow.AddDate(0, 0, -10))
		outcome, err := engine.ComputeOutcome(card, rating, 0, testNow, profile)
		if err != nil {
			t.Fatalf("ComputeOutcome(%q) unexpected error: %v", rating, err)
		}
		if outcome.Card.Stability < card.Stability {
			t.Errorf("stability decreased on %q: %v -> %v", rating, card.Stability, outcome.Card.Stability)
		}
	}

	card := reviewCard(12, 6, testNow.AddDate(0, 0, -10))
	outcome, err := engine.ComputeOutcome(card, domain.RatingAgain, 0, testNow, profile)
	if err != nil {
		t.Fatalf("ComputeOutcome(again) unexpected error: %v", err)
	}
	if outcome.Card.Stability >= card.Stability {
		t.Errorf("stability did not decrease on again: %v -> %v", card.Stability, outcome.Card.Stability)
	}
	if outcome.Card.Stability <= 0 {
		t.Errorf("stability must stay positive after a lapse, got %v", outcome.Card.Stability)
	}
}

// TestDifficultyStaysClamped drives difficulty against both bounds.
func TestDifficultyStaysClamped(t *testing.T) {
	t.Parallel()
	engine := testEngine()
	profile := standardProfile()

	card := reviewCard(5, 9.8, testNow.AddDate(0, 0, -5))
	for i := 0; i < 20; i++ {
		outcome, err := engine.ComputeOutcome(card, domain.RatingAgain, 0, testNow, profile)
		if err != nil {
			t.Fatalf("ComputeOutcome() unexpected error: %v", err)
		}
		card = outcome.Card
		if card.Difficulty < 1 || card.Difficulty > 10 {
			t.Fatalf("difficulty out of range after %d failures: %v", i+1, card.Difficulty)
		}
	}
	if card.Difficulty != 10 {
		t.Errorf("repeated failures should pin difficulty at 10, got %v", card.Difficulty)
	}

	card = reviewCard(5, 1.2, testNow.AddDate(0, 0, -5))
	for i := 0; i < 20; i++ {
		outcome, err := engine.ComputeOutcome(card, domain.RatingEasy, 0, testNow, profile)
		if err != nil {
			t.Fatalf("ComputeOutcome() unexpected error: %v", err)
		}
		card = outcome.Card
		if card.Difficulty < 1 || card.Difficulty > 10 {
			t.Fatalf("difficulty out of range after %d easies: %v", i+1, card.Difficulty)
		}
	}
	if card.Difficulty != 1 {
		t.Errorf("repeated easies should pin difficulty at 1, got %v", card.Difficulty)
	}
}

func TestFirstRatingGraduatesCard(t *testing.T) {
	t.Parallel()
	engine := testEngine()
	profile := standardProfile()

	for rating, wantStability := range map[domain.Rating]float64{
		domain.RatingAgain: 0.4,
		domain.RatingHard:  0.6,
		domain.RatingGood:  2.4,
		domain.RatingEasy:  5.8,
	} {
		outcome, err := engine.ComputeOutcome(newCard(), rating, 0, testNow, profile)
		if err != nil {
			t.Fatalf("ComputeOutcome(%q) unexpected error: %v", rating, err)
		}

		if outcome.Card.State != domain.CardStateReview {
			t.Errorf("%q: state = %q, want review", rating, outcome.Card.State)
		}
		if math.Abs(outcome.Card.Stability-wantStability) > 1e-9 {
			t.Errorf("%q: stability = %v, want %v", rating, outcome.Card.Stability, wantStability)
		}
		if outcome.Card.Reps != 1 {
			t.Errorf("%q: reps = %d, want 1", rating, outcome.Card.Reps)
		}
	}
}

// TestIntervalFollowsRetentionTarget checks the interval formula for a
// review card: S * ln(r)/ln(0.9) days, floored at the profile minimum.
func TestIntervalFollowsRetentionTarget(t *testing.T) {
	t.Parallel()
	engine := testEngine()
	profile := standardProfile()
	profile.RequestRetention = 0.9 // makes interval days == stability days

	card := reviewCard(10, 5, testNow.AddDate(0, 0, -10))
	outcome, err := engine.ComputeOutcome(card, domain.RatingGood, 0, testNow, profile)
	if err != nil {
		t.Fatalf("ComputeOutcome() unexpected error: %v", err)
	}

	wantMinutes := int(math.Round(outcome.Card.Stability * 24 * 60))
	if outcome.IntervalMinutes != wantMinutes {
		t.Errorf("IntervalMinutes = %d, want %d (stability %v)",
			outcome.IntervalMinutes, wantMinutes, outcome.Card.Stability)
	}
}

func TestIntervalRespectsMaximumCap(t *testing.T) {
	t.Parallel()
	engine := NewEngine(NewParams(ParamsConfig{MaxIntervalDays: 30}), nil)
	profile := standardProfile()

	card := reviewCard(5000, 2, testNow.AddDate(0, 0, -100))
	outcome, err := engine.ComputeOutcome(card, domain.RatingEasy, 0, testNow, profile)
	if err != nil {
		t.Fatalf("ComputeOutcome() unexpected error: %v", err)
	}

	if outcome.IntervalMinutes > 30*24*60 {
		t.Errorf("IntervalMinutes = %d, want <= %d", outcome.IntervalMinutes, 30*24*60)
	}
}

// TestInvalidNumericStateRecovered: non-finite or out-of-domain inputs
// are replaced with documented defaults instead of propagating NaN.
func TestInvalidNumericStateRecovered(t *testing.T) {
	t.Parallel()
	engine := testEngine()
	profile := standardProfile()

	tests := []struct {
		name       string
		stability  float64
		difficulty float64
	}{
		{"NaN stability", math.NaN(), 5},
		{"negative stability", -3, 5},
		{"infinite stability", math.Inf(1), 5},
		{"NaN difficulty", 4, math.NaN()},
		{"out-of-domain difficulty", 4, 42},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			card := reviewCard(tt.stability, tt.difficulty, testNow.AddDate(0, 0, -2))
			outcome, err := engine.ComputeOutcome(card, domain.RatingGood, 0, testNow, profile)
			if err != nil {
				t.Fatalf("ComputeOutcome() unexpected error: %v", err)
			}

			if math.IsNaN(outcome.Card.Stability) || math.IsInf(outcome.Card.Stability, 0) {
				t.Errorf("stability not recovered: %v", outcome.Card.Stability)
			}
			if outcome.Card.Stability <= 0 {
				t.Errorf("stability must be positive, got %v", outcome.Card.Stability)
			}
			if outcome.Card.Difficulty < 1 || outcome.Card.Difficulty > 10 {
				t.Errorf("difficulty not recovered: %v", outcome.Card.Difficulty)
			}
		})
	}
}

// TestPreviewOutcomesDoesNotMutate verifies preview is pure and covers
// every rating.
func TestPreviewOutcomesDoesNotMutate(t *testing.T) {
	t.Parallel()
	engine := testEngine()
	profile := standardProfile()

	card := reviewCard(8, 6, testNow.AddDate(0, 0, -8))
	before := *card

	preview, err := engine.PreviewOutcomes(card, testNow, profile)
	if err != nil {
		t.Fatalf("PreviewOutcomes() unexpected error: %v", err)
	}

	if len(preview) != len(domain.AllRatings) {
		t.Errorf("preview covers %d ratings, want %d", len(preview), len(domain.AllRatings))
	}
	if *card != before {
		t.Error("PreviewOutcomes mutated the input card")
	}
	if preview[domain.RatingAgain].IntervalMinutes != profile.MinIntervalMinutes() {
		t.Errorf("preview again interval = %d, want %d",
			preview[domain.RatingAgain].IntervalMinutes, profile.MinIntervalMinutes())
	}
	if preview[domain.RatingEasy].Card.Stability <= preview[domain.RatingHard].Card.Stability {
		t.Errorf("easy stability %v should exceed hard stability %v",
			preview[domain.RatingEasy].Card.Stability, preview[domain.RatingHard].Card.Stability)
	}
}

func TestComputeOutcomeInputValidation(t *testing.T) {
	t.Parallel()
	engine := testEngine()
	profile := standardProfile()

	if _, err := engine.ComputeOutcome(nil, domain.RatingGood, 0, testNow, profile); err != ErrNilCard {
		t.Errorf("nil card error = %v, want %v", err, ErrNilCard)
	}
	if _, err := engine.ComputeOutcome(newCard(), domain.RatingGood, 0, testNow, nil); err != ErrNilProfile {
		t.Errorf("nil profile error = %v, want %v", err, ErrNilProfile)
	}
	if _, err := engine.ComputeOutcome(newCard(), "meh", 0, testNow, profile); err != domain.ErrInvalidRating {
		t.Errorf("invalid rating error = %v, want %v", err, domain.ErrInvalidRating)
	}
}
