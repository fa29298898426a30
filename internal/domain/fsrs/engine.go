// Package fsrs implements the memory-model engine: a pure function
// mapping (current memory state, rating, elapsed time, profile) to the
// next memory state and due timestamp.
//
// The engine performs no I/O and holds no shared mutable state; both
// the scheduler and the forecast simulations drive it.
package fsrs

import (
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/engram-srs/engram/internal/domain"
)

// Common errors.
var (
	ErrNilCard    = errors.New("card cannot be nil")
	ErrNilProfile = errors.New("profile cannot be nil")
)

// Outcome is the result of applying one rating to a card: the updated
// memory state and the interval that produced its due timestamp.
type Outcome struct {
	Card            *domain.Card
	IntervalMinutes int
}

// Engine computes memory-state transitions. It is safe for concurrent
// use; all methods are pure with respect to their inputs.
type Engine struct {
	params *Params
	logger *slog.Logger
}

// NewEngine creates an engine with the given parameters. A nil params
// uses the defaults; a nil logger uses slog.Default.
func NewEngine(params *Params, logger *slog.Logger) *Engine {
	if params == nil {
		params = NewDefaultParams()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		params: params,
		logger: logger.With(slog.String("component", "fsrs_engine")),
	}
}

// Retrievability returns the estimated recall probability after
// elapsedDays for a card with the given stability:
// R = (1 + t/(9*S))^-1.
func (e *Engine) Retrievability(elapsedDays, stability float64) float64 {
	stability = e.sanitizeStability(stability)
	return 1.0 / (1.0 + elapsedDays/(9.0*stability))
}

// ComputeOutcome applies a rating to the card at the given time and
// returns the updated memory state and new due timestamp. The input
// card is not mutated.
//
// elapsed is the time since the card's previous review; when
// non-positive it is derived from the card's LastReviewedAt.
func (e *Engine) ComputeOutcome(
	card *domain.Card,
	rating domain.Rating,
	elapsed time.Duration,
	now time.Time,
	profile *domain.Profile,
) (*Outcome, error) {
	if card == nil {
		return nil, ErrNilCard
	}
	if profile == nil {
		return nil, ErrNilProfile
	}
	if !rating.IsValid() {
		return nil, domain.ErrInvalidRating
	}

	now = now.UTC()
	next := card.Clone()

	if next.State == domain.CardStateNew {
		// First rating: seed stability from the rating and difficulty
		// from the profile-independent default, then graduate.
		next.Stability = e.params.InitialStability[rating]
		next.Difficulty = e.clampDifficulty(
			e.params.DefaultDifficulty - e.params.DifficultyStep*float64(rating.Score()-3))
		next.State = domain.CardStateReview
	} else {
		stability := e.sanitizeStability(next.Stability)
		difficulty := e.sanitizeDifficulty(next.Difficulty)

		elapsedDays := e.elapsedDays(card, elapsed, now)
		retrievability := 1.0 / (1.0 + elapsedDays/(9.0*stability))

		next.Difficulty = e.clampDifficulty(
			difficulty - e.params.DifficultyStep*float64(rating.Score()-3))

		if rating.IsSuccess() {
			next.Stability = stability * (1 +
				e.params.GrowthFactor*
					(11-next.Difficulty)*
					math.Pow(stability, -0.1)*
					(math.Exp(e.params.RetrievabilitySlope*(1-retrievability))-1))
		} else {
			next.Stability = stability * e.params.LapseFactor
		}
	}

	if rating == domain.RatingAgain {
		next.Lapses++
	}
	next.Reps++

	intervalMinutes := e.intervalMinutes(next.Stability, rating, profile)
	next.DueAt = now.Add(time.Duration(intervalMinutes) * time.Minute)
	next.LastReviewedAt = &now
	next.UpdatedAt = now

	return &Outcome{Card: next, IntervalMinutes: intervalMinutes}, nil
}

// PreviewOutcomes returns the outcome of each possible rating applied
// to the card at the given time, without mutating anything.
func (e *Engine) PreviewOutcomes(
	card *domain.Card,
	now time.Time,
	profile *domain.Profile,
) (map[domain.Rating]*Outcome, error) {
	result := make(map[domain.Rating]*Outcome, len(domain.AllRatings))
	for _, rating := range domain.AllRatings {
		outcome, err := e.ComputeOutcome(card, rating, 0, now, profile)
		if err != nil {
			return nil, err
		}
		result[rating] = outcome
	}
	return result, nil
}

// intervalMinutes converts stability into a scheduling interval,
// clamped between the profile minimum and the maximum-interval cap.
// A rating of "again" always resets to the profile minimum regardless
// of the stability magnitude.
func (e *Engine) intervalMinutes(stability float64, rating domain.Rating, profile *domain.Profile) int {
	minMinutes := profile.MinIntervalMinutes()
	if rating == domain.RatingAgain {
		return minMinutes
	}

	retention := profile.RequestRetention
	minutes := stability * math.Log(retention) / math.Log(0.9) * 24 * 60

	maxMinutes := float64(e.params.MaxIntervalDays) * 24 * 60
	if minutes > maxMinutes {
		minutes = maxMinutes
	}
	if minutes < float64(minMinutes) {
		return minMinutes
	}
	return int(math.Round(minutes))
}

// elapsedDays computes the days since the previous review, preferring
// the caller-supplied elapsed duration.
func (e *Engine) elapsedDays(card *domain.Card, elapsed time.Duration, now time.Time) float64 {
	if elapsed > 0 {
		return elapsed.Hours() / 24.0
	}
	if card.LastReviewedAt != nil {
		return now.Sub(*card.LastReviewedAt).Hours() / 24.0
	}
	return 0
}

// sanitizeStability replaces non-finite or non-positive stability with
// the documented default of 1 day. Corrupt values are recovered here
// so NaN never propagates into scheduling decisions.
func (e *Engine) sanitizeStability(s float64) float64 {
	if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
		e.logger.Warn("replacing invalid stability with default",
			slog.Float64("stability", s))
		return 1.0
	}
	return s
}

// sanitizeDifficulty replaces non-finite or out-of-domain difficulty
// with the documented default of 5.
func (e *Engine) sanitizeDifficulty(d float64) float64 {
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 1 || d > 10 {
		e.logger.Warn("replacing invalid difficulty with default",
			slog.Float64("difficulty", d))
		return e.params.DefaultDifficulty
	}
	return d
}

// clampDifficulty clamps difficulty to [1, 10].
func (e *Engine) clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, 1), 10)
}
