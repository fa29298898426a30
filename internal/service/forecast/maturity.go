package forecast

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/engram-srs/engram/internal/domain"
	"github.com/engram-srs/engram/internal/domain/fsrs"
)

// maturityRun holds the mutable state of one maturity simulation.
// Every field is instance-scoped, including the rating selector, so
// runs compose and execute concurrently without interference.
type maturityRun struct {
	engine   *fsrs.Engine
	profile  *domain.Profile
	selector *ratingSelector
	start    time.Time

	reviewCap int // 0 means no reviews are processed at all
	newCap    int

	reviews  *eventHeap
	newQueue []*domain.Card
}

// newMaturityRun clones the population into simulation state: review
// cards become heap events keyed by their stored due date, new cards a
// queue in insertion order.
func newMaturityRun(
	cards []*domain.Card,
	profile *domain.Profile,
	engine *fsrs.Engine,
	selector *ratingSelector,
	start time.Time,
	reviewCap, newCap int,
) *maturityRun {
	var seed []*simEvent
	var fresh []*domain.Card
	for _, card := range cards {
		clone := card.Clone()
		if clone.State == domain.CardStateReview {
			seed = append(seed, &simEvent{card: clone, due: clone.DueAt})
		} else {
			fresh = append(fresh, clone)
		}
	}

	sort.Slice(fresh, func(i, j int) bool {
		if fresh[i].Position != fresh[j].Position {
			return fresh[i].Position < fresh[j].Position
		}
		return fresh[i].ID.String() < fresh[j].ID.String()
	})

	return &maturityRun{
		engine:    engine,
		profile:   profile,
		selector:  selector,
		start:     start,
		reviewCap: reviewCap,
		newCap:    newCap,
		reviews:   newEventHeap(seed),
		newQueue:  fresh,
	}
}

// execute advances the population day by day until maxDays, all-mature
// quiescence, or a confirmed equilibrium, whichever comes first.
func (r *maturityRun) execute(ctx context.Context, maxDays int) (*MaturityForecast, error) {
	total := r.reviews.Len() + len(r.newQueue)
	result := &MaturityForecast{EquilibriumDay: -1}

	// Rolling window of daily learning counts for equilibrium
	// detection.
	window := make([]int, 0, equilibriumWindowDays)
	stableStreak := 0
	candidateDay := -1
	quietStreak := 0

	for day := 0; day < maxDays; day++ {
		if day%checkpointDays == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		dayStart := r.start.AddDate(0, 0, day)
		dayEnd := dayStart.AddDate(0, 0, 1)

		reviewsDone, err := r.processReviews(dayStart, dayEnd)
		if err != nil {
			return nil, err
		}
		newIntroduced, err := r.introduceNew(dayStart)
		if err != nil {
			return nil, err
		}

		learning, mature := r.classify()
		result.Days = append(result.Days, MaturityDay{
			Day:           day,
			NewCount:      len(r.newQueue),
			LearningCount: learning,
			MatureCount:   mature,
			ReviewsDone:   reviewsDone,
			NewIntroduced: newIntroduced,
		})

		if reviewsDone == 0 && newIntroduced == 0 {
			quietStreak++
		} else {
			quietStreak = 0
		}
		if len(r.newQueue) == 0 && learning == 0 && quietStreak >= quietDaysToStop {
			result.AllMature = true
			return result, nil
		}

		window = append(window, learning)
		if len(window) > equilibriumWindowDays {
			window = window[1:]
		}
		if len(window) == equilibriumWindowDays &&
			stddev(window) < equilibriumStddevFrac*float64(total) {
			stableStreak++
		} else {
			stableStreak = 0
			candidateDay = -1
		}
		if stableStreak == equilibriumWindowDays {
			candidateDay = day - equilibriumWindowDays + 1
		}
		if candidateDay >= 0 && stableStreak >= equilibriumWindowDays+confirmWindowDays {
			result.ReachedEquilibrium = true
			result.EquilibriumDay = candidateDay
			return result, nil
		}
	}

	return result, nil
}

// processReviews pops and rates every review card due before dayEnd,
// up to the daily cap. Cards pushed back with a same-day due date
// (intensive mode) can be processed again within the same day; the cap
// bounds the total.
func (r *maturityRun) processReviews(dayStart, dayEnd time.Time) (int, error) {
	done := 0
	for done < r.reviewCap {
		ev := r.reviews.peek()
		if ev == nil || !ev.due.Before(dayEnd) {
			break
		}
		ev = r.reviews.pop()

		at := ev.due
		if at.Before(dayStart) {
			at = dayStart
		}
		outcome, err := r.engine.ComputeOutcome(ev.card, r.selector.Next(), 0, at, r.profile)
		if err != nil {
			return done, &ServiceError{Operation: "maturity", Message: "failed to rate simulated card", Err: err}
		}
		r.reviews.push(&simEvent{card: outcome.Card, due: outcome.Card.DueAt})
		done++
	}
	return done, nil
}

// introduceNew rates up to newCap new cards into the review heap.
func (r *maturityRun) introduceNew(dayStart time.Time) (int, error) {
	introduced := 0
	for introduced < r.newCap && len(r.newQueue) > 0 {
		card := r.newQueue[0]
		r.newQueue = r.newQueue[1:]

		outcome, err := r.engine.ComputeOutcome(card, r.selector.Next(), 0, dayStart, r.profile)
		if err != nil {
			return introduced, &ServiceError{Operation: "maturity", Message: "failed to introduce simulated card", Err: err}
		}
		r.reviews.push(&simEvent{card: outcome.Card, due: outcome.Card.DueAt})
		introduced++
	}
	return introduced, nil
}

// classify counts learning and mature cards in the review population.
// The trichotomy is derived from (state, stability) at read time.
func (r *maturityRun) classify() (learning, mature int) {
	for _, ev := range *r.reviews {
		if ev.card.IsMature() {
			mature++
		} else {
			learning++
		}
	}
	return learning, mature
}

// stddev returns the population standard deviation of the values.
func stddev(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := float64(v) - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}
