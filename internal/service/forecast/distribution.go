package forecast

import (
	"github.com/engram-srs/engram/internal/domain"
	"github.com/engram-srs/engram/internal/store"
)

// Rating-distribution sampling bounds. The empirical distribution is
// mined from the most recent ratingSampleLimit log entries; below
// minSampleSize observed ratings the fixed default applies instead.
const (
	ratingSampleLimit = 1000
	minSampleSize     = 50
)

// RatingDistribution is the relative frequency of each rating,
// normalized to sum to 1. Weights iterate in domain.AllRatings order
// so derived selectors are deterministic.
type RatingDistribution struct {
	Weights map[domain.Rating]float64
	Samples int
}

// DefaultRatingDistribution returns the fixed fallback distribution
// used when the review history is too thin to be representative.
func DefaultRatingDistribution() RatingDistribution {
	return RatingDistribution{
		Weights: map[domain.Rating]float64{
			domain.RatingAgain: 0.10,
			domain.RatingHard:  0.15,
			domain.RatingGood:  0.60,
			domain.RatingEasy:  0.15,
		},
	}
}

// DistributionFromCounts builds the empirical rating distribution from
// observed counts, falling back to the default below minSampleSize
// samples. Malformed history degrades to the default rather than
// failing.
func DistributionFromCounts(counts []store.RatingCount) RatingDistribution {
	total := 0
	byRating := make(map[domain.Rating]int, len(domain.AllRatings))
	for _, rc := range counts {
		if !rc.Rating.IsValid() || rc.Count < 0 {
			continue
		}
		byRating[rc.Rating] += rc.Count
		total += rc.Count
	}

	if total < minSampleSize {
		fallback := DefaultRatingDistribution()
		fallback.Samples = total
		return fallback
	}

	weights := make(map[domain.Rating]float64, len(domain.AllRatings))
	for _, rating := range domain.AllRatings {
		weights[rating] = float64(byRating[rating]) / float64(total)
	}
	return RatingDistribution{Weights: weights, Samples: total}
}

// LapseRate returns the probability mass of the "again" rating.
func (d RatingDistribution) LapseRate() float64 {
	return d.Weights[domain.RatingAgain]
}

// selector returns a fresh deterministic selector over the
// distribution. Selectors are instance-scoped: each simulation run
// builds its own, so concurrent runs never interfere.
func (d RatingDistribution) selector() *ratingSelector {
	s := &ratingSelector{
		ratings: make([]domain.Rating, 0, len(domain.AllRatings)),
		weights: make([]float64, 0, len(domain.AllRatings)),
		current: make([]float64, len(domain.AllRatings)),
	}
	for _, rating := range domain.AllRatings {
		w := d.Weights[rating]
		if w <= 0 {
			continue
		}
		s.ratings = append(s.ratings, rating)
		s.weights = append(s.weights, w)
		s.total += w
	}
	s.current = s.current[:len(s.ratings)]
	if len(s.ratings) == 0 {
		// Degenerate distribution; always answer "good".
		s.ratings = []domain.Rating{domain.RatingGood}
		s.weights = []float64{1}
		s.current = []float64{0}
		s.total = 1
	}
	return s
}

// ratingSelector emits ratings in proportion to their weights using
// smooth weighted round-robin. The scheme is fully deterministic:
// identical distributions produce identical rating sequences, which is
// what makes maturity simulations reproducible.
type ratingSelector struct {
	ratings []domain.Rating
	weights []float64
	current []float64
	total   float64
}

// Next returns the next rating in the round-robin sequence.
func (s *ratingSelector) Next() domain.Rating {
	best := 0
	for i := range s.ratings {
		s.current[i] += s.weights[i]
		if s.current[i] > s.current[best] {
			best = i
		}
	}
	s.current[best] -= s.total
	return s.ratings[best]
}
