package domain

import "errors"

// Rating represents the learner's assessment of recall quality for a
// single review.
type Rating string

// Possible rating values, ordered from complete failure to effortless
// recall.
const (
	RatingAgain Rating = "again"
	RatingHard  Rating = "hard"
	RatingGood  Rating = "good"
	RatingEasy  Rating = "easy"
)

// ErrInvalidRating is returned when a rating value is not one of
// again/hard/good/easy.
var ErrInvalidRating = errors.New("invalid rating")

// AllRatings lists every valid rating in ascending order. The order is
// relied upon by preview responses and the forecast rating selector.
var AllRatings = []Rating{RatingAgain, RatingHard, RatingGood, RatingEasy}

// IsValid reports whether r is one of the four defined ratings.
func (r Rating) IsValid() bool {
	switch r {
	case RatingAgain, RatingHard, RatingGood, RatingEasy:
		return true
	default:
		return false
	}
}

// Score returns the numeric grade of the rating (again=1 .. easy=4)
// used by the memory model's difficulty update.
func (r Rating) Score() int {
	switch r {
	case RatingAgain:
		return 1
	case RatingHard:
		return 2
	case RatingGood:
		return 3
	case RatingEasy:
		return 4
	default:
		return 0
	}
}

// IsSuccess reports whether the rating counts as a successful recall
// (hard, good, or easy).
func (r Rating) IsSuccess() bool {
	return r.IsValid() && r != RatingAgain
}
