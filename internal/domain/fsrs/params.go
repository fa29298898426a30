package fsrs

import (
	"github.com/engram-srs/engram/internal/domain"
)

// Params defines all configurable parameters for the memory model.
//
// The defaults derive from the FSRS reference weight set: the
// per-rating initial stabilities are w0..w3, GrowthFactor is e^w8 and
// RetrievabilitySlope is w10 of that vector. The simplified update
// formulas here keep the fixed S^-0.1 stability decay exponent.
type Params struct {
	// InitialStability is the stability (days) assigned on a card's
	// first rating, per rating value.
	InitialStability map[domain.Rating]float64

	// DefaultDifficulty seeds new cards and replaces out-of-domain
	// difficulty inputs at the engine boundary.
	DefaultDifficulty float64

	// DifficultyStep scales the per-review difficulty update:
	// D' = clamp(D - DifficultyStep*(score-3), 1, 10).
	DifficultyStep float64

	// GrowthFactor is the multiplicative constant of the stability
	// growth term on successful recall.
	GrowthFactor float64

	// RetrievabilitySlope is the exponent constant applied to (1-R)
	// in the stability growth term.
	RetrievabilitySlope float64

	// LapseFactor shrinks stability on a failed recall; must be < 1.
	LapseFactor float64

	// MaxIntervalDays caps every computed interval.
	MaxIntervalDays int
}

// ParamsConfig allows overriding individual defaults when creating a
// Params instance. Zero values keep the default.
type ParamsConfig struct {
	AgainInitialStability float64
	HardInitialStability  float64
	GoodInitialStability  float64
	EasyInitialStability  float64

	DefaultDifficulty   float64
	DifficultyStep      float64
	GrowthFactor        float64
	RetrievabilitySlope float64
	LapseFactor         float64
	MaxIntervalDays     int
}

// NewDefaultParams creates a Params instance with the default weight
// set.
func NewDefaultParams() *Params {
	return &Params{
		InitialStability: map[domain.Rating]float64{
			domain.RatingAgain: 0.4,
			domain.RatingHard:  0.6,
			domain.RatingGood:  2.4,
			domain.RatingEasy:  5.8,
		},
		DefaultDifficulty:   5.0,
		DifficultyStep:      0.94,
		GrowthFactor:        4.4437, // e^1.49
		RetrievabilitySlope: 0.94,
		LapseFactor:         0.5,
		MaxIntervalDays:     36500, // ~100 years
	}
}

// NewParams creates a Params instance with custom overrides applied on
// top of the defaults.
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.AgainInitialStability > 0 {
		params.InitialStability[domain.RatingAgain] = config.AgainInitialStability
	}
	if config.HardInitialStability > 0 {
		params.InitialStability[domain.RatingHard] = config.HardInitialStability
	}
	if config.GoodInitialStability > 0 {
		params.InitialStability[domain.RatingGood] = config.GoodInitialStability
	}
	if config.EasyInitialStability > 0 {
		params.InitialStability[domain.RatingEasy] = config.EasyInitialStability
	}

	if config.DefaultDifficulty > 0 {
		params.DefaultDifficulty = config.DefaultDifficulty
	}
	if config.DifficultyStep > 0 {
		params.DifficultyStep = config.DifficultyStep
	}
	if config.GrowthFactor > 0 {
		params.GrowthFactor = config.GrowthFactor
	}
	if config.RetrievabilitySlope > 0 {
		params.RetrievabilitySlope = config.RetrievabilitySlope
	}
	if config.LapseFactor > 0 && config.LapseFactor < 1 {
		params.LapseFactor = config.LapseFactor
	}
	if config.MaxIntervalDays > 0 {
		params.MaxIntervalDays = config.MaxIntervalDays
	}

	return params
}
