// Package forecast implements the workload-projection engine: a
// heap-driven backlog forecast and a day-by-day maturity simulation
// with equilibrium detection. Both simulations read the card
// population, drive the memory-model engine on ephemeral copies, and
// never write back.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/engram-srs/engram/internal/domain"
)

// Simulation bounds. Event caps bound worst-case cost deterministically
// instead of wall-clock timeouts.
const (
	// MaxHorizonDays caps both simulations at roughly five years.
	MaxHorizonDays = 1825

	// checkpointDays is the cooperative-checkpoint cadence: control
	// returns to the caller (via ctx) at least every this many
	// simulated days.
	checkpointDays = 5

	// maxEventsPerCard bounds how many projected reviews of a single
	// card the backlog forecast will generate.
	maxEventsPerCard = 50

	// maxEventsPerDay bounds projected reviews landing on a single day
	// for intensive profiles, which can otherwise schedule same-day
	// repeats without limit.
	maxEventsPerDay = 500

	// throughputWindowDays is the trailing window used to derive daily
	// capacity from the review history when a profile cap is unlimited.
	throughputWindowDays = 30

	// Fallback daily paces when a cap is unlimited and the history is
	// empty.
	defaultDailyReviews = 200
	defaultDailyNew     = 20

	// Equilibrium detection: daily learning-card counts must hold a
	// standard deviation below equilibriumStddevFrac of the population
	// across a rolling equilibriumWindowDays window, then keep holding
	// through a confirmWindowDays confirmation window.
	equilibriumWindowDays = 14
	confirmWindowDays     = 14
	equilibriumStddevFrac = 0.01

	// quietDaysToStop ends the simulation once every card is mature and
	// this many consecutive zero-activity days have elapsed.
	quietDaysToStop = 7
)

// Common error types for the forecast service.
var (
	// ErrDeckNotFound indicates that the deck (or deck group) does not
	// exist.
	ErrDeckNotFound = errors.New("deck not found")

	// ErrInvalidHorizon indicates a non-positive or out-of-range
	// simulation horizon.
	ErrInvalidHorizon = errors.New("invalid forecast horizon")
)

// BacklogDay is one day of the backlog projection. Day 0 reflects the
// cards already overdue at projection time and is never reduced by
// capacity.
type BacklogDay struct {
	Day          int `json:"day"`
	ScheduledDue int `json:"scheduled_due"`
	Backlog      int `json:"backlog"`
}

// BacklogForecast is the result of projecting review workload against
// daily capacity over a horizon.
type BacklogForecast struct {
	Days          []BacklogDay `json:"days"`
	DailyCapacity int          `json:"daily_capacity"`
	GeneratedAt   time.Time    `json:"generated_at"`
}

// MaturityDay is one day's population snapshot from the maturity
// simulation.
type MaturityDay struct {
	Day           int `json:"day"`
	NewCount      int `json:"new_count"`
	LearningCount int `json:"learning_count"`
	MatureCount   int `json:"mature_count"`
	ReviewsDone   int `json:"reviews_done"`
	NewIntroduced int `json:"new_introduced"`
}

// MaturityForecast is the result of simulating the card population
// forward until the horizon, all-mature quiescence, or a confirmed
// equilibrium.
type MaturityForecast struct {
	Days       []MaturityDay `json:"days"`
	TotalCards int           `json:"total_cards"`

	// AllMature reports that the simulation ended because every card
	// reached maturity and activity ceased.
	AllMature bool `json:"all_mature"`

	// ReachedEquilibrium reports that a stable learning-card plateau
	// was detected and confirmed. EquilibriumDay is the first day of
	// the stable window, or -1.
	ReachedEquilibrium bool `json:"reached_equilibrium"`
	EquilibriumDay     int  `json:"equilibrium_day"`

	// MaintenancePercent is the observed steady-state daily review
	// load as a percentage of the population.
	// TheoreticalMaintenancePercent is the cross-check derived from
	// the empirical lapse rate and the model's relearning time.
	MaintenancePercent            float64 `json:"maintenance_percent"`
	TheoreticalMaintenancePercent float64 `json:"theoretical_maintenance_percent"`
	LapseRate                     float64 `json:"lapse_rate"`

	GeneratedAt time.Time `json:"generated_at"`
}

// ProfileResolver resolves the effective scheduling profile for a deck
// group tag. Supplied by the caller; tag-hierarchy resolution is
// external to this core.
type ProfileResolver func(ctx context.Context, tag string) (*domain.Profile, error)

// ForecastService projects future review workload and population
// maturity. All simulations are read-only and safely cancellable via
// ctx; cancellation simply stops awaiting further days.
type ForecastService interface {
	// ProjectBacklog projects scheduled-due counts and backlog growth
	// for the deck over the horizon. Day 0 carries the current overdue
	// count untouched; subsequent days apply
	// backlog[i] = max(0, backlog[i-1] + due[i] - capacity).
	ProjectBacklog(ctx context.Context, deckID uuid.UUID, horizonDays int) (*BacklogForecast, error)

	// ProjectBacklogForGroup behaves like ProjectBacklog over the union
	// of all decks sharing the tag.
	ProjectBacklogForGroup(ctx context.Context, tag string, horizonDays int) (*BacklogForecast, error)

	// SimulateMaturity advances every card in the deck day by day up to
	// maxDays, rating each due card from the empirical rating
	// distribution, and records daily new/learning/mature counts.
	// Identical inputs produce identical snapshots.
	SimulateMaturity(ctx context.Context, deckID uuid.UUID, maxDays int) (*MaturityForecast, error)

	// SimulateMaturityForGroup behaves like SimulateMaturity over the
	// union of all decks sharing the tag.
	SimulateMaturityForGroup(ctx context.Context, tag string, maxDays int) (*MaturityForecast, error)
}

// ServiceError wraps forecast failures with the operation that
// produced them so consumers can differentiate with errors.As.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}
