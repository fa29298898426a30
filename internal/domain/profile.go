package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SchedulingMode selects the minimum-interval regime of a profile.
type SchedulingMode string

// Scheduling modes. Standard enforces a one-day minimum interval;
// intensive allows same-day repeats with a one-minute minimum. Both
// share the maximum-interval cap.
const (
	SchedulingModeStandard  SchedulingMode = "standard"
	SchedulingModeIntensive SchedulingMode = "intensive"
)

// ReviewOrder selects how due review cards are ordered by the
// scheduler.
type ReviewOrder string

// Review order modes.
const (
	ReviewOrderDueDate ReviewOrder = "due-date"
	ReviewOrderRandom  ReviewOrder = "random"
)

// QuotaUnlimited disables a daily cap. Any negative cap value has the
// same meaning; zero means no cards of that kind are offered at all.
const QuotaUnlimited = -1

// Common validation errors for Profile.
var (
	ErrEmptyProfileID       = errors.New("profile ID cannot be empty")
	ErrInvalidRetention     = errors.New("request retention must be in (0, 1)")
	ErrInvalidMode          = errors.New("invalid scheduling mode")
	ErrInvalidReviewOrder   = errors.New("invalid review order")
	ErrInvalidDayStartHour  = errors.New("next day start hour must be in [0, 23]")
)

// Profile is an immutable snapshot of the scheduling settings applied
// to one or more decks. A profile is resolved per decision and never
// mutated mid-operation.
type Profile struct {
	ID               uuid.UUID      `json:"id"`
	Name             string         `json:"name"`
	RequestRetention float64        `json:"request_retention"` // Desired recall probability, e.g. 0.9
	Mode             SchedulingMode `json:"mode"`
	NewCardsPerDay   int            `json:"new_cards_per_day"`    // 0 = none, negative = unlimited
	ReviewsPerDay    int            `json:"reviews_per_day"`      // 0 = none, negative = unlimited
	ReviewOrder      ReviewOrder    `json:"review_order"`
	NextDayStartsAt  int            `json:"next_day_starts_at"` // Hour of day (UTC) at which quota counters roll over
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// DefaultProfile returns a profile with the standard settings: 90%
// retention, standard mode, unlimited reviews, 20 new cards per day,
// due-date ordering, rollover at 04:00 UTC.
func DefaultProfile() *Profile {
	now := time.Now().UTC()
	return &Profile{
		ID:               uuid.New(),
		Name:             "default",
		RequestRetention: 0.9,
		Mode:             SchedulingModeStandard,
		NewCardsPerDay:   20,
		ReviewsPerDay:    QuotaUnlimited,
		ReviewOrder:      ReviewOrderDueDate,
		NextDayStartsAt:  4,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Validate checks the profile's structural invariants.
func (p *Profile) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyProfileID
	}
	if p.RequestRetention <= 0 || p.RequestRetention >= 1 {
		return ErrInvalidRetention
	}
	if p.Mode != SchedulingModeStandard && p.Mode != SchedulingModeIntensive {
		return ErrInvalidMode
	}
	if p.ReviewOrder != ReviewOrderDueDate && p.ReviewOrder != ReviewOrderRandom {
		return ErrInvalidReviewOrder
	}
	if p.NextDayStartsAt < 0 || p.NextDayStartsAt > 23 {
		return ErrInvalidDayStartHour
	}
	return nil
}

// MinIntervalMinutes returns the minimum scheduling interval for the
// profile's mode: one day for standard, one minute for intensive.
func (p *Profile) MinIntervalMinutes() int {
	if p.Mode == SchedulingModeIntensive {
		return 1
	}
	return 24 * 60
}

// DayStart returns the start of the quota day containing now, i.e. the
// most recent occurrence of the NextDayStartsAt hour boundary. Quota
// counters reset at this instant, not at midnight.
func (p *Profile) DayStart(now time.Time) time.Time {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), p.NextDayStartsAt, 0, 0, 0, time.UTC)
	if start.After(now) {
		start = start.AddDate(0, 0, -1)
	}
	return start
}

// QuotaAllows reports whether a cap permits one more card given the
// count already consumed today. Zero caps never allow; negative caps
// always allow.
func QuotaAllows(cap, usedToday int) bool {
	if cap < 0 {
		return true
	}
	return usedToday < cap
}

// QuotaRemaining returns how many more cards a cap permits today,
// bounded below by zero. For unlimited caps it returns available
// unchanged.
func QuotaRemaining(cap, usedToday, available int) int {
	if cap < 0 {
		return available
	}
	remaining := cap - usedToday
	if remaining < 0 {
		remaining = 0
	}
	if remaining > available {
		remaining = available
	}
	return remaining
}
