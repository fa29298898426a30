package domain

import (
	"testing"
	"time"
)

func TestProfileValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(p *Profile)
		wantErr error
	}{
		{
			name:    "default profile is valid",
			mutate:  func(p *Profile) {},
			wantErr: nil,
		},
		{
			name:    "retention of one",
			mutate:  func(p *Profile) { p.RequestRetention = 1 },
			wantErr: ErrInvalidRetention,
		},
		{
			name:    "retention of zero",
			mutate:  func(p *Profile) { p.RequestRetention = 0 },
			wantErr: ErrInvalidRetention,
		},
		{
			name:    "unknown mode",
			mutate:  func(p *Profile) { p.Mode = "cramming" },
			wantErr: ErrInvalidMode,
		},
		{
			name:    "unknown review order",
			mutate:  func(p *Profile) { p.ReviewOrder = "fifo" },
			wantErr: ErrInvalidReviewOrder,
		},
		{
			name:    "day start hour out of range",
			mutate:  func(p *Profile) { p.NextDayStartsAt = 24 },
			wantErr: ErrInvalidDayStartHour,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			profile := DefaultProfile()
			tt.mutate(profile)

			if err := profile.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestProfileMinIntervalMinutes(t *testing.T) {
	t.Parallel()

	standard := Profile{Mode: SchedulingModeStandard}
	if got := standard.MinIntervalMinutes(); got != 1440 {
		t.Errorf("standard MinIntervalMinutes() = %d, want 1440", got)
	}

	intensive := Profile{Mode: SchedulingModeIntensive}
	if got := intensive.MinIntervalMinutes(); got != 1 {
		t.Errorf("intensive MinIntervalMinutes() = %d, want 1", got)
	}
}

// TestProfileDayStart pins the quota rollover boundary: the most
// recent occurrence of the NextDayStartsAt hour, not midnight.
func TestProfileDayStart(t *testing.T) {
	t.Parallel()

	profile := Profile{NextDayStartsAt: 4}

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "after the boundary uses today",
			now:  time.Date(2026, 8, 10, 15, 30, 0, 0, time.UTC),
			want: time.Date(2026, 8, 10, 4, 0, 0, 0, time.UTC),
		},
		{
			name: "before the boundary uses yesterday",
			now:  time.Date(2026, 8, 10, 2, 0, 0, 0, time.UTC),
			want: time.Date(2026, 8, 9, 4, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at the boundary uses today",
			now:  time.Date(2026, 8, 10, 4, 0, 0, 0, time.UTC),
			want: time.Date(2026, 8, 10, 4, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := profile.DayStart(tt.now); !got.Equal(tt.want) {
				t.Errorf("DayStart(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

// TestQuotaSemantics pins the cap semantics: zero means never,
// negative means unlimited, positive is an exact daily count.
func TestQuotaSemantics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cap       int
		usedToday int
		want      bool
	}{
		{"zero cap never allows", 0, 0, false},
		{"negative cap always allows", QuotaUnlimited, 10000, true},
		{"under a positive cap", 2, 1, true},
		{"at a positive cap", 2, 2, false},
		{"over a positive cap", 2, 3, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := QuotaAllows(tt.cap, tt.usedToday); got != tt.want {
				t.Errorf("QuotaAllows(%d, %d) = %v, want %v", tt.cap, tt.usedToday, got, tt.want)
			}
		})
	}
}

func TestQuotaRemaining(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cap       int
		usedToday int
		available int
		want      int
	}{
		{"unlimited returns available", QuotaUnlimited, 500, 42, 42},
		{"zero cap returns zero", 0, 0, 42, 0},
		{"bounded by remaining quota", 10, 8, 42, 2},
		{"bounded by availability", 10, 2, 3, 3},
		{"overdrawn clamps to zero", 2, 5, 42, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := QuotaRemaining(tt.cap, tt.usedToday, tt.available); got != tt.want {
				t.Errorf("QuotaRemaining(%d, %d, %d) = %d, want %d",
					tt.cap, tt.usedToday, tt.available, got, tt.want)
			}
		})
	}
}
