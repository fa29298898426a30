package mocks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/engram-srs/engram/internal/domain"
	"github.com/engram-srs/engram/internal/domain/fsrs"
	"github.com/engram-srs/engram/internal/service/scheduler"
)

// ErrNotConfigured is returned by mock methods whose behavior function
// was not set by the test.
var ErrNotConfigured = errors.New("mock behavior not configured")

// Verify interface compliance at compile time.
var _ scheduler.SchedulerService = (*MockSchedulerService)(nil)

// MockSchedulerService implements scheduler.SchedulerService for
// handler tests. Set the *Fn field for each method the test exercises.
type MockSchedulerService struct {
	GetNextFn            func(ctx context.Context, deckID uuid.UUID, opts scheduler.NextOptions) (*domain.Card, error)
	GetNextForGroupFn    func(ctx context.Context, tag string, opts scheduler.NextOptions) (*domain.Card, error)
	RateFn               func(ctx context.Context, cardID uuid.UUID, rating domain.Rating, elapsed time.Duration) (*domain.Card, error)
	PreviewFn            func(ctx context.Context, cardID uuid.UUID) (map[domain.Rating]*fsrs.Outcome, error)
	StartSessionFn       func(ctx context.Context, deckID uuid.UUID) (*domain.ReviewSession, error)
	ResumeSessionFn      func(ctx context.Context, deckID uuid.UUID) (*domain.ReviewSession, error)
	GetSessionProgressFn func(ctx context.Context, sessionID uuid.UUID) (*domain.ReviewSession, error)
	EndSessionFn         func(ctx context.Context, sessionID uuid.UUID) error
	GetDailyCountsFn     func(ctx context.Context, deckID uuid.UUID) (scheduler.DailyCounts, error)
}

// GetNext implements the scheduler.SchedulerService interface.
func (m *MockSchedulerService) GetNext(ctx context.Context, deckID uuid.UUID, opts scheduler.NextOptions) (*domain.Card, error) {
	if m.GetNextFn != nil {
		return m.GetNextFn(ctx, deckID, opts)
	}
	return nil, ErrNotConfigured
}

// GetNextForGroup implements the scheduler.SchedulerService interface.
func (m *MockSchedulerService) GetNextForGroup(ctx context.Context, tag string, opts scheduler.NextOptions) (*domain.Card, error) {
	if m.GetNextForGroupFn != nil {
		return m.GetNextForGroupFn(ctx, tag, opts)
	}
	return nil, ErrNotConfigured
}

// Rate implements the scheduler.SchedulerService interface.
func (m *MockSchedulerService) Rate(ctx context.Context, cardID uuid.UUID, rating domain.Rating, elapsed time.Duration) (*domain.Card, error) {
	if m.RateFn != nil {
		return m.RateFn(ctx, cardID, rating, elapsed)
	}
	return nil, ErrNotConfigured
}

// Preview implements the scheduler.SchedulerService interface.
func (m *MockSchedulerService) Preview(ctx context.Context, cardID uuid.UUID) (map[domain.Rating]*fsrs.Outcome, error) {
	if m.PreviewFn != nil {
		return m.PreviewFn(ctx, cardID)
	}
	return nil, ErrNotConfigured
}

// StartSession implements the scheduler.SchedulerService interface.
func (m *MockSchedulerService) StartSession(ctx context.Context, deckID uuid.UUID) (*domain.ReviewSession, error) {
	if m.StartSessionFn != nil {
		return m.StartSessionFn(ctx, deckID)
	}
	return nil, ErrNotConfigured
}

// ResumeSession implements the scheduler.SchedulerService interface.
func (m *MockSchedulerService) ResumeSession(ctx context.Context, deckID uuid.UUID) (*domain.ReviewSession, error) {
	if m.ResumeSessionFn != nil {
		return m.ResumeSessionFn(ctx, deckID)
	}
	return nil, ErrNotConfigured
}

// GetSessionProgress implements the scheduler.SchedulerService interface.
func (m *MockSchedulerService) GetSessionProgress(ctx context.Context, sessionID uuid.UUID) (*domain.ReviewSession, error) {
	if m.GetSessionProgressFn != nil {
		return m.GetSessionProgressFn(ctx, sessionID)
	}
	return nil, ErrNotConfigured
}

// EndSession implements the scheduler.SchedulerService interface.
func (m *MockSchedulerService) EndSession(ctx context.Context, sessionID uuid.UUID) error {
	if m.EndSessionFn != nil {
		return m.EndSessionFn(ctx, sessionID)
	}
	return ErrNotConfigured
}

// GetDailyCounts implements the scheduler.SchedulerService interface.
func (m *MockSchedulerService) GetDailyCounts(ctx context.Context, deckID uuid.UUID) (scheduler.DailyCounts, error) {
	if m.GetDailyCountsFn != nil {
		return m.GetDailyCountsFn(ctx, deckID)
	}
	return scheduler.DailyCounts{}, ErrNotConfigured
}
