package mocks

import (
	"context"

	"github.com/google/uuid"

	"github.com/engram-srs/engram/internal/service/forecast"
)

// Verify interface compliance at compile time.
var _ forecast.ForecastService = (*MockForecastService)(nil)

// MockForecastService implements forecast.ForecastService for handler
// tests. Set the *Fn field for each method the test exercises.
type MockForecastService struct {
	ProjectBacklogFn           func(ctx context.Context, deckID uuid.UUID, horizonDays int) (*forecast.BacklogForecast, error)
	ProjectBacklogForGroupFn   func(ctx context.Context, tag string, horizonDays int) (*forecast.BacklogForecast, error)
	SimulateMaturityFn         func(ctx context.Context, deckID uuid.UUID, maxDays int) (*forecast.MaturityForecast, error)
	SimulateMaturityForGroupFn func(ctx context.Context, tag string, maxDays int) (*forecast.MaturityForecast, error)
}

// ProjectBacklog implements the forecast.ForecastService interface.
func (m *MockForecastService) ProjectBacklog(ctx context.Context, deckID uuid.UUID, horizonDays int) (*forecast.BacklogForecast, error) {
	if m.ProjectBacklogFn != nil {
		return m.ProjectBacklogFn(ctx, deckID, horizonDays)
	}
	return nil, ErrNotConfigured
}

// ProjectBacklogForGroup implements the forecast.ForecastService interface.
func (m *MockForecastService) ProjectBacklogForGroup(ctx context.Context, tag string, horizonDays int) (*forecast.BacklogForecast, error) {
	if m.ProjectBacklogForGroupFn != nil {
		return m.ProjectBacklogForGroupFn(ctx, tag, horizonDays)
	}
	return nil, ErrNotConfigured
}

// SimulateMaturity implements the forecast.ForecastService interface.
func (m *MockForecastService) SimulateMaturity(ctx context.Context, deckID uuid.UUID, maxDays int) (*forecast.MaturityForecast, error) {
	if m.SimulateMaturityFn != nil {
		return m.SimulateMaturityFn(ctx, deckID, maxDays)
	}
	return nil, ErrNotConfigured
}

// SimulateMaturityForGroup implements the forecast.ForecastService interface.
func (m *MockForecastService) SimulateMaturityForGroup(ctx context.Context, tag string, maxDays int) (*forecast.MaturityForecast, error) {
	if m.SimulateMaturityForGroupFn != nil {
		return m.SimulateMaturityForGroupFn(ctx, tag, maxDays)
	}
	return nil, ErrNotConfigured
}
