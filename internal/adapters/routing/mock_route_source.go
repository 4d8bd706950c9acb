package routing

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
	"vehicle-sync-service/internal/domain"
)

// MockRouteSource answers with straight-line legs at a fixed average speed.
// Used by the simulator and by tests; Fail makes every call return err.
type MockRouteSource struct {
	SpeedKmh float64

	mu    sync.Mutex
	calls [][]domain.Coordinates
	err   error
}

func NewMockRouteSource(speedKmh float64) *MockRouteSource {
	if speedKmh <= 0 {
		speedKmh = 30
	}
	return &MockRouteSource{SpeedKmh: speedKmh}
}

func (m *MockRouteSource) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the point lists received so far.
func (m *MockRouteSource) Calls() [][]domain.Coordinates {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]domain.Coordinates, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockRouteSource) GetRouteForWaypoints(
	ctx context.Context,
	points []domain.Coordinates,
) ([]domain.Route, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]domain.Coordinates(nil), points...))
	err := m.err
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if len(points) < 2 {
		return nil, fmt.Errorf("mock route: need at least two points, got %d", len(points))
	}

	out := make([]domain.Route, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		meters := points[i-1].DistanceMeters(points[i])
		secs := meters / (m.SpeedKmh * 1000 / 3600)
		out = append(out, domain.Route{
			Polyline:       []domain.Coordinates{points[i-1], points[i]},
			Duration:       time.Duration(math.Round(secs)) * time.Second,
			DistanceMeters: int(math.Round(meters)),
		})
	}
	return out, nil
}
