// Package location provides device locators. SimulatedLocator stands in for a
// GPS by walking a fixed path.
package location

import (
	"context"
	"errors"
	"sync"
	"time"
	"vehicle-sync-service/internal/domain"
	"vehicle-sync-service/internal/ports"
)

var ErrNoFix = errors.New("location: no fix yet")

var _ ports.LocationSource = (*SimulatedLocator)(nil)

// SimulatedLocator reports one path point per interval and then stays on the
// last point. Heading and speed are derived from consecutive points.
type SimulatedLocator struct {
	path           []domain.Coordinates
	accuracyMeters float64
	now            func() time.Time

	mu   sync.Mutex
	next int
	last *domain.Location
}

func NewSimulatedLocator(path []domain.Coordinates, accuracyMeters float64) (*SimulatedLocator, error) {
	if len(path) == 0 {
		return nil, errors.New("simulated locator: path is empty")
	}
	return &SimulatedLocator{
		path:           append([]domain.Coordinates(nil), path...),
		accuracyMeters: accuracyMeters,
		now:            time.Now,
	}, nil
}

// ObserveCurrentLocation emits the first fix right away and then one per
// interval. A slow reader skips fixes rather than delaying them.
func (s *SimulatedLocator) ObserveCurrentLocation(ctx context.Context, interval time.Duration) <-chan domain.Location {
	out := make(chan domain.Location, 1)
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			loc := s.advance(interval)
			select {
			case out <- loc:
			default:
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}

func (s *SimulatedLocator) GetLastKnownLocation(context.Context) (domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return domain.Location{}, ErrNoFix
	}
	return *s.last, nil
}

func (s *SimulatedLocator) advance(interval time.Duration) domain.Location {
	s.mu.Lock()
	defer s.mu.Unlock()

	point := s.path[s.next]
	loc := domain.Location{
		Point:          point,
		AccuracyMeters: s.accuracyMeters,
		RecordedAt:     s.now(),
	}

	if s.last != nil {
		prev := s.last.Point
		if prev != point {
			loc.HeadingDegrees = prev.BearingDegrees(point)
			loc.SpeedKmh = prev.DistanceMeters(point) / interval.Seconds() * 3.6
		} else {
			loc.HeadingDegrees = s.last.HeadingDegrees
		}
	}

	if s.next < len(s.path)-1 {
		s.next++
	}
	s.last = &loc
	return loc
}
