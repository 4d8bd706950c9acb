package services

import (
	"context"
	"errors"
	"sync"
	"time"
	"vehicle-sync-service/internal/domain"
)

// scriptedPlans returns the scripted responses in order, repeating the last
// one. A non-nil gate blocks every call until it receives or ctx ends.
type scriptedPlans struct {
	mu      sync.Mutex
	results []planResult
	calls   int
	gate    chan struct{}
	entered chan struct{}
}

type planResult struct {
	steps []domain.Step
	err   error
}

func (p *scriptedPlans) GetPlanForVehicle(ctx context.Context, vehicleID string) ([]domain.Step, error) {
	p.mu.Lock()
	idx := min(p.calls, len(p.results)-1)
	p.calls++
	gate, entered := p.gate, p.entered
	p.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if idx < 0 {
		return nil, nil
	}
	r := p.results[idx]
	return r.steps, r.err
}

func (p *scriptedPlans) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type recordingUpdater struct {
	mu        sync.Mutex
	locations []domain.Location
	routes    [][]domain.RouteLeg
	finished  [][]string
	locErr    error
	routeErr  error
	finishErr error
}

func (u *recordingUpdater) UpdateVehicleLocation(_ context.Context, _ string, loc domain.Location) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.locations = append(u.locations, loc)
	return u.locErr
}

func (u *recordingUpdater) UpdateVehicleRoute(_ context.Context, _ string, legs []domain.RouteLeg) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.routes = append(u.routes, legs)
	return u.routeErr
}

func (u *recordingUpdater) FinishSteps(_ context.Context, _ string, tripID string, stepIDs []string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.finished = append(u.finished, append([]string{tripID}, stepIDs...))
	return u.finishErr
}

func (u *recordingUpdater) counts() (locations, routes int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.locations), len(u.routes)
}

// staticLocator emits nothing on the stream and reports a fixed last fix.
type staticLocator struct {
	loc *domain.Location
}

func (s staticLocator) ObserveCurrentLocation(ctx context.Context, _ time.Duration) <-chan domain.Location {
	ch := make(chan domain.Location)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

func (s staticLocator) GetLastKnownLocation(context.Context) (domain.Location, error) {
	if s.loc == nil {
		return domain.Location{}, errors.New("no fix yet")
	}
	return *s.loc, nil
}

func drive(trip, id string, lon, lat float64) domain.Step {
	return domain.Step{TripID: trip, StepID: id, Kind: domain.StepDriveToLocation, Position: domain.Coordinates{Lon: lon, Lat: lat}}
}

func pickup(trip, id string) domain.Step {
	return domain.Step{TripID: trip, StepID: id, Kind: domain.StepPickupRider}
}

func dropoff(trip, id string) domain.Step {
	return domain.Step{TripID: trip, StepID: id, Kind: domain.StepDropoffRider}
}
