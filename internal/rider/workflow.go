// Package rider holds the rider app's booking flow: choose pickup, drop-off and
// vehicle, confirm, and hand the created trip over to plan polling.
package rider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"vehicle-sync-service/internal/domain"
	"vehicle-sync-service/internal/ports"
	"vehicle-sync-service/internal/statemachine"

	"github.com/google/uuid"
)

var (
	ErrNotReady       = errors.New("rider: draft is not ready to confirm")
	ErrNoGeocoder     = errors.New("rider: no geocoder configured")
	ErrInvalidRequest = errors.New("rider: invalid selection")
	ErrDraftChanged   = errors.New("rider: draft changed while the trip was being created")
)

const maxPassengers = 6

type Workflow struct {
	trips    ports.TripCreator
	geocoder ports.Geocoder
	machine  *statemachine.Machine[PreTripState]
	history  *statemachine.BackStack[PreTripState]
	logger   *slog.Logger
}

type Option func(*Workflow)

func WithGeocoder(g ports.Geocoder) Option {
	return func(w *Workflow) { w.geocoder = g }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

func NewWorkflow(ctx context.Context, trips ports.TripCreator, opts ...Option) (*Workflow, error) {
	if trips == nil {
		return nil, errors.New("rider workflow: trip creator is nil")
	}

	w := &Workflow{trips: trips, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}

	w.machine = statemachine.New[PreTripState](ctx, statemachine.WithLogger(w.logger))
	w.history = statemachine.NewBackStack(sameStep, isCreated)
	w.history.Follow(ctx, w.machine)

	if err := w.machine.Initialize(initialDraft()); err != nil {
		return nil, fmt.Errorf("rider workflow: initialize: %w", err)
	}
	return w, nil
}

func (w *Workflow) State(ctx context.Context) (PreTripState, error) {
	return w.machine.Current(ctx)
}

func (w *Workflow) Observe(ctx context.Context) <-chan PreTripState {
	return w.machine.Observe(ctx)
}

// SetPickup records the pickup point and moves on to the drop-off. Ignored
// unless the draft is on SELECT_PICKUP.
func (w *Workflow) SetPickup(p domain.Coordinates) error {
	return w.machine.Transition(statemachine.TransitionIf(at(StepSelectPickup),
		func(s PreTripState) PreTripState {
			s.Pickup = &p
			s.Step = StepSelectDropOff
			return s
		}))
}

func (w *Workflow) SetDropOff(p domain.Coordinates) error {
	return w.machine.Transition(statemachine.TransitionIf(at(StepSelectDropOff),
		func(s PreTripState) PreTripState {
			s.DropOff = &p
			s.Step = StepSelectVehicle
			return s
		}))
}

// SetPickupAddress geocodes address and then behaves like SetPickup.
func (w *Workflow) SetPickupAddress(ctx context.Context, address string) error {
	p, err := w.geocode(ctx, address)
	if err != nil {
		return err
	}
	return w.SetPickup(p)
}

func (w *Workflow) SetDropOffAddress(ctx context.Context, address string) error {
	p, err := w.geocode(ctx, address)
	if err != nil {
		return err
	}
	return w.SetDropOff(p)
}

func (w *Workflow) geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	if w.geocoder == nil {
		return domain.Coordinates{}, ErrNoGeocoder
	}
	p, err := w.geocoder.Geocode(ctx, address)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("rider: resolve %q: %w", address, err)
	}
	return p, nil
}

func (w *Workflow) SelectVehicle(selection string, passengers int) error {
	if selection == "" || passengers < 1 || passengers > maxPassengers {
		return fmt.Errorf("%w: vehicle %q for %d passengers", ErrInvalidRequest, selection, passengers)
	}
	requestID := uuid.NewString()
	return w.machine.Transition(statemachine.TransitionIf(at(StepSelectVehicle),
		func(s PreTripState) PreTripState {
			s.VehicleSelection = selection
			s.PassengerCount = passengers
			s.RequestID = requestID
			s.Step = StepConfirm
			return s
		}))
}

// Confirm books the drafted trip and returns its id. The draft only reaches
// TRIP_CREATED if it is still the one that was submitted; otherwise the error is
// ErrDraftChanged. Repeated calls for one draft share its request id, so the
// backend sees them as the same booking.
func (w *Workflow) Confirm(ctx context.Context) (string, error) {
	draft, err := w.machine.Current(ctx)
	if err != nil {
		return "", fmt.Errorf("rider confirm: %w", err)
	}
	if draft.Step != StepConfirm || draft.Pickup == nil || draft.DropOff == nil {
		return "", ErrNotReady
	}

	req := domain.TripRequest{
		RequestID:        draft.RequestID,
		Pickup:           *draft.Pickup,
		DropOff:          *draft.DropOff,
		PassengerCount:   draft.PassengerCount,
		VehicleSelection: draft.VehicleSelection,
	}

	tripID, err := w.trips.CreateTrip(ctx, req)
	if err != nil {
		return "", fmt.Errorf("rider confirm: create trip: %w", err)
	}

	w.logger.Info("trip created", "trip_id", tripID, "request_id", req.RequestID)

	applied := make(chan PreTripState, 1)
	err = w.machine.Transition(func(s PreTripState) PreTripState {
		if s == draft {
			s.TripID = tripID
			s.Step = StepTripCreated
		}
		applied <- s
		return s
	})
	if err != nil {
		return "", fmt.Errorf("rider confirm: %w", err)
	}

	var got PreTripState
	select {
	case got = <-applied:
	case <-ctx.Done():
		return "", fmt.Errorf("rider confirm: %w", ctx.Err())
	case <-w.machine.Done():
		return "", fmt.Errorf("rider confirm: %w", statemachine.ErrStopped)
	}

	if got.Step != StepTripCreated || got.TripID != tripID {
		w.logger.Warn("trip created for a stale draft", "trip_id", tripID, "request_id", req.RequestID)
		return "", fmt.Errorf("%w: trip %s", ErrDraftChanged, tripID)
	}
	return tripID, nil
}

// Back steps to the previous selection screen. exhausted runs when there is
// nothing to go back to.
func (w *Workflow) Back(exhausted func()) bool {
	return w.history.Back(exhausted)
}

// Reset starts a fresh draft and drops the history.
func (w *Workflow) Reset() error {
	return w.machine.Initialize(initialDraft())
}
