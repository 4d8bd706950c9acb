// Package driver holds the driver app's main view workflow: the screen the
// driver sees for the active stop and the intents it accepts.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"vehicle-sync-service/internal/domain"
	"vehicle-sync-service/internal/ports"
	"vehicle-sync-service/internal/services"
	"vehicle-sync-service/internal/statemachine"
)

// ErrStaleTask is returned when an intent names a stop that is no longer the
// active one, e.g. a double tap after the plan already moved on.
var ErrStaleTask = errors.New("driver: task is no longer active")

// SyncSource is the part of the sync loop the main view depends on.
type SyncSource interface {
	States(ctx context.Context) <-chan domain.DisplayState
	Plan() domain.VehiclePlan
	ForceSync()
}

type Controller struct {
	vehicleID string
	source    SyncSource
	updater   ports.VehicleUpdater
	machine   *statemachine.Machine[MainViewState]
	history   *statemachine.BackStack[MainViewState]
	logger    *slog.Logger
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// NewController starts the main view in IDLE and keeps it in step with source
// until ctx is done.
func NewController(
	ctx context.Context,
	vehicleID string,
	source SyncSource,
	updater ports.VehicleUpdater,
	opts ...Option,
) (*Controller, error) {
	if source == nil || updater == nil {
		return nil, errors.New("driver controller: source and updater are required")
	}

	c := &Controller{
		vehicleID: vehicleID,
		source:    source,
		updater:   updater,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.machine = statemachine.New[MainViewState](ctx, statemachine.WithLogger(c.logger))
	c.history = statemachine.NewBackStack(sameScreen, historyEnds)
	c.history.Follow(ctx, c.machine)

	if err := c.machine.Initialize(idleView()); err != nil {
		return nil, fmt.Errorf("driver controller: initialize: %w", err)
	}

	go c.follow(ctx)
	return c, nil
}

func (c *Controller) follow(ctx context.Context) {
	for d := range c.source.States(ctx) {
		next := viewFor(d)
		c.logger.Debug("main view update", "vehicle_id", c.vehicleID, "step", next.Step.String(), "task_id", next.TaskID)
		if err := c.machine.Transition(func(MainViewState) MainViewState { return next }); err != nil {
			return
		}
	}
}

// State returns the current view.
func (c *Controller) State(ctx context.Context) (MainViewState, error) {
	return c.machine.Current(ctx)
}

// Observe streams every view state, starting with the current one.
func (c *Controller) Observe(ctx context.Context) <-chan MainViewState {
	return c.machine.Observe(ctx)
}

// ShowTripDetails opens the plan overview. It is ignored while idle or when
// details are already shown.
func (c *Controller) ShowTripDetails() error {
	plan := c.source.Plan()
	return c.machine.Transition(statemachine.TransitionIf(
		func(s MainViewState) bool {
			return s.Step == StepNavigating || s.Step == StepWaitingForPassenger
		},
		func(s MainViewState) MainViewState {
			return MainViewState{
				Step:    StepTripDetails,
				TaskID:  s.TaskID,
				Active:  s.Active,
				Display: domain.TripDetails(plan),
			}
		},
	))
}

// Back returns to the screen below trip details. With nothing to return to it
// calls exhausted and reports false.
func (c *Controller) Back(exhausted func()) bool {
	return c.history.Back(exhausted)
}

// CompleteActiveWaypoint finishes the active stop's steps and forces a sync.
// taskID must match the stop the caller was showing.
func (c *Controller) CompleteActiveWaypoint(ctx context.Context, taskID string) error {
	cur, err := c.machine.Current(ctx)
	if err != nil {
		return fmt.Errorf("complete active waypoint: %w", err)
	}
	if cur.Active == nil || cur.TaskID != taskID {
		return ErrStaleTask
	}

	return services.CompleteWaypoint(ctx, c.updater, c.source, c.vehicleID, *cur.Active)
}
