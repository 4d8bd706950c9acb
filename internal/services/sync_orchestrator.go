package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"vehicle-sync-service/internal/domain"
	"vehicle-sync-service/internal/platform/obs"
	"vehicle-sync-service/internal/ports"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultDriverPollInterval = 2 * time.Second
	DefaultRiderPollInterval  = 1 * time.Second
	DefaultLocationInterval   = 1 * time.Second
	DefaultMaxRetries         = 2
)

type SyncConfig struct {
	VehicleID        string
	PollInterval     time.Duration
	LocationInterval time.Duration
	// MaxRetries is the number of extra attempts after a failed fetch.
	MaxRetries   int
	RetryBackoff time.Duration
}

func DriverSyncConfig(vehicleID string) SyncConfig {
	return SyncConfig{
		VehicleID:        vehicleID,
		PollInterval:     DefaultDriverPollInterval,
		LocationInterval: DefaultLocationInterval,
		MaxRetries:       DefaultMaxRetries,
	}
}

func RiderSyncConfig(vehicleID string) SyncConfig {
	return SyncConfig{
		VehicleID:        vehicleID,
		PollInterval:     DefaultRiderPollInterval,
		LocationInterval: DefaultLocationInterval,
		MaxRetries:       DefaultMaxRetries,
	}
}

func (c SyncConfig) Validate() error {
	if c.VehicleID == "" {
		return errors.New("sync config: vehicle id must be non-empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("sync config: poll interval must be positive, got %s", c.PollInterval)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("sync config: max retries must be >= 0, got %d", c.MaxRetries)
	}
	return nil
}

// SyncOrchestrator polls the vehicle plan on a fixed cadence and on demand.
//
// Timer ticks and force-sync requests share one trigger path. A trigger that
// fires while a plan fetch is still running is dropped, never queued, so at most
// one fetch is outstanding. Failed fetches are retried a bounded number of times
// and then abandoned until the next trigger. Route sync follows each poll
// outside the fetch slot, one at a time.
type SyncOrchestrator struct {
	cfg       SyncConfig
	plans     ports.PlanSource
	locations ports.LocationSource
	routes    *RouteSynchronizer
	logger    *slog.Logger
	metrics   *obs.Metrics

	force   chan struct{}
	running atomic.Bool
	routing atomic.Bool

	mu      sync.Mutex
	plan    domain.VehiclePlan
	display domain.DisplayState
	shown   bool

	displays *feed[domain.DisplayState]
	planFeed *feed[domain.VehiclePlan]
}

type OrchestratorOption func(*SyncOrchestrator)

func WithSyncLogger(l *slog.Logger) OrchestratorOption {
	return func(o *SyncOrchestrator) { o.logger = l }
}

func WithSyncMetrics(m *obs.Metrics) OrchestratorOption {
	return func(o *SyncOrchestrator) { o.metrics = m }
}

// NewSyncOrchestrator wires the loop. locations and routes may be nil, which is
// how the rider app watches a vehicle without reporting one.
func NewSyncOrchestrator(
	cfg SyncConfig,
	plans ports.PlanSource,
	locations ports.LocationSource,
	routes *RouteSynchronizer,
	opts ...OrchestratorOption,
) (*SyncOrchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if plans == nil {
		return nil, errors.New("sync orchestrator: plan source is nil")
	}

	o := &SyncOrchestrator{
		cfg:       cfg,
		plans:     plans,
		locations: locations,
		routes:    routes,
		logger:    slog.Default(),
		force:     make(chan struct{}, 1),
		displays:  newFeed[domain.DisplayState](),
		planFeed:  newFeed[domain.VehiclePlan](),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// ForceSync asks for an immediate poll. It never blocks; a request arriving
// while another is pending or a cycle is running is discarded.
func (o *SyncOrchestrator) ForceSync() {
	select {
	case o.force <- struct{}{}:
	default:
	}
}

// States streams distinct display states, starting with the latest one.
func (o *SyncOrchestrator) States(ctx context.Context) <-chan domain.DisplayState {
	return o.displays.subscribe(ctx)
}

// Plans streams every successfully fetched plan, starting with the latest one.
func (o *SyncOrchestrator) Plans(ctx context.Context) <-chan domain.VehiclePlan {
	return o.planFeed.subscribe(ctx)
}

func (o *SyncOrchestrator) Plan() domain.VehiclePlan {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.plan
}

// Display returns the last published display state; ok is false before the
// first successful poll.
func (o *SyncOrchestrator) Display() (domain.DisplayState, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.display, o.shown
}

// Run drives the loop until ctx is done. The first poll happens immediately.
func (o *SyncOrchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return errors.New("sync orchestrator: already running")
	}
	defer o.running.Store(false)

	var locations <-chan domain.Location
	if o.locations != nil {
		locations = o.locations.ObserveCurrentLocation(ctx, o.cfg.LocationInterval)
	}

	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	done := make(chan struct{}, 1)
	inFlight := false
	var lastLoc *domain.Location

	trigger := func(source string) {
		if inFlight {
			o.logger.Debug("sync trigger dropped, cycle in flight", "source", source)
			if o.metrics != nil {
				o.metrics.TicksDropped.Inc()
			}
			return
		}
		inFlight = true

		var loc *domain.Location
		if lastLoc != nil {
			l := *lastLoc
			loc = &l
		}
		go func() {
			plan, ok := o.poll(ctx)
			done <- struct{}{}
			if ok {
				o.syncRoute(ctx, plan, loc)
			}
		}()
	}

	o.logger.Info("sync orchestrator started",
		"vehicle_id", o.cfg.VehicleID, "poll_interval", o.cfg.PollInterval)
	trigger("start")

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("sync orchestrator stopped", "vehicle_id", o.cfg.VehicleID)
			return nil
		case <-ticker.C:
			trigger("timer")
		case <-o.force:
			trigger("force")
		case loc, ok := <-locations:
			if !ok {
				locations = nil
				continue
			}
			lastLoc = &loc
		case <-done:
			inFlight = false
		}
	}
}

// poll fetches, aggregates and publishes the plan. ok is false when the fetch
// was abandoned.
func (o *SyncOrchestrator) poll(ctx context.Context) (_ domain.VehiclePlan, ok bool) {
	steps, err := o.fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			o.logger.Warn("plan fetch failed after retries, update dropped",
				"vehicle_id", o.cfg.VehicleID, "error", err)
		}
		o.countPoll("dropped")
		return domain.VehiclePlan{}, false
	}
	o.countPoll("ok")

	plan := AggregatePlan(steps, o.logger)
	o.apply(plan)
	return plan, true
}

// syncRoute reconciles the route for plan. It runs after the poll has released
// the fetch slot; a sync arriving while another is still running is skipped.
func (o *SyncOrchestrator) syncRoute(ctx context.Context, plan domain.VehiclePlan, loc *domain.Location) {
	if o.routes == nil {
		return
	}
	if !o.routing.CompareAndSwap(false, true) {
		o.logger.Debug("route sync still running, skipped", "vehicle_id", o.cfg.VehicleID)
		if o.metrics != nil {
			o.metrics.RouteSyncs.WithLabelValues("skipped").Inc()
		}
		return
	}
	defer o.routing.Store(false)

	if loc == nil {
		if o.locations == nil {
			return
		}
		last, err := o.locations.GetLastKnownLocation(ctx)
		if err != nil {
			o.logger.Debug("no location yet, route sync skipped", "vehicle_id", o.cfg.VehicleID, "error", err)
			return
		}
		loc = &last
	}

	if _, err := o.routes.Sync(ctx, plan, *loc); err != nil {
		o.logger.Debug("route sync interrupted", "error", err)
	}
}

func (o *SyncOrchestrator) fetch(ctx context.Context) ([]domain.Step, error) {
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if o.cfg.RetryBackoff > 0 {
		b = backoff.NewConstantBackOff(o.cfg.RetryBackoff)
	}
	b = backoff.WithContext(backoff.WithMaxRetries(b, uint64(o.cfg.MaxRetries)), ctx)

	var steps []domain.Step
	op := func() (err error) {
		defer obs.Time(ctx, o.logger, "plan.GetPlanForVehicle")(&err)
		s, err := o.plans.GetPlanForVehicle(ctx, o.cfg.VehicleID)
		if err != nil {
			return err
		}
		steps = s
		return nil
	}
	notify := func(err error, next time.Duration) {
		o.logger.Debug("plan fetch failed, retrying", "vehicle_id", o.cfg.VehicleID, "in", next, "error", err)
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, fmt.Errorf("fetch plan for vehicle %q: %w", o.cfg.VehicleID, err)
	}
	return steps, nil
}

// apply swaps in the new plan and publishes its display state when it differs
// from the one on screen.
func (o *SyncOrchestrator) apply(plan domain.VehiclePlan) {
	next := domain.DeriveDisplayState(plan)

	o.mu.Lock()
	o.plan = plan
	changed := !o.shown || !o.display.Equal(next)
	if changed {
		o.display = next
		o.shown = true
	}
	o.mu.Unlock()

	o.planFeed.publish(plan)
	if !changed {
		return
	}

	o.logger.Info("display state changed", "vehicle_id", o.cfg.VehicleID, "state", next.Kind.String())
	if o.metrics != nil {
		o.metrics.DisplayEmissions.Inc()
	}
	o.displays.publish(next)
}

func (o *SyncOrchestrator) countPoll(result string) {
	if o.metrics != nil {
		o.metrics.Polls.WithLabelValues(result).Inc()
	}
}
