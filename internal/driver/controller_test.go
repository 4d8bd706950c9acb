package driver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"vehicle-sync-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type fakeSource struct {
	states chan domain.DisplayState
	plan   domain.VehiclePlan

	mu     sync.Mutex
	forced int
}

func newFakeSource(plan domain.VehiclePlan) *fakeSource {
	return &fakeSource{states: make(chan domain.DisplayState), plan: plan}
}

func (f *fakeSource) States(ctx context.Context) <-chan domain.DisplayState {
	out := make(chan domain.DisplayState)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-f.states:
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (f *fakeSource) Plan() domain.VehiclePlan { return f.plan }

func (f *fakeSource) ForceSync() {
	f.mu.Lock()
	f.forced++
	f.mu.Unlock()
}

func (f *fakeSource) forcedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forced
}

type fakeUpdater struct {
	mu       sync.Mutex
	finished []string
	err      error
}

func (u *fakeUpdater) UpdateVehicleLocation(context.Context, string, domain.Location) error {
	return nil
}

func (u *fakeUpdater) UpdateVehicleRoute(context.Context, string, []domain.RouteLeg) error {
	return nil
}

func (u *fakeUpdater) FinishSteps(_ context.Context, _ string, _ string, stepIDs []string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.finished = append(u.finished, stepIDs...)
	return u.err
}

var pickupA = domain.Waypoint{
	TripID:  "t1",
	StepIDs: []string{"A"},
	Action:  domain.Action{Kind: domain.ActionDriveToPickup, Destination: domain.Coordinates{Lon: 1, Lat: 1}},
}

var dropoffC = domain.Waypoint{
	TripID:  "t1",
	StepIDs: []string{"C", "D"},
	Action:  domain.Action{Kind: domain.ActionDriveToDropOff},
}

func newTestController(t *testing.T) (*Controller, *fakeSource, *fakeUpdater) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	src := newFakeSource(domain.VehiclePlan{Waypoints: []domain.Waypoint{pickupA, dropoffC}})
	up := &fakeUpdater{}
	c, err := NewController(ctx, "v1", src, up)
	require.NoError(t, err)
	return c, src, up
}

func waitStep(t *testing.T, c *Controller, step MainStep) MainViewState {
	t.Helper()
	var got MainViewState
	require.Eventually(t, func() bool {
		s, err := c.State(context.Background())
		if err != nil {
			return false
		}
		got = s
		return s.Step == step
	}, waitFor, 5*time.Millisecond)
	return got
}

func TestControllerStartsIdle(t *testing.T) {
	c, _, _ := newTestController(t)
	s := waitStep(t, c, StepIdle)
	assert.Equal(t, domain.DisplayIdle, s.Display.Kind)
	assert.Empty(t, s.TaskID)
}

func TestControllerFollowsDisplayStates(t *testing.T) {
	c, src, _ := newTestController(t)

	src.states <- domain.DrivingToPickup(pickupA)
	s := waitStep(t, c, StepNavigating)
	assert.Equal(t, "t1/A", s.TaskID)

	src.states <- domain.WaitingForPassenger(pickupA)
	waitStep(t, c, StepWaitingForPassenger)

	src.states <- domain.IdleState()
	waitStep(t, c, StepIdle)
}

func TestControllerTripDetailsAndBack(t *testing.T) {
	c, src, _ := newTestController(t)

	require.NoError(t, c.ShowTripDetails())
	// Ignored while idle.
	waitStep(t, c, StepIdle)

	src.states <- domain.DrivingToPickup(pickupA)
	waitStep(t, c, StepNavigating)

	require.NoError(t, c.ShowTripDetails())
	s := waitStep(t, c, StepTripDetails)
	require.NotNil(t, s.Display.Plan)
	assert.Len(t, s.Display.Plan.Waypoints, 2)
	assert.Equal(t, "t1/A", s.TaskID)

	require.Eventually(t, func() bool { return c.history.Len() == 1 }, waitFor, 5*time.Millisecond)

	assert.True(t, c.Back(nil))
	s = waitStep(t, c, StepNavigating)
	assert.Equal(t, "t1/A", s.TaskID)

	exhausted := false
	require.Eventually(t, func() bool { return c.history.Len() == 0 }, waitFor, 5*time.Millisecond)
	assert.False(t, c.Back(func() { exhausted = true }))
	assert.True(t, exhausted)
}

func TestControllerBackendChangeLeavesTripDetails(t *testing.T) {
	c, src, _ := newTestController(t)

	src.states <- domain.DrivingToPickup(pickupA)
	waitStep(t, c, StepNavigating)
	require.NoError(t, c.ShowTripDetails())
	waitStep(t, c, StepTripDetails)

	src.states <- domain.DrivingToDropOff(dropoffC)
	s := waitStep(t, c, StepNavigating)
	assert.Equal(t, "t1/C", s.TaskID)

	require.Eventually(t, func() bool { return c.history.Len() == 0 }, waitFor, 5*time.Millisecond)
}

func TestControllerCompleteActiveWaypoint(t *testing.T) {
	c, src, up := newTestController(t)

	src.states <- domain.DrivingToDropOff(dropoffC)
	waitStep(t, c, StepNavigating)

	err := c.CompleteActiveWaypoint(context.Background(), "t1/A")
	assert.ErrorIs(t, err, ErrStaleTask)
	assert.Equal(t, 0, src.forcedCount())

	require.NoError(t, c.CompleteActiveWaypoint(context.Background(), "t1/C"))
	assert.Equal(t, []string{"C", "D"}, up.finished)
	assert.Equal(t, 1, src.forcedCount())
}

func TestControllerCompleteFailsWhenBackendRejects(t *testing.T) {
	c, src, up := newTestController(t)
	up.err = errors.New("conflict")

	src.states <- domain.DrivingToPickup(pickupA)
	waitStep(t, c, StepNavigating)

	assert.Error(t, c.CompleteActiveWaypoint(context.Background(), "t1/A"))
	assert.Equal(t, 0, src.forcedCount())
}

func TestControllerCompleteWhileIdle(t *testing.T) {
	c, _, _ := newTestController(t)
	waitStep(t, c, StepIdle)
	assert.ErrorIs(t, c.CompleteActiveWaypoint(context.Background(), ""), ErrStaleTask)
}
