package statemachine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type screen struct {
	step string
	data int
}

func newScreenStack(ctx context.Context, t *testing.T) (*Machine[screen], *BackStack[screen]) {
	t.Helper()
	m := New[screen](ctx)
	bs := NewBackStack[screen](
		func(a, b screen) bool { return a.step == b.step },
		func(s screen) bool { return s.step == "done" },
	)
	bs.Follow(ctx, m)
	require.NoError(t, m.Initialize(screen{step: "pickup"}))
	return m, bs
}

func goTo(step string, data int) func(screen) screen {
	return func(screen) screen { return screen{step: step, data: data} }
}

func waitLen(t *testing.T, bs *BackStack[screen], n int) {
	t.Helper()
	require.Eventually(t, func() bool { return bs.Len() == n }, waitFor, time.Millisecond)
}

func waitState(t *testing.T, m *Machine[screen], want screen) {
	t.Helper()
	require.Eventually(t, func() bool {
		got, err := m.Current(context.Background())
		return err == nil && got == want
	}, waitFor, time.Millisecond)
}

func TestBackStackPushesOnStepChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m, bs := newScreenStack(ctx, t)

	require.NoError(t, m.Transition(goTo("pickup", 1))) // same step, no push
	require.NoError(t, m.Transition(goTo("dropoff", 2)))
	require.NoError(t, m.Transition(goTo("vehicle", 3)))

	waitLen(t, bs, 2)
	waitState(t, m, screen{step: "vehicle", data: 3})
}

func TestBackStackBackRestoresWithoutRepush(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m, bs := newScreenStack(ctx, t)

	require.NoError(t, m.Transition(goTo("dropoff", 2)))
	require.NoError(t, m.Transition(goTo("vehicle", 3)))
	waitLen(t, bs, 2)

	assert.True(t, bs.Back(func() { t.Fatal("unexpected exhaustion") }))
	waitState(t, m, screen{step: "dropoff", data: 2})
	waitLen(t, bs, 1)

	assert.True(t, bs.Back(nil))
	waitState(t, m, screen{step: "pickup"})
	waitLen(t, bs, 0)

	exhausted := 0
	assert.False(t, bs.Back(func() { exhausted++ }))
	assert.Equal(t, 1, exhausted)
	waitState(t, m, screen{step: "pickup"})
}

func TestBackStackTerminalClearsHistory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m, bs := newScreenStack(ctx, t)

	require.NoError(t, m.Transition(goTo("dropoff", 2)))
	waitLen(t, bs, 1)
	require.NoError(t, m.Transition(goTo("done", 9)))
	waitState(t, m, screen{step: "done", data: 9})
	waitLen(t, bs, 0)

	exhausted := false
	assert.False(t, bs.Back(func() { exhausted = true }))
	assert.True(t, exhausted)

	got, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, screen{step: "done", data: 9}, got, "back must not mutate a terminal state")
}

func TestBackStackReinitializeClears(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m, bs := newScreenStack(ctx, t)

	require.NoError(t, m.Transition(goTo("dropoff", 2)))
	waitLen(t, bs, 1)

	require.NoError(t, m.Initialize(screen{step: "pickup", data: 7}))
	waitState(t, m, screen{step: "pickup", data: 7})
	waitLen(t, bs, 0)

	bs.Clear()
	assert.Equal(t, 0, bs.Len())
}

// backDuringTransition holds the machine inside a transition to next, calls
// Back while it is blocked and releases it.
func backDuringTransition(t *testing.T, next screen) (*Machine[screen], bool, bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m, bs := newScreenStack(ctx, t)

	require.NoError(t, m.Transition(goTo("details", 1)))
	waitLen(t, bs, 1)

	entered := make(chan struct{})
	gate := make(chan struct{})
	require.NoError(t, m.Transition(func(screen) screen {
		close(entered)
		<-gate
		return next
	}))
	<-entered

	var exhausted atomic.Bool
	res := make(chan bool, 1)
	go func() { res <- bs.Back(func() { exhausted.Store(true) }) }()

	waitLen(t, bs, 0)
	close(gate)

	select {
	case restored := <-res:
		return m, restored, exhausted.Load()
	case <-time.After(waitFor):
		t.Fatal("Back did not return")
		return nil, false, false
	}
}

func TestBackStackBackDoesNotUndoCompletion(t *testing.T) {
	m, restored, exhausted := backDuringTransition(t, screen{step: "done"})

	assert.False(t, restored)
	assert.True(t, exhausted)
	waitState(t, m, screen{step: "done"})
}

func TestBackStackBackKeepsNewerState(t *testing.T) {
	m, restored, exhausted := backDuringTransition(t, screen{step: "vehicle", data: 7})

	assert.False(t, restored)
	assert.False(t, exhausted)
	waitState(t, m, screen{step: "vehicle", data: 7})
}
