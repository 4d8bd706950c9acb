package statemachine

import (
	"context"
	"sync"
)

// BackStack records the history of a machine's steps so a workflow can be
// walked backwards. sameStep groups states shown on the same screen; once a
// terminal state is observed the history is discarded.
type BackStack[S any] struct {
	sameStep   func(a, b S) bool
	isTerminal func(S) bool

	mu       sync.Mutex
	machine  *Machine[S]
	stack    []S
	prev     S
	hasPrev  bool
	lastSeq  uint64
	restored map[uint64]struct{}
}

func NewBackStack[S any](sameStep func(a, b S) bool, isTerminal func(S) bool) *BackStack[S] {
	return &BackStack[S]{
		sameStep:   sameStep,
		isTerminal: isTerminal,
		restored:   make(map[uint64]struct{}),
	}
}

// Follow subscribes to m and keeps the stack in step with it until ctx is done.
// The subscription is registered before Follow returns.
func (b *BackStack[S]) Follow(ctx context.Context, m *Machine[S]) {
	b.mu.Lock()
	b.machine = m
	b.stack = nil
	b.hasPrev = false
	b.lastSeq = 0
	clear(b.restored)
	b.mu.Unlock()

	snaps := m.observe(ctx)
	go func() {
		for snap := range snaps {
			b.record(snap)
		}
	}()
}

func (b *BackStack[S]) record(snap snapshot[S]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur := snap.state
	b.lastSeq = max(b.lastSeq, snap.seq)
	_, restoring := b.restored[snap.seq]
	delete(b.restored, snap.seq)

	switch {
	case snap.reset:
		b.stack = nil
	case restoring:
		// Value fed back by Back; the state we left is not history.
	case b.hasPrev && !b.sameStep(b.prev, cur):
		b.stack = append(b.stack, b.prev)
	}

	if b.isTerminal(cur) {
		b.stack = nil
	}

	b.prev = cur
	b.hasPrev = true
}

// Back restores the most recent stacked state through the machine. With an
// empty stack it calls exhausted instead so the request can propagate to a
// parent scope, and the state is left alone. It reports whether a state was
// restored.
//
// The restore only applies on top of the state the stack was built from. When
// another transition lands first the state is kept; if that state is terminal,
// exhausted is called.
func (b *BackStack[S]) Back(exhausted func()) bool {
	b.mu.Lock()
	if len(b.stack) == 0 || b.machine == nil {
		b.mu.Unlock()
		if exhausted != nil {
			exhausted()
		}
		return false
	}
	top := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	expect := b.lastSeq
	m := b.machine
	b.mu.Unlock()

	type outcome struct {
		restored bool
		terminal bool
	}
	result := make(chan outcome, 1)

	err := m.transitionSeq(func(seq uint64, cur S) S {
		// seq is the number the result will carry; seq-1 is the current one.
		if seq-1 != expect {
			result <- outcome{terminal: b.isTerminal(cur)}
			return cur
		}
		b.mu.Lock()
		b.restored[seq] = struct{}{}
		b.lastSeq = max(b.lastSeq, seq)
		b.mu.Unlock()
		result <- outcome{restored: true}
		return top
	})
	if err != nil {
		m.logger.Warn("backstack: restore failed", "error", err)
		return false
	}

	var out outcome
	select {
	case out = <-result:
	case <-m.done:
		return false
	}

	if !out.restored {
		m.logger.Debug("backstack: state moved on, restore skipped")
		if out.terminal && exhausted != nil {
			exhausted()
		}
	}
	return out.restored
}

// Clear drops all recorded history.
func (b *BackStack[S]) Clear() {
	b.mu.Lock()
	b.stack = nil
	b.mu.Unlock()
}

func (b *BackStack[S]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.stack)
}
