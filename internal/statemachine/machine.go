// Package statemachine holds application-defined workflow state behind a single
// goroutine per machine. Callers never touch the state directly: they submit pure
// transition functions and observe the resulting values as a stream.
package statemachine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	ErrNotInitialized = errors.New("statemachine: not initialized")
	ErrStopped        = errors.New("statemachine: stopped")
)

// mailboxSize bounds queued transitions before Transition starts blocking.
const mailboxSize = 64

// snapshot is one emitted value. seq increases with every accepted transition;
// reset marks values produced by Initialize.
type snapshot[S any] struct {
	state S
	seq   uint64
	reset bool
}

type command[S any] struct {
	apply     func(seq uint64, s S) S
	init      func() S
	subscribe *subscriber[S]
	read      chan readResult[S]
}

type readResult[S any] struct {
	state S
	ok    bool
}

// Machine owns a single current value of type S. All transitions for one
// machine run one at a time, in submission order, on the machine's goroutine.
type Machine[S any] struct {
	cmds        chan command[S]
	done        chan struct{}
	initialized atomic.Bool
	logger      *slog.Logger
}

type Option func(*options)

type options struct {
	logger *slog.Logger
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New starts a machine bound to ctx. Cancelling ctx tears the machine down and
// closes every observer stream.
func New[S any](ctx context.Context, opts ...Option) *Machine[S] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Machine[S]{
		cmds:   make(chan command[S], mailboxSize),
		done:   make(chan struct{}),
		logger: o.logger,
	}
	go m.run(ctx)
	return m
}

// Initialize sets the current value. It must be called before any transition
// is accepted. Calling it again restarts the workflow from initial.
func (m *Machine[S]) Initialize(initial S) error {
	m.initialized.Store(true)
	return m.send(command[S]{init: func() S { return initial }})
}

// Transition enqueues f to be applied to the current value.
func (m *Machine[S]) Transition(f func(S) S) error {
	if f == nil {
		return errors.New("statemachine: nil transition")
	}
	return m.transitionSeq(func(_ uint64, s S) S { return f(s) })
}

func (m *Machine[S]) transitionSeq(f func(seq uint64, s S) S) error {
	if !m.initialized.Load() {
		return ErrNotInitialized
	}
	return m.send(command[S]{apply: f})
}

// Observe emits the current value right away (or as soon as the machine is
// initialized) followed by every later value. The stream never errors; it is
// closed only when ctx is done or the machine stops.
func (m *Machine[S]) Observe(ctx context.Context) <-chan S {
	in := m.observe(ctx)
	out := make(chan S)
	go func() {
		defer close(out)
		for snap := range in {
			select {
			case out <- snap.state:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (m *Machine[S]) observe(ctx context.Context) <-chan snapshot[S] {
	sub := newSubscriber[S]()
	if err := m.send(command[S]{subscribe: sub}); err != nil {
		close(sub.out)
		return sub.out
	}
	go sub.pump(ctx, m.done)
	return sub.out
}

// Current reads the value through the machine's goroutine, so it reflects every
// transition submitted before the call.
func (m *Machine[S]) Current(ctx context.Context) (S, error) {
	var zero S
	reply := make(chan readResult[S], 1)
	if err := m.send(command[S]{read: reply}); err != nil {
		return zero, err
	}

	select {
	case r := <-reply:
		if !r.ok {
			return zero, ErrNotInitialized
		}
		return r.state, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-m.done:
		return zero, ErrStopped
	}
}

// Done is closed once the machine has stopped.
func (m *Machine[S]) Done() <-chan struct{} { return m.done }

func (m *Machine[S]) send(cmd command[S]) error {
	select {
	case <-m.done:
		return ErrStopped
	default:
	}

	select {
	case m.cmds <- cmd:
		return nil
	case <-m.done:
		return ErrStopped
	}
}

func (m *Machine[S]) run(ctx context.Context) {
	defer close(m.done)

	var (
		state S
		ready bool
		seq   uint64
	)
	subs := make(map[*subscriber[S]]struct{})

	broadcast := func(snap snapshot[S]) {
		for s := range subs {
			if !s.push(snap) {
				delete(subs, s)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-m.cmds:
			switch {
			case cmd.subscribe != nil:
				subs[cmd.subscribe] = struct{}{}
				if ready {
					cmd.subscribe.push(snapshot[S]{state: state, seq: seq})
				}

			case cmd.read != nil:
				cmd.read <- readResult[S]{state: state, ok: ready}

			case cmd.init != nil:
				seq++
				state = cmd.init()
				ready = true
				broadcast(snapshot[S]{state: state, seq: seq, reset: true})

			case cmd.apply != nil:
				if !ready {
					m.logger.Warn("statemachine: transition before initialize dropped")
					continue
				}
				next, err := m.apply(cmd.apply, seq+1, state)
				if err != nil {
					m.logger.Error("statemachine: transition failed, state unchanged", "error", err)
					continue
				}
				seq++
				state = next
				broadcast(snapshot[S]{state: state, seq: seq})
			}
		}
	}
}

func (m *Machine[S]) apply(f func(uint64, S) S, seq uint64, cur S) (next S, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transition panic: %v", r)
		}
	}()
	return f(seq, cur), nil
}

// TransitionIf guards f with pred. The returned transition leaves the state
// unchanged when pred does not hold for the value current at apply time.
func TransitionIf[S any](pred func(S) bool, f func(S) S) func(S) S {
	return func(s S) S {
		if !pred(s) {
			return s
		}
		return f(s)
	}
}

// subscriber queues snapshots without bound so the machine goroutine never
// waits on a slow observer.
type subscriber[S any] struct {
	mu      sync.Mutex
	pending []snapshot[S]
	closed  bool
	wake    chan struct{}
	out     chan snapshot[S]
}

func newSubscriber[S any]() *subscriber[S] {
	return &subscriber[S]{
		wake: make(chan struct{}, 1),
		out:  make(chan snapshot[S]),
	}
}

func (s *subscriber[S]) push(snap snapshot[S]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.pending = append(s.pending, snap)
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *subscriber[S]) take() []snapshot[S] {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.pending
	s.pending = nil
	return batch
}

func (s *subscriber[S]) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.pending = nil
	s.mu.Unlock()
}

func (s *subscriber[S]) pump(ctx context.Context, machineDone <-chan struct{}) {
	defer close(s.out)

	deliver := func(batch []snapshot[S]) bool {
		for _, snap := range batch {
			select {
			case s.out <- snap:
			case <-ctx.Done():
				s.markClosed()
				return false
			}
		}
		return true
	}

	for {
		if !deliver(s.take()) {
			return
		}

		select {
		case <-s.wake:
		case <-ctx.Done():
			s.markClosed()
			return
		case <-machineDone:
			// The machine goroutine has exited, nothing new can arrive.
			deliver(s.take())
			s.markClosed()
			return
		}
	}
}
