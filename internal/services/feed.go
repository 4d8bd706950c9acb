package services

import (
	"context"
	"sync"
)

// feed fans the latest value out to subscribers. Each subscriber has a single
// slot: a value it has not consumed yet is replaced by a newer one, so a slow
// reader never stalls the publisher.
type feed[T any] struct {
	mu   sync.Mutex
	subs map[chan T]struct{}
	last T
	has  bool
}

func newFeed[T any]() *feed[T] {
	return &feed[T]{subs: make(map[chan T]struct{})}
}

// subscribe replays the latest value, if any, then follows publishes until ctx
// is done.
func (f *feed[T]) subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	f.mu.Lock()
	if f.has {
		ch <- f.last
	}
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, ch)
		close(ch)
		f.mu.Unlock()
	}()
	return ch
}

func (f *feed[T]) publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.last = v
	f.has = true
	for ch := range f.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}
