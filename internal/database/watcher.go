package database

import (
	"context"
	"sync"
)

// watcher fans full-collection snapshots out to subscribers. Every
// subscriber channel is buffered with capacity one and written with
// latest-wins semantics: a slow consumer never blocks a publish, it just
// skips straight to the newest snapshot. Snapshots are complete copies,
// never diffs.
type watcher[T any] struct {
	mu   sync.Mutex
	subs map[chan []T]struct{}
}

func newWatcher[T any]() *watcher[T] {
	return &watcher[T]{subs: make(map[chan []T]struct{})}
}

// subscribe registers a new subscriber. The channel is closed and removed
// when ctx is canceled; after that no further snapshots are delivered, so
// a torn-down consumer cannot observe a stale late snapshot.
func (w *watcher[T]) subscribe(ctx context.Context) <-chan []T {
	ch := make(chan []T, 1)

	w.mu.Lock()
	w.subs[ch] = struct{}{}
	w.mu.Unlock()

	go func() {
		<-ctx.Done()
		w.mu.Lock()
		delete(w.subs, ch)
		w.mu.Unlock()
		close(ch)
	}()

	return ch
}

// publish delivers items to every live subscriber, replacing any snapshot
// the subscriber has not consumed yet.
func (w *watcher[T]) publish(items []T) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for ch := range w.subs {
		select {
		case ch <- items:
		default:
			// Drop the superseded snapshot, then deliver the new one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- items:
			default:
			}
		}
	}
}
