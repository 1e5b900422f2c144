// Package broker fans committed events out to the live subscribers of an
// account. It is in-memory and per process.
package broker

import "sync"

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

type subscriber[T any] struct {
	ch     chan T
	closed bool
}

// Broker delivers events keyed by account id. A subscriber that falls
// behind by more than its buffer is dropped: its channel is closed and it
// is expected to resubscribe and catch up through an incremental pull.
type Broker[T any] struct {
	mu     sync.Mutex
	buffer int
	subs   map[string]map[*subscriber[T]]struct{}
}

func New[T any](buffer int) *Broker[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broker[T]{buffer: buffer, subs: make(map[string]map[*subscriber[T]]struct{})}
}

// Subscribe registers a subscriber for userID. The returned cancel func
// unregisters it and closes the channel; it is safe to call more than once.
func (b *Broker[T]) Subscribe(userID string) (<-chan T, func()) {
	s := &subscriber[T]{ch: make(chan T, b.buffer)}

	b.mu.Lock()
	set, ok := b.subs[userID]
	if !ok {
		set = make(map[*subscriber[T]]struct{})
		b.subs[userID] = set
	}
	set[s] = struct{}{}
	b.mu.Unlock()

	return s.ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.remove(userID, s)
	}
}

// Publish delivers events to every subscriber of userID without blocking.
func (b *Broker[T]) Publish(userID string, events ...T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subs[userID] {
		for _, ev := range events {
			select {
			case s.ch <- ev:
			default:
				b.remove(userID, s)
			}
			if s.closed {
				break
			}
		}
	}
}

// Subscribers returns the number of live subscribers of userID.
func (b *Broker[T]) Subscribers(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[userID])
}

// remove must be called with mu held.
func (b *Broker[T]) remove(userID string, s *subscriber[T]) {
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)

	set := b.subs[userID]
	delete(set, s)
	if len(set) == 0 {
		delete(b.subs, userID)
	}
}
