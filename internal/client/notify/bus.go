package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
	"github.com/dmitrijs2005/promptkeeper/internal/logging"
)

// Bus fans events out to subscribers synchronously, in the publisher's
// goroutine. A panicking subscriber is logged and skipped.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]func(Event)
	nextID int
	logger logging.Logger
	now    func() time.Time
}

func NewBus(logger logging.Logger) *Bus {
	return &Bus{
		subs:   make(map[int]func(Event)),
		logger: logger,
		now:    time.Now,
	}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = b.now()
	}

	b.mu.RLock()
	subs := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		b.deliver(fn, e)
	}
}

func (b *Bus) deliver(fn func(Event), e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error(context.Background(), "notification subscriber panicked", "event", e.Type, "panic", r)
		}
	}()
	fn(e)
}

func (b *Bus) RecordUpserted(p models.Prompt) {
	p = p.Clone()
	b.Publish(Event{Type: EventRecordUpserted, ID: p.ID, Prompt: &p})
}

func (b *Bus) RecordDeleted(id string) {
	b.Publish(Event{Type: EventRecordDeleted, ID: id})
}

func (b *Bus) SyncCompleted(stats models.SyncStats) {
	b.Publish(Event{Type: EventSyncCompleted, Stats: &stats})
}

// StatusChanged forwards a sync status transition.
func (b *Bus) StatusChanged(s models.SyncStatus) {
	b.Publish(Event{Type: EventStatus, Status: &s})
}
