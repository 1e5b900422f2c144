package syncer

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
	"github.com/dmitrijs2005/promptkeeper/internal/logging"
)

// statusRegistry keeps the current status and replays it to new observers.
type statusRegistry struct {
	mu        sync.Mutex
	current   models.SyncStatus
	observers map[int]func(models.SyncStatus)
	nextID    int
	logger    logging.Logger
}

func newStatusRegistry(initial models.SyncStatus, logger logging.Logger) *statusRegistry {
	return &statusRegistry{
		current:   initial,
		observers: make(map[int]func(models.SyncStatus)),
		logger:    logger,
	}
}

func (r *statusRegistry) get() models.SyncStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *statusRegistry) set(s models.SyncStatus) {
	r.mu.Lock()
	r.current = s
	observers := make([]func(models.SyncStatus), 0, len(r.observers))
	for _, fn := range r.observers {
		observers = append(observers, fn)
	}
	r.mu.Unlock()

	for _, fn := range observers {
		r.notify(fn, s)
	}
}

func (r *statusRegistry) subscribe(fn func(models.SyncStatus)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.observers[id] = fn
	current := r.current
	r.mu.Unlock()

	r.notify(fn, current)

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.observers, id)
			r.mu.Unlock()
		})
	}
}

func (r *statusRegistry) notify(fn func(models.SyncStatus), s models.SyncStatus) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error(context.Background(), "status observer panicked", "panic", rec)
		}
	}()
	fn(s)
}
