// Package queue holds local writes that the remote authority has not yet
// confirmed. There is at most one pending operation per prompt id; the
// latest enqueue wins. The whole queue is persisted as a snapshot in the
// metadata store after every mutation so it survives restarts.
package queue

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
	"github.com/dmitrijs2005/promptkeeper/internal/client/repositories/metadata"
)

type Queue struct {
	mu    sync.Mutex
	ops   map[string]models.PendingOperation
	order []string
	store metadata.Repository
}

func New(store metadata.Repository) *Queue {
	return &Queue{
		ops:   make(map[string]models.PendingOperation),
		store: store,
	}
}

// Load replaces the in-memory queue with the persisted snapshot.
func (q *Queue) Load(ctx context.Context) error {
	var snapshot []models.PendingOperation
	if _, err := metadata.GetJSON(ctx, q.store, metadata.KeyPendingQueue, &snapshot); err != nil {
		return fmt.Errorf("failed to load pending queue: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.ops = make(map[string]models.PendingOperation, len(snapshot))
	q.order = q.order[:0]
	for _, op := range snapshot {
		q.put(op)
	}
	return nil
}

// Enqueue records op, replacing any pending operation for the same id.
func (q *Queue) Enqueue(ctx context.Context, op models.PendingOperation) error {
	if op.Data != nil {
		data := op.Data.Clone()
		op.Data = &data
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.put(op)
	return q.persist(ctx)
}

// Settle drops the pending operation for id when it is not newer than the
// committed timestamp. A newer write enqueued while the commit was in
// flight stays queued.
func (q *Queue) Settle(ctx context.Context, id string, committed int64) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	op, ok := q.ops[id]
	if !ok || op.Timestamp > committed {
		return false, nil
	}
	q.remove(id)
	return true, q.persist(ctx)
}

// Remove drops whatever is pending for id.
func (q *Queue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.ops[id]; !ok {
		return nil
	}
	q.remove(id)
	return q.persist(ctx)
}

// Clear empties the queue, used on logout.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.ops = make(map[string]models.PendingOperation)
	q.order = nil
	return q.persist(ctx)
}

func (q *Queue) Get(id string) (models.PendingOperation, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	op, ok := q.ops[id]
	return op, ok
}

// Snapshot returns the pending operations, oldest enqueue first.
func (q *Queue) Snapshot() []models.PendingOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.PendingOperation, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, q.ops[id])
	}
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// put must be called with mu held. A re-enqueued id moves to the back.
func (q *Queue) put(op models.PendingOperation) {
	if _, ok := q.ops[op.ID]; ok {
		q.order = slices.DeleteFunc(q.order, func(id string) bool { return id == op.ID })
	}
	q.ops[op.ID] = op
	q.order = append(q.order, op.ID)
}

func (q *Queue) remove(id string) {
	delete(q.ops, id)
	q.order = slices.DeleteFunc(q.order, func(v string) bool { return v == id })
}

func (q *Queue) persist(ctx context.Context) error {
	snapshot := make([]models.PendingOperation, 0, len(q.order))
	for _, id := range q.order {
		snapshot = append(snapshot, q.ops[id])
	}
	if err := metadata.SetJSON(ctx, q.store, metadata.KeyPendingQueue, snapshot); err != nil {
		return fmt.Errorf("failed to persist pending queue: %w", err)
	}
	return nil
}
