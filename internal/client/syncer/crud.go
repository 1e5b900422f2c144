package syncer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
	"github.com/dmitrijs2005/promptkeeper/internal/common"
)

// Create stores a new active prompt and queues its upload. ID is generated
// when empty; timestamps, IsActive and Locked are always set by the engine.
func (e *Engine) Create(ctx context.Context, draft models.Prompt) (*models.Prompt, error) {
	if strings.TrimSpace(draft.Title) == "" && strings.TrimSpace(draft.Content) == "" {
		return nil, fmt.Errorf("%w: title or content is required", common.ErrorInvalidInput)
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	now := e.nowMillis()
	p := draft.Clone()
	if p.ID == "" {
		p.ID = e.newID()
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	p.IsActive = true
	p.Locked = false
	p.Tags = models.NormalizeTags(p.Tags)

	if existing, err := e.store.Get(ctx, p.ID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("%w: prompt %s already exists", common.ErrorInvalidInput, p.ID)
	}

	if err := e.commitLocal(ctx, p, models.OperationUpload); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update applies patch to an active, unlocked prompt.
func (e *Engine) Update(ctx context.Context, id string, patch models.PromptPatch) (*models.Prompt, error) {
	return e.mutate(ctx, id, true, func(p *models.Prompt) {
		patch.Apply(p)
	})
}

// MarkUsed bumps the usage counters. Locked prompts may still be used.
func (e *Engine) MarkUsed(ctx context.Context, id string) (*models.Prompt, error) {
	return e.mutate(ctx, id, false, func(p *models.Prompt) {
		p.UseCount++
		p.LastUsed = e.nowMillis()
	})
}

func (e *Engine) mutate(ctx context.Context, id string, rejectLocked bool, fn func(*models.Prompt)) (*models.Prompt, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	cur, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case cur == nil:
		return nil, fmt.Errorf("prompt %s: %w", id, common.ErrorNotFound)
	case !cur.IsActive:
		return nil, fmt.Errorf("prompt %s: %w", id, common.ErrRecordDeleted)
	case rejectLocked && cur.Locked:
		return nil, fmt.Errorf("prompt %s: %w", id, common.ErrRecordLocked)
	}

	next := cur.Clone()
	fn(&next)
	next.UpdatedAt = models.NextTimestamp(e.nowMillis(), cur.UpdatedAt)

	if err := e.commitLocal(ctx, next, models.OperationUpload); err != nil {
		return nil, err
	}
	return &next, nil
}

// Delete soft-deletes the prompt locally and queues the remote delete.
// Deleting an already deleted prompt is a no-op.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	cur, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if cur == nil {
		return fmt.Errorf("prompt %s: %w", id, common.ErrorNotFound)
	}
	if !cur.IsActive {
		return nil
	}

	tomb, err := e.store.SoftDelete(ctx, id)
	if err != nil {
		e.logger.Error(ctx, "local soft delete failed", "id", id, "error", err)
		return err
	}
	if err := e.queue.Enqueue(ctx, pendingOp(models.OperationDelete, *tomb)); err != nil {
		e.logger.Error(ctx, "failed to queue delete", "id", id, "error", err)
		return err
	}
	e.pushSoon(id)
	return nil
}

// Get returns the stored prompt, active or not, or common.ErrorNotFound.
func (e *Engine) Get(ctx context.Context, id string) (*models.Prompt, error) {
	p, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("prompt %s: %w", id, common.ErrorNotFound)
	}
	return p, nil
}

// List returns active prompts, most recently updated first.
func (e *Engine) List(ctx context.Context) ([]models.Prompt, error) {
	all, err := e.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	active := slices.DeleteFunc(all, func(p models.Prompt) bool { return !p.IsActive })
	slices.SortStableFunc(active, func(a, b models.Prompt) int {
		switch {
		case a.UpdatedAt > b.UpdatedAt:
			return -1
		case a.UpdatedAt < b.UpdatedAt:
			return 1
		default:
			return strings.Compare(a.ID, b.ID)
		}
	})
	return active, nil
}

// commitLocal must be called with writeMu held.
func (e *Engine) commitLocal(ctx context.Context, p models.Prompt, typ models.OperationType) error {
	if err := e.store.Put(ctx, p); err != nil {
		e.logger.Error(ctx, "local write failed", "id", p.ID, "error", err)
		return err
	}
	if err := e.queue.Enqueue(ctx, pendingOp(typ, p)); err != nil {
		e.logger.Error(ctx, "failed to queue upload", "id", p.ID, "error", err)
		return err
	}
	e.pushSoon(p.ID)
	return nil
}

func pendingOp(typ models.OperationType, p models.Prompt) models.PendingOperation {
	return models.PendingOperation{Type: typ, ID: p.ID, Data: &p, Timestamp: p.UpdatedAt}
}

// pushSoon schedules the best-effort immediate remote write for id.
func (e *Engine) pushSoon(id string) {
	e.mu.Lock()
	ok := e.online && e.userID != ""
	e.mu.Unlock()
	if !ok {
		return
	}
	e.debouncer.Schedule(id, func() { e.pushPending(id) })
}

func (e *Engine) pushPending(id string) {
	op, ok := e.queue.Get(id)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.RemoteTimeout)
	defer cancel()

	if err := e.pushOp(ctx, op); err != nil {
		e.logger.Warn(ctx, "immediate push failed, keeping it queued", "id", id, "type", op.Type, "error", err)
		return
	}
	if _, err := e.queue.Settle(ctx, id, op.Timestamp); err != nil {
		e.logger.Error(ctx, "failed to settle pending operation", "id", id, "error", err)
	}
}

func (e *Engine) pushOp(ctx context.Context, op models.PendingOperation) error {
	switch op.Type {
	case models.OperationUpload:
		p, err := e.snapshotOf(ctx, op)
		if err != nil || p == nil {
			return err
		}
		return e.remote.Upsert(ctx, *p)
	case models.OperationDelete:
		err := e.remote.SoftDelete(ctx, op.ID, op.Timestamp)
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}
}

// snapshotOf returns the data of an upload. Operations restored from an
// older snapshot without data fall back to the stored record.
func (e *Engine) snapshotOf(ctx context.Context, op models.PendingOperation) (*models.Prompt, error) {
	if op.Data != nil {
		return op.Data, nil
	}
	return e.store.Get(ctx, op.ID)
}
