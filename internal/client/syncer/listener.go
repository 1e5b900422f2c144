package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/promptkeeper/internal/client/conflict"
	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
	"github.com/dmitrijs2005/promptkeeper/internal/common"
)

// listen keeps the remote change feed open for the session and applies every
// change it delivers. Connection attempts back off exponentially.
func (e *Engine) listen(ctx context.Context) {
	for ctx.Err() == nil {
		var feed <-chan models.Change

		err := retry.Do(ctx, e.backoff(), func(ctx context.Context) error {
			ch, err := e.watcher.Watch(ctx)
			if err != nil {
				e.logger.Debug(ctx, "change feed unavailable", "error", err)
				return retry.RetryableError(err)
			}
			feed = ch
			return nil
		})
		if err != nil {
			return
		}

		e.logger.Debug(ctx, "change feed connected")
		for change := range feed {
			if err := e.ApplyChange(ctx, change); err != nil {
				e.logger.Warn(ctx, "failed to apply remote change", "id", change.ID, "kind", change.Kind, "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(e.cfg.ReconnectBase):
		}
	}
}

func (e *Engine) backoff() retry.Backoff {
	b := retry.NewExponential(e.cfg.ReconnectBase)
	b = retry.WithJitterPercent(10, b)
	return retry.WithCappedDuration(e.cfg.ReconnectMax, b)
}

// ApplyChange merges one remote change into the local store. Additions and
// modifications go through last-write-wins, an inactive remote record acts
// as a deletion, and a removal soft-deletes the local copy. The pending
// queue is never touched, and applying the same change twice is harmless.
func (e *Engine) ApplyChange(ctx context.Context, change models.Change) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	switch change.Kind {
	case models.ChangeRemoved:
		local, err := e.store.Get(ctx, change.ID)
		if err != nil {
			return err
		}
		if local == nil || !local.IsActive {
			return nil
		}
		_, err = e.store.SoftDelete(ctx, change.ID)
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err

	case models.ChangeAdded, models.ChangeModified:
		if change.Prompt == nil {
			return nil
		}
		remote := change.Prompt.Clone()
		local, err := e.store.Get(ctx, remote.ID)
		if err != nil {
			return err
		}
		if local != nil && (local.Equal(remote) || !conflict.RemoteWins(local, &remote)) {
			return nil
		}
		return e.store.Put(ctx, remote)

	default:
		e.logger.Debug(ctx, "ignoring unknown change kind", "kind", change.Kind)
		return nil
	}
}
