package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/promptkeeper/internal/client/conflict"
	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
	"github.com/dmitrijs2005/promptkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/promptkeeper/internal/dbx"
)

// Sync runs a full sync when the last one is older than FullSyncMaxAge (or
// never happened) and an incremental sync otherwise.
func (e *Engine) Sync(ctx context.Context) (models.SyncStats, error) {
	last, err := metadata.GetInt64(ctx, e.meta, metadata.KeyLastFullSync)
	if err != nil {
		e.logger.Warn(ctx, "failed to read last full sync time", "error", err)
	}
	if last == 0 || e.now().Sub(time.UnixMilli(last)) > e.cfg.FullSyncMaxAge {
		return e.FullSync(ctx)
	}
	return e.IncrementalSync(ctx)
}

// FullSync reconciles the whole local store with every active remote
// record. On success the watermark and the last-full-sync marker move to now.
func (e *Engine) FullSync(ctx context.Context) (models.SyncStats, error) {
	if err := e.ready(); err != nil {
		return models.SyncStats{}, err
	}

	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	e.setStatus(ctx, models.SyncSyncing, "full sync")

	stats, err := e.fullSync(ctx)
	if err != nil {
		e.logger.Warn(ctx, "full sync failed", "error", err)
		e.setStatus(ctx, models.SyncError, err.Error())
		return stats, err
	}

	now := e.nowMillis()
	if err := metadata.SetInt64(ctx, e.meta, metadata.KeyWatermark, now); err != nil {
		e.setStatus(ctx, models.SyncError, err.Error())
		return stats, err
	}
	if err := metadata.SetInt64(ctx, e.meta, metadata.KeyLastFullSync, now); err != nil {
		e.setStatus(ctx, models.SyncError, err.Error())
		return stats, err
	}

	e.logger.Info(ctx, "full sync finished",
		"uploaded", stats.Uploaded, "downloaded", stats.Downloaded, "conflicts", stats.Conflicts)
	e.setStatus(ctx, models.SyncSynced, summary(stats))
	e.notifier.SyncCompleted(stats)
	return stats, nil
}

func (e *Engine) fullSync(ctx context.Context) (models.SyncStats, error) {
	var stats models.SyncStats

	locals, err := e.store.GetAll(ctx)
	if err != nil {
		return stats, fmt.Errorf("read local prompts: %w", err)
	}
	remotes, err := e.remote.ListActive(ctx)
	if err != nil {
		return stats, fmt.Errorf("list remote prompts: %w", err)
	}

	remoteByID := make(map[string]models.Prompt, len(remotes))
	for _, r := range remotes {
		remoteByID[r.ID] = r
	}

	var (
		uploads   []models.BatchOp
		localOnly []models.Prompt
	)
	downloads := make(map[string]models.Prompt)

	for i := range locals {
		l := locals[i]
		r, ok := remoteByID[l.ID]
		if !ok {
			if l.IsActive {
				localOnly = append(localOnly, l)
			}
			continue
		}
		delete(remoteByID, l.ID)

		if l.Equal(r) {
			continue
		}
		if !l.IsActive {
			// The remote copy only survives a local deletion if it is newer.
			if conflict.RemoteWins(&l, &r) {
				downloads[r.ID] = r
			} else {
				uploads = append(uploads, deleteOp(l.ID, l.UpdatedAt))
			}
			continue
		}

		stats.Conflicts++
		if conflict.RemoteWins(&l, &r) {
			downloads[r.ID] = r
		} else {
			uploads = append(uploads, upsertOp(l))
		}
		stats.Resolved++
	}
	for id, r := range remoteByID {
		downloads[id] = r
	}

	// Active here and absent from the active listing: either never uploaded
	// or deleted on another device.
	if len(localOnly) > 0 {
		tombstones, err := e.remoteTombstones(ctx)
		if err != nil {
			return stats, err
		}
		for i := range localOnly {
			l := localOnly[i]
			if t, ok := tombstones[l.ID]; ok && conflict.RemoteWins(&l, &t) {
				downloads[t.ID] = t
				continue
			}
			uploads = append(uploads, upsertOp(l))
		}
	}

	n, err := e.commitBatches(ctx, uploads)
	stats.Uploaded = n
	if err != nil {
		return stats, err
	}

	applied, _, err := e.applyRemote(ctx, downloads)
	stats.Downloaded = applied
	if err != nil {
		return stats, fmt.Errorf("store downloaded prompts: %w", err)
	}
	return stats, nil
}

// remoteTombstones returns the soft-deleted remote records by id.
func (e *Engine) remoteTombstones(ctx context.Context) (map[string]models.Prompt, error) {
	all, err := e.remote.ListUpdatedSince(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list remote tombstones: %w", err)
	}
	out := make(map[string]models.Prompt)
	for _, r := range all {
		if !r.IsActive {
			out[r.ID] = r
		}
	}
	return out, nil
}

// IncrementalSync drains the pending queue and pulls remote records updated
// after the watermark. The two steps run concurrently and independently.
func (e *Engine) IncrementalSync(ctx context.Context) (models.SyncStats, error) {
	if err := e.ready(); err != nil {
		return models.SyncStats{}, err
	}

	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	e.setStatus(ctx, models.SyncSyncing, "incremental sync")

	var (
		g                   errgroup.Group
		uploaded            int
		downloaded, clashes int
	)
	g.Go(func() error {
		n, err := e.drainQueue(ctx)
		uploaded = n
		return err
	})
	g.Go(func() error {
		d, c, err := e.pull(ctx)
		downloaded, clashes = d, c
		return err
	})
	err := g.Wait()

	stats := models.SyncStats{Uploaded: uploaded, Downloaded: downloaded, Conflicts: clashes, Resolved: clashes}
	if err != nil {
		e.logger.Warn(ctx, "incremental sync failed", "error", err)
		e.setStatus(ctx, models.SyncError, err.Error())
		return stats, err
	}

	e.setStatus(ctx, models.SyncSynced, summary(stats))
	e.notifier.SyncCompleted(stats)
	return stats, nil
}

// drainQueue pushes every pending operation. Short queues are pushed one by
// one so a single bad record does not hold back the rest; longer queues go
// out in batch commits. Operations stay queued until their commit succeeds.
func (e *Engine) drainQueue(ctx context.Context) (int, error) {
	ops := e.queue.Snapshot()
	if len(ops) == 0 {
		return 0, nil
	}

	if len(ops) <= e.cfg.DirectPushLimit {
		var (
			done int
			errs []error
		)
		for _, op := range ops {
			if err := e.pushOp(ctx, op); err != nil {
				errs = append(errs, fmt.Errorf("%s %s: %w", op.Type, op.ID, err))
				continue
			}
			e.settle(ctx, op.ID, op.Timestamp)
			done++
		}
		return done, errors.Join(errs...)
	}

	batch := make([]models.BatchOp, 0, len(ops))
	for _, op := range ops {
		switch op.Type {
		case models.OperationDelete:
			batch = append(batch, deleteOp(op.ID, op.Timestamp))
		default:
			p, err := e.snapshotOf(ctx, op)
			if err != nil {
				return 0, err
			}
			if p == nil {
				e.settle(ctx, op.ID, op.Timestamp)
				continue
			}
			batch = append(batch, upsertOp(*p))
		}
	}
	return e.commitBatches(ctx, batch)
}

// commitBatches sends ops in chunks of BatchSize. A failing chunk stops the
// run; earlier chunks stay committed and are removed from the queue.
func (e *Engine) commitBatches(ctx context.Context, ops []models.BatchOp) (int, error) {
	done := 0
	for _, chunk := range dbx.Chunk(ops, e.cfg.BatchSize) {
		if err := e.remote.CommitBatch(ctx, chunk); err != nil {
			return done, fmt.Errorf("commit batch of %d: %w", len(chunk), err)
		}
		for _, op := range chunk {
			e.settle(ctx, op.ID, op.UpdatedAt)
		}
		done += len(chunk)
	}
	return done, nil
}

// pull downloads records changed after the watermark and advances it to the
// newest UpdatedAt observed.
func (e *Engine) pull(ctx context.Context) (int, int, error) {
	wm, err := metadata.GetInt64(ctx, e.meta, metadata.KeyWatermark)
	if err != nil {
		return 0, 0, err
	}

	remotes, err := e.remote.ListUpdatedSince(ctx, wm)
	if err != nil {
		return 0, 0, fmt.Errorf("list remote changes: %w", err)
	}

	maxSeen := wm
	downloads := make(map[string]models.Prompt, len(remotes))
	for _, r := range remotes {
		maxSeen = max(maxSeen, r.UpdatedAt)
		downloads[r.ID] = r
	}

	applied, conflicts, err := e.applyRemote(ctx, downloads)
	if err != nil {
		return applied, conflicts, fmt.Errorf("store pulled prompts: %w", err)
	}

	if maxSeen > wm {
		if err := metadata.SetInt64(ctx, e.meta, metadata.KeyWatermark, maxSeen); err != nil {
			return applied, conflicts, err
		}
	}
	return applied, conflicts, nil
}

// applyRemote stores every candidate that still beats the local copy and
// reports how many were written and how many replaced a differing local
// version. Candidates are re-checked under writeMu because the local store
// may have changed while the remote call was in flight.
func (e *Engine) applyRemote(ctx context.Context, candidates map[string]models.Prompt) (int, int, error) {
	if len(candidates) == 0 {
		return 0, 0, nil
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	batch := make(map[string]models.Prompt, len(candidates))
	conflicts := 0
	for id, r := range candidates {
		local, err := e.store.Get(ctx, id)
		if err != nil {
			return 0, 0, err
		}
		if local != nil {
			if local.Equal(r) {
				continue
			}
			conflicts++
			if !conflict.RemoteWins(local, &r) {
				continue
			}
		}
		batch[id] = r
	}

	if err := e.store.PutMany(ctx, batch); err != nil {
		return 0, conflicts, err
	}
	for id, r := range batch {
		// A queued write that is not newer than what we just stored is obsolete.
		e.settle(ctx, id, r.UpdatedAt)
	}
	return len(batch), conflicts, nil
}

func (e *Engine) settle(ctx context.Context, id string, committed int64) {
	if _, err := e.queue.Settle(ctx, id, committed); err != nil {
		e.logger.Error(ctx, "failed to settle pending operation", "id", id, "error", err)
	}
}

func upsertOp(p models.Prompt) models.BatchOp {
	return models.BatchOp{Kind: models.BatchUpsert, ID: p.ID, Prompt: &p, UpdatedAt: p.UpdatedAt}
}

func deleteOp(id string, updatedAt int64) models.BatchOp {
	return models.BatchOp{Kind: models.BatchDelete, ID: id, UpdatedAt: updatedAt}
}

func summary(s models.SyncStats) string {
	return fmt.Sprintf("uploaded %d, downloaded %d, conflicts %d", s.Uploaded, s.Downloaded, s.Conflicts)
}
