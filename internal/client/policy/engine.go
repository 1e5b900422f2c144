// Package policy enforces the record quota of the free subscription tier by
// locking and unlocking prompts directly on the remote authority.
//
// The engine writes only the locked flag and updatedAt of each record and
// never goes through the local pending queue: lock flips are side effects of
// the membership, not user intent. Locally they arrive like any other remote
// change, through the change feed.
package policy

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
	"github.com/dmitrijs2005/promptkeeper/internal/common"
	"github.com/dmitrijs2005/promptkeeper/internal/dbx"
	"github.com/dmitrijs2005/promptkeeper/internal/logging"
)

// Remote is the part of the remote authority the engine needs.
type Remote interface {
	ListActive(ctx context.Context) ([]models.Prompt, error)
	CommitBatch(ctx context.Context, ops []models.BatchOp) error
}

// MembershipWatcher streams the account tier. The current tier is delivered
// first after every (re)connect; the channel closes when the stream ends.
type MembershipWatcher interface {
	WatchMembership(ctx context.Context) (<-chan models.Tier, error)
}

type Engine struct {
	remote    Remote
	watcher   MembershipWatcher
	logger    logging.Logger
	quota     int
	batchSize int
	now       func() time.Time

	reconnectBase time.Duration
	reconnectMax  time.Duration

	mu   sync.Mutex
	tier models.Tier
	// run serialises evaluations so two passes never race on the same records.
	run sync.Mutex
}

type Option func(*Engine)

func WithQuota(n int) Option {
	return func(e *Engine) { e.quota = n }
}

func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 && n <= common.MaxBatchSize {
			e.batchSize = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithReconnect(base, maxDelay time.Duration) Option {
	return func(e *Engine) {
		e.reconnectBase = base
		e.reconnectMax = maxDelay
	}
}

func New(remote Remote, watcher MembershipWatcher, logger logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		remote:        remote,
		watcher:       watcher,
		logger:        logger.With("module", "policy"),
		quota:         common.FreeTierQuota,
		batchSize:     common.MaxBatchSize,
		now:           time.Now,
		reconnectBase: time.Second,
		reconnectMax:  time.Minute,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tier returns the last tier observed, or "" before the first one.
func (e *Engine) Tier() models.Tier {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tier
}

// OnTierChange handles a transition between tiers. A downgrade to free locks
// the records over quota, an upgrade to pro unlocks everything. It returns
// the number of records written.
func (e *Engine) OnTierChange(ctx context.Context, oldTier, newTier models.Tier) (int, error) {
	e.setTier(newTier)
	if oldTier == newTier {
		return 0, nil
	}
	e.logger.Info(ctx, "membership tier changed", "from", oldTier, "to", newTier)
	return e.evaluate(ctx, newTier)
}

// OnConnect re-applies the policy for tier after a (re)connect, in case a
// transition was missed while disconnected.
func (e *Engine) OnConnect(ctx context.Context, tier models.Tier) (int, error) {
	e.setTier(tier)
	return e.evaluate(ctx, tier)
}

func (e *Engine) evaluate(ctx context.Context, tier models.Tier) (int, error) {
	e.run.Lock()
	defer e.run.Unlock()

	records, err := e.remote.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list remote prompts: %w", err)
	}

	ops := Plan(records, tier, e.quota, e.now().UnixMilli())
	if len(ops) == 0 {
		return 0, nil
	}

	done := 0
	for _, chunk := range dbx.Chunk(ops, e.batchSize) {
		if err := e.remote.CommitBatch(ctx, chunk); err != nil {
			return done, fmt.Errorf("commit lock batch of %d: %w", len(chunk), err)
		}
		done += len(chunk)
	}
	e.logger.Info(ctx, "lock policy applied", "tier", tier, "changed", done)
	return done, nil
}

// Plan computes the lock flips needed to bring records in line with tier.
// On free, active records are ranked newest first by CreatedAt and every
// record past the quota gets locked while locked records inside the quota
// are released. On pro, every locked record is unlocked. Records already in
// the target state are skipped, so applying a plan twice is a no-op.
func Plan(records []models.Prompt, tier models.Tier, quota int, now int64) []models.BatchOp {
	active := make([]models.Prompt, 0, len(records))
	for _, r := range records {
		if r.IsActive {
			active = append(active, r)
		}
	}
	slices.SortFunc(active, func(a, b models.Prompt) int {
		switch {
		case a.CreatedAt > b.CreatedAt:
			return -1
		case a.CreatedAt < b.CreatedAt:
			return 1
		default:
			return strings.Compare(a.ID, b.ID)
		}
	})

	var ops []models.BatchOp
	for i, r := range active {
		want := tier != models.TierPro && i >= quota
		if r.Locked == want {
			continue
		}
		ops = append(ops, models.BatchOp{
			Kind:      models.BatchLock,
			ID:        r.ID,
			Locked:    want,
			UpdatedAt: models.NextTimestamp(now, r.UpdatedAt),
		})
	}
	return ops
}

// Run follows the membership stream until ctx is done, reconnecting with
// exponential backoff. The first tier of every connection is treated as a
// steady-state evaluation; later ones as transitions.
func (e *Engine) Run(ctx context.Context) {
	for ctx.Err() == nil {
		var feed <-chan models.Tier

		err := retry.Do(ctx, e.backoff(), func(ctx context.Context) error {
			ch, err := e.watcher.WatchMembership(ctx)
			if err != nil {
				e.logger.Debug(ctx, "membership stream unavailable", "error", err)
				return retry.RetryableError(err)
			}
			feed = ch
			return nil
		})
		if err != nil {
			return
		}

		first := true
		for tier := range feed {
			var err error
			if first {
				_, err = e.OnConnect(ctx, tier)
				first = false
			} else {
				_, err = e.OnTierChange(ctx, e.Tier(), tier)
			}
			if err != nil {
				e.logger.Warn(ctx, "lock policy failed", "tier", tier, "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(e.reconnectBase):
		}
	}
}

func (e *Engine) backoff() retry.Backoff {
	b := retry.NewExponential(e.reconnectBase)
	b = retry.WithJitterPercent(10, b)
	return retry.WithCappedDuration(e.reconnectMax, b)
}

func (e *Engine) setTier(t models.Tier) {
	e.mu.Lock()
	e.tier = t
	e.mu.Unlock()
}
