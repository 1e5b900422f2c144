package syncer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
	"github.com/dmitrijs2005/promptkeeper/internal/client/notify"
	"github.com/dmitrijs2005/promptkeeper/internal/common"
	"github.com/dmitrijs2005/promptkeeper/internal/logging"
)

// Config tunes the engine. Zero fields fall back to DefaultConfig.
type Config struct {
	// DebounceInterval delays the immediate push of a record so that rapid
	// edits collapse into one remote write.
	DebounceInterval time.Duration
	// FullSyncMaxAge makes Sync run a full sync once the last one is older.
	FullSyncMaxAge time.Duration
	// BatchSize caps the operations per remote batch commit.
	BatchSize int
	// DirectPushLimit is the queue length up to which a drain pushes
	// operations one by one instead of batching them.
	DirectPushLimit int
	// RemoteTimeout bounds background remote calls.
	RemoteTimeout time.Duration
	// ReconnectBase and ReconnectMax bound the change-feed reconnect backoff.
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
}

func DefaultConfig() Config {
	return Config{
		DebounceInterval: time.Second,
		FullSyncMaxAge:   24 * time.Hour,
		BatchSize:        common.MaxBatchSize,
		DirectPushLimit:  20,
		RemoteTimeout:    15 * time.Second,
		ReconnectBase:    500 * time.Millisecond,
		ReconnectMax:     30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DebounceInterval <= 0 {
		c.DebounceInterval = d.DebounceInterval
	}
	if c.FullSyncMaxAge <= 0 {
		c.FullSyncMaxAge = d.FullSyncMaxAge
	}
	if c.BatchSize <= 0 || c.BatchSize > common.MaxBatchSize {
		c.BatchSize = d.BatchSize
	}
	if c.DirectPushLimit <= 0 {
		c.DirectPushLimit = d.DirectPushLimit
	}
	if c.RemoteTimeout <= 0 {
		c.RemoteTimeout = d.RemoteTimeout
	}
	if c.ReconnectBase <= 0 {
		c.ReconnectBase = d.ReconnectBase
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = d.ReconnectMax
	}
	return c
}

// Remote is the remote authority as seen by the engine.
type Remote interface {
	ListActive(ctx context.Context) ([]models.Prompt, error)
	ListUpdatedSince(ctx context.Context, since int64) ([]models.Prompt, error)
	Upsert(ctx context.Context, p models.Prompt) error
	// SoftDelete returns an error matching common.ErrorNotFound when the
	// remote has no such record.
	SoftDelete(ctx context.Context, id string, updatedAt int64) error
	CommitBatch(ctx context.Context, ops []models.BatchOp) error
}

// ChangeWatcher opens the remote change feed. The channel is closed when the
// feed ends for any reason.
type ChangeWatcher interface {
	Watch(ctx context.Context) (<-chan models.Change, error)
}

// Worker is a session-scoped background task started by Initialize and
// stopped by Cleanup, such as the locking policy engine.
type Worker interface {
	Run(ctx context.Context)
}

type Option func(*Engine)

func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg.withDefaults() }
}

func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.logger = l.With("module", "syncer") }
}

func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithChangeWatcher(w ChangeWatcher) Option {
	return func(e *Engine) { e.watcher = w }
}

func WithWorker(w Worker) Option {
	return func(e *Engine) { e.workers = append(e.workers, w) }
}

// WithOnline sets the initial connectivity state. The default is online.
func WithOnline(online bool) Option {
	return func(e *Engine) { e.online = online }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func defaultID() string {
	return uuid.NewString()
}
