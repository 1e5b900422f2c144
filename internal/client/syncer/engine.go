package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
	"github.com/dmitrijs2005/promptkeeper/internal/client/notify"
	"github.com/dmitrijs2005/promptkeeper/internal/client/queue"
	"github.com/dmitrijs2005/promptkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/promptkeeper/internal/client/repositories/prompts"
	"github.com/dmitrijs2005/promptkeeper/internal/common"
	"github.com/dmitrijs2005/promptkeeper/internal/logging"
)

// Engine owns the local record store, the pending-operation queue and the
// connection to the remote authority for one logged-in user.
type Engine struct {
	cfg      Config
	store    prompts.Repository
	meta     metadata.Repository
	queue    *queue.Queue
	remote   Remote
	watcher  ChangeWatcher
	workers  []Worker
	notifier notify.Notifier
	logger   logging.Logger
	now      func() time.Time
	newID    func() string

	status    *statusRegistry
	debouncer *Debouncer

	// writeMu serialises read-modify-write cycles on the local store between
	// user mutations, sync downloads and the change listener.
	writeMu sync.Mutex
	// syncMu serialises full syncs, incremental syncs and reconnect drains.
	syncMu sync.Mutex

	mu     sync.Mutex
	online bool
	userID string
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(store prompts.Repository, meta metadata.Repository, remote Remote, opts ...Option) *Engine {
	e := &Engine{
		cfg:      DefaultConfig(),
		store:    store,
		meta:     meta,
		queue:    queue.New(meta),
		remote:   remote,
		notifier: notify.Nop{},
		logger:   logging.NewNopLogger(),
		now:      time.Now,
		newID:    defaultID,
		online:   true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.debouncer = NewDebouncer(e.cfg.DebounceInterval)
	e.status = newStatusRegistry(models.SyncStatus{State: models.SyncIdle, Timestamp: e.now()}, e.logger)
	return e
}

// Initialize starts a session for userID: it restores the pending queue,
// starts the change listener and session workers and, when online, runs a
// full sync. A failed initial sync is reported through the status only.
func (e *Engine) Initialize(ctx context.Context, userID string) error {
	e.mu.Lock()
	if e.userID != "" {
		e.mu.Unlock()
		return fmt.Errorf("sync engine already initialized for %s", e.userID)
	}
	if err := e.queue.Load(ctx); err != nil {
		e.mu.Unlock()
		e.logger.Error(ctx, "failed to restore pending queue", "error", err)
		return err
	}
	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.userID = userID
	e.cancel = cancel
	online := e.online
	e.mu.Unlock()

	e.logger.Info(ctx, "sync session started", "user_id", userID, "pending", e.queue.Len())

	if e.watcher != nil {
		e.goSession(func() { e.listen(sessionCtx) })
	}
	for _, w := range e.workers {
		e.goSession(func() { w.Run(sessionCtx) })
	}

	if !online {
		e.setStatus(ctx, models.SyncOffline, "")
		return nil
	}
	if _, err := e.FullSync(ctx); err != nil {
		e.logger.Warn(ctx, "initial full sync failed", "error", err)
	}
	return nil
}

// Cleanup ends the session. Pending debounced pushes are flushed first so a
// quick edit-then-logout still reaches the remote when possible, and pushes
// already in flight are waited for.
func (e *Engine) Cleanup() {
	e.debouncer.Flush()
	e.debouncer.Wait()

	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.userID = ""
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
	e.setStatus(context.Background(), models.SyncIdle, "")
}

// UserID returns the user of the active session, or "".
func (e *Engine) UserID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.userID
}

func (e *Engine) Online() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.online
}

// Pending returns a copy of the queued operations.
func (e *Engine) Pending() []models.PendingOperation {
	return e.queue.Snapshot()
}

// Flush pushes every debounced write immediately.
func (e *Engine) Flush() {
	e.debouncer.Flush()
}

// SetOnline feeds connectivity changes into the engine. Going offline
// switches the status to offline; coming back online drains the queue.
func (e *Engine) SetOnline(ctx context.Context, online bool) {
	e.mu.Lock()
	prev := e.online
	e.online = online
	active := e.userID != ""
	e.mu.Unlock()

	if prev == online {
		return
	}

	if !online {
		e.debouncer.Stop()
		e.setStatus(ctx, models.SyncOffline, "connection lost")
		return
	}
	if !active {
		e.setStatus(ctx, models.SyncIdle, "")
		return
	}

	e.setStatus(ctx, models.SyncSyncing, "connection restored")

	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	n, err := e.drainQueue(ctx)
	if err != nil {
		e.setStatus(ctx, models.SyncError, err.Error())
		return
	}
	e.setStatus(ctx, models.SyncSynced, fmt.Sprintf("pushed %d pending changes", n))
}

// Status returns the current sync status.
func (e *Engine) Status() models.SyncStatus {
	return e.status.get()
}

// OnStatusChange registers fn for status transitions. fn is called right
// away with the current status. The returned function unsubscribes.
func (e *Engine) OnStatusChange(fn func(models.SyncStatus)) func() {
	return e.status.subscribe(fn)
}

func (e *Engine) setStatus(ctx context.Context, state models.SyncState, msg string) {
	// Offline holds until connectivity returns. A sync that finishes after
	// the connection dropped only leaves its outcome in the message.
	if !e.Online() && state != models.SyncOffline {
		if state == models.SyncSynced || state == models.SyncError {
			msg = fmt.Sprintf("%s: %s", state, msg)
		}
		state = models.SyncOffline
	}

	s := models.SyncStatus{State: state, Message: msg, Timestamp: e.now()}
	e.status.set(s)

	if err := metadata.SetJSON(ctx, e.meta, metadata.KeySyncStatus, s); err != nil {
		e.logger.Debug(ctx, "failed to cache sync status", "error", err)
	}
}

// ready reports why a sync cannot run right now.
func (e *Engine) ready() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.userID == "" {
		return common.ErrNotInitialized
	}
	if !e.online {
		return common.ErrOffline
	}
	return nil
}

func (e *Engine) goSession(fn func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn()
	}()
}

func (e *Engine) nowMillis() int64 {
	return e.now().UnixMilli()
}
