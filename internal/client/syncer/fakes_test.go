package syncer

import (
	"context"
	"database/sql"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/promptkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
	"github.com/dmitrijs2005/promptkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/promptkeeper/internal/client/repositories/prompts"
	"github.com/dmitrijs2005/promptkeeper/internal/common"
)

// fakeRemote is an in-memory remote authority with the same last-write-wins
// guard as the real server.
type fakeRemote struct {
	mu      sync.Mutex
	records map[string]models.Prompt

	listErr   error
	upsertErr error
	deleteErr error
	batchErr  error
	// failBatchAt makes the n-th CommitBatch call (1-based) fail.
	failBatchAt int

	upserts    int
	deletes    int
	batchCalls int
	batches    [][]models.BatchOp
}

func newFakeRemote(records ...models.Prompt) *fakeRemote {
	f := &fakeRemote{records: make(map[string]models.Prompt)}
	for _, r := range records {
		f.records[r.ID] = r
	}
	return f
}

func (f *fakeRemote) ListActive(context.Context) ([]models.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Prompt
	for _, r := range f.records {
		if r.IsActive {
			out = append(out, r.Clone())
		}
	}
	slices.SortFunc(out, func(a, b models.Prompt) int { return compareIDs(a.ID, b.ID) })
	return out, nil
}

func (f *fakeRemote) ListUpdatedSince(_ context.Context, since int64) ([]models.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Prompt
	for _, r := range f.records {
		if r.UpdatedAt > since {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (f *fakeRemote) Upsert(_ context.Context, p models.Prompt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts++
	f.upsertLocked(p)
	return nil
}

func (f *fakeRemote) SoftDelete(_ context.Context, id string, updatedAt int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes++
	return f.deleteLocked(id, updatedAt)
}

func (f *fakeRemote) CommitBatch(_ context.Context, ops []models.BatchOp) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	if f.batchErr != nil || f.batchCalls == f.failBatchAt {
		if f.batchErr != nil {
			return f.batchErr
		}
		return common.ErrorInternal
	}
	f.batches = append(f.batches, slices.Clone(ops))
	for _, op := range ops {
		switch op.Kind {
		case models.BatchUpsert:
			f.upsertLocked(*op.Prompt)
		case models.BatchDelete:
			_ = f.deleteLocked(op.ID, op.UpdatedAt)
		case models.BatchLock:
			cur, ok := f.records[op.ID]
			if ok && cur.UpdatedAt <= op.UpdatedAt {
				cur.Locked = op.Locked
				cur.UpdatedAt = op.UpdatedAt
				f.records[op.ID] = cur
			}
		}
	}
	return nil
}

func (f *fakeRemote) upsertLocked(p models.Prompt) {
	if cur, ok := f.records[p.ID]; ok && cur.UpdatedAt > p.UpdatedAt {
		return
	}
	f.records[p.ID] = p.Clone()
}

func (f *fakeRemote) deleteLocked(id string, updatedAt int64) error {
	cur, ok := f.records[id]
	if !ok {
		return common.ErrorNotFound
	}
	if cur.UpdatedAt <= updatedAt {
		cur.IsActive = false
		cur.UpdatedAt = updatedAt
		f.records[id] = cur
	}
	return nil
}

func (f *fakeRemote) get(id string) (models.Prompt, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.records[id]
	return p, ok
}

func (f *fakeRemote) put(p models.Prompt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[p.ID] = p
}

func (f *fakeRemote) all() map[string]models.Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]models.Prompt, len(f.records))
	for id, p := range f.records {
		out[id] = p.Clone()
	}
	return out
}

func compareIDs(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type env struct {
	db     *sql.DB
	store  *prompts.SQLiteRepository
	meta   *metadata.SQLiteRepository
	remote *fakeRemote
	clock  *fakeClock
}

func openDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, migrations.Up(context.Background(), db))
	return db
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := openDB(t, filepath.Join(t.TempDir(), "client.db"))
	t.Cleanup(func() { _ = db.Close() })
	return &env{
		db:     db,
		store:  prompts.NewSQLiteRepository(db, nil),
		meta:   metadata.NewSQLiteRepository(db),
		remote: newFakeRemote(),
		clock:  newFakeClock(),
	}
}

func (v *env) engine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithClock(v.clock.Now),
		WithConfig(Config{DebounceInterval: time.Hour, ReconnectBase: 5 * time.Millisecond, ReconnectMax: 20 * time.Millisecond}),
	}
	e := New(v.store, v.meta, v.remote, append(base, opts...)...)
	t.Cleanup(e.Cleanup)
	return e
}

func (v *env) local(t *testing.T, id string) *models.Prompt {
	t.Helper()
	p, err := v.store.Get(context.Background(), id)
	require.NoError(t, err)
	return p
}

func rec(id string, updated int64, content string) models.Prompt {
	return models.Prompt{
		ID:        id,
		Title:     "title " + id,
		Content:   content,
		CreatedAt: 1_000,
		UpdatedAt: updated,
		IsActive:  true,
	}
}
