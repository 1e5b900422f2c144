package services

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/promptkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
)

// ---- helpers ----

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+strings.ReplaceAll(t.Name(), "/", "_")+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Up(context.Background(), db))
	return db
}

func insertMeta(t *testing.T, db *sql.DB, k string, v []byte) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO metadata(key,value) VALUES(?,?)`, k, v)
	require.NoError(t, err)
}

func getMeta(t *testing.T, db *sql.DB, k string) []byte {
	t.Helper()
	var v []byte
	err := db.QueryRow(`SELECT value FROM metadata WHERE key=?`, k).Scan(&v)
	if err == sql.ErrNoRows {
		return nil
	}
	require.NoError(t, err)
	return v
}

// ---- fake client ----

// fakeClient implements client.Client for service tests. The embedded map
// makes it a usable remote for a real sync engine as well.
type fakeClient struct {
	CloseErr    error
	RegisterErr error

	GetSaltRet []byte
	GetSaltErr error

	LoginRet string
	LoginErr error

	PingErr error

	TierRet models.Tier
	TierErr error

	ExportURL   string
	ExportCount int
	ExportErr   error

	mu     sync.Mutex
	remote map[string]models.Prompt

	// for argument checks
	LastRegisterUser string
	LastRegisterSalt []byte
	LastRegisterKey  []byte

	LastGetSaltUser string

	LastLoginUser string
	LastLoginKey  []byte

	LastTier    models.Tier
	LoggedOut   bool
	UpsertCalls int
}

func (f *fakeClient) Close() error { return f.CloseErr }

func (f *fakeClient) Register(ctx context.Context, username string, salt []byte, key []byte) error {
	f.LastRegisterUser = username
	f.LastRegisterSalt = append([]byte(nil), salt...)
	f.LastRegisterKey = append([]byte(nil), key...)
	return f.RegisterErr
}

func (f *fakeClient) GetSalt(ctx context.Context, username string) ([]byte, error) {
	f.LastGetSaltUser = username
	return append([]byte(nil), f.GetSaltRet...), f.GetSaltErr
}

func (f *fakeClient) Login(ctx context.Context, username string, key []byte) (string, error) {
	f.LastLoginUser = username
	f.LastLoginKey = append([]byte(nil), key...)
	return f.LoginRet, f.LoginErr
}

func (f *fakeClient) Logout() { f.LoggedOut = true }

func (f *fakeClient) Ping(ctx context.Context) error { return f.PingErr }

func (f *fakeClient) ListActive(ctx context.Context) ([]models.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Prompt
	for _, p := range f.remote {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeClient) ListUpdatedSince(ctx context.Context, since int64) ([]models.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Prompt
	for _, p := range f.remote {
		if p.UpdatedAt > since {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeClient) Upsert(ctx context.Context, p models.Prompt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpsertCalls++
	f.store(p)
	return nil
}

func (f *fakeClient) SoftDelete(ctx context.Context, id string, updatedAt int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.remote[id]
	if !ok {
		return nil
	}
	p.IsActive = false
	p.UpdatedAt = updatedAt
	f.remote[id] = p
	return nil
}

func (f *fakeClient) CommitBatch(ctx context.Context, ops []models.BatchOp) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, op := range ops {
		switch op.Kind {
		case models.BatchUpsert:
			f.store(*op.Prompt)
		case models.BatchDelete:
			if p, ok := f.remote[op.ID]; ok {
				p.IsActive = false
				p.UpdatedAt = op.UpdatedAt
				f.remote[op.ID] = p
			}
		case models.BatchLock:
			if p, ok := f.remote[op.ID]; ok {
				p.Locked = op.Locked
				p.UpdatedAt = op.UpdatedAt
				f.remote[op.ID] = p
			}
		}
	}
	return nil
}

func (f *fakeClient) Purge(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.remote, id)
	return nil
}

func (f *fakeClient) Watch(ctx context.Context) (<-chan models.Change, error) {
	ch := make(chan models.Change)
	close(ch)
	return ch, nil
}

func (f *fakeClient) GetMembership(ctx context.Context) (models.Tier, error) {
	return f.TierRet, f.TierErr
}

func (f *fakeClient) SetMembership(ctx context.Context, tier models.Tier) (models.Tier, error) {
	f.LastTier = tier
	if f.TierErr != nil {
		return "", f.TierErr
	}
	f.TierRet = tier
	return tier, nil
}

func (f *fakeClient) WatchMembership(ctx context.Context) (<-chan models.Tier, error) {
	ch := make(chan models.Tier)
	close(ch)
	return ch, nil
}

func (f *fakeClient) Export(ctx context.Context) (string, int, error) {
	return f.ExportURL, f.ExportCount, f.ExportErr
}

func (f *fakeClient) get(id string) (models.Prompt, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.remote[id]
	return p, ok
}

// store expects f.mu to be held.
func (f *fakeClient) store(p models.Prompt) {
	if f.remote == nil {
		f.remote = make(map[string]models.Prompt)
	}
	f.remote[p.ID] = p
}
