package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/promptkeeper/internal/client/client"
	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
	"github.com/dmitrijs2005/promptkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/promptkeeper/internal/client/repositories/prompts"
	"github.com/dmitrijs2005/promptkeeper/internal/client/syncer"
	"github.com/dmitrijs2005/promptkeeper/internal/common"
)

func strPtr(s string) *string { return &s }

func newPromptService(t *testing.T, fc *fakeClient) PromptService {
	t.Helper()
	db := setupDB(t)

	// a long debounce keeps pushes under the test's control
	engine := syncer.New(
		prompts.NewSQLiteRepository(db, nil),
		metadata.NewSQLiteRepository(db),
		fc,
		syncer.WithConfig(syncer.Config{DebounceInterval: time.Hour}),
	)
	require.NoError(t, engine.Initialize(context.Background(), "u1"))
	t.Cleanup(engine.Cleanup)

	return NewPromptService(engine, fc, nil)
}

func TestPromptService_LocalCRUD(t *testing.T) {
	ctx := context.Background()
	svc := newPromptService(t, &fakeClient{})

	p, err := svc.Add(ctx, models.Prompt{Title: "greeting", Content: "say hi", Tags: []string{"Chat"}})
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	assert.True(t, p.IsActive)

	p, err = svc.Edit(ctx, p.ID, models.PromptPatch{Title: strPtr("hello")})
	require.NoError(t, err)
	assert.Equal(t, "hello", p.Title)

	p, err = svc.Use(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.UseCount)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, pending := svc.Status()
	assert.Equal(t, 1, pending)

	require.NoError(t, svc.Delete(ctx, p.ID))
	list, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPromptService_ErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	svc := newPromptService(t, &fakeClient{})

	_, err := svc.Add(ctx, models.Prompt{})
	require.ErrorIs(t, err, common.ErrorInvalidInput)
	assert.True(t, strings.HasPrefix(err.Error(), "saving error:"))

	_, err = svc.Edit(ctx, "missing", models.PromptPatch{Title: strPtr("x")})
	require.ErrorIs(t, err, common.ErrorNotFound)
	assert.True(t, strings.HasPrefix(err.Error(), "error updating prompt:"))

	err = svc.Delete(ctx, "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
	assert.True(t, strings.HasPrefix(err.Error(), "error deleting prompt:"))
}

func TestPromptService_SyncPushesQueuedWrites(t *testing.T) {
	ctx := context.Background()
	fc := &fakeClient{}
	svc := newPromptService(t, fc)

	p, err := svc.Add(ctx, models.Prompt{Title: "t", Content: "c"})
	require.NoError(t, err)

	_, err = svc.Sync(ctx)
	require.NoError(t, err)

	remote, ok := fc.get(p.ID)
	require.True(t, ok)
	assert.Equal(t, "c", remote.Content)

	status, pending := svc.Status()
	assert.Equal(t, models.SyncSynced, status.State)
	assert.Zero(t, pending)
}

func TestPromptService_FullSyncDownloads(t *testing.T) {
	ctx := context.Background()
	fc := &fakeClient{}
	svc := newPromptService(t, fc)

	fc.mu.Lock()
	fc.store(models.Prompt{ID: "r1", Title: "remote", CreatedAt: 1, UpdatedAt: 1, IsActive: true})
	fc.mu.Unlock()

	stats, err := svc.FullSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Downloaded)

	got, err := svc.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "remote", got.Title)
}

func TestPromptService_Tier(t *testing.T) {
	ctx := context.Background()
	fc := &fakeClient{TierRet: models.TierFree}
	svc := newPromptService(t, fc)

	tier, err := svc.Tier(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TierFree, tier)

	tier, err = svc.SetTier(ctx, models.TierPro)
	require.NoError(t, err)
	assert.Equal(t, models.TierPro, tier)
	assert.Equal(t, models.TierPro, fc.LastTier)
}

func TestPromptService_Export(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/archive.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"p1"}]`))
	}))
	defer ts.Close()

	t.Run("downloads archive", func(t *testing.T) {
		fc := &fakeClient{ExportURL: ts.URL + "/archive.json", ExportCount: 1}
		svc := newPromptService(t, fc)
		svc.(*promptService).now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }

		dir := t.TempDir()
		path, count, err := svc.Export(context.Background(), dir)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Equal(t, filepath.Join(dir, "prompts-20250304-050607.json"), path)

		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"p1"}]`, string(b))
	})

	t.Run("remote failure", func(t *testing.T) {
		fc := &fakeClient{ExportErr: client.ErrUnavailable}
		svc := newPromptService(t, fc)

		_, _, err := svc.Export(context.Background(), t.TempDir())
		require.ErrorIs(t, err, client.ErrUnavailable)
		assert.True(t, strings.HasPrefix(err.Error(), "export error:"))
	})

	t.Run("download failure", func(t *testing.T) {
		fc := &fakeClient{ExportURL: ts.URL + "/gone.json"}
		svc := newPromptService(t, fc)

		dir := t.TempDir()
		_, _, err := svc.Export(context.Background(), dir)
		require.Error(t, err)
		assert.False(t, errors.Is(err, client.ErrUnavailable))
		assert.True(t, strings.HasPrefix(err.Error(), "download error:"))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
