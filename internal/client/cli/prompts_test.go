package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
	"github.com/dmitrijs2005/promptkeeper/internal/common"
)

type fakePrompts struct {
	listOut []models.Prompt
	listErr error

	getID  string
	getOut *models.Prompt
	getErr error

	added  []models.Prompt
	addErr error

	editID    string
	editPatch models.PromptPatch
	editErr   error

	usedID string
	useOut *models.Prompt

	deletedID string
	deleteErr error

	syncCalled     bool
	fullSyncCalled bool
	stats          models.SyncStats
	syncErr        error

	status  models.SyncStatus
	pending int

	tier    models.Tier
	setTier models.Tier
	tierErr error

	exportDir   string
	exportPath  string
	exportCount int
	exportErr   error
}

func (f *fakePrompts) List(context.Context) ([]models.Prompt, error) { return f.listOut, f.listErr }
func (f *fakePrompts) Get(_ context.Context, id string) (*models.Prompt, error) {
	f.getID = id
	return f.getOut, f.getErr
}
func (f *fakePrompts) Add(_ context.Context, draft models.Prompt) (*models.Prompt, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	f.added = append(f.added, draft)
	draft.ID = fmt.Sprintf("id-%d", len(f.added))
	return &draft, nil
}
func (f *fakePrompts) Edit(_ context.Context, id string, patch models.PromptPatch) (*models.Prompt, error) {
	f.editID, f.editPatch = id, patch
	if f.editErr != nil {
		return nil, f.editErr
	}
	return &models.Prompt{ID: id}, nil
}
func (f *fakePrompts) Use(_ context.Context, id string) (*models.Prompt, error) {
	f.usedID = id
	return f.useOut, nil
}
func (f *fakePrompts) Delete(_ context.Context, id string) error {
	f.deletedID = id
	return f.deleteErr
}
func (f *fakePrompts) Sync(context.Context) (models.SyncStats, error) {
	f.syncCalled = true
	return f.stats, f.syncErr
}
func (f *fakePrompts) FullSync(context.Context) (models.SyncStats, error) {
	f.fullSyncCalled = true
	return f.stats, f.syncErr
}
func (f *fakePrompts) Status() (models.SyncStatus, int) { return f.status, f.pending }
func (f *fakePrompts) Tier(context.Context) (models.Tier, error) {
	return f.tier, f.tierErr
}
func (f *fakePrompts) SetTier(_ context.Context, tier models.Tier) (models.Tier, error) {
	f.setTier = tier
	return tier, f.tierErr
}
func (f *fakePrompts) Export(_ context.Context, dir string) (string, int, error) {
	f.exportDir = dir
	return f.exportPath, f.exportCount, f.exportErr
}

func TestList(t *testing.T) {
	ps := &fakePrompts{listOut: []models.Prompt{
		{ID: "p1", Title: "Summarise", Tags: []string{"work"}, UseCount: 3},
		{ID: "p2", Title: "Translate", Locked: true},
	}}
	a, _, out := newTestApp(nil, ps)

	require.NoError(t, a.List(context.Background()))
	assert.Contains(t, out.String(), "p1")
	assert.Contains(t, out.String(), "Summarise")
	assert.Contains(t, out.String(), "Translate [locked]")
}

func TestList_Empty(t *testing.T) {
	a, _, out := newTestApp(nil, &fakePrompts{})
	require.NoError(t, a.List(context.Background()))
	assert.Contains(t, out.String(), "No prompts yet")
}

func TestAdd_CollectsFields(t *testing.T) {
	ps := &fakePrompts{}
	a, _, out := newTestApp(nil, ps,
		"Review",          // title
		"line one",        // content
		"line two",        // content
		"",                // end of content
		"https://x.test",  // source
		"code, review, ,", // tags
	)

	require.NoError(t, a.Add(context.Background()))
	require.Len(t, ps.added, 1)
	got := ps.added[0]
	assert.Equal(t, "Review", got.Title)
	assert.Equal(t, "line one\nline two", got.Content)
	assert.Equal(t, "https://x.test", got.SourceURL)
	assert.Equal(t, []string{"code", "review"}, got.Tags)
	assert.Contains(t, out.String(), "Saved id-1")
}

func TestAdd_ErrorIsReported(t *testing.T) {
	ps := &fakePrompts{addErr: fmt.Errorf("saving error: %w", common.ErrorInvalidInput)}
	a, _, out := newTestApp(nil, ps, "", "", "", "")

	require.ErrorIs(t, a.Add(context.Background()), common.ErrorInvalidInput)
	assert.Contains(t, out.String(), "Error:")
}

func TestEdit(t *testing.T) {
	t.Run("keeps empty answers", func(t *testing.T) {
		ps := &fakePrompts{}
		a, _, _ := newTestApp(nil, ps, "p1", "", "", "")

		require.NoError(t, a.Edit(context.Background()))
		assert.Equal(t, "p1", ps.editID)
		assert.Nil(t, ps.editPatch.Title)
		assert.Nil(t, ps.editPatch.Content)
		assert.False(t, ps.editPatch.SetTags)
	})

	t.Run("sets fields and clears tags", func(t *testing.T) {
		ps := &fakePrompts{}
		a, _, _ := newTestApp(nil, ps, "p1", "New", "body", "", "-")

		require.NoError(t, a.Edit(context.Background()))
		require.NotNil(t, ps.editPatch.Title)
		assert.Equal(t, "New", *ps.editPatch.Title)
		require.NotNil(t, ps.editPatch.Content)
		assert.Equal(t, "body", *ps.editPatch.Content)
		assert.True(t, ps.editPatch.SetTags)
		assert.Empty(t, ps.editPatch.Tags)
	})

	t.Run("locked prompt", func(t *testing.T) {
		ps := &fakePrompts{editErr: fmt.Errorf("error updating prompt: %w", common.ErrRecordLocked)}
		a, _, out := newTestApp(nil, ps, "p1", "New", "", "")

		require.ErrorIs(t, a.Edit(context.Background()), common.ErrRecordLocked)
		assert.Contains(t, out.String(), "locked")
	})

	t.Run("empty id", func(t *testing.T) {
		ps := &fakePrompts{}
		a, _, _ := newTestApp(nil, ps, "")

		require.ErrorIs(t, a.Edit(context.Background()), common.ErrorInvalidInput)
		assert.Empty(t, ps.editID)
	})
}

func TestShowUseDelete(t *testing.T) {
	ctx := context.Background()
	p := &models.Prompt{ID: "p1", Title: "T", Content: "Body", Tags: []string{"a"}, IsActive: true, LastUsed: 1700000000000}
	ps := &fakePrompts{getOut: p, useOut: p}
	a, _, out := newTestApp(nil, ps, "p1", "p1", "p1")

	require.NoError(t, a.Show(ctx))
	assert.Equal(t, "p1", ps.getID)
	assert.Contains(t, out.String(), "Title: T")
	assert.Contains(t, out.String(), "Body")

	require.NoError(t, a.Use(ctx))
	assert.Equal(t, "p1", ps.usedID)

	require.NoError(t, a.Delete(ctx))
	assert.Equal(t, "p1", ps.deletedID)
}

func TestShow_ErrorPropagates(t *testing.T) {
	ps := &fakePrompts{getErr: common.ErrorNotFound}
	a, _, _ := newTestApp(nil, ps, "nope")
	require.ErrorIs(t, a.Show(context.Background()), common.ErrorNotFound)
}

func TestSyncCommands(t *testing.T) {
	ps := &fakePrompts{stats: models.SyncStats{Uploaded: 2, Downloaded: 1, Conflicts: 1, Resolved: 1}}
	a, _, out := newTestApp(nil, ps)

	require.NoError(t, a.Sync(context.Background()))
	require.NoError(t, a.FullSync(context.Background()))
	assert.True(t, ps.syncCalled)
	assert.True(t, ps.fullSyncCalled)
	assert.Contains(t, out.String(), "Uploaded 2, downloaded 1, conflicts 1 (resolved 1)")
}

func TestSync_Offline(t *testing.T) {
	ps := &fakePrompts{syncErr: common.ErrOffline}
	a, _, out := newTestApp(nil, ps)

	require.ErrorIs(t, a.Sync(context.Background()), common.ErrOffline)
	assert.Contains(t, out.String(), "not connected")
}

func TestStatus(t *testing.T) {
	ps := &fakePrompts{
		status:  models.SyncStatus{State: models.SyncOffline, Message: "connection lost", Timestamp: time.Now()},
		pending: 3,
	}
	a, _, out := newTestApp(nil, ps)
	a.setMode(ModeOffline)

	require.NoError(t, a.Status(context.Background()))
	assert.Contains(t, out.String(), "Connection: offline")
	assert.Contains(t, out.String(), "Sync: offline: connection lost (3 pending)")
}

func TestTier(t *testing.T) {
	t.Run("show only", func(t *testing.T) {
		ps := &fakePrompts{tier: models.TierFree}
		a, _, out := newTestApp(nil, ps, "")

		require.NoError(t, a.Tier(context.Background()))
		assert.Contains(t, out.String(), "Current tier: free")
		assert.Empty(t, ps.setTier)
	})

	t.Run("upgrade", func(t *testing.T) {
		ps := &fakePrompts{tier: models.TierFree}
		a, _, out := newTestApp(nil, ps, "PRO")

		require.NoError(t, a.Tier(context.Background()))
		assert.Equal(t, models.TierPro, ps.setTier)
		assert.Contains(t, out.String(), "Tier changed to pro")
	})

	t.Run("unknown tier", func(t *testing.T) {
		ps := &fakePrompts{tier: models.TierFree}
		a, _, _ := newTestApp(nil, ps, "gold")

		require.ErrorIs(t, a.Tier(context.Background()), common.ErrorInvalidInput)
		assert.Empty(t, ps.setTier)
	})
}

func TestExport(t *testing.T) {
	ps := &fakePrompts{exportPath: "exports/prompts.json", exportCount: 4}
	a, _, out := newTestApp(nil, ps)

	require.NoError(t, a.Export(context.Background()))
	assert.Equal(t, exportDir, ps.exportDir)
	assert.Contains(t, out.String(), "Exported 4 prompts to exports/prompts.json")

	ps.exportErr = errors.New("export error: unavailable")
	require.Error(t, a.Export(context.Background()))
}
