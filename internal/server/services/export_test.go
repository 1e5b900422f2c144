package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dmitrijs2005/promptkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	key         string
	body        []byte
	contentType string
	ttl         time.Duration
	putErr      error
	signErr     error
}

func (f *fakeStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	f.key, f.body, f.contentType = key, body, contentType
	return f.putErr
}

func (f *fakeStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	f.ttl = ttl
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://s3/" + key, nil
}

func newExportService(t *testing.T, store *fakeStore) (*ExportService, *fakePromptsRepo, *fakeUsersRepo) {
	t.Helper()
	db, _ := newSQLMockDB(t)
	prompts := newFakePromptsRepo()
	users := &fakeUsersRepo{tiers: map[string]string{"u1": models.TierPro}}
	s := NewExportService(db, &fakeRepoManager{u: users, p: prompts}, store, 10*time.Minute)
	s.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }
	return s, prompts, users
}

func TestExport(t *testing.T) {
	store := &fakeStore{}
	s, prompts, _ := newExportService(t, store)
	ctx := context.Background()

	_, _, err := prompts.Upsert(ctx, &models.Prompt{UserID: "u1", ID: "p1", Title: "a", UpdatedAt: 1, IsActive: true, Tags: []string{"x"}})
	require.NoError(t, err)
	_, _, err = prompts.Upsert(ctx, &models.Prompt{UserID: "u1", ID: "p2", Title: "b", UpdatedAt: 2})
	require.NoError(t, err)
	_, _, err = prompts.Upsert(ctx, &models.Prompt{UserID: "u2", ID: "p3", UpdatedAt: 2})
	require.NoError(t, err)

	res, err := s.Export(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Regexp(t, `^exports/u1/2025/03/04/[0-9a-f-]{36}\.json$`, res.Key)
	assert.Equal(t, "https://s3/"+res.Key, res.URL)
	assert.Equal(t, 10*time.Minute, store.ttl)
	assert.Equal(t, "application/json", store.contentType)

	var archive Archive
	require.NoError(t, json.Unmarshal(store.body, &archive))
	assert.Equal(t, "u1", archive.UserID)
	assert.Equal(t, models.TierPro, archive.Tier)
	require.Len(t, archive.Prompts, 2)
	for _, p := range archive.Prompts {
		assert.NotNil(t, p.Tags)
	}
}

func TestExport_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("read failure", func(t *testing.T) {
		s, prompts, _ := newExportService(t, &fakeStore{})
		prompts.listErr = errBoom{}
		_, err := s.Export(ctx, "u1")
		require.ErrorContains(t, err, "error reading prompts for export")
	})

	t.Run("unknown user", func(t *testing.T) {
		s, _, _ := newExportService(t, &fakeStore{})
		_, err := s.Export(ctx, "ghost")
		require.ErrorContains(t, err, "error reading prompts for export")
	})

	t.Run("upload failure", func(t *testing.T) {
		s, _, _ := newExportService(t, &fakeStore{putErr: errBoom{}})
		_, err := s.Export(ctx, "u1")
		require.ErrorContains(t, err, "error uploading export: boom")
	})

	t.Run("sign failure", func(t *testing.T) {
		s, _, _ := newExportService(t, &fakeStore{signErr: errBoom{}})
		_, err := s.Export(ctx, "u1")
		require.ErrorContains(t, err, "error signing export link: boom")
	})
}
