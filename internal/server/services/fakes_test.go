package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/promptkeeper/internal/common"
	"github.com/dmitrijs2005/promptkeeper/internal/dbx"
	"github.com/dmitrijs2005/promptkeeper/internal/server/models"
	"github.com/dmitrijs2005/promptkeeper/internal/server/repositories/prompts"
	"github.com/dmitrijs2005/promptkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/promptkeeper/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	getOut *models.User
	getErr error

	mu      sync.Mutex
	tiers   map[string]string
	tierErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOut, nil
}

func (f *fakeUsersRepo) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeUsersRepo) GetTier(ctx context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tierErr != nil {
		return "", f.tierErr
	}
	tier, ok := f.tiers[userID]
	if !ok {
		return "", common.ErrorNotFound
	}
	return tier, nil
}

func (f *fakeUsersRepo) SetTier(ctx context.Context, userID, tier string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tierErr != nil {
		return f.tierErr
	}
	if _, ok := f.tiers[userID]; !ok {
		return common.ErrorNotFound
	}
	f.tiers[userID] = tier
	return nil
}

type fakeRefreshRepo struct {
	consumeOut *models.RefreshToken
	consumeErr error

	createErr error
	expireErr error

	created  []*models.RefreshToken
	consumed []string
	expired  []string
}

func (f *fakeRefreshRepo) Create(ctx context.Context, t *models.RefreshToken) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, t)
	return nil
}

func (f *fakeRefreshRepo) Consume(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	f.consumed = append(f.consumed, token)
	return f.consumeOut, nil
}

func (f *fakeRefreshRepo) DeleteExpired(ctx context.Context, userID string, now time.Time) (int64, error) {
	if f.expireErr != nil {
		return 0, f.expireErr
	}
	f.expired = append(f.expired, userID)
	return 0, nil
}

// fakePromptsRepo is an in-memory last-write-wins store.
type fakePromptsRepo struct {
	mu      sync.Mutex
	rows    map[string]models.Prompt
	failIDs map[string]error
	listErr error
}

func newFakePromptsRepo() *fakePromptsRepo {
	return &fakePromptsRepo{rows: map[string]models.Prompt{}, failIDs: map[string]error{}}
}

func rowKey(userID, id string) string { return userID + "/" + id }

func (f *fakePromptsRepo) Upsert(ctx context.Context, p *models.Prompt) (*models.Prompt, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failIDs[p.ID]; err != nil {
		return nil, false, err
	}
	cur, ok := f.rows[rowKey(p.UserID, p.ID)]
	if ok && cur.UpdatedAt > p.UpdatedAt {
		return nil, false, nil
	}
	f.rows[rowKey(p.UserID, p.ID)] = *p
	stored := *p
	return &stored, !ok, nil
}

func (f *fakePromptsRepo) update(userID, id string, updatedAt int64, apply func(*models.Prompt)) (*models.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failIDs[id]; err != nil {
		return nil, err
	}
	cur, ok := f.rows[rowKey(userID, id)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if cur.UpdatedAt > updatedAt {
		return nil, nil
	}
	apply(&cur)
	cur.UpdatedAt = updatedAt
	f.rows[rowKey(userID, id)] = cur
	return &cur, nil
}

func (f *fakePromptsRepo) SoftDelete(ctx context.Context, userID, id string, updatedAt int64) (*models.Prompt, error) {
	return f.update(userID, id, updatedAt, func(p *models.Prompt) { p.IsActive = false })
}

func (f *fakePromptsRepo) SetLocked(ctx context.Context, userID, id string, locked bool, updatedAt int64) (*models.Prompt, error) {
	return f.update(userID, id, updatedAt, func(p *models.Prompt) { p.Locked = locked })
}

func (f *fakePromptsRepo) Get(ctx context.Context, userID, id string) (*models.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.rows[rowKey(userID, id)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &cur, nil
}

func (f *fakePromptsRepo) filter(userID string, keep func(models.Prompt) bool) ([]*models.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*models.Prompt, 0)
	for _, p := range f.rows {
		if p.UserID == userID && keep(p) {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

func (f *fakePromptsRepo) ListActive(ctx context.Context, userID string) ([]*models.Prompt, error) {
	return f.filter(userID, func(p models.Prompt) bool { return p.IsActive })
}

func (f *fakePromptsRepo) ListUpdatedSince(ctx context.Context, userID string, since int64) ([]*models.Prompt, error) {
	return f.filter(userID, func(p models.Prompt) bool { return p.UpdatedAt > since })
}

func (f *fakePromptsRepo) ListAll(ctx context.Context, userID string) ([]*models.Prompt, error) {
	return f.filter(userID, func(models.Prompt) bool { return true })
}

func (f *fakePromptsRepo) Purge(ctx context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[rowKey(userID, id)]; !ok {
		return common.ErrorNotFound
	}
	delete(f.rows, rowKey(userID, id))
	return nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	p *fakePromptsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error       { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Prompts(db dbx.DBTX) prompts.Repository             { return m.p }
