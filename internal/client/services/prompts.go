package services

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/promptkeeper/internal/client/client"
	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
	"github.com/dmitrijs2005/promptkeeper/internal/filex"
	"github.com/dmitrijs2005/promptkeeper/internal/netx"
)

// Engine is the part of the sync engine the prompt service drives.
type Engine interface {
	List(ctx context.Context) ([]models.Prompt, error)
	Get(ctx context.Context, id string) (*models.Prompt, error)
	Create(ctx context.Context, draft models.Prompt) (*models.Prompt, error)
	Update(ctx context.Context, id string, patch models.PromptPatch) (*models.Prompt, error)
	MarkUsed(ctx context.Context, id string) (*models.Prompt, error)
	Delete(ctx context.Context, id string) error
	Sync(ctx context.Context) (models.SyncStats, error)
	FullSync(ctx context.Context) (models.SyncStats, error)
	Status() models.SyncStatus
	Pending() []models.PendingOperation
}

// PromptService is what the CLI needs to work with prompts: local-first
// CRUD through the sync engine plus the account-level remote operations.
type PromptService interface {
	List(ctx context.Context) ([]models.Prompt, error)
	Get(ctx context.Context, id string) (*models.Prompt, error)
	Add(ctx context.Context, draft models.Prompt) (*models.Prompt, error)
	Edit(ctx context.Context, id string, patch models.PromptPatch) (*models.Prompt, error)
	Use(ctx context.Context, id string) (*models.Prompt, error)
	Delete(ctx context.Context, id string) error
	Sync(ctx context.Context) (models.SyncStats, error)
	FullSync(ctx context.Context) (models.SyncStats, error)
	Status() (models.SyncStatus, int)
	Tier(ctx context.Context) (models.Tier, error)
	SetTier(ctx context.Context, tier models.Tier) (models.Tier, error)
	// Export asks the server for an archive and downloads it into dir.
	// It returns the local file path and the number of exported prompts.
	Export(ctx context.Context, dir string) (string, int, error)
}

type promptService struct {
	engine     Engine
	client     client.Client
	httpClient *http.Client
	now        func() time.Time
}

func NewPromptService(engine Engine, client client.Client, httpClient *http.Client) PromptService {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &promptService{engine: engine, client: client, httpClient: httpClient, now: time.Now}
}

func (s *promptService) List(ctx context.Context) ([]models.Prompt, error) {
	return s.engine.List(ctx)
}

func (s *promptService) Get(ctx context.Context, id string) (*models.Prompt, error) {
	return s.engine.Get(ctx, id)
}

func (s *promptService) Add(ctx context.Context, draft models.Prompt) (*models.Prompt, error) {
	p, err := s.engine.Create(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("saving error: %w", err)
	}
	return p, nil
}

func (s *promptService) Edit(ctx context.Context, id string, patch models.PromptPatch) (*models.Prompt, error) {
	p, err := s.engine.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("error updating prompt: %w", err)
	}
	return p, nil
}

func (s *promptService) Use(ctx context.Context, id string) (*models.Prompt, error) {
	return s.engine.MarkUsed(ctx, id)
}

func (s *promptService) Delete(ctx context.Context, id string) error {
	if err := s.engine.Delete(ctx, id); err != nil {
		return fmt.Errorf("error deleting prompt: %w", err)
	}
	return nil
}

func (s *promptService) Sync(ctx context.Context) (models.SyncStats, error) {
	return s.engine.Sync(ctx)
}

func (s *promptService) FullSync(ctx context.Context) (models.SyncStats, error) {
	return s.engine.FullSync(ctx)
}

// Status returns the sync status and the number of queued operations.
func (s *promptService) Status() (models.SyncStatus, int) {
	return s.engine.Status(), len(s.engine.Pending())
}

func (s *promptService) Tier(ctx context.Context) (models.Tier, error) {
	return s.client.GetMembership(ctx)
}

func (s *promptService) SetTier(ctx context.Context, tier models.Tier) (models.Tier, error) {
	return s.client.SetMembership(ctx, tier)
}

func (s *promptService) Export(ctx context.Context, dir string) (string, int, error) {
	url, count, err := s.client.Export(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("export error: %w", err)
	}

	target, err := filex.EnsureSubDir(dir)
	if err != nil {
		return "", 0, err
	}

	name := filex.SafeFileName(fmt.Sprintf("prompts-%s.json", s.now().UTC().Format("20060102-150405")))
	path := filepath.Join(target, name)
	if _, err := netx.DownloadToFile(ctx, s.httpClient, url, path); err != nil {
		return "", 0, fmt.Errorf("download error: %w", err)
	}
	return path, count, nil
}
