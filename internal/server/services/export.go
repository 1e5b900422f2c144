package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/promptkeeper/internal/server/models"
	"github.com/dmitrijs2005/promptkeeper/internal/server/repositories/repomanager"
)

// ObjectStore keeps export archives.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Archive is the JSON document written for an export.
type Archive struct {
	UserID     string          `json:"userId"`
	Tier       string          `json:"tier"`
	ExportedAt time.Time       `json:"exportedAt"`
	Prompts    []ArchivePrompt `json:"prompts"`
}

type ArchivePrompt struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
	UseCount  int64    `json:"useCount"`
	LastUsed  int64    `json:"lastUsed,omitempty"`
	IsActive  bool     `json:"isActive"`
	Locked    bool     `json:"locked"`
	SourceURL string   `json:"sourceUrl,omitempty"`
	Tags      []string `json:"tags"`
}

type ExportResult struct {
	Key   string
	URL   string
	Count int
}

// ExportService writes a snapshot of an account's prompts to object
// storage and returns a time-limited download link.
type ExportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       ObjectStore
	linkTTL     time.Duration
	now         func() time.Time
}

func NewExportService(db *sql.DB, m repomanager.RepositoryManager, store ObjectStore, linkTTL time.Duration) *ExportService {
	return &ExportService{db: db, repomanager: m, store: store, linkTTL: linkTTL, now: time.Now}
}

// ExportKey names the archive object of userID created at t.
func ExportKey(userID string, t time.Time) string {
	return fmt.Sprintf("exports/%s/%s/%s.json", userID, t.UTC().Format("2006/01/02"), uuid.NewString())
}

func (s *ExportService) Export(ctx context.Context, userID string) (*ExportResult, error) {
	var (
		items []*models.Prompt
		tier  string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.repomanager.Prompts(s.db).ListAll(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		tier, err = s.repomanager.Users(s.db).GetTier(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("error reading prompts for export: %w", err)
	}

	now := s.now()
	archive := Archive{UserID: userID, Tier: tier, ExportedAt: now.UTC(), Prompts: make([]ArchivePrompt, 0, len(items))}
	for _, p := range items {
		tags := p.Tags
		if tags == nil {
			tags = []string{}
		}
		archive.Prompts = append(archive.Prompts, ArchivePrompt{
			ID: p.ID, Title: p.Title, Content: p.Content,
			CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
			UseCount: p.UseCount, LastUsed: p.LastUsed,
			IsActive: p.IsActive, Locked: p.Locked,
			SourceURL: p.SourceURL, Tags: tags,
		})
	}

	body, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("error encoding export: %w", err)
	}

	key := ExportKey(userID, now)
	if err := s.store.Put(ctx, key, body, "application/json"); err != nil {
		return nil, fmt.Errorf("error uploading export: %w", err)
	}
	url, err := s.store.PresignGet(ctx, key, s.linkTTL)
	if err != nil {
		return nil, fmt.Errorf("error signing export link: %w", err)
	}

	return &ExportResult{Key: key, URL: url, Count: len(archive.Prompts)}, nil
}
