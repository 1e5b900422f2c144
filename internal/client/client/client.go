package client

import (
	"context"

	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
)

// Client is the full remote API used by the CLI: account operations on top
// of the record operations the sync engine needs.
type Client interface {
	Close() error
	Register(ctx context.Context, username string, salt []byte, verifier []byte) error
	GetSalt(ctx context.Context, username string) ([]byte, error)
	// Login authenticates and returns the account id.
	Login(ctx context.Context, username string, verifier []byte) (string, error)
	Logout()
	Ping(ctx context.Context) error

	ListActive(ctx context.Context) ([]models.Prompt, error)
	ListUpdatedSince(ctx context.Context, since int64) ([]models.Prompt, error)
	Upsert(ctx context.Context, p models.Prompt) error
	SoftDelete(ctx context.Context, id string, updatedAt int64) error
	CommitBatch(ctx context.Context, ops []models.BatchOp) error
	Purge(ctx context.Context, id string) error
	Watch(ctx context.Context) (<-chan models.Change, error)

	GetMembership(ctx context.Context) (models.Tier, error)
	SetMembership(ctx context.Context, tier models.Tier) (models.Tier, error)
	WatchMembership(ctx context.Context) (<-chan models.Tier, error)

	// Export archives the account's prompts and returns a download URL.
	Export(ctx context.Context) (string, int, error)
}
