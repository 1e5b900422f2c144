// Package prompts stores every account's prompt records on the server.
//
// All writes are last-write-wins on updated_at: a write carrying an older
// timestamp than the stored row is ignored and reported as not applied.
package prompts

import (
	"context"

	"github.com/dmitrijs2005/promptkeeper/internal/server/models"
)

type Repository interface {
	// Upsert stores p unless a newer version is stored. inserted is true
	// when the row did not exist before.
	Upsert(ctx context.Context, p *models.Prompt) (stored *models.Prompt, inserted bool, err error)
	// SoftDelete marks the record inactive. It returns common.ErrorNotFound
	// for unknown ids and a nil record for stale writes.
	SoftDelete(ctx context.Context, userID, id string, updatedAt int64) (*models.Prompt, error)
	// SetLocked changes only the locked flag and updated_at, with the same
	// return contract as SoftDelete.
	SetLocked(ctx context.Context, userID, id string, locked bool, updatedAt int64) (*models.Prompt, error)
	Get(ctx context.Context, userID, id string) (*models.Prompt, error)
	ListActive(ctx context.Context, userID string) ([]*models.Prompt, error)
	ListUpdatedSince(ctx context.Context, userID string, since int64) ([]*models.Prompt, error)
	ListAll(ctx context.Context, userID string) ([]*models.Prompt, error)
	Purge(ctx context.Context, userID, id string) error
}
