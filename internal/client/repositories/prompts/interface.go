package prompts

import (
	"context"

	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
)

// Repository is the local record store.
type Repository interface {
	// Get returns (nil, nil) when the id is unknown.
	Get(ctx context.Context, id string) (*models.Prompt, error)

	// GetAll returns every stored prompt, inactive ones included.
	GetAll(ctx context.Context) ([]models.Prompt, error)

	Put(ctx context.Context, p models.Prompt) error

	// PutMany writes all entries in one transaction.
	PutMany(ctx context.Context, batch map[string]models.Prompt) error

	// SoftDelete marks the prompt inactive and moves UpdatedAt forward. It
	// returns the stored tombstone, or common.ErrorNotFound.
	SoftDelete(ctx context.Context, id string) (*models.Prompt, error)
}
