// Package users stores accounts: login material and the membership tier.
package users

import (
	"context"

	"github.com/dmitrijs2005/promptkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetTier(ctx context.Context, userID string) (string, error)
	SetTier(ctx context.Context, userID string, tier string) error
}
