// Package refreshtokens stores the rotating refresh tokens handed out at login.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/promptkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, t *models.RefreshToken) error

	// Consume removes the token and returns what it was. A token can be
	// consumed once; a second attempt yields common.ErrorNotFound.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)

	// DeleteExpired drops the user's tokens that expired before now.
	DeleteExpired(ctx context.Context, userID string, now time.Time) (int64, error)
}
