package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/promptkeeper/internal/dbx"
	"github.com/dmitrijs2005/promptkeeper/internal/server/repositories/prompts"
	"github.com/dmitrijs2005/promptkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/promptkeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a *sql.DB or to a running
// transaction, so services can compose several writes atomically.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Prompts(db dbx.DBTX) prompts.Repository
}
