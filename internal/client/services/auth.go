// Package services contains application services for the PromptKeeper
// client. This file defines the authentication service: online/offline
// login, register, liveness probe and housekeeping of the cached
// credentials and of the local data that belongs to an account.
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/promptkeeper/internal/client/client"
	"github.com/dmitrijs2005/promptkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/promptkeeper/internal/client/repositories/prompts"
	"github.com/dmitrijs2005/promptkeeper/internal/cryptox"
	"github.com/dmitrijs2005/promptkeeper/internal/dbx"
	"github.com/dmitrijs2005/promptkeeper/internal/logging"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - OnlineLogin: authenticate against the server and cache the credentials
//     needed for offline login. Returns the account id.
//   - OfflineLogin: verify credentials against the local cache. Returns the
//     cached account id.
//   - Register: create a new account on the server.
//   - Ping: check server liveness.
//   - Logout: forget the session and the cached credentials. Prompts and
//     the pending queue stay so that a later login resumes syncing them.
//   - Close: release underlying client resources.
type AuthService interface {
	OfflineLogin(ctx context.Context, username string, password []byte) (string, error)
	OnlineLogin(ctx context.Context, username string, password []byte) (string, error)
	Register(ctx context.Context, username string, password []byte) error
	Ping(ctx context.Context) error
	Logout(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
	logger logging.Logger
}

// NewAuthService constructs an AuthService bound to the given API client and DB.
func NewAuthService(client client.Client, db *sql.DB, logger logging.Logger) AuthService {
	return &authService{client: client, db: db, logger: logger.With("module", "auth")}
}

func (a *authService) getMetadataRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(a.db)
}

// OfflineLogin derives the master key from the password and the cached
// salt and compares its verifier with the cached one. Missing cache data
// yields client.ErrLocalDataNotAvailable, a mismatch client.ErrUnauthorized.
func (a *authService) OfflineLogin(ctx context.Context, username string, password []byte) (string, error) {
	repo := a.getMetadataRepo()

	cached := make(map[string][]byte, 4)
	for _, key := range []string{metadata.KeyUsername, metadata.KeyUserID, metadata.KeySalt, metadata.KeyVerifier} {
		v, err := repo.Get(ctx, key)
		if err != nil {
			return "", err
		}
		if v == nil {
			return "", client.ErrLocalDataNotAvailable
		}
		cached[key] = v
	}

	if string(cached[metadata.KeyUsername]) != username {
		return "", client.ErrUnauthorized
	}

	masterKeyCandidate := cryptox.DeriveMasterKey(password, cached[metadata.KeySalt])
	verifierCandidate := cryptox.MakeVerifier(masterKeyCandidate)

	if !cryptox.VerifierEqual(cached[metadata.KeyVerifier], verifierCandidate) {
		return "", client.ErrUnauthorized
	}
	return string(cached[metadata.KeyUserID]), nil
}

// OnlineLogin authenticates against the server and caches username, user
// id, salt and verifier for offline login. Logging in as a different
// account first wipes the local data of the previous one.
func (a *authService) OnlineLogin(ctx context.Context, userName string, password []byte) (string, error) {
	salt, err := a.client.GetSalt(ctx, userName)
	if err != nil {
		return "", fmt.Errorf("get salt error: %w", err)
	}

	masterKeyCandidate := cryptox.DeriveMasterKey(password, salt)
	verifierCandidate := cryptox.MakeVerifier(masterKeyCandidate)

	userID, err := a.client.Login(ctx, userName, verifierCandidate)
	if err != nil {
		return "", fmt.Errorf("login error: %w", err)
	}

	if err := a.wipeIfOtherAccount(ctx, userID); err != nil {
		return "", fmt.Errorf("local data reset error: %w", err)
	}

	if err := a.saveOfflineData(ctx, userName, userID, salt, verifierCandidate); err != nil {
		return "", fmt.Errorf("offline data saving error: %w", err)
	}
	return userID, nil
}

func (a *authService) wipeIfOtherAccount(ctx context.Context, userID string) error {
	repo := a.getMetadataRepo()
	prev, err := repo.Get(ctx, metadata.KeyUserID)
	if err != nil {
		return err
	}
	if prev == nil || string(prev) == userID {
		return nil
	}

	a.logger.Info(ctx, "another account logged in, wiping local data", "previous", string(prev), "current", userID)
	if err := prompts.NewSQLiteRepository(a.db, nil).DeleteAll(ctx); err != nil {
		return err
	}
	return repo.Clear(ctx)
}

// saveOfflineData persists the cached credentials in a single transaction.
func (a *authService) saveOfflineData(ctx context.Context, userName, userID string, salt []byte, verifier []byte) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, metadata.KeyUsername, []byte(userName)); err != nil {
			return err
		}
		if err := repo.Set(ctx, metadata.KeyUserID, []byte(userID)); err != nil {
			return err
		}
		if err := repo.Set(ctx, metadata.KeySalt, salt); err != nil {
			return err
		}
		return repo.Set(ctx, metadata.KeyVerifier, verifier)
	})
}

// Register creates a new account on the server. It generates a random salt,
// derives a master key from the provided password, computes a verifier,
// and sends salt/verifier to the server.
func (a *authService) Register(ctx context.Context, username string, password []byte) error {
	salt := cryptox.NewSalt()
	key := cryptox.DeriveMasterKey(password, salt)
	verifier := cryptox.MakeVerifier(key)

	return a.client.Register(ctx, username, salt, verifier)
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Logout(ctx context.Context) error {
	a.client.Logout()

	repo := a.getMetadataRepo()
	for _, key := range []string{metadata.KeySalt, metadata.KeyVerifier} {
		if err := repo.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
