// Package server assembles and runs the PromptSync server: PostgreSQL
// storage with migrations, the S3 export store, the in-memory change
// brokers and the gRPC endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/promptkeeper/internal/logging"
	"github.com/dmitrijs2005/promptkeeper/internal/server/broker"
	"github.com/dmitrijs2005/promptkeeper/internal/server/config"
	"github.com/dmitrijs2005/promptkeeper/internal/server/models"
	"github.com/dmitrijs2005/promptkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/promptkeeper/internal/server/services"
	"github.com/dmitrijs2005/promptkeeper/internal/server/storage"

	gs "github.com/dmitrijs2005/promptkeeper/internal/server/grpc"
)

// Seams for tests.
var (
	openDB         = func(dsn string) (*sql.DB, error) { return sql.Open("pgx", dsn) }
	newRepoManager = repomanager.NewPostgresRepositoryManager
	newObjectStore = func(ctx context.Context, c *config.Config) (objectStore, error) {
		return storage.NewS3Store(ctx, c)
	}
)

type objectStore interface {
	services.ObjectStore
	EnsureBucket(ctx context.Context) error
}

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := newObjectStore(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("object store init error: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Warn(ctx, "export bucket is not available, exports will fail", "bucket", c.S3Bucket, "error", err)
	}

	changes := broker.New[models.Change](broker.DefaultBuffer)
	tiers := broker.New[string](broker.DefaultBuffer)

	srv := gs.NewGRPCServer(c.EndpointAddrGRPC, logger,
		services.NewUserService(db, rm, c),
		services.NewPromptService(db, rm, changes, logger),
		services.NewMembershipService(db, rm, tiers),
		services.NewExportService(db, rm, store, c.ExportLinkValidityDuration),
	)

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

// Run serves until ctx is cancelled and then closes the database.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...")

	var (
		wg     sync.WaitGroup
		runErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, "gRPC server stopped", "error", err)
			runErr = err
		}
	}()
	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
	return runErr
}
