package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/promptkeeper/internal/client/client"
	"github.com/dmitrijs2005/promptkeeper/internal/client/config"
	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
	"github.com/dmitrijs2005/promptkeeper/internal/client/notify"
	"github.com/dmitrijs2005/promptkeeper/internal/client/policy"
	"github.com/dmitrijs2005/promptkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/promptkeeper/internal/client/repositories/prompts"
	"github.com/dmitrijs2005/promptkeeper/internal/client/services"
	"github.com/dmitrijs2005/promptkeeper/internal/client/syncer"
	"github.com/dmitrijs2005/promptkeeper/internal/logging"

	_ "modernc.org/sqlite"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

// Session is the part of the sync engine whose lifecycle the CLI drives.
type Session interface {
	Initialize(ctx context.Context, userID string) error
	Cleanup()
	SetOnline(ctx context.Context, online bool)
}

type App struct {
	config        *config.Config
	authService   services.AuthService
	promptService services.PromptService
	session       Session
	logger        logging.Logger
	reader        *bufio.Reader
	out           io.Writer
	shutdown      func(ctx context.Context)

	mu       sync.Mutex
	Mode     Mode
	userName string
	userID   string
	// authenticated is set only by an online login; an offline session
	// has no tokens and cannot sync until the user logs in again.
	authenticated bool
}

// NewApp opens the local database, connects to the server and assembles the
// sync engine with its notification bus, websocket hub and locking policy
// worker.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	bus := notify.NewBus(logger.With("module", "notify"))

	var hub *notify.Hub
	if c.NotifyAddr != "" {
		hub = notify.NewHub(c.NotifyAddr, logger.With("module", "hub"))
		if err := hub.Start(); err != nil {
			_ = apiClient.Close()
			_ = db.Close()
			return nil, err
		}
		bus.Subscribe(hub.Publish)
	}

	engine := syncer.New(
		prompts.NewSQLiteRepository(db, bus),
		metadata.NewSQLiteRepository(db),
		apiClient,
		syncer.WithConfig(syncer.Config{
			DebounceInterval: c.DebounceInterval,
			FullSyncMaxAge:   c.FullSyncMaxAge,
		}),
		syncer.WithLogger(logger),
		syncer.WithNotifier(bus),
		syncer.WithChangeWatcher(apiClient),
		syncer.WithWorker(policy.New(apiClient, apiClient, logger)),
	)
	engine.OnStatusChange(bus.StatusChanged)

	app := &App{
		config:        c,
		authService:   services.NewAuthService(apiClient, db, logger),
		promptService: services.NewPromptService(engine, apiClient, nil),
		session:       engine,
		logger:        logger.With("module", "cli"),
		reader:        bufio.NewReader(os.Stdin),
		out:           os.Stdout,
	}

	app.shutdown = func(ctx context.Context) {
		engine.Cleanup()
		if hub != nil {
			if err := hub.Stop(ctx); err != nil {
				logger.Warn(ctx, "notification hub shutdown", "error", err)
			}
		}
		_ = apiClient.Close()
		_ = db.Close()
	}
	return app, nil
}

func (a *App) Run(ctx context.Context) {
	defer func() {
		if a.shutdown != nil {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			a.shutdown(shutdownCtx)
		}
	}()
	a.Root(ctx)
}

func (a *App) mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Mode
}

// setMode records the connectivity mode and tells the user about changes.
// It reports whether the mode actually changed.
func (a *App) setMode(mode Mode) bool {
	a.mu.Lock()
	changed := a.Mode != mode
	a.Mode = mode
	a.mu.Unlock()

	if changed {
		a.println(fmt.Sprintf("Switched to %s mode", mode))
	}
	return changed
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.userID != ""
}

func (a *App) isAuthenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authenticated
}

func (a *App) setUser(userName, userID string, authenticated bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userName = userName
	a.userID = userID
	a.authenticated = authenticated
}

// StartOnlineStatusWatcher pings the server every interval and feeds the
// result into the connectivity mode and, for an online session, into the
// sync engine.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.authService.Ping(pingCtx)
	cancel()

	online := err == nil
	mode := ModeOffline
	if online {
		mode = ModeOnline
	}
	if !a.setMode(mode) {
		return
	}

	switch {
	case a.isAuthenticated():
		a.session.SetOnline(ctx, online)
	case online && a.isLoggedIn():
		a.println("Server is reachable again, log in to resume syncing")
	}
}

// statusLine renders the status for the prompt and the status command.
func statusLine(s models.SyncStatus, pending int) string {
	line := string(s.State)
	if s.Message != "" {
		line += ": " + s.Message
	}
	if pending > 0 {
		line += fmt.Sprintf(" (%d pending)", pending)
	}
	return line
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.output(), args...)
}

func (a *App) output() io.Writer {
	if a.out == nil {
		return os.Stdout
	}
	return a.out
}
