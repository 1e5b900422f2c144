package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/promptkeeper/internal/client/client"
	"github.com/dmitrijs2005/promptkeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts the user for an email and password and attempts to create
// a new account via the AuthService.
//
// On success it prints "Success!" and returns nil. The password byte slice
// is securely wiped before returning. Any I/O or service error is returned
// unchanged.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter email", a.output())
	if err != nil {
		return err
	}

	password, err := getPassword(a.output())
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Register(ctx, userName, password); err != nil {
		a.println("Registration failed:", err.Error())
		return err
	}

	a.println("Success!")
	return nil
}

// Login prompts the user for credentials and starts a sync session.
//
// The method first attempts an online login. If the server is unavailable
// (errors.Is(err, client.ErrUnavailable)), it falls back to offline login,
// which opens the local prompts without syncing. Mode ends up as:
//   - ModeOnline if online login succeeds,
//   - ModeOffline if offline login succeeds,
//   - ModeDisabled if both fail.
//
// A session that is already running is ended first. The password is wiped
// before returning.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter email", a.output())
	if err != nil {
		return err
	}

	password, err := getPassword(a.output())
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if a.isLoggedIn() {
		a.endSession()
	}

	userID, err := a.authService.OnlineLogin(ctx, userName, password)
	if err == nil {
		a.println("Login successful")
		a.setUser(userName, userID, true)
		a.setMode(ModeOnline)
		a.session.SetOnline(ctx, true)
		return a.startSession(ctx, userID)
	}

	if !errors.Is(err, client.ErrUnavailable) {
		a.println("Login unsuccessful:", err.Error())
		return err
	}

	a.println("Server unavailable, trying offline login...")
	userID, err = a.authService.OfflineLogin(ctx, userName, password)
	if err != nil {
		a.println("Offline login unsuccessful:", err.Error())
		a.setMode(ModeDisabled)
		return err
	}

	a.println("Offline login successful, changes will sync after the next online login")
	a.setUser(userName, userID, false)
	a.setMode(ModeOffline)
	a.session.SetOnline(ctx, false)
	return a.startSession(ctx, userID)
}

func (a *App) startSession(ctx context.Context, userID string) error {
	if err := a.session.Initialize(ctx, userID); err != nil {
		a.logger.Error(ctx, "failed to start sync session", "error", err)
		a.setUser("", "", false)
		return err
	}
	return nil
}

func (a *App) endSession() {
	a.session.Cleanup()
	a.setUser("", "", false)
}

// Logout ends the sync session and forgets the cached credentials.
// Local prompts and queued changes are kept for the next login.
func (a *App) Logout(ctx context.Context) error {
	a.endSession()
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.println("Logged out")
	return nil
}
