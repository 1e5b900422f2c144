package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	List(ctx context.Context) error
	Show(ctx context.Context) error
	Add(ctx context.Context) error
	Edit(ctx context.Context) error
	Use(ctx context.Context) error
	Delete(ctx context.Context) error
	Sync(ctx context.Context) error
	FullSync(ctx context.Context) error
	Status(ctx context.Context) error
	Tier(ctx context.Context) error
	Export(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the PromptKeeper CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help          : show available commands
//	  - register      : create an account
//	  - login         : authenticate
//	  - exit | quit   : leave the program
//
//	Logged in:
//	  - help          : show available commands
//	  - l | list      : list prompts
//	  - show          : show a single prompt
//	  - add           : add a prompt
//	  - edit          : edit a prompt
//	  - use           : print a prompt and count the use
//	  - delete        : delete a prompt
//	  - sync          : incremental (or, when stale, full) sync
//	  - fullsync      : full reconciliation with the server
//	  - status        : connection and sync status
//	  - tier          : show or change the membership tier
//	  - export        : download an archive of all prompts
//	  - logout        : log out
//	  - exit | quit   : leave the program
//
// Commands other than register, login and exit require a session.
// Any errors returned by command handlers are ignored here; handlers report
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	sessionCommands := map[string]func(context.Context) error{
		"l":        a.List,
		"list":     a.List,
		"show":     a.Show,
		"add":      a.Add,
		"edit":     a.Edit,
		"use":      a.Use,
		"delete":   a.Delete,
		"sync":     a.Sync,
		"fullsync": a.FullSync,
		"status":   a.Status,
		"tier":     a.Tier,
		"export":   a.Export,
		"logout":   a.Logout,
	}

	for {
		printlnFn(fmt.Sprintf("pk %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, show, add, edit, use, delete, sync, fullsync, status, tier, export, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}
			continue

		case "register":
			_ = a.Register(ctx)
			continue

		case "login":
			_ = a.Login(ctx)
			continue

		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		fn, ok := sessionCommands[cmd]
		switch {
		case !ok:
			printlnFn("Unknown command:", cmd)
		case !a.isLoggedIn():
			printlnFn("Please login first")
		default:
			_ = fn(ctx)
		}
	}
}
