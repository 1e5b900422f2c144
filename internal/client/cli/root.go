package cli

import (
	"bufio"
	"context"
	"fmt"
)

// getStatus renders the REPL prompt suffix: "(user mode)".
func (a *App) getStatus() string {
	a.mu.Lock()
	userName, mode := a.userName, a.Mode
	a.mu.Unlock()

	s := ""
	if userName != "" {
		s = userName + " "
	}
	if mode != "" {
		s = s + string(mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root greets the user, asks for a login, starts the connectivity watcher
// and runs the REPL until the user exits.
func (a *App) Root(ctx context.Context) {
	a.println("Welcome to PromptKeeper CLI (type 'help' for commands)")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	_ = a.Login(ctx)

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	// Commands read their answers from the same reader; terminal input
	// arrives line by line so the scanner never buffers past one command.
	scanner := bufio.NewScanner(a.reader)
	runREPL(ctx, a, a.getStatus, scanner)
}
