// Package cli provides the interactive PromptKeeper command-line client.
//
// It wires configuration, the local SQLite store, the sync engine, the
// websocket notification hub and an interactive REPL that supports
// online/offline operation. Typical flow: prompt for credentials, start a
// background connectivity watcher, and execute user commands.
//
// Key features:
//   - Login / Logout (online with offline fallback)
//   - Add, edit, use and delete prompts (local first, synced in the background)
//   - List / Show prompts
//   - Incremental and full sync, sync status
//   - Membership tier and export
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
