// Package client contains the client-side transport and storage bootstrap
// of PromptKeeper.
//
// # Overview
//
// The package provides:
//  1. The Client interface: account calls (Register/GetSalt/Login/Logout),
//     liveness (Ping), the record operations used by the sync engine, the
//     live change and membership feeds, and Export.
//  2. GRPCClient, the gRPC implementation. It injects the access token into
//     unary and streaming calls, transparently refreshes an expired token
//     once per call, and maps gRPC status codes to sentinel errors.
//  3. InitDatabase and RunMigrations, which open the local SQLite database
//     and apply the embedded goose migrations.
//
// # Error Handling
//
// Callers match errors with errors.Is against ErrUnavailable,
// ErrUnauthorized, ErrNotFound and ErrLocalDataNotAvailable. ErrNotFound and
// ErrUnauthorized are the shared common sentinels, so the sync engine can
// treat a missing remote record on delete as success.
//
// # Streams
//
// Watch and WatchMembership return channels that close when the underlying
// stream ends. Reconnecting is the caller's job.
package client
