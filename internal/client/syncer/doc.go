// Package syncer is the local-first synchronization engine.
//
// Every user mutation is committed to the local record store first, queued
// as a pending operation and then pushed to the remote authority on a short
// per-record debounce. Full and incremental syncs reconcile the two sides
// with whole-record last-write-wins (see package conflict), and a listener
// applies the remote change feed while a session is active.
//
// Lifecycle:
//
//	eng := syncer.New(store, meta, remote, syncer.WithChangeWatcher(cl))
//	_ = eng.Initialize(ctx, userID) // loads the queue, starts the listener, runs a full sync
//	p, _ := eng.Create(ctx, models.Prompt{Title: "t", Content: "c"})
//	eng.SetOnline(ctx, false)       // writes keep working and stay queued
//	eng.Cleanup()
package syncer
