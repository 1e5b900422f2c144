// Package prompts is the client's local record store: every prompt the
// device knows about, including soft-deleted ones, persisted in SQLite.
//
// Writes complete before returning and then emit a notification carrying the
// final record state, so UI views never observe a write that was not stored.
//
//	store := prompts.NewSQLiteRepository(db, bus)
//	_ = store.Put(ctx, p)
//	all, _ := store.GetAll(ctx)
//	tomb, _ := store.SoftDelete(ctx, p.ID)
package prompts
