// Package dedup persists which posts and users have already been handled.
//
// State holds two independent append-only sets. A Store loads the state at
// the start of a run and overwrites durable storage with the full state on
// every Flush, so flushing after each notification is safe and idempotent.
// FileStore keeps the sets in pretty-printed JSON arrays; SQLiteStore keeps
// them in two keyed tables.
//
// The ranked active-user snapshot is not dedup state but lives here too,
// since it shares the same atomic JSON writer.
package dedup
