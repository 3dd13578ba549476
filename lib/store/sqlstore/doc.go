// Package sqlstore implements a durable store.IPropertyStore on top of SQLite,
// using the pure-Go modernc.org/sqlite driver (no cgo required).
//
// All properties live in a single table:
//
//	properties(key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at INTEGER NOT NULL)
//
// Writes are upserts, so replacing a property is a single atomic statement. File
// backed databases run in WAL mode with a busy timeout; ":memory:" databases are
// pinned to one connection because every SQLite connection would otherwise open its
// own private in-memory database.
//
// Failed writes are reported as store.Error with code RetCStorageWrite, failed reads
// with RetCInternalError.
package sqlstore
