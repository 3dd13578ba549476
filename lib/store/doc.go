// Package store defines the property storage that named databases are persisted to,
// together with the error taxonomy shared by all propdb packages.
//
// The package focuses on:
//   - A narrow interface (IPropertyStore) for a host-provided string property store
//   - A structured error type (*Error) with typed return codes
//
// Key Components:
//
//   - IPropertyStore Interface: read, write and clear named string properties. Writes are
//     atomic and synchronous; a failed write leaves the previous value untouched and is
//     reported with the RetCStorageWrite code. Keys lists the properties under a prefix,
//     which is how persisted databases are discovered.
//
//   - Error System: every error produced by propdb is an *Error carrying a RetCode
//     (CorruptData, StorageWrite, KeyNotFound, Evicted, ...). The exported sentinels
//     (ErrCorruptData, ErrStorageWrite, ...) make errors.Is work across wrapping.
//
//   - StoreFactory: a function type that creates IPropertyStore instances, used to
//     run the same tests and commands against different backends.
//
// Implementations:
//
//	- Local Store (lstore): a map-backed, in-memory store with optional size quotas that
//	  mimic the host's capacity limits. Data does not survive a restart.
//	  Available in the "github.com/ValentinKolb/propdb/lib/store/lstore" package.
//
//	- SQLite Store (sqlstore): a durable store backed by a single SQLite table, using the
//	  pure-Go modernc.org/sqlite driver.
//	  Available in the "github.com/ValentinKolb/propdb/lib/store/sqlstore" package.
//
// The testing package (github.com/ValentinKolb/propdb/lib/store/testing) provides a
// conformance suite every implementation runs.
package store
