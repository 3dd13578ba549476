// Package lstore implements a local, in-memory property store based on the
// store.IPropertyStore interface. Data is kept in a plain map guarded by a
// read-write mutex and is not persisted between process restarts.
//
// Key Features:
//   - Pure in-memory storage without persistence
//   - Optional size quotas (per value and in total) that reproduce the capacity
//     limits of the host property storage
//   - Fault injection (FailWrites) to exercise write-failure paths in tests
//   - Thread-safe operations for concurrent access
//
// Implementation Details:
//
//   - Quotas: a write is checked against MaxValueBytes before taking the lock and
//     against MaxTotalBytes while holding it. A rejected write returns a
//     store.Error with code RetCStorageWrite and leaves the old value in place,
//     exactly like the host storage does when its quota is exceeded.
//
//   - Sizes: the total size accounts for the bytes of keys and values. It is tracked
//     incrementally so a write never scans the whole map.
//
// Usage Example:
//
//	// Create a store with the host default of 32767 bytes per property
//	s := lstore.NewLocalStore(nil)
//
//	// Write and read a property
//	err := s.WriteProperty("database:db_players", `{"steve":1}`)
//	value, found, err := s.ReadProperty("database:db_players")
//
// Suitable Use Cases:
//
//	The local store is ideal for:
//	- Tests and development environments
//	- Ephemeral deployments where data does not need to survive a restart
//
// For durable storage use the sqlstore package, which implements the same interface
// on top of SQLite.
package lstore
