// Package db implements named in-memory databases that are hydrated from and
// flushed to a property store, the registry that owns them and the cleaner that
// evicts idle ones.
//
// Key Components:
//
//   - Database: one named key/value mapping (string -> value.Value) that keeps
//     insertion order. It is persisted as a single property under
//     StorageKey(name) = "database:db_" + name. On first use a missing property is
//     created as "{}". Every data operation refreshes the last access time. Writes are
//     write-back: nothing reaches the store until Flush (or Save) is called, the
//     cleaner evicts the database, or the manager shuts down.
//
//   - DatabaseManager: the registry. It guarantees at most one live Database per name,
//     saves all databases on demand (SaveAllDatabases) and registers a shutdown hook
//     with the host scheduler that saves everything before the process exits. It is
//     constructed explicitly and passed to its users, there is no global instance.
//
//   - CacheCleaner: started by the manager when CleanerConfig.Enabled is set. Every
//     sweep interval it flushes and evicts all databases idle for at least the idle
//     threshold. Eviction only happens after a successful flush.
//
//   - FormatElements / PrintElements: human readable dump of a database.
//
// Consistency:
//
//   - Lookup-or-create and eviction of the same name are serialized by the registry
//     (xsync.MapOf.Compute). A caller of GetDatabase receives either the live instance
//     or a fresh instance hydrated after the eviction flush has completed.
//   - A handle that survives an eviction is stale. Its Flush fails with RetCEvicted, so
//     it can never overwrite the record of a newer instance. Callers should fetch the
//     database from the manager instead of holding on to it.
//   - Undecodable persisted text makes GetDatabase fail with RetCCorruptData. It is
//     never replaced by an empty database.
//
// Example:
//
//	manager, err := db.NewDatabaseManager(lstore.NewLocalStore(nil), host.NewManualScheduler(), nil)
//	if err != nil { ... }
//	players, err := manager.GetDatabase("players")
//	if err != nil { ... }
//	players.Set("steve", value.Vector(10, 64, -3))
//	err = players.Flush()
//
// Metrics (github.com/VictoriaMetrics/metrics):
// propdb_databases_hydrated_total, propdb_database_flushes_total,
// propdb_database_flush_errors_total, propdb_databases_evicted_total,
// propdb_cleaner_sweeps_total and the gauge propdb_databases_live.
package db
