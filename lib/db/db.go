package db

import (
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("db")

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// StorageKeyPrefix is prepended to a database name to form its property key.
// It must never change, persisted data is found by it.
const StorageKeyPrefix = "database:db_"

// StorageKey returns the property key the database with the given name is persisted under.
func StorageKey(name string) string {
	return StorageKeyPrefix + name
}

// DatabaseInfo describes one live database instance.
type DatabaseInfo struct {
	Name         string    `json:"name"`
	StorageKey   string    `json:"storage_key"`
	Size         int       `json:"size"`
	LastAccessed time.Time `json:"last_accessed"`
	Evicted      bool      `json:"evicted"`
}

// SweepResult summarises one run of the CacheCleaner.
type SweepResult struct {
	Scanned int `json:"scanned"` // live instances looked at
	Evicted int `json:"evicted"` // instances flushed and removed
	Failed  int `json:"failed"`  // idle instances kept because their flush failed
}
