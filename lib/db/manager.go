package db

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/propdb/lib/host"
	"github.com/ValentinKolb/propdb/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
)

// ManagerOptions configures a DatabaseManager.
type ManagerOptions struct {
	Cleaner *CleanerConfig   // nil disables idle eviction
	Now     func() time.Time // clock used for access times (nil = time.Now)
}

// DefaultManagerOptions returns options with the default cleaner configuration.
func DefaultManagerOptions() *ManagerOptions {
	cfg := DefaultCleanerConfig()
	return &ManagerOptions{
		Cleaner: &cfg,
		Now:     time.Now,
	}
}

// DatabaseManager is the registry of live databases. For every name there is at
// most one live Database; it is created on first use and lives until it is evicted.
//
// Lookup-or-create and evict for the same name are mutually exclusive (they run
// inside xsync.MapOf.Compute for that key), so GetDatabase always returns either
// the live instance or a fresh one hydrated after the eviction flush finished.
//
// Thread-safety: all methods are safe for concurrent use.
type DatabaseManager struct {
	store     store.IPropertyStore
	scheduler host.IScheduler
	now       func() time.Time

	databases *xsync.MapOf[string, *Database]
	cleaner   *CacheCleaner

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewDatabaseManager creates a manager over st. It registers a shutdown hook with
// scheduler that saves all databases and, if opts enables it, starts the CacheCleaner.
// opts may be nil (no eviction).
func NewDatabaseManager(st store.IPropertyStore, scheduler host.IScheduler, opts *ManagerOptions) (*DatabaseManager, error) {
	if st == nil {
		return nil, fmt.Errorf("property store is required")
	}
	if scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	if opts == nil {
		opts = &ManagerOptions{}
	}

	m := &DatabaseManager{
		store:     st,
		scheduler: scheduler,
		now:       opts.Now,
		databases: xsync.NewMapOf[string, *Database](),
	}
	if m.now == nil {
		m.now = time.Now
	}

	if opts.Cleaner != nil && opts.Cleaner.Enabled {
		if err := opts.Cleaner.Validate(); err != nil {
			return nil, err
		}
		m.cleaner = newCacheCleaner(m, *opts.Cleaner)
		m.cleaner.start(scheduler)
	}

	scheduler.OnBeforeShutdown(func() {
		if err := m.Close(); err != nil {
			Logger.Errorf("saving databases on shutdown failed: %v", err)
		}
	})

	return m, nil
}

// --------------------------------------------------------------------------
// Registry Operations
// --------------------------------------------------------------------------

// GetDatabase returns the live database with the given name, hydrating it from the
// store on first use. Hydration errors (e.g. RetCCorruptData) are returned and no
// instance is registered.
func (m *DatabaseManager) GetDatabase(name string) (*Database, error) {
	if name == "" {
		return nil, store.NewError(store.RetCInvalidOperation, "database name must not be empty")
	}
	if m.closed.Load() {
		return nil, store.NewError(store.RetCInvalidOperation, "database manager is closed")
	}

	var hydrateErr error
	d, _ := m.databases.Compute(name, func(old *Database, loaded bool) (*Database, bool) {
		if loaded {
			// refreshed under the key lock, so a concurrent sweep sees the access
			old.touch()
			return old, false
		}
		fresh, err := newDatabase(name, m.store, m.now)
		if err != nil {
			hydrateErr = err
			return nil, true
		}
		liveDatabases.Add(1)
		return fresh, false
	})
	if hydrateErr != nil {
		return nil, hydrateErr
	}
	return d, nil
}

// SaveAllDatabases flushes every live database. Databases stay live.
// All failures are returned joined.
func (m *DatabaseManager) SaveAllDatabases() error {
	var errs []error
	m.databases.Range(func(name string, d *Database) bool {
		err := d.flush()
		switch {
		case errors.Is(err, store.ErrEvicted):
			// evicted concurrently, the eviction flushed it
		case err != nil:
			Logger.Errorf("saving database '%s' failed: %v", name, err)
			errs = append(errs, err)
		default:
			Logger.Infof("Saved database %s", name)
		}
		return true
	})
	return errors.Join(errs...)
}

// Evict flushes the named database and removes it from the registry.
// It reports false if no such database is live. On a failed flush the instance stays live.
func (m *DatabaseManager) Evict(name string) (bool, error) {
	return m.evict(name, time.Time{}, 0)
}

// evict retires and removes the named database if it has been idle for idleFor (0 = always).
func (m *DatabaseManager) evict(name string, now time.Time, idleFor time.Duration) (bool, error) {
	var (
		evicted bool
		err     error
	)
	m.databases.Compute(name, func(d *Database, loaded bool) (*Database, bool) {
		if !loaded {
			return d, true
		}
		if evicted, err = d.retire(now, idleFor); err != nil || !evicted {
			return d, false
		}
		return nil, true
	})

	if err != nil {
		return false, err
	}
	if evicted {
		liveDatabases.Add(-1)
		evictedTotal.Inc()
		Logger.Infof("evicted database '%s'", name)
	}
	return evicted, nil
}

// Names returns the names of all live databases, sorted.
func (m *DatabaseManager) Names() []string {
	names := make([]string, 0, m.databases.Size())
	m.databases.Range(func(name string, _ *Database) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// Len returns the number of live databases.
func (m *DatabaseManager) Len() int {
	return m.databases.Size()
}

// Infos returns the metadata of all live databases, sorted by name.
func (m *DatabaseManager) Infos() []DatabaseInfo {
	infos := make([]DatabaseInfo, 0, m.databases.Size())
	m.databases.Range(func(_ string, d *Database) bool {
		infos = append(infos, d.Info())
		return true
	})
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Cleaner returns the CacheCleaner, or nil if idle eviction is disabled.
func (m *DatabaseManager) Cleaner() *CacheCleaner {
	return m.cleaner
}

// PrintElements fetches (or creates) the named database and writes its contents to sink.
// It never fails: problems are logged and, if possible, reported to the recipient.
func (m *DatabaseManager) PrintElements(name, recipient string, sink host.IMessageSink) {
	d, err := m.GetDatabase(name)
	if err != nil {
		Logger.Warningf("cannot print database '%s': %v", name, err)
		if sink != nil {
			_ = sink.SendLine(recipient, fmt.Sprintf("[Database]: %s could not be loaded: %v", name, err))
		}
		return
	}
	PrintElements(d, recipient, sink)
}

// Close stops the CacheCleaner (waiting for a running sweep) and saves all databases.
// Afterwards GetDatabase fails. Only the first call does work, later calls return its result.
func (m *DatabaseManager) Close() error {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		if m.cleaner != nil {
			m.cleaner.Stop()
		}
		m.closeErr = m.SaveAllDatabases()
		Logger.Infof("database manager closed (%d live databases saved)", m.databases.Size())
	})
	return m.closeErr
}

// removeAllInstances drops every live instance without flushing. Test hook.
func (m *DatabaseManager) removeAllInstances() {
	n := m.databases.Size()
	m.databases.Clear()
	liveDatabases.Add(-int64(n))
}
