package db

import (
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/propdb/lib/host"
	"github.com/ValentinKolb/propdb/lib/store/lstore"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	manager *DatabaseManager
	store   lstore.LocalStore
	sched   *host.ManualScheduler
	clock   *fakeClock
}

// newTestEnv creates a manager over a fresh in-memory store, a manual scheduler and a fake clock.
// cleaner may be nil to disable eviction.
func newTestEnv(t *testing.T, cleaner *CleanerConfig) *testEnv {
	t.Helper()

	env := &testEnv{
		store: lstore.NewLocalStore(nil),
		sched: host.NewManualScheduler(),
		clock: newFakeClock(),
	}

	m, err := NewDatabaseManager(env.store, env.sched, &ManagerOptions{
		Cleaner: cleaner,
		Now:     env.clock.Now,
	})
	if err != nil {
		t.Fatalf("NewDatabaseManager failed: %v", err)
	}
	env.manager = m
	return env
}

func (env *testEnv) mustGet(t *testing.T, name string) *Database {
	t.Helper()
	d, err := env.manager.GetDatabase(name)
	if err != nil {
		t.Fatalf("GetDatabase(%q) failed: %v", name, err)
	}
	return d
}

func (env *testEnv) persisted(t *testing.T, name string) string {
	t.Helper()
	text, found, err := env.store.ReadProperty(StorageKey(name))
	if err != nil {
		t.Fatalf("ReadProperty failed: %v", err)
	}
	if !found {
		t.Fatalf("Expected database '%s' to be persisted", name)
	}
	return text
}
