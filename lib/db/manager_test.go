package db

import (
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/propdb/lib/host"
	"github.com/ValentinKolb/propdb/lib/store"
	"github.com/ValentinKolb/propdb/lib/store/lstore"
	"github.com/ValentinKolb/propdb/lib/value"
)

func nanValue() float64 { return math.NaN() }

func TestNewDatabaseManagerValidation(t *testing.T) {
	if _, err := NewDatabaseManager(nil, host.NewManualScheduler(), nil); err == nil {
		t.Errorf("Expected error without a store")
	}
	if _, err := NewDatabaseManager(lstore.NewLocalStore(nil), nil, nil); err == nil {
		t.Errorf("Expected error without a scheduler")
	}
	bad := CleanerConfig{Enabled: true, SweepIntervalSeconds: 0, IdleThresholdSeconds: 1}
	if _, err := NewDatabaseManager(lstore.NewLocalStore(nil), host.NewManualScheduler(), &ManagerOptions{Cleaner: &bad}); err == nil {
		t.Errorf("Expected error for an invalid cleaner config")
	}
}

func TestShutdownHookRegisteredOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	if env.sched.HookCount() != 1 {
		t.Errorf("Expected exactly one shutdown hook, got %d", env.sched.HookCount())
	}
}

func TestSaveAllDatabases(t *testing.T) {
	env := newTestEnv(t, nil)

	a := env.mustGet(t, "a")
	b := env.mustGet(t, "b")
	a.Set("k", value.String("va"))
	b.Set("k", value.String("vb"))

	if err := env.manager.SaveAllDatabases(); err != nil {
		t.Fatalf("SaveAllDatabases failed: %v", err)
	}

	if text := env.persisted(t, "a"); text != `{"k":"va"}` {
		t.Errorf("Unexpected record for a: %s", text)
	}
	if text := env.persisted(t, "b"); text != `{"k":"vb"}` {
		t.Errorf("Unexpected record for b: %s", text)
	}

	// saving does not evict
	if env.manager.Len() != 2 {
		t.Errorf("Expected both databases to stay live, got %d", env.manager.Len())
	}
	if env.mustGet(t, "a") != a {
		t.Errorf("Expected the same instance after SaveAllDatabases")
	}
}

func TestSaveAllDatabasesJoinsErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	env.mustGet(t, "one").Set("k", value.Bool(true))
	env.mustGet(t, "two").Set("k", value.Bool(true))

	env.store.FailWrites(true)
	err := env.manager.SaveAllDatabases()
	if !errors.Is(err, store.ErrStorageWrite) {
		t.Fatalf("Expected StorageWrite error, got %v", err)
	}
	if !strings.Contains(err.Error(), "'one'") || !strings.Contains(err.Error(), "'two'") {
		t.Errorf("Expected both failures to be reported, got %v", err)
	}
}

func TestShutdownSavesAll(t *testing.T) {
	env := newTestEnv(t, nil)
	env.mustGet(t, "unsaved").Set("foo", value.String("bar"))

	env.sched.Shutdown()

	if text := env.persisted(t, "unsaved"); text != `{"foo":"bar"}` {
		t.Errorf("Expected shutdown to flush, record is %s", text)
	}
	if _, err := env.manager.GetDatabase("unsaved"); !errors.Is(err, store.NewError(store.RetCInvalidOperation, "")) {
		t.Errorf("Expected GetDatabase after shutdown to fail, got %v", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	env := newTestEnv(t, nil)
	env.mustGet(t, "x").Set("k", value.Bool(true))

	env.store.FailWrites(true)
	first := env.manager.Close()
	env.store.FailWrites(false)
	second := env.manager.Close()

	if first == nil || second == nil || first.Error() != second.Error() {
		t.Errorf("Expected Close to return the first result on every call, got %v / %v", first, second)
	}
}

func TestEvict(t *testing.T) {
	env := newTestEnv(t, nil)

	old := env.mustGet(t, "evict")
	old.Set("foo", value.String("bar"))

	evicted, err := env.manager.Evict("evict")
	if err != nil || !evicted {
		t.Fatalf("Expected eviction, got evicted=%v err=%v", evicted, err)
	}
	if env.manager.Len() != 0 {
		t.Errorf("Expected registry to be empty after eviction")
	}
	if !old.Info().Evicted {
		t.Errorf("Expected old instance to be marked evicted")
	}

	// unknown names are not an error
	if evicted, err := env.manager.Evict("unknown"); evicted || err != nil {
		t.Errorf("Expected evict of unknown name to be a no-op, got %v %v", evicted, err)
	}

	fresh := env.mustGet(t, "evict")
	if fresh == old {
		t.Fatalf("Expected a fresh instance after eviction")
	}
	if v, _ := fresh.Get("foo"); !v.Equal(value.String("bar")) {
		t.Errorf("Expected evicted data to be recoverable, got %v", v)
	}
}

func TestStaleHandleCannotOverwrite(t *testing.T) {
	env := newTestEnv(t, nil)

	old := env.mustGet(t, "stale")
	if _, err := env.manager.Evict("stale"); err != nil {
		t.Fatalf("Evict failed: %v", err)
	}

	fresh := env.mustGet(t, "stale")
	fresh.Set("owner", value.String("fresh"))
	if err := fresh.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	old.Set("owner", value.String("stale"))
	if err := old.Flush(); !errors.Is(err, store.ErrEvicted) {
		t.Fatalf("Expected Evicted error for a stale handle, got %v", err)
	}
	if text := env.persisted(t, "stale"); text != `{"owner":"fresh"}` {
		t.Errorf("Expected stale flush to leave the record alone, got %s", text)
	}
}

func TestEvictFailedFlushKeepsInstance(t *testing.T) {
	env := newTestEnv(t, nil)
	d := env.mustGet(t, "keep")
	d.Set("k", value.String("v"))

	env.store.FailWrites(true)
	evicted, err := env.manager.Evict("keep")
	if evicted || !errors.Is(err, store.ErrStorageWrite) {
		t.Fatalf("Expected failed eviction, got evicted=%v err=%v", evicted, err)
	}
	if env.manager.Len() != 1 || env.mustGet(t, "keep") != d {
		t.Errorf("Expected instance to stay live after a failed flush")
	}
}

func TestNamesAndInfos(t *testing.T) {
	env := newTestEnv(t, nil)
	env.mustGet(t, "b").Set("k", value.Bool(true))
	env.mustGet(t, "a")

	if names := strings.Join(env.manager.Names(), ","); names != "a,b" {
		t.Errorf("Expected names a,b got %s", names)
	}

	infos := env.manager.Infos()
	if len(infos) != 2 || infos[0].Name != "a" || infos[1].Size != 1 || infos[1].StorageKey != "database:db_b" {
		t.Errorf("Unexpected infos %+v", infos)
	}
}

func TestRemoveAllInstances(t *testing.T) {
	env := newTestEnv(t, nil)
	env.mustGet(t, "gone").Set("k", value.Bool(true))

	env.manager.removeAllInstances()

	if env.manager.Len() != 0 {
		t.Errorf("Expected registry to be empty")
	}
	// nothing was flushed
	if text := env.persisted(t, "gone"); text != value.EmptyDocument {
		t.Errorf("Expected no flush, record is %s", text)
	}
}

// A sweep that starts while GetDatabase hands out a cached instance must not
// evict that instance: the access is recorded before the lookup returns.
func TestGetDatabaseRacingSweep(t *testing.T) {
	clock := newFakeClock()
	cfg := CleanerConfig{Enabled: true, SweepIntervalSeconds: 60, IdleThresholdSeconds: 60}

	var (
		armed      atomic.Bool
		m          *DatabaseManager
		sweepDone  = make(chan SweepResult, 1)
		sweepStart = make(chan struct{})
	)
	now := func() time.Time {
		if armed.CompareAndSwap(true, false) {
			// start a sweep while GetDatabase is between lookup and return
			go func() {
				close(sweepStart)
				sweepDone <- m.Cleaner().Sweep()
			}()
			<-sweepStart
			select {
			case <-sweepDone:
				t.Errorf("Sweep finished while GetDatabase still held the instance")
			case <-time.After(50 * time.Millisecond):
			}
		}
		return clock.Now()
	}

	st := lstore.NewLocalStore(nil)
	m, err := NewDatabaseManager(st, host.NewManualScheduler(), &ManagerOptions{Cleaner: &cfg, Now: now})
	if err != nil {
		t.Fatalf("NewDatabaseManager failed: %v", err)
	}

	d, err := m.GetDatabase("race")
	if err != nil {
		t.Fatalf("GetDatabase failed: %v", err)
	}
	d.Set("a", value.Number(1))

	clock.Advance(2 * time.Minute)
	armed.Store(true)

	got, err := m.GetDatabase("race")
	if err != nil {
		t.Fatalf("GetDatabase failed: %v", err)
	}

	var res SweepResult
	select {
	case res = <-sweepDone:
	case <-time.After(5 * time.Second):
		t.Fatalf("Sweep did not finish")
	}

	if res.Evicted != 0 {
		t.Errorf("Expected no eviction, got %+v", res)
	}
	if got != d || m.Len() != 1 {
		t.Fatalf("Expected the live instance to be returned and kept (len=%d)", m.Len())
	}
	got.Set("b", value.Bool(true))
	if err := got.Flush(); err != nil {
		t.Fatalf("Flush of the returned instance failed: %v", err)
	}
	text, _, _ := st.ReadProperty(StorageKey("race"))
	if text != `{"a":1,"b":true}` {
		t.Errorf("Unexpected persisted text %s", text)
	}
}
