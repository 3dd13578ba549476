package db

import (
	"math"
	"testing"
	"time"

	"github.com/ValentinKolb/propdb/lib/value"
)

func testCleanerConfig(thresholdSeconds float64) *CleanerConfig {
	return &CleanerConfig{
		Enabled:              true,
		SweepIntervalSeconds: 10,
		IdleThresholdSeconds: thresholdSeconds,
	}
}

func TestCleanerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  CleanerConfig
		wantErr bool
	}{
		{"Default", DefaultCleanerConfig(), false},
		{"DisabledWithZeros", CleanerConfig{}, false},
		{"ZeroInterval", CleanerConfig{Enabled: true, SweepIntervalSeconds: 0, IdleThresholdSeconds: 1}, true},
		{"NegativeThreshold", CleanerConfig{Enabled: true, SweepIntervalSeconds: 1, IdleThresholdSeconds: -1}, true},
		{"NaNInterval", CleanerConfig{Enabled: true, SweepIntervalSeconds: math.NaN(), IdleThresholdSeconds: 1}, true},
		{"InfThreshold", CleanerConfig{Enabled: true, SweepIntervalSeconds: 1, IdleThresholdSeconds: math.Inf(1)}, true},
		{"Fractional", CleanerConfig{Enabled: true, SweepIntervalSeconds: 0.5, IdleThresholdSeconds: 0.25}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.config.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}

	def := DefaultCleanerConfig()
	if !def.Enabled || def.SweepInterval() != 5*time.Minute || def.IdleThreshold() != 5*time.Minute {
		t.Errorf("Unexpected defaults %+v", def)
	}
}

func TestCleanerDisabledWithoutConfig(t *testing.T) {
	env := newTestEnv(t, nil)
	if env.manager.Cleaner() != nil {
		t.Errorf("Expected no cleaner without config")
	}
	if len(env.sched.Intervals()) != 0 {
		t.Errorf("Expected no periodic task without config")
	}

	env.mustGet(t, "forever")
	env.clock.Advance(24 * time.Hour)
	env.sched.Tick()
	if env.manager.Len() != 1 {
		t.Errorf("Expected database to live for the process lifetime")
	}
}

func TestCleanerDisabledFlag(t *testing.T) {
	env := newTestEnv(t, &CleanerConfig{Enabled: false})
	if env.manager.Cleaner() != nil || len(env.sched.Intervals()) != 0 {
		t.Errorf("Expected disabled cleaner not to be scheduled")
	}
}

func TestCleanerRegistersInterval(t *testing.T) {
	env := newTestEnv(t, testCleanerConfig(60))
	intervals := env.sched.Intervals()
	if len(intervals) != 1 || intervals[0] != 10*time.Second {
		t.Errorf("Expected one periodic task every 10s, got %v", intervals)
	}
}

func TestEvictionDurability(t *testing.T) {
	env := newTestEnv(t, testCleanerConfig(60))

	d := env.mustGet(t, "cold")
	d.Set("foo", value.String("bar"))

	env.clock.Advance(61 * time.Second)
	env.sched.Tick()

	if env.manager.Len() != 0 {
		t.Fatalf("Expected idle database to be evicted")
	}
	if text := env.persisted(t, "cold"); text != `{"foo":"bar"}` {
		t.Errorf("Expected eviction to flush, record is %s", text)
	}

	fresh := env.mustGet(t, "cold")
	if v, _ := fresh.Get("foo"); !v.Equal(value.String("bar")) {
		t.Errorf("Expected evicted data to be recoverable, got %v", v)
	}
}

func TestEvictionThreshold(t *testing.T) {
	env := newTestEnv(t, testCleanerConfig(60))
	cleaner := env.manager.Cleaner()

	active := env.mustGet(t, "active")
	env.mustGet(t, "exact")
	env.mustGet(t, "fresh-ish")

	env.clock.Advance(30 * time.Second)
	active.Get("touch")
	env.mustGet(t, "fresh-ish") // fetching counts as access

	env.clock.Advance(30 * time.Second)
	res := cleaner.Sweep()

	// "exact" was idle for exactly the threshold
	if res.Scanned != 3 || res.Evicted != 1 || res.Failed != 0 {
		t.Errorf("Unexpected sweep result %+v", res)
	}
	names := env.manager.Names()
	if len(names) != 2 || names[0] != "active" || names[1] != "fresh-ish" {
		t.Errorf("Expected active databases to survive, got %v", names)
	}
}

func TestFailedFlushKeepsInstance(t *testing.T) {
	env := newTestEnv(t, testCleanerConfig(60))
	cleaner := env.manager.Cleaner()

	d := env.mustGet(t, "unlucky")
	d.Set("precious", value.String("data"))

	env.store.FailWrites(true)
	env.clock.Advance(2 * time.Minute)

	res := cleaner.Sweep()
	if res.Failed != 1 || res.Evicted != 0 {
		t.Errorf("Expected one failed eviction, got %+v", res)
	}
	if env.manager.Len() != 1 || d.Info().Evicted {
		t.Fatalf("Expected instance to stay live after a failed flush")
	}

	// the next sweep retries
	env.store.FailWrites(false)
	res = cleaner.Sweep()
	if res.Evicted != 1 {
		t.Errorf("Expected retry to evict, got %+v", res)
	}
	if text := env.persisted(t, "unlucky"); text != `{"precious":"data"}` {
		t.Errorf("Expected data to be persisted, got %s", text)
	}
}

func TestCleanerStop(t *testing.T) {
	env := newTestEnv(t, testCleanerConfig(60))
	cleaner := env.manager.Cleaner()

	env.mustGet(t, "idle")
	cleaner.Stop()
	cleaner.Stop()

	env.clock.Advance(time.Hour)
	if n := env.sched.Tick(); n != 0 {
		t.Errorf("Expected periodic task to be removed, %d ran", n)
	}
	if res := cleaner.Sweep(); res != (SweepResult{}) {
		t.Errorf("Expected Sweep after Stop to do nothing, got %+v", res)
	}
	if env.manager.Len() != 1 {
		t.Errorf("Expected no eviction after Stop")
	}
}

func TestShutdownStopsCleanerAndSaves(t *testing.T) {
	env := newTestEnv(t, testCleanerConfig(60))
	env.mustGet(t, "last").Set("k", value.Number(1))

	env.sched.Shutdown()

	if text := env.persisted(t, "last"); text != `{"k":1}` {
		t.Errorf("Expected shutdown flush, got %s", text)
	}
	if res := env.manager.Cleaner().Sweep(); res != (SweepResult{}) {
		t.Errorf("Expected cleaner to be stopped on shutdown, got %+v", res)
	}
}
