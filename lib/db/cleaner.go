package db

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/propdb/lib/host"
)

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

const (
	defaultSweepIntervalSeconds = 300
	defaultIdleThresholdSeconds = 300
)

// CleanerConfig configures idle eviction.
type CleanerConfig struct {
	Enabled              bool    `json:"enabled"`
	SweepIntervalSeconds float64 `json:"sweep_interval_seconds"` // time between sweeps
	IdleThresholdSeconds float64 `json:"idle_threshold_seconds"` // minimum idle time before eviction
}

// DefaultCleanerConfig returns the default (enabled) cleaner configuration.
func DefaultCleanerConfig() CleanerConfig {
	return CleanerConfig{
		Enabled:              true,
		SweepIntervalSeconds: defaultSweepIntervalSeconds,
		IdleThresholdSeconds: defaultIdleThresholdSeconds,
	}
}

// Validate checks that an enabled configuration has positive, finite durations.
func (c CleanerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if !(c.SweepIntervalSeconds > 0) || math.IsInf(c.SweepIntervalSeconds, 0) {
		return fmt.Errorf("cleaner sweep interval must be positive, got %v", c.SweepIntervalSeconds)
	}
	if !(c.IdleThresholdSeconds > 0) || math.IsInf(c.IdleThresholdSeconds, 0) {
		return fmt.Errorf("cleaner idle threshold must be positive, got %v", c.IdleThresholdSeconds)
	}
	return nil
}

func (c CleanerConfig) SweepInterval() time.Duration { return seconds(c.SweepIntervalSeconds) }

func (c CleanerConfig) IdleThreshold() time.Duration { return seconds(c.IdleThresholdSeconds) }

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// --------------------------------------------------------------------------
// Cache Cleaner
// --------------------------------------------------------------------------

// CacheCleaner periodically flushes and evicts databases that have not been
// accessed for the configured idle threshold. An instance whose flush fails is
// never evicted, it stays live and is retried on the next sweep.
type CacheCleaner struct {
	manager *DatabaseManager
	config  CleanerConfig

	mu       sync.Mutex // held for the duration of a sweep
	stopTask func()
	stopped  atomic.Bool
}

func newCacheCleaner(m *DatabaseManager, config CleanerConfig) *CacheCleaner {
	return &CacheCleaner{
		manager: m,
		config:  config,
	}
}

func (c *CacheCleaner) start(scheduler host.IScheduler) {
	c.stopTask = scheduler.RunPeriodic(func() { c.Sweep() }, c.config.SweepInterval())
	Logger.Infof("cache cleaner started (sweep every %s, idle threshold %s)",
		c.config.SweepInterval(), c.config.IdleThreshold())
}

// Config returns the configuration the cleaner runs with.
func (c *CacheCleaner) Config() CleanerConfig {
	return c.config
}

// Sweep runs one eviction pass over all live databases. After Stop it does nothing.
func (c *CacheCleaner) Sweep() SweepResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	var res SweepResult
	if c.stopped.Load() {
		return res
	}

	now := c.manager.now()
	threshold := c.config.IdleThreshold()

	for _, name := range c.manager.Names() {
		res.Scanned++
		evicted, err := c.manager.evict(name, now, threshold)
		switch {
		case err != nil:
			res.Failed++
			Logger.Errorf("idle database '%s' was kept because its flush failed: %v", name, err)
		case evicted:
			res.Evicted++
		}
	}

	sweepsTotal.Inc()
	Logger.Debugf("cache cleaner sweep: scanned=%d evicted=%d failed=%d", res.Scanned, res.Evicted, res.Failed)
	return res
}

// Stop cancels the periodic sweep and waits until a running sweep has finished.
func (c *CacheCleaner) Stop() {
	if !c.stopped.CompareAndSwap(false, true) {
		return
	}
	if c.stopTask != nil {
		c.stopTask()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	Logger.Infof("cache cleaner stopped")
}
