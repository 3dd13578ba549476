package host

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("host")

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IScheduler is the host collaborator for periodic work and shutdown notification.
type IScheduler interface {
	// RunPeriodic invokes callback every interval until the returned stop function is called.
	// stop is idempotent and returns only after a running callback has finished, so it must
	// not be called from inside the callback itself.
	RunPeriodic(callback func(), interval time.Duration) (stop func())
	// OnBeforeShutdown registers callback to run once, synchronously, before the process terminates.
	OnBeforeShutdown(callback func())
}

// --------------------------------------------------------------------------
// System Scheduler
// --------------------------------------------------------------------------

// SystemScheduler runs periodic callbacks on their own goroutine driven by a time.Ticker.
// Every goroutine is owned by the scheduler (context + WaitGroup) and is stopped by Shutdown.
//
// Thread-safety: all methods are safe for concurrent use.
type SystemScheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	hooks []func()

	shutdownOnce sync.Once
}

func NewSystemScheduler() *SystemScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &SystemScheduler{
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *SystemScheduler) RunPeriodic(callback func(), interval time.Duration) (stop func()) {
	if interval <= 0 {
		Logger.Errorf("refusing to schedule periodic task with non-positive interval %s", interval)
		return func() {}
	}

	taskCtx, taskCancel := context.WithCancel(s.ctx)
	done := make(chan struct{})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-taskCtx.Done():
				return
			case <-ticker.C:
				// a tick may race with cancellation; never start a callback after stop
				if taskCtx.Err() != nil {
					return
				}
				callback()
			}
		}
	}()

	Logger.Debugf("scheduled periodic task every %s", interval)

	var once sync.Once
	return func() {
		once.Do(func() {
			taskCancel()
			<-done
		})
	}
}

func (s *SystemScheduler) OnBeforeShutdown(callback func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, callback)
}

// Shutdown stops all periodic tasks, waits for running callbacks and then runs the
// shutdown hooks in registration order. Only the first call has an effect.
func (s *SystemScheduler) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.cancel()
		s.wg.Wait()

		s.mu.Lock()
		hooks := make([]func(), len(s.hooks))
		copy(hooks, s.hooks)
		s.mu.Unlock()

		Logger.Infof("running %d shutdown hook(s)", len(hooks))
		for _, hook := range hooks {
			runHook(hook)
		}
	})
}

// WaitForSignal blocks until one of sigs is received (SIGINT and SIGTERM when none are
// given) or ctx is done, and then calls Shutdown.
func (s *SystemScheduler) WaitForSignal(ctx context.Context, sigs ...os.Signal) {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}

	sigCtx, stop := signal.NotifyContext(ctx, sigs...)
	defer stop()

	<-sigCtx.Done()
	Logger.Infof("shutdown requested")
	s.Shutdown()
}

// runHook isolates a panicking hook so the remaining hooks still run.
func runHook(hook func()) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("shutdown hook panicked: %v", r)
		}
	}()
	hook()
}

// --------------------------------------------------------------------------
// Manual Scheduler
// --------------------------------------------------------------------------

type manualTask struct {
	id       uint64
	callback func()
	interval time.Duration
}

// ManualScheduler is a deterministic IScheduler: periodic callbacks only run when Tick is
// called and shutdown hooks only run when Shutdown is called.
//
// Thread-safety: all methods are safe for concurrent use. Callbacks run on the calling goroutine.
type ManualScheduler struct {
	mu       sync.Mutex
	nextID   uint64
	tasks    []manualTask
	hooks    []func()
	shutdown bool
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (m *ManualScheduler) RunPeriodic(callback func(), interval time.Duration) (stop func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.tasks = append(m.tasks, manualTask{id: id, callback: callback, interval: interval})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, t := range m.tasks {
			if t.id == id {
				m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
				return
			}
		}
	}
}

func (m *ManualScheduler) OnBeforeShutdown(callback func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, callback)
}

// Tick runs every registered periodic callback once, in registration order.
// It returns the number of callbacks run.
func (m *ManualScheduler) Tick() int {
	m.mu.Lock()
	tasks := make([]manualTask, len(m.tasks))
	copy(tasks, m.tasks)
	m.mu.Unlock()

	for _, t := range tasks {
		t.callback()
	}
	return len(tasks)
}

// Intervals returns the intervals of all registered periodic callbacks.
func (m *ManualScheduler) Intervals() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.tasks))
	for i, t := range m.tasks {
		out[i] = t.interval
	}
	return out
}

// HookCount returns the number of registered shutdown hooks.
func (m *ManualScheduler) HookCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hooks)
}

// Shutdown runs the shutdown hooks once, in registration order.
func (m *ManualScheduler) Shutdown() {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return
	}
	m.shutdown = true
	hooks := make([]func(), len(m.hooks))
	copy(hooks, m.hooks)
	m.tasks = nil
	m.mu.Unlock()

	for _, hook := range hooks {
		runHook(hook)
	}
}
