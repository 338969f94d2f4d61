package pool

import (
	"fmt"
	"sync"
	"time"

	"jobqueue-service/internal/core/domain"
	"jobqueue-service/internal/core/executor"
	"jobqueue-service/internal/infrastructure/logger"
	"jobqueue-service/internal/infrastructure/queue"
)

// Config holds worker pool configuration
type Config struct {
	MaxWorkers    int           `yaml:"max_workers"`
	MinWorkers    int           `yaml:"min_workers"`
	RestartLimit  int           `yaml:"restart_limit"`
	RestartWindow time.Duration `yaml:"restart_window"`
}

// WorkerPool maintains a bounded, dynamic set of workers. Workers are created
// on demand up to MaxWorkers, parked when released, and torn back down to
// MinWorkers when the queue runs dry.
type WorkerPool struct {
	mu       sync.Mutex
	config   Config
	store    *queue.Store
	run      executor.Executor
	logger   logger.Logger
	nextID   int
	idle     []*Handle
	busy     map[int]*Handle
	restarts []time.Time
	stopped  bool
}

// Handle is a lease on a single worker
type Handle struct {
	worker   *Worker
	lastUsed time.Time
}

// Worker returns the leased worker
func (h *Handle) Worker() *Worker {
	return h.worker
}

// NewWorkerPool creates a worker pool. Workers are not spawned until acquired.
func NewWorkerPool(cfg Config, run executor.Executor, store *queue.Store, log logger.Logger) *WorkerPool {
	return &WorkerPool{
		config: cfg,
		store:  store,
		run:    run,
		logger: log.With("component", "worker_pool"),
		busy:   make(map[int]*Handle),
	}
}

// Acquire leases a worker, reusing an idle one or spawning a new one while
// the live count is below MaxWorkers. Returns ErrPoolExhausted at capacity.
func (wp *WorkerPool) Acquire() (*Handle, error) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.stopped {
		return nil, domain.ErrStopped
	}

	if n := len(wp.idle); n > 0 {
		h := wp.idle[n-1]
		wp.idle = wp.idle[:n-1]
		wp.busy[h.worker.ID()] = h
		return h, nil
	}

	if wp.liveLocked() >= wp.config.MaxWorkers {
		return nil, domain.ErrPoolExhausted
	}

	wp.nextID++
	h := &Handle{
		worker:   NewWorker(wp.nextID, wp.run, wp.store, wp.logger),
		lastUsed: time.Now(),
	}
	wp.busy[h.worker.ID()] = h
	wp.logger.Debug("Worker spawned", "worker_id", h.worker.ID(), "live", wp.liveLocked())
	return h, nil
}

// Release returns a leased worker to the idle set
func (wp *WorkerPool) Release(h *Handle) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	delete(wp.busy, h.worker.ID())
	if wp.stopped {
		return
	}

	h.lastUsed = time.Now()
	wp.idle = append(wp.idle, h)
}

// Restart replaces a worker that hit a harness fault with a fresh one.
// Restarts are bounded per RestartWindow; past the budget the worker is
// removed from the pool, no replacement is made and an error is returned.
// MaxWorkers is unchanged, so a later Acquire may spawn a new worker.
func (wp *WorkerPool) Restart(h *Handle) (*Handle, error) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	delete(wp.busy, h.worker.ID())
	if wp.stopped {
		return nil, domain.ErrStopped
	}

	now := time.Now()
	cutoff := now.Add(-wp.config.RestartWindow)
	kept := wp.restarts[:0]
	for _, t := range wp.restarts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	wp.restarts = kept

	if len(wp.restarts) >= wp.config.RestartLimit {
		wp.logger.Error("Worker restart budget exhausted, giving up",
			"worker_id", h.worker.ID(), "restarts", len(wp.restarts), "window", wp.config.RestartWindow)
		return nil, fmt.Errorf("restart budget exhausted: %d restarts in %s", len(wp.restarts), wp.config.RestartWindow)
	}
	wp.restarts = append(wp.restarts, now)

	wp.nextID++
	fresh := &Handle{
		worker:   NewWorker(wp.nextID, wp.run, wp.store, wp.logger),
		lastUsed: now,
	}
	wp.busy[fresh.worker.ID()] = fresh
	wp.logger.Warn("Worker restarted", "old_worker_id", h.worker.ID(), "new_worker_id", fresh.worker.ID())
	return fresh, nil
}

// ActiveCount returns the number of live workers, idle and busy
func (wp *WorkerPool) ActiveCount() int {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.liveLocked()
}

// BusyCount returns the number of workers currently executing a job
func (wp *WorkerPool) BusyCount() int {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return len(wp.busy)
}

// Max returns the configured worker ceiling
func (wp *WorkerPool) Max() int {
	return wp.config.MaxWorkers
}

// CleanupIdle terminates the longest-idle workers until the live count is at
// most min. Busy workers are never touched, so a worker cannot be terminated
// after it has been handed a job.
func (wp *WorkerPool) CleanupIdle(min int) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	removed := 0
	for len(wp.idle) > 0 && wp.liveLocked() > min {
		oldest := 0
		for i, h := range wp.idle {
			if h.lastUsed.Before(wp.idle[oldest].lastUsed) {
				oldest = i
			}
		}
		h := wp.idle[oldest]
		wp.idle = append(wp.idle[:oldest], wp.idle[oldest+1:]...)
		removed++
		wp.logger.Debug("Idle worker terminated", "worker_id", h.worker.ID())
	}

	if removed > 0 {
		wp.logger.Info("Idle cleanup complete", "removed", removed, "live", wp.liveLocked())
	}
}

// Shutdown terminates all workers and rejects further acquisition
func (wp *WorkerPool) Shutdown() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	wp.stopped = true
	wp.idle = nil
	wp.logger.Info("Worker pool shut down", "busy_at_shutdown", len(wp.busy))
}

// Stats returns a snapshot of pool occupancy
func (wp *WorkerPool) Stats() PoolStats {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	return PoolStats{
		MaxWorkers:  wp.config.MaxWorkers,
		MinWorkers:  wp.config.MinWorkers,
		ActiveCount: wp.liveLocked(),
		BusyCount:   len(wp.busy),
		IdleCount:   len(wp.idle),
	}
}

func (wp *WorkerPool) liveLocked() int {
	return len(wp.idle) + len(wp.busy)
}

// PoolStats represents worker pool statistics
type PoolStats struct {
	MaxWorkers  int `json:"max_workers"`
	MinWorkers  int `json:"min_workers"`
	ActiveCount int `json:"active_count"`
	BusyCount   int `json:"busy_count"`
	IdleCount   int `json:"idle_count"`
}
