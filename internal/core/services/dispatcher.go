package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"jobqueue-service/internal/core/domain"
	"jobqueue-service/internal/infrastructure/logger"
	"jobqueue-service/internal/infrastructure/metrics"
	"jobqueue-service/internal/infrastructure/queue"
	"jobqueue-service/internal/pkg/pool"
)

// DispatcherConfig holds dispatcher timing and supervision settings
type DispatcherConfig struct {
	MinWorkers      int           `yaml:"min_workers"`
	CapacityBackoff time.Duration `yaml:"capacity_backoff"`
	IdleSleep       time.Duration `yaml:"idle_sleep"`
	RestartBackoff  time.Duration `yaml:"restart_backoff"`
	MaxRestarts     int           `yaml:"max_restarts"`
}

// Dispatcher is the single loop that pairs pending jobs with workers and
// drives lifecycle transitions on the store. A supervisor wraps the loop and
// restarts it with bounded backoff if an iteration panics.
type Dispatcher struct {
	config  DispatcherConfig
	queue   *queue.PriorityQueue
	store   *queue.Store
	pool    *pool.WorkerPool
	metrics *metrics.Metrics
	logger  logger.Logger

	wake   chan struct{}
	paused atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	cancelMu sync.Mutex
	cancels  map[string]context.CancelFunc
}

// NewDispatcher creates a dispatcher over the given queue, store and pool
func NewDispatcher(cfg DispatcherConfig, q *queue.PriorityQueue, s *queue.Store, p *pool.WorkerPool, m *metrics.Metrics, log logger.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		config:  cfg,
		queue:   q,
		store:   s,
		pool:    p,
		metrics: m,
		logger:  log.With("component", "dispatcher"),
		wake:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		cancels: make(map[string]context.CancelFunc),
	}
}

// Start launches the supervised dispatch loop
func (d *Dispatcher) Start() {
	d.logger.Info("Starting dispatcher",
		"capacity_backoff", d.config.CapacityBackoff,
		"idle_sleep", d.config.IdleSleep)

	d.wg.Add(1)
	go d.supervise()
}

// Stop terminates the loop and waits for in-flight jobs to settle
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.logger.Info("Stopping dispatcher")
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.logger.Warn("Dispatcher stop timeout")
		return ctx.Err()
	}
}

// Wake nudges the loop out of its idle sleep after an enqueue
func (d *Dispatcher) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Pause suspends dispatching; queued jobs stay pending until Resume
func (d *Dispatcher) Pause() {
	d.paused.Store(true)
}

// Resume re-enables dispatching
func (d *Dispatcher) Resume() {
	d.paused.Store(false)
	d.Wake()
}

// AbortJob fires the cancellation signal of a running job, if one is in flight
func (d *Dispatcher) AbortJob(id string) {
	d.cancelMu.Lock()
	cancel, ok := d.cancels[id]
	d.cancelMu.Unlock()

	if ok {
		d.logger.Info("Signalling running job to abort", "job_id", id)
		cancel()
	}
}

// supervise restarts the dispatch loop with exponential backoff when an
// iteration panics. It gives up once MaxRestarts restarts have happened; the
// restart count and the backoff are never reset.
func (d *Dispatcher) supervise() {
	defer d.wg.Done()

	backoff := d.config.RestartBackoff
	restarts := 0

	for {
		err := d.run()
		if d.ctx.Err() != nil {
			return
		}
		if err == nil {
			return
		}

		restarts++
		if restarts > d.config.MaxRestarts {
			d.logger.Error("Dispatcher restart limit reached, giving up", "restarts", restarts, "error", err)
			return
		}

		d.logger.Error("Dispatcher crashed, restarting", "restarts", restarts, "backoff", backoff, "error", err)

		select {
		case <-time.After(backoff):
		case <-d.ctx.Done():
			return
		}
		backoff *= 2
	}
}

// run executes iterations until the context ends or an iteration panics
func (d *Dispatcher) run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatcher panic: %v", r)
		}
	}()

	for {
		if d.ctx.Err() != nil {
			return nil
		}
		d.iterate()
	}
}

// iterate performs one scheduling decision
func (d *Dispatcher) iterate() {
	if d.paused.Load() {
		d.sleep(d.config.IdleSleep)
		return
	}

	if d.pool.BusyCount() >= d.pool.Max() {
		d.sleep(d.config.CapacityBackoff)
		return
	}

	ref, ok := d.queue.Pop()
	d.metrics.QueueDepth.Set(float64(d.queue.Size()))
	if !ok {
		d.pool.CleanupIdle(d.config.MinWorkers)
		d.publishPoolStats()
		d.sleep(d.config.IdleSleep)
		return
	}

	handle, err := d.pool.Acquire()
	if err != nil {
		// The reference predates any concurrently-enqueued peer of its
		// priority, so an ordinary push restores its place at the front.
		d.queue.Push(ref)
		d.metrics.QueueDepth.Set(float64(d.queue.Size()))
		d.sleep(d.config.CapacityBackoff)
		return
	}
	d.publishPoolStats()

	job, err := d.store.Get(ref.ID)
	if err != nil {
		// Cleared or otherwise gone; drop the reference.
		d.logger.Warn("Dequeued job missing from store", "job_id", ref.ID, "error", err)
		d.pool.Release(handle)
		return
	}

	if job.Status != domain.StatusPending {
		// Cancelled between enqueue and dispatch.
		d.logger.Debug("Dropping non-pending reference", "job_id", job.ID, "status", job.Status)
		d.pool.Release(handle)
		return
	}

	d.wg.Add(1)
	go d.runJob(handle, job)
}

// runJob executes one attempt on a worker and applies the outcome to the
// store. Runs in its own goroutine so a slow worker never blocks scheduling.
func (d *Dispatcher) runJob(handle *pool.Handle, job domain.Job) {
	defer d.wg.Done()

	jobCtx, cancel := context.WithCancel(d.ctx)
	d.registerCancel(job.ID, cancel)
	defer func() {
		d.unregisterCancel(job.ID)
		cancel()
	}()

	outcome := d.execute(jobCtx, handle, job)

	d.pool.Release(handle)
	d.publishPoolStats()

	switch outcome.Kind {
	case pool.OutcomeSuccess:
		d.complete(job.ID, outcome.Output)
	case pool.OutcomeRetry:
		d.requeue(job.ID, outcome.Reason)
	case pool.OutcomeFailed:
		d.fail(job.ID, outcome.Reason)
	case pool.OutcomeCancelled:
		d.metrics.JobsCancelled.Inc()
	}
}

// execute guards the worker harness itself; a harness fault is converted into
// a failed attempt and the worker is replaced under the pool's restart budget
func (d *Dispatcher) execute(ctx context.Context, handle *pool.Handle, job domain.Job) (outcome pool.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Worker harness fault", "job_id", job.ID, "panic", r)
			if fresh, err := d.pool.Restart(handle); err == nil {
				*handle = *fresh
			}
			reason := fmt.Sprintf("worker fault: %v", r)
			if job.RetryCount+1 > job.MaxRetries {
				outcome = pool.Outcome{Kind: pool.OutcomeFailed, Reason: reason}
			} else {
				outcome = pool.Outcome{Kind: pool.OutcomeRetry, Reason: reason}
			}
		}
	}()

	return handle.Worker().Execute(ctx, job)
}

func (d *Dispatcher) complete(id, output string) {
	now := time.Now().UTC()
	_, err := d.store.Update(id, func(j *domain.Job) error {
		if j.Status == domain.StatusCancelled {
			return domain.ErrCancelled
		}
		if !domain.CanTransition(j.Status, domain.StatusCompleted) {
			return fmt.Errorf("%w: %s -> completed", domain.ErrInvalidTransition, j.Status)
		}
		j.Status = domain.StatusCompleted
		j.Result = output
		j.CompletedAt = &now
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			d.metrics.JobsCancelled.Inc()
			return
		}
		d.logger.Error("Failed to record completion", "job_id", id, "error", err)
		return
	}

	d.metrics.JobsCompleted.Inc()
	d.logger.Info("Job completed", "job_id", id)
}

// requeue moves a retryable failure straight back to pending; the
// intermediate failed state is never observable
func (d *Dispatcher) requeue(id, reason string) {
	updated, err := d.store.Update(id, func(j *domain.Job) error {
		if j.Status == domain.StatusCancelled {
			return domain.ErrCancelled
		}
		if !domain.CanTransition(j.Status, domain.StatusPending) {
			return fmt.Errorf("%w: %s -> pending", domain.ErrInvalidTransition, j.Status)
		}
		j.Status = domain.StatusPending
		j.RetryCount++
		j.StartedAt = nil
		j.Error = ""
		j.Result = ""
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			d.metrics.JobsCancelled.Inc()
			return
		}
		d.logger.Error("Failed to requeue job", "job_id", id, "error", err)
		return
	}

	d.queue.Push(queue.Ref{ID: updated.ID, Priority: updated.Priority, CreatedAt: updated.CreatedAt})
	d.metrics.QueueDepth.Set(float64(d.queue.Size()))
	d.metrics.JobsRetried.Inc()
	d.Wake()

	d.logger.Warn("Job failed, scheduling retry",
		"job_id", id, "retry_count", updated.RetryCount, "max_retries", updated.MaxRetries, "reason", reason)
}

func (d *Dispatcher) fail(id, reason string) {
	now := time.Now().UTC()
	updated, err := d.store.Update(id, func(j *domain.Job) error {
		if j.Status == domain.StatusCancelled {
			return domain.ErrCancelled
		}
		if !domain.CanTransition(j.Status, domain.StatusFailed) {
			return fmt.Errorf("%w: %s -> failed", domain.ErrInvalidTransition, j.Status)
		}
		j.Status = domain.StatusFailed
		j.RetryCount++
		j.Error = reason
		j.CompletedAt = &now
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			d.metrics.JobsCancelled.Inc()
			return
		}
		d.logger.Error("Failed to record failure", "job_id", id, "error", err)
		return
	}

	d.metrics.JobsFailed.Inc()
	d.logger.Error("Job failed permanently",
		"job_id", id, "retry_count", updated.RetryCount, "reason", reason)
}

func (d *Dispatcher) registerCancel(id string, cancel context.CancelFunc) {
	d.cancelMu.Lock()
	d.cancels[id] = cancel
	d.cancelMu.Unlock()
}

func (d *Dispatcher) unregisterCancel(id string) {
	d.cancelMu.Lock()
	delete(d.cancels, id)
	d.cancelMu.Unlock()
}

func (d *Dispatcher) publishPoolStats() {
	stats := d.pool.Stats()
	d.metrics.WorkersActive.Set(float64(stats.ActiveCount))
	d.metrics.WorkersBusy.Set(float64(stats.BusyCount))
}

func (d *Dispatcher) sleep(duration time.Duration) {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-d.wake:
	case <-d.ctx.Done():
	}
}
