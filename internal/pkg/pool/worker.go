package pool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobqueue-service/internal/core/domain"
	"jobqueue-service/internal/core/executor"
	"jobqueue-service/internal/infrastructure/logger"
	"jobqueue-service/internal/infrastructure/queue"
)

// OutcomeKind classifies the result of one execution attempt
type OutcomeKind int

const (
	// OutcomeSuccess means the executor returned output
	OutcomeSuccess OutcomeKind = iota
	// OutcomeRetry means the attempt failed and the job has retries left
	OutcomeRetry
	// OutcomeFailed means the attempt failed and retries are exhausted
	OutcomeFailed
	// OutcomeCancelled means the attempt was dropped: either the job was
	// cancelled (its record is already terminal) or it could not be marked running
	OutcomeCancelled
)

// Outcome is what a worker reports back after one execution attempt
type Outcome struct {
	Kind   OutcomeKind
	Output string
	Reason string
}

// Worker executes a single job at a time: it transitions the job to running,
// runs the executor under the job's deadline, and classifies the result.
type Worker struct {
	id     int
	run    executor.Executor
	store  *queue.Store
	logger logger.Logger
}

// NewWorker creates a worker bound to an executor and the job store
func NewWorker(id int, run executor.Executor, store *queue.Store, log logger.Logger) *Worker {
	return &Worker{
		id:     id,
		run:    run,
		store:  store,
		logger: log.With("worker_id", id),
	}
}

// ID returns the worker's pool-assigned id
func (w *Worker) ID() int {
	return w.id
}

// Execute runs one attempt of the given job snapshot. The job is marked
// running under the store's record lock; if the record turns out to be
// cancelled the attempt is dropped without running the executor. ctx is the
// job's cancellation context; the deadline comes from the job itself.
func (w *Worker) Execute(ctx context.Context, job domain.Job) Outcome {
	startedAt := time.Now().UTC()

	_, err := w.store.Update(job.ID, func(j *domain.Job) error {
		if j.Status == domain.StatusCancelled {
			return domain.ErrCancelled
		}
		if !domain.CanTransition(j.Status, domain.StatusRunning) {
			return fmt.Errorf("%w: %s -> running", domain.ErrInvalidTransition, j.Status)
		}
		j.Status = domain.StatusRunning
		j.StartedAt = &startedAt
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			w.logger.Debug("Job cancelled before execution", "job_id", job.ID)
			return Outcome{Kind: OutcomeCancelled}
		}
		w.logger.Error("Failed to mark job running", "job_id", job.ID, "error", err)
		return Outcome{Kind: OutcomeCancelled}
	}

	w.logger.Info("Executing job", "job_id", job.ID, "command", job.Command, "attempt", job.RetryCount+1)

	timeout := time.Duration(job.TimeoutMs) * time.Millisecond
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output, runErr := w.safeRun(runCtx, job.Command)

	// A concurrent cancel wins over whatever the executor produced.
	if w.cancelled(job.ID) {
		w.logger.Info("Job cancelled during execution", "job_id", job.ID)
		return Outcome{Kind: OutcomeCancelled}
	}

	if runErr == nil {
		return Outcome{Kind: OutcomeSuccess, Output: output}
	}

	reason := runErr.Error()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		reason = fmt.Sprintf("job timed out after %d ms", job.TimeoutMs)
	}

	if job.RetryCount+1 > job.MaxRetries {
		return Outcome{Kind: OutcomeFailed, Reason: reason}
	}
	return Outcome{Kind: OutcomeRetry, Reason: reason}
}

// safeRun invokes the executor, converting a panic into an error so a faulty
// executor cannot take the pool down
func (w *Worker) safeRun(ctx context.Context, command string) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Executor panic recovered", "panic", r)
			err = fmt.Errorf("executor panic: %v", r)
		}
	}()

	return w.run(ctx, command)
}

func (w *Worker) cancelled(id string) bool {
	job, err := w.store.Get(id)
	if err != nil {
		return false
	}
	return job.Status == domain.StatusCancelled
}
