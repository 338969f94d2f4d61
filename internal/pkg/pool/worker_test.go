package pool

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobqueue-service/internal/core/domain"
	"jobqueue-service/internal/core/executor"
	"jobqueue-service/internal/infrastructure/logger"
	"jobqueue-service/internal/infrastructure/queue"
)

func pendingJob(t *testing.T, s *queue.Store, id string, timeoutMs, maxRetries, retryCount int) domain.Job {
	t.Helper()
	job := domain.Job{
		ID:         id,
		Command:    "echo hi",
		Priority:   domain.PriorityNormal,
		Status:     domain.StatusPending,
		CreatedAt:  time.Now().UTC(),
		TimeoutMs:  timeoutMs,
		MaxRetries: maxRetries,
		RetryCount: retryCount,
	}
	require.NoError(t, s.Insert(job))
	return job
}

func TestExecuteSuccess(t *testing.T) {
	s := queue.NewStore()
	job := pendingJob(t, s, "a", 1000, 0, 0)
	w := NewWorker(1, executor.Echo(0), s, logger.Nop())

	outcome := w.Execute(context.Background(), job)

	assert.Equal(t, OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "echo hi", outcome.Output)

	stored, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, stored.Status)
	require.NotNil(t, stored.StartedAt)
}

func TestExecuteFailureWithRetriesLeft(t *testing.T) {
	s := queue.NewStore()
	job := pendingJob(t, s, "a", 1000, 2, 0)
	failing := func(ctx context.Context, command string) (string, error) {
		return "", errors.New("exit status 1")
	}
	w := NewWorker(1, failing, s, logger.Nop())

	outcome := w.Execute(context.Background(), job)

	assert.Equal(t, OutcomeRetry, outcome.Kind)
	assert.Contains(t, outcome.Reason, "exit status 1")
}

func TestExecuteFailureExhausted(t *testing.T) {
	s := queue.NewStore()
	job := pendingJob(t, s, "a", 1000, 2, 2)
	failing := func(ctx context.Context, command string) (string, error) {
		return "", errors.New("exit status 1")
	}
	w := NewWorker(1, failing, s, logger.Nop())

	outcome := w.Execute(context.Background(), job)

	assert.Equal(t, OutcomeFailed, outcome.Kind)
}

func TestExecuteTimeout(t *testing.T) {
	s := queue.NewStore()
	job := pendingJob(t, s, "a", 50, 0, 0)
	w := NewWorker(1, executor.Echo(500*time.Millisecond), s, logger.Nop())

	start := time.Now()
	outcome := w.Execute(context.Background(), job)
	elapsed := time.Since(start)

	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.Contains(t, outcome.Reason, "job timed out after 50 ms")
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestExecutePanicRecovered(t *testing.T) {
	s := queue.NewStore()
	job := pendingJob(t, s, "a", 1000, 0, 0)
	panicking := func(ctx context.Context, command string) (string, error) {
		panic("boom")
	}
	w := NewWorker(1, panicking, s, logger.Nop())

	var outcome Outcome
	require.NotPanics(t, func() {
		outcome = w.Execute(context.Background(), job)
	})

	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.Contains(t, outcome.Reason, "executor panic")
}

func TestExecuteDropsCancelledJob(t *testing.T) {
	s := queue.NewStore()
	job := pendingJob(t, s, "a", 1000, 0, 0)

	now := time.Now().UTC()
	_, err := s.Update("a", func(j *domain.Job) error {
		j.Status = domain.StatusCancelled
		j.CompletedAt = &now
		return nil
	})
	require.NoError(t, err)

	ran := false
	w := NewWorker(1, func(ctx context.Context, command string) (string, error) {
		ran = true
		return "", nil
	}, s, logger.Nop())

	outcome := w.Execute(context.Background(), job)

	assert.Equal(t, OutcomeCancelled, outcome.Kind)
	assert.False(t, ran, "executor must not run for a cancelled job")

	stored, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, stored.Status)
	assert.Nil(t, stored.StartedAt)
}

func TestExecuteCancelDuringRunWins(t *testing.T) {
	s := queue.NewStore()
	job := pendingJob(t, s, "a", 5000, 0, 0)

	release := make(chan struct{})
	w := NewWorker(1, func(ctx context.Context, command string) (string, error) {
		<-release
		return "late output", nil
	}, s, logger.Nop())

	done := make(chan Outcome, 1)
	go func() {
		done <- w.Execute(context.Background(), job)
	}()

	// Wait for the running transition, then cancel behind the worker's back.
	require.Eventually(t, func() bool {
		stored, err := s.Get("a")
		return err == nil && stored.Status == domain.StatusRunning
	}, time.Second, 5*time.Millisecond)

	now := time.Now().UTC()
	_, err := s.Update("a", func(j *domain.Job) error {
		j.Status = domain.StatusCancelled
		j.CompletedAt = &now
		return nil
	})
	require.NoError(t, err)
	close(release)

	outcome := <-done
	assert.Equal(t, OutcomeCancelled, outcome.Kind)

	stored, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, stored.Status)
}

func TestExecuteRetryCountClassification(t *testing.T) {
	tests := []struct {
		name       string
		retryCount int
		maxRetries int
		expected   OutcomeKind
	}{
		{"first failure with budget", 0, 3, OutcomeRetry},
		{"last retry", 2, 3, OutcomeRetry},
		{"budget spent", 3, 3, OutcomeFailed},
		{"zero retries", 0, 0, OutcomeFailed},
	}

	failing := func(ctx context.Context, command string) (string, error) {
		return "", errors.New("nope")
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := queue.NewStore()
			job := pendingJob(t, s, fmt.Sprintf("job-%d", i), 1000, tt.maxRetries, tt.retryCount)
			w := NewWorker(1, failing, s, logger.Nop())

			outcome := w.Execute(context.Background(), job)
			assert.Equal(t, tt.expected, outcome.Kind)
		})
	}
}
