package queue

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobqueue-service/internal/core/domain"
)

func newJob(id string, status domain.Status, createdAt time.Time) domain.Job {
	return domain.Job{
		ID:         id,
		Command:    "echo " + id,
		Priority:   domain.PriorityNormal,
		Status:     status,
		CreatedAt:  createdAt,
		TimeoutMs:  domain.DefaultTimeoutMs,
		MaxRetries: domain.DefaultMaxRetries,
	}
}

func TestInsertAndGet(t *testing.T) {
	s := NewStore()
	job := newJob("a", domain.StatusPending, time.Now())

	require.NoError(t, s.Insert(job))

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, job.Command, got.Command)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestInsertDuplicate(t *testing.T) {
	s := NewStore()
	job := newJob("a", domain.StatusPending, time.Now())

	require.NoError(t, s.Insert(job))
	assert.ErrorIs(t, s.Insert(job), domain.ErrDuplicateID)
}

func TestInsertEmptyID(t *testing.T) {
	s := NewStore()
	assert.ErrorIs(t, s.Insert(domain.Job{}), domain.ErrInvalidArgument)
}

func TestGetNotFound(t *testing.T) {
	s := NewStore()
	_, err := s.Get("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Insert(newJob("a", domain.StatusPending, time.Now())))

	updated, err := s.Update("a", func(j *domain.Job) error {
		j.Status = domain.StatusRunning
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, updated.Status)

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, got.Status)
}

func TestUpdateAbortLeavesRecordUnchanged(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Insert(newJob("a", domain.StatusPending, time.Now())))

	_, err := s.Update("a", func(j *domain.Job) error {
		j.Status = domain.StatusRunning
		return domain.ErrCancelled
	})
	assert.ErrorIs(t, err, domain.ErrCancelled)

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestUpdateNotFound(t *testing.T) {
	s := NewStore()
	_, err := s.Update("missing", func(j *domain.Job) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateSerialisedPerID(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Insert(newJob("a", domain.StatusPending, time.Now())))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update("a", func(j *domain.Job) error {
				j.RetryCount++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 100, got.RetryCount)
}

func TestListSortedByCreatedAtDescending(t *testing.T) {
	s := NewStore()
	base := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Insert(newJob(fmt.Sprintf("job-%d", i), domain.StatusPending, base.Add(time.Duration(i)*time.Second))))
	}

	items, total, err := s.List("", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, items, 5)
	for i := 0; i < len(items)-1; i++ {
		assert.False(t, items[i].CreatedAt.Before(items[i+1].CreatedAt))
	}
}

func TestListFilter(t *testing.T) {
	s := NewStore()
	base := time.Now()

	require.NoError(t, s.Insert(newJob("p1", domain.StatusPending, base)))
	require.NoError(t, s.Insert(newJob("p2", domain.StatusPending, base.Add(time.Second))))
	require.NoError(t, s.Insert(newJob("c1", domain.StatusCompleted, base.Add(2*time.Second))))

	items, total, err := s.List(domain.StatusPending, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, item := range items {
		assert.Equal(t, domain.StatusPending, item.Status)
	}
}

func TestListPagination(t *testing.T) {
	s := NewStore()
	base := time.Now()

	for i := 0; i < 25; i++ {
		require.NoError(t, s.Insert(newJob(fmt.Sprintf("job-%d", i), domain.StatusPending, base.Add(time.Duration(i)*time.Second))))
	}

	items, total, err := s.List("", 10, 20)
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Len(t, items, 5)
}

func TestListOffsetBeyondTotal(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Insert(newJob("a", domain.StatusPending, time.Now())))

	items, total, err := s.List("", 10, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Empty(t, items)
}

func TestListRejectsBadBounds(t *testing.T) {
	s := NewStore()

	_, _, err := s.List("", 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, _, err = s.List("", 10, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestCountByStatus(t *testing.T) {
	s := NewStore()
	base := time.Now()

	require.NoError(t, s.Insert(newJob("p1", domain.StatusPending, base)))
	require.NoError(t, s.Insert(newJob("c1", domain.StatusCompleted, base)))
	require.NoError(t, s.Insert(newJob("c2", domain.StatusCompleted, base)))

	counts := s.CountByStatus()
	assert.Equal(t, 1, counts[domain.StatusPending])
	assert.Equal(t, 2, counts[domain.StatusCompleted])
}

func TestClear(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Insert(newJob("a", domain.StatusPending, time.Now())))

	s.Clear()
	assert.Equal(t, 0, s.Count())
	_, err := s.Get("a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConcurrentInsertUniqueness(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, s.Insert(newJob(fmt.Sprintf("job-%d", n), domain.StatusPending, time.Now())))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1000, s.Count())
}
