package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jobqueue-service/internal/core/domain"
	"jobqueue-service/internal/infrastructure/logger"
	"jobqueue-service/internal/infrastructure/metrics"
	"jobqueue-service/internal/infrastructure/queue"
	"jobqueue-service/internal/pkg/pool"
	"jobqueue-service/internal/pkg/utils"
)

// List pagination bounds
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// EnqueueRequest carries the parameters of a new job. Optional fields are
// pointers so that an explicit zero can be told apart from an omitted value.
type EnqueueRequest struct {
	Command    string
	Priority   string
	TimeoutMs  *int
	MaxRetries *int
}

// ListRequest carries the parameters of a filtered job listing
type ListRequest struct {
	Status string
	Limit  int
	Offset int
}

// ListResult is a paginated snapshot of matching jobs
type ListResult struct {
	Items  []domain.Job
	Total  int
	Limit  int
	Offset int
}

// Stats is a point-in-time view of the system for the stats endpoint
type Stats struct {
	Jobs       map[domain.Status]int `json:"jobs"`
	TotalJobs  int                   `json:"total_jobs"`
	QueueDepth int                   `json:"queue_depth"`
	Pool       pool.PoolStats        `json:"pool"`
}

// JobService is the boundary API the HTTP layer consumes. All state lives in
// the store; the service validates input, allocates ids and keeps the queue
// and dispatcher informed.
type JobService struct {
	store      *queue.Store
	queue      *queue.PriorityQueue
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	logger     logger.Logger

	defaultTimeoutMs  int
	defaultMaxRetries int
	queueSoftCapacity int
}

// JobServiceConfig holds enqueue defaults and the queue admission bound
type JobServiceConfig struct {
	DefaultTimeoutMs  int `yaml:"default_timeout_ms"`
	DefaultMaxRetries int `yaml:"default_max_retries"`
	QueueSoftCapacity int `yaml:"queue_soft_capacity"`
}

// NewJobService creates the boundary service
func NewJobService(cfg JobServiceConfig, s *queue.Store, q *queue.PriorityQueue, d *Dispatcher, m *metrics.Metrics, log logger.Logger) *JobService {
	return &JobService{
		store:             s,
		queue:             q,
		dispatcher:        d,
		metrics:           m,
		logger:            log.With("component", "job_service"),
		defaultTimeoutMs:  cfg.DefaultTimeoutMs,
		defaultMaxRetries: cfg.DefaultMaxRetries,
		queueSoftCapacity: cfg.QueueSoftCapacity,
	}
}

// Enqueue validates the request, inserts a pending record and makes it
// visible to the dispatcher. Returns the stored job.
func (s *JobService) Enqueue(req EnqueueRequest) (domain.Job, error) {
	if strings.TrimSpace(req.Command) == "" {
		return domain.Job{}, fmt.Errorf("%w: command is required", domain.ErrInvalidArgument)
	}

	priority, err := domain.ParsePriority(req.Priority)
	if err != nil {
		return domain.Job{}, fmt.Errorf("%w: priority must be one of high, normal, low", domain.ErrInvalidArgument)
	}

	timeoutMs := s.defaultTimeoutMs
	if req.TimeoutMs != nil {
		if *req.TimeoutMs <= 0 {
			return domain.Job{}, fmt.Errorf("%w: timeout must be positive", domain.ErrInvalidArgument)
		}
		timeoutMs = *req.TimeoutMs
	}

	maxRetries := s.defaultMaxRetries
	if req.MaxRetries != nil {
		if *req.MaxRetries < 0 {
			return domain.Job{}, fmt.Errorf("%w: max_retries cannot be negative", domain.ErrInvalidArgument)
		}
		maxRetries = *req.MaxRetries
	}

	job := domain.Job{
		ID:         utils.GenerateID(),
		Command:    req.Command,
		Priority:   priority,
		Status:     domain.StatusPending,
		CreatedAt:  time.Now().UTC(),
		TimeoutMs:  timeoutMs,
		MaxRetries: maxRetries,
	}

	if err := s.store.Insert(job); err != nil {
		s.logger.Error("Failed to insert job", "job_id", job.ID, "error", err)
		return domain.Job{}, err
	}

	s.queue.Push(queue.Ref{ID: job.ID, Priority: job.Priority, CreatedAt: job.CreatedAt})

	depth := s.queue.Size()
	s.metrics.QueueDepth.Set(float64(depth))
	s.metrics.JobsEnqueued.WithLabelValues(string(job.Priority)).Inc()
	if depth > s.queueSoftCapacity {
		s.logger.Warn("Queue depth above soft capacity", "depth", depth, "capacity", s.queueSoftCapacity)
	}

	s.dispatcher.Wake()

	s.logger.Info("Job enqueued", "job_id", job.ID, "priority", job.Priority, "timeout_ms", job.TimeoutMs)
	return job, nil
}

// Get returns the job with the given id
func (s *JobService) Get(id string) (domain.Job, error) {
	return s.store.Get(id)
}

// List returns a filtered, paginated snapshot sorted by creation time
// descending. Limit is clamped to MaxListLimit; zero means the default.
func (s *JobService) List(req ListRequest) (ListResult, error) {
	var filter domain.Status
	if req.Status != "" {
		status, err := domain.ParseStatus(req.Status)
		if err != nil {
			return ListResult{}, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidArgument, req.Status)
		}
		filter = status
	}

	limit := req.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit < 0 {
		return ListResult{}, fmt.Errorf("%w: limit must be positive", domain.ErrInvalidArgument)
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	if req.Offset < 0 {
		return ListResult{}, fmt.Errorf("%w: offset cannot be negative", domain.ErrInvalidArgument)
	}

	items, total, err := s.store.List(filter, limit, req.Offset)
	if err != nil {
		return ListResult{}, err
	}

	return ListResult{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: req.Offset,
	}, nil
}

// Cancel transitions a pending or running job to cancelled. Pending jobs are
// removed from the queue immediately; running jobs are signalled and settle
// at their next cooperative point. Cancelling a terminal job is a no-op that
// returns the current record.
func (s *JobService) Cancel(id string) (domain.Job, error) {
	var prev domain.Status
	now := time.Now().UTC()

	job, err := s.store.Update(id, func(j *domain.Job) error {
		prev = j.Status
		if j.Status.Terminal() {
			return nil
		}
		j.Status = domain.StatusCancelled
		j.CompletedAt = &now
		return nil
	})
	if err != nil {
		return domain.Job{}, err
	}

	switch prev {
	case domain.StatusPending:
		s.queue.Remove(id)
		s.metrics.QueueDepth.Set(float64(s.queue.Size()))
		s.metrics.JobsCancelled.Inc()
		s.logger.Info("Pending job cancelled", "job_id", id)
	case domain.StatusRunning:
		s.dispatcher.AbortJob(id)
		s.logger.Info("Running job cancelled", "job_id", id)
	default:
		s.logger.Debug("Cancel on terminal job is a no-op", "job_id", id, "status", prev)
	}

	return job, nil
}

// Clear stops dispatching, drains the queue and empties the store. Test-only.
func (s *JobService) Clear(ctx context.Context) error {
	s.dispatcher.Pause()
	defer s.dispatcher.Resume()

	dropped := s.queue.Drain()
	s.store.Clear()
	s.metrics.QueueDepth.Set(0)

	s.logger.Warn("Store cleared", "dropped_refs", len(dropped))
	return ctx.Err()
}

// Stats returns counts per status, queue depth and pool occupancy
func (s *JobService) Stats() Stats {
	counts := s.store.CountByStatus()
	total := 0
	for _, n := range counts {
		total += n
	}

	return Stats{
		Jobs:       counts,
		TotalJobs:  total,
		QueueDepth: s.queue.Size(),
		Pool:       s.dispatcher.pool.Stats(),
	}
}
