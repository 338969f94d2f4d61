package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors
type Metrics struct {
	registry *prometheus.Registry

	JobsEnqueued  *prometheus.CounterVec
	JobsCompleted prometheus.Counter
	JobsFailed    prometheus.Counter
	JobsRetried   prometheus.Counter
	JobsCancelled prometheus.Counter

	QueueDepth    prometheus.Gauge
	WorkersActive prometheus.Gauge
	WorkersBusy   prometheus.Gauge
}

// New creates and registers the service collectors on a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		JobsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobqueue_jobs_enqueued_total",
			Help: "Jobs accepted by the boundary API, by priority.",
		}, []string{"priority"}),
		JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobqueue_jobs_completed_total",
			Help: "Jobs that reached the completed state.",
		}),
		JobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobqueue_jobs_failed_total",
			Help: "Jobs that reached the failed state after exhausting retries.",
		}),
		JobsRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobqueue_jobs_retried_total",
			Help: "Execution attempts that failed and were requeued.",
		}),
		JobsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobqueue_jobs_cancelled_total",
			Help: "Jobs cancelled by clients.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobqueue_queue_depth",
			Help: "Number of pending job references in the priority queue.",
		}),
		WorkersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobqueue_workers_active",
			Help: "Live workers in the pool, idle and busy.",
		}),
		WorkersBusy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobqueue_workers_busy",
			Help: "Workers currently executing a job.",
		}),
	}

	registry.MustRegister(
		m.JobsEnqueued,
		m.JobsCompleted,
		m.JobsFailed,
		m.JobsRetried,
		m.JobsCancelled,
		m.QueueDepth,
		m.WorkersActive,
		m.WorkersBusy,
	)

	return m
}

// Handler returns the exposition handler for the /metrics route
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
