package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pool state metrics
	WorkersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "owp_workers_total",
			Help: "Total number of registered workers by self-reported status",
		},
		[]string{"status"},
	)

	WorkersOnline = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "owp_workers_online",
			Help: "Number of workers with a fresh heartbeat",
		},
	)

	ReposTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "owp_repos_total",
			Help: "Total number of configured repos",
		},
	)

	TasksTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "owp_tasks_total",
			Help: "Total number of tasks by status",
		},
		[]string{"status"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owp_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "owp_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Scheduler metrics
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "owp_scheduler_cycles_total",
			Help: "Total number of scheduling cycles run",
		},
	)

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "owp_scheduler_cycle_duration_seconds",
			Help:    "Scheduling cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	TasksAssigned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "owp_tasks_assigned_total",
			Help: "Total number of task leases handed out",
		},
	)

	TasksRequeued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "owp_tasks_requeued_total",
			Help: "Total number of tasks requeued after lease expiry",
		},
	)

	TasksSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owp_tasks_skipped_total",
			Help: "Total number of assignment skips by reason",
		},
		[]string{"reason"},
	)
)

// Skip reason label values for TasksSkipped.
const (
	SkipReasonThrottle = "throttle"
	SkipReasonAreaLock = "area_lock"
	SkipReasonNoWorker = "no_worker"
)

func init() {
	// Register all metrics
	prometheus.MustRegister(WorkersTotal)
	prometheus.MustRegister(WorkersOnline)
	prometheus.MustRegister(ReposTotal)
	prometheus.MustRegister(TasksTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(CyclesTotal)
	prometheus.MustRegister(CycleDuration)
	prometheus.MustRegister(TasksAssigned)
	prometheus.MustRegister(TasksRequeued)
	prometheus.MustRegister(TasksSkipped)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
