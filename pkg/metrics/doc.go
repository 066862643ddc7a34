/*
Package metrics provides Prometheus metrics and health endpoints for the pool.

All metrics carry the owp_ prefix and register themselves at package load;
the server mounts Handler() at /metrics. A background Collector samples
store-derived gauges, while counters are bumped inline where the work
happens.

# Metric Groups

Pool state (gauges, sampled every 15s by the Collector):

	owp_workers_total{status}     registered workers by self-reported status
	owp_workers_online            workers with a fresh heartbeat
	owp_repos_total               configured repos
	owp_tasks_total{status}       tasks by lifecycle status

API (bumped by the HTTP middleware):

	owp_api_requests_total{method,status}
	owp_api_request_duration_seconds{method}

Scheduler (bumped after each cycle):

	owp_scheduler_cycles_total
	owp_scheduler_cycle_duration_seconds
	owp_tasks_assigned_total
	owp_tasks_requeued_total
	owp_tasks_skipped_total{reason}    reason: throttle | area_lock | no_worker

# Usage

Serving metrics:

	mux.Handle("/metrics", metrics.Handler())

Timing an operation:

	timer := metrics.NewTimer()
	stats, err := matcher.RunCycle(ctx)
	timer.ObserveDuration(metrics.CycleDuration)

Recording cycle outcomes:

	metrics.CyclesTotal.Inc()
	metrics.TasksAssigned.Add(float64(stats.Assigned))
	metrics.TasksSkipped.WithLabelValues(metrics.SkipReasonThrottle).
		Add(float64(stats.SkippedThrottle))

# Health Endpoints

Checker tracks component health pushed from around the process and backs
three endpoints:

	/health   overall: 503 if any reported component is unhealthy
	/ready    critical set only: 503 until store and scheduler report
	/live     always 200 while the process runs

	checker := metrics.NewChecker(version, "store", "scheduler")
	checker.SetComponent("store", true, "sqlite open")
	mux.Get("/health", checker.HealthHandler())

# Integration Points

  - pkg/api mounts the handlers and bumps the API counters
  - pkg/pool records scheduler counters after each cycle
  - pkg/storage state feeds the Collector's gauges
*/
package metrics
