/*
Package log provides structured logging for the pool using zerolog.

The log package wraps the zerolog library to provide JSON-structured
logging with component-scoped child loggers and a configurable severity
filter. All records carry a timestamp.

# Usage

Initialize once at process start:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

Component loggers carry a stable field for filtering:

	logger := log.WithComponent("scheduler")
	logger.Info().Int("assigned", n).Msg("Cycle complete")

Fields naming a particular worker, task or repo are attached where the
record is emitted:

	logger.Warn().
		Str("task_id", task.TaskID).
		Str("worker_id", workerID).
		Msg("Unexpected status transition")

Console output (JSONOutput: false) is intended for interactive use; JSON
output is intended for production collection.

# Conventions

  - Level "info" for state changes (registrations, leases, requeues)
  - Level "debug" for per-cycle detail (skips, candidate counts)
  - Level "warn" for accepted-but-suspicious input (off-table transitions)
  - Level "error" for storage or transport faults

The global logger is safe for concurrent use.
*/
package log
