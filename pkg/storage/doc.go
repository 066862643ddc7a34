/*
Package storage provides SQLite-backed persistence for the work pool's state.

The storage package implements the Store interface on a single SQLite file,
holding repos, workers, tasks, and an append-only event log. Every mutation
that the rest of the system treats as one step (lease, requeue, status
report, heartbeat) commits its row update and its event in one transaction.

# Architecture

	┌──────────────────── SQLITE STORAGE ───────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐            │
	│  │            SQLiteStore                     │            │
	│  │  - File: <dataDir>/pool.db                 │            │
	│  │  - Driver: mattn/go-sqlite3                │            │
	│  │  - Connections: capped at 1 writer         │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │              Table Layout                  │            │
	│  │  ┌────────────────────────────┐            │            │
	│  │  │ repos    (repo name PK)    │            │            │
	│  │  │ workers  (worker_id PK)    │            │            │
	│  │  │ tasks    (task_id PK)      │            │            │
	│  │  │ events   (autoincrement)   │            │            │
	│  │  └────────────────────────────┘            │            │
	│  └──────────────────┬─────────────────────────┘            │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐            │
	│  │        Encoding Conventions                │            │
	│  │  - Timestamps: fixed-width UTC ISO text    │            │
	│  │  - Skills / artifacts / details: JSON text │            │
	│  │  - Booleans: 0/1 integers                  │            │
	│  │  - Absent values: SQL NULL                 │            │
	│  └────────────────────────────────────────────┘            │
	└────────────────────────────────────────────────────────────┘

# Core Components

SQLiteStore:
  - Implements Store over database/sql with the go-sqlite3 driver
  - Foreign keys enabled; tasks cascade on repo delete, assignments
    null out on worker delete
  - Schema applied idempotently on open (CREATE TABLE IF NOT EXISTS)

Tables:
  - repos: Per-repo dispatch policy (open-PR cap, area locks)
  - workers: Registered workers, their skills, capacity, and token hash
  - tasks: Work items with lease fields and attempt counter
  - events: Append-only audit trail, never updated or deleted

Timestamp Encoding:
  - All times stored as fixed-width UTC ISO-8601 text
  - Fixed width means lexicographic order equals chronological order,
    so lease expiry can be checked with a plain string comparison
  - See pkg/clock for the exact layout

# Ordering Guarantees

The matcher depends on stable, total orderings coming out of this
package:

  - ListReadyTasks: priority DESC, estimate_points ASC, task_id ASC
  - ListWorkers: created_at ASC (registration order)
  - ListRecentTasks: updated_at DESC
  - ListRecentEvents: id DESC (insertion order)

Two runs over the same data produce identical iteration orders, which
keeps assignment decisions reproducible.

# Transactional Operations

LeaseTask:
  - UPDATE guarded by status = 'ready'; zero rows affected means a
    concurrent actor got there first and the caller sees ErrConflict
  - task.leased event committed atomically with the row change

RequeueExpiredLeases:
  - Selects tasks in leased/in_progress whose lease_expires_at is
    strictly before now
  - Resets each to ready, clears the assignment and lease fields, sets
    the requeue message, bumps attempt, and appends task.requeued
  - All requeues of one sweep share a transaction

UpdateTaskStatus:
  - Replaces status, message, and artifact; lease fields are not
    touched so an expired lease still requeues later
  - task.status event committed with the update

UpdateWorkerHeartbeat:
  - Stores the self-reported status and heartbeat time, then appends
    worker.heartbeat with the optional note

# Usage

Opening a store:

	store, err := storage.NewSQLiteStore("/var/lib/owp/pool.db")
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

Creating a repo and a task:

	now := clock.Now(ctx)
	err := store.UpsertRepo("acme/api", 3, true, now)

	task := &types.Task{
		TaskID:         ids.NewTaskID(),
		Repo:           "acme/api",
		Title:          "Fix flaky retry test",
		EstimatePoints: 3,
		Priority:       50,
		RequiredSkills: []string{"go"},
		UpdatedAt:      now,
	}
	err = store.InsertTask(task)

Leasing and requeuing:

	err := store.LeaseTask(task.TaskID, worker.WorkerID, now, now.Add(30*time.Minute))
	if errors.Is(err, types.ErrConflict) {
		// someone else took it; move on
	}

	requeued, err := store.RequeueExpiredLeases(clock.Now(ctx))

# Integration Points

This package integrates with:

  - pkg/scheduler: Reads the ready queue, worker loads, locked areas,
    and open-PR counts; writes leases and requeues
  - pkg/pool: All API-facing mutations route through the Store
  - pkg/types: Entity definitions and error kinds
  - pkg/clock: Timestamp formatting and parsing

# Design Patterns

Error Wrapping:
  - Every failure wrapped with its operation: fmt.Errorf("lease task
    %s: %w", id, err)
  - Missing rows map to types.ErrNotFound so callers can translate to
    HTTP 404 without inspecting SQL errors

Guarded Updates:
  - State-changing UPDATEs carry their precondition in the WHERE
    clause and report conflicts via RowsAffected, never read-then-write

Event Co-commit:
  - Events describing a mutation are inserted inside the mutation's
    transaction, so the audit log never drifts from the row state

Zero-filled Counts:
  - CountsByStatus seeds every status with 0 before scanning, so
    dashboards and metrics see stable key sets

# Performance Characteristics

  - Single connection: SQLite has one writer; capping database/sql at
    one connection avoids SQLITE_BUSY churn under the pool's lock
  - Ready-queue scan: covered by idx_tasks_status_priority
  - Throttle and lock queries: covered by idx_tasks_repo_status
  - Expected scale is thousands of tasks, not millions; full-table
    aggregates (counts by status) stay in the low milliseconds

# See Also

  - pkg/scheduler for how constraint queries feed matching
  - pkg/pool for the serialized operation layer above this package
  - pkg/types for entity and error definitions
*/
package storage
