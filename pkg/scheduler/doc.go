/*
Package scheduler provides greedy task-to-worker matching for the work pool.

The scheduler is responsible for handing ready tasks to eligible online
workers while respecting per-repo review throttles, per-repo area locks, and
per-worker capacity budgets. It runs as a periodic background process and is
also invoked synchronously after API mutations so dispatch decisions never
wait for the next tick.

# Architecture

The matcher operates on a fixed interval (5 seconds by default), and every
cycle is a pure function of the store's current contents:

	┌────────────────────────────────────────────────────────────┐
	│                    Scheduling Cycle                        │
	└────────────────┬───────────────────────────────────────────┘
	                 │
	                 ▼
	┌────────────────────────────────────────────────────────────┐
	│  1. Requeue expired leases (strictly past their deadline)  │
	│  2. Snapshot repos, workers, loads, locks, open-PR counts  │
	│  3. For each ready task (priority order):                  │
	│     • Repo throttle check  ──▶ skipped_throttle            │
	│     • Area lock check      ──▶ skipped_area_lock           │
	│     • Candidate selection  ──▶ skipped_no_worker           │
	│     • Lease to best worker ──▶ assigned                    │
	│  4. Update in-memory snapshot and continue                 │
	└────────────────────────────────────────────────────────────┘

Within one cycle the snapshot is the single source of truth: leases handed
out earlier in the cycle immediately count against worker budgets and area
locks for later tasks, but open-PR counts only move when workers actually
report pr_opened.

# Core Components

Matcher: One cycle's worth of matching logic.

	matcher := scheduler.NewMatcher(store, scheduler.DefaultConfig())
	stats, err := matcher.RunCycle(ctx)

The matcher holds no state between cycles and takes no locks; callers
serialize it against other mutations.

Driver: The background loop.

	driver := scheduler.NewDriver(service, 5*time.Second)
	driver.Start()
	defer driver.Stop()

A failed cycle is logged and the loop keeps ticking. Stop waits for the
in-flight cycle to finish so shutdown never truncates a lease write.

Config: Cycle tunables.

	cfg := scheduler.Config{
		LeaseTTL:     30 * time.Minute,
		HeartbeatTTL: 90 * time.Second,
	}

# Task Ordering

Ready tasks are matched in a fixed total order:

 1. priority descending (urgent work first)
 2. estimate_points ascending (small work drains first within a priority)
 3. task_id ascending (stable tie-break)

The ordering comes from the store query, so two cycles over identical data
visit tasks identically.

# Worker Eligibility

A worker can take a task only if all of these hold:

  - online: heartbeated within HeartbeatTTL of the cycle's now
  - not paused: self-reported status is idle or working
  - skills: every required skill tag appears in the worker's set
    (case-insensitive; a task with no requirements matches anyone)
  - capacity: used_points + estimate_points <= capacity_points
  - concurrency: used_tasks + 1 <= max_concurrent_tasks

used_points and used_tasks count leased and in_progress work only. Blocked
and pr_opened tasks stay assigned but stop consuming budget, so a worker
waiting on review can pick up new work.

# Worker Ranking

Among eligible workers the matcher picks by, in order:

 1. lowest used_points (least loaded)
 2. fewest held tasks
 3. highest reputation
 4. earliest last heartbeat string

Workers are scanned in registration order and ties keep the first seen, so
the choice is deterministic for any store state.

# Repo Gates

Throttle: a repo with max_open_prs = 0 accepts no new assignments at all;
otherwise assignment stops while count(pr_opened) >= max_open_prs. Tasks
skipped this way stay ready and are revisited every cycle.

Area locks: when a repo has area_locks_enabled, at most one task per
non-empty area may sit in leased or in_progress. Assignments made earlier
in the same cycle lock their area for the rest of the cycle.

A task whose repo has no policy row is silently left in ready; it is not
counted in any skip bucket.

# Lease Lifecycle

Assignment writes lease fields in one guarded update:

	status            ready ──▶ leased
	assigned_worker_id         worker
	leased_at                  cycle now
	lease_expires_at           cycle now + LeaseTTL

Every cycle starts by requeuing tasks in leased or in_progress whose
lease_expires_at is strictly before now: status returns to ready, the
assignment and lease fields clear, attempt increments, and the message
notes the requeue. A deadline exactly equal to now is not yet expired.

Status reports never touch lease fields, so a task driven to in_progress
still requeues if the worker goes quiet.

# Cycle Stats

RunCycle returns counters for observability:

	Stats{
		Requeued:        1,  // leases reclaimed this cycle
		Assigned:        4,  // new leases handed out
		SkippedThrottle: 2,  // blocked by open-PR caps
		SkippedAreaLock: 1,  // blocked by a held area
		SkippedNoWorker: 3,  // no eligible worker right now
	}

A task is counted in at most one bucket per cycle, in the order the gates
are checked.

# Integration Points

This package integrates with:

  - pkg/storage: ready queue, loads, locks, counts, lease and requeue writes
  - pkg/pool: wraps RunCycle with the service mutex and triggers cycles
    after mutations
  - pkg/metrics: cycle stats feed the Prometheus counters
  - pkg/clock: cycle timestamps honor context time overrides in tests

# See Also

  - pkg/storage for the queries behind the snapshot
  - pkg/pool for when cycles run
  - pkg/types for the task state machine
*/
package scheduler
