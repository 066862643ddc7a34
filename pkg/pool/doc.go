/*
Package pool is the coordination core of the work pool: one Service owns
every mutation of repos, workers and tasks, and every scheduling cycle.

# Architecture

	                    ┌──────────────┐
	     HTTP / CLI ──▶ │   Service    │ ──▶ storage.Store (SQLite)
	                    │ (sync.Mutex) │
	                    └──────┬───────┘
	                           │ after each mutation
	                           ▼
	                    scheduler.Matcher ──▶ leases, requeues
	                           │
	                           ▼
	                    events.Broker (live fan-out)

# Core Components

Service serializes all writes behind one mutex. SQLite already funnels
statements through a single connection; the service lock widens that to
whole logical operations, so multi-step reads and the matcher's snapshot
never interleave with a mutation.

Every successful mutation triggers a synchronous scheduling cycle before
the call returns. A worker that heartbeats, an admin that seeds a task
and a worker that reports a merge all observe their side effects already
scheduled. The cycle runs inside the same lock hold; its failure is
logged and swallowed because the mutation itself has already committed.

# Operations

	svc := pool.NewService(store, broker, pool.DefaultConfig())

	repo, err := svc.CreateRepo(ctx, "acme/api", 3, true)
	w, token, err := svc.RegisterWorker(ctx, pool.RegisterParams{...})
	err = svc.Heartbeat(ctx, w.WorkerID, types.WorkerIdle, "")
	tasks, err := svc.WorkFor(ctx, w.WorkerID)
	err = svc.UpdateTaskStatus(ctx, w.WorkerID, pool.StatusParams{...})

WorkFor runs a cycle before reading, so a polling worker picks up
assignments made for it in the same call.

# Authorization Model

AuthenticateWorker maps a raw bearer token to its worker via the stored
SHA-256 hash. Status reports additionally require that the task is
assigned to the calling worker; anything else is rejected with
types.ErrForbidden. Reports that skip lifecycle steps are applied but
logged, since they usually mean out-of-band recovery rather than abuse.

# Validation

Callers pass fully resolved parameters; transports apply field defaults
before calling in. The service enforces bounds strictly and wraps every
violation in types.ErrBadRequest with a field-specific message.

# Integration Points

  - pkg/storage: all persistence
  - pkg/scheduler: matching cycles and lease expiry
  - pkg/events: live event fan-out to subscribers
  - pkg/metrics: cycle counters and durations
  - pkg/api: HTTP transport over this service
*/
package pool
