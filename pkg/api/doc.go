/*
Package api exposes the pool service over HTTP: a worker-facing surface
for registration, heartbeats, work polling and status reports, an
admin-facing surface for seeding repos and tasks, and an HTML dashboard.

# Architecture

	┌─────────────────────── HTTP SERVER ────────────────────────┐
	│                                                             │
	│  chi router                                                 │
	│  ├── GET  /                    dashboard (HTML)             │
	│  ├── GET  /healthz             {"ok": true}                 │
	│  ├── GET  /health /ready /live component checks             │
	│  ├── GET  /metrics             Prometheus                   │
	│  └── /v1                                                    │
	│      ├── POST /workers/register           (open)            │
	│      ├── POST /workers/heartbeat          (bearer)          │
	│      ├── GET  /work                       (bearer)          │
	│      ├── POST /tasks/{taskID}/status      (bearer)          │
	│      └── /admin                           (X-Admin-Token)   │
	│          ├── POST /repos                                    │
	│          ├── POST /tasks                                    │
	│          └── GET  /state                                    │
	│                                                             │
	│  middleware: recoverer → metrics → request logging          │
	└─────────────────────────────────────────────────────────────┘

# Authentication

Workers authenticate with the bearer token issued at registration; the
server resolves its SHA-256 hash to a worker row. Admin endpoints compare
the X-Admin-Token header against OWP_ADMIN_TOKEN (default "dev-admin",
for development only).

# Error Mapping

Service error kinds become status codes at this edge and nowhere else:

	auth missing / invalid  401
	forbidden               403
	not found               404
	bad request             400
	anything else           500

Bodies are {"error": "..."} with the service's message.

# Field Defaults

Wire fields with server-side defaults are pointers in the request
structs. Omitting capacity_points yields 5; sending an explicit 0 is a
validation error. This keeps "absent" and "zero" distinguishable, which
matters for max_open_prs where 0 is a meaningful value that disables
assignments.

# Usage

	srv := api.NewServer(svc, checker, api.Config{Addr: "127.0.0.1:8787"})
	go srv.Start()
	...
	srv.Shutdown(ctx)

# Integration Points

  - pkg/pool: all operations terminate in the service
  - pkg/metrics: request counters, latency histograms, health checker
  - pkg/log: per-request structured logging
*/
package api
