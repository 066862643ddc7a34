/*
Package client is the Go client for the pool's HTTP API. The CLI is
built on it, and external tools that drive the pool programmatically can
use it directly.

# Architecture

	┌──────────────────────── CLIENT ─────────────────────────┐
	│                                                          │
	│  Client                                                  │
	│  ├── open:    Healthz, Register                          │
	│  ├── worker:  Heartbeat, PullWork, UpdateTaskStatus      │
	│  └── admin:   UpsertRepo, CreateTask, State              │
	│                                                          │
	│  every call: marshal → POST/GET → retry policy → decode  │
	│                                                          │
	│  Credentials ──── ~/.config/owp-pool/config.json         │
	└──────────────────────────────────────────────────────────┘

# Authentication

The three constructors map to the server's three access levels.
NewClient reaches only the open endpoints. NewWorkerClient sends the
worker's bearer token on every request. NewAdminClient sends the shared
admin token in the X-Admin-Token header.

# Retry Behavior

Connection failures and gateway statuses (502, 503, 504) are retried
with exponential backoff, on the assumption that the pool service never
saw the request. Anything else is returned immediately as an *APIError:
a plain 500 is never replayed, because the server may have applied the
request before failing, and replaying a task creation would enqueue it
twice.

# Credentials File

Register is the only call that ever returns a worker token. The token is
stored hashed on the server, so it cannot be recovered later; callers
persist it with SaveCredentials, which writes
$XDG_CONFIG_HOME/owp-pool/config.json (or ~/.config/owp-pool/config.json)
with owner-only permissions:

	{
	  "server": "http://127.0.0.1:8787",
	  "worker_id": "w_1a2b3c4d5e6f",
	  "token": "..."
	}

# Usage

	creds, err := client.NewClient(server).Register(client.RegisterRequest{
		Name:               "builder-1",
		Skills:             []string{"go", "sql"},
		CapacityPoints:     5,
		MaxConcurrentTasks: 2,
	})
	if err != nil {
		return err
	}
	if _, err := client.SaveCredentials(creds); err != nil {
		return err
	}

	c := client.NewWorkerClient(creds.Server, creds.Token)
	work, err := c.PullWork()
	for _, lease := range work.Leases {
		// do the work, then report:
		err = c.UpdateTaskStatus(lease.TaskID, "pr_opened", "opened PR",
			&types.TaskArtifact{PRURL: "https://github.com/acme/api/pull/7"})
	}

# Integration Points

  - pkg/api: the server side of this wire format
  - pkg/types: shared artifact shape for status reports
  - cmd/owp: worker and admin subcommands built on this package
*/
package client
