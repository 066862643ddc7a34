/*
Package types defines the core data structures used throughout the work
pool.

This package contains the domain model for the dispatch service: repos,
workers, tasks, task artifacts, and audit events, together with the
enumerations, field bounds, and error kinds shared by every other
package.

# Architecture

The types package is the foundation of the pool's data model. It defines:

  - Repo policy (PR throttle, area locks)
  - Worker identity, skills, capacity, and heartbeat state
  - Task lifecycle state and lease fields
  - Artifact evidence attached to finished work
  - Append-only audit events
  - Error kinds mapped to transport responses at the edge

All types are designed to be:
  - Serializable (JSON for the API, TEXT/JSON columns in the store)
  - Write-unsafe (mutations are synchronized by the pool service)
  - Validated (typed string enums, bounds in limits.go)

# Core Types

Repo policy:
  - Repo: task bucket with max_open_prs throttle and area-lock switch

Workers:
  - Worker: registered agent with skills, capacity_points, and
    max_concurrent_tasks budgets
  - WorkerStatus: idle, working, paused (paused excludes from matching)

Tasks:
  - Task: one atomic unit of work with priority, estimate, and lease
  - TaskStatus: ready, leased, in_progress, blocked, pr_opened, merged
  - TaskArtifact: pr_url, commit_sha, patch_url, extra

Audit:
  - Event: monotonic id, timestamp, type tag, actor/repo/task refs

# State Machine

Tasks follow a state machine:

	ready → leased → in_progress → pr_opened → merged
	           ↓        ↓   ↑          ↓
	        blocked ← ──┘   └──────── (reopen)

Valid transitions:
  - ready → leased (matcher assigns a worker)
  - leased/in_progress → ready (lease expiry requeue)
  - leased → in_progress, leased → blocked (worker)
  - in_progress → blocked, in_progress → pr_opened (worker)
  - blocked → in_progress, blocked → pr_opened (worker)
  - pr_opened → merged (terminal), pr_opened → in_progress (reopen)

A merged task is terminal; further updates are rejected. Worker-driven
transitions never touch the lease deadline, so a long-running task still
re-enters ready when its lease expires.

# Online-ness

A worker is online when its last heartbeat is within the heartbeat TTL of
now. Online-ness is derived at snapshot time, never stored; see
Worker.Online.

# Skill Matching

Skill tags are case-insensitive and whitespace-trimmed. NormalizeSkills
canonicalizes inbound tags, and HasAllSkills implements the subset test
used by the matcher. An empty requirement matches any worker.

# Error Kinds

errors.go declares the sentinel errors the pool surfaces: ErrAuthMissing,
ErrAuthInvalid, ErrNotFound, ErrForbidden, ErrBadRequest, and the
matcher-internal ErrConflict. Wrap them with fmt.Errorf("...: %w", err)
and classify with errors.Is.

# Integration Points

This package integrates with:

  - pkg/storage: persists all types to SQLite
  - pkg/scheduler: reads workers and tasks for matching decisions
  - pkg/pool: applies the state machine and validation bounds
  - pkg/api: serializes entities into HTTP responses
  - pkg/events: fans audit events out to live subscribers
*/
package types
