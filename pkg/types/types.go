package types

import (
	"sort"
	"strings"
	"time"
)

// Repo is an administrative bucket of tasks with its own throttle and
// area-lock policy.
type Repo struct {
	Repo             string    `json:"repo"`
	MaxOpenPRs       int       `json:"max_open_prs"`
	AreaLocksEnabled bool      `json:"area_locks_enabled"`
	CreatedAt        time.Time `json:"created_at"`
}

// Worker is a long-running remote agent that holds task leases and
// reports progress. The raw bearer token issued at registration is never
// stored; only its SHA-256 hash is.
type Worker struct {
	WorkerID           string       `json:"worker_id"`
	Name               string       `json:"name"`
	GithubHandle       string       `json:"github_handle,omitempty"`
	Skills             []string     `json:"skills"`
	CapacityPoints     int          `json:"capacity_points"`
	MaxConcurrentTasks int          `json:"max_concurrent_tasks"`
	Status             WorkerStatus `json:"status"`
	LastHeartbeat      *time.Time   `json:"last_heartbeat"`
	TokenHash          string       `json:"-"`
	Reputation         float64      `json:"reputation"`
	CreatedAt          time.Time    `json:"created_at"`
}

// WorkerStatus is the worker's self-reported state.
type WorkerStatus string

const (
	WorkerIdle    WorkerStatus = "idle"
	WorkerWorking WorkerStatus = "working"
	WorkerPaused  WorkerStatus = "paused"
)

// ValidWorkerStatus reports whether s is one of the known worker states.
func ValidWorkerStatus(s WorkerStatus) bool {
	switch s {
	case WorkerIdle, WorkerWorking, WorkerPaused:
		return true
	}
	return false
}

// Online reports whether the worker's last heartbeat is within ttl of now.
// A worker that has never heartbeated is offline.
func (w *Worker) Online(now time.Time, ttl time.Duration) bool {
	if w.LastHeartbeat == nil {
		return false
	}
	return now.Sub(*w.LastHeartbeat) <= ttl
}

// Task is one atomic unit of work inside a repo.
type Task struct {
	TaskID           string        `json:"task_id"`
	Repo             string        `json:"repo"`
	Title            string        `json:"title"`
	Description      string        `json:"description,omitempty"`
	EstimatePoints   int           `json:"estimate_points"`
	Priority         int           `json:"priority"`
	RequiredSkills   []string      `json:"required_skills"`
	Area             string        `json:"area,omitempty"`
	Tier             int           `json:"tier"`
	Status           TaskStatus    `json:"status"`
	AssignedWorkerID string        `json:"assigned_worker_id,omitempty"`
	LeasedAt         *time.Time    `json:"leased_at"`
	LeaseExpiresAt   *time.Time    `json:"lease_expires_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	Message          string        `json:"message,omitempty"`
	Artifact         *TaskArtifact `json:"artifact,omitempty"`
	Attempt          int           `json:"attempt"`
}

// TaskStatus is a task's position in the lifecycle state machine.
type TaskStatus string

const (
	TaskReady      TaskStatus = "ready"
	TaskLeased     TaskStatus = "leased"
	TaskInProgress TaskStatus = "in_progress"
	TaskBlocked    TaskStatus = "blocked"
	TaskPROpened   TaskStatus = "pr_opened"
	TaskMerged     TaskStatus = "merged"
)

// HeldStatuses are the states in which a task is assigned to a worker and
// reported back by the work-pull endpoint.
var HeldStatuses = []TaskStatus{TaskLeased, TaskInProgress, TaskBlocked, TaskPROpened}

// LoadStatuses are the states that count against a worker's capacity and
// concurrency budgets and that hold area locks.
var LoadStatuses = []TaskStatus{TaskLeased, TaskInProgress}

// WorkerTargets are the only states a worker may report a task into.
var WorkerTargets = []TaskStatus{TaskInProgress, TaskBlocked, TaskPROpened, TaskMerged}

// ValidTaskStatus reports whether s is one of the known task states.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskReady, TaskLeased, TaskInProgress, TaskBlocked, TaskPROpened, TaskMerged:
		return true
	}
	return false
}

// WorkerReportable reports whether a worker is permitted to target s in a
// status update.
func WorkerReportable(s TaskStatus) bool {
	for _, t := range WorkerTargets {
		if s == t {
			return true
		}
	}
	return false
}

// lifecycle lists the transitions a well-behaved worker walks through.
// Reports that fall outside it are still applied; they usually mean a
// worker recovered out of band (rebased a closed PR, resumed after a
// manual requeue) and are worth a log line, not a rejection.
var lifecycle = map[TaskStatus][]TaskStatus{
	TaskLeased:     {TaskInProgress, TaskBlocked},
	TaskInProgress: {TaskBlocked, TaskPROpened},
	TaskBlocked:    {TaskInProgress, TaskPROpened},
	TaskPROpened:   {TaskMerged, TaskInProgress},
}

// ExpectedTransition reports whether moving a task from one status to
// the other is part of the normal lifecycle.
func ExpectedTransition(from, to TaskStatus) bool {
	for _, t := range lifecycle[from] {
		if to == t {
			return true
		}
	}
	return false
}

// TaskArtifact is worker-supplied evidence of completion. The most
// important field is PRURL; the rest travel with it for audit.
type TaskArtifact struct {
	PRURL     string         `json:"pr_url,omitempty"`
	CommitSHA string         `json:"commit_sha,omitempty"`
	PatchURL  string         `json:"patch_url,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Event is one append-only audit record. IDs are assigned by the store
// and increase monotonically.
type Event struct {
	ID            int64          `json:"id"`
	TS            time.Time      `json:"ts"`
	Type          string         `json:"type"`
	ActorWorkerID string         `json:"actor_worker_id,omitempty"`
	Repo          string         `json:"repo,omitempty"`
	TaskID        string         `json:"task_id,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// Event type tags as written to the event log.
const (
	EventWorkerRegister  = "worker.register"
	EventWorkerHeartbeat = "worker.heartbeat"
	EventRepoUpsert      = "repo.upsert"
	EventTaskCreate      = "task.create"
	EventTaskLeased      = "task.leased"
	EventTaskStatus      = "task.status"
	EventTaskRequeued    = "task.requeued"
)

// NormalizeSkills lowercases and trims skill tags, dropping empties and
// duplicates. The result is sorted so that two equal sets compare equal.
func NormalizeSkills(skills []string) []string {
	seen := make(map[string]bool, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// SkillSet converts a normalized skill slice into a lookup set.
func SkillSet(skills []string) map[string]bool {
	set := make(map[string]bool, len(skills))
	for _, s := range skills {
		set[strings.ToLower(strings.TrimSpace(s))] = true
	}
	return set
}

// HasAllSkills reports whether every required tag is present in the
// worker's skill set. An empty requirement matches any worker.
func HasAllSkills(workerSkills, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := SkillSet(workerSkills)
	for _, r := range required {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if !set[r] {
			return false
		}
	}
	return true
}
