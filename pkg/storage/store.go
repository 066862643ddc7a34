package storage

import (
	"time"

	"github.com/cbruyndoncx/open-work-protocol/pkg/types"
)

// Store defines the interface for pool state storage.
// Implemented by the SQLite-backed store in this package.
//
// Callers are responsible for serializing write access; every operation
// below is atomic on its own, and the pool service holds one exclusive
// lock across each logical operation so that multi-step reads observe a
// consistent snapshot.
type Store interface {
	// Repos
	UpsertRepo(repo string, maxOpenPRs int, areaLocksEnabled bool, now time.Time) error
	GetRepo(repo string) (*types.Repo, error)
	ListRepos() ([]*types.Repo, error)

	// Workers
	InsertWorker(w *types.Worker) error
	WorkerByID(id string) (*types.Worker, error)
	WorkerByTokenHash(hash string) (*types.Worker, error)
	ListWorkers() ([]*types.Worker, error)
	UpdateWorkerHeartbeat(workerID string, status types.WorkerStatus, note string, at time.Time) error

	// Tasks
	InsertTask(t *types.Task) error
	GetTask(id string) (*types.Task, error)
	ListReadyTasks() ([]*types.Task, error)
	ListTasksForWorker(workerID string) ([]*types.Task, error)
	ListRecentTasks(limit int) ([]*types.Task, error)
	LeaseTask(taskID, workerID string, now, expires time.Time) error
	UpdateTaskStatus(taskID, actorWorkerID string, status types.TaskStatus, message string, artifact *types.TaskArtifact, at time.Time) error
	RequeueExpiredLeases(now time.Time) (int, error)

	// Constraint queries used by the matcher
	WorkerLoad(workerID string) (points int, tasks int, err error)
	LockedAreas(repo string) (map[string]bool, error)
	CountOpenPRs(repo string) (int, error)
	CountsByStatus() (map[types.TaskStatus]int, error)

	// Events
	LogEvent(e *types.Event) error
	ListRecentEvents(limit int) ([]*types.Event, error)

	// Utility
	Close() error
}
