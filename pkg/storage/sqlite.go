package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cbruyndoncx/open-work-protocol/pkg/clock"
	"github.com/cbruyndoncx/open-work-protocol/pkg/types"
)

// SQLiteStore implements Store backed by a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) the pool database at path
// and ensures the schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection keeps SQLite's writer happy; the pool service
	// serializes logical operations above this anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---- repos ----

// UpsertRepo inserts or updates a repo's policy. created_at is preserved
// on conflict.
func (s *SQLiteStore) UpsertRepo(repo string, maxOpenPRs int, areaLocksEnabled bool, now time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO repos(repo, max_open_prs, area_locks_enabled, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(repo) DO UPDATE SET
		  max_open_prs = excluded.max_open_prs,
		  area_locks_enabled = excluded.area_locks_enabled`,
		repo, maxOpenPRs, boolToInt(areaLocksEnabled), clock.FormatISO(now))
	if err != nil {
		return fmt.Errorf("upsert repo %s: %w", repo, err)
	}
	return nil
}

func (s *SQLiteStore) GetRepo(repo string) (*types.Repo, error) {
	row := s.db.QueryRow(`
		SELECT repo, max_open_prs, area_locks_enabled, created_at
		FROM repos WHERE repo = ?`, repo)
	r, err := scanRepo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("repo %s: %w", repo, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get repo %s: %w", repo, err)
	}
	return r, nil
}

func (s *SQLiteStore) ListRepos() ([]*types.Repo, error) {
	rows, err := s.db.Query(`
		SELECT repo, max_open_prs, area_locks_enabled, created_at
		FROM repos ORDER BY repo ASC`)
	if err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}
	defer rows.Close()

	var repos []*types.Repo
	for rows.Next() {
		r, err := scanRepo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repo: %w", err)
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

// ---- workers ----

func (s *SQLiteStore) InsertWorker(w *types.Worker) error {
	skills, err := json.Marshal(w.Skills)
	if err != nil {
		return fmt.Errorf("encode skills: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO workers(worker_id, name, github_handle, skills_json, capacity_points,
		  max_concurrent_tasks, status, last_heartbeat, token_hash, reputation, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.WorkerID, w.Name, nullString(w.GithubHandle), string(skills), w.CapacityPoints,
		w.MaxConcurrentTasks, string(w.Status), nullTime(w.LastHeartbeat), w.TokenHash,
		w.Reputation, clock.FormatISO(w.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert worker %s: %w", w.WorkerID, err)
	}
	return nil
}

const workerColumns = `worker_id, name, github_handle, skills_json, capacity_points,
  max_concurrent_tasks, status, last_heartbeat, token_hash, reputation, created_at`

func (s *SQLiteStore) WorkerByID(id string) (*types.Worker, error) {
	row := s.db.QueryRow(`SELECT `+workerColumns+` FROM workers WHERE worker_id = ?`, id)
	w, err := scanWorker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("worker %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get worker %s: %w", id, err)
	}
	return w, nil
}

func (s *SQLiteStore) WorkerByTokenHash(hash string) (*types.Worker, error) {
	row := s.db.QueryRow(`SELECT `+workerColumns+` FROM workers WHERE token_hash = ?`, hash)
	w, err := scanWorker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get worker by token hash: %w", err)
	}
	return w, nil
}

func (s *SQLiteStore) ListWorkers() ([]*types.Worker, error) {
	rows, err := s.db.Query(`SELECT ` + workerColumns + ` FROM workers ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()

	var workers []*types.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

// UpdateWorkerHeartbeat records a heartbeat and the self-reported status,
// and appends a worker.heartbeat event carrying the optional note.
func (s *SQLiteStore) UpdateWorkerHeartbeat(workerID string, status types.WorkerStatus, note string, at time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin heartbeat tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE workers SET status = ?, last_heartbeat = ? WHERE worker_id = ?`,
		string(status), clock.FormatISO(at), workerID)
	if err != nil {
		return fmt.Errorf("update heartbeat for %s: %w", workerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("heartbeat rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("worker %s: %w", workerID, types.ErrNotFound)
	}

	details := map[string]any{"status": string(status), "note": note}
	if err := insertEvent(tx, at, types.EventWorkerHeartbeat, workerID, "", "", details); err != nil {
		return err
	}
	return tx.Commit()
}

// ---- tasks ----

func (s *SQLiteStore) InsertTask(t *types.Task) error {
	skills, err := json.Marshal(t.RequiredSkills)
	if err != nil {
		return fmt.Errorf("encode required skills: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO tasks(task_id, repo, title, description, estimate_points, priority,
		  required_skills_json, area, tier, status, assigned_worker_id, leased_at,
		  lease_expires_at, updated_at, message, artifact_json, attempt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, NULL, ?, NULL, NULL, 0)`,
		t.TaskID, t.Repo, t.Title, nullString(t.Description), t.EstimatePoints, t.Priority,
		string(skills), nullString(t.Area), t.Tier, string(types.TaskReady),
		clock.FormatISO(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert task %s: %w", t.TaskID, err)
	}
	return nil
}

const taskColumns = `task_id, repo, title, description, estimate_points, priority,
  required_skills_json, area, tier, status, assigned_worker_id, leased_at,
  lease_expires_at, updated_at, message, artifact_json, attempt`

func (s *SQLiteStore) GetTask(id string) (*types.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE task_id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

// ListReadyTasks returns the ready queue in matching order: priority
// descending, then estimate ascending, then task id ascending for a
// deterministic total order.
func (s *SQLiteStore) ListReadyTasks() ([]*types.Task, error) {
	return s.queryTasks(`
		SELECT `+taskColumns+` FROM tasks
		WHERE status = 'ready'
		ORDER BY priority DESC, estimate_points ASC, task_id ASC`)
}

// ListTasksForWorker returns the tasks a worker currently holds.
func (s *SQLiteStore) ListTasksForWorker(workerID string) ([]*types.Task, error) {
	return s.queryTasks(`
		SELECT `+taskColumns+` FROM tasks
		WHERE assigned_worker_id = ?
		  AND status IN ('leased','in_progress','blocked','pr_opened')
		ORDER BY priority DESC, estimate_points ASC`, workerID)
}

// ListRecentTasks returns the most recently updated tasks, newest first.
func (s *SQLiteStore) ListRecentTasks(limit int) ([]*types.Task, error) {
	return s.queryTasks(`
		SELECT `+taskColumns+` FROM tasks
		ORDER BY updated_at DESC LIMIT ?`, limit)
}

func (s *SQLiteStore) queryTasks(query string, args ...any) ([]*types.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// LeaseTask atomically transitions a ready task to leased and appends a
// task.leased event. Returns ErrConflict when the task is not currently
// ready, so a racing caller can skip it without corrupting state.
func (s *SQLiteStore) LeaseTask(taskID, workerID string, now, expires time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin lease tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE tasks
		SET status = 'leased', assigned_worker_id = ?, leased_at = ?,
		    lease_expires_at = ?, updated_at = ?
		WHERE task_id = ? AND status = 'ready'`,
		workerID, clock.FormatISO(now), clock.FormatISO(expires), clock.FormatISO(now), taskID)
	if err != nil {
		return fmt.Errorf("lease task %s: %w", taskID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("lease rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task %s is not ready: %w", taskID, types.ErrConflict)
	}

	details := map[string]any{"lease_expires_at": clock.FormatISO(expires)}
	if err := insertEvent(tx, now, types.EventTaskLeased, workerID, "", taskID, details); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateTaskStatus applies a worker-reported transition. The artifact
// replaces any previous one, and a task.status event is appended in the
// same transaction. Lease fields are left untouched.
func (s *SQLiteStore) UpdateTaskStatus(taskID, actorWorkerID string, status types.TaskStatus, message string, artifact *types.TaskArtifact, at time.Time) error {
	artifactJSON, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin status tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE tasks
		SET status = ?, message = ?, artifact_json = ?, updated_at = ?
		WHERE task_id = ?`,
		string(status), nullString(message), artifactJSON, clock.FormatISO(at), taskID)
	if err != nil {
		return fmt.Errorf("update task %s status: %w", taskID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("status rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", taskID, types.ErrNotFound)
	}

	details := map[string]any{"status": string(status), "message": message}
	if artifact != nil {
		details["artifact"] = artifact
	}
	if err := insertEvent(tx, at, types.EventTaskStatus, actorWorkerID, "", taskID, details); err != nil {
		return err
	}
	return tx.Commit()
}

// RequeueExpiredLeases returns every task whose lease deadline has
// strictly passed to the ready pool. Each requeue clears the assignment,
// bumps the attempt counter, and appends a task.requeued event. Returns
// the number of tasks requeued.
func (s *SQLiteStore) RequeueExpiredLeases(now time.Time) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin requeue tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`
		SELECT task_id FROM tasks
		WHERE status IN ('leased','in_progress')
		  AND lease_expires_at IS NOT NULL
		  AND lease_expires_at < ?`, clock.FormatISO(now))
	if err != nil {
		return 0, fmt.Errorf("select expired leases: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan expired lease: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterate expired leases: %w", err)
	}
	rows.Close()

	for _, id := range ids {
		_, err := tx.Exec(`
			UPDATE tasks
			SET status = 'ready',
			    assigned_worker_id = NULL,
			    leased_at = NULL,
			    lease_expires_at = NULL,
			    message = 'requeued (lease expired)',
			    updated_at = ?,
			    attempt = attempt + 1
			WHERE task_id = ?`, clock.FormatISO(now), id)
		if err != nil {
			return 0, fmt.Errorf("requeue task %s: %w", id, err)
		}
		details := map[string]any{"reason": "lease_expired"}
		if err := insertEvent(tx, now, types.EventTaskRequeued, "", "", id, details); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit requeue: %w", err)
	}
	return len(ids), nil
}

// ---- constraint queries ----

// WorkerLoad sums estimate points and counts tasks the worker holds in
// leased or in_progress.
func (s *SQLiteStore) WorkerLoad(workerID string) (int, int, error) {
	row := s.db.QueryRow(`
		SELECT COALESCE(SUM(estimate_points), 0), COUNT(*)
		FROM tasks
		WHERE assigned_worker_id = ?
		  AND status IN ('leased','in_progress')`, workerID)
	var points, n int
	if err := row.Scan(&points, &n); err != nil {
		return 0, 0, fmt.Errorf("worker load for %s: %w", workerID, err)
	}
	return points, n, nil
}

// LockedAreas returns the set of non-empty areas currently held by
// leased or in_progress tasks in a repo.
func (s *SQLiteStore) LockedAreas(repo string) (map[string]bool, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT area FROM tasks
		WHERE repo = ?
		  AND area IS NOT NULL
		  AND area != ''
		  AND status IN ('leased','in_progress')`, repo)
	if err != nil {
		return nil, fmt.Errorf("locked areas for %s: %w", repo, err)
	}
	defer rows.Close()

	areas := make(map[string]bool)
	for rows.Next() {
		var area string
		if err := rows.Scan(&area); err != nil {
			return nil, fmt.Errorf("scan locked area: %w", err)
		}
		areas[area] = true
	}
	return areas, rows.Err()
}

func (s *SQLiteStore) CountOpenPRs(repo string) (int, error) {
	row := s.db.QueryRow(`SELECT COUNT(*) FROM tasks WHERE repo = ? AND status = 'pr_opened'`, repo)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count open prs for %s: %w", repo, err)
	}
	return n, nil
}

// CountsByStatus returns a count for every task status, zero-filled.
func (s *SQLiteStore) CountsByStatus() (map[types.TaskStatus]int, error) {
	counts := map[types.TaskStatus]int{
		types.TaskReady:      0,
		types.TaskLeased:     0,
		types.TaskInProgress: 0,
		types.TaskBlocked:    0,
		types.TaskPROpened:   0,
		types.TaskMerged:     0,
	}
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counts by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[types.TaskStatus(status)] = n
	}
	return counts, rows.Err()
}

// ---- events ----

// LogEvent appends one event and fills in its assigned id.
func (s *SQLiteStore) LogEvent(e *types.Event) error {
	details, err := json.Marshal(orEmpty(e.Details))
	if err != nil {
		return fmt.Errorf("encode event details: %w", err)
	}
	res, err := s.db.Exec(`
		INSERT INTO events(ts, type, actor_worker_id, repo, task_id, details_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		clock.FormatISO(e.TS), e.Type, nullString(e.ActorWorkerID), nullString(e.Repo),
		nullString(e.TaskID), string(details))
	if err != nil {
		return fmt.Errorf("log event %s: %w", e.Type, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("event insert id: %w", err)
	}
	e.ID = id
	return nil
}

// ListRecentEvents returns the newest events first.
func (s *SQLiteStore) ListRecentEvents(limit int) ([]*types.Event, error) {
	rows, err := s.db.Query(`
		SELECT id, ts, type, actor_worker_id, repo, task_id, details_json
		FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*types.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func insertEvent(tx *sql.Tx, at time.Time, eventType, actorWorkerID, repo, taskID string, details map[string]any) error {
	payload, err := json.Marshal(orEmpty(details))
	if err != nil {
		return fmt.Errorf("encode event details: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO events(ts, type, actor_worker_id, repo, task_id, details_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		clock.FormatISO(at), eventType, nullString(actorWorkerID), nullString(repo),
		nullString(taskID), string(payload))
	if err != nil {
		return fmt.Errorf("log event %s: %w", eventType, err)
	}
	return nil
}

// ---- row scanning ----

type scanner interface {
	Scan(dest ...any) error
}

func scanRepo(row scanner) (*types.Repo, error) {
	var r types.Repo
	var locks int
	var createdAt string
	if err := row.Scan(&r.Repo, &r.MaxOpenPRs, &locks, &createdAt); err != nil {
		return nil, err
	}
	r.AreaLocksEnabled = locks != 0
	var err error
	if r.CreatedAt, err = clock.ParseISO(createdAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func scanWorker(row scanner) (*types.Worker, error) {
	var w types.Worker
	var handle, heartbeat sql.NullString
	var skillsJSON, status, createdAt string
	if err := row.Scan(&w.WorkerID, &w.Name, &handle, &skillsJSON, &w.CapacityPoints,
		&w.MaxConcurrentTasks, &status, &heartbeat, &w.TokenHash, &w.Reputation, &createdAt); err != nil {
		return nil, err
	}
	w.GithubHandle = handle.String
	w.Status = types.WorkerStatus(status)
	if err := json.Unmarshal([]byte(skillsJSON), &w.Skills); err != nil {
		return nil, fmt.Errorf("decode skills: %w", err)
	}
	if heartbeat.Valid {
		hb, err := clock.ParseISO(heartbeat.String)
		if err != nil {
			return nil, err
		}
		w.LastHeartbeat = &hb
	}
	var err error
	if w.CreatedAt, err = clock.ParseISO(createdAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func scanTask(row scanner) (*types.Task, error) {
	var t types.Task
	var description, area, assignee, leasedAt, expiresAt, message, artifactJSON sql.NullString
	var skillsJSON, status, updatedAt string
	if err := row.Scan(&t.TaskID, &t.Repo, &t.Title, &description, &t.EstimatePoints,
		&t.Priority, &skillsJSON, &area, &t.Tier, &status, &assignee, &leasedAt,
		&expiresAt, &updatedAt, &message, &artifactJSON, &t.Attempt); err != nil {
		return nil, err
	}
	t.Description = description.String
	t.Area = area.String
	t.AssignedWorkerID = assignee.String
	t.Message = message.String
	t.Status = types.TaskStatus(status)
	if err := json.Unmarshal([]byte(skillsJSON), &t.RequiredSkills); err != nil {
		return nil, fmt.Errorf("decode required skills: %w", err)
	}
	if leasedAt.Valid {
		ts, err := clock.ParseISO(leasedAt.String)
		if err != nil {
			return nil, err
		}
		t.LeasedAt = &ts
	}
	if expiresAt.Valid {
		ts, err := clock.ParseISO(expiresAt.String)
		if err != nil {
			return nil, err
		}
		t.LeaseExpiresAt = &ts
	}
	var err error
	if t.UpdatedAt, err = clock.ParseISO(updatedAt); err != nil {
		return nil, err
	}
	if artifactJSON.Valid && artifactJSON.String != "" {
		var artifact types.TaskArtifact
		if err := json.Unmarshal([]byte(artifactJSON.String), &artifact); err != nil {
			return nil, fmt.Errorf("decode artifact: %w", err)
		}
		t.Artifact = &artifact
	}
	return &t, nil
}

func scanEvent(row scanner) (*types.Event, error) {
	var e types.Event
	var actor, repo, taskID, detailsJSON sql.NullString
	var ts string
	if err := row.Scan(&e.ID, &ts, &e.Type, &actor, &repo, &taskID, &detailsJSON); err != nil {
		return nil, err
	}
	e.ActorWorkerID = actor.String
	e.Repo = repo.String
	e.TaskID = taskID.String
	var err error
	if e.TS, err = clock.ParseISO(ts); err != nil {
		return nil, err
	}
	if detailsJSON.Valid && detailsJSON.String != "" {
		if err := json.Unmarshal([]byte(detailsJSON.String), &e.Details); err != nil {
			return nil, fmt.Errorf("decode event details: %w", err)
		}
	}
	return &e, nil
}

// ---- small helpers ----

func encodeArtifact(artifact *types.TaskArtifact) (string, error) {
	if artifact == nil {
		return "{}", nil
	}
	buf, err := json.Marshal(artifact)
	if err != nil {
		return "", fmt.Errorf("encode artifact: %w", err)
	}
	return string(buf), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return clock.FormatISO(*t)
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// Interface conformance check.
var _ Store = (*SQLiteStore)(nil)
