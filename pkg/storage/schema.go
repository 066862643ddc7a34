package storage

import "fmt"

// schema mirrors the pool's canonical data model. All timestamps are
// fixed-width UTC ISO strings so string comparison matches time order.
const schema = `
CREATE TABLE IF NOT EXISTS repos (
  repo               TEXT PRIMARY KEY,
  max_open_prs       INTEGER NOT NULL,
  area_locks_enabled INTEGER NOT NULL,
  created_at         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS workers (
  worker_id            TEXT PRIMARY KEY,
  name                 TEXT NOT NULL,
  github_handle        TEXT,
  skills_json          TEXT NOT NULL,
  capacity_points      INTEGER NOT NULL,
  max_concurrent_tasks INTEGER NOT NULL,
  status               TEXT NOT NULL,
  last_heartbeat       TEXT,
  token_hash           TEXT NOT NULL,
  reputation           REAL NOT NULL DEFAULT 0.0,
  created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
  task_id              TEXT PRIMARY KEY,
  repo                 TEXT NOT NULL REFERENCES repos(repo) ON DELETE CASCADE,
  title                TEXT NOT NULL,
  description          TEXT,
  estimate_points      INTEGER NOT NULL,
  priority             INTEGER NOT NULL,
  required_skills_json TEXT NOT NULL,
  area                 TEXT,
  tier                 INTEGER NOT NULL,
  status               TEXT NOT NULL,
  assigned_worker_id   TEXT REFERENCES workers(worker_id) ON DELETE SET NULL,
  leased_at            TEXT,
  lease_expires_at     TEXT,
  updated_at           TEXT NOT NULL,
  message              TEXT,
  artifact_json        TEXT,
  attempt              INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_tasks_repo_status ON tasks(repo, status);
CREATE INDEX IF NOT EXISTS idx_tasks_status_priority ON tasks(status, priority);

CREATE TABLE IF NOT EXISTS events (
  id              INTEGER PRIMARY KEY AUTOINCREMENT,
  ts              TEXT NOT NULL,
  type            TEXT NOT NULL,
  actor_worker_id TEXT REFERENCES workers(worker_id) ON DELETE SET NULL,
  repo            TEXT,
  task_id         TEXT,
  details_json    TEXT
);

CREATE INDEX IF NOT EXISTS idx_events_task ON events(task_id);
`

func (s *SQLiteStore) initSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
