package pool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cbruyndoncx/open-work-protocol/pkg/clock"
	"github.com/cbruyndoncx/open-work-protocol/pkg/events"
	"github.com/cbruyndoncx/open-work-protocol/pkg/ids"
	"github.com/cbruyndoncx/open-work-protocol/pkg/log"
	"github.com/cbruyndoncx/open-work-protocol/pkg/metrics"
	"github.com/cbruyndoncx/open-work-protocol/pkg/scheduler"
	"github.com/cbruyndoncx/open-work-protocol/pkg/storage"
	"github.com/cbruyndoncx/open-work-protocol/pkg/types"
)

// Config holds the pool's operational tunables.
type Config struct {
	// LeaseTTL is how long an assignment lasts before an unfinished
	// task returns to the ready queue.
	LeaseTTL time.Duration

	// HeartbeatTTL is how long after its last heartbeat a worker still
	// counts as online.
	HeartbeatTTL time.Duration

	// CycleInterval is how often the background driver runs a
	// scheduling cycle between mutations.
	CycleInterval time.Duration
}

// DefaultConfig returns the stock tunables: 30 minute leases, 90 second
// heartbeat freshness, cycles every 5 seconds.
func DefaultConfig() Config {
	return Config{
		LeaseTTL:      30 * time.Minute,
		HeartbeatTTL:  90 * time.Second,
		CycleInterval: 5 * time.Second,
	}
}

// Service coordinates every mutation of pool state. A single mutex
// serializes mutations and scheduling cycles so the matcher always works
// from a consistent snapshot. Read paths that issue one store call skip
// the lock; multi-read aggregates take it.
type Service struct {
	mu      sync.Mutex
	store   storage.Store
	matcher *scheduler.Matcher
	broker  *events.Broker
	cfg     Config
}

// NewService wires a service over its store and event broker. The broker
// may be nil; live fan-out is then disabled and only the audit log is
// written.
func NewService(store storage.Store, broker *events.Broker, cfg Config) *Service {
	matcher := scheduler.NewMatcher(store, scheduler.Config{
		LeaseTTL:     cfg.LeaseTTL,
		HeartbeatTTL: cfg.HeartbeatTTL,
	})
	return &Service{
		store:   store,
		matcher: matcher,
		broker:  broker,
		cfg:     cfg,
	}
}

// Config returns the tunables the service was built with.
func (s *Service) Config() Config {
	return s.cfg
}

// RunCycle executes one scheduling cycle under the service lock and
// records cycle metrics. It satisfies scheduler.Runner so a background
// driver can tick it directly.
func (s *Service) RunCycle(ctx context.Context) (scheduler.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runCycleLocked(ctx)
}

func (s *Service) runCycleLocked(ctx context.Context) (scheduler.Stats, error) {
	timer := metrics.NewTimer()
	stats, err := s.matcher.RunCycle(ctx)
	timer.ObserveDuration(metrics.CycleDuration)
	metrics.CyclesTotal.Inc()
	if err != nil {
		return stats, err
	}
	metrics.TasksAssigned.Add(float64(stats.Assigned))
	metrics.TasksRequeued.Add(float64(stats.Requeued))
	metrics.TasksSkipped.WithLabelValues(metrics.SkipReasonThrottle).Add(float64(stats.SkippedThrottle))
	metrics.TasksSkipped.WithLabelValues(metrics.SkipReasonAreaLock).Add(float64(stats.SkippedAreaLock))
	metrics.TasksSkipped.WithLabelValues(metrics.SkipReasonNoWorker).Add(float64(stats.SkippedNoWorker))
	return stats, nil
}

// cycleAfterMutation runs a scheduling cycle while still holding the
// lock. The mutation has already committed, so a cycle failure is logged
// and swallowed rather than turned into a caller-visible error that
// would invite a retry of the committed mutation.
func (s *Service) cycleAfterMutation(ctx context.Context) {
	if _, err := s.runCycleLocked(ctx); err != nil {
		log.WithComponent("pool").Error().Err(err).Msg("Post-mutation scheduling cycle failed")
	}
}

// logEvent appends to the audit log and forwards the stamped record to
// live subscribers. The mutation it describes has already committed, so
// an append failure is logged, not returned.
func (s *Service) logEvent(e *types.Event) {
	if err := s.store.LogEvent(e); err != nil {
		log.WithComponent("pool").Error().Err(err).Str("type", e.Type).Msg("Failed to append event")
		return
	}
	s.publish(e)
}

func (s *Service) publish(e *types.Event) {
	if s.broker != nil {
		s.broker.Publish(e)
	}
}

// CreateRepo creates a repo or reconfigures an existing one. New settings
// apply to future scheduling decisions only; work already leased under
// the old settings keeps running.
func (s *Service) CreateRepo(ctx context.Context, repo string, maxOpenPRs int, areaLocksEnabled bool) (*types.Repo, error) {
	repo = strings.TrimSpace(repo)
	if err := requireString("repo", repo, types.MaxRepoNameLen); err != nil {
		return nil, err
	}
	if err := requireRange("max_open_prs", maxOpenPRs, types.MinOpenPRs, types.MaxOpenPRs); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := clock.Now(ctx)
	if err := s.store.UpsertRepo(repo, maxOpenPRs, areaLocksEnabled, now); err != nil {
		return nil, fmt.Errorf("upsert repo: %w", err)
	}
	s.logEvent(&types.Event{
		TS:   now,
		Type: types.EventRepoUpsert,
		Repo: repo,
		Details: map[string]any{
			"max_open_prs":       maxOpenPRs,
			"area_locks_enabled": areaLocksEnabled,
		},
	})

	rec, err := s.store.GetRepo(repo)
	if err != nil {
		return nil, fmt.Errorf("load repo: %w", err)
	}

	log.WithComponent("pool").Info().
		Str("repo", repo).
		Int("max_open_prs", maxOpenPRs).
		Bool("area_locks_enabled", areaLocksEnabled).
		Msg("Repo configured")

	s.cycleAfterMutation(ctx)
	return rec, nil
}

// RegisterParams are the resolved inputs for worker registration.
type RegisterParams struct {
	Name               string
	GithubHandle       string
	Skills             []string
	CapacityPoints     int
	MaxConcurrentTasks int
}

// RegisterWorker creates a worker and returns it together with the raw
// bearer token. The token is handed out exactly once and persisted only
// as a hash; a worker that loses it registers again.
func (s *Service) RegisterWorker(ctx context.Context, p RegisterParams) (*types.Worker, string, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := requireString("name", p.Name, types.MaxNameLen); err != nil {
		return nil, "", err
	}
	if err := limitString("github_handle", p.GithubHandle, types.MaxHandleLen); err != nil {
		return nil, "", err
	}
	if err := requireRange("capacity_points", p.CapacityPoints, types.MinCapacityPoints, types.MaxCapacityPoints); err != nil {
		return nil, "", err
	}
	if err := requireRange("max_concurrent_tasks", p.MaxConcurrentTasks, types.MinConcurrent, types.MaxConcurrent); err != nil {
		return nil, "", err
	}

	// Mint credentials before taking the lock; drawing token entropy
	// needs no store access.
	token, err := ids.NewToken()
	if err != nil {
		return nil, "", err
	}
	w := &types.Worker{
		WorkerID:           ids.NewWorkerID(),
		Name:               p.Name,
		GithubHandle:       strings.TrimSpace(p.GithubHandle),
		Skills:             types.NormalizeSkills(p.Skills),
		CapacityPoints:     p.CapacityPoints,
		MaxConcurrentTasks: p.MaxConcurrentTasks,
		Status:             types.WorkerIdle,
		TokenHash:          ids.HashToken(token),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := clock.Now(ctx)
	w.CreatedAt = now
	if err := s.store.InsertWorker(w); err != nil {
		return nil, "", fmt.Errorf("insert worker: %w", err)
	}
	s.logEvent(&types.Event{
		TS:            now,
		Type:          types.EventWorkerRegister,
		ActorWorkerID: w.WorkerID,
		Details: map[string]any{
			"name":          w.Name,
			"github_handle": w.GithubHandle,
			"skills":        w.Skills,
		},
	})

	log.WithComponent("pool").Info().
		Str("worker_id", w.WorkerID).
		Str("name", w.Name).
		Strs("skills", w.Skills).
		Int("capacity_points", w.CapacityPoints).
		Msg("Worker registered")

	s.cycleAfterMutation(ctx)
	return w, token, nil
}

// AuthenticateWorker resolves a raw bearer token to the worker that owns
// it.
func (s *Service) AuthenticateWorker(token string) (*types.Worker, error) {
	if token == "" {
		return nil, types.ErrAuthMissing
	}
	w, err := s.store.WorkerByTokenHash(ids.HashToken(token))
	if errors.Is(err, types.ErrNotFound) {
		return nil, fmt.Errorf("invalid worker token: %w", types.ErrAuthInvalid)
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate worker: %w", err)
	}
	return w, nil
}

// Heartbeat records a worker's liveness and self-reported status.
func (s *Service) Heartbeat(ctx context.Context, workerID string, status types.WorkerStatus, note string) error {
	if !types.ValidWorkerStatus(status) {
		return fmt.Errorf("invalid worker status %q: %w", status, types.ErrBadRequest)
	}
	if err := limitString("note", note, types.MaxNoteLen); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.store.UpdateWorkerHeartbeat(workerID, status, note, clock.Now(ctx))
	if errors.Is(err, types.ErrNotFound) {
		return fmt.Errorf("unknown worker: %w", types.ErrAuthInvalid)
	}
	if err != nil {
		return fmt.Errorf("record heartbeat: %w", err)
	}

	s.cycleAfterMutation(ctx)
	return nil
}

// WorkFor returns the tasks currently held by a worker. A scheduling
// cycle runs first under the same lock hold, so a polling worker sees
// assignments made for it in the same call.
func (s *Service) WorkFor(ctx context.Context, workerID string) ([]*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.runCycleLocked(ctx); err != nil {
		return nil, fmt.Errorf("run cycle: %w", err)
	}
	tasks, err := s.store.ListTasksForWorker(workerID)
	if err != nil {
		return nil, fmt.Errorf("list worker tasks: %w", err)
	}
	return tasks, nil
}

// TaskParams are the resolved inputs for task creation.
type TaskParams struct {
	Repo           string
	Title          string
	Description    string
	EstimatePoints int
	Priority       int
	RequiredSkills []string
	Area           string
	Tier           int
}

// AddTask validates and persists a new ready task. The repo must already
// be configured.
func (s *Service) AddTask(ctx context.Context, p TaskParams) (*types.Task, error) {
	p.Repo = strings.TrimSpace(p.Repo)
	p.Title = strings.TrimSpace(p.Title)
	if err := requireString("repo", p.Repo, types.MaxRepoNameLen); err != nil {
		return nil, err
	}
	if err := requireString("title", p.Title, types.MaxTitleLen); err != nil {
		return nil, err
	}
	if err := limitString("area", p.Area, types.MaxAreaLen); err != nil {
		return nil, err
	}
	if err := requireRange("estimate_points", p.EstimatePoints, types.MinEstimate, types.MaxEstimate); err != nil {
		return nil, err
	}
	if err := requireRange("priority", p.Priority, types.MinPriority, types.MaxPriority); err != nil {
		return nil, err
	}
	if err := requireRange("tier", p.Tier, types.MinTier, types.MaxTier); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.GetRepo(p.Repo); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("unknown repo %q: %w", p.Repo, types.ErrBadRequest)
		}
		return nil, fmt.Errorf("load repo: %w", err)
	}

	now := clock.Now(ctx)
	t := &types.Task{
		TaskID:         ids.NewTaskID(),
		Repo:           p.Repo,
		Title:          p.Title,
		Description:    p.Description,
		EstimatePoints: p.EstimatePoints,
		Priority:       p.Priority,
		RequiredSkills: types.NormalizeSkills(p.RequiredSkills),
		Area:           p.Area,
		Tier:           p.Tier,
		Status:         types.TaskReady,
		UpdatedAt:      now,
	}
	if err := s.store.InsertTask(t); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	s.logEvent(&types.Event{
		TS:     now,
		Type:   types.EventTaskCreate,
		Repo:   t.Repo,
		TaskID: t.TaskID,
		Details: map[string]any{
			"title":           t.Title,
			"estimate_points": t.EstimatePoints,
			"priority":        t.Priority,
			"required_skills": t.RequiredSkills,
			"area":            t.Area,
			"tier":            t.Tier,
		},
	})

	log.WithComponent("pool").Info().
		Str("task_id", t.TaskID).
		Str("repo", t.Repo).
		Int("priority", t.Priority).
		Int("estimate_points", t.EstimatePoints).
		Msg("Task created")

	s.cycleAfterMutation(ctx)
	return t, nil
}

// StatusParams are the resolved inputs for a worker's status report.
type StatusParams struct {
	TaskID   string
	Status   types.TaskStatus
	Message  string
	Artifact *types.TaskArtifact
}

// UpdateTaskStatus applies a worker's report on a task it holds. Workers
// may only target in_progress, blocked, pr_opened or merged, and only on
// tasks assigned to them. A merged task is closed to further reports.
// Reports outside the normal lifecycle are applied anyway and logged as
// anomalies. Lease bookkeeping is left untouched; only the expiry sweep
// and the matcher move leases.
func (s *Service) UpdateTaskStatus(ctx context.Context, workerID string, p StatusParams) error {
	if !types.WorkerReportable(p.Status) {
		return fmt.Errorf("workers may report in_progress, blocked, pr_opened or merged, not %q: %w", p.Status, types.ErrBadRequest)
	}
	if err := limitString("message", p.Message, types.MaxMessageLen); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.store.GetTask(p.TaskID)
	if errors.Is(err, types.ErrNotFound) {
		return fmt.Errorf("unknown task %s: %w", p.TaskID, types.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if task.AssignedWorkerID != workerID {
		return fmt.Errorf("task %s is not assigned to worker %s: %w", p.TaskID, workerID, types.ErrForbidden)
	}
	if task.Status == types.TaskMerged {
		return fmt.Errorf("task %s is already merged: %w", p.TaskID, types.ErrBadRequest)
	}
	if !types.ExpectedTransition(task.Status, p.Status) {
		log.WithComponent("pool").Warn().
			Str("task_id", task.TaskID).
			Str("worker_id", workerID).
			Str("from", string(task.Status)).
			Str("to", string(p.Status)).
			Msg("Unexpected status transition")
	}

	now := clock.Now(ctx)
	if err := s.store.UpdateTaskStatus(p.TaskID, workerID, p.Status, p.Message, p.Artifact, now); err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	s.publish(&types.Event{
		TS:            now,
		Type:          types.EventTaskStatus,
		ActorWorkerID: workerID,
		Repo:          task.Repo,
		TaskID:        task.TaskID,
		Details:       map[string]any{"status": string(p.Status), "from": string(task.Status)},
	})

	log.WithComponent("pool").Info().
		Str("task_id", task.TaskID).
		Str("worker_id", workerID).
		Str("status", string(p.Status)).
		Msg("Task status updated")

	s.cycleAfterMutation(ctx)
	return nil
}

func requireString(name, v string, max int) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%s is required: %w", name, types.ErrBadRequest)
	}
	return limitString(name, v, max)
}

func limitString(name, v string, max int) error {
	if len(v) > max {
		return fmt.Errorf("%s exceeds %d characters: %w", name, max, types.ErrBadRequest)
	}
	return nil
}

func requireRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s must be between %d and %d: %w", name, lo, hi, types.ErrBadRequest)
	}
	return nil
}
