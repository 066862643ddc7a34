package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/cbruyndoncx/open-work-protocol/pkg/clock"
	"github.com/cbruyndoncx/open-work-protocol/pkg/types"
)

// State is the flat operational summary returned to admins.
type State struct {
	WorkersOnline   int `json:"workers_online"`
	TasksReady      int `json:"tasks_ready"`
	TasksLeased     int `json:"tasks_leased"`
	TasksInProgress int `json:"tasks_in_progress"`
	TasksPROpened   int `json:"tasks_pr_opened"`
	TasksBlocked    int `json:"tasks_blocked"`
	TasksMerged     int `json:"tasks_merged"`
}

// RepoView decorates a repo with its live throttle standing.
type RepoView struct {
	*types.Repo
	OpenPRs   int
	Throttled bool
}

// WorkerView decorates a worker with liveness and current load.
type WorkerView struct {
	*types.Worker
	Online     bool
	UsedPoints int
	UsedTasks  int
}

// Dashboard aggregates everything the HTML status page renders: task
// counts, repos with throttle standing, workers with load, and the most
// recent tasks and events.
type Dashboard struct {
	Now     time.Time
	Counts  map[types.TaskStatus]int
	Repos   []*RepoView
	Workers []*WorkerView
	Tasks   []*types.Task
	Events  []*types.Event
}

// recentLimit bounds the task and event tables on the dashboard.
const recentLimit = 50

// AdminState returns the flat counts summary. The whole read runs under
// the service lock so the counts describe one moment.
func (s *Service) AdminState(ctx context.Context) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts, err := s.store.CountsByStatus()
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	workers, err := s.store.ListWorkers()
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}

	now := clock.Now(ctx)
	online := 0
	for _, w := range workers {
		if w.Online(now, s.cfg.HeartbeatTTL) {
			online++
		}
	}
	return &State{
		WorkersOnline:   online,
		TasksReady:      counts[types.TaskReady],
		TasksLeased:     counts[types.TaskLeased],
		TasksInProgress: counts[types.TaskInProgress],
		TasksPROpened:   counts[types.TaskPROpened],
		TasksBlocked:    counts[types.TaskBlocked],
		TasksMerged:     counts[types.TaskMerged],
	}, nil
}

// Dashboard assembles the status page data under one lock hold.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts, err := s.store.CountsByStatus()
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	repos, err := s.store.ListRepos()
	if err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}
	workers, err := s.store.ListWorkers()
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	tasks, err := s.store.ListRecentTasks(recentLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent tasks: %w", err)
	}
	evs, err := s.store.ListRecentEvents(recentLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent events: %w", err)
	}

	now := clock.Now(ctx)
	d := &Dashboard{
		Now:    now,
		Counts: counts,
		Tasks:  tasks,
		Events: evs,
	}
	for _, r := range repos {
		open, err := s.store.CountOpenPRs(r.Repo)
		if err != nil {
			return nil, fmt.Errorf("count open PRs for %s: %w", r.Repo, err)
		}
		d.Repos = append(d.Repos, &RepoView{
			Repo:      r,
			OpenPRs:   open,
			Throttled: r.MaxOpenPRs == 0 || open >= r.MaxOpenPRs,
		})
	}
	for _, w := range workers {
		points, nTasks, err := s.store.WorkerLoad(w.WorkerID)
		if err != nil {
			return nil, fmt.Errorf("load for worker %s: %w", w.WorkerID, err)
		}
		d.Workers = append(d.Workers, &WorkerView{
			Worker:     w,
			Online:     w.Online(now, s.cfg.HeartbeatTTL),
			UsedPoints: points,
			UsedTasks:  nTasks,
		})
	}
	return d, nil
}
