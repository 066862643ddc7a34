package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cbruyndoncx/open-work-protocol/pkg/clock"
	"github.com/cbruyndoncx/open-work-protocol/pkg/log"
	"github.com/cbruyndoncx/open-work-protocol/pkg/storage"
	"github.com/cbruyndoncx/open-work-protocol/pkg/types"
)

// Config holds the tunables of the matching cycle.
type Config struct {
	// LeaseTTL is how long an assignment lasts before an unfinished
	// task is requeued.
	LeaseTTL time.Duration
	// HeartbeatTTL is how long after its last heartbeat a worker still
	// counts as online.
	HeartbeatTTL time.Duration
}

// DefaultConfig returns the stock cycle tunables.
func DefaultConfig() Config {
	return Config{
		LeaseTTL:     30 * time.Minute,
		HeartbeatTTL: 90 * time.Second,
	}
}

// Stats summarizes one scheduling cycle.
type Stats struct {
	Requeued        int `json:"requeued"`
	Assigned        int `json:"assigned"`
	SkippedThrottle int `json:"skipped_throttle"`
	SkippedAreaLock int `json:"skipped_area_lock"`
	SkippedNoWorker int `json:"skipped_no_worker"`
}

// Matcher assigns ready tasks to eligible workers. It holds no state of
// its own; each cycle snapshots the store and works greedily over it.
type Matcher struct {
	store storage.Store
	cfg   Config
}

// NewMatcher creates a matcher over the given store.
func NewMatcher(store storage.Store, cfg Config) *Matcher {
	return &Matcher{store: store, cfg: cfg}
}

// RunCycle performs one scheduling cycle:
//   - requeues expired leases
//   - assigns ready tasks to eligible workers using greedy matching
//
// The caller is responsible for serializing cycles against other
// mutations; the matcher itself takes no locks.
func (m *Matcher) RunCycle(ctx context.Context) (Stats, error) {
	now := clock.Now(ctx)

	requeued, err := m.store.RequeueExpiredLeases(now)
	if err != nil {
		return Stats{}, fmt.Errorf("requeue expired leases: %w", err)
	}
	stats := Stats{Requeued: requeued}

	state, err := m.buildState(now)
	if err != nil {
		return stats, err
	}

	ready, err := m.store.ListReadyTasks()
	if err != nil {
		return stats, fmt.Errorf("list ready tasks: %w", err)
	}

	logger := log.WithComponent("scheduler")
	for _, task := range ready {
		cfg, ok := state.repoCfg[task.Repo]
		if !ok {
			// No policy row for this repo; leave the task queued.
			continue
		}

		if cfg.MaxOpenPRs == 0 || state.openPRs[task.Repo] >= cfg.MaxOpenPRs {
			stats.SkippedThrottle++
			continue
		}

		area := strings.TrimSpace(task.Area)
		if cfg.AreaLocksEnabled && area != "" && state.lockedAreas[task.Repo][area] {
			stats.SkippedAreaLock++
			continue
		}

		best := state.pickWorker(task)
		if best == nil {
			stats.SkippedNoWorker++
			continue
		}

		expires := now.Add(m.cfg.LeaseTTL)
		if err := m.store.LeaseTask(task.TaskID, best.workerID, now, expires); err != nil {
			if errors.Is(err, types.ErrConflict) {
				// The task left ready between snapshot and lease;
				// the next cycle will see its real state.
				continue
			}
			return stats, fmt.Errorf("lease task %s: %w", task.TaskID, err)
		}
		stats.Assigned++

		logger.Info().
			Str("task_id", task.TaskID).
			Str("worker_id", best.workerID).
			Str("repo", task.Repo).
			Int("estimate_points", task.EstimatePoints).
			Time("lease_expires_at", expires).
			Msg("Task assigned")

		// Keep the snapshot honest for the rest of this cycle.
		best.usedPoints += task.EstimatePoints
		best.usedTasks++
		if cfg.AreaLocksEnabled && area != "" {
			locks := state.lockedAreas[task.Repo]
			if locks == nil {
				locks = make(map[string]bool)
				state.lockedAreas[task.Repo] = locks
			}
			locks[area] = true
		}
	}

	return stats, nil
}
