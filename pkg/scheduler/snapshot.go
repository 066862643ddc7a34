package scheduler

import (
	"fmt"
	"time"

	"github.com/cbruyndoncx/open-work-protocol/pkg/clock"
	"github.com/cbruyndoncx/open-work-protocol/pkg/types"
)

// workerSlot is one worker's standing at the start of a cycle, updated
// in memory as the cycle hands out leases.
type workerSlot struct {
	workerID       string
	online         bool
	paused         bool
	skills         []string
	capacityPoints int
	maxConcurrent  int
	usedPoints     int
	usedTasks      int
	reputation     float64
	// lastHeartbeat keeps the encoded form so ranking compares the
	// same strings the store persists. Empty when never seen.
	lastHeartbeat string
}

// eligible reports whether the slot can take the task right now.
func (ws *workerSlot) eligible(task *types.Task) bool {
	if !ws.online || ws.paused {
		return false
	}
	if !types.HasAllSkills(ws.skills, task.RequiredSkills) {
		return false
	}
	if ws.usedPoints+task.EstimatePoints > ws.capacityPoints {
		return false
	}
	if ws.usedTasks+1 > ws.maxConcurrent {
		return false
	}
	return true
}

// outranks reports whether ws is a strictly better pick than other:
// lowest load points, then fewest held tasks, then highest reputation,
// then earliest heartbeat. Equal slots do not outrank each other, so
// scanning in registration order keeps the first of a tie.
func (ws *workerSlot) outranks(other *workerSlot) bool {
	if ws.usedPoints != other.usedPoints {
		return ws.usedPoints < other.usedPoints
	}
	if ws.usedTasks != other.usedTasks {
		return ws.usedTasks < other.usedTasks
	}
	if ws.reputation != other.reputation {
		return ws.reputation > other.reputation
	}
	return ws.lastHeartbeat < other.lastHeartbeat
}

// cycleState is the matcher's snapshot of everything a cycle consults.
type cycleState struct {
	repoCfg     map[string]*types.Repo
	workers     []*workerSlot
	lockedAreas map[string]map[string]bool
	openPRs     map[string]int
}

// buildState loads repos, workers, loads, locks, and open-PR counts in
// one pass so every decision in the cycle sees the same world.
func (m *Matcher) buildState(now time.Time) (*cycleState, error) {
	repos, err := m.store.ListRepos()
	if err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}
	state := &cycleState{
		repoCfg:     make(map[string]*types.Repo, len(repos)),
		lockedAreas: make(map[string]map[string]bool, len(repos)),
		openPRs:     make(map[string]int, len(repos)),
	}
	for _, r := range repos {
		state.repoCfg[r.Repo] = r
		locks, err := m.store.LockedAreas(r.Repo)
		if err != nil {
			return nil, fmt.Errorf("locked areas for %s: %w", r.Repo, err)
		}
		state.lockedAreas[r.Repo] = locks
		open, err := m.store.CountOpenPRs(r.Repo)
		if err != nil {
			return nil, fmt.Errorf("count open prs for %s: %w", r.Repo, err)
		}
		state.openPRs[r.Repo] = open
	}

	workers, err := m.store.ListWorkers()
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	state.workers = make([]*workerSlot, 0, len(workers))
	for _, w := range workers {
		points, held, err := m.store.WorkerLoad(w.WorkerID)
		if err != nil {
			return nil, fmt.Errorf("load for worker %s: %w", w.WorkerID, err)
		}
		slot := &workerSlot{
			workerID:       w.WorkerID,
			online:         w.Online(now, m.cfg.HeartbeatTTL),
			paused:         w.Status == types.WorkerPaused,
			skills:         w.Skills,
			capacityPoints: w.CapacityPoints,
			maxConcurrent:  w.MaxConcurrentTasks,
			usedPoints:     points,
			usedTasks:      held,
			reputation:     w.Reputation,
		}
		if w.LastHeartbeat != nil {
			slot.lastHeartbeat = clock.FormatISO(*w.LastHeartbeat)
		}
		state.workers = append(state.workers, slot)
	}
	return state, nil
}

// pickWorker returns the best eligible slot for the task, or nil when
// no worker qualifies. Workers are scanned in registration order.
func (state *cycleState) pickWorker(task *types.Task) *workerSlot {
	var best *workerSlot
	for _, ws := range state.workers {
		if !ws.eligible(task) {
			continue
		}
		if best == nil || ws.outranks(best) {
			best = ws
		}
	}
	return best
}
