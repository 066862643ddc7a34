package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cbruyndoncx/open-work-protocol/pkg/types"
)

func slot(id string) *workerSlot {
	return &workerSlot{
		workerID:       id,
		online:         true,
		skills:         []string{"go"},
		capacityPoints: 10,
		maxConcurrent:  3,
	}
}

func TestWorkerSlotEligible(t *testing.T) {
	task := &types.Task{
		TaskID:         "t_000000000001",
		EstimatePoints: 4,
		RequiredSkills: []string{"go"},
	}

	tests := []struct {
		name   string
		mutate func(*workerSlot)
		want   bool
	}{
		{
			name:   "fits",
			mutate: func(ws *workerSlot) {},
			want:   true,
		},
		{
			name:   "offline",
			mutate: func(ws *workerSlot) { ws.online = false },
			want:   false,
		},
		{
			name:   "paused",
			mutate: func(ws *workerSlot) { ws.paused = true },
			want:   false,
		},
		{
			name:   "missing skill",
			mutate: func(ws *workerSlot) { ws.skills = []string{"sql"} },
			want:   false,
		},
		{
			name:   "points would overflow capacity",
			mutate: func(ws *workerSlot) { ws.usedPoints = 7 },
			want:   false,
		},
		{
			name:   "points exactly fill capacity",
			mutate: func(ws *workerSlot) { ws.usedPoints = 6 },
			want:   true,
		},
		{
			name:   "at concurrency limit",
			mutate: func(ws *workerSlot) { ws.usedTasks = 3 },
			want:   false,
		},
		{
			name:   "one slot left",
			mutate: func(ws *workerSlot) { ws.usedTasks = 2 },
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := slot("w_000000000001")
			tt.mutate(ws)
			assert.Equal(t, tt.want, ws.eligible(task))
		})
	}
}

func TestWorkerSlotEligibleNoRequirements(t *testing.T) {
	ws := slot("w_000000000001")
	ws.skills = nil

	task := &types.Task{TaskID: "t_000000000001", EstimatePoints: 1}
	assert.True(t, ws.eligible(task), "empty requirements match any worker")
}

func TestWorkerSlotOutranks(t *testing.T) {
	tests := []struct {
		name string
		a, b func(*workerSlot)
		want bool
	}{
		{
			name: "fewer points wins",
			a:    func(ws *workerSlot) { ws.usedPoints = 1 },
			b:    func(ws *workerSlot) { ws.usedPoints = 2 },
			want: true,
		},
		{
			name: "more points loses",
			a:    func(ws *workerSlot) { ws.usedPoints = 3 },
			b:    func(ws *workerSlot) { ws.usedPoints = 2 },
			want: false,
		},
		{
			name: "equal points, fewer tasks wins",
			a:    func(ws *workerSlot) { ws.usedTasks = 1 },
			b:    func(ws *workerSlot) { ws.usedTasks = 2 },
			want: true,
		},
		{
			name: "equal load, higher reputation wins",
			a:    func(ws *workerSlot) { ws.reputation = 3.5 },
			b:    func(ws *workerSlot) { ws.reputation = 1.0 },
			want: true,
		},
		{
			name: "equal everything, earlier heartbeat wins",
			a:    func(ws *workerSlot) { ws.lastHeartbeat = "2025-06-01T11:00:00.000000Z" },
			b:    func(ws *workerSlot) { ws.lastHeartbeat = "2025-06-01T12:00:00.000000Z" },
			want: true,
		},
		{
			name: "never-seen heartbeat sorts first",
			a:    func(ws *workerSlot) { ws.lastHeartbeat = "" },
			b:    func(ws *workerSlot) { ws.lastHeartbeat = "2025-06-01T12:00:00.000000Z" },
			want: true,
		},
		{
			name: "identical slots do not outrank",
			a:    func(ws *workerSlot) {},
			b:    func(ws *workerSlot) {},
			want: false,
		},
		{
			name: "points beat reputation",
			a:    func(ws *workerSlot) { ws.usedPoints = 2; ws.reputation = 9.0 },
			b:    func(ws *workerSlot) { ws.usedPoints = 1 },
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := slot("w_a")
			b := slot("w_b")
			tt.a(a)
			tt.b(b)
			assert.Equal(t, tt.want, a.outranks(b))
		})
	}
}

func TestPickWorkerKeepsFirstOfTie(t *testing.T) {
	state := &cycleState{
		workers: []*workerSlot{slot("w_first0000001"), slot("w_second000001")},
	}
	task := &types.Task{TaskID: "t_000000000001", EstimatePoints: 1}

	best := state.pickWorker(task)
	assert.NotNil(t, best)
	assert.Equal(t, "w_first0000001", best.workerID)
}

func TestPickWorkerNoCandidates(t *testing.T) {
	offline := slot("w_000000000001")
	offline.online = false
	state := &cycleState{workers: []*workerSlot{offline}}

	task := &types.Task{TaskID: "t_000000000001", EstimatePoints: 1}
	assert.Nil(t, state.pickWorker(task))
}
