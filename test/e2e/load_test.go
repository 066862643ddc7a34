package e2e

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbruyndoncx/open-work-protocol/pkg/client"
	"github.com/cbruyndoncx/open-work-protocol/test/framework"
)

// LoadConfig defines dispatch load-test parameters.
type LoadConfig struct {
	Name         string
	NumWorkers   int
	NumTasks     int
	Capacity     int
	Concurrent   int
	MaxDrainTime time.Duration
}

// TestLoadSmall drains 30 tasks through 4 workers and checks capacity
// and concurrency limits hold at every observation.
func TestLoadSmall(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping load test in short mode")
	}

	testLoad(t, LoadConfig{
		Name:         "Small",
		NumWorkers:   4,
		NumTasks:     30,
		Capacity:     10,
		Concurrent:   3,
		MaxDrainTime: 30 * time.Second,
	})
}

// TestLoadMedium drains 120 tasks through 6 workers.
func TestLoadMedium(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping medium load test in short mode")
	}

	testLoad(t, LoadConfig{
		Name:         "Medium",
		NumWorkers:   6,
		NumTasks:     120,
		Capacity:     12,
		Concurrent:   4,
		MaxDrainTime: 2 * time.Minute,
	})
}

func testLoad(t *testing.T, config LoadConfig) {
	t.Logf("Starting %s load test: %d tasks across %d workers",
		config.Name, config.NumTasks, config.NumWorkers)

	pool := framework.Start(t, framework.Config{})
	ctx := context.Background()
	waiter := framework.NewWaiter(config.MaxDrainTime, 20*time.Millisecond)

	// A high PR cap keeps the repo throttle out of the way; this test is
	// about worker limits.
	require.NoError(t, pool.Admin.UpsertRepo("acme/load", 100, false))

	workers := make([]*framework.Worker, config.NumWorkers)
	for i := range workers {
		workers[i] = pool.NewWorker(t, client.RegisterRequest{
			Name:               fmt.Sprintf("load-worker-%d", i+1),
			CapacityPoints:     config.Capacity,
			MaxConcurrentTasks: config.Concurrent,
		})
	}
	require.NoError(t, waiter.WaitForWorkersOnline(ctx, pool.Admin, config.NumWorkers))

	for i := 0; i < config.NumTasks; i++ {
		_, err := pool.Admin.CreateTask(client.TaskSpec{
			Repo:           "acme/load",
			Title:          fmt.Sprintf("Load task %03d", i+1),
			EstimatePoints: 1,
			Priority:       50,
		})
		require.NoError(t, err)
	}

	// Every pull must respect the worker's own limits; drain each lease
	// through the normal lifecycle until nothing is left.
	merged := 0
	mergedBy := make(map[string]int)
	deadline := time.Now().Add(config.MaxDrainTime)
	for merged < config.NumTasks {
		require.True(t, time.Now().Before(deadline),
			"drained %d of %d tasks before the deadline", merged, config.NumTasks)

		for _, w := range workers {
			work, err := w.Client.PullWork()
			require.NoError(t, err)
			require.LessOrEqual(t, len(work.Leases), config.Concurrent,
				"worker %s exceeds its concurrency limit", w.Name)

			points := 0
			for _, lease := range work.Leases {
				points += lease.EstimatePoints
			}
			require.LessOrEqual(t, points, config.Capacity,
				"worker %s exceeds its capacity", w.Name)

			for _, lease := range work.Leases {
				require.NoError(t, w.Client.UpdateTaskStatus(lease.TaskID, "in_progress", "", nil))
				require.NoError(t, w.Client.UpdateTaskStatus(lease.TaskID, "pr_opened", "", nil))
				require.NoError(t, w.Client.UpdateTaskStatus(lease.TaskID, "merged", "", nil))
				merged++
				mergedBy[w.Name]++
			}
		}
	}

	state, err := pool.Admin.State()
	require.NoError(t, err)
	assert.Equal(t, config.NumTasks, state.TasksMerged)
	assert.Equal(t, 0, state.TasksReady)
	assert.Equal(t, 0, state.TasksLeased)

	assert.Len(t, mergedBy, config.NumWorkers, "every worker should take part in the drain")
	t.Logf("%s load test done: %d tasks merged by %d workers", config.Name, merged, len(mergedBy))
}
