package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbruyndoncx/open-work-protocol/pkg/client"
	"github.com/cbruyndoncx/open-work-protocol/test/framework"
)

// TestLeaseFailover lets a lease run out on a paused worker and checks
// the background loop hands the task to a live peer on its own, with no
// mutation from the outside between the pause and the handoff.
func TestLeaseFailover(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping real-time lease expiry test in short mode")
	}

	pool := framework.Start(t, framework.Config{
		LeaseTTL:      300 * time.Millisecond,
		HeartbeatTTL:  30 * time.Second,
		CycleInterval: 25 * time.Millisecond,
	})
	ctx := context.Background()
	waiter := framework.DefaultWaiter()

	require.NoError(t, pool.Admin.UpsertRepo("acme/api", 3, false))

	first := pool.NewWorker(t, client.RegisterRequest{
		Name: "first", CapacityPoints: 5, MaxConcurrentTasks: 2,
	})
	second := pool.NewWorker(t, client.RegisterRequest{
		Name: "second", CapacityPoints: 5, MaxConcurrentTasks: 2,
	})

	taskID, err := pool.Admin.CreateTask(client.TaskSpec{
		Repo: "acme/api", Title: "Long haul", EstimatePoints: 2, Priority: 50,
	})
	require.NoError(t, err)

	// The earlier heartbeat wins the zero-load tie.
	require.NoError(t, waiter.WaitForLeases(ctx, first.Client, 1))

	// Pausing keeps the worker out of future matches but leaves its
	// current lease untouched until the TTL runs out.
	_, err = first.Client.Heartbeat("paused", "going away")
	require.NoError(t, err)

	require.NoError(t, waiter.WaitForLeases(ctx, second.Client, 1))
	work, err := second.Client.PullWork()
	require.NoError(t, err)
	assert.Equal(t, taskID, work.Leases[0].TaskID, "the expired lease moves, not a new task")

	work, err = first.Client.PullWork()
	require.NoError(t, err)
	assert.Empty(t, work.Leases, "the paused worker no longer holds the task")

	state, err := pool.Admin.State()
	require.NoError(t, err)
	assert.Equal(t, 1, state.TasksLeased)
	assert.Equal(t, 0, state.TasksReady)
}
