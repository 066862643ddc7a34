package pool

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbruyndoncx/open-work-protocol/pkg/clock"
	"github.com/cbruyndoncx/open-work-protocol/pkg/storage"
	"github.com/cbruyndoncx/open-work-protocol/pkg/types"
)

var poolBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	t     *testing.T
	svc   *Service
	store *storage.SQLiteStore
	ctx   *clock.TimeTravelCtx
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "pool.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := NewService(store, nil, Config{
		LeaseTTL:      30 * time.Minute,
		HeartbeatTTL:  90 * time.Second,
		CycleInterval: 5 * time.Second,
	})
	return &fixture{t: t, svc: svc, store: store, ctx: clock.TimeTravelingContext(poolBase)}
}

func (f *fixture) addRepo(repo string, maxOpenPRs int, areaLocks bool) *types.Repo {
	f.t.Helper()
	r, err := f.svc.CreateRepo(f.ctx, repo, maxOpenPRs, areaLocks)
	require.NoError(f.t, err)
	return r
}

// addWorker advances the clock so registration order and heartbeat order
// stay distinct across workers.
func (f *fixture) addWorker(name string, skills []string) (*types.Worker, string) {
	f.t.Helper()
	f.ctx.Advance(time.Second)
	w, token, err := f.svc.RegisterWorker(f.ctx, RegisterParams{
		Name:               name,
		Skills:             skills,
		CapacityPoints:     5,
		MaxConcurrentTasks: 2,
	})
	require.NoError(f.t, err)
	return w, token
}

func (f *fixture) beat(workerID string, status types.WorkerStatus) {
	f.t.Helper()
	f.ctx.Advance(time.Second)
	require.NoError(f.t, f.svc.Heartbeat(f.ctx, workerID, status, ""))
}

func (f *fixture) addTask(repo, title string, mut ...func(*TaskParams)) *types.Task {
	f.t.Helper()
	p := TaskParams{
		Repo:           repo,
		Title:          title,
		EstimatePoints: 1,
		Priority:       10,
	}
	for _, m := range mut {
		m(&p)
	}
	task, err := f.svc.AddTask(f.ctx, p)
	require.NoError(f.t, err)
	return task
}

func (f *fixture) task(id string) *types.Task {
	f.t.Helper()
	task, err := f.store.GetTask(id)
	require.NoError(f.t, err)
	return task
}

func TestRegisterWorkerIssuesToken(t *testing.T) {
	f := newFixture(t)

	w, token, err := f.svc.RegisterWorker(f.ctx, RegisterParams{
		Name:               "builder-1",
		GithubHandle:       "octocat",
		Skills:             []string{" Go", "go", "PYTHON"},
		CapacityPoints:     5,
		MaxConcurrentTasks: 2,
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.Equal(t, types.WorkerIdle, w.Status)
	assert.Equal(t, []string{"go", "python"}, w.Skills)
	assert.Nil(t, w.LastHeartbeat, "a new worker has never heartbeated")

	stored, err := f.store.WorkerByID(w.WorkerID)
	require.NoError(t, err)
	assert.NotEqual(t, token, stored.TokenHash, "raw token must not be persisted")

	authed, err := f.svc.AuthenticateWorker(token)
	require.NoError(t, err)
	assert.Equal(t, w.WorkerID, authed.WorkerID)
}

func TestRegisterWorkerValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		p    RegisterParams
	}{
		{"blank name", RegisterParams{Name: "   ", CapacityPoints: 5, MaxConcurrentTasks: 2}},
		{"name too long", RegisterParams{Name: strings.Repeat("x", 121), CapacityPoints: 5, MaxConcurrentTasks: 2}},
		{"zero capacity", RegisterParams{Name: "w", CapacityPoints: 0, MaxConcurrentTasks: 2}},
		{"capacity above max", RegisterParams{Name: "w", CapacityPoints: 101, MaxConcurrentTasks: 2}},
		{"zero concurrency", RegisterParams{Name: "w", CapacityPoints: 5, MaxConcurrentTasks: 0}},
		{"concurrency above max", RegisterParams{Name: "w", CapacityPoints: 5, MaxConcurrentTasks: 21}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.svc.RegisterWorker(f.ctx, tc.p)
			assert.ErrorIs(t, err, types.ErrBadRequest)
		})
	}
}

func TestAuthenticateWorker(t *testing.T) {
	f := newFixture(t)
	_, token := f.addWorker("w1", nil)

	_, err := f.svc.AuthenticateWorker("")
	assert.ErrorIs(t, err, types.ErrAuthMissing)

	_, err = f.svc.AuthenticateWorker("not-a-token")
	assert.ErrorIs(t, err, types.ErrAuthInvalid)

	w, err := f.svc.AuthenticateWorker(token)
	require.NoError(t, err)
	assert.Equal(t, "w1", w.Name)
}

func TestHeartbeatRecordsLiveness(t *testing.T) {
	f := newFixture(t)
	w, _ := f.addWorker("w1", nil)

	f.ctx.Advance(time.Minute)
	require.NoError(t, f.svc.Heartbeat(f.ctx, w.WorkerID, types.WorkerWorking, "on task"))

	stored, err := f.store.WorkerByID(w.WorkerID)
	require.NoError(t, err)
	assert.Equal(t, types.WorkerWorking, stored.Status)
	require.NotNil(t, stored.LastHeartbeat)
	assert.Equal(t, clock.Now(f.ctx), *stored.LastHeartbeat)
}

func TestHeartbeatValidation(t *testing.T) {
	f := newFixture(t)
	w, _ := f.addWorker("w1", nil)

	err := f.svc.Heartbeat(f.ctx, w.WorkerID, "napping", "")
	assert.ErrorIs(t, err, types.ErrBadRequest)

	err = f.svc.Heartbeat(f.ctx, w.WorkerID, types.WorkerIdle, strings.Repeat("z", 501))
	assert.ErrorIs(t, err, types.ErrBadRequest)

	err = f.svc.Heartbeat(f.ctx, "w_unknown00000", types.WorkerIdle, "")
	assert.ErrorIs(t, err, types.ErrAuthInvalid)
}

func TestCreateRepoValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateRepo(f.ctx, "  ", 3, true)
	assert.ErrorIs(t, err, types.ErrBadRequest)

	_, err = f.svc.CreateRepo(f.ctx, "acme/api", -1, true)
	assert.ErrorIs(t, err, types.ErrBadRequest)

	_, err = f.svc.CreateRepo(f.ctx, "acme/api", 101, true)
	assert.ErrorIs(t, err, types.ErrBadRequest)
}

func TestCreateRepoReconfigures(t *testing.T) {
	f := newFixture(t)

	first := f.addRepo("acme/api", 3, true)
	assert.Equal(t, 3, first.MaxOpenPRs)
	assert.True(t, first.AreaLocksEnabled)

	second := f.addRepo("acme/api", 0, false)
	assert.Equal(t, 0, second.MaxOpenPRs)
	assert.False(t, second.AreaLocksEnabled)
	assert.Equal(t, first.CreatedAt, second.CreatedAt, "reconfiguring must not reset creation time")
}

func TestAddTaskUnknownRepo(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddTask(f.ctx, TaskParams{Repo: "acme/ghost", Title: "x", EstimatePoints: 1, Priority: 10})
	require.ErrorIs(t, err, types.ErrBadRequest)
	assert.Contains(t, err.Error(), "unknown repo")
}

func TestAddTaskValidation(t *testing.T) {
	f := newFixture(t)
	f.addRepo("acme/api", 3, true)

	cases := []struct {
		name string
		mut  func(*TaskParams)
	}{
		{"blank title", func(p *TaskParams) { p.Title = "  " }},
		{"zero estimate", func(p *TaskParams) { p.EstimatePoints = 0 }},
		{"estimate above max", func(p *TaskParams) { p.EstimatePoints = 101 }},
		{"negative priority", func(p *TaskParams) { p.Priority = -1 }},
		{"priority above max", func(p *TaskParams) { p.Priority = 1001 }},
		{"negative tier", func(p *TaskParams) { p.Tier = -1 }},
		{"tier above max", func(p *TaskParams) { p.Tier = 4 }},
		{"area too long", func(p *TaskParams) { p.Area = strings.Repeat("a", 121) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := TaskParams{Repo: "acme/api", Title: "ok", EstimatePoints: 1, Priority: 10}
			tc.mut(&p)
			_, err := f.svc.AddTask(f.ctx, p)
			assert.ErrorIs(t, err, types.ErrBadRequest)
		})
	}
}

// Creating a task while a worker is online assigns it in the same call,
// because every mutation finishes with a scheduling cycle.
func TestAddTaskAssignsImmediately(t *testing.T) {
	f := newFixture(t)
	f.addRepo("acme/api", 3, true)
	w, _ := f.addWorker("w1", nil)
	f.beat(w.WorkerID, types.WorkerIdle)

	now := clock.Now(f.ctx)
	created := f.addTask("acme/api", "Fix flaky build")

	got := f.task(created.TaskID)
	assert.Equal(t, types.TaskLeased, got.Status)
	assert.Equal(t, w.WorkerID, got.AssignedWorkerID)
	require.NotNil(t, got.LeaseExpiresAt)
	assert.Equal(t, now.Add(30*time.Minute), *got.LeaseExpiresAt)
}

// WorkFor runs its own cycle before reading, so tasks that appeared
// since the last mutation are assigned in the same poll.
func TestWorkForSchedulesBeforeReading(t *testing.T) {
	f := newFixture(t)
	f.addRepo("acme/api", 3, true)
	w, _ := f.addWorker("w1", nil)
	f.beat(w.WorkerID, types.WorkerIdle)

	// Insert directly so no cycle runs at creation time.
	require.NoError(t, f.store.InsertTask(&types.Task{
		TaskID:         "t_direct000001",
		Repo:           "acme/api",
		Title:          "Ship it",
		EstimatePoints: 1,
		Priority:       10,
		Status:         types.TaskReady,
		UpdatedAt:      clock.Now(f.ctx),
	}))

	held, err := f.svc.WorkFor(f.ctx, w.WorkerID)
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, "t_direct000001", held[0].TaskID)
	assert.Equal(t, types.TaskLeased, held[0].Status)
	assert.Equal(t, w.WorkerID, held[0].AssignedWorkerID)
}

func TestExpiredLeaseMovesToLiveWorker(t *testing.T) {
	f := newFixture(t)
	f.addRepo("acme/api", 3, true)
	w1, _ := f.addWorker("w1", nil)
	f.beat(w1.WorkerID, types.WorkerIdle)
	created := f.addTask("acme/api", "long haul")
	require.Equal(t, w1.WorkerID, f.task(created.TaskID).AssignedWorkerID)

	// Let the lease lapse; w1 goes silent, w2 shows up.
	f.ctx.Advance(31 * time.Minute)
	w2, _ := f.addWorker("w2", nil)
	f.beat(w2.WorkerID, types.WorkerIdle)

	got := f.task(created.TaskID)
	assert.Equal(t, types.TaskLeased, got.Status)
	assert.Equal(t, w2.WorkerID, got.AssignedWorkerID)
	assert.Equal(t, 1, got.Attempt, "requeue increments the attempt counter")
}

func TestUpdateTaskStatusAuthorization(t *testing.T) {
	f := newFixture(t)
	f.addRepo("acme/api", 3, true)
	w1, _ := f.addWorker("w1", nil)
	f.beat(w1.WorkerID, types.WorkerIdle)
	w2, _ := f.addWorker("w2", nil)
	f.beat(w2.WorkerID, types.WorkerIdle)

	created := f.addTask("acme/api", "guarded")
	require.Equal(t, w1.WorkerID, f.task(created.TaskID).AssignedWorkerID,
		"earliest heartbeat wins the zero-load tie")

	err := f.svc.UpdateTaskStatus(f.ctx, w2.WorkerID, StatusParams{
		TaskID: created.TaskID,
		Status: types.TaskInProgress,
	})
	assert.ErrorIs(t, err, types.ErrForbidden)
	assert.Equal(t, types.TaskLeased, f.task(created.TaskID).Status, "rejected report must not apply")

	require.NoError(t, f.svc.UpdateTaskStatus(f.ctx, w1.WorkerID, StatusParams{
		TaskID: created.TaskID,
		Status: types.TaskInProgress,
	}))
	assert.Equal(t, types.TaskInProgress, f.task(created.TaskID).Status)
}

func TestUpdateTaskStatusTargetValidation(t *testing.T) {
	f := newFixture(t)
	f.addRepo("acme/api", 3, true)
	w, _ := f.addWorker("w1", nil)
	f.beat(w.WorkerID, types.WorkerIdle)
	created := f.addTask("acme/api", "guarded")

	for _, target := range []types.TaskStatus{types.TaskReady, types.TaskLeased, "bogus"} {
		err := f.svc.UpdateTaskStatus(f.ctx, w.WorkerID, StatusParams{TaskID: created.TaskID, Status: target})
		assert.ErrorIs(t, err, types.ErrBadRequest, "target %q", target)
	}

	err := f.svc.UpdateTaskStatus(f.ctx, w.WorkerID, StatusParams{
		TaskID:  created.TaskID,
		Status:  types.TaskInProgress,
		Message: strings.Repeat("m", 4001),
	})
	assert.ErrorIs(t, err, types.ErrBadRequest)
}

func TestUpdateTaskStatusUnknownTask(t *testing.T) {
	f := newFixture(t)
	w, _ := f.addWorker("w1", nil)

	err := f.svc.UpdateTaskStatus(f.ctx, w.WorkerID, StatusParams{TaskID: "t_missing00001", Status: types.TaskInProgress})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

// A merge report frees the repo throttle and the same call's trailing
// cycle hands the queued task out.
func TestMergeFreesThrottleImmediately(t *testing.T) {
	f := newFixture(t)
	f.addRepo("acme/api", 1, true)
	w, _ := f.addWorker("w1", nil)
	f.beat(w.WorkerID, types.WorkerIdle)

	first := f.addTask("acme/api", "first change")
	require.Equal(t, types.TaskLeased, f.task(first.TaskID).Status)

	require.NoError(t, f.svc.UpdateTaskStatus(f.ctx, w.WorkerID, StatusParams{
		TaskID: first.TaskID,
		Status: types.TaskInProgress,
	}))
	require.NoError(t, f.svc.UpdateTaskStatus(f.ctx, w.WorkerID, StatusParams{
		TaskID:   first.TaskID,
		Status:   types.TaskPROpened,
		Artifact: &types.TaskArtifact{PRURL: "https://github.com/acme/api/pull/7"},
	}))

	second := f.addTask("acme/api", "queued behind the PR")
	assert.Equal(t, types.TaskReady, f.task(second.TaskID).Status, "open PR at the cap blocks new assignments")

	require.NoError(t, f.svc.UpdateTaskStatus(f.ctx, w.WorkerID, StatusParams{
		TaskID: first.TaskID,
		Status: types.TaskMerged,
	}))

	got := f.task(second.TaskID)
	assert.Equal(t, types.TaskLeased, got.Status)
	assert.Equal(t, w.WorkerID, got.AssignedWorkerID)
}

func TestAreaLockHoldsBackSameArea(t *testing.T) {
	f := newFixture(t)
	f.addRepo("acme/api", 5, true)
	w1, _ := f.addWorker("w1", nil)
	f.beat(w1.WorkerID, types.WorkerIdle)
	w2, _ := f.addWorker("w2", nil)
	f.beat(w2.WorkerID, types.WorkerIdle)

	pay1 := f.addTask("acme/api", "payments refactor", func(p *TaskParams) {
		p.Area = "payments"
		p.Priority = 100
	})
	pay2 := f.addTask("acme/api", "payments follow-up", func(p *TaskParams) {
		p.Area = "payments"
		p.Priority = 90
	})
	web := f.addTask("acme/api", "web polish", func(p *TaskParams) {
		p.Area = "web"
	})

	assert.Equal(t, w1.WorkerID, f.task(pay1.TaskID).AssignedWorkerID)
	assert.Equal(t, types.TaskReady, f.task(pay2.TaskID).Status, "area stays locked while pay1 is held")
	assert.Equal(t, w2.WorkerID, f.task(web.TaskID).AssignedWorkerID, "least-loaded worker takes the next area")
}

func TestPausedWorkerResumesOnHeartbeat(t *testing.T) {
	f := newFixture(t)
	f.addRepo("acme/api", 3, true)
	w, _ := f.addWorker("w1", nil)
	f.beat(w.WorkerID, types.WorkerPaused)

	created := f.addTask("acme/api", "waits for resume")
	assert.Equal(t, types.TaskReady, f.task(created.TaskID).Status)

	f.beat(w.WorkerID, types.WorkerIdle)
	got := f.task(created.TaskID)
	assert.Equal(t, types.TaskLeased, got.Status)
	assert.Equal(t, w.WorkerID, got.AssignedWorkerID)
}

// Reports outside the usual lifecycle are applied, not rejected. A task
// can jump from leased straight to merged when a worker recovered out of
// band.
func TestUnexpectedTransitionIsApplied(t *testing.T) {
	f := newFixture(t)
	f.addRepo("acme/api", 3, true)
	w, _ := f.addWorker("w1", nil)
	f.beat(w.WorkerID, types.WorkerIdle)
	created := f.addTask("acme/api", "fast-forward")

	require.NoError(t, f.svc.UpdateTaskStatus(f.ctx, w.WorkerID, StatusParams{
		TaskID: created.TaskID,
		Status: types.TaskMerged,
	}))
	assert.Equal(t, types.TaskMerged, f.task(created.TaskID).Status)
}

func TestMergedTaskRejectsFurtherReports(t *testing.T) {
	f := newFixture(t)
	f.addRepo("acme/api", 3, true)
	w, _ := f.addWorker("w1", nil)
	f.beat(w.WorkerID, types.WorkerIdle)
	created := f.addTask("acme/api", "done and dusted")

	require.NoError(t, f.svc.UpdateTaskStatus(f.ctx, w.WorkerID, StatusParams{
		TaskID: created.TaskID,
		Status: types.TaskMerged,
	}))

	err := f.svc.UpdateTaskStatus(f.ctx, w.WorkerID, StatusParams{
		TaskID: created.TaskID,
		Status: types.TaskInProgress,
	})
	assert.ErrorIs(t, err, types.ErrBadRequest)
	assert.Equal(t, types.TaskMerged, f.task(created.TaskID).Status)
}

func TestAdminStateSummarizes(t *testing.T) {
	f := newFixture(t)
	f.addRepo("acme/api", 3, true)

	w1, _ := f.addWorker("w1", nil)
	f.addWorker("w2", nil) // never heartbeats
	w3, _ := f.addWorker("w3", nil)
	f.beat(w3.WorkerID, types.WorkerIdle)
	f.ctx.Advance(2 * time.Minute) // w3 goes stale
	f.beat(w1.WorkerID, types.WorkerIdle)

	f.addTask("acme/api", "gets assigned")
	f.addTask("acme/api", "needs rust", func(p *TaskParams) {
		p.RequiredSkills = []string{"rust"}
	})

	state, err := f.svc.AdminState(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, state.WorkersOnline)
	assert.Equal(t, 1, state.TasksLeased)
	assert.Equal(t, 1, state.TasksReady)
	assert.Equal(t, 0, state.TasksMerged)
}

func TestDashboardAggregates(t *testing.T) {
	f := newFixture(t)
	f.addRepo("acme/api", 3, true)
	f.addRepo("acme/frozen", 0, false)
	w, _ := f.addWorker("w1", nil)
	f.beat(w.WorkerID, types.WorkerIdle)
	created := f.addTask("acme/api", "visible on the board", func(p *TaskParams) {
		p.EstimatePoints = 2
	})

	d, err := f.svc.Dashboard(f.ctx)
	require.NoError(t, err)

	require.Len(t, d.Repos, 2)
	assert.Equal(t, "acme/api", d.Repos[0].Repo.Repo)
	assert.False(t, d.Repos[0].Throttled)
	assert.True(t, d.Repos[1].Throttled, "max_open_prs zero disables assignment")

	require.Len(t, d.Workers, 1)
	assert.True(t, d.Workers[0].Online)
	assert.Equal(t, 2, d.Workers[0].UsedPoints)
	assert.Equal(t, 1, d.Workers[0].UsedTasks)

	require.Len(t, d.Tasks, 1)
	assert.Equal(t, created.TaskID, d.Tasks[0].TaskID)

	assert.NotEmpty(t, d.Events)
	assert.Equal(t, 1, d.Counts[types.TaskLeased])
	assert.Equal(t, 0, d.Counts[types.TaskReady])
}
