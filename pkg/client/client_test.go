package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbruyndoncx/open-work-protocol/pkg/types"
)

// instantRetries removes the waits between attempts so retry tests run
// in microseconds.
func instantRetries(c *Client) {
	c.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 4)
	}
}

func respondJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestRegisterReturnsCredentialsForThisServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/workers/register", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "builder-1", body["name"])
		assert.EqualValues(t, 5, body["capacity_points"])
		assert.EqualValues(t, 2, body["max_concurrent_tasks"])

		respondJSON(t, w, http.StatusOK, map[string]string{
			"worker_id": "w_1a2b3c4d5e6f7a8b",
			"token":     "tok-secret",
		})
	}))
	defer srv.Close()

	creds, err := NewClient(srv.URL).Register(RegisterRequest{
		Name:               "builder-1",
		Skills:             []string{"go"},
		CapacityPoints:     5,
		MaxConcurrentTasks: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, srv.URL, creds.Server)
	assert.Equal(t, "w_1a2b3c4d5e6f7a8b", creds.WorkerID)
	assert.Equal(t, "tok-secret", creds.Token)
}

func TestWorkerTokenSentAsBearer(t *testing.T) {
	expires := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-9", r.Header.Get("Authorization"))
		require.Equal(t, "/v1/work", r.URL.Path)
		respondJSON(t, w, http.StatusOK, map[string]any{
			"worker_id": "w_9",
			"leases": []map[string]any{{
				"task_id":          "t_1",
				"repo":             "acme/api",
				"title":            "Fix login",
				"estimate_points":  3,
				"priority":         80,
				"tier":             0,
				"required_skills":  []string{"go"},
				"lease_expires_at": expires,
			}},
		})
	}))
	defer srv.Close()

	work, err := NewWorkerClient(srv.URL, "tok-9").PullWork()
	require.NoError(t, err)
	assert.Equal(t, "w_9", work.WorkerID)
	require.Len(t, work.Leases, 1)
	assert.Equal(t, "t_1", work.Leases[0].TaskID)
	assert.Equal(t, "acme/api", work.Leases[0].Repo)
	assert.Equal(t, 3, work.Leases[0].EstimatePoints)
	assert.True(t, work.Leases[0].LeaseExpiresAt.Equal(expires))
}

func TestHeartbeatReturnsServerTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/workers/heartbeat", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "working", body["status"])
		assert.Equal(t, "busy", body["note"])
		respondJSON(t, w, http.StatusOK, map[string]any{"ok": true, "server_time": now})
	}))
	defer srv.Close()

	ts, err := NewWorkerClient(srv.URL, "tok").Heartbeat("working", "busy")
	require.NoError(t, err)
	assert.True(t, ts.Equal(now))
}

func TestAdminTokenSentAsHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "super-secret", r.Header.Get("X-Admin-Token"))
		require.Equal(t, "/v1/admin/state", r.URL.Path)
		respondJSON(t, w, http.StatusOK, map[string]int{
			"workers_online": 2,
			"tasks_ready":    4,
			"tasks_leased":   1,
			"tasks_merged":   7,
		})
	}))
	defer srv.Close()

	state, err := NewAdminClient(srv.URL, "super-secret").State()
	require.NoError(t, err)
	assert.Equal(t, 2, state.WorkersOnline)
	assert.Equal(t, 4, state.TasksReady)
	assert.Equal(t, 1, state.TasksLeased)
	assert.Equal(t, 7, state.TasksMerged)
}

func TestUpdateTaskStatusSendsArtifact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/tasks/t_42/status", r.URL.Path)
		var body struct {
			Status   string              `json:"status"`
			Message  string              `json:"message"`
			Artifact *types.TaskArtifact `json:"artifact"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pr_opened", body.Status)
		assert.Equal(t, "opened PR", body.Message)
		require.NotNil(t, body.Artifact)
		assert.Equal(t, "https://github.com/acme/api/pull/7", body.Artifact.PRURL)
		respondJSON(t, w, http.StatusOK, map[string]bool{"ok": true})
	}))
	defer srv.Close()

	err := NewWorkerClient(srv.URL, "tok").UpdateTaskStatus("t_42", "pr_opened", "opened PR",
		&types.TaskArtifact{PRURL: "https://github.com/acme/api/pull/7"})
	require.NoError(t, err)
}

func TestGatewayErrorsAreRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			respondJSON(t, w, http.StatusServiceUnavailable, map[string]string{"error": "backend down"})
			return
		}
		respondJSON(t, w, http.StatusOK, map[string]bool{"ok": true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	instantRetries(c)
	require.NoError(t, c.Healthz())
	assert.EqualValues(t, 3, calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		respondJSON(t, w, http.StatusBadRequest, map[string]string{"error": "no good"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	instantRetries(c)
	err := c.Healthz()
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "no good", apiErr.Message)
	assert.Equal(t, "server error 400: no good", err.Error())
}

func TestInternalErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	instantRetries(c)
	err := c.Healthz()
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "boom", apiErr.Message)
}

func TestCredentialsRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := SaveCredentials(&Credentials{
		Server:   "http://127.0.0.1:8787",
		WorkerID: "w_1",
		Token:    "tok",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "owp-pool", "config.json"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	creds, err := LoadCredentials()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8787", creds.Server)
	assert.Equal(t, "w_1", creds.WorkerID)
	assert.Equal(t, "tok", creds.Token)
}

func TestLoadCredentialsMissingFileIsEmpty(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	creds, err := LoadCredentials()
	require.NoError(t, err)
	assert.Empty(t, creds.Server)
	assert.Empty(t, creds.WorkerID)
	assert.Empty(t, creds.Token)
}
