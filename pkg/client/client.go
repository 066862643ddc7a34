package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cbruyndoncx/open-work-protocol/pkg/types"
)

const (
	// attemptTimeout bounds a single HTTP attempt.
	attemptTimeout = 20 * time.Second
	// callTimeout bounds a whole call including retries.
	callTimeout = 30 * time.Second

	retryInitial    = 250 * time.Millisecond
	retryMaxWait    = 2 * time.Second
	retryMaxElapsed = 8 * time.Second

	maxResponseBytes = 4 << 20
)

// Client is a thin HTTP client for the pool API. It is safe for
// concurrent use.
type Client struct {
	server     string
	token      string
	adminToken string
	httpClient *http.Client

	// newBackOff builds the retry policy for one call. Tests swap it
	// out to avoid real sleeps.
	newBackOff func() backoff.BackOff
}

// NewClient creates a client for the open endpoints: health checks and
// worker registration.
func NewClient(server string) *Client {
	return &Client{
		server:     strings.TrimRight(server, "/"),
		httpClient: &http.Client{Timeout: attemptTimeout},
		newBackOff: defaultBackOff,
	}
}

// NewWorkerClient creates a client that authenticates as a registered
// worker with its bearer token.
func NewWorkerClient(server, token string) *Client {
	c := NewClient(server)
	c.token = token
	return c
}

// NewAdminClient creates a client that authenticates with the shared
// admin token.
func NewAdminClient(server, adminToken string) *Client {
	c := NewClient(server)
	c.adminToken = adminToken
	return c
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitial
	b.MaxInterval = retryMaxWait
	b.MaxElapsedTime = retryMaxElapsed
	return b
}

// APIError is a non-2xx response from the pool server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
}

// RegisterRequest describes a new worker. All fields are sent as given;
// the server validates ranges.
type RegisterRequest struct {
	Name               string   `json:"name"`
	GithubHandle       string   `json:"github_handle"`
	Skills             []string `json:"skills"`
	CapacityPoints     int      `json:"capacity_points"`
	MaxConcurrentTasks int      `json:"max_concurrent_tasks"`
}

// Lease is one task currently held by the calling worker.
type Lease struct {
	TaskID         string    `json:"task_id"`
	Repo           string    `json:"repo"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	EstimatePoints int       `json:"estimate_points"`
	Priority       int       `json:"priority"`
	Area           string    `json:"area"`
	Tier           int       `json:"tier"`
	RequiredSkills []string  `json:"required_skills"`
	LeaseExpiresAt time.Time `json:"lease_expires_at"`
}

// Work is the response to a work poll.
type Work struct {
	WorkerID string  `json:"worker_id"`
	Leases   []Lease `json:"leases"`
}

// TaskSpec describes a task to enqueue.
type TaskSpec struct {
	Repo           string   `json:"repo"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	EstimatePoints int      `json:"estimate_points"`
	Priority       int      `json:"priority"`
	RequiredSkills []string `json:"required_skills"`
	Area           string   `json:"area"`
	Tier           int      `json:"tier"`
}

// State is the flat counts summary from the admin endpoint.
type State struct {
	WorkersOnline   int `json:"workers_online"`
	TasksReady      int `json:"tasks_ready"`
	TasksLeased     int `json:"tasks_leased"`
	TasksInProgress int `json:"tasks_in_progress"`
	TasksPROpened   int `json:"tasks_pr_opened"`
	TasksBlocked    int `json:"tasks_blocked"`
	TasksMerged     int `json:"tasks_merged"`
}

// Healthz checks that the server is reachable.
func (c *Client) Healthz() error {
	return c.do(http.MethodGet, "/healthz", nil, nil)
}

// Register creates a new worker and returns its credentials. The token
// is only ever issued here; callers should persist it right away.
func (c *Client) Register(req RegisterRequest) (*Credentials, error) {
	var resp struct {
		WorkerID string `json:"worker_id"`
		Token    string `json:"token"`
	}
	if err := c.do(http.MethodPost, "/v1/workers/register", req, &resp); err != nil {
		return nil, err
	}
	return &Credentials{Server: c.server, WorkerID: resp.WorkerID, Token: resp.Token}, nil
}

// Heartbeat reports liveness and the worker's current status. It
// returns the server's clock reading.
func (c *Client) Heartbeat(status, note string) (time.Time, error) {
	req := struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}{Status: status, Note: note}
	var resp struct {
		ServerTime time.Time `json:"server_time"`
	}
	if err := c.do(http.MethodPost, "/v1/workers/heartbeat", req, &resp); err != nil {
		return time.Time{}, err
	}
	return resp.ServerTime, nil
}

// PullWork triggers a dispatch pass and returns the worker's current
// leases.
func (c *Client) PullWork() (*Work, error) {
	var resp Work
	if err := c.do(http.MethodGet, "/v1/work", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateTaskStatus reports progress on a held task.
func (c *Client) UpdateTaskStatus(taskID, status, message string, artifact *types.TaskArtifact) error {
	req := struct {
		Status   string              `json:"status"`
		Message  string              `json:"message"`
		Artifact *types.TaskArtifact `json:"artifact,omitempty"`
	}{Status: status, Message: message, Artifact: artifact}
	return c.do(http.MethodPost, "/v1/tasks/"+url.PathEscape(taskID)+"/status", req, nil)
}

// UpsertRepo registers a repo or reconfigures an existing one.
func (c *Client) UpsertRepo(repo string, maxOpenPRs int, areaLocksEnabled bool) error {
	req := struct {
		Repo             string `json:"repo"`
		MaxOpenPRs       int    `json:"max_open_prs"`
		AreaLocksEnabled bool   `json:"area_locks_enabled"`
	}{Repo: repo, MaxOpenPRs: maxOpenPRs, AreaLocksEnabled: areaLocksEnabled}
	return c.do(http.MethodPost, "/v1/admin/repos", req, nil)
}

// CreateTask enqueues a task and returns its ID.
func (c *Client) CreateTask(spec TaskSpec) (string, error) {
	var resp struct {
		TaskID string `json:"task_id"`
	}
	if err := c.do(http.MethodPost, "/v1/admin/tasks", spec, &resp); err != nil {
		return "", err
	}
	return resp.TaskID, nil
}

// State fetches the flat counts summary.
func (c *Client) State() (*State, error) {
	var resp State
	if err := c.do(http.MethodGet, "/v1/admin/state", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do runs one request against the pool API, retrying connection
// failures and gateway errors (502-504). Every other HTTP error comes
// back as an *APIError without a retry; in particular a plain 500 is
// never replayed, since the server may have applied the request before
// failing. Each attempt builds a fresh request so the body can be
// re-sent.
func (c *Client) do(method, path string, payload, out any) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request for %s: %w", path, err)
		}
	}

	op := func() error {
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.server+path, rd)
		if err != nil {
			return backoff.Permanent(err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		if c.adminToken != "" {
			req.Header.Set("X-Admin-Token", c.adminToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return fmt.Errorf("read response from %s: %w", path, err)
		}
		if resp.StatusCode >= 400 {
			apiErr := &APIError{Status: resp.StatusCode, Message: errorDetail(resp.StatusCode, data)}
			switch resp.StatusCode {
			case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		if out != nil {
			if err := json.Unmarshal(data, out); err != nil {
				return backoff.Permanent(fmt.Errorf("decode response from %s: %w", path, err))
			}
		}
		return nil
	}
	return backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx))
}

// errorDetail extracts the error body the server attaches to non-2xx
// responses, falling back to the raw body or the status text.
func errorDetail(status int, data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	if s := strings.TrimSpace(string(data)); s != "" {
		return s
	}
	return http.StatusText(status)
}
