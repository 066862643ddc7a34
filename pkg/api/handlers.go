package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cbruyndoncx/open-work-protocol/pkg/clock"
	"github.com/cbruyndoncx/open-work-protocol/pkg/pool"
	"github.com/cbruyndoncx/open-work-protocol/pkg/types"
)

// Wire shapes. Numeric and boolean fields that have server-side defaults
// are pointers: an omitted field takes the default, while an explicit
// zero is validated as given.

type registerRequest struct {
	Name               string   `json:"name"`
	GithubHandle       string   `json:"github_handle"`
	Skills             []string `json:"skills"`
	CapacityPoints     *int     `json:"capacity_points"`
	MaxConcurrentTasks *int     `json:"max_concurrent_tasks"`
}

type registerResponse struct {
	WorkerID string `json:"worker_id"`
	Token    string `json:"token"`
}

type heartbeatRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type heartbeatResponse struct {
	OK         bool      `json:"ok"`
	ServerTime time.Time `json:"server_time"`
}

type leaseView struct {
	TaskID         string    `json:"task_id"`
	Repo           string    `json:"repo"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	EstimatePoints int       `json:"estimate_points"`
	Priority       int       `json:"priority"`
	Area           string    `json:"area,omitempty"`
	Tier           int       `json:"tier"`
	RequiredSkills []string  `json:"required_skills"`
	LeaseExpiresAt time.Time `json:"lease_expires_at"`
}

type workResponse struct {
	WorkerID string      `json:"worker_id"`
	Leases   []leaseView `json:"leases"`
}

type statusUpdateRequest struct {
	Status   string              `json:"status"`
	Message  string              `json:"message"`
	Artifact *types.TaskArtifact `json:"artifact"`
}

type repoCreateRequest struct {
	Repo             string `json:"repo"`
	MaxOpenPRs       *int   `json:"max_open_prs"`
	AreaLocksEnabled *bool  `json:"area_locks_enabled"`
}

type repoCreateResponse struct {
	OK   bool   `json:"ok"`
	Repo string `json:"repo"`
}

type taskCreateRequest struct {
	Repo           string   `json:"repo"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	EstimatePoints *int     `json:"estimate_points"`
	Priority       *int     `json:"priority"`
	RequiredSkills []string `json:"required_skills"`
	Area           string   `json:"area"`
	Tier           *int     `json:"tier"`
}

type taskCreateResponse struct {
	OK     bool   `json:"ok"`
	TaskID string `json:"task_id"`
}

type okBody struct {
	OK bool `json:"ok"`
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("malformed request body: %w", types.ErrBadRequest)
	}
	return nil
}

func intOr(v *int, def int) int {
	if v != nil {
		return *v
	}
	return def
}

func boolOr(v *bool, def bool) bool {
	if v != nil {
		return *v
	}
	return def
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	worker, token, err := s.svc.RegisterWorker(r.Context(), pool.RegisterParams{
		Name:               req.Name,
		GithubHandle:       req.GithubHandle,
		Skills:             req.Skills,
		CapacityPoints:     intOr(req.CapacityPoints, types.DefaultCapacityPoints),
		MaxConcurrentTasks: intOr(req.MaxConcurrentTasks, types.DefaultConcurrent),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, registerResponse{WorkerID: worker.WorkerID, Token: token})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request, worker *types.Worker) {
	var req heartbeatRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	status := types.WorkerStatus(req.Status)
	if req.Status == "" {
		status = types.WorkerIdle
	}
	if err := s.svc.Heartbeat(r.Context(), worker.WorkerID, status, req.Note); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, heartbeatResponse{OK: true, ServerTime: clock.Now(r.Context())})
}

func (s *Server) handleWork(w http.ResponseWriter, r *http.Request, worker *types.Worker) {
	tasks, err := s.svc.WorkFor(r.Context(), worker.WorkerID)
	if err != nil {
		writeError(w, err)
		return
	}

	now := clock.Now(r.Context())
	resp := workResponse{WorkerID: worker.WorkerID, Leases: make([]leaseView, 0, len(tasks))}
	for _, t := range tasks {
		// Held tasks always carry a deadline; fall back to now so the
		// response shape stays stable if one ever does not.
		expires := now
		if t.LeaseExpiresAt != nil {
			expires = *t.LeaseExpiresAt
		}
		resp.Leases = append(resp.Leases, leaseView{
			TaskID:         t.TaskID,
			Repo:           t.Repo,
			Title:          t.Title,
			Description:    t.Description,
			EstimatePoints: t.EstimatePoints,
			Priority:       t.Priority,
			Area:           t.Area,
			Tier:           t.Tier,
			RequiredSkills: t.RequiredSkills,
			LeaseExpiresAt: expires,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request, worker *types.Worker) {
	var req statusUpdateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	err := s.svc.UpdateTaskStatus(r.Context(), worker.WorkerID, pool.StatusParams{
		TaskID:   chi.URLParam(r, "taskID"),
		Status:   types.TaskStatus(req.Status),
		Message:  req.Message,
		Artifact: req.Artifact,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) handleCreateRepo(w http.ResponseWriter, r *http.Request) {
	var req repoCreateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rec, err := s.svc.CreateRepo(r.Context(), req.Repo,
		intOr(req.MaxOpenPRs, types.DefaultMaxOpenPRs),
		boolOr(req.AreaLocksEnabled, true))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repoCreateResponse{OK: true, Repo: rec.Repo})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskCreateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	task, err := s.svc.AddTask(r.Context(), pool.TaskParams{
		Repo:           req.Repo,
		Title:          req.Title,
		Description:    req.Description,
		EstimatePoints: intOr(req.EstimatePoints, types.DefaultEstimate),
		Priority:       intOr(req.Priority, types.DefaultPriority),
		RequiredSkills: req.RequiredSkills,
		Area:           req.Area,
		Tier:           intOr(req.Tier, types.DefaultTier),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskCreateResponse{OK: true, TaskID: task.TaskID})
}

func (s *Server) handleAdminState(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.AdminState(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
