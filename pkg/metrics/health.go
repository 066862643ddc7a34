package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthStatus is the JSON body served by the health endpoints.
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
	Message    string            `json:"message,omitempty"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
}

type componentState struct {
	healthy bool
	detail  string
	updated time.Time
}

// Checker tracks per-component health pushed by the rest of the process.
// Components report in whenever their state changes; the handlers read
// whatever was last reported.
type Checker struct {
	mu         sync.RWMutex
	components map[string]componentState
	critical   []string
	start      time.Time
	version    string
}

// NewChecker creates a checker. The named components are required for
// readiness; anything else reported affects only overall health.
func NewChecker(version string, critical ...string) *Checker {
	return &Checker{
		components: make(map[string]componentState),
		critical:   critical,
		start:      time.Now(),
		version:    version,
	}
}

// SetComponent records a component's current state.
func (c *Checker) SetComponent(name string, healthy bool, detail string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components[name] = componentState{healthy: healthy, detail: detail, updated: time.Now()}
}

// Health reports overall health: unhealthy if any reported component is.
func (c *Checker) Health() HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := "healthy"
	components := make(map[string]string, len(c.components))
	for name, comp := range c.components {
		if comp.healthy {
			components[name] = "healthy"
			continue
		}
		status = "unhealthy"
		components[name] = "unhealthy: " + comp.detail
	}

	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		Components: components,
		Version:    c.version,
		Uptime:     time.Since(c.start).String(),
	}
}

// Readiness reports whether every critical component has checked in
// healthy. Missing components count as not ready.
func (c *Checker) Readiness() HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := "ready"
	message := ""
	components := make(map[string]string, len(c.critical))
	for _, name := range c.critical {
		comp, ok := c.components[name]
		switch {
		case !ok:
			status = "not_ready"
			message = "waiting for " + name + " initialization"
			components[name] = "not registered"
		case !comp.healthy:
			status = "not_ready"
			message = "waiting for " + name
			components[name] = "not ready: " + comp.detail
		default:
			components[name] = "ready"
		}
	}

	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		Components: components,
		Message:    message,
		Version:    c.version,
		Uptime:     time.Since(c.start).String(),
	}
}

// HealthHandler serves overall health, 503 when unhealthy.
func (c *Checker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := c.Health()
		code := http.StatusOK
		if health.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		writeStatus(w, code, health)
	}
}

// ReadyHandler serves readiness, 503 until critical components report in.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		readiness := c.Readiness()
		code := http.StatusOK
		if readiness.Status != "ready" {
			code = http.StatusServiceUnavailable
		}
		writeStatus(w, code, readiness)
	}
}

// LivenessHandler always answers 200 while the process runs.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "alive",
			"uptime": time.Since(c.start).String(),
		})
	}
}

func writeStatus(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
