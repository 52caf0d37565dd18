// Package healthprobe provides liveness and readiness HTTP handlers.
package healthprobe

import (
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// HealthChecker tracks overall readiness plus per-component status so the
// readiness probe can say which venue connection is down.
type HealthChecker struct {
	startTime time.Time

	mu         sync.RWMutex
	ready      bool
	components map[string]bool
}

// New creates a new HealthChecker.
func New() *HealthChecker {
	return &HealthChecker{
		startTime:  time.Now(),
		components: make(map[string]bool),
	}
}

// SetReady marks the application as ready to serve traffic.
func (h *HealthChecker) SetReady(ready bool) {
	h.mu.Lock()
	h.ready = ready
	h.mu.Unlock()
}

// SetComponent records the up/down status of a named component, e.g. a
// venue websocket connection.
func (h *HealthChecker) SetComponent(name string, up bool) {
	h.mu.Lock()
	h.components[name] = up
	h.mu.Unlock()
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status     string          `json:"status"`
	Uptime     string          `json:"uptime"`
	Message    string          `json:"message,omitempty"`
	Components map[string]bool `json:"components,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status: "healthy",
			Uptime: time.Since(h.startTime).String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK if ready, 503 Service Unavailable if not.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.RLock()
		ready := h.ready
		components := make(map[string]bool, len(h.components))
		for name, up := range h.components {
			components[name] = up
		}
		h.mu.RUnlock()

		resp := HealthResponse{
			Uptime:     time.Since(h.startTime).String(),
			Components: components,
		}

		w.Header().Set("Content-Type", "application/json")
		if !ready {
			resp.Status = "not_ready"
			resp.Message = "application is starting"
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		resp.Status = "ready"
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
