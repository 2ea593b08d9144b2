package http

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/civic-dashboard/internal/core/services"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// RemoteProbe reports whether the civic-issue service answers.
type RemoteProbe interface {
	Reachable(ctx context.Context) bool
}

// PushStatus reports the live event connection.
type PushStatus interface {
	IsConnected() bool
}

// ModeReporter reports where reads are served from.
type ModeReporter interface {
	Mode() services.Mode
}

// HealthChecker defines the interface for health check dependencies
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	remote     RemoteProbe
	push       PushStatus
	mode       ModeReporter
	tokenStore HealthChecker
	startTime  time.Time
	version    string
}

// NewHealthHandler creates a new health handler. tokenStore may be nil when
// the session token is not kept in a shared store.
func NewHealthHandler(remote RemoteProbe, push PushStatus, mode ModeReporter, tokenStore HealthChecker, version string) *HealthHandler {
	return &HealthHandler{
		remote:     remote,
		push:       push,
		mode:       mode,
		tokenStore: tokenStore,
		startTime:  time.Now(),
		version:    version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Version   string           `json:"version,omitempty"`
	Uptime    string           `json:"uptime,omitempty"`
	Mode      services.Mode    `json:"mode,omitempty"`
	Checks    map[string]Check `json:"checks,omitempty"`
}

// Check represents an individual health check result
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

// HandleLiveness handles liveness probe requests (is the process running?)
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    statusHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness handles readiness probe requests. An unreachable remote
// only degrades the service because reads fall back to synthetic data; a
// failing token store makes it unready.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, checks := h.runChecks(ctx)
	code := http.StatusOK
	if status == statusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	WriteJSON(w, code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Mode:      h.mode.Mode(),
		Checks:    checks,
	})
}

// HandleHealth handles detailed health check requests (for monitoring/debugging)
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, checks := h.runChecks(ctx)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := struct {
		HealthResponse
		Memory struct {
			Alloc      uint64 `json:"alloc_bytes"`
			TotalAlloc uint64 `json:"total_alloc_bytes"`
			Sys        uint64 `json:"sys_bytes"`
			NumGC      uint32 `json:"num_gc"`
		} `json:"memory"`
		Goroutines int `json:"goroutines"`
	}{
		HealthResponse: HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   h.version,
			Uptime:    time.Since(h.startTime).Round(time.Second).String(),
			Mode:      h.mode.Mode(),
			Checks:    checks,
		},
		Goroutines: runtime.NumGoroutine(),
	}
	response.Memory.Alloc = memStats.Alloc
	response.Memory.TotalAlloc = memStats.TotalAlloc
	response.Memory.Sys = memStats.Sys
	response.Memory.NumGC = memStats.NumGC

	code := http.StatusOK
	if status == statusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, response)
}

func (h *HealthHandler) runChecks(ctx context.Context) (string, map[string]Check) {
	checks := map[string]Check{
		"remote": h.checkRemote(ctx),
		"push":   h.checkPush(),
	}
	if h.tokenStore != nil {
		checks["token_store"] = h.checkTokenStore(ctx)
	}

	overall := statusHealthy
	for name, check := range checks {
		switch {
		case check.Status == statusUnhealthy && name == "token_store":
			return statusUnhealthy, checks
		case check.Status != statusHealthy:
			overall = statusDegraded
		}
	}
	return overall, checks
}

func (h *HealthHandler) checkRemote(ctx context.Context) Check {
	start := time.Now()
	if !h.remote.Reachable(ctx) {
		return Check{
			Status:  statusDegraded,
			Message: "civic-issue service unreachable; serving synthetic data",
			Latency: time.Since(start).String(),
		}
	}
	return Check{Status: statusHealthy, Latency: time.Since(start).String()}
}

func (h *HealthHandler) checkPush() Check {
	if !h.push.IsConnected() {
		return Check{Status: statusDegraded, Message: "live updates disconnected"}
	}
	return Check{Status: statusHealthy}
}

func (h *HealthHandler) checkTokenStore(ctx context.Context) Check {
	start := time.Now()
	err := h.tokenStore.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{
			Status:  statusUnhealthy,
			Message: err.Error(),
			Latency: latency.String(),
		}
	}
	return Check{Status: statusHealthy, Latency: latency.String()}
}
