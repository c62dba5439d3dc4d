package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/zatekoja/hostportal/backend/internal/infrastructure/clients/upstream"
)

const readinessTimeout = 3 * time.Second

// Pinger is a dependency that can report whether it is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// UpstreamProber probes the frontend upstream
type UpstreamProber interface {
	Probe(ctx context.Context) (*upstream.ProbeResult, error)
}

// ComponentStatus is the readiness of one dependency
type ComponentStatus struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// ReadinessResponse is returned by Ready
type ReadinessResponse struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
}

// HealthHandler serves liveness and readiness checks
type HealthHandler struct {
	upstream UpstreamProber
	postgres Pinger
	redis    Pinger
}

// NewHealthHandler creates a new health handler. postgres and redis may be
// nil when the gateway runs without them.
func NewHealthHandler(upstream UpstreamProber, postgres Pinger, redis Pinger) *HealthHandler {
	return &HealthHandler{
		upstream: upstream,
		postgres: postgres,
		redis:    redis,
	}
}

// Health reports the process is alive
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Ready checks every dependency. Only the upstream is required; postgres
// and redis failures degrade but do not fail readiness.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := ReadinessResponse{
		Status:     "ready",
		Components: make(map[string]ComponentStatus, 3),
	}

	upstreamStatus := h.checkUpstream(ctx)
	resp.Components["upstream"] = upstreamStatus

	for name, dep := range map[string]Pinger{"postgres": h.postgres, "redis": h.redis} {
		if dep == nil {
			resp.Components[name] = ComponentStatus{Status: "disabled"}
			continue
		}
		status := checkPinger(ctx, dep)
		if status.Status != "up" {
			resp.Status = "degraded"
		}
		resp.Components[name] = status
	}

	if upstreamStatus.Status != "up" {
		resp.Status = "unavailable"
		respondWithJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *HealthHandler) checkUpstream(ctx context.Context) ComponentStatus {
	start := time.Now()
	result, err := h.upstream.Probe(ctx)
	status := ComponentStatus{Status: "up", LatencyMS: time.Since(start).Milliseconds()}
	if result != nil {
		status.LatencyMS = result.Latency.Milliseconds()
	}
	if err != nil {
		status.Status = "down"
		status.Error = err.Error()
	}
	return status
}

func checkPinger(ctx context.Context, dep Pinger) ComponentStatus {
	start := time.Now()
	err := dep.Ping(ctx)
	status := ComponentStatus{Status: "up", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		status.Status = "down"
		status.Error = err.Error()
	}
	return status
}
