package handlers

import (
	"context"
	"net/http"
	"time"
)

// ReadinessCheck probes one dependency. A non-nil error marks the service not
// ready.
type ReadinessCheck func(ctx context.Context) error

// HealthHandlers serves the liveness and readiness endpoints.
type HealthHandlers struct {
	started time.Time
	checks  map[string]ReadinessCheck
}

// NewHealthHandlers constructs health handlers with optional readiness checks.
func NewHealthHandlers() *HealthHandlers {
	return &HealthHandlers{
		started: time.Now(),
		checks:  make(map[string]ReadinessCheck),
	}
}

// AddReadinessCheck registers a named dependency probe for /readyz.
func (h *HealthHandlers) AddReadinessCheck(name string, check ReadinessCheck) {
	if check != nil {
		h.checks[name] = check
	}
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
	})
}

// Readyz reports dependency readiness by running every registered check.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	payload := map[string]any{"status": "ready"}
	if status != http.StatusOK {
		payload["status"] = "not_ready"
	}
	if len(results) > 0 {
		payload["checks"] = results
	}
	writeJSONResponse(w, status, payload)
}
