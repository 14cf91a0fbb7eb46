// Package http provides HTTP handlers for the administrative and monitoring
// surface. It includes health check endpoints, circuit breaker introspection,
// and manual breaker controls.
package http

import (
	"net/http"
	"time"

	"breakerkit/internal/handler/http/respond"
	"breakerkit/pkg/breaker"
)

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string                 `json:"status"`    // "healthy" or "degraded"
	Timestamp string                 `json:"timestamp"` // ISO 8601 format
	Checks    map[string]CheckStatus `json:"checks"`    // Status of each protected dependency
	Version   string                 `json:"version"`   // Application version
}

// CheckStatus represents the status of a single protected dependency.
type CheckStatus struct {
	Status  string `json:"status"`            // "healthy", "recovering", or "unhealthy"
	Message string `json:"message,omitempty"` // Optional status message
	State   string `json:"state"`             // Circuit state (closed/open/half-open)
}

// HealthHandler handles health check endpoint requests.
// It reports overall health derived from circuit breaker states: any open
// breaker degrades the service, because at least one protected dependency
// is currently failing fast.
type HealthHandler struct {
	Registry *breaker.Registry
	Version  string
}

// ServeHTTP handles GET /healthz requests.
// It returns 200 with status "healthy" when no breaker is open, and 503
// with status "degraded" otherwise. Per-dependency detail is always
// included so dashboards can show which circuit tripped.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		respond.JSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	checks := make(map[string]CheckStatus)
	degraded := false

	for _, snap := range h.Registry.Snapshots() {
		status := "healthy"
		message := ""

		switch snap.State {
		case breaker.StateOpen.String():
			status = "unhealthy"
			message = "circuit open, calls are failing fast"
			degraded = true
		case breaker.StateHalfOpen.String():
			status = "recovering"
			message = "circuit half-open, probing for recovery"
		}

		checks[snap.Name] = CheckStatus{
			Status:  status,
			Message: message,
			State:   snap.State,
		}
	}

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	}

	code := http.StatusOK
	if degraded {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	respond.JSON(w, code, resp)
}
