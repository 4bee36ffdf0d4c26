package health

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// writeResponse encodes r. Strict endpoints (liveness, readiness) fail on
// anything but healthy; the overview only fails when unhealthy.
func writeResponse(w http.ResponseWriter, r Response, strict bool) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Status == StatusHealthy:
		w.WriteHeader(http.StatusOK)
	case r.Status == StatusDegraded && !strict:
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	_ = json.NewEncoder(w).Encode(r)
}

// HTTPHandler returns an HTTP handler for the health check endpoint
func (hc *HealthChecker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, hc.Check(), false)
	}
}

// ReadinessHandler returns an HTTP handler for readiness checks
func (hc *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, hc.CheckReadiness(), true)
	}
}

// LivenessHandler returns an HTTP handler for liveness checks
func (hc *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, hc.CheckLiveness(), true)
	}
}

// Routes mounts /health, /health/live and /health/ready on r
func (hc *HealthChecker) Routes(r *mux.Router) {
	r.HandleFunc("/health", hc.HTTPHandler()).Methods(http.MethodGet)
	r.HandleFunc("/health/live", hc.LivenessHandler()).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", hc.ReadinessHandler()).Methods(http.MethodGet)
}
