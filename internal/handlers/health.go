package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"doggygallery/internal/logging"
	"doggygallery/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse is the body of /health and /healthz.
type HealthResponse struct {
	Status     string `json:"status"`
	Ready      bool   `json:"ready"`
	Version    string `json:"version"`
	Uptime     string `json:"uptime"`
	MediaRoot  string `json:"mediaRoot"`
	MediaError string `json:"mediaError,omitempty"`

	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// mediaRootReady reports whether the media root can still be listed.
func (h *Handlers) mediaRootReady() error {
	root, err := h.resolver.Resolve("")
	if err != nil {
		return err
	}
	_, err = h.resolver.ReadDir(root)
	return err
}

// HealthCheck reports readiness together with process details. It answers
// 503 while the media root cannot be listed.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:       statusHealthy,
		Ready:        true,
		Version:      startup.Version,
		Uptime:       time.Since(h.startedAt).Round(time.Second).String(),
		MediaRoot:    "ok",
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	status := http.StatusOK
	if err := h.mediaRootReady(); err != nil {
		logging.Warn("Health check: media root unavailable: %v", err)
		status = http.StatusServiceUnavailable
		resp.Status, resp.Ready = statusDegraded, false
		resp.MediaRoot, resp.MediaError = "unavailable", "media directory cannot be read"
	}
	respondJSON(w, r, status, resp)
}

// LivenessCheck answers 200 while the process can serve requests.
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ReadinessCheck answers 200 only while the media root is readable.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.mediaRootReady(); err != nil {
		respondJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// BuildVersion serves the build information as JSON.
func (h *Handlers) BuildVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, startup.GetBuildInfo())
}

// MetricsHandler serves the default Prometheus registry. It is mounted on
// the separate metrics listener, not on the gallery router.
func (h *Handlers) MetricsHandler() http.Handler {
	return promhttp.Handler()
}
