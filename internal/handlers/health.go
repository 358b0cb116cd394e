package handlers

import (
	"net/http"
	"runtime"
	"time"

	"photo-catalog/internal/startup"
)

const (
	statusHealthy = "healthy"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	Libraries     int `json:"libraries"`
	ActiveImports int `json:"activeImports"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	libs := h.registry.All()
	activeImports := 0
	for _, lib := range libs {
		activeImports += len(lib.ActiveImports())
	}

	response := HealthResponse{
		Status:        statusHealthy,
		Ready:         true,
		Version:       startup.Version,
		Uptime:        time.Since(h.startTime).Round(time.Second).String(),
		Libraries:     len(libs),
		ActiveImports: activeImports,
		GoVersion:     runtime.Version(),
		NumCPU:        runtime.NumCPU(),
		NumGoroutine:  runtime.NumGoroutine(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 once the registry is serving libraries
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	writeJSON(w, map[string]string{
		"status": "ready",
	})
}
