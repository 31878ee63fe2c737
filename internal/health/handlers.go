package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zsiec/taskboard/internal/format"
	"github.com/zsiec/taskboard/pkg/version"
)

// Response is the /health body.
type Response struct {
	Status    Status            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Mounted   bool              `json:"mounted"`
	Checks    map[string]*Check `json:"checks,omitempty"`
}

// Handler serves /health, /ready and /live.
type Handler struct {
	manager   *Manager
	mounted   func() bool
	startTime time.Time
	now       func() time.Time
}

// NewHandler creates a handler. mounted reports whether the dashboard poll
// loop is running; /ready fails until it is. A nil mounted counts as mounted.
func NewHandler(manager *Manager, mounted func() bool) *Handler {
	if mounted == nil {
		mounted = func() bool { return true }
	}
	return &Handler{
		manager:   manager,
		mounted:   mounted,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// HandleHealth runs every check and reports the aggregate.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks := h.manager.RunChecks(ctx)
	overall := h.manager.GetOverallStatus()

	response := Response{
		Status:    overall,
		Timestamp: h.now(),
		Version:   version.Version,
		Uptime:    h.uptime(),
		Mounted:   h.mounted(),
		Checks:    checks,
	}

	statusCode := http.StatusOK
	if overall == StatusDown {
		statusCode = http.StatusServiceUnavailable
	}
	h.writeJSON(w, statusCode, response)
}

// HandleReady reports the cached status without probing again.
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	overall := h.manager.GetOverallStatus()
	mounted := h.mounted()

	response := struct {
		Status    Status    `json:"status"`
		Mounted   bool      `json:"mounted"`
		Timestamp time.Time `json:"timestamp"`
	}{
		Status:    overall,
		Mounted:   mounted,
		Timestamp: h.now(),
	}

	statusCode := http.StatusOK
	if overall == StatusDown || !mounted {
		statusCode = http.StatusServiceUnavailable
	}
	h.writeJSON(w, statusCode, response)
}

// HandleLive always answers while the process is up.
func (h *Handler) HandleLive(w http.ResponseWriter, r *http.Request) {
	response := struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}{
		Status:    "alive",
		Timestamp: h.now(),
	}
	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) uptime() string {
	start := h.startTime
	return format.Duration(&start, nil, h.now())
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.manager.logger.WithError(err).Error("Failed to encode health response")
	}
}
