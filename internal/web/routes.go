package web

import (
	"encoding/json"
	"net/http"

	"github.com/zsiec/taskboard/internal/dashboard"
	"github.com/zsiec/taskboard/pkg/version"
)

const routeHome = "home"

// StateResponse is the /api/state body.
type StateResponse struct {
	Mounted       bool                     `json:"mounted"`
	State         dashboard.State          `json:"state"`
	Notifications []dashboard.Notification `json:"notifications"`
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if err := s.writeJSON(w, http.StatusOK, version.GetInfo()); err != nil {
		s.logger.WithError(err).Error("Failed to encode version response")
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	resp := StateResponse{
		Mounted:       s.controller.Mounted(),
		State:         s.controller.Snapshot(),
		Notifications: s.controller.Notifications(),
	}

	w.Header().Set("Cache-Control", "no-store")
	if err := s.writeJSON(w, http.StatusOK, resp); err != nil {
		s.logger.WithError(err).Error("Failed to encode state response")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// redirectHome answers a form post so the browser reloads the page.
func (s *Server) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
