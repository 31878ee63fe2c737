package web

import (
	"bytes"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/zsiec/taskboard/internal/dashboard"
	"github.com/zsiec/taskboard/internal/errors"
	"github.com/zsiec/taskboard/internal/format"
	"github.com/zsiec/taskboard/internal/logger"
)

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.page.WritePage(&buf); err != nil {
		s.errorHandler.HandleError(w, r, errors.WrapInternalError(err, "failed to render dashboard"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.controller.LoadTasks(r.Context())
	s.redirectHome(w, r)
}

func (s *Server) handleLoadRuns(w http.ResponseWriter, r *http.Request) {
	s.controller.LoadTaskRuns(r.Context(), mux.Vars(r)["task"])
	s.redirectHome(w, r)
}

func (s *Server) handleCloseRuns(w http.ResponseWriter, r *http.Request) {
	s.controller.CloseRunsView()
	s.redirectHome(w, r)
}

func (s *Server) handleOpenTrigger(w http.ResponseWriter, r *http.Request) {
	s.controller.SelectTaskForTrigger(mux.Vars(r)["task"])
	s.redirectHome(w, r)
}

func (s *Server) handleCloseTrigger(w http.ResponseWriter, r *http.Request) {
	s.controller.CloseTriggerModal()
	s.redirectHome(w, r)
}

func (s *Server) handleSubmitTrigger(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.errorHandler.HandleError(w, r, errors.Wrap(err, errors.ErrorTypeValidation, "invalid trigger form", http.StatusBadRequest))
		return
	}

	form := make(map[string]string, len(r.PostForm))
	for name := range r.PostForm {
		form[name] = r.PostForm.Get(name)
	}

	task := mux.Vars(r)["task"]
	logger.FromContext(r.Context()).WithFields(map[string]interface{}{
		"task":   task,
		"fields": len(form),
	}).Debug("Trigger form submitted")

	s.controller.SubmitTrigger(r.Context(), task, form)
	s.redirectHome(w, r)
}

func (s *Server) handleShowDetail(w http.ResponseWriter, r *http.Request) {
	s.controller.ShowRunDetail(mux.Vars(r)["run"])
	s.redirectHome(w, r)
}

func (s *Server) handleCloseDetail(w http.ResponseWriter, r *http.Request) {
	s.controller.CloseRunDetail()
	s.redirectHome(w, r)
}

// handleStepLogs shows the tail of one step's logs. On failure the
// controller has already raised a notification, so the user is sent back to
// the dashboard where it is shown.
func (s *Server) handleStepLogs(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	run, step := vars["run"], vars["step"]

	logs, err := s.controller.FetchStepLogs(r.Context(), run, step)
	if err != nil {
		s.redirectHome(w, r)
		return
	}

	maxLines := s.config.Dashboard.MaxLogLines
	text, truncated := format.TailLines(logs.Logs, maxLines)

	view := LogsView{
		Title:     dashboard.Title,
		Run:       run,
		Step:      step,
		Logs:      format.OrDefault(text, dashboard.NoLogsText),
		Truncated: truncated,
		MaxLines:  maxLines,
	}

	var buf bytes.Buffer
	if err := s.page.WriteLogs(&buf, view); err != nil {
		s.errorHandler.HandleError(w, r, errors.WrapInternalError(err, "failed to render logs"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
