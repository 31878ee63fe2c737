package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

const traceHeader = "X-Request-ID"

// ErrorResponse is the JSON body written for failed widget API calls.
type ErrorResponse struct {
	Error   ErrorDetails `json:"error"`
	TraceID string       `json:"trace_id,omitempty"`
}

// ErrorDetails contains the error details. BackendStatus is set when the
// task backend answered with a non-2xx or unreadable response.
type ErrorDetails struct {
	Type          ErrorType              `json:"type"`
	Message       string                 `json:"message"`
	Code          string                 `json:"code,omitempty"`
	BackendStatus int                    `json:"backend_status,omitempty"`
	Details       map[string]interface{} `json:"details,omitempty"`
}

// ErrorHandler writes AppErrors as JSON and recovers panics.
type ErrorHandler struct {
	logger *logrus.Logger
}

func NewErrorHandler(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleError answers r with err. Errors that are not AppErrors are hidden
// behind a generic internal error.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := GetAppError(err)
	if !ok {
		appErr = WrapInternalError(err, "An unexpected error occurred")
	}
	traceID := r.Header.Get(traceHeader)

	h.logger.WithFields(logrus.Fields{
		"error_type":     appErr.Type,
		"error_code":     appErr.Code,
		"backend_status": appErr.Status,
		"trace_id":       traceID,
		"method":         r.Method,
		"path":           r.URL.Path,
	}).Log(logLevel(appErr), appErr.Error())

	h.write(w, appErr.HTTPStatus, ErrorResponse{
		Error:   detailsOf(appErr),
		TraceID: traceID,
	})
}

// detailsOf renders backend failures with the same wording the dashboard
// banner uses, so API callers and users see one message.
func detailsOf(e *AppError) ErrorDetails {
	d := ErrorDetails{
		Type:    e.Type,
		Message: e.Message,
		Code:    e.Code,
		Details: e.Details,
	}
	if IsBackendError(e) {
		d.Message = e.Error()
		d.BackendStatus = e.Status
	}
	return d
}

func logLevel(e *AppError) logrus.Level {
	switch {
	case e.HTTPStatus >= http.StatusInternalServerError && !IsBackendError(e):
		return logrus.ErrorLevel
	case IsBackendError(e), e.HTTPStatus == http.StatusBadRequest:
		return logrus.WarnLevel
	default:
		return logrus.InfoLevel
	}
}

// HandleNotFound answers requests no widget route matched.
func (h *ErrorHandler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	err := NewNotFoundError("route " + r.URL.Path).WithCode("route_not_found")
	h.HandleError(w, r, err)
}

// HandleMethodNotAllowed answers a known path hit with the wrong verb. Every
// widget mutation is a POST, so this is usually a link followed by mistake.
func (h *ErrorHandler) HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	msg := fmt.Sprintf("Method %s not allowed on %s", r.Method, r.URL.Path)
	h.HandleError(w, r, New(ErrorTypeValidation, msg, http.StatusMethodNotAllowed).WithCode("method_not_allowed"))
}

// HandlePanic logs recovered and answers with a generic 500.
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	h.logger.WithFields(logrus.Fields{
		"panic":    recovered,
		"method":   r.Method,
		"path":     r.URL.Path,
		"trace_id": r.Header.Get(traceHeader),
	}).Error("Panic recovered in widget handler")

	h.HandleError(w, r, NewInternalError("An unexpected error occurred"))
}

// write marshals before touching w so an encoding failure still produces a
// well-formed 500.
func (h *ErrorHandler) write(w http.ResponseWriter, status int, body ErrorResponse) {
	data, err := json.Marshal(body)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode error response")
		status = http.StatusInternalServerError
		data = []byte(`{"error":{"type":"INTERNAL_ERROR","message":"An unexpected error occurred"}}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

// Middleware recovers panics from next and answers with a JSON 500.
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				h.HandlePanic(w, r, recovered)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
