package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error.
type ErrorType string

const (
	// ErrorTypeNetwork is a transport failure talking to the task backend.
	ErrorTypeNetwork ErrorType = "NETWORK_ERROR"
	// ErrorTypeHTTP is a non-2xx answer from the task backend.
	ErrorTypeHTTP ErrorType = "HTTP_ERROR"
	// ErrorTypeParse is a 2xx answer whose body did not decode. It renders
	// exactly like ErrorTypeHTTP with the raw body as the message.
	ErrorTypeParse ErrorType = "PARSE_ERROR"

	ErrorTypeValidation  ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound    ErrorType = "NOT_FOUND"
	ErrorTypeInternal    ErrorType = "INTERNAL_ERROR"
	ErrorTypeServiceDown ErrorType = "SERVICE_DOWN"
)

// UnknownErrorMessage is used when the backend answers with an empty body.
const UnknownErrorMessage = "Unknown error"

// AppError represents an application error with additional context.
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
	// Status is the backend's status code for HTTP and parse errors.
	Status     int   `json:"status,omitempty"`
	HTTPStatus int   `json:"-"`
	Err        error `json:"-"`
}

// Error implements the error interface. Backend failures use the wording the
// dashboard shows to users verbatim.
func (e *AppError) Error() string {
	switch e.Type {
	case ErrorTypeHTTP, ErrorTypeParse:
		return fmt.Sprintf("API Error (%d): %s", e.Status, e.Message)
	case ErrorTypeNetwork:
		return "Network error: " + e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCode adds an error code.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// New creates a new AppError.
func New(errType ErrorType, message string, httpStatus int) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an existing error.
func Wrap(err error, errType ErrorType, message string, httpStatus int) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// NewHTTPError records a non-2xx backend answer. An empty message becomes
// UnknownErrorMessage.
func NewHTTPError(status int, message string) *AppError {
	if message == "" {
		message = UnknownErrorMessage
	}
	return &AppError{
		Type:       ErrorTypeHTTP,
		Message:    message,
		Status:     status,
		HTTPStatus: http.StatusBadGateway,
	}
}

// NewParseError records a backend body that was not valid JSON. raw becomes
// the message.
func NewParseError(status int, raw string, err error) *AppError {
	if raw == "" {
		raw = UnknownErrorMessage
	}
	return &AppError{
		Type:       ErrorTypeParse,
		Message:    raw,
		Status:     status,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewNetworkError wraps a transport failure.
func NewNetworkError(err error) *AppError {
	msg := UnknownErrorMessage
	if err != nil {
		msg = err.Error()
	}
	return &AppError{
		Type:       ErrorTypeNetwork,
		Message:    msg,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *AppError {
	return New(ErrorTypeValidation, message, http.StatusBadRequest)
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(resource string) *AppError {
	return New(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// NewInternalError creates an internal server error.
func NewInternalError(message string) *AppError {
	return New(ErrorTypeInternal, message, http.StatusInternalServerError)
}

// WrapInternalError wraps an error as internal server error.
func WrapInternalError(err error, message string) *AppError {
	return Wrap(err, ErrorTypeInternal, message, http.StatusInternalServerError)
}

// NewServiceDownError creates a service down error.
func NewServiceDownError(service string) *AppError {
	return New(ErrorTypeServiceDown, fmt.Sprintf("%s service is currently unavailable", service), http.StatusServiceUnavailable)
}

// IsAppError checks if an error is, or wraps, an AppError.
func IsAppError(err error) bool {
	_, ok := GetAppError(err)
	return ok
}

// GetAppError extracts AppError from an error chain.
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsBackendError reports whether err came from the task backend, either as a
// transport failure or as a bad answer.
func IsBackendError(err error) bool {
	appErr, ok := GetAppError(err)
	if !ok {
		return false
	}
	switch appErr.Type {
	case ErrorTypeNetwork, ErrorTypeHTTP, ErrorTypeParse:
		return true
	}
	return false
}

// BackendStatus returns the backend status code carried by err, or 0.
func BackendStatus(err error) int {
	if appErr, ok := GetAppError(err); ok {
		return appErr.Status
	}
	return 0
}
