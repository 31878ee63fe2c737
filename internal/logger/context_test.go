package logger

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestContextRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestFromContextFallback(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l := NewNullLogger()
	assert.Equal(t, l, FromContext(WithLogger(context.Background(), l)))
}

func TestRequestLoggerMiddleware(t *testing.T) {
	base := logrus.New()
	base.SetOutput(&bytes.Buffer{})

	var gotID string
	var gotLogger Logger
	handler := RequestLoggerMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetRequestID(r.Context())
		gotLogger = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.NotEmpty(t, gotID)
	assert.IsType(t, &LogrusAdapter{}, gotLogger)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "fixed-id", gotID)
}

func TestResponseWriter(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := NewResponseWriter(rr)
	assert.Equal(t, http.StatusOK, rw.StatusCode())

	rw.WriteHeader(http.StatusSeeOther)
	rw.WriteHeader(http.StatusInternalServerError)
	assert.Equal(t, http.StatusSeeOther, rw.StatusCode())
	assert.Equal(t, http.StatusSeeOther, rr.Code)
}

func TestRemoteIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1:1234", remoteIP(req))

	req.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", remoteIP(req))

	req.Header.Set("X-Forwarded-For", "10.0.0.3")
	assert.Equal(t, "10.0.0.3", remoteIP(req))
}
