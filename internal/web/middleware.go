package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zsiec/taskboard/internal/auth"
	"github.com/zsiec/taskboard/internal/logger"
)

// SessionTokenHeader lets the host page forward the user's session token.
const SessionTokenHeader = "X-Session-Token"

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskboard_http_request_duration_seconds",
		Help:    "Duration of widget HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_http_requests_total",
		Help: "Total number of widget HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "taskboard_http_requests_in_flight",
		Help: "Number of widget HTTP requests currently being processed",
	})
)

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(logger.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set(logger.RequestIDHeader, requestID)
		r.Header.Set(logger.RequestIDHeader, requestID)

		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggerMiddleware() mux.MiddlewareFunc {
	return logger.RequestLoggerMiddleware(s.logger)
}

// metricsMiddleware labels by route template so task and run names do not
// blow up cardinality.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeTemplate(r)
		switch route {
		case "/health", "/ready", "/live":
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		rw := logger.NewResponseWriter(w)
		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.StatusCode())

		httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()

		logger.FromContext(r.Context()).WithFields(map[string]interface{}{
			"status":      rw.StatusCode(),
			"duration_ms": duration * 1000,
			"route":       route,
		}).Debug("Request completed")
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, "+SessionTokenHeader)
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authContextMiddleware exposes the caller's cookies and forwarded session
// token to the auth resolver for backend calls made on this request.
func (s *Server) authContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithRequest(r.Context(), r)
		if token := r.Header.Get(SessionTokenHeader); token != "" {
			ctx = auth.WithSessionToken(ctx, token)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
