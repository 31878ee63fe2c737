// Package web serves the dashboard widget over HTTP: an HTML page rendered
// from the controller state, form posts for every user interaction, and the
// health, version and metrics endpoints.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/zsiec/taskboard/internal/config"
	"github.com/zsiec/taskboard/internal/dashboard"
	"github.com/zsiec/taskboard/internal/errors"
	"github.com/zsiec/taskboard/internal/health"
)

const healthCheckInterval = 30 * time.Second

// Server hosts the widget.
type Server struct {
	config       *config.Config
	router       *mux.Router
	httpServer   *http.Server
	metricsSrv   *http.Server
	logger       *logrus.Logger
	healthMgr    *health.Manager
	errorHandler *errors.ErrorHandler
	controller   *dashboard.Controller
	page         *PageRenderer

	// Additional handlers can be registered
	additionalRoutes []func(*mux.Router)
}

// New creates the server and registers its page renderer with controller.
// healthMgr may be nil, in which case an empty manager is used.
func New(cfg *config.Config, log *logrus.Logger, controller *dashboard.Controller, healthMgr *health.Manager) (*Server, error) {
	page, err := NewPageRenderer(cfg.Dashboard)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	if healthMgr == nil {
		healthMgr = health.NewManager(nil)
	}

	s := &Server{
		config:       cfg,
		router:       mux.NewRouter(),
		logger:       log,
		healthMgr:    healthMgr,
		errorHandler: errors.NewErrorHandler(log),
		controller:   controller,
		page:         page,
	}
	controller.AddRenderer(page)

	return s, nil
}

// RegisterRoutes adds additional route handlers to the server. It must be
// called before Handler or Start.
func (s *Server) RegisterRoutes(registerFunc func(*mux.Router)) {
	s.additionalRoutes = append(s.additionalRoutes, registerFunc)
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	s.setupRoutes()
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.setupRoutes()

	srvCfg := s.config.Server
	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(srvCfg.ListenAddr, strconv.Itoa(srvCfg.Port)),
		Handler:      s.router,
		ReadTimeout:  srvCfg.ReadTimeout,
		WriteTimeout: srvCfg.WriteTimeout,
	}

	go s.healthMgr.StartPeriodicChecks(ctx, healthCheckInterval)

	errCh := make(chan error, 2)

	if s.config.Metrics.Enabled {
		s.metricsSrv = newMetricsServer(s.config.Metrics)
		go func() {
			s.logger.WithFields(logrus.Fields{
				"port": s.config.Metrics.Port,
				"path": s.config.Metrics.Path,
			}).Info("Starting metrics server")
			if err := s.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	go func() {
		s.logger.WithField("addr", s.httpServer.Addr).Info("Starting HTTP server")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		_ = s.Shutdown(context.Background())
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown drains in-flight requests, bounded by the configured shutdown
// timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var firstErr error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			firstErr = fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	if s.metricsSrv != nil {
		if err := s.metricsSrv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to shutdown metrics server: %w", err)
		}
	}

	if firstErr == nil {
		s.logger.Info("HTTP server shutdown complete")
	}
	return firstErr
}

func newMetricsServer(cfg config.MetricsConfig) *http.Server {
	serveMux := http.NewServeMux()
	serveMux.Handle(cfg.Path, promhttp.Handler())
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           serveMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (s *Server) setupRoutes() {
	if s.router.Get(routeHome) != nil {
		return
	}

	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggerMiddleware())
	s.router.Use(s.errorHandler.Middleware)
	s.router.Use(s.metricsMiddleware)
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.authContextMiddleware)

	// Preflight for every path; corsMiddleware answers it.
	s.router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	healthHandler := health.NewHandler(s.healthMgr, s.controller.Mounted)
	s.router.HandleFunc("/health", healthHandler.HandleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", healthHandler.HandleReady).Methods(http.MethodGet)
	s.router.HandleFunc("/live", healthHandler.HandleLive).Methods(http.MethodGet)
	s.router.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)

	s.router.HandleFunc("/", s.handlePage).Methods(http.MethodGet).Name(routeHome)
	s.router.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	s.router.HandleFunc("/retry", s.handleRefresh).Methods(http.MethodPost)
	s.router.HandleFunc("/tasks/{task}/runs", s.handleLoadRuns).Methods(http.MethodPost)
	s.router.HandleFunc("/runs/close", s.handleCloseRuns).Methods(http.MethodPost)
	s.router.HandleFunc("/tasks/{task}/trigger/open", s.handleOpenTrigger).Methods(http.MethodPost)
	s.router.HandleFunc("/trigger/close", s.handleCloseTrigger).Methods(http.MethodPost)
	s.router.HandleFunc("/tasks/{task}/trigger", s.handleSubmitTrigger).Methods(http.MethodPost)
	s.router.HandleFunc("/runs/{run}/details", s.handleShowDetail).Methods(http.MethodPost)
	s.router.HandleFunc("/details/close", s.handleCloseDetail).Methods(http.MethodPost)
	s.router.HandleFunc("/runs/{run}/steps/{step}/logs", s.handleStepLogs).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)

	if s.config.Server.DebugEndpoints {
		s.setupDebugEndpoints()
	}

	for _, registerFunc := range s.additionalRoutes {
		registerFunc(s.router)
	}

	s.router.NotFoundHandler = http.HandlerFunc(s.errorHandler.HandleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.errorHandler.HandleMethodNotAllowed)
}

func (s *Server) setupDebugEndpoints() {
	s.logger.Info("Enabling debug endpoints")

	debug := s.router.PathPrefix("/debug").Subrouter()
	debug.HandleFunc("/pprof/cmdline", pprof.Cmdline)
	debug.HandleFunc("/pprof/profile", pprof.Profile)
	debug.HandleFunc("/pprof/symbol", pprof.Symbol)
	debug.HandleFunc("/pprof/trace", pprof.Trace)
	debug.PathPrefix("/pprof/").HandlerFunc(pprof.Index)

	debug.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		dash := s.config.Dashboard
		info := map[string]interface{}{
			"cluster":          dash.ClusterID,
			"resource":         dash.ResourceType + "/" + dash.ResourceName,
			"backend":          s.config.Backend.BaseURL,
			"api_base":         dash.APIBase,
			"refresh_interval": dash.RefreshInterval.String(),
			"auth_store":       s.config.Auth.Store,
			"mounted":          s.controller.Mounted(),
			"debug_enabled":    true,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(info)
	}).Methods(http.MethodGet)
}

// GetRouter returns the router for testing.
func (s *Server) GetRouter() *mux.Router {
	return s.router
}
