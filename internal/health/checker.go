// Package health runs dependency probes and serves the health endpoints.
package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zsiec/taskboard/internal/logger"
)

// Status represents the health status of a component.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

const defaultCheckTimeout = 5 * time.Second

// Check represents a health check result.
type Check struct {
	Name        string                 `json:"name"`
	Status      Status                 `json:"status"`
	Critical    bool                   `json:"critical"`
	Message     string                 `json:"message,omitempty"`
	LastChecked time.Time              `json:"last_checked"`
	Duration    time.Duration          `json:"-"`
	DurationMS  float64                `json:"duration_ms"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// Checker is the interface that health checkers must implement.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Optional is implemented by checkers whose failure only degrades the
// service. The token store is one: auth falls back to cookies without it.
type Optional interface {
	Optional() bool
}

// Detailer lets a checker attach extra fields to its last result.
type Detailer interface {
	Details() map[string]interface{}
}

// Manager runs the registered checkers and keeps their latest results.
type Manager struct {
	timeout time.Duration
	logger  logger.Logger

	mu       sync.RWMutex
	checkers []Checker
	results  map[string]*Check
}

// NewManager creates a new health check manager.
func NewManager(log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNullLogger()
	}
	return &Manager{
		timeout: defaultCheckTimeout,
		logger:  log.WithField("component", "health"),
		results: make(map[string]*Check),
	}
}

// SetTimeout bounds each individual check.
func (m *Manager) SetTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.timeout = d
	}
}

// Register adds a new health checker.
func (m *Manager) Register(checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, checker)
	m.logger.WithField("checker", checker.Name()).Debug("Registered health checker")
}

// RunChecks executes all registered checks concurrently and records the
// results.
func (m *Manager) RunChecks(ctx context.Context) map[string]*Check {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	timeout := m.timeout
	m.mu.RUnlock()

	resultsChan := make(chan *Check, len(checkers))
	var wg sync.WaitGroup
	for _, checker := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			resultsChan <- m.runOne(ctx, c, timeout)
		}(checker)
	}
	wg.Wait()
	close(resultsChan)

	results := make(map[string]*Check, len(checkers))
	m.mu.Lock()
	for check := range resultsChan {
		results[check.Name] = check
		m.results[check.Name] = check
	}
	m.mu.Unlock()

	return results
}

func (m *Manager) runOne(ctx context.Context, c Checker, timeout time.Duration) *Check {
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := c.Check(checkCtx)
	duration := time.Since(start)

	check := &Check{
		Name:        c.Name(),
		Critical:    !isOptional(c),
		LastChecked: time.Now(),
		Duration:    duration,
		DurationMS:  float64(duration.Milliseconds()),
	}
	if d, ok := c.(Detailer); ok {
		check.Details = d.Details()
	}

	log := m.logger.WithFields(map[string]interface{}{
		"checker":  c.Name(),
		"duration": duration,
	})
	if err == nil {
		check.Status = StatusOK
		log.Debug("Health check passed")
		return check
	}

	check.Status = StatusDown
	if !check.Critical {
		check.Status = StatusDegraded
	}
	check.Message = err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		check.Message = "Health check timed out"
	}
	log.WithError(err).Error("Health check failed")
	return check
}

func isOptional(c Checker) bool {
	o, ok := c.(Optional)
	return ok && o.Optional()
}

// GetResults returns copies of the latest results.
func (m *Manager) GetResults() map[string]*Check {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make(map[string]*Check, len(m.results))
	for k, v := range m.results {
		checkCopy := *v
		results[k] = &checkCopy
	}
	return results
}

// GetOverallStatus folds the latest results: any down check makes the
// service down, any degraded one makes it degraded. With nothing checked yet
// the service is down.
func (m *Manager) GetOverallStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.results) == 0 {
		return StatusDown
	}

	overall := StatusOK
	for _, check := range m.results {
		switch check.Status {
		case StatusDown:
			return StatusDown
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}

// StartPeriodicChecks runs the checks every interval until ctx is done.
func (m *Manager) StartPeriodicChecks(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.RunChecks(ctx)

	for {
		select {
		case <-ticker.C:
			m.RunChecks(ctx)
		case <-ctx.Done():
			m.logger.Info("Stopping periodic health checks")
			return
		}
	}
}
