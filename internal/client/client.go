// Package client talks to the task backend's REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/zsiec/taskboard/internal/config"
	apperrors "github.com/zsiec/taskboard/internal/errors"
	"github.com/zsiec/taskboard/internal/logger"
	"github.com/zsiec/taskboard/internal/metrics"
	"github.com/zsiec/taskboard/internal/tekton"
	"github.com/zsiec/taskboard/pkg/version"
)

// Operation names used for logging and metrics.
const (
	OpListTasks = "list_tasks"
	OpListRuns  = "list_runs"
	OpTrigger   = "trigger"
	OpStepLogs  = "step_logs"
)

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 16 << 20

// HeaderSource supplies per-request auth headers.
type HeaderSource interface {
	Headers(ctx context.Context) http.Header
}

// Client issues authenticated requests against the task backend and
// normalizes failures into *errors.AppError values.
type Client struct {
	baseURL    string
	endpoints  Endpoints
	httpClient *http.Client
	limiter    *rate.Limiter
	auth       HeaderSource
	userAgent  string
	logger     logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client. auth may be nil for unauthenticated use.
func New(cfg config.BackendConfig, endpoints Endpoints, auth HeaderSource, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.NewNullLogger()
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		endpoints:  endpoints,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		auth:       auth,
		userAgent:  version.GetInfo().UserAgent(),
		logger:     log.WithField("component", "client"),
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoints returns the path templates the client was built with.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// GetTasks lists the tasks of the configured resource.
func (c *Client) GetTasks(ctx context.Context) ([]tekton.Task, error) {
	var tasks []tekton.Task
	if err := c.do(ctx, OpListTasks, http.MethodGet, c.endpoints.Tasks(), nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTaskRuns lists the runs of task.
func (c *Client) GetTaskRuns(ctx context.Context, task string) ([]tekton.TaskRun, error) {
	var runs []tekton.TaskRun
	if err := c.do(ctx, OpListRuns, http.MethodGet, c.endpoints.TaskRuns(task), nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// TriggerTask starts a run of task with params and returns the backend's
// answer undecoded. An empty answer is not an error.
func (c *Client) TriggerTask(ctx context.Context, task string, params map[string]tekton.ParamValue) (json.RawMessage, error) {
	if params == nil {
		params = map[string]tekton.ParamValue{}
	}
	body, err := json.Marshal(tekton.TriggerRequest{Params: params})
	if err != nil {
		return nil, apperrors.WrapInternalError(err, "failed to encode trigger request")
	}

	var out json.RawMessage
	if err := c.do(ctx, OpTrigger, http.MethodPost, c.endpoints.Trigger(task), body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetStepLogs fetches the log text of one step.
func (c *Client) GetStepLogs(ctx context.Context, run, step string) (tekton.StepLogs, error) {
	var logs tekton.StepLogs
	err := c.do(ctx, OpStepLogs, http.MethodGet, c.endpoints.StepLogs(run, step), nil, &logs)
	return logs, err
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, out interface{}) error {
	start := time.Now()
	log := c.logger.WithFields(map[string]interface{}{
		"operation": op,
		"method":    method,
		"path":      path,
	})

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			metrics.RecordBackendRequest(op, "rate_limited", time.Since(start).Seconds())
			return apperrors.NewNetworkError(fmt.Errorf("rate limiter: %w", err))
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.NewNetworkError(err)
	}

	if c.auth != nil {
		for k, vs := range c.auth.Headers(ctx) {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	requestID := logger.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	req.Header.Set(logger.RequestIDHeader, requestID)
	log = log.WithField("request_id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordBackendRequest(op, "network_error", time.Since(start).Seconds())
		log.WithError(err).Warn("Backend request failed")
		return apperrors.NewNetworkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	elapsed := time.Since(start)
	metrics.RecordBackendRequest(op, strconv.Itoa(resp.StatusCode), elapsed.Seconds())
	if err != nil {
		log.WithError(err).Warn("Failed to read backend response")
		return apperrors.NewNetworkError(err)
	}

	log = log.WithFields(map[string]interface{}{
		"status":      resp.StatusCode,
		"duration_ms": elapsed.Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		appErr := apperrors.NewHTTPError(resp.StatusCode, errorMessage(raw))
		log.WithField("error", appErr.Error()).Warn("Backend returned an error")
		return appErr
	}

	log.Debug("Backend request completed")

	if out == nil {
		return nil
	}
	if _, ok := out.(*json.RawMessage); ok && len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		log.WithError(err).Warn("Backend response is not valid JSON")
		return apperrors.NewParseError(resp.StatusCode, strings.TrimSpace(string(raw)), err)
	}
	return nil
}

// errorMessage prefers a JSON "message" field and falls back to the raw body.
func errorMessage(raw []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(raw))
}
