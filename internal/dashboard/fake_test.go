package dashboard

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/zsiec/taskboard/internal/config"
	"github.com/zsiec/taskboard/internal/logger"
	"github.com/zsiec/taskboard/internal/tekton"
)

type call struct {
	Op     string
	Task   string
	Params map[string]tekton.ParamValue
}

// fakeBackend records calls. When gate is set every call blocks until a
// value is sent on it (or ctx ends).
type fakeBackend struct {
	mu      sync.Mutex
	calls   []call
	tasks   []tekton.Task
	runs    map[string][]tekton.TaskRun
	logs    tekton.StepLogs
	errs    map[string]error
	gate    chan struct{}
	started chan string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		runs:    make(map[string][]tekton.TaskRun),
		errs:    make(map[string]error),
		started: make(chan string, 64),
	}
}

func (f *fakeBackend) record(ctx context.Context, c call) error {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	gate := f.gate
	err := f.errs[c.Op]
	f.mu.Unlock()

	select {
	case f.started <- c.Op:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeBackend) setErr(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

func (f *fakeBackend) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeBackend) Ops() []string {
	var ops []string
	for _, c := range f.Calls() {
		ops = append(ops, c.Op)
	}
	return ops
}

func (f *fakeBackend) GetTasks(ctx context.Context) ([]tekton.Task, error) {
	if err := f.record(ctx, call{Op: "tasks"}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks, nil
}

func (f *fakeBackend) GetTaskRuns(ctx context.Context, task string) ([]tekton.TaskRun, error) {
	if err := f.record(ctx, call{Op: "runs", Task: task}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs[task], nil
}

func (f *fakeBackend) TriggerTask(ctx context.Context, task string, params map[string]tekton.ParamValue) (json.RawMessage, error) {
	if err := f.record(ctx, call{Op: "trigger", Task: task, Params: params}); err != nil {
		return nil, err
	}
	return json.RawMessage(`{}`), nil
}

func (f *fakeBackend) GetStepLogs(ctx context.Context, run, step string) (tekton.StepLogs, error) {
	if err := f.record(ctx, call{Op: "logs", Task: run + "/" + step}); err != nil {
		return tekton.StepLogs{}, err
	}
	return f.logs, nil
}

// recordingRenderer keeps every state it was handed.
type recordingRenderer struct {
	mu     sync.Mutex
	states []State
	notes  [][]Notification
}

func (r *recordingRenderer) Name() string { return "test" }

func (r *recordingRenderer) Render(s State, n []Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
	r.notes = append(r.notes, n)
}

func (r *recordingRenderer) States() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func (r *recordingRenderer) Last() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[len(r.states)-1]
}

func testConfig() config.DashboardConfig {
	return config.DashboardConfig{
		ClusterID:          "cluster1",
		ResourceType:       "service",
		ResourceName:       "tekton",
		APIBase:            "/cc-ui/v1",
		RefreshInterval:    time.Hour,
		LogRefreshInterval: 5 * time.Second,
		MaxLogLines:        1000,
		NotificationTTL:    5 * time.Second,
	}
}

func newTestController(backend Backend) (*Controller, *recordingRenderer) {
	c := NewController(testConfig(), backend, logger.NewNullLogger())
	r := &recordingRenderer{}
	c.AddRenderer(r)
	return c, r
}

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func strptr(s string) *string { return &s }
