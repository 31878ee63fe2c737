// Package dashboard owns the dashboard state, drives the poll loop and
// turns user interactions into backend calls and state patches.
package dashboard

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zsiec/taskboard/internal/config"
	"github.com/zsiec/taskboard/internal/logger"
	"github.com/zsiec/taskboard/internal/metrics"
	"github.com/zsiec/taskboard/internal/tekton"
)

// Backend is the part of the transport client the controller uses.
type Backend interface {
	GetTasks(ctx context.Context) ([]tekton.Task, error)
	GetTaskRuns(ctx context.Context, task string) ([]tekton.TaskRun, error)
	TriggerTask(ctx context.Context, task string, params map[string]tekton.ParamValue) (json.RawMessage, error)
	GetStepLogs(ctx context.Context, run, step string) (tekton.StepLogs, error)
}

// Renderer receives the state after every patch. Render is called with the
// controller lock held: it must not block and must not call back into the
// controller.
type Renderer interface {
	Name() string
	Render(state State, notifications []Notification)
}

// Controller is the single owner of a dashboard's State.
type Controller struct {
	backend Backend
	cfg     config.DashboardConfig
	logger  logger.Logger
	warn    *logger.Throttled
	gauges  *metrics.DashboardGauges
	now     func() time.Time
	newID   func() string

	mu            sync.Mutex
	state         State
	notifications []Notification
	timers        map[string]*time.Timer
	renderers     []Renderer
	mounted       bool
	everMounted   bool
	cancel        context.CancelFunc
	done          chan struct{}
}

// NewController creates an unmounted controller.
func NewController(cfg config.DashboardConfig, backend Backend, log logger.Logger) *Controller {
	if log == nil {
		log = logger.NewNullLogger()
	}
	log = log.WithFields(map[string]interface{}{
		"component": "dashboard",
		"cluster":   cfg.ClusterID,
		"resource":  cfg.ResourceType + "/" + cfg.ResourceName,
	})

	return &Controller{
		backend: backend,
		cfg:     cfg,
		logger:  log,
		warn:    logger.NewThrottled(log, time.Minute),
		gauges:  metrics.NewDashboardGauges(cfg.ClusterID, cfg.ResourceType, cfg.ResourceName),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
		state: State{
			Tasks:    []tekton.Task{},
			TaskRuns: []tekton.TaskRun{},
		},
		timers: make(map[string]*time.Timer),
	}
}

// Config returns the registry the controller was built with.
func (c *Controller) Config() config.DashboardConfig {
	return c.cfg
}

// AddRenderer registers r and renders the current state to it once.
func (c *Controller) AddRenderer(r Renderer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderers = append(c.renderers, r)
	r.Render(c.state, c.activeNotificationsLocked())
	metrics.IncrementRender(r.Name())
}

// Snapshot returns the current state. Treat it as read-only.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Notifications returns the notifications currently shown.
func (c *Controller) Notifications() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeNotificationsLocked()
}

// Mounted reports whether the poll loop is running.
func (c *Controller) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}

// Mount renders the initial state, loads the task list and starts polling
// every RefreshInterval. Mounting a mounted controller does nothing.
func (c *Controller) Mount(ctx context.Context) {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = true
	c.everMounted = true

	pollCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.gauges.Mounted.Set(1)
	c.renderLocked()
	c.mu.Unlock()

	c.logger.WithField("refresh_interval", c.cfg.RefreshInterval.String()).Info("Dashboard mounted")

	go c.poll(pollCtx, done)
}

// Unmount stops polling, waits for the poll loop to exit and dismisses
// pending notifications. Results of requests still in flight are discarded.
// It is safe to call on a controller that was never mounted.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = false
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.gauges.Mounted.Set(0)
	c.mu.Unlock()

	cancel()
	<-done
	c.logger.Info("Dashboard unmounted")
}

func (c *Controller) poll(ctx context.Context, done chan struct{}) {
	defer close(done)

	c.LoadTasks(ctx)

	interval := c.cfg.RefreshInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RefreshData(ctx)
		}
	}
}

// LoadTasks replaces the task list. Loading is set for the duration of the
// fetch and Error is cleared when it starts.
func (c *Controller) LoadTasks(ctx context.Context) {
	if !c.apply(beginLoad) {
		return
	}
	c.fetchTasks(ctx)
}

func (c *Controller) fetchTasks(ctx context.Context) {
	tasks, err := c.backend.GetTasks(ctx)
	if err != nil {
		c.warn.Warn("load_tasks", "Failed to load tasks", map[string]interface{}{"error": err.Error()})
		c.apply(loadFailed(err.Error()))
		return
	}
	c.warn.Reset("load_tasks")
	c.logger.WithField("tasks", len(tasks)).Debug("Tasks loaded")
	c.apply(tasksLoaded(tasks))
}

// LoadTaskRuns fetches the runs of task and selects it. A failure sets Error
// and keeps the runs already shown. An empty task name does nothing.
func (c *Controller) LoadTaskRuns(ctx context.Context, task string) {
	if task == "" {
		return
	}

	runs, err := c.backend.GetTaskRuns(ctx, task)
	if err != nil {
		logger.WithTask(c.logger, task, "").WithError(err).Warn("Failed to load task runs")
		c.apply(runsFailed(err.Error()))
		return
	}
	c.apply(runsLoaded(task, runs))
}

// TriggerTask starts a run of task, then reloads its runs. The success
// notification fires even when the reload fails; in that case Error carries
// the reload failure.
func (c *Controller) TriggerTask(ctx context.Context, task string, params map[string]tekton.ParamValue) {
	log := logger.WithTask(c.logger, task, "")
	if !c.apply(triggerStarted) {
		return
	}

	if _, err := c.backend.TriggerTask(ctx, task, params); err != nil {
		log.WithError(err).Warn("Failed to trigger task")
		c.apply(triggerFailed(err.Error()))
		c.notify(NotifyError, MsgTriggerFailed+err.Error())
		return
	}

	c.LoadTaskRuns(ctx, task)
	c.apply(triggerDone)
	log.Info("Task triggered")
	c.notify(NotifySuccess, MsgTriggerSucceeded)
}

// RefreshData reloads the task list and, when a task is selected, its runs.
// It returns false without fetching anything while another load is in
// flight. The check and the start of the load happen under one lock.
func (c *Controller) RefreshData(ctx context.Context) bool {
	c.mu.Lock()
	if c.state.Loading || c.detachedLocked() {
		c.mu.Unlock()
		metrics.IncrementPollCycle(metrics.PollSkipped)
		c.logger.Debug("Refresh skipped, load in flight")
		return false
	}
	c.state = beginLoad(c.state)
	c.renderLocked()
	c.mu.Unlock()

	metrics.IncrementPollCycle(metrics.PollRan)
	c.fetchTasks(ctx)

	if selected := c.Snapshot().SelectedTask; selected != "" {
		c.LoadTaskRuns(ctx, selected)
	}
	return true
}

// SelectTaskForTrigger selects task and opens the trigger form.
func (c *Controller) SelectTaskForTrigger(task string) {
	c.apply(selectForTrigger(task))
}

// CloseTriggerModal hides the trigger form.
func (c *Controller) CloseTriggerModal() {
	c.apply(closeTrigger)
}

// CloseRunsView clears the selection and its runs together.
func (c *Controller) CloseRunsView() {
	c.apply(closeRuns)
}

// ShowRunDetail opens the detail view of a listed run. Unknown names are
// ignored.
func (c *Controller) ShowRunDetail(run string) {
	c.apply(showRun(run))
}

// CloseRunDetail hides the run detail view.
func (c *Controller) CloseRunDetail() {
	c.apply(closeRun)
}

// FetchStepLogs returns the log text of one step verbatim. A failure raises
// an error notification and is returned; State.Error is left alone.
func (c *Controller) FetchStepLogs(ctx context.Context, run, step string) (tekton.StepLogs, error) {
	logs, err := c.backend.GetStepLogs(ctx, run, step)
	if err != nil {
		logger.WithTask(c.logger, "", run).WithField("step", step).WithError(err).Warn("Failed to load step logs")
		c.notify(NotifyError, MsgLogsFailed+err.Error())
		return tekton.StepLogs{}, err
	}
	return logs, nil
}

// SubmitTrigger converts raw form input for task and triggers it.
func (c *Controller) SubmitTrigger(ctx context.Context, task string, form map[string]string) {
	spec, ok := c.Snapshot().FindTask(task)
	if !ok {
		spec = tekton.Task{Name: task}
	}
	c.TriggerTask(ctx, task, BuildParams(spec, form))
}

// apply patches the state and renders. It drops the patch, returning false,
// once the controller has been unmounted.
func (c *Controller) apply(t Transition) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.detachedLocked() {
		c.logger.Debug("Dropping state patch after unmount")
		return false
	}
	c.state = t(c.state)
	c.renderLocked()
	return true
}

// detachedLocked is true after Unmount. A controller that was never mounted
// is driven directly and always accepts patches.
func (c *Controller) detachedLocked() bool {
	return c.everMounted && !c.mounted
}

func (c *Controller) notify(kind NotificationKind, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.detachedLocked() {
		return
	}

	now := c.now()
	n := Notification{
		ID:        c.newID(),
		Kind:      kind,
		Message:   msg,
		CreatedAt: now,
		ExpiresAt: now.Add(c.notificationTTL()),
	}
	c.notifications = append(pruneNotifications(c.notifications, now), n)
	metrics.IncrementNotification(string(kind))

	id := n.ID
	c.timers[id] = time.AfterFunc(c.notificationTTL(), func() { c.dismiss(id) })
	c.renderLocked()
}

func (c *Controller) dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.timers, id)
	kept := c.notifications[:0:0]
	for _, n := range c.notifications {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	if len(kept) == len(c.notifications) {
		return
	}
	c.notifications = kept
	if !c.detachedLocked() {
		c.renderLocked()
	}
}

func (c *Controller) notificationTTL() time.Duration {
	if c.cfg.NotificationTTL <= 0 {
		return 5 * time.Second
	}
	return c.cfg.NotificationTTL
}

func (c *Controller) activeNotificationsLocked() []Notification {
	return pruneNotifications(c.notifications, c.now())
}

func (c *Controller) renderLocked() {
	notices := c.activeNotificationsLocked()

	c.gauges.Tasks.Set(float64(len(c.state.Tasks)))
	c.gauges.Runs.Set(float64(len(c.state.TaskRuns)))
	c.gauges.Notifications.Set(float64(len(notices)))

	for _, r := range c.renderers {
		r.Render(c.state, notices)
		metrics.IncrementRender(r.Name())
	}
}
