package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/zsiec/taskboard/internal/errors"
	"github.com/zsiec/taskboard/internal/logger"
	"github.com/zsiec/taskboard/internal/tekton"
)

func buildTask() tekton.Task {
	return tekton.Task{
		Name: "build",
		Params: []tekton.ParameterSpec{
			{Name: "branch", Type: tekton.ParamTypeString},
		},
	}
}

func waitStarted(t *testing.T, b *fakeBackend, op string) {
	t.Helper()
	select {
	case got := <-b.started:
		require.Equal(t, op, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("backend call %q never started", op)
	}
}

func TestLoadTasksLoadingLifecycle(t *testing.T) {
	for _, fail := range []bool{false, true} {
		name := "success"
		if fail {
			name = "failure"
		}
		t.Run(name, func(t *testing.T) {
			b := newFakeBackend()
			b.tasks = []tekton.Task{buildTask()}
			b.gate = make(chan struct{})
			if fail {
				b.setErr("tasks", apperrors.NewHTTPError(500, "boom"))
			}

			c, _ := newTestController(b)
			c.apply(loadFailed("stale error"))

			done := make(chan struct{})
			go func() {
				c.LoadTasks(context.Background())
				close(done)
			}()

			waitStarted(t, b, "tasks")
			during := c.Snapshot()
			assert.True(t, during.Loading)
			assert.Empty(t, during.Error, "error is cleared when a load starts")

			close(b.gate)
			<-done

			after := c.Snapshot()
			assert.False(t, after.Loading)
			if fail {
				assert.Equal(t, "API Error (500): boom", after.Error)
				assert.Empty(t, after.Tasks)
			} else {
				assert.Empty(t, after.Error)
				assert.Len(t, after.Tasks, 1)
			}
		})
	}
}

func TestEachPatchRendersOnce(t *testing.T) {
	b := newFakeBackend()
	b.tasks = []tekton.Task{buildTask()}
	c, r := newTestController(b)

	require.Len(t, r.States(), 1, "registering a renderer renders once")

	c.LoadTasks(context.Background())
	states := r.States()
	require.Len(t, states, 3)
	assert.True(t, states[1].Loading)
	assert.False(t, states[2].Loading)
	assert.Len(t, states[2].Tasks, 1)
}

func TestRefreshDataSkipsWhileLoading(t *testing.T) {
	b := newFakeBackend()
	b.gate = make(chan struct{})
	c, _ := newTestController(b)

	done := make(chan struct{})
	go func() {
		c.LoadTasks(context.Background())
		close(done)
	}()
	waitStarted(t, b, "tasks")

	assert.False(t, c.RefreshData(context.Background()))
	assert.False(t, c.RefreshData(context.Background()))
	assert.Len(t, b.Calls(), 1, "skipped refreshes issue no fetches")

	close(b.gate)
	<-done
}

func TestRefreshDataConcurrentTicksStartOneLoad(t *testing.T) {
	b := newFakeBackend()
	b.gate = make(chan struct{})
	c, _ := newTestController(b)

	var wg sync.WaitGroup
	results := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- c.RefreshData(context.Background())
		}()
	}

	waitStarted(t, b, "tasks")

	// The seven other ticks all see the load in flight.
	for i := 0; i < 7; i++ {
		assert.False(t, <-results)
	}

	close(b.gate)
	wg.Wait()
	close(results)

	assert.True(t, <-results)
	assert.Equal(t, []string{"tasks"}, b.Ops())
}

func TestRefreshDataReloadsSelectedRuns(t *testing.T) {
	b := newFakeBackend()
	b.tasks = []tekton.Task{buildTask()}
	b.runs["build"] = []tekton.TaskRun{{Name: "build-1", TaskName: "build", Status: tekton.StatusRunning}}
	c, _ := newTestController(b)

	assert.True(t, c.RefreshData(context.Background()))
	assert.Equal(t, []string{"tasks"}, b.Ops())

	c.LoadTaskRuns(context.Background(), "build")
	assert.True(t, c.RefreshData(context.Background()))
	assert.Equal(t, []string{"tasks", "runs", "tasks", "runs"}, b.Ops())
	assert.Equal(t, "build", b.Calls()[3].Task)
}

func TestLoadTaskRuns(t *testing.T) {
	b := newFakeBackend()
	b.runs["build"] = []tekton.TaskRun{{Name: "build-1", TaskName: "build"}}
	c, _ := newTestController(b)

	c.LoadTaskRuns(context.Background(), "")
	assert.Empty(t, b.Calls(), "empty task name is a no-op")

	c.LoadTaskRuns(context.Background(), "build")
	s := c.Snapshot()
	assert.Equal(t, "build", s.SelectedTask)
	assert.Len(t, s.TaskRuns, 1)

	b.setErr("runs", apperrors.NewNetworkError(errors.New("connection reset")))
	c.apply(triggerStarted)
	c.LoadTaskRuns(context.Background(), "build")

	s = c.Snapshot()
	assert.Equal(t, "Network error: connection reset", s.Error)
	assert.True(t, s.Loading, "run failures leave loading alone")
	assert.Len(t, s.TaskRuns, 1, "run failures keep existing runs")
}

func TestCloseRunsViewAlwaysClears(t *testing.T) {
	states := []State{
		{},
		{SelectedTask: "build"},
		{TaskRuns: []tekton.TaskRun{{Name: "x"}}},
		{SelectedTask: "build", TaskRuns: []tekton.TaskRun{{Name: "x"}, {Name: "y"}}, ShowTriggerModal: true},
	}

	for _, s := range states {
		c, _ := newTestController(newFakeBackend())
		c.apply(func(State) State { return s })

		c.CloseRunsView()
		got := c.Snapshot()
		assert.Empty(t, got.SelectedTask)
		assert.Len(t, got.TaskRuns, 0)
	}
}

func TestLoadTasks404KeepsTasks(t *testing.T) {
	b := newFakeBackend()
	b.tasks = []tekton.Task{buildTask(), {Name: "lint"}}
	c, _ := newTestController(b)

	c.LoadTasks(context.Background())
	require.Len(t, c.Snapshot().Tasks, 2)

	b.setErr("tasks", apperrors.NewHTTPError(404, "not found"))
	c.LoadTasks(context.Background())

	s := c.Snapshot()
	assert.Contains(t, s.Error, "404")
	assert.False(t, s.Loading)
	require.Len(t, s.Tasks, 2)
	assert.Equal(t, "build", s.Tasks[0].Name)
}

func TestSubmitTriggerEndToEnd(t *testing.T) {
	b := newFakeBackend()
	b.tasks = []tekton.Task{buildTask()}
	b.runs["build"] = []tekton.TaskRun{{Name: "build-2", TaskName: "build", Status: tekton.StatusStarted}}
	c, _ := newTestController(b)

	c.LoadTasks(context.Background())
	c.SelectTaskForTrigger("build")
	require.True(t, c.Snapshot().ShowTriggerModal)

	c.SubmitTrigger(context.Background(), "build", map[string]string{"branch": "main"})

	calls := b.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "trigger", calls[1].Op)
	assert.Equal(t, "build", calls[1].Task)
	assert.Equal(t, map[string]tekton.ParamValue{"branch": tekton.StringValue("main")}, calls[1].Params)
	assert.Equal(t, "runs", calls[2].Op)
	assert.Equal(t, "build", calls[2].Task)

	s := c.Snapshot()
	assert.False(t, s.ShowTriggerModal)
	assert.False(t, s.Loading)
	assert.Empty(t, s.Error)
	assert.Len(t, s.TaskRuns, 1)

	notes := c.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, NotifySuccess, notes[0].Kind)
	assert.Equal(t, MsgTriggerSucceeded, notes[0].Message)
	assert.NotEmpty(t, notes[0].ID)
}

func TestTriggerFailure(t *testing.T) {
	b := newFakeBackend()
	b.setErr("trigger", apperrors.NewHTTPError(400, "missing param"))
	c, _ := newTestController(b)
	c.SelectTaskForTrigger("build")

	c.TriggerTask(context.Background(), "build", nil)

	s := c.Snapshot()
	assert.Equal(t, "API Error (400): missing param", s.Error)
	assert.False(t, s.Loading)
	assert.True(t, s.ShowTriggerModal, "the form stays open after a failed trigger")
	assert.Equal(t, []string{"trigger"}, b.Ops())

	notes := c.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, NotifyError, notes[0].Kind)
	assert.Equal(t, "Failed to trigger task: API Error (400): missing param", notes[0].Message)
}

func TestTriggerSucceedsRefreshFails(t *testing.T) {
	b := newFakeBackend()
	b.setErr("runs", apperrors.NewHTTPError(503, "busy"))
	c, _ := newTestController(b)
	c.SelectTaskForTrigger("build")

	c.TriggerTask(context.Background(), "build", nil)

	s := c.Snapshot()
	assert.Equal(t, "API Error (503): busy", s.Error)
	assert.False(t, s.ShowTriggerModal)
	assert.False(t, s.Loading)

	notes := c.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, NotifySuccess, notes[0].Kind)
}

func TestFetchStepLogs(t *testing.T) {
	b := newFakeBackend()
	b.logs = tekton.StepLogs{Logs: "hello\n"}
	c, _ := newTestController(b)

	logs, err := c.FetchStepLogs(context.Background(), "build-1", "compile")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", logs.Logs)
	assert.Empty(t, c.Notifications())

	b.setErr("logs", apperrors.NewHTTPError(404, "no such step"))
	_, err = c.FetchStepLogs(context.Background(), "build-1", "missing")
	require.Error(t, err)

	assert.Empty(t, c.Snapshot().Error, "log failures never set the error banner")
	notes := c.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, "Failed to load logs: API Error (404): no such step", notes[0].Message)
}

func TestNotificationsExpire(t *testing.T) {
	cfg := testConfig()
	cfg.NotificationTTL = 30 * time.Millisecond
	b := newFakeBackend()
	b.setErr("logs", errors.New("boom"))

	c := NewController(cfg, b, logger.NewNullLogger())
	r := &recordingRenderer{}
	c.AddRenderer(r)

	_, _ = c.FetchStepLogs(context.Background(), "r", "s")
	require.Len(t, c.Notifications(), 1)

	assert.Eventually(t, func() bool {
		return len(c.Notifications()) == 0
	}, time.Second, 5*time.Millisecond)

	// Dismissal re-renders without the notification.
	assert.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.notes[len(r.notes)-1]) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestTriggerModalAndRunDetail(t *testing.T) {
	b := newFakeBackend()
	b.runs["build"] = []tekton.TaskRun{{Name: "build-1", TaskName: "build"}, {Name: "build-2", TaskName: "build"}}
	c, _ := newTestController(b)

	c.LoadTaskRuns(context.Background(), "build")

	c.ShowRunDetail("build-2")
	require.NotNil(t, c.Snapshot().ShowRunDetails)
	assert.Equal(t, "build-2", c.Snapshot().ShowRunDetails.Name)

	c.ShowRunDetail("nope")
	assert.Equal(t, "build-2", c.Snapshot().ShowRunDetails.Name, "unknown runs are ignored")

	c.CloseRunDetail()
	assert.Nil(t, c.Snapshot().ShowRunDetails)

	c.SelectTaskForTrigger("build")
	s := c.Snapshot()
	assert.True(t, s.ShowTriggerModal)
	assert.Len(t, s.TaskRuns, 2, "same task keeps its runs")

	c.CloseTriggerModal()
	assert.False(t, c.Snapshot().ShowTriggerModal)

	c.SelectTaskForTrigger("lint")
	s = c.Snapshot()
	assert.Equal(t, "lint", s.SelectedTask)
	assert.Empty(t, s.TaskRuns, "runs of another task are dropped")
}

func TestMountUnmount(t *testing.T) {
	t.Run("unmount without mount is safe", func(t *testing.T) {
		c, _ := newTestController(newFakeBackend())
		assert.NotPanics(t, func() {
			c.Unmount()
			c.Unmount()
		})
	})

	t.Run("mount loads once and is idempotent", func(t *testing.T) {
		b := newFakeBackend()
		b.tasks = []tekton.Task{buildTask()}
		c, r := newTestController(b)

		c.Mount(context.Background())
		c.Mount(context.Background())
		assert.True(t, c.Mounted())

		assert.Eventually(t, func() bool {
			return len(c.Snapshot().Tasks) == 1
		}, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, []string{"tasks"}, b.Ops())
		assert.GreaterOrEqual(t, len(r.States()), 2)

		c.Unmount()
		c.Unmount()
		assert.False(t, c.Mounted())
	})

	t.Run("polls on the refresh interval", func(t *testing.T) {
		cfg := testConfig()
		cfg.RefreshInterval = 10 * time.Millisecond
		b := newFakeBackend()

		c := NewController(cfg, b, logger.NewNullLogger())
		c.Mount(context.Background())
		defer c.Unmount()

		assert.Eventually(t, func() bool {
			return len(b.Calls()) >= 3
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("unmount stops polling", func(t *testing.T) {
		cfg := testConfig()
		cfg.RefreshInterval = 5 * time.Millisecond
		b := newFakeBackend()

		c := NewController(cfg, b, logger.NewNullLogger())
		c.Mount(context.Background())
		assert.Eventually(t, func() bool { return len(b.Calls()) >= 2 }, 2*time.Second, time.Millisecond)
		c.Unmount()

		n := len(b.Calls())
		time.Sleep(30 * time.Millisecond)
		assert.Equal(t, n, len(b.Calls()))
	})
}

func TestResultsAfterUnmountAreDropped(t *testing.T) {
	b := newFakeBackend()
	b.tasks = []tekton.Task{buildTask()}
	c, r := newTestController(b)

	c.Mount(context.Background())
	assert.Eventually(t, func() bool { return len(c.Snapshot().Tasks) == 1 }, 2*time.Second, 5*time.Millisecond)
	<-b.started

	b.mu.Lock()
	b.gate = make(chan struct{})
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.LoadTaskRuns(context.Background(), "build")
		close(done)
	}()
	waitStarted(t, b, "runs")

	c.Unmount()
	renders := len(r.States())
	close(b.gate)
	<-done

	assert.Empty(t, c.Snapshot().SelectedTask, "late result was not applied")
	assert.Len(t, r.States(), renders, "no render after unmount")

	c.SelectTaskForTrigger("build")
	assert.False(t, c.Snapshot().ShowTriggerModal)
}
