package dashboard

import (
	"github.com/zsiec/taskboard/internal/tekton"
)

// State is everything the dashboard renders. It is only changed through the
// transition functions below, each of which returns a new value. Slices are
// replaced, never modified in place, so a State handed to a renderer stays
// valid after later patches.
type State struct {
	Tasks            []tekton.Task    `json:"tasks"`
	SelectedTask     string           `json:"selectedTask,omitempty"`
	TaskRuns         []tekton.TaskRun `json:"taskRuns"`
	Loading          bool             `json:"loading"`
	Error            string           `json:"error,omitempty"`
	ShowTriggerModal bool             `json:"showTriggerModal"`
	ShowRunDetails   *tekton.TaskRun  `json:"showRunDetails,omitempty"`
}

// HasSelection reports whether a task is selected.
func (s State) HasSelection() bool {
	return s.SelectedTask != ""
}

// FindTask returns the listed task called name.
func (s State) FindTask(name string) (tekton.Task, bool) {
	for _, t := range s.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return tekton.Task{}, false
}

// FindRun returns the listed run called name.
func (s State) FindRun(name string) (*tekton.TaskRun, bool) {
	for i := range s.TaskRuns {
		if s.TaskRuns[i].Name == name {
			run := s.TaskRuns[i]
			return &run, true
		}
	}
	return nil, false
}

// Transition is a pure state patch.
type Transition func(State) State

func beginLoad(s State) State {
	s.Loading = true
	s.Error = ""
	return s
}

func tasksLoaded(tasks []tekton.Task) Transition {
	return func(s State) State {
		if tasks == nil {
			tasks = []tekton.Task{}
		}
		s.Tasks = tasks
		s.Loading = false
		return s
	}
}

func loadFailed(msg string) Transition {
	return func(s State) State {
		s.Error = msg
		s.Loading = false
		return s
	}
}

func runsLoaded(task string, runs []tekton.TaskRun) Transition {
	return func(s State) State {
		if runs == nil {
			runs = []tekton.TaskRun{}
		}
		s.TaskRuns = runs
		s.SelectedTask = task
		return s
	}
}

// runsFailed leaves loading and the current runs alone.
func runsFailed(msg string) Transition {
	return func(s State) State {
		s.Error = msg
		return s
	}
}

func triggerStarted(s State) State {
	s.Loading = true
	return s
}

func triggerDone(s State) State {
	s.ShowTriggerModal = false
	s.Loading = false
	return s
}

func triggerFailed(msg string) Transition {
	return func(s State) State {
		s.Error = msg
		s.Loading = false
		return s
	}
}

// selectForTrigger drops runs that belong to a previously selected task so
// that TaskRuns never describes a task other than SelectedTask.
func selectForTrigger(task string) Transition {
	return func(s State) State {
		if s.SelectedTask != task {
			s.TaskRuns = []tekton.TaskRun{}
		}
		s.SelectedTask = task
		s.ShowTriggerModal = true
		return s
	}
}

func closeTrigger(s State) State {
	s.ShowTriggerModal = false
	return s
}

func closeRuns(s State) State {
	s.SelectedTask = ""
	s.TaskRuns = []tekton.TaskRun{}
	return s
}

func showRun(name string) Transition {
	return func(s State) State {
		if run, ok := s.FindRun(name); ok {
			s.ShowRunDetails = run
		}
		return s
	}
}

func closeRun(s State) State {
	s.ShowRunDetails = nil
	return s
}
