package dashboard

import (
	"fmt"
	"sort"

	"github.com/zsiec/taskboard/internal/format"
	"github.com/zsiec/taskboard/internal/tekton"
)

// Display strings shared by the HTML and terminal renderers.
const (
	Title              = "🔧 Tekton Tasks Dashboard"
	LoadingText        = "Loading tasks..."
	EmptyTasksText     = "No Tekton tasks found for this resource."
	EmptyRunsText      = "No task runs found."
	NoDescriptionText  = "No description provided"
	NoLogsText         = "No logs available"
	ArrayPlaceholder   = "Enter one value per line"
	ArrayHelp          = "Enter array values, one per line"
	ParamValueSep      = ", "
	notificationOKHex  = "#22c55e"
	notificationErrHex = "#ef4444"
)

// Mode selects the top-level branch of the view.
type Mode string

const (
	ModeLoading Mode = "loading"
	ModeError   Mode = "error"
	ModeContent Mode = "content"
)

// Registry holds the static identity the header shows.
type Registry struct {
	ClusterID    string
	ResourceType string
	ResourceName string
}

// Resource is "type/name".
func (r Registry) Resource() string {
	return r.ResourceType + "/" + r.ResourceName
}

// View is the full render tree derived from State.
type View struct {
	Title         string
	Cluster       string
	Resource      string
	Mode          Mode
	Loading       bool
	Error         string
	Tasks         []TaskCard
	Runs          *RunsPanel
	Trigger       *TriggerForm
	Detail        *RunDetail
	Notifications []NotificationView
}

// Empty reports whether the content branch has no tasks to show.
func (v View) Empty() bool {
	return v.Mode == ModeContent && len(v.Tasks) == 0
}

type TaskCard struct {
	Name        string
	Description string
	ParamCount  int
	StatusLabel string
	Color       string
	Icon        string
	Selected    bool
}

type RunsPanel struct {
	Task  string
	Items []RunItem
}

type RunItem struct {
	Name     string
	Status   string
	Color    string
	Icon     string
	Started  string
	Duration string
	Reason   string
	Message  string
	Steps    []StepItem
}

type StepItem struct {
	Name     string
	Status   string
	Color    string
	Icon     string
	Started  string
	Duration string
	ExitCode string
}

type TriggerForm struct {
	Task   string
	Fields []FormField
}

type FormField struct {
	Name        string
	Description string
	Array       bool
	Value       string
	Placeholder string
	Help        string
}

type RunDetail struct {
	RunItem
	Params []ParamItem
}

type ParamItem struct {
	Name  string
	Value string
}

type NotificationView struct {
	ID      string
	Kind    NotificationKind
	Message string
	Color   string
}

// BuildView projects state into the render tree. It is pure: the same inputs
// always produce the same View.
func BuildView(s State, notices []Notification, reg Registry, f *format.Formatter) View {
	v := View{
		Title:    Title,
		Cluster:  reg.ClusterID,
		Resource: reg.Resource(),
		Loading:  s.Loading,
	}

	for _, n := range notices {
		color := notificationOKHex
		if n.Kind == NotifyError {
			color = notificationErrHex
		}
		v.Notifications = append(v.Notifications, NotificationView{ID: n.ID, Kind: n.Kind, Message: n.Message, Color: color})
	}

	switch {
	case s.Loading && len(s.Tasks) == 0:
		v.Mode = ModeLoading
		return v
	case s.Error != "":
		v.Mode = ModeError
		v.Error = s.Error
		return v
	}
	v.Mode = ModeContent

	for _, t := range s.Tasks {
		v.Tasks = append(v.Tasks, buildCard(t, s))
	}

	if s.HasSelection() {
		if task, ok := s.FindTask(s.SelectedTask); ok {
			panel := &RunsPanel{Task: task.Name}
			for _, run := range s.TaskRuns {
				panel.Items = append(panel.Items, buildRunItem(run, f))
			}
			v.Runs = panel
		}
	}

	if s.ShowTriggerModal {
		if task, ok := s.FindTask(s.SelectedTask); ok {
			v.Trigger = buildTriggerForm(task)
		}
	}

	if s.ShowRunDetails != nil {
		v.Detail = buildRunDetail(*s.ShowRunDetails, f)
	}

	return v
}

func buildCard(t tekton.Task, s State) TaskCard {
	card := TaskCard{
		Name:        t.Name,
		Description: format.OrDefault(t.Description, NoDescriptionText),
		ParamCount:  len(t.Params),
		Selected:    t.Name == s.SelectedTask,
	}

	if last := LastRunForTask(s.TaskRuns, t.Name); last != nil {
		card.StatusLabel = last.Status.String()
		card.Color = last.Status.Color()
		card.Icon = last.Status.Icon()
	} else {
		card.StatusLabel = tekton.NoRunLabel
		card.Color = tekton.StatusPending.Color()
		card.Icon = tekton.NoRunIcon
	}
	return card
}

// ParamCountLabel renders "N parameter(s)".
func (c TaskCard) ParamCountLabel() string {
	return fmt.Sprintf("%d parameter(s)", c.ParamCount)
}

func buildRunItem(run tekton.TaskRun, f *format.Formatter) RunItem {
	item := RunItem{
		Name:     run.Name,
		Status:   run.Status.String(),
		Color:    run.Status.Color(),
		Icon:     run.Status.Icon(),
		Started:  f.DateTime(run.StartTime),
		Duration: f.Duration(run.StartTime, run.CompletionTime),
		Reason:   run.Reason,
		Message:  run.Message,
	}
	for _, step := range run.Steps {
		item.Steps = append(item.Steps, StepItem{
			Name:     step.Name,
			Status:   step.Status.String(),
			Color:    step.Status.Color(),
			Icon:     step.Status.Icon(),
			Started:  f.DateTime(step.StartTime),
			Duration: f.Duration(step.StartTime, step.FinishedAt),
			ExitCode: format.ExitCode(step.ExitCode),
		})
	}
	return item
}

func buildTriggerForm(task tekton.Task) *TriggerForm {
	form := &TriggerForm{Task: task.Name}
	for _, spec := range task.Params {
		field := FormField{
			Name:        spec.Name,
			Description: spec.Description,
			Array:       spec.IsArray(),
			Value:       defaultInput(spec),
		}
		if field.Array {
			field.Placeholder = ArrayPlaceholder
			field.Help = ArrayHelp
		} else {
			field.Placeholder = fmt.Sprintf("Enter %s value", paramTypeLabel(spec.Type))
		}
		form.Fields = append(form.Fields, field)
	}
	return form
}

func paramTypeLabel(t tekton.ParamType) string {
	if t == "" {
		return string(tekton.ParamTypeString)
	}
	return string(t)
}

func buildRunDetail(run tekton.TaskRun, f *format.Formatter) *RunDetail {
	detail := &RunDetail{RunItem: buildRunItem(run, f)}

	names := make([]string, 0, len(run.Params))
	for name := range run.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		detail.Params = append(detail.Params, ParamItem{
			Name:  name,
			Value: run.Params[name].Display(ParamValueSep, format.NotAvailable),
		})
	}
	return detail
}
