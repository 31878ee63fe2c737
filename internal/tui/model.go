// Package tui is a terminal front end over the dashboard controller.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zsiec/taskboard/internal/config"
	"github.com/zsiec/taskboard/internal/dashboard"
	"github.com/zsiec/taskboard/internal/format"
	"github.com/zsiec/taskboard/internal/tekton"
)

// Dashboard is the controller surface the terminal UI drives.
type Dashboard interface {
	AddRenderer(r dashboard.Renderer)
	LoadTasks(ctx context.Context)
	LoadTaskRuns(ctx context.Context, task string)
	SelectTaskForTrigger(task string)
	SubmitTrigger(ctx context.Context, task string, form map[string]string)
	ShowRunDetail(run string)
	CloseRunDetail()
	CloseRunsView()
	CloseTriggerModal()
	FetchStepLogs(ctx context.Context, run, step string) (tekton.StepLogs, error)
}

type logsMsg struct {
	run, step string
	logs      string
	err       error
}

// Model is the bubbletea model.
type Model struct {
	ctx       context.Context
	dash      Dashboard
	renderer  *Renderer
	registry  dashboard.Registry
	formatter *format.Formatter
	maxLines  int

	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	viewport viewport.Model

	state   dashboard.State
	notices []dashboard.Notification
	cursor  int

	showLogs  bool
	logsTitle string

	width    int
	height   int
	quitting bool
}

// New builds the model and registers its renderer with dash.
func New(ctx context.Context, dash Dashboard, cfg config.DashboardConfig) *Model {
	m := &Model{
		ctx:      ctx,
		dash:     dash,
		renderer: NewRenderer(),
		registry: dashboard.Registry{
			ClusterID:    cfg.ClusterID,
			ResourceType: cfg.ResourceType,
			ResourceName: cfg.ResourceName,
		},
		formatter: format.New(time.Local),
		maxLines:  cfg.MaxLogLines,
		keys:      defaultKeyMap,
		help:      help.New(),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(Primary)),
		),
		viewport: viewport.New(80, 20),
	}
	dash.AddRenderer(m.renderer)
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.renderer.wait())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 3)
		return m, nil

	case snapshotMsg:
		m.state = msg.state
		m.notices = msg.notices
		m.clampCursor()
		return m, m.renderer.wait()

	case logsMsg:
		if msg.err != nil {
			// The controller has raised a notification already.
			return m, nil
		}
		text, _ := format.TailLines(msg.logs, m.maxLines)
		m.viewport.SetContent(format.OrDefault(text, dashboard.NoLogsText))
		m.viewport.GotoBottom()
		m.logsTitle = msg.run + " / " + msg.step
		m.showLogs = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}

	if m.showLogs {
		if key.Matches(msg, m.keys.Back) {
			m.showLogs = false
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.state.Tasks)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Refresh):
		return m, m.run(func(ctx context.Context) { m.dash.LoadTasks(ctx) })
	case key.Matches(msg, m.keys.Runs):
		if task, ok := m.current(); ok {
			return m, m.run(func(ctx context.Context) { m.dash.LoadTaskRuns(ctx, task.Name) })
		}
	case key.Matches(msg, m.keys.Trigger):
		if task, ok := m.current(); ok {
			form := dashboard.DefaultFormValues(task)
			return m, m.run(func(ctx context.Context) {
				m.dash.SelectTaskForTrigger(task.Name)
				m.dash.SubmitTrigger(ctx, task.Name, form)
			})
		}
	case key.Matches(msg, m.keys.Detail):
		if run := m.latestRun(); run != nil {
			name := run.Name
			return m, m.run(func(context.Context) { m.dash.ShowRunDetail(name) })
		}
	case key.Matches(msg, m.keys.Logs):
		return m, m.fetchLogs()
	case key.Matches(msg, m.keys.Back):
		return m, m.closeInnermost()
	}
	return m, nil
}

// run executes fn off the update loop; the resulting state arrives as a
// snapshot.
func (m *Model) run(fn func(ctx context.Context)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		fn(ctx)
		return nil
	}
}

func (m *Model) current() (tekton.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.state.Tasks) {
		return tekton.Task{}, false
	}
	return m.state.Tasks[m.cursor], true
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.state.Tasks) {
		m.cursor = len(m.state.Tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// latestRun is the open detail run, else the newest run of the task under
// the cursor.
func (m *Model) latestRun() *tekton.TaskRun {
	if m.state.ShowRunDetails != nil {
		return m.state.ShowRunDetails
	}
	task, ok := m.current()
	if !ok {
		return nil
	}
	return dashboard.LastRunForTask(m.state.TaskRuns, task.Name)
}

func (m *Model) fetchLogs() tea.Cmd {
	run := m.latestRun()
	if run == nil || len(run.Steps) == 0 {
		return nil
	}
	runName, step := run.Name, run.Steps[0].Name
	ctx := m.ctx
	return func() tea.Msg {
		logs, err := m.dash.FetchStepLogs(ctx, runName, step)
		return logsMsg{run: runName, step: step, logs: logs.Logs, err: err}
	}
}

func (m *Model) closeInnermost() tea.Cmd {
	switch {
	case m.state.ShowRunDetails != nil:
		return m.run(func(context.Context) { m.dash.CloseRunDetail() })
	case m.state.ShowTriggerModal:
		return m.run(func(context.Context) { m.dash.CloseTriggerModal() })
	case m.state.HasSelection():
		return m.run(func(context.Context) { m.dash.CloseRunsView() })
	}
	return nil
}

func (m *Model) View() string {
	if m.quitting {
		return "Closing dashboard...\n"
	}

	if m.showLogs {
		return lipgloss.JoinVertical(lipgloss.Left,
			PanelTitleStyle.Render("Logs: "+m.logsTitle),
			m.viewport.View(),
			MutedStyle.Render("esc: back  ↑/↓: scroll  q: quit"),
		)
	}

	v := dashboard.BuildView(m.state, m.notices, m.registry, m.formatter)

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(v.Title))
	b.WriteString("\n")
	b.WriteString(MetaStyle.Render(fmt.Sprintf("Cluster: %s · Resource: %s", v.Cluster, v.Resource)))
	b.WriteString("\n")

	for _, n := range v.Notifications {
		b.WriteString(notificationStyle(n.Color).Render(n.Message))
		b.WriteString("\n")
	}

	switch v.Mode {
	case dashboard.ModeLoading:
		b.WriteString("\n" + m.spinner.View() + " " + dashboard.LoadingText + "\n")
	case dashboard.ModeError:
		b.WriteString(ErrorStyle.Render("Error: " + v.Error + "\n(r to retry)"))
		b.WriteString("\n")
	default:
		if v.Loading {
			b.WriteString(m.spinner.View() + " Refreshing...\n")
		}
		b.WriteString(m.renderTasks(v))
		if v.Runs != nil {
			b.WriteString(renderRuns(v.Runs))
		}
		if v.Detail != nil {
			b.WriteString(renderDetail(v.Detail))
		}
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderTasks(v dashboard.View) string {
	if v.Empty() {
		return MutedStyle.Render(dashboard.EmptyTasksText) + "\n"
	}

	var cards []string
	for i, card := range v.Tasks {
		style := CardStyle
		marker := "  "
		if i == m.cursor {
			style = SelectedCardStyle
			marker = "▶ "
		}
		body := lipgloss.JoinVertical(lipgloss.Left,
			marker+lipgloss.NewStyle().Bold(true).Render(card.Name),
			MutedStyle.Render(card.Description),
			card.ParamCountLabel(),
			statusStyle(card.Color).Render(card.Icon+" "+card.StatusLabel),
		)
		cards = append(cards, style.Render(body))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...) + "\n"
}

func renderRuns(p *dashboard.RunsPanel) string {
	lines := []string{PanelTitleStyle.Render("Runs for " + p.Task)}
	if len(p.Items) == 0 {
		lines = append(lines, MutedStyle.Render(dashboard.EmptyRunsText))
	}
	for _, item := range p.Items {
		lines = append(lines, renderRunItem(item)...)
	}
	return PanelStyle.Render(strings.Join(lines, "\n")) + "\n"
}

func renderRunItem(item dashboard.RunItem) []string {
	lines := []string{
		statusStyle(item.Color).Render(item.Icon+" "+item.Status) + " " + item.Name,
		MutedStyle.Render(fmt.Sprintf("  started %s · %s", item.Started, item.Duration)),
	}
	if item.Reason != "" {
		lines = append(lines, "  Reason: "+item.Reason)
	}
	if item.Message != "" {
		lines = append(lines, "  Message: "+item.Message)
	}
	for _, step := range item.Steps {
		lines = append(lines, fmt.Sprintf("    %s %s (%s, exit %s)",
			statusStyle(step.Color).Render(step.Icon), step.Name, step.Duration, step.ExitCode))
	}
	return lines
}

func renderDetail(d *dashboard.RunDetail) string {
	lines := []string{PanelTitleStyle.Render("Run " + d.Name)}
	lines = append(lines, renderRunItem(d.RunItem)...)
	if len(d.Params) > 0 {
		lines = append(lines, PanelTitleStyle.Render("Parameters"))
		for _, p := range d.Params {
			lines = append(lines, fmt.Sprintf("  %s: %s", p.Name, p.Value))
		}
	}
	return PanelStyle.Render(strings.Join(lines, "\n")) + "\n"
}
