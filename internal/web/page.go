package web

import (
	"embed"
	"html/template"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/zsiec/taskboard/internal/config"
	"github.com/zsiec/taskboard/internal/dashboard"
	"github.com/zsiec/taskboard/internal/format"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageData is what page.html executes against.
type PageData struct {
	dashboard.View
	// RefreshSeconds drives the meta refresh; zero while a form is open so
	// typed input is not lost.
	RefreshSeconds int
	LoadingText    string
	EmptyTasksText string
	EmptyRunsText  string
}

// LogsView is what logs.html executes against.
type LogsView struct {
	Title     string
	Run       string
	Step      string
	Logs      string
	Truncated bool
	MaxLines  int
}

// PageRenderer keeps the latest state pushed by the controller and renders
// it to HTML on request.
type PageRenderer struct {
	tmpl      *template.Template
	registry  dashboard.Registry
	formatter *format.Formatter
	refresh   time.Duration

	mu      sync.RWMutex
	state   dashboard.State
	notices []dashboard.Notification
}

func NewPageRenderer(cfg config.DashboardConfig) (*PageRenderer, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &PageRenderer{
		tmpl: tmpl,
		registry: dashboard.Registry{
			ClusterID:    cfg.ClusterID,
			ResourceType: cfg.ResourceType,
			ResourceName: cfg.ResourceName,
		},
		formatter: format.New(time.Local),
		refresh:   cfg.RefreshInterval,
	}, nil
}

var templateFuncs = template.FuncMap{
	"css":  func(s string) template.CSS { return template.CSS(s) },
	"path": url.PathEscape,
}

func (p *PageRenderer) Name() string { return "html" }

// Render stores the snapshot; it never blocks on I/O.
func (p *PageRenderer) Render(state dashboard.State, notifications []dashboard.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
	p.notices = notifications
}

// View projects the latest snapshot.
func (p *PageRenderer) View() dashboard.View {
	p.mu.RLock()
	state, notices := p.state, p.notices
	p.mu.RUnlock()
	return dashboard.BuildView(state, notices, p.registry, p.formatter)
}

// WritePage renders the dashboard page.
func (p *PageRenderer) WritePage(w io.Writer) error {
	data := PageData{
		View:           p.View(),
		LoadingText:    dashboard.LoadingText,
		EmptyTasksText: dashboard.EmptyTasksText,
		EmptyRunsText:  dashboard.EmptyRunsText,
	}
	if data.Trigger == nil {
		data.RefreshSeconds = int(p.refresh / time.Second)
	}
	return p.tmpl.ExecuteTemplate(w, "page.html", data)
}

// WriteLogs renders the log viewer.
func (p *PageRenderer) WriteLogs(w io.Writer, v LogsView) error {
	return p.tmpl.ExecuteTemplate(w, "logs.html", v)
}
