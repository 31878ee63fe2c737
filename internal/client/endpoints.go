package client

import (
	"net/url"
	"strings"

	"github.com/zsiec/taskboard/internal/config"
)

// Endpoints expands the backend path templates for one cluster resource.
// Every dynamic segment is path-escaped.
type Endpoints struct {
	apiBase      string
	cluster      string
	resourceType string
	resourceName string
}

// NewEndpoints builds the templates from the dashboard registry.
func NewEndpoints(cfg config.DashboardConfig) Endpoints {
	return Endpoints{
		apiBase:      "/" + strings.Trim(cfg.APIBase, "/"),
		cluster:      cfg.ClusterID,
		resourceType: cfg.ResourceType,
		resourceName: cfg.ResourceName,
	}
}

func (e Endpoints) resource() string {
	return e.apiBase +
		"/clusters/" + url.PathEscape(e.cluster) +
		"/resources/" + url.PathEscape(e.resourceType) +
		"/" + url.PathEscape(e.resourceName)
}

// Tasks is the task list path.
func (e Endpoints) Tasks() string {
	return e.resource() + "/tasks"
}

// TaskRuns is the run list path for task.
func (e Endpoints) TaskRuns(task string) string {
	return e.Tasks() + "/" + url.PathEscape(task) + "/runs"
}

// Trigger is the path that starts a new run of task.
func (e Endpoints) Trigger(task string) string {
	return e.Tasks() + "/" + url.PathEscape(task) + "/trigger"
}

// StepLogs is the log path for one step of a run.
func (e Endpoints) StepLogs(run, step string) string {
	return e.apiBase + "/taskruns/" + url.PathEscape(run) + "/steps/" + url.PathEscape(step) + "/logs"
}
