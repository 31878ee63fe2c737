package dashboard

import (
	"strings"
	"time"

	"github.com/zsiec/taskboard/internal/tekton"
)

// LastRunForTask returns the run of task with the latest start time. Runs
// without a start time sort first; ties keep the earliest in runs. It returns
// nil when task has no runs.
func LastRunForTask(runs []tekton.TaskRun, task string) *tekton.TaskRun {
	var last *tekton.TaskRun
	for i := range runs {
		run := &runs[i]
		if run.TaskName != task {
			continue
		}
		if last == nil || startOf(run).After(startOf(last)) {
			last = run
		}
	}
	if last == nil {
		return nil
	}
	out := *last
	return &out
}

func startOf(r *tekton.TaskRun) time.Time {
	if r.StartTime == nil {
		return time.Time{}
	}
	return *r.StartTime
}

// BuildParams turns raw form input into parameter values for task. Array
// parameters take one value per line, trimmed, with blank lines dropped.
// Everything else is a string, and a missing value is the empty string.
//
// When task declares no parameters every form field is sent as a string.
func BuildParams(task tekton.Task, form map[string]string) map[string]tekton.ParamValue {
	params := make(map[string]tekton.ParamValue, len(task.Params))

	if len(task.Params) == 0 {
		for name, raw := range form {
			params[name] = tekton.StringValue(raw)
		}
		return params
	}

	for _, spec := range task.Params {
		raw := form[spec.Name]
		if spec.IsArray() {
			params[spec.Name] = tekton.ArrayValue(SplitLines(raw))
			continue
		}
		params[spec.Name] = tekton.StringValue(raw)
	}
	return params
}

// SplitLines splits s on line breaks, trims each line and drops empty ones.
func SplitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	out := []string{}
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// DefaultFormValues returns the form pre-filled from parameter defaults:
// array defaults one per line, string defaults verbatim.
func DefaultFormValues(task tekton.Task) map[string]string {
	form := make(map[string]string, len(task.Params))
	for _, spec := range task.Params {
		form[spec.Name] = defaultInput(spec)
	}
	return form
}

func defaultInput(spec tekton.ParameterSpec) string {
	if spec.Default == nil {
		return ""
	}
	if spec.IsArray() {
		return strings.Join(spec.Default.ArrayVal, "\n")
	}
	if spec.Default.StringVal == nil {
		return ""
	}
	return *spec.Default.StringVal
}
