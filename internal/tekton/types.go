package tekton

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ParamType tags a ParamValue.
type ParamType string

const (
	ParamTypeString ParamType = "string"
	ParamTypeArray  ParamType = "array"
)

// Task is a parameterized pipeline definition exposed by the backend.
type Task struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Params      []ParameterSpec `json:"params,omitempty"`
}

// ParameterSpec declares one input of a Task.
type ParameterSpec struct {
	Name        string      `json:"name"`
	Type        ParamType   `json:"type"`
	Description string      `json:"description,omitempty"`
	Default     *ParamValue `json:"defaultValue,omitempty"`
}

// IsArray reports whether the parameter takes a list of strings.
func (p ParameterSpec) IsArray() bool {
	return p.Type == ParamTypeArray
}

// ParamValue is the string-or-array value supplied for a parameter. Only the
// payload matching Type is meaningful; both keys are always encoded and the
// unused one is null.
type ParamValue struct {
	Type      ParamType `json:"type"`
	StringVal *string   `json:"stringVal"`
	ArrayVal  []string  `json:"arrayVal"`
}

// StringValue builds a string-typed value.
func StringValue(s string) ParamValue {
	return ParamValue{Type: ParamTypeString, StringVal: &s}
}

// ArrayValue builds an array-typed value. A nil slice encodes as an empty
// list so that the payload key stays meaningful.
func ArrayValue(items []string) ParamValue {
	if items == nil {
		items = []string{}
	}
	return ParamValue{Type: ParamTypeArray, ArrayVal: items}
}

// MarshalJSON keeps the unused payload key null.
func (v ParamValue) MarshalJSON() ([]byte, error) {
	type wire struct {
		Type      ParamType `json:"type"`
		StringVal *string   `json:"stringVal"`
		ArrayVal  []string  `json:"arrayVal"`
	}
	w := wire{Type: v.Type}
	if v.Type == ParamTypeArray {
		w.ArrayVal = v.ArrayVal
		if w.ArrayVal == nil {
			w.ArrayVal = []string{}
		}
	} else {
		w.StringVal = v.StringVal
		if w.StringVal == nil {
			empty := ""
			w.StringVal = &empty
		}
	}
	return json.Marshal(w)
}

// Display joins array values with sep and falls back to fallback for an empty
// string value.
func (v ParamValue) Display(sep, fallback string) string {
	if v.Type == ParamTypeArray {
		return strings.Join(v.ArrayVal, sep)
	}
	if v.StringVal == nil || *v.StringVal == "" {
		return fallback
	}
	return *v.StringVal
}

// TaskRun is one execution of a Task.
type TaskRun struct {
	Name           string                `json:"name"`
	TaskName       string                `json:"taskName"`
	Status         Status                `json:"status"`
	StartTime      *time.Time            `json:"startTime,omitempty"`
	CompletionTime *time.Time            `json:"completionTime,omitempty"`
	Reason         string                `json:"reason,omitempty"`
	Message        string                `json:"message,omitempty"`
	Params         map[string]ParamValue `json:"params,omitempty"`
	Steps          []Step                `json:"steps,omitempty"`
}

// UnmarshalJSON tolerates empty timestamp strings, which the backend sends for
// runs that have not started or finished.
func (r *TaskRun) UnmarshalJSON(data []byte) error {
	type alias TaskRun
	aux := struct {
		*alias
		StartTime      string `json:"startTime"`
		CompletionTime string `json:"completionTime"`
	}{alias: (*alias)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if r.StartTime, err = parseTimestamp(aux.StartTime); err != nil {
		return fmt.Errorf("task run %q startTime: %w", r.Name, err)
	}
	if r.CompletionTime, err = parseTimestamp(aux.CompletionTime); err != nil {
		return fmt.Errorf("task run %q completionTime: %w", r.Name, err)
	}
	return nil
}

// Step is one container execution inside a TaskRun.
type Step struct {
	Name       string     `json:"name"`
	Status     Status     `json:"status"`
	StartTime  *time.Time `json:"startTime,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	ExitCode   *int       `json:"exitCode,omitempty"`
	Container  string     `json:"container,omitempty"`
}

func (s *Step) UnmarshalJSON(data []byte) error {
	type alias Step
	aux := struct {
		*alias
		StartTime  string `json:"startTime"`
		FinishedAt string `json:"finishedAt"`
	}{alias: (*alias)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if s.StartTime, err = parseTimestamp(aux.StartTime); err != nil {
		return fmt.Errorf("step %q startTime: %w", s.Name, err)
	}
	if s.FinishedAt, err = parseTimestamp(aux.FinishedAt); err != nil {
		return fmt.Errorf("step %q finishedAt: %w", s.Name, err)
	}
	return nil
}

// StepLogs is the body of the step logs endpoint.
type StepLogs struct {
	Logs string `json:"logs"`
}

// TriggerRequest is the body posted to the trigger endpoint.
type TriggerRequest struct {
	Params map[string]ParamValue `json:"params"`
}

func parseTimestamp(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
