package health

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/zsiec/taskboard/internal/tekton"
)

// TaskLister is the slice of the transport client the backend probe needs.
type TaskLister interface {
	GetTasks(ctx context.Context) ([]tekton.Task, error)
}

// BackendChecker probes the task API by listing tasks. A failing backend
// takes the widget down: it has nothing else to show.
type BackendChecker struct {
	lister    TaskLister
	baseURL   string
	lastCount atomic.Int64
}

func NewBackendChecker(lister TaskLister, baseURL string) *BackendChecker {
	c := &BackendChecker{lister: lister, baseURL: baseURL}
	c.lastCount.Store(-1)
	return c
}

func (b *BackendChecker) Name() string { return "backend" }

func (b *BackendChecker) Details() map[string]interface{} {
	details := map[string]interface{}{"base_url": b.baseURL}
	if n := b.lastCount.Load(); n >= 0 {
		details["tasks"] = n
	}
	return details
}

func (b *BackendChecker) Check(ctx context.Context) error {
	tasks, err := b.lister.GetTasks(ctx)
	if err != nil {
		return fmt.Errorf("task API unreachable: %w", err)
	}
	b.lastCount.Store(int64(len(tasks)))
	return nil
}
