package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zsiec/taskboard/internal/dashboard"
)

type snapshotMsg struct {
	state   dashboard.State
	notices []dashboard.Notification
}

// Renderer hands controller snapshots to the bubbletea program. It holds at
// most one pending snapshot; a newer one replaces it, so Render never blocks
// the controller.
type Renderer struct {
	updates chan snapshotMsg
}

func NewRenderer() *Renderer {
	return &Renderer{updates: make(chan snapshotMsg, 1)}
}

func (r *Renderer) Name() string { return "tui" }

func (r *Renderer) Render(state dashboard.State, notifications []dashboard.Notification) {
	msg := snapshotMsg{state: state, notices: notifications}
	for {
		select {
		case r.updates <- msg:
			return
		default:
		}
		// Drop the stale snapshot and retry.
		select {
		case <-r.updates:
		default:
		}
	}
}

// wait blocks until the next snapshot.
func (r *Renderer) wait() tea.Cmd {
	return func() tea.Msg {
		return <-r.updates
	}
}
