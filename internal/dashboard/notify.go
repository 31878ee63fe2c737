package dashboard

import (
	"time"
)

// NotificationKind is success or error.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
)

// Notification messages.
const (
	MsgTriggerSucceeded = "Task triggered successfully!"
	MsgTriggerFailed    = "Failed to trigger task: "
	MsgLogsFailed       = "Failed to load logs: "
)

// Notification is a transient message that dismisses itself after the
// configured TTL. Notifications never touch State.Error.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// Active reports whether n is still shown at now.
func (n Notification) Active(now time.Time) bool {
	return now.Before(n.ExpiresAt)
}

// pruneNotifications returns the notifications still active at now.
func pruneNotifications(in []Notification, now time.Time) []Notification {
	out := make([]Notification, 0, len(in))
	for _, n := range in {
		if n.Active(now) {
			out = append(out, n)
		}
	}
	return out
}
