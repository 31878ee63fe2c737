package tekton

// Status is the lifecycle state of a task run or step as reported by the
// backend. Values outside the known set decode without error and render with
// the fallback appearance.
type Status string

const (
	StatusSucceeded         Status = "SUCCEEDED"
	StatusFailed            Status = "FAILED"
	StatusRunning           Status = "RUNNING"
	StatusPending           Status = "PENDING"
	StatusStarted           Status = "STARTED"
	StatusCancelled         Status = "CANCELLED"
	StatusCancelling        Status = "CANCELLING"
	StatusNonPermanentError Status = "NON_PERMANENT_ERROR"
)

const (
	// FallbackColor and FallbackIcon are used for statuses we do not know.
	FallbackColor = "#9ca3af"
	FallbackIcon  = "❔"

	// NoRunIcon marks a task card that has never run. It is paired with the
	// pending color.
	NoRunIcon  = "⚪"
	NoRunLabel = "No Runs"
)

// Known reports whether s is one of the statuses the backend documents.
func (s Status) Known() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusRunning, StatusPending,
		StatusStarted, StatusCancelled, StatusCancelling, StatusNonPermanentError:
		return true
	}
	return false
}

// Color returns the hex color used to draw s.
func (s Status) Color() string {
	switch s {
	case StatusSucceeded:
		return "#22c55e"
	case StatusFailed:
		return "#ef4444"
	case StatusRunning, StatusStarted:
		return "#3b82f6"
	case StatusPending, StatusCancelling:
		return "#f59e0b"
	case StatusCancelled:
		return "#6b7280"
	case StatusNonPermanentError:
		return "#f97316"
	default:
		return FallbackColor
	}
}

// Icon returns the glyph shown next to s.
func (s Status) Icon() string {
	switch s {
	case StatusSucceeded:
		return "✅"
	case StatusFailed:
		return "❌"
	case StatusRunning:
		return "🔄"
	case StatusPending:
		return "⏳"
	case StatusStarted:
		return "🚀"
	case StatusCancelled:
		return "🚫"
	case StatusCancelling:
		return "⏹️"
	case StatusNonPermanentError:
		return "⚠️"
	default:
		return FallbackIcon
	}
}

// Terminal reports whether a run in status s will not change again.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

func (s Status) String() string {
	if s == "" {
		return "UNKNOWN"
	}
	return string(s)
}
