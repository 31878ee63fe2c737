// Package format turns timestamps and log bodies into the strings the
// dashboard displays.
package format

import (
	"fmt"
	"strings"
	"time"
)

// NotAvailable is shown for missing or nonsensical values.
const NotAvailable = "N/A"

// DateTimeLayout renders like "Mar 1, 2026, 09:05:07 AM".
const DateTimeLayout = "Jan 2, 2006, 03:04:05 PM"

// Formatter renders times in a fixed location against a clock. The zero
// value formats in UTC against time.Now.
type Formatter struct {
	Location *time.Location
	Now      func() time.Time
}

// New returns a Formatter for loc. A nil loc means UTC.
func New(loc *time.Location) *Formatter {
	return &Formatter{Location: loc, Now: time.Now}
}

func (f *Formatter) now() time.Time {
	if f == nil || f.Now == nil {
		return time.Now()
	}
	return f.Now()
}

func (f *Formatter) location() *time.Location {
	if f == nil || f.Location == nil {
		return time.UTC
	}
	return f.Location
}

// DateTime formats t, or returns NotAvailable when t is nil or zero.
func (f *Formatter) DateTime(t *time.Time) string {
	return DateTime(t, f.location())
}

// Duration formats the elapsed time from start to end, with a missing end
// meaning "still running".
func (f *Formatter) Duration(start, end *time.Time) string {
	return Duration(start, end, f.now())
}

// DateTime formats t in loc.
func DateTime(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return NotAvailable
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateTimeLayout)
}

// Duration formats end-start as "1h 2m 3s", "2m 3s" or "3s". A nil end is
// replaced by now. Missing start or a negative span yields NotAvailable.
func Duration(start, end *time.Time, now time.Time) string {
	if start == nil || start.IsZero() {
		return NotAvailable
	}

	stop := now
	if end != nil && !end.IsZero() {
		stop = *end
	}

	elapsed := stop.Sub(*start)
	if elapsed < 0 {
		return NotAvailable
	}

	seconds := int64(elapsed / time.Second)
	minutes := seconds / 60
	hours := minutes / 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes%60, seconds%60)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// TailLines keeps the last maxLines lines of logs. maxLines <= 0 keeps everything.
// The second return value reports whether lines were dropped.
func TailLines(logs string, maxLines int) (string, bool) {
	if maxLines <= 0 || logs == "" {
		return logs, false
	}

	trimmed := strings.TrimRight(logs, "\n")
	lines := strings.Split(trimmed, "\n")
	if len(lines) <= maxLines {
		return logs, false
	}
	return strings.Join(lines[len(lines)-maxLines:], "\n"), true
}

// ExitCode renders an optional exit code.
func ExitCode(code *int) string {
	if code == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%d", *code)
}

// OrDefault returns s, or fallback when s is blank.
func OrDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
