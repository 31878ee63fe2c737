package logger

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Throttled suppresses repeats of the same message key inside a window. The
// poll loop hits the same conditions every cycle (no auth token, backend
// down) and one line per window is enough.
type Throttled struct {
	base   Logger
	window time.Duration
	now    func() time.Time

	mu         sync.Mutex
	lastLogged map[string]time.Time
	suppressed map[string]int
}

// NewThrottled wraps base so each key logs at most once per window.
func NewThrottled(base Logger, window time.Duration) *Throttled {
	return &Throttled{
		base:       base,
		window:     window,
		now:        time.Now,
		lastLogged: make(map[string]time.Time),
		suppressed: make(map[string]int),
	}
}

// Log emits msg at level unless key was logged within the window. The number
// of suppressed repeats is attached when the key logs again.
func (t *Throttled) Log(level logrus.Level, key, msg string, fields map[string]interface{}) bool {
	t.mu.Lock()
	now := t.now()
	last, seen := t.lastLogged[key]
	if seen && now.Sub(last) < t.window {
		t.suppressed[key]++
		t.mu.Unlock()
		return false
	}
	dropped := t.suppressed[key]
	t.lastLogged[key] = now
	t.suppressed[key] = 0
	t.mu.Unlock()

	if fields == nil {
		fields = make(map[string]interface{}, 2)
	}
	fields["throttle_key"] = key
	if dropped > 0 {
		fields["suppressed"] = dropped
	}
	t.base.WithFields(fields).Log(level, msg)
	return true
}

// Warn is Log at warn level.
func (t *Throttled) Warn(key, msg string, fields map[string]interface{}) bool {
	return t.Log(logrus.WarnLevel, key, msg, fields)
}

// Reset forgets key so its next occurrence logs immediately. Callers use it
// when the condition clears.
func (t *Throttled) Reset(key string) {
	t.mu.Lock()
	delete(t.lastLogged, key)
	delete(t.suppressed, key)
	t.mu.Unlock()
}
