package logger

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger() (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})
	return NewLogrusAdapter(logrus.NewEntry(base)), &buf
}

func TestThrottledSuppressesWithinWindow(t *testing.T) {
	base, buf := newBufferedLogger()
	th := NewThrottled(base, time.Minute)

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	th.now = func() time.Time { return clock }

	assert.True(t, th.Warn("no-token", "No authentication token found", nil))
	assert.False(t, th.Warn("no-token", "No authentication token found", nil))
	assert.False(t, th.Warn("no-token", "No authentication token found", nil))

	// Different key is independent.
	assert.True(t, th.Warn("backend-down", "Backend unreachable", nil))

	clock = clock.Add(2 * time.Minute)
	assert.True(t, th.Warn("no-token", "No authentication token found", nil))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)

	var last map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[2], &last))
	assert.Equal(t, "no-token", last["throttle_key"])
	assert.EqualValues(t, 2, last["suppressed"])
}

func TestThrottledReset(t *testing.T) {
	base, _ := newBufferedLogger()
	th := NewThrottled(base, time.Hour)

	assert.True(t, th.Warn("k", "msg", nil))
	assert.False(t, th.Warn("k", "msg", nil))
	th.Reset("k")
	assert.True(t, th.Warn("k", "msg", map[string]interface{}{"extra": true}))
}
