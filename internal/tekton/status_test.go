package tekton

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusAppearance(t *testing.T) {
	tests := []struct {
		status Status
		color  string
		icon   string
	}{
		{StatusSucceeded, "#22c55e", "✅"},
		{StatusFailed, "#ef4444", "❌"},
		{StatusRunning, "#3b82f6", "🔄"},
		{StatusPending, "#f59e0b", "⏳"},
		{StatusStarted, "#3b82f6", "🚀"},
		{StatusCancelled, "#6b7280", "🚫"},
		{StatusCancelling, "#f59e0b", "⏹️"},
		{StatusNonPermanentError, "#f97316", "⚠️"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.True(t, tt.status.Known())
			assert.Equal(t, tt.color, tt.status.Color())
			assert.Equal(t, tt.icon, tt.status.Icon())
		})
	}
}

func TestUnknownStatusFallsBack(t *testing.T) {
	var run TaskRun
	require.NoError(t, json.Unmarshal([]byte(`{"name":"r1","taskName":"build","status":"TIMED_OUT"}`), &run))

	assert.Equal(t, Status("TIMED_OUT"), run.Status)
	assert.False(t, run.Status.Known())
	assert.Equal(t, FallbackColor, run.Status.Color())
	assert.Equal(t, FallbackIcon, run.Status.Icon())

	assert.Equal(t, FallbackColor, Status("").Color())
	assert.Equal(t, "UNKNOWN", Status("").String())
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusSucceeded.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.False(t, StatusNonPermanentError.Terminal())
}
