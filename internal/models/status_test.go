package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextStatus_ValidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		current EstimateStatus
		event   StatusEvent
		want    EstimateStatus
	}{
		{"queued starts processing", StatusQueued, EventStart, StatusProcessing},
		{"processing completes", StatusProcessing, EventComplete, StatusCompleted},
		{"processing fails", StatusProcessing, EventFail, StatusFailed},
		{"completed re-runs", StatusCompleted, EventStart, StatusProcessing},
		{"failed retries", StatusFailed, EventStart, StatusProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextStatus(tt.current, tt.event)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextStatus_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		current EstimateStatus
		event   StatusEvent
	}{
		{"completed cannot fail", StatusCompleted, EventFail},
		{"failed cannot complete", StatusFailed, EventComplete},
		{"queued cannot complete", StatusQueued, EventComplete},
		{"queued cannot fail", StatusQueued, EventFail},
		{"processing cannot restart", StatusProcessing, EventStart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextStatus(tt.current, tt.event)
			assert.Error(t, err)
			assert.Equal(t, tt.current, got, "status must not change on invalid transition")
		})
	}
}

func TestEstimateStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusQueued.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}
