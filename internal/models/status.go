// internal/models/status.go
package models

import "fmt"

// EstimateStatus is the lifecycle state of a QuoteEstimate.
type EstimateStatus string

const (
	StatusQueued     EstimateStatus = "queued"
	StatusProcessing EstimateStatus = "processing"
	StatusCompleted  EstimateStatus = "completed"
	StatusFailed     EstimateStatus = "failed"
)

// StatusEvent is an outcome that drives an estimate status transition.
type StatusEvent string

const (
	EventStart    StatusEvent = "start"
	EventComplete StatusEvent = "complete"
	EventFail     StatusEvent = "fail"
)

// NextStatus computes the estimate status transition for an event. The main
// path is queued -> processing -> (completed | failed). EventStart also
// re-enters processing from completed and failed: a re-run of a finished
// estimate starts over, and the hosting queue's retries recover failed ones.
// Only a run already in flight cannot be started again.
func NextStatus(current EstimateStatus, event StatusEvent) (EstimateStatus, error) {
	switch event {
	case EventStart:
		if current != StatusProcessing {
			return StatusProcessing, nil
		}
	case EventComplete:
		if current == StatusProcessing {
			return StatusCompleted, nil
		}
	case EventFail:
		if current == StatusProcessing {
			return StatusFailed, nil
		}
	}
	return current, fmt.Errorf("invalid status transition: %s + %s", current, event)
}

// IsTerminal reports whether the estimate has finished a run. A terminal
// estimate can still be restarted with EventStart.
func (s EstimateStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
