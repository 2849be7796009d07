package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Detect Phase = iota
	Recommend
	Complete
	Batch
)

func (p Phase) String() string {
	switch p {
	case Detect:
		return "detect"
	case Recommend:
		return "recommend"
	case Complete:
		return "complete"
	case Batch:
		return "batch"
	default:
		return ""
	}
}

func detectUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Detect,
		Step:    step,
		Total:   total,
		Message: "Detecting emotion...",
	}
}

func recommendUpdate(step, total int, label string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Recommend,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Detected %s, fetching recommendations...", label),
		Data:    label,
	}
}

func completeUpdate(label string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%s: %d tracks", label, count),
	}
}

func batchQueuedUpdate(step, total int, source string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Batch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Submitting: %s...", step, total, source),
	}
}

func batchCompletedUpdate(step, total int, source, label string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Batch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s: %s (%d tracks)", step, total, source, label, count),
	}
}

func batchFailedUpdate(step, total int, source string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Batch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, source, err),
	}
}
