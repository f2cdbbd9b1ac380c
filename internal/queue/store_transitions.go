package queue

import (
	"fmt"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/jobstate"
)

// lifecycleState maps a persisted queue status onto the shared job lifecycle
// vocabulary. A delayed row that has burned an attempt is retrying; a fresh
// delayed row is still queued.
func lifecycleState(status Status, attemptsMade int) jobstate.Status {
	switch status {
	case StatusWaiting:
		return jobstate.StatusQueued
	case StatusDelayed:
		if attemptsMade > 0 {
			return jobstate.StatusRetrying
		}
		return jobstate.StatusQueued
	case StatusActive:
		return jobstate.StatusProcessing
	case StatusCompleted:
		return jobstate.StatusCompleted
	case StatusFailed:
		return jobstate.StatusPermanentlyFailed
	}
	return jobstate.StatusIdle
}

// checkTransition validates a store operation against the job lifecycle
// machine before any SQL runs, so an illegal call reports the transition
// that was refused instead of a bare no-rows-updated error.
func checkTransition(job *Job, event jobstate.Event) error {
	if _, err := jobstate.Next(lifecycleState(job.Status, job.AttemptsMade), event); err != nil {
		return fmt.Errorf("job %d: %w", job.ID, err)
	}
	return nil
}
