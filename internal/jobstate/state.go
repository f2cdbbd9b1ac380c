package jobstate

import (
	"fmt"
	"math"
	"time"
)

// Status identifies the lifecycle state of a processing job.
type Status string

const (
	StatusIdle              Status = "idle"
	StatusPending           Status = "pending"
	StatusQueued            Status = "queued"
	StatusProcessing        Status = "processing"
	StatusCompleted         Status = "completed"
	StatusFailed            Status = "failed"
	StatusRetrying          Status = "retrying"
	StatusPermanentlyFailed Status = "permanently_failed"
	StatusCancelled         Status = "cancelled"
)

// Event triggers a state transition.
type Event string

const (
	EventStart                 Event = "start"
	EventProgress              Event = "progress"
	EventComplete              Event = "complete"
	EventFail                  Event = "fail"
	EventRetry                 Event = "retry"
	EventMarkPermanentlyFailed Event = "mark_permanently_failed"
	EventCancel                Event = "cancel"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusPermanentlyFailed, StatusCancelled:
		return true
	}
	return false
}

// Valid reports whether the status is one of the canonical states.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusPending, StatusQueued, StatusProcessing,
		StatusCompleted, StatusFailed, StatusRetrying,
		StatusPermanentlyFailed, StatusCancelled:
		return true
	}
	return false
}

var transitions = map[Status]map[Event]Status{
	StatusIdle: {
		EventStart: StatusPending,
	},
	StatusPending: {
		EventStart:  StatusQueued,
		EventCancel: StatusCancelled,
	},
	StatusQueued: {
		EventStart:  StatusProcessing,
		EventCancel: StatusCancelled,
	},
	StatusProcessing: {
		EventProgress: StatusProcessing,
		EventComplete: StatusCompleted,
		EventFail:     StatusFailed,
		EventCancel:   StatusCancelled,
	},
	StatusFailed: {
		EventRetry:                 StatusRetrying,
		EventMarkPermanentlyFailed: StatusPermanentlyFailed,
	},
	StatusRetrying: {
		EventStart:                 StatusProcessing,
		EventMarkPermanentlyFailed: StatusPermanentlyFailed,
		EventCancel:                StatusCancelled,
	},
}

// TransitionError reports a rejected state transition.
type TransitionError struct {
	From  Status
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("jobstate: event %q not permitted from status %q", e.Event, e.From)
}

// Next returns the status reached by applying event to current. It returns a
// *TransitionError when the transition is not legal.
func Next(current Status, event Event) (Status, error) {
	if legal, ok := transitions[current]; ok {
		if next, ok := legal[event]; ok {
			return next, nil
		}
	}
	return current, &TransitionError{From: current, Event: event}
}

// Backoff computes the retry delay for the given attempt number using
// exponential doubling capped at max. Attempt numbers start at 1.
func Backoff(attemptNumber int, base, max time.Duration) time.Duration {
	if attemptNumber < 1 {
		attemptNumber = 1
	}
	if base <= 0 {
		return 0
	}
	exp := attemptNumber - 1
	if exp > 62 || float64(base)*math.Pow(2, float64(exp)) > float64(max) {
		return max
	}
	delay := base << uint(exp)
	if delay > max {
		return max
	}
	return delay
}
