package jobstate

import (
	"fmt"
	"sync"
)

// Tracker holds the mutable processing view of one job: status, attempt
// bookkeeping, progress percentage, and the most recent error message. It is
// safe for concurrent use.
type Tracker struct {
	mu           sync.Mutex
	status       Status
	attemptsMade int
	maxAttempts  int
	progress     int
	lastError    string
}

// NewTracker returns a tracker in the idle state with the given attempt budget.
func NewTracker(maxAttempts int) *Tracker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Tracker{status: StatusIdle, maxAttempts: maxAttempts}
}

// Apply transitions the tracker. EventStart from retrying counts a new
// attempt; attempts never exceed the configured budget.
func (t *Tracker) Apply(event Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	next, err := Next(t.status, event)
	if err != nil {
		return err
	}
	if event == EventStart && next == StatusProcessing {
		if t.attemptsMade >= t.maxAttempts {
			return fmt.Errorf("jobstate: attempt budget exhausted (%d/%d)", t.attemptsMade, t.maxAttempts)
		}
		t.attemptsMade++
	}
	if event == EventComplete {
		t.progress = 100
	}
	t.status = next
	return nil
}

// Fail records the error message and moves to failed.
func (t *Tracker) Fail(message string) error {
	if err := t.Apply(EventFail); err != nil {
		return err
	}
	t.mu.Lock()
	t.lastError = message
	t.mu.Unlock()
	return nil
}

// SetProgress updates the percentage. Only legal while processing; values are
// clamped to 0..100 and never move backwards.
func (t *Tracker) SetProgress(pct int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusProcessing {
		return &TransitionError{From: t.status, Event: EventProgress}
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	if pct > t.progress {
		t.progress = pct
	}
	return nil
}

// Snapshot returns the current view of the tracker.
func (t *Tracker) Snapshot() (status Status, attemptsMade, maxAttempts, progress int, lastError string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.attemptsMade, t.maxAttempts, t.progress, t.lastError
}

// Exhausted reports whether the attempt budget is used up.
func (t *Tracker) Exhausted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attemptsMade >= t.maxAttempts
}
