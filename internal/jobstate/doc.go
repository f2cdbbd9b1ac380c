// Package jobstate defines the shared processing-job state machine used by
// every pipeline stage to report progress and failure uniformly. Illegal
// transitions are rejected rather than coerced so callers surface bugs
// instead of masking them.
package jobstate
