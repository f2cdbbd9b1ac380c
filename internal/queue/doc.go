// Package queue implements the durable job store backing the content
// pipeline. Jobs are persisted in SQLite, claimed under a lease so exactly
// one worker holds a job at a time, and retried with exponential backoff
// until their attempt budget is exhausted.
package queue
