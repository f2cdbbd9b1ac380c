// Package ratelimit provides publish admission control: fixed-window
// per-platform counters consulted when publish jobs are claimed, and the
// global cross-queue claim ceiling protecting downstream services.
package ratelimit
