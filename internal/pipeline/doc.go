// Package pipeline coordinates the content-processing queues. The manager
// owns one worker pool per queue, claims jobs under a global rate ceiling,
// runs the registered stage handlers with lease renewal, and exposes the
// operational surface the daemon and CLI use: progress folding, pause and
// resume, retries, cancellation, stats, and health.
package pipeline
