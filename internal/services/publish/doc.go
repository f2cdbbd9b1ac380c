// Package publish delivers approved content to external platforms. Each
// supported platform gets a thin JSON HTTP client; errors are mapped onto the
// services taxonomy so the queue can distinguish retryable failures,
// configuration problems, and platform rate limits.
package publish
