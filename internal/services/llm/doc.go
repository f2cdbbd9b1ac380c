// Package llm wraps the OpenRouter chat-completions API used by the content
// AI services. Requests are JSON-only, retried with exponential backoff, and
// honor Retry-After headers from the gateway.
package llm
