// Package logging builds the slog loggers used across the daemon and CLI.
//
// Two output formats are supported: a human-oriented console handler and a
// machine-oriented JSON handler. Standardized field names (job id, queue,
// stage, correlation id) keep log lines greppable, and context-derived
// attributes propagate those fields automatically through stage execution.
package logging
