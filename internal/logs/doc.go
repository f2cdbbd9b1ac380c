// Package logs reads the daemon's log file for the CLI: the last N lines for
// a quick look, or incremental reads from a saved offset for follow mode.
package logs
