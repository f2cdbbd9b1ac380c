// Package daemon coordinates the background services behind voxd: the
// pipeline manager's worker pools and the scheduled-post processor. It
// enforces single-instance execution with a file lock and exposes the status
// surface the IPC server serves to the CLI.
package daemon
