// Package services defines the error taxonomy and context annotations shared
// by every stage processor and external client.
//
// Errors are tagged with sentinel markers (validation, configuration,
// not-found, transient, rate-limited) so the pipeline manager can branch on
// "retry vs. terminal vs. back off" explicitly instead of inspecting error
// strings. Rate limiting is a first-class variant carrying the retry-after
// hint reported by the platform.
package services
