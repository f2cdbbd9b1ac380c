// Package config loads, normalizes, and validates the TOML configuration
// shared by the vox CLI and the voxd daemon.
package config
