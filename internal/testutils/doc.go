// Package testutils provides helpers shared by tests across packages:
// a memory-backed slog.Handler for asserting log output and card set
// fixtures.
package testutils
