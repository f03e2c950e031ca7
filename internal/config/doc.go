// Package config handles configuration loading, parsing, and validation
// from various sources (environment variables, files, flag overrides). It
// provides type-safe access to the storage, review and logging settings
// while keeping configuration details separate from the review logic.
package config
