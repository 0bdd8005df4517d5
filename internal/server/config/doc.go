// Package config provides server configuration for imrelay.
//
// This package defines the server configuration structure and validation:
//
//   - schema.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Business validation (required keys, ports, durations)
//   - sanitize.go: Log sanitization (hide sensitive values)
//   - strip.go: Trailing comment removal for credential keys
//   - convert.go: Mapping onto relay, gateway and auth configs
//
// Configuration is loaded via internal/infra/confloader and supports
// multiple sources: files, environment variables, and flags.
package config
