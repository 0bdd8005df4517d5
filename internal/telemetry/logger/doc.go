// Package logger provides structured logging for the relay.
//
//   - logger.go: slog handler configuration and the process-wide level
//   - context.go: context-aware logging with session ID and peer address
//   - redact.go: masking of passwords and password digests
//
// Features:
//
//   - JSON and text output formats
//   - Log level filtering, adjustable at runtime
//   - Automatic sensitive data masking
package logger
