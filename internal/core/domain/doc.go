// Package domain defines the core domain models for the relay.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling. This package contains:
//
//   - Credentials: the configured username and password digest
//   - Session: one client connection's identity and handshake progress
//   - WatchdogState: liveness bookkeeping for the messaging gateway
//   - Errors: classified error definitions, including gateway error kinds
package domain
