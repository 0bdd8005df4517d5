// Package service provides domain services for the relay.
//
// This package contains:
//
//   - AuthService: handshake credential checks and per-address rate limiting
//
// Services are thread-safe. Credentials may be swapped at runtime when the
// configuration file is reloaded.
package service
