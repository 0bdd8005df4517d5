// Package main provides the entry point for imrelay-cli.
//
// The CLI talks to a running relay in three ways:
//
//   - connect: TLS client that logs in and exchanges lines interactively
//   - status, drop: the admin Unix socket
//   - health: the HTTP /healthz endpoint
//
// It also prints password digests for the relay configuration (hash)
// and validates server configuration files (config check).
//
// Usage:
//
//	imrelay-cli connect --user alice relay.example.com:2727
//	imrelay-cli -S /run/imrelay/admin.sock status -o json
//	imrelay-cli hash
package main
