// Package main provides the entry point for imrelay-server.
//
// The server accepts one TLS client at a time, authenticates it with a
// USERNAME/PASSWORD exchange, and relays its lines to the messaging
// client's text API. Notifications from the messaging client go back to
// the most recently authenticated client.
//
// Optional listeners:
//
//   - metrics.addr: Prometheus /metrics and /healthz
//   - admin.socket: Unix socket answering status and drop
//
// Usage:
//
//	imrelay-server [-c FILE] [-d] [-H HOST] [-p PORT] [-n]
//
// Without -n the server detaches from the terminal after validating its
// configuration.
package main
