// Package relayserver implements the TLS line relay.
//
// A client connects over TLS and authenticates with two lines:
//
//	USERNAME <name>
//	PASSWORD <secret>
//
// The relay answers PASSWORD OK or PASSWORD KO. After OK every line the
// client sends is submitted to the messaging endpoint as a command, and
// every notification from the endpoint is written back to the client,
// split into one line per original line.
//
// Only one client receives output at a time. A newer authenticated client
// replaces the previous one.
//
// Engine owns all relay state in a single goroutine. Accepting,
// handshaking and reading client lines happen on helper goroutines that
// only post events to it, so writes to the client and commands to the
// endpoint are never concurrent.
package relayserver
