// Package connection provides the clients used by imrelay-cli.
//
//   - relay.go: TLS line client that performs the USERNAME/PASSWORD login
//   - socket.go: admin socket client (status, drop)
//   - http.go: HTTP client for the health endpoint
package connection
