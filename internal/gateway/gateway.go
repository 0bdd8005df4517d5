package gateway

import "context"

// Gateway is the relay's view of the messaging endpoint.
//
// Submit blocks until the endpoint answers. Failures are classified with
// domain.ErrGatewayRefused, domain.ErrGatewayUnreachable and
// domain.ErrGatewayProtocol.
type Gateway interface {
	// Start establishes the connection to the messaging endpoint.
	Start(ctx context.Context) error

	// Submit sends one command and returns the endpoint's reply.
	Submit(ctx context.Context, command string) (string, error)

	// Notifications delivers asynchronous payloads in arrival order.
	// The channel is closed after Close.
	Notifications() <-chan string

	// Close releases the connection.
	Close() error
}

// Reconnector is implemented by gateways that can re-establish a broken
// connection without being recreated.
type Reconnector interface {
	Reconnect(ctx context.Context) error
}
