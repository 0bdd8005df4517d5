package relayserver

import (
	"crypto/tls"
	"errors"
	"net"
	"strconv"
)

// NewTLSConfig returns the server TLS configuration. Certificates are
// fetched per handshake so a reloaded key pair applies to new clients.
func NewTLSConfig(getCertificate func(*tls.ClientHelloInfo) (*tls.Certificate, error)) *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: getCertificate,
	}
}

// Listen binds the TLS listener on host:port.
func Listen(host string, port int, tlsConfig *tls.Config) (net.Listener, error) {
	if tlsConfig == nil {
		return nil, errors.New("relay listener requires a TLS configuration")
	}
	return tls.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)), tlsConfig)
}
