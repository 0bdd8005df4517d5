package connection

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// ErrLoginRejected is returned when the relay answers PASSWORD KO.
var ErrLoginRejected = errors.New("relay rejected the credentials")

// RelayClient is a line client for the relay protocol.
type RelayClient struct {
	conn   net.Conn
	reader *bufio.Reader
}

// DialRelay opens a TLS connection to the relay at addr.
func DialRelay(ctx context.Context, addr string, tlsConfig *tls.Config) (*RelayClient, error) {
	d := tls.Dialer{Config: tlsConfig}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewRelayClient(conn), nil
}

// NewRelayClient wraps an established connection.
func NewRelayClient(conn net.Conn) *RelayClient {
	return &RelayClient{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

// Login sends the USERNAME and PASSWORD lines and waits for the verdict.
func (c *RelayClient) Login(ctx context.Context, username, password string) error {
	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetDeadline(deadline); err != nil {
			return err
		}
		defer c.conn.SetDeadline(time.Time{})
	}

	if err := c.WriteLine("USERNAME " + username); err != nil {
		return fmt.Errorf("send username: %w", err)
	}
	if err := c.WriteLine("PASSWORD " + password); err != nil {
		return fmt.Errorf("send password: %w", err)
	}

	reply, err := c.ReadLine()
	switch {
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w: connection closed", ErrLoginRejected)
	case err != nil:
		return fmt.Errorf("read login reply: %w", err)
	}

	switch reply {
	case "PASSWORD OK":
		return nil
	case "PASSWORD KO":
		return ErrLoginRejected
	default:
		return fmt.Errorf("unexpected login reply %q", reply)
	}
}

// ReadLine returns the next line without its terminator.
func (c *RelayClient) ReadLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		if line != "" && errors.Is(err, io.EOF) {
			return strings.TrimRight(line, "\r"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// WriteLine writes line followed by a newline.
func (c *RelayClient) WriteLine(line string) error {
	_, err := io.WriteString(c.conn, line+"\n")
	return err
}

// Close closes the connection.
func (c *RelayClient) Close() error {
	return c.conn.Close()
}
