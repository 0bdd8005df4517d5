package connection

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/yndnr/imrelay/internal/core/domain"
	"github.com/yndnr/imrelay/internal/server/localserver"
)

// SocketClient provides Unix socket communication for local management.
type SocketClient struct {
	path   string
	conn   net.Conn
	reader *bufio.Reader
}

// NewSocketClient creates a new socket client.
func NewSocketClient(socketPath string) *SocketClient {
	return &SocketClient{path: socketPath}
}

// Connect connects to the local socket.
func (c *SocketClient) Connect(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.path)
	if err != nil {
		return err
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// Close closes the socket connection.
func (c *SocketClient) Close() error {
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// Execute sends a command and returns the decoded reply.
func (c *SocketClient) Execute(ctx context.Context, cmd string) (*localserver.Response, error) {
	if c.conn == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	if _, err := c.conn.Write([]byte(cmd + "\n")); err != nil {
		return nil, err
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}

	var resp localserver.Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &resp, nil
}

// Call executes cmd and decodes its payload into target. A refused
// command is returned as a *domain.DomainError carrying the server's code.
func (c *SocketClient) Call(ctx context.Context, cmd string, target any) error {
	resp, err := c.Execute(ctx, cmd)
	if err != nil {
		return err
	}
	if !resp.OK {
		return domain.NewDomainError(resp.Code, resp.Error)
	}
	if target != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, target); err != nil {
			return fmt.Errorf("parse response data: %w", err)
		}
	}
	return nil
}
