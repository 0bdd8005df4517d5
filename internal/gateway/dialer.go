package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os/exec"
	"strings"
	"sync"
)

// Supported dialer networks.
const (
	NetworkExec = "exec"
	NetworkTCP  = "tcp"
	NetworkUnix = "unix"
)

// Dialer opens a byte stream to the messaging endpoint.
type Dialer interface {
	Dial(ctx context.Context) (io.ReadWriteCloser, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (io.ReadWriteCloser, error)

// Dial calls f(ctx).
func (f DialerFunc) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	return f(ctx)
}

// NewDialer returns a Dialer for the given network.
//
// For "exec" the address is a command line split on whitespace; the
// command's stdin and stdout become the stream. For "tcp" and "unix" the
// address is passed to net.Dialer.
func NewDialer(network, address string) (Dialer, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, errors.New("gateway address is required")
	}

	switch network {
	case NetworkExec:
		argv := strings.Fields(address)
		return &execDialer{argv: argv}, nil
	case NetworkTCP, NetworkUnix:
		return &netDialer{network: network, address: address}, nil
	default:
		return nil, fmt.Errorf("unsupported gateway network %q", network)
	}
}

// netDialer dials TCP or Unix sockets.
type netDialer struct {
	network string
	address string
}

func (d *netDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	var nd net.Dialer
	return nd.DialContext(ctx, d.network, d.address)
}

// execDialer spawns a helper process speaking the API on stdio.
type execDialer struct {
	argv []string
}

func (d *execDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	// The process must outlive the dial context, so ctx only bounds startup.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(d.argv[0], d.argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", d.argv[0], err)
	}

	return &processConn{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

// processConn is the stdio of a spawned process.
type processConn struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	closeOnce sync.Once
	closeErr  error
}

func (p *processConn) Read(b []byte) (int, error) {
	return p.stdout.Read(b)
}

func (p *processConn) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

// Close closes stdin, kills the process and reaps it.
func (p *processConn) Close() error {
	p.closeOnce.Do(func() {
		_ = p.stdin.Close()
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		err := p.cmd.Wait()
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			p.closeErr = err
		}
	})
	return p.closeErr
}
