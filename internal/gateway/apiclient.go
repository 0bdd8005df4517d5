package gateway

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/imrelay/internal/core/domain"
	"github.com/yndnr/imrelay/internal/telemetry/logger"
)

// Config holds APIClient configuration.
type Config struct {
	// ClientName is announced with NAME during attach (default: imrelay).
	ClientName string

	// Protocol is the API protocol version requested (default: 8).
	Protocol int

	// CommandTimeout bounds attach steps and every Submit (default: 30s).
	CommandTimeout time.Duration

	// MaxLineBytes bounds one line read from the endpoint (default: 1 MiB).
	MaxLineBytes int
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		ClientName:     "imrelay",
		Protocol:       8,
		CommandTimeout: 30 * time.Second,
		MaxLineBytes:   1 << 20,
	}
}

// APIClient is a Gateway speaking the messaging client's text API.
//
// Submit may be called from several goroutines; replies are matched by id.
// Notifications are queued without bound so that a slow consumer never
// stalls reply processing.
type APIClient struct {
	dialer Dialer
	cfg    Config
	logger logger.Logger

	nextID atomic.Uint64

	mu       sync.Mutex
	link     *link
	closed   bool
	protocol int

	incoming      chan string
	notifications chan string
	closing       chan struct{}
	pumpOnce      sync.Once
	closeOnce     sync.Once
}

// Compile-time interface checks.
var (
	_ Gateway     = (*APIClient)(nil)
	_ Reconnector = (*APIClient)(nil)
)

// NewAPIClient creates an APIClient. Nothing is dialled until Start.
func NewAPIClient(dialer Dialer, cfg *Config, log logger.Logger) *APIClient {
	def := DefaultConfig()
	if cfg == nil {
		cfg = def
	}
	c := *cfg
	if c.ClientName == "" {
		c.ClientName = def.ClientName
	}
	if c.Protocol <= 0 {
		c.Protocol = def.Protocol
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = def.CommandTimeout
	}
	if c.MaxLineBytes <= 0 {
		c.MaxLineBytes = def.MaxLineBytes
	}
	if log == nil {
		log = logger.Default()
	}

	return &APIClient{
		dialer:        dialer,
		cfg:           c,
		logger:        log.With("component", "gateway"),
		incoming:      make(chan string),
		notifications: make(chan string, 64),
		closing:       make(chan struct{}),
	}
}

// Start dials the endpoint and performs the NAME/PROTOCOL attach.
func (c *APIClient) Start(ctx context.Context) error {
	c.pumpOnce.Do(func() { go c.pump() })

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrGatewayUnreachable.WithDetails("client closed")
	}
	if c.link != nil {
		return nil
	}
	return c.connectLocked(ctx)
}

// Reconnect drops the current connection and attaches again.
func (c *APIClient) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrGatewayUnreachable.WithDetails("client closed")
	}
	if c.link != nil {
		c.link.close()
		c.link = nil
	}
	c.logger.Info("reconnecting to messaging endpoint")
	return c.connectLocked(ctx)
}

// Protocol returns the protocol version the endpoint agreed to.
func (c *APIClient) Protocol() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.protocol
}

// connectLocked dials and attaches. c.mu must be held.
func (c *APIClient) connectLocked(ctx context.Context) error {
	conn, err := c.dialer.Dial(ctx)
	if err != nil {
		return domain.ErrGatewayUnreachable.WithCause(err)
	}

	l := newLink(conn, c.cfg.MaxLineBytes)
	protocol, err := c.attach(ctx, l)
	if err != nil {
		l.close()
		return err
	}

	c.link = l
	c.protocol = protocol
	go c.readLoop(l)

	c.logger.Info("attached to messaging endpoint",
		"client_name", c.cfg.ClientName,
		"protocol", protocol)
	return nil
}

// attach runs the handshake under CommandTimeout and ctx. The stream may
// not support deadlines, so it is closed to unblock a stuck read.
func (c *APIClient) attach(ctx context.Context, l *link) (int, error) {
	type result struct {
		protocol int
		err      error
	}
	done := make(chan result, 1)
	go func() {
		p, err := c.attachHandshake(l)
		done <- result{p, err}
	}()

	timer := time.NewTimer(c.cfg.CommandTimeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.protocol, r.err
	case <-timer.C:
		l.close()
		<-done
		return 0, domain.ErrGatewayUnreachable.WithDetails("attach timed out")
	case <-ctx.Done():
		l.close()
		<-done
		return 0, domain.ErrGatewayUnreachable.WithCause(ctx.Err())
	}
}

func (c *APIClient) attachHandshake(l *link) (int, error) {
	if err := l.writeLine("NAME " + c.cfg.ClientName); err != nil {
		return 0, domain.ErrGatewayUnreachable.WithCause(err)
	}
	reply, err := l.readLine()
	if err != nil {
		return 0, domain.ErrGatewayUnreachable.WithCause(err)
	}
	switch {
	case reply == "OK":
	case isErrorReply(reply):
		return 0, domain.ErrGatewayRefused.WithDetails(reply)
	default:
		return 0, domain.ErrGatewayProtocol.WithDetails(fmt.Sprintf("unexpected reply to NAME: %q", reply))
	}

	if err := l.writeLine("PROTOCOL " + strconv.Itoa(c.cfg.Protocol)); err != nil {
		return 0, domain.ErrGatewayUnreachable.WithCause(err)
	}
	reply, err = l.readLine()
	if err != nil {
		return 0, domain.ErrGatewayUnreachable.WithCause(err)
	}
	if isErrorReply(reply) {
		return 0, domain.ErrGatewayRefused.WithDetails(reply)
	}
	rest, ok := strings.CutPrefix(reply, "PROTOCOL ")
	if !ok {
		return 0, domain.ErrGatewayProtocol.WithDetails(fmt.Sprintf("unexpected reply to PROTOCOL: %q", reply))
	}
	protocol, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, domain.ErrGatewayProtocol.WithDetails(fmt.Sprintf("bad protocol version %q", rest))
	}
	return protocol, nil
}

// Submit sends command as "#<id> <command>" and waits for the matching reply.
// The reply may span several lines.
func (c *APIClient) Submit(ctx context.Context, command string) (string, error) {
	c.mu.Lock()
	l := c.link
	c.mu.Unlock()
	if l == nil {
		return "", domain.ErrGatewayUnreachable.WithDetails("not connected")
	}

	id := c.nextID.Add(1)
	replyCh := l.register(id)
	defer l.unregister(id)

	if err := l.writeLine("#" + strconv.FormatUint(id, 10) + " " + escapeLine(command)); err != nil {
		return "", domain.ErrGatewayUnreachable.WithCause(err)
	}

	timer := time.NewTimer(c.cfg.CommandTimeout)
	defer timer.Stop()

	select {
	case reply := <-replyCh:
		if isErrorReply(reply) {
			return "", domain.ErrGatewayRefused.WithDetails(reply)
		}
		return reply, nil
	case <-l.done:
		return "", domain.ErrGatewayUnreachable.WithCause(l.err())
	case <-timer.C:
		return "", domain.ErrGatewayUnreachable.WithDetails(fmt.Sprintf("no reply to #%d within %s", id, c.cfg.CommandTimeout))
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Notifications returns the notification channel.
func (c *APIClient) Notifications() <-chan string {
	return c.notifications
}

// Close disconnects and stops notification delivery.
func (c *APIClient) Close() error {
	c.mu.Lock()
	c.closed = true
	l := c.link
	c.link = nil
	c.mu.Unlock()

	var err error
	if l != nil {
		err = l.close()
	}

	c.closeOnce.Do(func() {
		close(c.closing)
		// Close never started the pump; close the channel here instead.
		c.pumpOnce.Do(func() { close(c.notifications) })
	})
	return err
}

// readLoop dispatches replies and notifications until the stream fails.
// Each wire line carries one whole payload, decoded before dispatch.
func (c *APIClient) readLoop(l *link) {
	defer close(l.done)

	for {
		wire, err := l.readLine()
		if err != nil {
			l.setErr(err)
			c.mu.Lock()
			current := c.link == l
			c.mu.Unlock()
			if current {
				c.logger.Warn("messaging endpoint stream ended", "error", err)
			}
			return
		}

		if wire == "" {
			continue
		}

		id, reply, isReply := parseReply(wire)
		if !isReply {
			select {
			case c.incoming <- unescapeLine(wire):
			case <-c.closing:
				return
			}
			continue
		}

		if !l.resolve(id, unescapeLine(reply)) {
			c.logger.Warn("dropping reply for unknown command",
				"error", domain.ErrGatewayProtocol.WithDetails("no pending command #"+strconv.FormatUint(id, 10)),
				"line", wire)
		}
	}
}

// pump moves notifications from the reader to the consumer through an
// unbounded queue.
func (c *APIClient) pump() {
	defer close(c.notifications)

	var queue []string
	for {
		var out chan<- string
		var next string
		if len(queue) > 0 {
			out = c.notifications
			next = queue[0]
		}

		select {
		case n := <-c.incoming:
			queue = append(queue, n)
		case out <- next:
			queue[0] = ""
			queue = queue[1:]
		case <-c.closing:
			return
		}
	}
}

// parseReply splits "#<id> <reply>". ok is false for notifications.
func parseReply(line string) (id uint64, reply string, ok bool) {
	if !strings.HasPrefix(line, "#") {
		return 0, "", false
	}
	head, rest, _ := strings.Cut(line[1:], " ")
	id, err := strconv.ParseUint(head, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return id, rest, true
}

func isErrorReply(reply string) bool {
	return reply == "ERROR" || strings.HasPrefix(reply, "ERROR ")
}

// ============================================================================
// link - one attached connection
// ============================================================================

// link is one dialled connection. A reconnect replaces the whole link so
// waiters on the old one fail fast.
type link struct {
	conn io.ReadWriteCloser
	br   *bufio.Reader
	max  int

	writeMu sync.Mutex
	bw      *bufio.Writer

	mu      sync.Mutex
	pending map[uint64]chan string
	readErr error

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newLink(conn io.ReadWriteCloser, maxLine int) *link {
	return &link{
		conn:    conn,
		br:      bufio.NewReader(conn),
		bw:      bufio.NewWriter(conn),
		max:     maxLine,
		pending: make(map[uint64]chan string),
		done:    make(chan struct{}),
	}
}

func (l *link) writeLine(line string) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if _, err := l.bw.WriteString(line); err != nil {
		return err
	}
	if err := l.bw.WriteByte('\n'); err != nil {
		return err
	}
	return l.bw.Flush()
}

// readLine returns the next line without its terminator.
func (l *link) readLine() (string, error) {
	var buf []byte
	for {
		chunk, isPrefix, err := l.br.ReadLine()
		if err != nil {
			return "", err
		}
		buf = append(buf, chunk...)
		if len(buf) > l.max {
			return "", domain.ErrGatewayProtocol.WithDetails("line exceeds " + strconv.Itoa(l.max) + " bytes")
		}
		if !isPrefix {
			return strings.TrimRight(string(buf), "\r"), nil
		}
	}
}

func (l *link) register(id uint64) <-chan string {
	ch := make(chan string, 1)
	l.mu.Lock()
	l.pending[id] = ch
	l.mu.Unlock()
	return ch
}

func (l *link) unregister(id uint64) {
	l.mu.Lock()
	delete(l.pending, id)
	l.mu.Unlock()
}

// resolve hands reply to the waiter for id. It reports false when no
// command with that id is pending.
func (l *link) resolve(id uint64, reply string) bool {
	l.mu.Lock()
	ch, ok := l.pending[id]
	delete(l.pending, id)
	l.mu.Unlock()

	if ok {
		ch <- reply
	}
	return ok
}

func (l *link) setErr(err error) {
	l.mu.Lock()
	l.readErr = err
	l.mu.Unlock()
}

func (l *link) err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readErr == nil {
		return io.ErrUnexpectedEOF
	}
	return l.readErr
}

func (l *link) close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.conn.Close()
		if errors.Is(l.closeErr, io.ErrClosedPipe) {
			l.closeErr = nil
		}
	})
	return l.closeErr
}
