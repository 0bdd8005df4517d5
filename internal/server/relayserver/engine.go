package relayserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/imrelay/internal/core/domain"
	"github.com/yndnr/imrelay/internal/core/service"
	"github.com/yndnr/imrelay/internal/gateway"
	"github.com/yndnr/imrelay/internal/telemetry/logger"
	"github.com/yndnr/imrelay/internal/telemetry/metric"
	"github.com/yndnr/imrelay/pkg/reframe"
)

// clientSession is an authenticated client connection.
type clientSession struct {
	info   *domain.Session
	conn   *lineConn
	logger logger.Logger
}

// Events posted to the engine loop.
type (
	sessionOpened struct{ s *clientSession }
	inboundLine   struct {
		s    *clientSession
		line string
	}
	sessionClosed struct {
		s   *clientSession
		err error
	}
	statusRequest struct{ reply chan Status }
	dropRequest   struct{ reply chan string }
)

// Engine is the relay composition root. One goroutine (the loop) owns the
// active sink, the session table and the watchdog state.
type Engine struct {
	cfg     Config
	gw      gateway.Gateway
	auth    *service.AuthService
	metrics *metric.Registry
	logger  logger.Logger

	// Injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	events chan any
	wg     sync.WaitGroup

	startedAt time.Time
	watchdog  atomic.Pointer[domain.WatchdogState]

	// Loop-owned state.
	sessions map[string]*clientSession
	active   *clientSession
	wd       domain.WatchdogState
}

// NewEngine creates a relay engine.
func NewEngine(cfg *Config, gw gateway.Gateway, auth *service.AuthService, metrics *metric.Registry, log logger.Logger) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if metrics == nil {
		metrics = metric.Global()
	}
	if log == nil {
		log = logger.Default()
	}

	c := cfg.withDefaults()
	e := &Engine{
		cfg:      c,
		gw:       gw,
		auth:     auth,
		metrics:  metrics,
		logger:   log.With("component", "relay"),
		sleep:    sleepContext,
		now:      time.Now,
		events:   make(chan any),
		sessions: make(map[string]*clientSession),
		wd:       domain.NewWatchdogState(c.Cooldown),
	}
	e.publishWatchdog()
	return e
}

// Run accepts clients on ln and relays until ctx is cancelled or an
// unclassified error occurs. It returns nil on cancellation. ln is closed
// before Run returns.
func (e *Engine) Run(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.startedAt = e.now()
	e.logger.Info("relay listening", "address", ln.Addr().String())

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.acceptLoop(ctx, ln)
	}()

	err := e.loop(ctx)

	cancel()
	_ = ln.Close()
	for _, s := range e.sessions {
		_ = s.conn.Close()
	}
	e.wg.Wait()

	e.active = nil
	e.sessions = make(map[string]*clientSession)
	e.metrics.SetActiveSink(false)

	return err
}

// loop processes events one at a time.
func (e *Engine) loop(ctx context.Context) error {
	idle := time.NewTimer(e.cfg.WatchdogInterval)
	defer idle.Stop()

	notifications := e.gw.Notifications()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-e.events:
			if err := e.handleEvent(ctx, ev); err != nil {
				return err
			}

		case n, ok := <-notifications:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("messaging endpoint notification stream closed")
			}
			e.deliver(n)

		case <-idle.C:
			if err := e.watchdogTick(ctx); err != nil {
				return err
			}
		}

		if ctx.Err() != nil {
			return nil
		}
		idle.Reset(e.cfg.WatchdogInterval)
	}
}

func (e *Engine) handleEvent(ctx context.Context, ev any) error {
	switch ev := ev.(type) {
	case sessionOpened:
		e.openSession(ctx, ev.s)
	case inboundLine:
		return e.inbound(ctx, ev.s, ev.line)
	case sessionClosed:
		e.closeSession(ev.s, ev.err)
	case statusRequest:
		ev.reply <- e.status()
	case dropRequest:
		ev.reply <- e.dropActive()
	default:
		return fmt.Errorf("unknown relay event %T", ev)
	}
	return nil
}

// post hands an event to the loop unless ctx ends first.
func (e *Engine) post(ctx context.Context, ev any) bool {
	select {
	case e.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// ============================================================================
// Accepting
// ============================================================================

// acceptLoop accepts and authenticates clients one at a time.
func (e *Engine) acceptLoop(ctx context.Context, ln net.Listener) {
	var tempDelay time.Duration
	for {
		raw, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if tempDelay > time.Second {
				tempDelay = time.Second
			}
			e.logger.Warn("accept failed", "error", err, "retry_in", tempDelay)
			if sleepContext(ctx, tempDelay) != nil {
				return
			}
			continue
		}
		tempDelay = 0

		e.serveHandshake(ctx, raw)
	}
}

// serveHandshake authenticates one client and hands it to the loop.
func (e *Engine) serveHandshake(ctx context.Context, raw net.Conn) {
	conn := newLineConn(raw, e.cfg.MaxLineBytes, e.cfg.WriteTimeout)
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	hctx := logger.WithRemoteAddr(logger.WithLogger(ctx, e.logger), conn.RemoteAddr())
	log := logger.L(hctx)

	limited := false
	if err := e.auth.CheckRateLimit(conn.RemoteAddr()); err != nil {
		limited = true
	}

	info, err := handshake(ctx, conn, e.auth, limited, e.cfg.HandshakeTimeout)
	if err != nil {
		_ = conn.Close()
		reason := handshakeReason(err)
		e.metrics.RecordHandshakeFailure(reason)
		if reason == reasonClosed || reason == reasonTLS {
			log.Debug("client left during handshake", "reason", reason, "error", err)
		} else {
			log.Warn("client failed to authenticate", "reason", reason, "error", err)
		}
		return
	}

	s := &clientSession{
		info:   info,
		conn:   conn,
		logger: logger.L(logger.WithSessionID(hctx, info.ID)),
	}
	if !e.post(ctx, sessionOpened{s: s}) {
		_ = conn.Close()
	}
}

// ============================================================================
// Sessions
// ============================================================================

// openSession registers s as the active sink and starts reading from it.
func (e *Engine) openSession(ctx context.Context, s *clientSession) {
	if ctx.Err() != nil {
		_ = s.conn.Close()
		return
	}

	prev := e.active
	e.sessions[s.info.ID] = s
	e.active = s
	e.metrics.RecordSessionAccepted()
	e.metrics.SetActiveSink(true)
	s.logger.Info("client authenticated")

	if prev != nil {
		if e.cfg.CloseSuperseded {
			prev.logger.Info("closing superseded client")
			_ = prev.conn.Close()
		} else {
			prev.logger.Info("client superseded, output now goes to the new client")
		}
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.readLoop(ctx, s)
	}()
}

// readLoop posts every line read from s until its stream ends.
func (e *Engine) readLoop(ctx context.Context, s *clientSession) {
	for {
		line, err := s.conn.ReadLine()
		if err != nil {
			e.post(ctx, sessionClosed{s: s, err: err})
			return
		}
		if !e.post(ctx, inboundLine{s: s, line: line}) {
			return
		}
	}
}

// closeSession forgets s and clears the sink if s held it.
func (e *Engine) closeSession(s *clientSession, err error) {
	_ = s.conn.Close()
	if _, ok := e.sessions[s.info.ID]; !ok {
		return
	}
	delete(e.sessions, s.info.ID)
	s.info.MarkClosed()
	e.metrics.RecordSessionClosed()

	switch {
	case errors.Is(err, domain.ErrLineTooLong):
		s.logger.Warn("closing client: line too long", "max_line_bytes", e.cfg.MaxLineBytes)
	case err == nil || isEOF(err):
		s.logger.Info("client disconnected")
	default:
		s.logger.Info("client connection ended", "error", err)
	}

	if e.active == s {
		e.active = nil
		e.metrics.SetActiveSink(false)
	}
}

// dropActive closes the active client. It returns the dropped session ID.
func (e *Engine) dropActive() string {
	s := e.active
	if s == nil {
		return ""
	}
	s.logger.Info("dropping active client on request")
	e.closeSession(s, nil)
	return s.info.ID
}

// ============================================================================
// Relaying
// ============================================================================

// inbound submits one client line as a command and delivers the reply.
func (e *Engine) inbound(ctx context.Context, s *clientSession, line string) error {
	command := strings.TrimSpace(line)
	if command == "" {
		return nil
	}

	s.logger.Debug(">> " + logger.RedactLine(command))

	start := e.now()
	reply, err := e.gw.Submit(ctx, command)
	elapsed := e.now().Sub(start).Seconds()

	switch {
	case err == nil:
		e.metrics.RecordCommand("ok", elapsed)
		if reply != "" {
			e.deliver(reply)
		}
	case ctx.Err() != nil:
		return nil
	case errors.Is(err, domain.ErrGatewayRefused):
		e.metrics.RecordCommand("refused", elapsed)
		s.logger.Debug("command refused", "command", command, "error", err)
	case errors.Is(err, domain.ErrGatewayUnreachable), errors.Is(err, domain.ErrGatewayProtocol):
		e.metrics.RecordCommand(domain.GatewayErrorKind(err), elapsed)
		s.logger.Warn("command failed", "command", command, "error", err)
	default:
		return fmt.Errorf("submit command: %w", err)
	}
	return nil
}

// deliver writes a notification to the active sink, one line per
// original line. All lines are written before the loop handles anything
// else, so notifications never interleave.
func (e *Engine) deliver(notification string) {
	if notification == e.cfg.KeepaliveReply {
		return
	}

	s := e.active
	if s == nil {
		return
	}

	for _, line := range reframe.Lines(notification) {
		if err := s.conn.WriteLine(line); err != nil {
			e.metrics.RecordDelivery(false)
			s.logger.Warn("failed to deliver to client", "error", err)
			return
		}
		e.metrics.RecordDelivery(true)
		s.logger.Debug("<< " + line)
	}
}

// ============================================================================
// Status
// ============================================================================

// SessionInfo describes one authenticated client.
type SessionInfo struct {
	ID              string    `json:"id" yaml:"id"`
	RemoteAddr      string    `json:"remote_addr" yaml:"remote_addr"`
	AuthenticatedAt time.Time `json:"authenticated_at" yaml:"authenticated_at"`
	Active          bool      `json:"active" yaml:"active"`
}

// WatchdogInfo describes the gateway liveness state.
type WatchdogInfo struct {
	Healthy             bool          `json:"healthy" yaml:"healthy"`
	LastPingAt          time.Time     `json:"last_ping_at,omitempty" yaml:"last_ping_at,omitempty"`
	LastFailureAt       time.Time     `json:"last_failure_at,omitempty" yaml:"last_failure_at,omitempty"`
	Cooldown            time.Duration `json:"cooldown" yaml:"cooldown"`
	ConsecutiveFailures int           `json:"consecutive_failures" yaml:"consecutive_failures"`
}

// Status is a snapshot of the relay.
type Status struct {
	StartedAt     time.Time     `json:"started_at" yaml:"started_at"`
	ActiveSession string        `json:"active_session,omitempty" yaml:"active_session,omitempty"`
	Sessions      []SessionInfo `json:"sessions" yaml:"sessions"`
	Watchdog      WatchdogInfo  `json:"watchdog" yaml:"watchdog"`
}

// Status returns a snapshot taken by the loop. It waits while the loop is
// blocked on the messaging endpoint.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	reply := make(chan Status, 1)
	if !e.post(ctx, statusRequest{reply: reply}) {
		return Status{}, ctx.Err()
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// DropActive closes the active client. It returns the dropped session ID,
// or domain.ErrSessionNotFound when no client is active.
func (e *Engine) DropActive(ctx context.Context) (string, error) {
	reply := make(chan string, 1)
	if !e.post(ctx, dropRequest{reply: reply}) {
		return "", ctx.Err()
	}
	select {
	case id := <-reply:
		if id == "" {
			return "", domain.ErrSessionNotFound.WithDetails("no active client")
		}
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Healthy reports whether the messaging endpoint answered the last ping.
// Safe to call from any goroutine.
func (e *Engine) Healthy() bool {
	return e.watchdog.Load().Healthy()
}

// WatchdogSnapshot returns the watchdog state for metrics collection.
// Safe to call from any goroutine.
func (e *Engine) WatchdogSnapshot() metric.WatchdogSnapshot {
	wd := e.watchdog.Load()
	return metric.WatchdogSnapshot{
		LastPingAt:          wd.LastPingAt,
		Backoff:             wd.Backoff,
		ConsecutiveFailures: wd.ConsecutiveFailures,
	}
}

func (e *Engine) status() Status {
	st := Status{
		StartedAt: e.startedAt,
		Sessions:  make([]SessionInfo, 0, len(e.sessions)),
		Watchdog: WatchdogInfo{
			Healthy:             e.wd.Healthy(),
			LastPingAt:          e.wd.LastPingAt,
			LastFailureAt:       e.wd.LastFailureAt,
			Cooldown:            e.wd.Backoff,
			ConsecutiveFailures: e.wd.ConsecutiveFailures,
		},
	}
	if e.active != nil {
		st.ActiveSession = e.active.info.ID
	}
	for _, s := range e.sessions {
		st.Sessions = append(st.Sessions, SessionInfo{
			ID:              s.info.ID,
			RemoteAddr:      s.info.RemoteAddr,
			AuthenticatedAt: s.info.AuthenticatedAt,
			Active:          s == e.active,
		})
	}
	sort.Slice(st.Sessions, func(i, j int) bool {
		return st.Sessions[i].AuthenticatedAt.Before(st.Sessions[j].AuthenticatedAt)
	})
	return st
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
