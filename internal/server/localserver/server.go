package localserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/imrelay/internal/telemetry/logger"
)

// idleTimeout closes an admin connection that sends nothing.
const idleTimeout = 30 * time.Second

// Server answers admin commands on a unix socket, one JSON reply per
// request line.
type Server struct {
	path    string
	handler *Handler
	logger  logger.Logger

	ln     net.Listener
	ctx    context.Context
	cancel context.CancelFunc
	conns  sync.WaitGroup
}

func New(socketPath string, handler *Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		path:    socketPath,
		handler: handler,
		logger:  log.With("component", "admin"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Addr returns the socket path.
func (s *Server) Addr() string {
	return s.path
}

// Listen creates the socket with owner-only permissions, replacing a file
// left by an earlier run.
func (s *Server) Listen() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", s.path, err)
	}
	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return err
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket %s: %w", s.path, err)
	}
	s.ln = ln
	s.logger.Info("admin socket listening", "path", s.path)
	return nil
}

// Serve accepts connections until Shutdown, then returns nil.
func (s *Server) Serve() error {
	if s.ln == nil {
		return errors.New("localserver: Serve called before Listen")
	}
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.conns.Add(1)
		go s.serveConn(conn)
	}
}

// Shutdown closes the listener and every open connection, waits for them
// within ctx and removes the socket file.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
		err = errors.Join(err, rmErr)
	}
	return err
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.conns.Done()
	defer conn.Close()
	stop := context.AfterFunc(s.ctx, func() { conn.Close() })
	defer stop()

	sc := bufio.NewScanner(conn)
	enc := json.NewEncoder(conn)
	for {
		_ = conn.SetDeadline(time.Now().Add(idleTimeout))
		if !sc.Scan() {
			return
		}
		line := strings.TrimSpace(sc.Text())

		ctx, cancel := context.WithTimeout(s.ctx, idleTimeout)
		resp := s.handler.Execute(ctx, line)
		cancel()
		s.logger.Debug("admin command", "command", line, "ok", resp.OK)

		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}
