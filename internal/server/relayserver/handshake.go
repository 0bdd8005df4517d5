package relayserver

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/yndnr/imrelay/internal/core/domain"
	"github.com/yndnr/imrelay/internal/core/service"
)

// Handshake replies.
const (
	replyOK = "PASSWORD OK"
	replyKO = "PASSWORD KO"
)

// Handshake failure reasons, used as metric labels.
const (
	reasonTLS         = "tls"
	reasonClosed      = "closed"
	reasonTimeout     = "timeout"
	reasonMalformed   = "malformed"
	reasonAuth        = "auth"
	reasonRateLimited = "rate_limited"
	reasonInternal    = "internal"
)

// handshakeError carries the failure reason of a handshake.
type handshakeError struct {
	reason string
	err    error
}

func (e *handshakeError) Error() string {
	return "handshake failed (" + e.reason + "): " + e.err.Error()
}

func (e *handshakeError) Unwrap() error {
	return e.err
}

// handshakeReason extracts the failure reason from err.
func handshakeReason(err error) string {
	var he *handshakeError
	if errors.As(err, &he) {
		return he.reason
	}
	return reasonInternal
}

// handshake runs the USERNAME/PASSWORD exchange on conn.
//
// Both lines are always read, even when the username is already wrong, so
// the client sees the same exchange either way. On success PASSWORD OK has
// been written and the returned session is authenticated. On failure
// PASSWORD KO has been written when the connection was still usable; the
// caller closes the connection.
func handshake(ctx context.Context, conn *lineConn, auth *service.AuthService, limited bool, timeout time.Duration) (*domain.Session, error) {
	session, err := domain.NewSession(conn.RemoteAddr())
	if err != nil {
		return nil, &handshakeError{reason: reasonInternal, err: err}
	}

	deadline := time.Now().Add(timeout)
	if err := conn.netConn.SetDeadline(deadline); err != nil {
		return nil, &handshakeError{reason: reasonClosed, err: err}
	}

	if tc, ok := conn.netConn.(*tls.Conn); ok {
		hctx, cancel := context.WithDeadline(ctx, deadline)
		err := tc.HandshakeContext(hctx)
		cancel()
		if err != nil {
			return nil, &handshakeError{reason: reasonTLS, err: err}
		}
	}

	// AwaitingUsername
	line, err := conn.ReadLine()
	if err != nil {
		return nil, readFailure(conn, err)
	}
	username, userOK := parseHandshakeLine(line, "USERNAME")
	session.State = domain.StateAwaitingPassword

	// AwaitingPassword
	line, err = conn.ReadLine()
	if err != nil {
		return nil, readFailure(conn, err)
	}
	password, passOK := parseHandshakeLine(line, "PASSWORD")

	var failure *handshakeError
	switch {
	case limited:
		failure = &handshakeError{reason: reasonRateLimited, err: domain.ErrRateLimited}
	case !userOK || !passOK:
		failure = &handshakeError{reason: reasonMalformed, err: domain.ErrHandshakeMalformed}
	default:
		err := auth.Authenticate(&service.AuthenticateRequest{
			Username: username,
			Password: password,
			ClientIP: conn.RemoteAddr(),
		})
		if err != nil {
			failure = &handshakeError{reason: reasonAuth, err: err}
		}
	}

	if failure != nil {
		session.MarkClosed()
		_ = conn.WriteLine(replyKO)
		return nil, failure
	}

	if err := conn.WriteLine(replyOK); err != nil {
		session.MarkClosed()
		return nil, &handshakeError{reason: reasonClosed, err: err}
	}
	session.MarkAuthenticated()

	// Authenticated sessions may stay idle indefinitely.
	if err := conn.netConn.SetDeadline(time.Time{}); err != nil {
		return nil, &handshakeError{reason: reasonClosed, err: err}
	}
	return session, nil
}

// readFailure classifies a read error during the handshake. A client that
// timed out still gets PASSWORD KO.
func readFailure(conn *lineConn, err error) error {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		_ = conn.WriteLine(replyKO)
		return &handshakeError{reason: reasonTimeout, err: domain.ErrHandshakeTimeout.WithCause(err)}
	case errors.Is(err, domain.ErrLineTooLong):
		_ = conn.WriteLine(replyKO)
		return &handshakeError{reason: reasonMalformed, err: err}
	default:
		return &handshakeError{reason: reasonClosed, err: err}
	}
}

// parseHandshakeLine matches "<verb> <value>" and returns the trimmed value.
func parseHandshakeLine(line, verb string) (string, bool) {
	got, value, found := strings.Cut(line, " ")
	if !found || got != verb {
		return "", false
	}
	return strings.TrimSpace(value), true
}
