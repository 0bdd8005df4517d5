package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionIDPrefix is the prefix for session IDs.
const SessionIDPrefix = "rs-"

// SessionState is a step of the authentication handshake.
type SessionState int

const (
	StateAwaitingUsername SessionState = iota
	StateAwaitingPassword
	StateAuthenticated
	StateClosed
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case StateAwaitingUsername:
		return "awaiting_username"
	case StateAwaitingPassword:
		return "awaiting_password"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session describes one client connection. The connection itself is owned
// by the transport layer; this entity carries identity and progress.
type Session struct {
	// ID is the unique identifier. Format: rs-{ulid_lowercase}.
	ID string `json:"id"`

	// RemoteAddr is the peer address at accept time.
	RemoteAddr string `json:"remote_addr"`

	// State is the handshake progress.
	State SessionState `json:"-"`

	// CreatedAt is when the connection was accepted.
	CreatedAt time.Time `json:"created_at"`

	// AuthenticatedAt is zero until the handshake succeeds.
	AuthenticatedAt time.Time `json:"authenticated_at,omitempty"`
}

// NewSession creates a Session in the AwaitingUsername state.
func NewSession(remoteAddr string) (*Session, error) {
	id, err := GenerateSessionID()
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:         id,
		RemoteAddr: remoteAddr,
		State:      StateAwaitingUsername,
		CreatedAt:  time.Now(),
	}, nil
}

// GenerateSessionID generates a new session ID using ULID.
func GenerateSessionID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternal.WithCause(err)
	}
	return SessionIDPrefix + strings.ToLower(id.String()), nil
}

// Authenticated reports whether the handshake succeeded.
func (s *Session) Authenticated() bool {
	return s.State == StateAuthenticated
}

// MarkAuthenticated moves the session to StateAuthenticated.
func (s *Session) MarkAuthenticated() {
	s.State = StateAuthenticated
	s.AuthenticatedAt = time.Now()
}

// MarkClosed moves the session to StateClosed.
func (s *Session) MarkClosed() {
	s.State = StateClosed
}
