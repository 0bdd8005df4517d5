// Package service provides domain services for the relay.
//
// AuthService checks the USERNAME/PASSWORD handshake against the configured
// credentials and throttles repeated attempts per remote address.
package service

import (
	"net"
	"sync"

	"golang.org/x/time/rate"

	"github.com/yndnr/imrelay/internal/core/domain"
)

// AuthService verifies relay client credentials.
type AuthService struct {
	mu       sync.RWMutex
	creds    domain.Credentials
	limiters *hostLimiters
}

// AuthServiceConfig holds configuration for AuthService.
type AuthServiceConfig struct {
	// Rate is the sustained number of handshakes allowed per second per
	// remote address (default: 1). Zero or negative disables limiting.
	Rate float64

	// Burst is the number of handshakes allowed in a burst (default: 5).
	Burst int
}

// DefaultAuthServiceConfig returns default configuration.
func DefaultAuthServiceConfig() *AuthServiceConfig {
	return &AuthServiceConfig{
		Rate:  1,
		Burst: 5,
	}
}

// NewAuthService creates a new AuthService.
func NewAuthService(creds domain.Credentials, config *AuthServiceConfig) *AuthService {
	if config == nil {
		config = DefaultAuthServiceConfig()
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}

	s := &AuthService{creds: creds}
	if config.Rate > 0 {
		s.limiters = newHostLimiters(rate.Limit(config.Rate), burst)
	}
	return s
}

// AuthenticateRequest contains the two handshake lines received from a client.
type AuthenticateRequest struct {
	Username string
	Password string
	ClientIP string
}

// Authenticate checks both credentials. Both comparisons always run so the
// response time does not reveal which one failed.
func (s *AuthService) Authenticate(req *AuthenticateRequest) error {
	creds := s.Credentials()
	if creds.IsZero() {
		return domain.ErrAuthFailed.WithDetails("no credentials configured")
	}

	userOK := creds.MatchUsername(req.Username)
	passOK := creds.MatchPassword(req.Password)
	if !userOK || !passOK {
		return domain.ErrAuthFailed
	}
	return nil
}

// CheckRateLimit reports ErrRateLimited when the remote address has exceeded
// its handshake budget.
func (s *AuthService) CheckRateLimit(remoteAddr string) error {
	if s.limiters == nil || s.limiters.allow(hostOf(remoteAddr)) {
		return nil
	}
	return domain.ErrRateLimited
}

// Credentials returns the credentials currently in force.
func (s *AuthService) Credentials() domain.Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// SetCredentials replaces the credentials used for subsequent handshakes.
// Already authenticated sessions are unaffected.
func (s *AuthService) SetCredentials(creds domain.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
}

// hostOf strips the port from a "host:port" address.
func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// pruneAbove is the number of tracked hosts at which idle limiters are
// discarded.
const pruneAbove = 1024

// hostLimiters holds one token bucket per remote host.
type hostLimiters struct {
	mu    sync.Mutex
	rate  rate.Limit
	burst int
	byKey map[string]*rate.Limiter
}

func newHostLimiters(r rate.Limit, burst int) *hostLimiters {
	return &hostLimiters{rate: r, burst: burst, byKey: make(map[string]*rate.Limiter)}
}

// allow takes a token from host's bucket.
func (h *hostLimiters) allow(host string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.byKey[host]
	if !ok {
		if len(h.byKey) >= pruneAbove {
			h.prune()
		}
		l = rate.NewLimiter(h.rate, h.burst)
		h.byKey[host] = l
	}
	return l.Allow()
}

// prune drops buckets that have refilled; forgetting them changes nothing.
func (h *hostLimiters) prune() {
	for k, l := range h.byKey {
		if l.Tokens() >= float64(h.burst) {
			delete(h.byKey, k)
		}
	}
}

func (h *hostLimiters) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.byKey)
}
