package domain

import (
	"crypto/subtle"
	"strings"

	"github.com/yndnr/imrelay/pkg/passwd"
)

// Credentials are the static username and password digest a client must
// present during the handshake. Fields are unexported so a loaded value
// cannot be mutated.
type Credentials struct {
	username string
	digest   string
}

// NewCredentials validates and creates Credentials.
func NewCredentials(username, passwordDigest string) (Credentials, error) {
	username = strings.TrimSpace(username)
	passwordDigest = strings.TrimSpace(passwordDigest)

	if username == "" {
		return Credentials{}, ErrInvalidArgument.WithDetails("username is required")
	}
	if err := passwd.Validate(passwordDigest); err != nil {
		return Credentials{}, ErrInvalidArgument.WithDetails("password must be a sha1 or argon2id digest").WithCause(err)
	}

	return Credentials{username: username, digest: passwordDigest}, nil
}

// Username returns the configured username.
func (c Credentials) Username() string {
	return c.username
}

// PasswordDigest returns the stored password digest.
func (c Credentials) PasswordDigest() string {
	return c.digest
}

// IsZero reports whether the credentials were never set.
func (c Credentials) IsZero() bool {
	return c.username == "" && c.digest == ""
}

// MatchUsername reports whether name equals the configured username exactly.
func (c Credentials) MatchUsername(name string) bool {
	return subtle.ConstantTimeCompare([]byte(name), []byte(c.username)) == 1
}

// MatchPassword reports whether the digest of password equals the stored digest.
func (c Credentials) MatchPassword(password string) bool {
	return passwd.Verify(password, c.digest)
}
