package passwd

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Scheme identifies a digest encoding.
type Scheme string

const (
	SchemeUnknown  Scheme = "unknown"
	SchemeArgon2id Scheme = "argon2id"
	SchemeSHA1     Scheme = "sha1"
)

// Default Argon2id parameters (memory in KiB).
const (
	DefaultTime    uint32 = 2
	DefaultMemory  uint32 = 16384
	DefaultThreads uint8  = 2
	DefaultKeyLen  uint32 = 32
	SaltLength            = 16
)

// ErrMalformedDigest is returned when a digest string cannot be parsed.
var ErrMalformedDigest = errors.New("passwd: malformed digest")

// Params holds Argon2id cost parameters.
type Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
}

// DefaultParams returns the parameters used by Hash.
func DefaultParams() Params {
	return Params{
		Time:    DefaultTime,
		Memory:  DefaultMemory,
		Threads: DefaultThreads,
		KeyLen:  DefaultKeyLen,
	}
}

// Hash returns an Argon2id PHC string for password using a random salt.
func Hash(password string) (string, error) {
	return HashWithParams(password, DefaultParams())
}

// HashWithParams is Hash with explicit cost parameters.
func HashWithParams(password string, p Params) (string, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("passwd: generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// HashLegacy returns the hex SHA-1 digest of password.
func HashLegacy(password string) string {
	sum := sha1.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Detect reports which scheme a digest uses.
func Detect(digest string) Scheme {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		return SchemeArgon2id
	case isHexSHA1(digest):
		return SchemeSHA1
	default:
		return SchemeUnknown
	}
}

// Verify reports whether password matches digest.
// Unknown or malformed digests never match.
func Verify(password, digest string) bool {
	switch Detect(digest) {
	case SchemeSHA1:
		actual := HashLegacy(password)
		return subtle.ConstantTimeCompare([]byte(actual), []byte(strings.ToLower(digest))) == 1
	case SchemeArgon2id:
		ok, err := verifyArgon2id(password, digest)
		return err == nil && ok
	default:
		return false
	}
}

// Validate checks that digest is well formed in a supported scheme.
func Validate(digest string) error {
	switch Detect(digest) {
	case SchemeSHA1:
		return nil
	case SchemeArgon2id:
		_, _, _, err := parseArgon2id(digest)
		return err
	default:
		return ErrMalformedDigest
	}
}

func verifyArgon2id(password, digest string) (bool, error) {
	p, salt, expected, err := parseArgon2id(digest)
	if err != nil {
		return false, err
	}
	computed := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// parseArgon2id decodes $argon2id$v=19$m=M,t=T,p=P$<salt>$<hash>.
func parseArgon2id(digest string) (Params, []byte, []byte, error) {
	var p Params

	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, ErrMalformedDigest
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, ErrMalformedDigest
	}

	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &threads); err != nil {
		return p, nil, nil, ErrMalformedDigest
	}
	if threads == 0 || threads > 255 || p.Time == 0 || p.Memory == 0 {
		return p, nil, nil, ErrMalformedDigest
	}
	p.Threads = uint8(threads)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, ErrMalformedDigest
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrMalformedDigest
	}
	p.KeyLen = uint32(len(key))

	return p, salt, key, nil
}

func isHexSHA1(s string) bool {
	if len(s) != sha1.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
