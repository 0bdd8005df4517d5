package passwd

import (
	"errors"
	"strings"
	"testing"
)

// Cheap parameters keep the Argon2id tests fast.
var testParams = Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 16}

func TestHashLegacy(t *testing.T) {
	// sha1("secret")
	const want = "e5e9fa1ba31ecd1ae84f75caaa474f3a663f05f4"
	if got := HashLegacy("secret"); got != want {
		t.Errorf("HashLegacy(secret) = %q, want %q", got, want)
	}
}

func TestVerify_Legacy(t *testing.T) {
	digest := HashLegacy("secret")

	if !Verify("secret", digest) {
		t.Error("Verify should accept the correct password")
	}
	if !Verify("secret", strings.ToUpper(digest)) {
		t.Error("Verify should accept an upper-case hex digest")
	}
	if Verify("Secret", digest) {
		t.Error("Verify should reject a wrong password")
	}
	if Verify("", digest) {
		t.Error("Verify should reject an empty password")
	}
}

func TestVerify_Argon2id(t *testing.T) {
	digest, err := HashWithParams("secret", testParams)
	if err != nil {
		t.Fatalf("HashWithParams() error = %v", err)
	}
	if !strings.HasPrefix(digest, "$argon2id$v=19$m=64,t=1,p=1$") {
		t.Errorf("unexpected digest format: %q", digest)
	}

	if !Verify("secret", digest) {
		t.Error("Verify should accept the correct password")
	}
	if Verify("wrong", digest) {
		t.Error("Verify should reject a wrong password")
	}
}

func TestHash_RandomSalt(t *testing.T) {
	a, err := HashWithParams("secret", testParams)
	if err != nil {
		t.Fatal(err)
	}
	b, err := HashWithParams("secret", testParams)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two hashes of the same password should differ by salt")
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		digest string
		want   Scheme
	}{
		{HashLegacy("x"), SchemeSHA1},
		{"$argon2id$v=19$m=64,t=1,p=1$c2FsdA$aGFzaA", SchemeArgon2id},
		{"", SchemeUnknown},
		{"plaintext", SchemeUnknown},
		{strings.Repeat("z", 40), SchemeUnknown},
	}

	for _, tt := range tests {
		if got := Detect(tt.digest); got != tt.want {
			t.Errorf("Detect(%q) = %q, want %q", tt.digest, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	good, err := HashWithParams("secret", testParams)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		digest  string
		wantErr bool
	}{
		{"argon2id", good, false},
		{"sha1", HashLegacy("secret"), false},
		{"plaintext", "secret", true},
		{"bad version", "$argon2id$v=1$m=64,t=1,p=1$c2FsdA$aGFzaA", true},
		{"bad params", "$argon2id$v=19$m=64$c2FsdA$aGFzaA", true},
		{"zero threads", "$argon2id$v=19$m=64,t=1,p=0$c2FsdA$aGFzaA", true},
		{"bad salt", "$argon2id$v=19$m=64,t=1,p=1$!!!$aGFzaA", true},
		{"missing part", "$argon2id$v=19$m=64,t=1,p=1$c2FsdA", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.digest)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedDigest) {
				t.Errorf("Validate() error = %v, want ErrMalformedDigest", err)
			}
		})
	}
}

func TestVerify_MalformedNeverMatches(t *testing.T) {
	if Verify("secret", "secret") {
		t.Error("a plaintext digest must never match")
	}
	if Verify("secret", "$argon2id$garbage") {
		t.Error("a malformed argon2id digest must never match")
	}
}
