package logger

import (
	"log/slog"
	"strings"
)

const (
	argon2Prefix  = "$argon2id$"
	redactedValue = "***REDACTED***"
)

// Attribute keys containing any of these are redacted.
var sensitiveKeys = []string{"password", "passwd", "secret", "digest", "credential", "key"}

// redactSensitive is the ReplaceAttr hook of every handler New builds.
// Argon2id digests are masked under any key. Other non-empty strings are
// replaced when the key looks sensitive. Groups are walked.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		switch {
		case IsSensitiveValue(v):
			a.Value = slog.StringValue(maskValue(v, argon2Prefix))
		case v != "" && IsSensitiveKey(a.Key):
			a.Value = slog.StringValue(redactedValue)
		}
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i := range group {
			out[i] = redactSensitive(group[i])
		}
		a.Value = slog.GroupValue(out...)
	}
	return a
}

// maskValue keeps prefix and three characters at each end of the rest.
func maskValue(value, prefix string) string {
	body := strings.TrimPrefix(value, prefix)
	if len(body) <= 6 {
		return prefix + "***"
	}
	return prefix + body[:3] + "..." + body[len(body)-3:]
}

// RedactLine hides the secret of a PASSWORD handshake line so that
// protocol traces can be logged.
func RedactLine(line string) string {
	verb, rest, found := strings.Cut(strings.TrimSpace(line), " ")
	if found && strings.EqualFold(verb, "PASSWORD") && rest != "OK" && rest != "KO" {
		return verb + " " + redactedValue
	}
	return line
}

// IsSensitiveKey reports whether an attribute key names secret content.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// IsSensitiveValue reports whether value is an Argon2id digest.
func IsSensitiveValue(value string) bool {
	return strings.HasPrefix(value, argon2Prefix)
}
