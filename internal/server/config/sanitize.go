package config

import "strings"

// Sanitize returns a copy of cfg that is safe to log or print. The
// password digest keeps its first and last two characters, and an Argon2id
// digest also keeps its parameters.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	out := *cfg
	if pw := out.Relay.Password; pw != "" {
		if i := strings.LastIndexByte(pw, '$'); strings.HasPrefix(pw, "$argon2id$") && i > 0 {
			out.Relay.Password = pw[:i+1] + maskSecret(pw[i+1:])
		} else {
			out.Relay.Password = maskSecret(pw)
		}
	}
	return &out
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
