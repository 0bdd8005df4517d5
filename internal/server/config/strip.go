package config

import "strings"

// StripComment removes a trailing "#" comment from a value and trims the
// surrounding whitespace.
func StripComment(value string) string {
	if i := strings.IndexByte(value, '#'); i >= 0 {
		value = value[:i]
	}
	return strings.TrimSpace(value)
}

// Normalize strips comments from the credential and key pair values and
// trims the gateway address. It modifies cfg in place.
func Normalize(cfg *ServerConfig) {
	cfg.Relay.Username = StripComment(cfg.Relay.Username)
	cfg.Relay.Password = StripComment(cfg.Relay.Password)
	cfg.Relay.Key = StripComment(cfg.Relay.Key)
	cfg.Relay.Cert = StripComment(cfg.Relay.Cert)
	cfg.Relay.Host = strings.TrimSpace(cfg.Relay.Host)
	cfg.Gateway.Address = strings.TrimSpace(cfg.Gateway.Address)
	cfg.Gateway.Network = strings.ToLower(strings.TrimSpace(cfg.Gateway.Network))
}
