package relayserver

import "time"

// Config holds the relay engine configuration.
type Config struct {
	// HandshakeTimeout bounds TLS negotiation plus the USERNAME and
	// PASSWORD lines (default: 30s).
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each line written to the client (default: 10s).
	WriteTimeout time.Duration

	// MaxLineBytes is the longest line accepted from a client
	// (default: 64 KiB). Longer lines end the session.
	MaxLineBytes int

	// CloseSuperseded closes the previous client when a new one
	// authenticates instead of leaving it open without output.
	CloseSuperseded bool

	// WatchdogInterval is how long the engine must be idle before it
	// pings the messaging endpoint (default: 5s).
	WatchdogInterval time.Duration

	// Cooldown is the stall applied after the first failed ping
	// (default: 2s). It doubles on each further failure.
	Cooldown time.Duration

	// MaxCooldown caps the doubled cooldown (default: 30s).
	MaxCooldown time.Duration

	// PingCommand is the no-op command used by the watchdog.
	PingCommand string

	// KeepaliveReply is the notification discarded instead of delivered.
	KeepaliveReply string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		HandshakeTimeout: 30 * time.Second,
		WriteTimeout:     10 * time.Second,
		MaxLineBytes:     64 * 1024,
		CloseSuperseded:  false,
		WatchdogInterval: 5 * time.Second,
		Cooldown:         2 * time.Second,
		MaxCooldown:      30 * time.Second,
		PingCommand:      "PING",
		KeepaliveReply:   "PONG",
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.MaxLineBytes <= 0 {
		c.MaxLineBytes = def.MaxLineBytes
	}
	if c.WatchdogInterval <= 0 {
		c.WatchdogInterval = def.WatchdogInterval
	}
	if c.Cooldown <= 0 {
		c.Cooldown = def.Cooldown
	}
	if c.MaxCooldown < c.Cooldown {
		c.MaxCooldown = c.Cooldown
	}
	if c.PingCommand == "" {
		c.PingCommand = def.PingCommand
	}
	if c.KeepaliveReply == "" {
		c.KeepaliveReply = def.KeepaliveReply
	}
	return c
}
