package config

import "time"

// ServerConfig is the root configuration for imrelay-server.
type ServerConfig struct {
	Relay    RelaySection    `koanf:"relay" yaml:"relay"`
	Gateway  GatewaySection  `koanf:"gateway" yaml:"gateway"`
	Watchdog WatchdogSection `koanf:"watchdog" yaml:"watchdog"`
	Metrics  MetricsSection  `koanf:"metrics" yaml:"metrics"`
	Admin    AdminSection    `koanf:"admin" yaml:"admin"`
	Log      LogSection      `koanf:"log" yaml:"log"`
}

// RelaySection configures the client-facing TLS listener.
type RelaySection struct {
	// Host is the listen address (e.g., "0.0.0.0").
	Host string `koanf:"host" yaml:"host"`

	// Port is the listen port (1-65535).
	Port int `koanf:"port" yaml:"port"`

	// Username and Password are the credentials a client must present.
	// Password is a hex SHA-1 or $argon2id$ digest, never plaintext.
	Username string `koanf:"username" yaml:"username"`
	Password string `koanf:"password" yaml:"password"`

	// Key and Cert are PEM files for the TLS key pair.
	Key  string `koanf:"key" yaml:"key"`
	Cert string `koanf:"cert" yaml:"cert"`

	HandshakeTimeout time.Duration `koanf:"handshake_timeout" yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `koanf:"write_timeout" yaml:"write_timeout"`
	MaxLineBytes     int           `koanf:"max_line_bytes" yaml:"max_line_bytes"`

	// CloseSuperseded closes the previous client when a new one
	// authenticates.
	CloseSuperseded bool `koanf:"close_superseded" yaml:"close_superseded"`

	// ReloadCredentials lets a configuration file change replace Username
	// and Password without a restart. Off by default: the credentials are
	// fixed for the life of the process.
	ReloadCredentials bool `koanf:"reload_credentials" yaml:"reload_credentials"`

	// AuthRate is the handshake attempts per second allowed per IP.
	// Zero disables rate limiting.
	AuthRate  float64 `koanf:"auth_rate" yaml:"auth_rate"`
	AuthBurst int     `koanf:"auth_burst" yaml:"auth_burst"`
}

// GatewaySection configures the messaging endpoint connection.
type GatewaySection struct {
	// Network is one of exec, tcp or unix.
	Network string `koanf:"network" yaml:"network"`

	// Address is the command line (exec) or the dial address.
	Address string `koanf:"address" yaml:"address"`

	ClientName     string        `koanf:"client_name" yaml:"client_name"`
	Protocol       int           `koanf:"protocol" yaml:"protocol"`
	CommandTimeout time.Duration `koanf:"command_timeout" yaml:"command_timeout"`
}

// WatchdogSection configures the liveness check.
type WatchdogSection struct {
	Interval    time.Duration `koanf:"interval" yaml:"interval"`
	Cooldown    time.Duration `koanf:"cooldown" yaml:"cooldown"`
	MaxCooldown time.Duration `koanf:"max_cooldown" yaml:"max_cooldown"`
}

// MetricsSection configures the HTTP endpoint. An empty Addr disables it.
type MetricsSection struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// AdminSection configures the local admin socket. An empty Socket
// disables it.
type AdminSection struct {
	Socket string `koanf:"socket" yaml:"socket"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}
