package config

import "time"

// Default configuration values.
const (
	DefaultConfigPath = "/usr/local/etc/imrelay/imrelay.yaml"

	DefaultHost             = "0.0.0.0"
	DefaultPort             = 2727
	DefaultHandshakeTimeout = 30 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultMaxLineBytes     = 64 * 1024
	DefaultAuthRate         = 1.0
	DefaultAuthBurst        = 5

	DefaultGatewayNetwork = "exec"
	DefaultClientName     = "imrelay"
	DefaultProtocol       = 8
	DefaultCommandTimeout = 30 * time.Second
	DefaultWatchdog       = 5 * time.Second
	DefaultCooldown       = 2 * time.Second
	DefaultMaxCooldown    = 30 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Relay: RelaySection{
			Host:             DefaultHost,
			Port:             DefaultPort,
			HandshakeTimeout: DefaultHandshakeTimeout,
			WriteTimeout:     DefaultWriteTimeout,
			MaxLineBytes:     DefaultMaxLineBytes,
			AuthRate:         DefaultAuthRate,
			AuthBurst:        DefaultAuthBurst,
		},
		Gateway: GatewaySection{
			Network:        DefaultGatewayNetwork,
			ClientName:     DefaultClientName,
			Protocol:       DefaultProtocol,
			CommandTimeout: DefaultCommandTimeout,
		},
		Watchdog: WatchdogSection{
			Interval:    DefaultWatchdog,
			Cooldown:    DefaultCooldown,
			MaxCooldown: DefaultMaxCooldown,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
