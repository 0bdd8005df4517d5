package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yndnr/imrelay/internal/gateway"
	"github.com/yndnr/imrelay/pkg/passwd"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := verifyRelay(&cfg.Relay); err != nil {
		return err
	}
	if err := verifyGateway(&cfg.Gateway); err != nil {
		return err
	}
	if err := verifyWatchdog(&cfg.Watchdog); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyRelay(cfg *RelaySection) error {
	if cfg.Username == "" {
		return errors.New("relay.username is required")
	}
	if cfg.Password == "" {
		return errors.New("relay.password is required")
	}
	if err := passwd.Validate(cfg.Password); err != nil {
		return fmt.Errorf("relay.password: %w", err)
	}
	if cfg.Key == "" {
		return errors.New("relay.key is required")
	}
	if cfg.Cert == "" {
		return errors.New("relay.cert is required")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("relay.port must be between 1 and 65535, got %d", cfg.Port)
	}
	if err := positive("relay.handshake_timeout", cfg.HandshakeTimeout); err != nil {
		return err
	}
	if err := positive("relay.write_timeout", cfg.WriteTimeout); err != nil {
		return err
	}
	if cfg.MaxLineBytes < 1 {
		return errors.New("relay.max_line_bytes must be positive")
	}
	if cfg.AuthRate < 0 {
		return errors.New("relay.auth_rate must not be negative")
	}
	if cfg.AuthRate > 0 && cfg.AuthBurst < 1 {
		return errors.New("relay.auth_burst must be at least 1")
	}
	return nil
}

func verifyGateway(cfg *GatewaySection) error {
	switch cfg.Network {
	case gateway.NetworkExec, gateway.NetworkTCP, gateway.NetworkUnix:
	default:
		return fmt.Errorf("gateway.network must be exec, tcp or unix, got %q", cfg.Network)
	}
	if strings.TrimSpace(cfg.Address) == "" {
		return errors.New("gateway.address is required")
	}
	if cfg.ClientName == "" {
		return errors.New("gateway.client_name is required")
	}
	if cfg.Protocol < 1 {
		return errors.New("gateway.protocol must be positive")
	}
	return positive("gateway.command_timeout", cfg.CommandTimeout)
}

func verifyWatchdog(cfg *WatchdogSection) error {
	if err := positive("watchdog.interval", cfg.Interval); err != nil {
		return err
	}
	if err := positive("watchdog.cooldown", cfg.Cooldown); err != nil {
		return err
	}
	if cfg.MaxCooldown < cfg.Cooldown {
		return errors.New("watchdog.max_cooldown must not be less than watchdog.cooldown")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", cfg.Format)
	}
	return nil
}

func positive(key string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return nil
}
