package config

import (
	"fmt"

	"github.com/yndnr/imrelay/internal/core/domain"
	"github.com/yndnr/imrelay/internal/core/service"
	"github.com/yndnr/imrelay/internal/gateway"
	"github.com/yndnr/imrelay/internal/server/relayserver"
)

// ToRelayConfig converts ServerConfig to relayserver.Config.
func ToRelayConfig(cfg *ServerConfig) *relayserver.Config {
	rc := relayserver.DefaultConfig()
	rc.HandshakeTimeout = cfg.Relay.HandshakeTimeout
	rc.WriteTimeout = cfg.Relay.WriteTimeout
	rc.MaxLineBytes = cfg.Relay.MaxLineBytes
	rc.CloseSuperseded = cfg.Relay.CloseSuperseded
	rc.WatchdogInterval = cfg.Watchdog.Interval
	rc.Cooldown = cfg.Watchdog.Cooldown
	rc.MaxCooldown = cfg.Watchdog.MaxCooldown
	return rc
}

// ToGatewayConfig converts ServerConfig to gateway.Config.
func ToGatewayConfig(cfg *ServerConfig) *gateway.Config {
	gc := gateway.DefaultConfig()
	gc.ClientName = cfg.Gateway.ClientName
	gc.Protocol = cfg.Gateway.Protocol
	gc.CommandTimeout = cfg.Gateway.CommandTimeout
	return gc
}

// ToAuthConfig converts ServerConfig to service.AuthServiceConfig.
func ToAuthConfig(cfg *ServerConfig) *service.AuthServiceConfig {
	return &service.AuthServiceConfig{
		Rate:  cfg.Relay.AuthRate,
		Burst: cfg.Relay.AuthBurst,
	}
}

// ToCredentials builds the handshake credentials from the relay section.
func ToCredentials(cfg *ServerConfig) (domain.Credentials, error) {
	creds, err := domain.NewCredentials(cfg.Relay.Username, cfg.Relay.Password)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("relay credentials: %w", err)
	}
	return creds, nil
}
