package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".imrelay", "cli.yaml")
}

// Load loads CLI configuration from file. A missing file yields the defaults.
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save saves CLI configuration to file with owner-only permissions.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Merge overrides cfg with non-empty values keyed by their YAML path,
// such as "relay.addr" or "output". Unknown keys are rejected.
func Merge(cfg *CLIConfig, values map[string]string) (*CLIConfig, error) {
	out := *cfg
	for key, value := range values {
		if value == "" {
			continue
		}
		switch key {
		case "relay.addr":
			out.Relay.Addr = value
		case "relay.username":
			out.Relay.Username = value
		case "relay.ca_file":
			out.Relay.CAFile = value
		case "relay.server_name":
			out.Relay.ServerName = value
		case "relay.insecure":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("relay.insecure: %w", err)
			}
			out.Relay.Insecure = b
		case "admin_socket":
			out.AdminSocket = value
		case "metrics_url":
			out.MetricsURL = value
		case "output":
			out.Output = value
		default:
			return nil, fmt.Errorf("unknown config key %q", key)
		}
	}
	return &out, nil
}
