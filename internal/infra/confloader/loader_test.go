package confloader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Relay struct {
		Host             string        `koanf:"host"`
		Port             int           `koanf:"port"`
		Username         string        `koanf:"username"`
		HandshakeTimeout time.Duration `koanf:"handshake_timeout"`
		CloseSuperseded  bool          `koanf:"close_superseded"`
	} `koanf:"relay"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "imrelay.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func load(t *testing.T, l *Loader) testConfig {
	t.Helper()
	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return cfg
}

func TestLoader_File(t *testing.T) {
	path := writeConfig(t, `
relay:
  host: "127.0.0.1"
  port: 2828
  close_superseded: true
`)

	l := NewLoader(WithConfigFile(path))
	if l.FilePath() != path {
		t.Errorf("FilePath() = %q", l.FilePath())
	}

	cfg := load(t, l)
	if cfg.Relay.Host != "127.0.0.1" || cfg.Relay.Port != 2828 || !cfg.Relay.CloseSuperseded {
		t.Errorf("cfg = %+v", cfg.Relay)
	}
}

func TestLoader_NotFound(t *testing.T) {
	l := NewLoader(WithConfigFile(filepath.Join(t.TempDir(), "missing.yaml")))

	var cfg testConfig
	if err := l.Load(&cfg); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Load() error = %v, want ErrConfigNotFound", err)
	}
}

func TestLoader_BadYAML(t *testing.T) {
	path := writeConfig(t, "relay: [unclosed\n")

	var cfg testConfig
	err := NewLoader(WithConfigFile(path)).Load(&cfg)
	if err == nil || errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Load() error = %v, want a parse error", err)
	}
}

func TestLoader_NoFile(t *testing.T) {
	t.Setenv("IMRELAY_RELAY_USERNAME", "alice")

	if cfg := load(t, NewLoader()); cfg.Relay.Username != "alice" {
		t.Errorf("Username = %q", cfg.Relay.Username)
	}
}

func TestLoader_Env(t *testing.T) {
	t.Setenv("IMRELAY_RELAY_HOST", "10.0.0.1")
	t.Setenv("IMRELAY_RELAY_HANDSHAKE_TIMEOUT", "5s")
	t.Setenv("IMRELAY_LOG_LEVEL", "debug")

	cfg := load(t, NewLoader())
	if cfg.Relay.Host != "10.0.0.1" {
		t.Errorf("Host = %q", cfg.Relay.Host)
	}
	if cfg.Relay.HandshakeTimeout != 5*time.Second {
		t.Errorf("HandshakeTimeout = %v", cfg.Relay.HandshakeTimeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoader_EnvCustomPrefix(t *testing.T) {
	t.Setenv("MYAPP_RELAY_PORT", "9090")
	t.Setenv("IMRELAY_RELAY_PORT", "1111")

	if cfg := load(t, NewLoader(WithEnvPrefix("MYAPP_"))); cfg.Relay.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Relay.Port)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"IMRELAY_RELAY_PORT":            "relay.port",
		"IMRELAY_RELAY_MAX_LINE_BYTES":  "relay.max_line_bytes",
		"IMRELAY_WATCHDOG_MAX_COOLDOWN": "watchdog.max_cooldown",
		"IMRELAY_DEBUG":                 "debug",
	}

	for name, want := range tests {
		if got := envKey("IMRELAY_", name); got != want {
			t.Errorf("envKey(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestLoader_Priority(t *testing.T) {
	path := writeConfig(t, `
relay:
  host: "from-file"
  port: 1000
  username: "file-user"
`)

	t.Setenv("IMRELAY_RELAY_HOST", "from-env")
	t.Setenv("IMRELAY_RELAY_PORT", "2000")

	cfg := load(t, NewLoader(
		WithConfigFile(path),
		WithFlags(map[string]any{"relay.port": 3000}),
	))

	if cfg.Relay.Username != "file-user" {
		t.Errorf("Username = %q, want %q", cfg.Relay.Username, "file-user")
	}
	if cfg.Relay.Host != "from-env" {
		t.Errorf("Host = %q, want %q (env should override file)", cfg.Relay.Host, "from-env")
	}
	if cfg.Relay.Port != 3000 {
		t.Errorf("Port = %d, want %d (flags should override env)", cfg.Relay.Port, 3000)
	}
}

func TestLoader_KeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
relay:
  username: alice
  handshake_timeout: 45s
`)

	var cfg testConfig
	cfg.Relay.Port = 2727
	cfg.Log.Level = "info"

	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Relay.Port != 2727 {
		t.Errorf("Port = %d, want default 2727", cfg.Relay.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Level = %q, want default info", cfg.Log.Level)
	}
	if cfg.Relay.HandshakeTimeout != 45*time.Second {
		t.Errorf("HandshakeTimeout = %v, want 45s", cfg.Relay.HandshakeTimeout)
	}
}

func TestLoader_ReloadSeesRemovedKeys(t *testing.T) {
	path := writeConfig(t, "relay:\n  username: alice\n")
	l := NewLoader(WithConfigFile(path))

	if cfg := load(t, l); cfg.Relay.Username != "alice" {
		t.Fatalf("Username = %q", cfg.Relay.Username)
	}
	if err := os.WriteFile(path, []byte("relay:\n  port: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if cfg := load(t, l); cfg.Relay.Username != "" {
		t.Errorf("Username = %q after the key was removed", cfg.Relay.Username)
	}
}

func TestMapProvider(t *testing.T) {
	p := mapProvider{"relay.port": 1, "debug": true}

	m, err := p.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	relay, ok := m["relay"].(map[string]any)
	if !ok || relay["port"] != 1 || m["debug"] != true {
		t.Errorf("Read() = %v", m)
	}
	if _, err := p.ReadBytes(); err == nil {
		t.Error("ReadBytes() should fail")
	}
}
