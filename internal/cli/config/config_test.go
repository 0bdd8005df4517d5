package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Relay.Addr != "localhost:2727" {
		t.Errorf("Relay.Addr = %q, want %q", cfg.Relay.Addr, "localhost:2727")
	}
	if cfg.Output != "table" {
		t.Errorf("Output = %q, want %q", cfg.Output, "table")
	}
	if cfg.Relay.Insecure {
		t.Error("Insecure should be false by default")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	if !filepath.IsAbs(path) {
		t.Errorf("Path %q should be absolute", path)
	}
	if !strings.HasSuffix(path, filepath.Join(".imrelay", "cli.yaml")) {
		t.Errorf("Path = %q, should end with .imrelay/cli.yaml", path)
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load should not error for nonexistent file: %v", err)
	}
	if cfg.Relay.Addr != Default().Relay.Addr {
		t.Error("Should return default config for nonexistent file")
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	content := `
relay:
  addr: relay.example.com:2828
  username: alice
  insecure: true
output: yaml
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Relay.Addr != "relay.example.com:2828" || cfg.Relay.Username != "alice" {
		t.Errorf("Relay = %+v", cfg.Relay)
	}
	if !cfg.Relay.Insecure {
		t.Error("Insecure should be true")
	}
	if cfg.Output != "yaml" {
		t.Errorf("Output = %q, want yaml", cfg.Output)
	}
	if cfg.AdminSocket != Default().AdminSocket {
		t.Errorf("AdminSocket = %q, want default", cfg.AdminSocket)
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	if err := os.WriteFile(path, []byte("relay: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load should fail on malformed YAML")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cli.yaml")

	cfg := Default()
	cfg.Relay.Username = "bob"
	cfg.MetricsURL = "http://10.0.0.1:9127"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 0600", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("loaded = %+v, want %+v", loaded, cfg)
	}
}

func TestMerge(t *testing.T) {
	cfg := Default()

	merged, err := Merge(cfg, map[string]string{
		"relay.addr":     "other:1",
		"relay.insecure": "true",
		"output":         "",
		"admin_socket":   "/tmp/a.sock",
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if merged.Relay.Addr != "other:1" || !merged.Relay.Insecure {
		t.Errorf("Relay = %+v", merged.Relay)
	}
	if merged.Output != "table" {
		t.Errorf("empty values must not override, Output = %q", merged.Output)
	}
	if merged.AdminSocket != "/tmp/a.sock" {
		t.Errorf("AdminSocket = %q", merged.AdminSocket)
	}
	if cfg.Relay.Addr != "localhost:2727" {
		t.Error("Merge must not modify its input")
	}
}

func TestMerge_Errors(t *testing.T) {
	if _, err := Merge(Default(), map[string]string{"relay.insecure": "maybe"}); err == nil {
		t.Error("expected error for bad bool")
	}
	if _, err := Merge(Default(), map[string]string{"bogus": "x"}); err == nil {
		t.Error("expected error for unknown key")
	}
}
