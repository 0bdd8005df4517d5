package command

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/imrelay/internal/core/domain"
	"github.com/yndnr/imrelay/internal/server/localserver"
	"github.com/yndnr/imrelay/internal/server/relayserver"
	"github.com/yndnr/imrelay/internal/telemetry/logger"
	"github.com/yndnr/imrelay/pkg/passwd"
)

// runApp runs the CLI with args and returns what it printed.
func runApp(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("IMRELAY_PASSWORD", "")

	prev := stdinIsTerminal
	stdinIsTerminal = func() bool { return false }
	t.Cleanup(func() { stdinIsTerminal = prev })

	var stdout, stderr bytes.Buffer
	app := App()
	app.Reader = strings.NewReader(stdin)
	app.Writer = &stdout
	app.ErrWriter = &stderr

	argv := append([]string{"imrelay-cli", "--config", filepath.Join(t.TempDir(), "cli.yaml")}, args...)
	err := app.Run(argv)
	return stdout.String(), stderr.String(), err
}

type fakeRelay struct {
	status relayserver.Status
	dropID string
	err    error
}

func (f *fakeRelay) Status(context.Context) (relayserver.Status, error) {
	return f.status, f.err
}

func (f *fakeRelay) DropActive(context.Context) (string, error) {
	return f.dropID, f.err
}

func startAdminSocket(t *testing.T, relay localserver.Controller) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "admin.sock")
	srv := localserver.New(path, localserver.NewHandler(relay), logger.Discard())
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return path
}

func TestHash_FromStdin(t *testing.T) {
	out, _, err := runApp(t, "secret\n", "hash")
	if err != nil {
		t.Fatalf("hash error = %v", err)
	}
	digest := strings.TrimSpace(out)
	if passwd.Detect(digest) != passwd.SchemeArgon2id {
		t.Errorf("digest %q is not argon2id", digest)
	}
	if !passwd.Verify("secret", digest) {
		t.Error("digest does not verify")
	}
}

func TestHash_Legacy(t *testing.T) {
	out, _, err := runApp(t, "", "hash", "--legacy", "secret")
	if err != nil {
		t.Fatalf("hash error = %v", err)
	}
	if got := strings.TrimSpace(out); got != "e5e9fa1ba31ecd1ae84f75caaa474f3a663f05f4" {
		t.Errorf("digest = %q", got)
	}
}

func TestHash_Empty(t *testing.T) {
	if _, _, err := runApp(t, "\n", "hash"); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestStatus_Table(t *testing.T) {
	sock := startAdminSocket(t, &fakeRelay{status: relayserver.Status{
		StartedAt:     time.Now(),
		ActiveSession: "rs-1",
		Sessions: []relayserver.SessionInfo{
			{ID: "rs-1", RemoteAddr: "10.0.0.1:5000", Active: true},
		},
		Watchdog: relayserver.WatchdogInfo{Healthy: true, Cooldown: time.Second},
	}})

	out, _, err := runApp(t, "", "--socket", sock, "status")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	for _, want := range []string{"active session", "rs-1", "10.0.0.1:5000", "REMOTE_ADDR", "gateway healthy"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatus_JSON(t *testing.T) {
	sock := startAdminSocket(t, &fakeRelay{status: relayserver.Status{ActiveSession: "rs-9"}})

	out, _, err := runApp(t, "", "--socket", sock, "-o", "json", "status")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	if !strings.Contains(out, `"active_session": "rs-9"`) {
		t.Errorf("output = %s", out)
	}
}

func TestStatus_NoSocket(t *testing.T) {
	_, _, err := runApp(t, "", "--socket", filepath.Join(t.TempDir(), "missing.sock"), "status")
	if err == nil {
		t.Error("expected error without a running relay")
	}
}

func TestDrop(t *testing.T) {
	sock := startAdminSocket(t, &fakeRelay{dropID: "rs-3"})

	out, _, err := runApp(t, "", "--socket", sock, "drop")
	if err != nil {
		t.Fatalf("drop error = %v", err)
	}
	if strings.TrimSpace(out) != "Dropped session rs-3" {
		t.Errorf("output = %q", out)
	}
}

func TestDrop_NoActiveSession(t *testing.T) {
	sock := startAdminSocket(t, &fakeRelay{err: domain.ErrSessionNotFound})

	_, _, err := runApp(t, "", "--socket", sock, "drop")
	if !domain.IsDomainError(err, domain.ErrSessionNotFound.Code) {
		t.Errorf("drop error = %v, want %s", err, domain.ErrSessionNotFound.Code)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{
		{"healthy", http.StatusOK, `{"status":"healthy"}`, "✓ Relay is healthy", false},
		{"unhealthy", http.StatusServiceUnavailable, `{"status":"unhealthy"}`, "✗ Relay is unhealthy", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			out, _, err := runApp(t, "", "--metrics-url", srv.URL, "health")
			if (err != nil) != tt.wantErr {
				t.Fatalf("health error = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestConfigShow(t *testing.T) {
	out, _, err := runApp(t, "", "--socket", "/tmp/x.sock", "-o", "yaml", "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(out, "admin_socket: /tmp/x.sock") {
		t.Errorf("output = %s", out)
	}
}

func TestConfigCheck(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "imrelay.yaml")
	content := `
relay:
  username: alice # operator
  password: e5e9fa1ba31ecd1ae84f75caaa474f3a663f05f4
  key: /etc/imrelay/key.pem
  cert: /etc/imrelay/cert.pem
gateway:
  address: skype-apid --stdio
`
	if err := os.WriteFile(valid, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	out, _, err := runApp(t, "", "config", "check", valid)
	if err != nil {
		t.Fatalf("config check error = %v", err)
	}
	if !strings.Contains(out, "is valid") {
		t.Errorf("output = %q", out)
	}

	out, _, err = runApp(t, "", "config", "check", "--print", valid)
	if err != nil {
		t.Fatalf("config check --print error = %v", err)
	}
	if strings.Contains(out, "e5e9fa1ba31ecd1ae84f75caaa474f3a663f05f4") {
		t.Error("password digest should be masked")
	}
	if !strings.Contains(out, "username: alice") {
		t.Errorf("output = %s", out)
	}
}

func TestConfigCheck_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imrelay.yaml")
	if err := os.WriteFile(path, []byte("relay:\n  username: alice\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, _, err := runApp(t, "", "config", "check", path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(out, "is invalid") {
		t.Errorf("output = %q", out)
	}

	if _, _, err := runApp(t, "", "config", "check"); err == nil {
		t.Error("expected error without a path")
	}
}

func TestVersion(t *testing.T) {
	out, _, err := runApp(t, "", "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "imrelay-cli ") {
		t.Errorf("output = %q", out)
	}
}

func TestUnknownOutputFormat(t *testing.T) {
	if _, _, err := runApp(t, "", "-o", "xml", "version"); err == nil {
		t.Error("expected error for unknown output format")
	}
}
