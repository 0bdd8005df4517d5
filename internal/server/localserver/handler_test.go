package localserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/imrelay/internal/core/domain"
	"github.com/yndnr/imrelay/internal/server/relayserver"
)

// fakeRelay implements Controller.
type fakeRelay struct {
	status  relayserver.Status
	dropID  string
	dropped int
}

func (f *fakeRelay) Status(ctx context.Context) (relayserver.Status, error) {
	return f.status, nil
}

func (f *fakeRelay) DropActive(ctx context.Context) (string, error) {
	if f.dropID == "" {
		return "", domain.ErrSessionNotFound.WithDetails("no active client")
	}
	f.dropped++
	id := f.dropID
	f.dropID = ""
	return id, nil
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{
		status: relayserver.Status{
			StartedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			ActiveSession: "rs-01",
			Sessions: []relayserver.SessionInfo{
				{ID: "rs-01", RemoteAddr: "10.0.0.1:5555", Active: true},
			},
			Watchdog: relayserver.WatchdogInfo{Healthy: true, Cooldown: 2 * time.Second},
		},
		dropID: "rs-01",
	}
}

func TestHandler_Status(t *testing.T) {
	h := NewHandler(newFakeRelay())

	resp := h.Execute(context.Background(), "status")
	if !resp.OK {
		t.Fatalf("status failed: %+v", resp)
	}

	var data StatusData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if data.ActiveSession != "rs-01" || len(data.Sessions) != 1 {
		t.Errorf("status data = %+v", data)
	}
	if !data.Watchdog.Healthy {
		t.Error("watchdog should be healthy")
	}
	if data.Version.Version == "" {
		t.Error("version should be set")
	}
}

func TestHandler_Drop(t *testing.T) {
	relay := newFakeRelay()
	h := NewHandler(relay)

	resp := h.Execute(context.Background(), "DROP")
	if !resp.OK {
		t.Fatalf("drop failed: %+v", resp)
	}
	var data DropData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if data.SessionID != "rs-01" {
		t.Errorf("SessionID = %q, want rs-01", data.SessionID)
	}

	resp = h.Execute(context.Background(), "drop")
	if resp.OK {
		t.Fatal("second drop should fail")
	}
	if resp.Code != domain.ErrSessionNotFound.Code {
		t.Errorf("Code = %q, want %q", resp.Code, domain.ErrSessionNotFound.Code)
	}
	if relay.dropped != 1 {
		t.Errorf("dropped = %d, want 1", relay.dropped)
	}
}

func TestHandler_Unknown(t *testing.T) {
	h := NewHandler(newFakeRelay())

	tests := []string{"", "   ", "shutdown", "reload now"}
	for _, line := range tests {
		resp := h.Execute(context.Background(), line)
		if resp.OK {
			t.Errorf("Execute(%q) should fail", line)
		}
		if resp.Code != domain.ErrInvalidArgument.Code {
			t.Errorf("Execute(%q) code = %q", line, resp.Code)
		}
	}

	resp := h.Execute(context.Background(), "shutdown")
	if !strings.Contains(resp.Error, "unknown command: shutdown") {
		t.Errorf("Error = %q", resp.Error)
	}
}
