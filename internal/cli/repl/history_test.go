package repl

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"testing"
)

func TestHistory_Add(t *testing.T) {
	h := NewHistory("")
	for _, cmd := range []string{"PING", "PING", "GET USERSTATUS", "PING"} {
		h.Add(cmd)
	}

	want := []string{"PING", "GET USERSTATUS", "PING"}
	if got := h.Entries(); !slices.Equal(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}
}

func TestHistory_Limit(t *testing.T) {
	h := NewHistory("")
	h.limit = 3
	for i := 1; i <= 5; i++ {
		h.Add("cmd" + strconv.Itoa(i))
	}

	want := []string{"cmd3", "cmd4", "cmd5"}
	if got := h.Entries(); !slices.Equal(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}
}

func TestHistory_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".imrelay", "history")

	h := NewHistory(path)
	h.Add("command1")
	h.Add("command2")
	if err := h.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("history file was not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 0600", perm)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory holds %d files, want only the history", len(entries))
	}

	h2 := NewHistory(path)
	if err := h2.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := h2.Entries(); !slices.Equal(got, []string{"command1", "command2"}) {
		t.Errorf("loaded %v", got)
	}
}

func TestHistory_LoadMissing(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "missing"))
	if err := h.Load(); err != nil {
		t.Errorf("Load() error = %v", err)
	}
	if len(h.Entries()) != 0 {
		t.Error("history should be empty")
	}
}

func TestHistory_InMemory(t *testing.T) {
	h := NewHistory("")
	h.Add("x")
	if err := h.Save(); err != nil {
		t.Errorf("Save() error = %v", err)
	}
	if err := h.Load(); err != nil {
		t.Errorf("Load() error = %v", err)
	}
}

func TestDefaultHistoryPath(t *testing.T) {
	path := DefaultHistoryPath()
	if filepath.Base(path) != "history" || filepath.Base(filepath.Dir(path)) != ".imrelay" {
		t.Errorf("path = %q", path)
	}
}
