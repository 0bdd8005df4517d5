package repl

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const historyLimit = 1000

// History keeps the commands sent to the relay, oldest first. Consecutive
// duplicates are stored once and only the newest historyLimit survive.
type History struct {
	path  string
	limit int

	mu      sync.Mutex
	entries []string
}

// DefaultHistoryPath returns ~/.imrelay/history.
func DefaultHistoryPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".imrelay", "history")
}

// NewHistory returns a History stored at path. With an empty path the
// history lives in memory only.
func NewHistory(path string) *History {
	return &History{path: path, limit: historyLimit}
}

func (h *History) Add(cmd string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.add(cmd)
}

func (h *History) add(cmd string) {
	if n := len(h.entries); n > 0 && h.entries[n-1] == cmd {
		return
	}
	h.entries = append(h.entries, cmd)
	if extra := len(h.entries) - h.limit; extra > 0 {
		h.entries = append(h.entries[:0], h.entries[extra:]...)
	}
}

// Entries returns a copy of the history, oldest first.
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.entries...)
}

// Load appends the stored history. A missing file is not an error.
func (h *History) Load() error {
	if h.path == "" {
		return nil
	}
	f, err := os.Open(h.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	h.mu.Lock()
	defer h.mu.Unlock()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			h.add(line)
		}
	}
	return sc.Err()
}

// Save replaces the stored history. The file is written beside the old
// one and renamed over it, readable by the owner only.
func (h *History) Save() error {
	if h.path == "" {
		return nil
	}
	dir := filepath.Dir(h.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".history-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, e := range h.Entries() {
		w.WriteString(e)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), h.path)
}
