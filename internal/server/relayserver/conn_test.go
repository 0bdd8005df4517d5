package relayserver

import (
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/imrelay/internal/core/domain"
)

var errTest = errors.New("test error")

// pipeLineConn returns a lineConn and the peer end of an in-memory pipe.
func pipeLineConn(t *testing.T, maxLine int) (*lineConn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	return newLineConn(server, maxLine, time.Second), client
}

func TestLineConn_ReadLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"lf", "one\ntwo\n", []string{"one", "two"}},
		{"crlf", "one\r\ntwo\r\n", []string{"one", "two"}},
		{"empty line", "\nx\n", []string{"", "x"}},
		{"partial before eof", "one\ntail", []string{"one", "tail"}},
		{"invalid utf8", "a\xffb\n", []string{"a�b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, peer := pipeLineConn(t, 64)
			go func() {
				_, _ = io.WriteString(peer, tt.input)
				peer.Close()
			}()

			for _, want := range tt.want {
				got, err := c.ReadLine()
				if err != nil {
					t.Fatalf("ReadLine() error = %v", err)
				}
				if got != want {
					t.Errorf("ReadLine() = %q, want %q", got, want)
				}
			}
			if _, err := c.ReadLine(); !errors.Is(err, io.EOF) {
				t.Errorf("ReadLine() at end error = %v, want io.EOF", err)
			}
		})
	}
}

func TestLineConn_ReadLineTooLong(t *testing.T) {
	c, peer := pipeLineConn(t, 8)
	go func() {
		_, _ = io.WriteString(peer, strings.Repeat("x", 9)+"\n")
	}()

	if _, err := c.ReadLine(); !errors.Is(err, domain.ErrLineTooLong) {
		t.Errorf("ReadLine() error = %v, want ErrLineTooLong", err)
	}
}

func TestLineConn_ReadLineAtLimit(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"lf", "xxxxxxxx\n", "xxxxxxxx", nil},
		{"crlf", "xxxxxxxx\r\n", "xxxxxxxx", nil},
		{"unterminated", "xxxxxxxx", "xxxxxxxx", nil},
		{"one over crlf", "xxxxxxxxx\r\n", "", domain.ErrLineTooLong},
		{"one over unterminated", "xxxxxxxxx", "", domain.ErrLineTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, peer := pipeLineConn(t, 8)
			go func() {
				_, _ = io.WriteString(peer, tt.input)
				peer.Close()
			}()

			got, err := c.ReadLine()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ReadLine() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadLine() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLineConn_ReadLineLongerThanBuffer(t *testing.T) {
	c, peer := pipeLineConn(t, 10000)
	long := strings.Repeat("y", 9000)
	go func() {
		_, _ = io.WriteString(peer, long+"\n")
	}()

	got, err := c.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine() error = %v", err)
	}
	if got != long {
		t.Errorf("ReadLine() returned %d bytes, want %d", len(got), len(long))
	}
}

func TestLineConn_WriteLine(t *testing.T) {
	c, peer := pipeLineConn(t, 64)

	done := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := peer.Read(buf)
		done <- string(buf[:n])
	}()

	if err := c.WriteLine("hi\xfe"); err != nil {
		t.Fatalf("WriteLine() error = %v", err)
	}
	if got := <-done; got != "hi�\n" {
		t.Errorf("peer received %q, want %q", got, "hi�\n")
	}
}

func TestLineConn_WriteTimeout(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	c := newLineConn(server, 64, 50*time.Millisecond)
	defer c.Close()

	// Nobody reads from client.
	err := c.WriteLine("blocked")
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Errorf("WriteLine() error = %v, want timeout", err)
	}
}

func TestLineConn_Close(t *testing.T) {
	c, _ := pipeLineConn(t, 64)

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := c.WriteLine("x"); !errors.Is(err, net.ErrClosed) {
		t.Errorf("WriteLine() after Close error = %v, want net.ErrClosed", err)
	}
}
