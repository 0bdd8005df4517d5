package relayserver

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/yndnr/imrelay/internal/core/domain"
)

// lineConn is a client connection carrying newline terminated UTF-8 lines.
type lineConn struct {
	netConn      net.Conn
	br           *bufio.Reader
	maxLine      int
	writeTimeout time.Duration

	closed atomic.Bool
}

func newLineConn(c net.Conn, maxLine int, writeTimeout time.Duration) *lineConn {
	return &lineConn{
		netConn:      c,
		br:           bufio.NewReader(c),
		maxLine:      maxLine,
		writeTimeout: writeTimeout,
	}
}

// ReadLine returns the next line without its terminator. Invalid UTF-8 is
// replaced with U+FFFD. A final unterminated line is returned before EOF.
func (c *lineConn) ReadLine() (string, error) {
	var buf []byte
	for {
		chunk, err := c.br.ReadSlice('\n')
		buf = append(buf, chunk...)
		// Room for the content plus a CRLF terminator.
		if len(buf) > c.maxLine+2 {
			return "", domain.ErrLineTooLong
		}
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) && len(buf) > 0 {
			break
		}
		return "", err
	}

	line := strings.TrimSuffix(string(buf), "\n")
	line = strings.TrimSuffix(line, "\r")
	if len(line) > c.maxLine {
		return "", domain.ErrLineTooLong
	}
	return strings.ToValidUTF8(line, string(utf8.RuneError)), nil
}

// WriteLine writes line plus a newline under the write timeout.
func (c *lineConn) WriteLine(line string) error {
	if c.closed.Load() {
		return net.ErrClosed
	}
	if c.writeTimeout > 0 {
		if err := c.netConn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(c.netConn, strings.ToValidUTF8(line, string(utf8.RuneError))+"\n")
	return err
}

// SetReadDeadline sets the read deadline of the underlying connection.
func (c *lineConn) SetReadDeadline(t time.Time) error {
	return c.netConn.SetReadDeadline(t)
}

// RemoteAddr returns the peer address.
func (c *lineConn) RemoteAddr() string {
	if addr := c.netConn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Close closes the connection once.
func (c *lineConn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.netConn.Close()
}
