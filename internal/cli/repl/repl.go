package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// ErrRelayClosed is returned when the relay ends the connection.
var ErrRelayClosed = errors.New("relay closed the connection")

// Conn is the relay side of a session.
type Conn interface {
	ReadLine() (string, error)
	WriteLine(line string) error
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input   io.Reader
	output  io.Writer
	history *History
	prompt  string
	linger  time.Duration

	mu sync.Mutex
}

// Option configures a REPL.
type Option func(*REPL)

// WithPrompt shows prompt before each input line. Use it only when the
// input is a terminal.
func WithPrompt(prompt string) Option {
	return func(r *REPL) { r.prompt = prompt }
}

// WithHistory records sent commands in h.
func WithHistory(h *History) Option {
	return func(r *REPL) { r.history = h }
}

// WithLinger keeps printing relay output for d after the input ends, so
// replies to piped commands are not cut off.
func WithLinger(d time.Duration) Option {
	return func(r *REPL) { r.linger = d }
}

// New creates a new REPL instance.
func New(input io.Reader, output io.Writer, opts ...Option) *REPL {
	r := &REPL{
		input:   input,
		output:  output,
		history: NewHistory(""),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays input lines to conn and prints conn's lines until the input
// ends, the user exits, ctx is cancelled or the relay goes away. The
// caller closes conn afterwards.
func (r *REPL) Run(ctx context.Context, conn Conn) error {
	done := make(chan struct{})
	defer close(done)

	relayErr := make(chan error, 1)
	go func() {
		for {
			line, err := conn.ReadLine()
			if err != nil {
				relayErr <- err
				return
			}
			r.printLine(line)
		}
	}()

	lines := make(chan string)
	inputErr := make(chan error, 1)
	go func() {
		reader := bufio.NewReader(r.input)
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				select {
				case lines <- line:
				case <-done:
					return
				}
			}
			if err != nil {
				inputErr <- err
				return
			}
		}
	}()

	r.showPrompt()
	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-relayErr:
			return relayFailure(err)

		case err := <-inputErr:
			if !errors.Is(err, io.EOF) {
				return fmt.Errorf("read input: %w", err)
			}
			return r.drain(ctx, relayErr)

		case line := <-lines:
			line = strings.TrimSpace(line)
			switch line {
			case "":
			case "exit", "quit":
				return nil
			default:
				r.history.Add(line)
				if err := conn.WriteLine(line); err != nil {
					return fmt.Errorf("write to relay: %w", err)
				}
			}
			r.showPrompt()
		}
	}
}

// drain waits out the linger period after the input ended.
func (r *REPL) drain(ctx context.Context, relayErr <-chan error) error {
	r.mu.Lock()
	if r.prompt != "" {
		fmt.Fprintln(r.output)
	}
	r.mu.Unlock()

	if r.linger <= 0 {
		return nil
	}
	timer := time.NewTimer(r.linger)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return nil
	case err := <-relayErr:
		return relayFailure(err)
	}
}

func relayFailure(err error) error {
	if errors.Is(err, io.EOF) {
		return ErrRelayClosed
	}
	return fmt.Errorf("read from relay: %w", err)
}

func (r *REPL) printLine(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.prompt == "" {
		fmt.Fprintln(r.output, line)
		return
	}
	fmt.Fprintf(r.output, "\r\033[K%s\n%s", line, r.prompt)
}

func (r *REPL) showPrompt() {
	if r.prompt == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprint(r.output, r.prompt)
}
