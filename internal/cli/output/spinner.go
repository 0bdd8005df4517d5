package output

import (
	"fmt"
	"io"
	"sync"
	"time"
)

const spinInterval = 100 * time.Millisecond

var spinFrames = [...]string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates msg on one terminal line until it is finished. A
// spinner that was never started only prints the final message.
type Spinner struct {
	w   io.Writer
	msg string

	mu       sync.Mutex
	stop     chan struct{}
	done     chan struct{}
	finished bool
}

func NewSpinner(w io.Writer, msg string) *Spinner {
	return &Spinner{w: w, msg: msg}
}

// Start begins the animation. Calls after the first, or after the
// spinner finished, do nothing.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil || s.finished {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.spin(s.stop, s.done)
}

func (s *Spinner) spin(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	tick := time.NewTicker(spinInterval)
	defer tick.Stop()
	for i := 0; ; i++ {
		fmt.Fprintf(s.w, "\r%s %s", spinFrames[i%len(spinFrames)], s.msg)
		select {
		case <-stop:
			return
		case <-tick.C:
		}
	}
}

// finish ends the animation, clears its line and writes tail. Only the
// first call writes anything.
func (s *Spinner) finish(tail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.finished = true
	if s.stop != nil {
		close(s.stop)
		<-s.done
		tail = "\r\033[K" + tail
	}
	fmt.Fprint(s.w, tail)
}

// Stop clears the spinner line.
func (s *Spinner) Stop() { s.finish("") }

// Success replaces the spinner with a check mark and msg.
func (s *Spinner) Success(msg string) { s.finish("✓ " + msg + "\n") }

// Fail replaces the spinner with a cross and msg.
func (s *Spinner) Fail(msg string) { s.finish("✗ " + msg + "\n") }
