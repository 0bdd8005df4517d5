package shutdown

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Hook releases one component. ctx expires when the shutdown timeout does.
type Hook func(ctx context.Context) error

// Handler is the process error boundary.
type Handler struct {
	timeout time.Duration

	mu    sync.Mutex
	hooks []Hook

	ctx    context.Context
	cancel context.CancelCauseFunc
}

// NewHandler returns a Handler whose hooks share timeout.
func NewHandler(timeout time.Duration) *Handler {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Handler{timeout: timeout, ctx: ctx, cancel: cancel}
}

// OnShutdown registers hook. Hooks run last registered first.
func (h *Handler) OnShutdown(hook Hook) {
	h.mu.Lock()
	h.hooks = append(h.hooks, hook)
	h.mu.Unlock()
}

// Context is cancelled as soon as shutdown begins.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Fatal begins shutdown because of err. Later errors are ignored.
func (h *Handler) Fatal(err error) {
	if err != nil {
		h.cancel(err)
	}
}

// Cause returns the first error passed to Fatal.
func (h *Handler) Cause() error {
	if err := context.Cause(h.ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Wait blocks until SIGINT, SIGTERM or Fatal, then runs the hooks. The
// result joins the fatal error with every hook error.
func (h *Handler) Wait() error {
	sigCtx, stop := signal.NotifyContext(h.ctx, syscall.SIGINT, syscall.SIGTERM)
	<-sigCtx.Done()
	stop()
	h.cancel(context.Canceled)

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.mu.Lock()
	hooks := append([]Hook(nil), h.hooks...)
	h.mu.Unlock()

	errs := []error{h.Cause()}
	for i := len(hooks) - 1; i >= 0; i-- {
		errs = append(errs, hooks[i](ctx))
	}
	return errors.Join(errs...)
}
