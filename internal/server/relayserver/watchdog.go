package relayserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yndnr/imrelay/internal/core/domain"
	"github.com/yndnr/imrelay/internal/gateway"
)

// watchdogTick pings the messaging endpoint. It runs on the loop, so a
// failed ping's cooldown stalls every other relay activity until it ends.
func (e *Engine) watchdogTick(ctx context.Context) error {
	_, err := e.gw.Submit(ctx, e.cfg.PingCommand)

	switch {
	case err == nil:
		e.metrics.RecordPing("ok")
		e.wd.RecordSuccess(e.now(), e.cfg.Cooldown)
		e.publishWatchdog()
		return nil

	case ctx.Err() != nil:
		return nil

	case errors.Is(err, domain.ErrGatewayRefused):
		// The endpoint answered, so it is alive.
		e.metrics.RecordPing("refused")
		e.wd.RecordSuccess(e.now(), e.cfg.Cooldown)
		e.publishWatchdog()
		return nil

	case errors.Is(err, domain.ErrGatewayUnreachable), errors.Is(err, domain.ErrGatewayProtocol):
		kind := domain.GatewayErrorKind(err)
		e.metrics.RecordPing(kind)
		cooldown := e.wd.RecordFailure(e.now(), e.cfg.MaxCooldown)
		e.publishWatchdog()

		e.logger.Warn("messaging endpoint did not answer ping",
			"error", err,
			"cooldown", cooldown,
			"consecutive_failures", e.wd.ConsecutiveFailures)

		if e.sleep(ctx, cooldown) != nil {
			return nil
		}

		if errors.Is(err, domain.ErrGatewayUnreachable) {
			e.reconnect(ctx)
		}
		return nil

	default:
		return fmt.Errorf("watchdog ping: %w", err)
	}
}

// reconnect asks the gateway to re-attach when it supports it.
func (e *Engine) reconnect(ctx context.Context) {
	rc, ok := e.gw.(gateway.Reconnector)
	if !ok {
		return
	}
	if err := rc.Reconnect(ctx); err != nil {
		if ctx.Err() == nil {
			e.metrics.RecordReconnect(false)
			e.logger.Warn("reconnect to messaging endpoint failed", "error", err)
		}
		return
	}
	e.metrics.RecordReconnect(true)
	e.logger.Info("reconnected to messaging endpoint")
}

// publishWatchdog copies the loop-owned watchdog state for other goroutines.
func (e *Engine) publishWatchdog() {
	wd := e.wd
	e.watchdog.Store(&wd)
}

// sleepContext waits for d or until ctx ends.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
