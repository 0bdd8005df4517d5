package domain

import "time"

// WatchdogState tracks gateway liveness. It is mutated only by the watchdog.
type WatchdogState struct {
	// LastPingAt is the time of the last successful ping.
	LastPingAt time.Time

	// LastFailureAt is the time of the last failed ping.
	LastFailureAt time.Time

	// Backoff is the cooldown applied after the next failure.
	Backoff time.Duration

	// ConsecutiveFailures counts failed pings since the last success.
	ConsecutiveFailures int
}

// NewWatchdogState returns a state with the baseline backoff.
func NewWatchdogState(baseline time.Duration) WatchdogState {
	return WatchdogState{Backoff: baseline}
}

// RecordSuccess notes a successful ping and resets the backoff to baseline.
func (w *WatchdogState) RecordSuccess(now time.Time, baseline time.Duration) {
	w.LastPingAt = now
	w.Backoff = baseline
	w.ConsecutiveFailures = 0
}

// RecordFailure notes a failed ping. It returns the cooldown to apply now and
// lengthens the next one by doubling, capped at max.
func (w *WatchdogState) RecordFailure(now time.Time, max time.Duration) time.Duration {
	w.LastFailureAt = now
	w.ConsecutiveFailures++

	cooldown := w.Backoff
	next := w.Backoff * 2
	if next > max {
		next = max
	}
	if next < cooldown {
		next = cooldown
	}
	w.Backoff = next
	return cooldown
}

// Healthy reports whether the gateway answered the most recent ping.
// A watchdog that has not failed yet is healthy.
func (w *WatchdogState) Healthy() bool {
	return w.ConsecutiveFailures == 0
}
