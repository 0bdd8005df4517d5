package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "imrelay"

// Registry holds all relay metrics on a private Prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	// Session metrics
	SessionsAccepted prometheus.Counter
	SessionsOpen     prometheus.Gauge
	ActiveSink       prometheus.Gauge
	HandshakesFailed *prometheus.CounterVec

	// Relay metrics
	CommandsSubmitted *prometheus.CounterVec
	CommandDuration   prometheus.Histogram
	LinesDelivered    prometheus.Counter
	DeliveryFailures  prometheus.Counter

	// Gateway metrics
	Pings      *prometheus.CounterVec
	Reconnects *prometheus.CounterVec
}

// NewRegistry creates a registry with Go runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		SessionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_accepted_total",
			Help:      "Client sessions that completed the handshake.",
		}),
		SessionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_open",
			Help:      "Authenticated client connections still being read.",
		}),
		ActiveSink: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sink",
			Help:      "1 when a client is registered to receive output.",
		}),
		HandshakesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_failed_total",
			Help:      "Handshakes that did not authenticate, by reason.",
		}, []string{"reason"}),
		CommandsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_submitted_total",
			Help:      "Commands submitted to the messaging endpoint, by result.",
		}, []string{"result"}),
		CommandDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time spent waiting for the messaging endpoint to reply.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		LinesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_delivered_total",
			Help:      "Lines written to the active client.",
		}),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Lines lost because the write to the client failed.",
		}),
		Pings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watchdog_pings_total",
			Help:      "Watchdog pings, by result.",
		}, []string{"result"}),
		Reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_reconnects_total",
			Help:      "Reconnect attempts to the messaging endpoint, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		r.SessionsAccepted,
		r.SessionsOpen,
		r.ActiveSink,
		r.HandshakesFailed,
		r.CommandsSubmitted,
		r.CommandDuration,
		r.LinesDelivered,
		r.DeliveryFailures,
		r.Pings,
		r.Reconnects,
	)

	return r
}

var (
	globalOnce     sync.Once
	globalRegistry *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// Handler returns an HTTP handler for the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Handler returns an HTTP handler exposing this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// MustRegister adds extra collectors to the registry.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.registry.MustRegister(cs...)
}

// RecordHandshakeFailure counts a failed handshake.
func (r *Registry) RecordHandshakeFailure(reason string) {
	r.HandshakesFailed.WithLabelValues(reason).Inc()
}

// RecordSessionAccepted counts a successful handshake.
func (r *Registry) RecordSessionAccepted() {
	r.SessionsAccepted.Inc()
	r.SessionsOpen.Inc()
}

// RecordSessionClosed decrements the open session gauge.
func (r *Registry) RecordSessionClosed() {
	r.SessionsOpen.Dec()
}

// SetActiveSink records whether a client receives output.
func (r *Registry) SetActiveSink(present bool) {
	if present {
		r.ActiveSink.Set(1)
		return
	}
	r.ActiveSink.Set(0)
}

// RecordCommand counts a submitted command and its latency.
func (r *Registry) RecordCommand(result string, seconds float64) {
	r.CommandsSubmitted.WithLabelValues(result).Inc()
	r.CommandDuration.Observe(seconds)
}

// RecordDelivery counts one delivered or lost outbound line.
func (r *Registry) RecordDelivery(ok bool) {
	if ok {
		r.LinesDelivered.Inc()
		return
	}
	r.DeliveryFailures.Inc()
}

// RecordPing counts a watchdog ping.
func (r *Registry) RecordPing(result string) {
	r.Pings.WithLabelValues(result).Inc()
}

// RecordReconnect counts a reconnect attempt.
func (r *Registry) RecordReconnect(ok bool) {
	if ok {
		r.Reconnects.WithLabelValues("ok").Inc()
		return
	}
	r.Reconnects.WithLabelValues("error").Inc()
}
