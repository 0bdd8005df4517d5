package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WatchdogSnapshot is the watchdog state read at scrape time.
type WatchdogSnapshot struct {
	LastPingAt          time.Time
	Backoff             time.Duration
	ConsecutiveFailures int
}

// Collector exports watchdog state without the watchdog pushing updates.
type Collector struct {
	snapshot func() WatchdogSnapshot

	lastPing *prometheus.Desc
	backoff  *prometheus.Desc
	failures *prometheus.Desc
}

// NewCollector creates a collector reading state from snapshot.
func NewCollector(snapshot func() WatchdogSnapshot) *Collector {
	return &Collector{
		snapshot: snapshot,
		lastPing: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "watchdog", "last_ping_timestamp_seconds"),
			"Unix time of the last successful ping, 0 if none.", nil, nil),
		backoff: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "watchdog", "cooldown_seconds"),
			"Cooldown applied after the next failed ping.", nil, nil),
		failures: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "watchdog", "consecutive_failures"),
			"Failed pings since the last success.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.lastPing
	ch <- c.backoff
	ch <- c.failures
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.snapshot()

	var last float64
	if !s.LastPingAt.IsZero() {
		last = float64(s.LastPingAt.UnixNano()) / 1e9
	}
	ch <- prometheus.MustNewConstMetric(c.lastPing, prometheus.GaugeValue, last)
	ch <- prometheus.MustNewConstMetric(c.backoff, prometheus.GaugeValue, s.Backoff.Seconds())
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.GaugeValue, float64(s.ConsecutiveFailures))
}
