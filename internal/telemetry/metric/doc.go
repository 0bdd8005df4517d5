// Package metric provides Prometheus metrics for the relay.
//
//   - prometheus.go: registry, relay counters and the HTTP handler
//   - collector.go: scrape-time collector for watchdog state
//
// Metrics are exposed at /metrics in Prometheus format when an HTTP
// address is configured.
package metric
