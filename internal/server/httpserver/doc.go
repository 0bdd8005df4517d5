// Package httpserver serves the relay's operational HTTP endpoints.
//
// Two routes are mounted: /metrics exposes the Prometheus registry and
// /healthz reports whether the messaging gateway answered its last
// keepalive. The relay protocol itself never travels over HTTP.
package httpserver
