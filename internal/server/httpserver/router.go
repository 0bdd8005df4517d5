package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/yndnr/imrelay/internal/telemetry/logger"
	"github.com/yndnr/imrelay/internal/telemetry/metric"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	// Metrics is scraped on /metrics. Nil falls back to the global registry.
	Metrics *metric.Registry

	// Health reports whether the gateway answered its last keepalive.
	// Nil means always healthy.
	Health func() bool

	Logger logger.Logger
}

type healthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(cfg *RouterConfig) http.Handler {
	if cfg == nil {
		cfg = &RouterConfig{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = metric.Global()
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", handleHealth(cfg.Health))

	return Chain(mux, Logging(log), Recover())
}

func handleHealth(healthy func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if healthy != nil && !healthy() {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(healthResponse{
			Status: status,
			Time:   time.Now().UTC().Format(time.RFC3339),
		})
	}
}
