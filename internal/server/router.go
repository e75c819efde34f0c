package server

import (
	"net/http"

	"runcrew/internal/metrics"
	"runcrew/internal/middleware"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// NewRouter mounts the crew service, /metrics and /healthz behind CORS,
// request ids and latency metrics.
func NewRouter(crew *CrewServer, reg *prometheus.Registry, m *metrics.Metrics, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	path, handler := crew.Handler()
	mux.Handle(path, handler)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{middleware.RequestIDHeader, "Connect-Protocol-Version"},
	})

	routes := append([]string{"/metrics", "/healthz"}, Procedures...)
	return middleware.RequestID(logger)(middleware.Instrument(m, routes...)(c.Handler(mux)))
}
