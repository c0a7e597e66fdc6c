package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	metricClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "craftd_connected_clients",
		Help: "Number of currently connected clients.",
	})
	metricEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "craftd_events_total",
		Help: "Model events processed, by event type.",
	}, []string{"event"})
	metricBlocks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "craftd_blocks_stored_total",
		Help: "Accepted block edits, ghost rows excluded.",
	})
	metricFramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "craftd_frames_sent_total",
		Help: "Frames queued for transmission to clients.",
	})
	metricBytesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "craftd_bytes_sent_total",
		Help: "Bytes queued for transmission to clients.",
	})
	metricCommits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "craftd_store_commits_total",
		Help: "Successful store commits.",
	})
	metricPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "craftd_handler_panics_total",
		Help: "Model event handlers that panicked and were recovered.",
	})
)

// ServeMetrics exposes the Prometheus registry on addr. It blocks, so
// callers run it in its own goroutine.
func ServeMetrics(addr string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Str("addr", addr).Msg("metrics listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("metrics server failed")
	}
}
