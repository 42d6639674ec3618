package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage labels for RecordsTotal.
const (
	StageExtracted = "extracted"
	StageCleaned   = "cleaned"
)

var (
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockists_search_requests_total",
			Help: "Total number of search API requests by outcome",
		},
		[]string{"status"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockists_search_duration_seconds",
			Help:    "Duration of search API requests in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockists_records_total",
			Help: "Result records seen at each pipeline stage",
		},
		[]string{"stage"},
	)

	RecordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockists_records_dropped_total",
			Help: "Result records removed by the cleaner, by rule",
		},
		[]string{"reason"},
	)

	ExtractionFaults = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stockists_extraction_faults_total",
			Help: "Organic result entries skipped because they could not be read",
		},
	)
)

// RecordSearch updates the request metrics. status is "ok" or a failure kind.
func RecordSearch(status string, d time.Duration) {
	SearchRequestsTotal.WithLabelValues(status).Inc()
	SearchDuration.Observe(d.Seconds())
}

// RecordDrops adds the per-rule drop counts of one cleaning pass.
func RecordDrops(drops map[string]int) {
	for reason, n := range drops {
		if n > 0 {
			RecordsDropped.WithLabelValues(reason).Add(float64(n))
		}
	}
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "port", port, "err", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
