// Package metrics provides Prometheus metrics for extractions.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// Metrics holds all Prometheus metrics for recordflat.
type Metrics struct {
	ExtractionsTotal    *prometheus.CounterVec
	ExtractionDuration  *prometheus.HistogramVec
	ExtractionsInFlight prometheus.Gauge
	RowsTotal           *prometheus.CounterVec
	SourceBytesTotal    *prometheus.CounterVec
	DocCacheTotal       *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ExtractionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recordflat_extractions_total",
				Help: "Total number of extractions",
			},
			[]string{"format", "status"},
		),
		ExtractionDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recordflat_extraction_duration_seconds",
				Help:    "Duration of extractions in seconds, loading included",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"format"},
		),
		ExtractionsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "recordflat_extractions_in_flight",
				Help: "Number of extractions currently running",
			},
		),
		RowsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recordflat_rows_total",
				Help: "Total number of table rows produced",
			},
			[]string{"format"},
		),
		SourceBytesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recordflat_source_bytes_total",
				Help: "Total number of source bytes loaded",
			},
			[]string{"format"},
		),
		DocCacheTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recordflat_document_cache_total",
				Help: "Parsed document cache lookups",
			},
			[]string{"result"},
		),
	}
}

// RecordExtraction records a finished extraction.
func (m *Metrics) RecordExtraction(format, status string, rows int, duration time.Duration) {
	m.ExtractionsTotal.WithLabelValues(format, status).Inc()
	m.ExtractionDuration.WithLabelValues(format).Observe(duration.Seconds())
	if rows > 0 {
		m.RowsTotal.WithLabelValues(format).Add(float64(rows))
	}
}

// RecordSource records bytes loaded for a source.
func (m *Metrics) RecordSource(format string, n int) {
	m.SourceBytesTotal.WithLabelValues(format).Add(float64(n))
}

// RecordCacheLookup records a document cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if hit {
		m.DocCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	m.DocCacheTotal.WithLabelValues("miss").Inc()
}

// Handler serves the metrics of g plus a health check.
func Handler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy","service":"recordflat"}`))
	})
	return mux
}

// Serve runs the metrics listener on addr until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(g),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("metrics listener started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
