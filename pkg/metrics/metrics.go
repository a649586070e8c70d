// Package metrics exposes the service's Prometheus collectors. Importing
// the package registers them on the default registry; NewServer serves them
// on a dedicated listener so scrapes bypass the tenant API's auth stack.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Finalize outcomes recorded by RecordFinalize.
const (
	FinalizeOK      = "finalized"
	FinalizeGap     = "gap"
	FinalizeOverlap = "overlap"
	FinalizeError   = "error"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deuce_api_requests_total",
			Help: "Total API requests by route template, method and status",
		},
		[]string{"route", "method", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deuce_api_request_duration_seconds",
			Help:    "API request processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	blocksUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deuce_blocks_uploaded_total",
			Help: "Total blocks accepted through upload, batch entries included",
		},
	)

	blockBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deuce_block_bytes_total",
			Help: "Total block payload bytes accepted through upload",
		},
	)

	finalizations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deuce_file_finalizations_total",
			Help: "File finalize attempts by outcome",
		},
		[]string{"outcome"},
	)
)

// ObserveRequest records one served API request against its route template,
// so label cardinality stays bounded by the route table.
func ObserveRequest(route, method string, status int, duration time.Duration) {
	requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordBlockUpload records accepted block payloads.
func RecordBlockUpload(count int, bytes int64) {
	blocksUploaded.Add(float64(count))
	blockBytes.Add(float64(bytes))
}

// RecordFinalize records one finalize attempt.
func RecordFinalize(outcome string) {
	finalizations.WithLabelValues(outcome).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewServer builds the standalone metrics listener with the collectors
// mounted on /metrics.
func NewServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
