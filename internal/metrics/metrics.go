// Package metrics provides Prometheus metrics for the daapfs mount.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Host lifecycle metrics
	hostsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "daapfs_hosts_connected",
			Help: "Number of music hosts with an open catalog session",
		},
	)

	hostConnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daapfs_host_connects_total",
			Help: "Total number of catalog connection attempts",
		},
		[]string{"result"},
	)

	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daapfs_resolutions_total",
			Help: "Total number of discovery name resolutions",
		},
		[]string{"result"},
	)

	// Content transfer metrics
	readsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daapfs_reads_total",
			Help: "Total number of file read calls",
		},
		[]string{"status"},
	)

	bytesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "daapfs_bytes_read_total",
			Help: "Total bytes returned to file readers",
		},
	)

	rangeFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "daapfs_range_fetch_duration_seconds",
			Help:    "Time spent fetching a byte range from a remote catalog",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Result label values
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultEmpty   = "empty"
	ResultStale   = "stale"
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetHostsConnected sets the connected hosts gauge.
func SetHostsConnected(count int) {
	hostsConnected.Set(float64(count))
}

// RecordHostConnect records the outcome of connecting to a resolved host.
func RecordHostConnect(result string) {
	hostConnectsTotal.WithLabelValues(result).Inc()
}

// RecordResolution records the outcome of resolving an announced name.
func RecordResolution(success bool) {
	resolutionsTotal.WithLabelValues(status(success)).Inc()
}

// RecordRead records a read call and the bytes it returned.
func RecordRead(bytes int, success bool) {
	bytesRead.Add(float64(bytes))
	readsTotal.WithLabelValues(status(success)).Inc()
}

// RecordRangeFetch records the duration of one remote range fetch.
func RecordRangeFetch(duration time.Duration) {
	rangeFetchDuration.Observe(duration.Seconds())
}

func status(success bool) string {
	if success {
		return ResultSuccess
	}
	return ResultError
}
