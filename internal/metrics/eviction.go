package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Eviction subsystem metrics
var (
	// FilesEvictedTotal tracks files successfully converted to placeholders
	FilesEvictedTotal prometheus.Counter

	// BytesReclaimedTotal tracks local bytes freed by successful evictions
	BytesReclaimedTotal prometheus.Counter

	// ErrorsTotal tracks failed eviction attempts
	ErrorsTotal prometheus.Counter

	// RunDuration tracks how long full eviction runs take
	RunDuration prometheus.Histogram

	// LastRunTimestamp records Unix timestamp of the last run
	LastRunTimestamp prometheus.Gauge

	// FreeSpacePercent tracks current free space percentage per root
	FreeSpacePercent *prometheus.GaugeVec
)

// initEvictionMetrics initializes all eviction subsystem metrics
func initEvictionMetrics() {
	FilesEvictedTotal = NewCounter(
		"icloudevict_files_evicted_total",
		"Total number of files evicted to cloud-only placeholders.",
	)

	BytesReclaimedTotal = NewCounter(
		"icloudevict_bytes_reclaimed_total",
		"Total local bytes reclaimed by successful evictions.",
	)

	ErrorsTotal = NewCounter(
		"icloudevict_errors_total",
		"Total number of failed eviction attempts.",
	)

	RunDuration = NewDurationHistogram(
		"icloudevict_run_duration_seconds",
		"Duration of eviction runs in seconds.",
	)

	LastRunTimestamp = NewGauge(
		"icloudevict_last_run_timestamp",
		"Unix timestamp of the last eviction run.",
	)

	FreeSpacePercent = NewGaugeVec(
		"icloudevict_free_space_percent",
		"Current free space percentage for the filesystem containing the root.",
		[]string{"root"},
	)
}

// registerEvictionMetrics registers all eviction metrics with Prometheus
func registerEvictionMetrics() {
	prometheus.MustRegister(FilesEvictedTotal)
	prometheus.MustRegister(BytesReclaimedTotal)
	prometheus.MustRegister(ErrorsTotal)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(LastRunTimestamp)
	prometheus.MustRegister(FreeSpacePercent)
}

// RecordRun records the timestamp of an eviction run
func RecordRun() {
	LastRunTimestamp.Set(float64(time.Now().Unix()))
}

// UpdateFreeSpacePercent updates the free space percentage for a root
func UpdateFreeSpacePercent(root string, percent float64) {
	FreeSpacePercent.WithLabelValues(root).Set(percent)
}
