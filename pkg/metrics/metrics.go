// Package metrics provides Prometheus observability for the tap: API call
// volume and latency, per-stream record counts, export job polling, and
// whole-sync durations.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequests tracks outbound API calls.
	// Labels: endpoint (request path template), method, status.
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tap_intercom_api_requests_total",
			Help: "Total number of API requests issued",
		},
		[]string{"endpoint", "method", "status"},
	)

	// RequestDuration tracks the distribution of API request latencies.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "tap_intercom_request_duration_seconds",
			Help: "API request latency in seconds",
			Buckets: []float64{
				0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
			},
		},
		[]string{"endpoint"},
	)

	// RecordsExtracted tracks records emitted per stream.
	RecordsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tap_intercom_records_extracted_total",
			Help: "Total number of records extracted",
		},
		[]string{"stream"},
	)

	// ExportPolls tracks content-export job status polls.
	// Labels: status (pending, completed, failed, no_data).
	ExportPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tap_intercom_export_polls_total",
			Help: "Total number of content export status polls",
		},
		[]string{"status"},
	)

	// StreamDuration tracks how long each stream takes to sync.
	StreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tap_intercom_stream_sync_duration_seconds",
			Help:    "Per-stream sync duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
		[]string{"stream"},
	)
)

// Collector provides a per-component handle over the shared metric vectors,
// mirroring how each connector owns its own recording surface.
type Collector struct {
	name      string
	startTime time.Time
	mu        sync.RWMutex
	counts    map[string]int64
}

// NewCollector creates a new metrics collector for a component.
func NewCollector(name string) *Collector {
	return &Collector{
		name:      name,
		startTime: time.Now(),
		counts:    make(map[string]int64),
	}
}

// StartTime returns when the collector was created.
func (c *Collector) StartTime() time.Time {
	return c.startTime
}

// ObserveRequest records one API request with its outcome and latency.
func (c *Collector) ObserveRequest(endpoint, method, status string, elapsed time.Duration) {
	APIRequests.WithLabelValues(endpoint, method, status).Inc()
	RequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
	c.bump("api_requests")
}

// AddRecords records extracted records for a stream.
func (c *Collector) AddRecords(stream string, n int64) {
	if n <= 0 {
		return
	}
	RecordsExtracted.WithLabelValues(stream).Add(float64(n))
	c.bump("records_extracted")
}

// ObserveExportPoll records one export status poll result.
func (c *Collector) ObserveExportPoll(status string) {
	ExportPolls.WithLabelValues(status).Inc()
	c.bump("export_polls")
}

// ObserveStream records a completed stream sync.
func (c *Collector) ObserveStream(stream string, elapsed time.Duration) {
	StreamDuration.WithLabelValues(stream).Observe(elapsed.Seconds())
}

func (c *Collector) bump(key string) {
	c.mu.Lock()
	c.counts[key]++
	c.mu.Unlock()
}

// GetAll returns a snapshot of locally tracked metric values.
func (c *Collector) GetAll() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := map[string]interface{}{
		"component":  c.name,
		"start_time": c.startTime,
		"uptime":     time.Since(c.startTime).Seconds(),
	}
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
