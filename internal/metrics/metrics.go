// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts served requests by method, route pattern and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uch_http_requests_total",
		Help: "Total number of HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	// HTTPDuration records request latency by method and route pattern.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "uch_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// ContextProcessorFailures counts sidebar processors that fell back to
	// empty values.
	ContextProcessorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uch_context_processor_failures_total",
		Help: "Total number of template context processor failures by processor",
	}, []string{"processor"})

	// PageCacheLookups counts page cache hits and misses.
	PageCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uch_page_cache_lookups_total",
		Help: "Total number of page cache lookups by result",
	}, []string{"result"})

	// CommentsPosted counts comments submitted by readers.
	CommentsPosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uch_comments_posted_total",
		Help: "Total number of comments submitted",
	})

	// MediaUploads counts stored uploads by classified file type.
	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uch_media_uploads_total",
		Help: "Total number of media uploads by file type",
	}, []string{"file_type"})
)

// Handler returns the Prometheus exposition handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
