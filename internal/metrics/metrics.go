// ABOUTME: Prometheus metrics for tool dispatch and category activation
// ABOUTME: Collectors register via promauto; Handler exposes the scrape endpoint

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Counter for tool calls by tool name and status
	toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_gateway_tool_calls_total",
			Help: "Total number of tool calls by tool name and status",
		},
		[]string{"tool_name", "status"},
	)

	// Histogram for tool execution duration
	toolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_gateway_tool_duration_seconds",
			Help:    "Duration of tool calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool_name"},
	)

	// Counter for category activations by category and outcome
	activationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_gateway_category_activations_total",
			Help: "Total number of category activation requests by category and outcome",
		},
		[]string{"category", "outcome"},
	)
)

// RecordToolCall records one completed tool call.
func RecordToolCall(tool string, isError bool, duration time.Duration) {
	status := "success"
	if isError {
		status = "error"
	}
	toolCallsTotal.WithLabelValues(tool, status).Inc()
	toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordActivation records one activation request. Outcome is one of
// "activated", "already_active", or "unknown_category".
func RecordActivation(category, outcome string) {
	activationsTotal.WithLabelValues(category, outcome).Inc()
}

// Handler returns the Prometheus scrape handler for the HTTP mux.
func Handler() http.Handler {
	return promhttp.Handler()
}
