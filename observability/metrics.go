package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	completionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_completion_requests_total",
		Help: "Completion service calls by round and outcome",
	}, []string{"round", "status"})

	completionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agent_completion_latency_seconds",
		Help:    "Completion service latency in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"round"})

	toolExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_tool_executions_total",
		Help: "Tool executions by tool name and outcome",
	}, []string{"tool", "status"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "code"})
)

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordCompletion records one completion round-trip.
func RecordCompletion(round string, started time.Time, success bool) {
	completionLatency.WithLabelValues(round).Observe(time.Since(started).Seconds())
	completionRequests.WithLabelValues(round, outcome(success)).Inc()
}

// RecordToolExecution records one tool run.
func RecordToolExecution(tool string, success bool) {
	toolExecutions.WithLabelValues(tool, outcome(success)).Inc()
}

// RecordHTTPRequest records a served request.
func RecordHTTPRequest(route, code string) {
	httpRequests.WithLabelValues(route, code).Inc()
}
