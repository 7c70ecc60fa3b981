// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the funcall gateway.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// ToolBuckets defines histogram buckets for capability invocations,
// ranging from 1ms to 30s.
var ToolBuckets = []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funcall_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "funcall_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// RequestsInFlight tracks HTTP requests currently being served.
	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "funcall_requests_in_flight",
			Help: "Requests currently being served",
		},
	)

	// ActiveConversations tracks orchestration loops currently running.
	ActiveConversations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "funcall_conversations_active",
			Help: "Orchestration loops in flight",
		},
	)

	// ConversationsTotal counts finished orchestration loops by terminal state.
	ConversationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funcall_conversations_total",
			Help: "Finished orchestration loops",
		},
		[]string{"outcome"},
	)

	// ConversationIterations records how many model round-trips a loop used.
	ConversationIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "funcall_conversation_iterations",
			Help:    "Model round-trips per orchestration loop",
			Buckets: []float64{1, 2, 3, 4, 5, 7, 10, 15, 20},
		},
	)

	// ProviderRequestsTotal counts requests sent to the inference endpoint
	// by dialect and outcome.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funcall_provider_requests_total",
			Help: "Provider requests",
		},
		[]string{"provider", "dialect", "status"},
	)

	// ProviderLatency records inference endpoint latency in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "funcall_provider_latency_seconds",
			Help:    "Provider latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "dialect"},
	)

	// ProviderTokensTotal counts tokens processed by direction (input/output).
	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funcall_provider_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)

	// ProviderFallbacksTotal counts steps down the protocol fallback ladder.
	ProviderFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funcall_provider_fallbacks_total",
			Help: "Protocol fallbacks",
		},
		[]string{"provider", "from", "to"},
	)

	// ToolExecutionsTotal counts capability invocations by name and outcome.
	ToolExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funcall_tool_executions_total",
			Help: "Tool executions",
		},
		[]string{"tool_name", "status"},
	)

	// ToolExecutionDuration records capability invocation time in seconds.
	ToolExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "funcall_tool_execution_duration_seconds",
			Help:    "Tool execution duration",
			Buckets: ToolBuckets,
		},
		[]string{"tool_name"},
	)

	// SessionEvictionsTotal counts conversations dropped by the session store.
	SessionEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "funcall_session_evictions_total",
			Help: "Conversations evicted from the session store",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		RequestsInFlight,
		ActiveConversations,
		ConversationsTotal,
		ConversationIterations,
		ProviderRequestsTotal,
		ProviderLatency,
		ProviderTokensTotal,
		ProviderFallbacksTotal,
		ToolExecutionsTotal,
		ToolExecutionDuration,
		SessionEvictionsTotal,
	)
}

// ObserveProviderRequest records one exchange with the inference endpoint.
// statusCode is the HTTP status, 0 for a network failure.
func ObserveProviderRequest(providerName, dialect string, statusCode int, elapsed time.Duration) {
	ProviderRequestsTotal.WithLabelValues(providerName, dialect, statusLabel(statusCode)).Inc()
	ProviderLatency.WithLabelValues(providerName, dialect).Observe(elapsed.Seconds())
}

// ObserveTokens records prompt and completion token counts.
func ObserveTokens(providerName, model string, prompt, completion int) {
	if prompt > 0 {
		ProviderTokensTotal.WithLabelValues(providerName, model, "input").Add(float64(prompt))
	}
	if completion > 0 {
		ProviderTokensTotal.WithLabelValues(providerName, model, "output").Add(float64(completion))
	}
}

// ObserveToolExecution records one capability invocation.
func ObserveToolExecution(name string, success bool, elapsed time.Duration) {
	status := "ok"
	if !success {
		status = "error"
	}
	ToolExecutionsTotal.WithLabelValues(name, status).Inc()
	ToolExecutionDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// statusLabel renders an HTTP status as a class label ("2xx", "5xx") or
// "network" for failures without a status.
func statusLabel(code int) string {
	if code == 0 {
		return "network"
	}
	return strconv.Itoa(code/100) + "xx"
}
