package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var Metrics = struct {
	TasksTotal         *prometheus.CounterVec
	TaskDuration       *prometheus.HistogramVec
	ClientAttempts     *prometheus.CounterVec
	ClientRetries      *prometheus.CounterVec
	DiscoveryFailures  *prometheus.CounterVec
	WorkflowRuns       *prometheus.CounterVec
	TelegramDeliveries *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec
	LLMRequestsTotal   *prometheus.CounterVec
	LLMLatency         *prometheus.HistogramVec
}{
	TasksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weeklypreview",
		Name:      "tasks_total",
		Help:      "Tasks reaching a terminal state by agent and state.",
	}, []string{"agent", "state"}),

	TaskDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "weeklypreview",
		Name:      "task_duration_seconds",
		Help:      "Time spent running an action inside a task.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	}, []string{"agent", "action"}),

	ClientAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weeklypreview",
		Name:      "client_attempts_total",
		Help:      "Outbound send-message attempts by outcome (ok, timeout, failed).",
	}, []string{"outcome"}),

	ClientRetries: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weeklypreview",
		Name:      "client_retries_total",
		Help:      "Outbound send-message retries by caller.",
	}, []string{"caller"}),

	DiscoveryFailures: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weeklypreview",
		Name:      "discovery_failures_total",
		Help:      "Agent card fetches that were unreachable or invalid.",
	}, []string{"reason"}),

	WorkflowRuns: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weeklypreview",
		Name:      "workflow_runs_total",
		Help:      "Weekly preview workflow runs by status.",
	}, []string{"status"}),

	TelegramDeliveries: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weeklypreview",
		Name:      "telegram_deliveries_total",
		Help:      "Telegram deliveries by status.",
	}, []string{"status"}),

	ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weeklypreview",
		Name:      "errors_total",
		Help:      "Total errors by component.",
	}, []string{"component"}),

	LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weeklypreview",
		Name:      "llm_requests_total",
		Help:      "Total LLM API requests by provider and model.",
	}, []string{"provider", "model"}),

	LLMLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "weeklypreview",
		Name:      "llm_latency_seconds",
		Help:      "LLM request latency in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"provider", "model"}),
}
