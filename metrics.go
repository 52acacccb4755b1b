package swarmollama

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/prathyushnallamothu/swarmollama/llm"
)

// MetricsHook is a RunHook recording run, turn, function and handoff metrics
type MetricsHook struct {
	DefaultRunHook

	runs          *prometheus.CounterVec
	turnDuration  *prometheus.HistogramVec
	backendErrors *prometheus.CounterVec
	toolCalls     *prometheus.CounterVec
	toolDuration  *prometheus.HistogramVec
	handoffs      *prometheus.CounterVec
}

// NewMetricsHook creates the collectors and registers them with reg
func NewMetricsHook(reg prometheus.Registerer) (*MetricsHook, error) {
	m := &MetricsHook{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swarmollama_runs_total",
			Help: "Total runs by final status.",
		}, []string{"status"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swarmollama_turn_duration_seconds",
			Help:    "Backend call duration per turn in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"agent"}),
		backendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swarmollama_backend_errors_total",
			Help: "Backend errors by kind.",
		}, []string{"kind"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swarmollama_tool_calls_total",
			Help: "Function calls by agent, function and outcome.",
		}, []string{"agent", "function", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "swarmollama_tool_duration_seconds",
			Help:    "Function execution duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"function"}),
		handoffs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "swarmollama_handoffs_total",
			Help: "Agent handoffs by source and target.",
		}, []string{"from", "to"}),
	}

	for _, c := range []prometheus.Collector{m.runs, m.turnDuration, m.backendErrors, m.toolCalls, m.toolDuration, m.handoffs} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *MetricsHook) OnTurnComplete(_ string, agent *Agent, _ int, duration time.Duration) {
	m.turnDuration.WithLabelValues(agent.Name()).Observe(duration.Seconds())
}

func (m *MetricsHook) OnBackendError(_ string, _ *Agent, _, _ int, err error) {
	kind := "unknown"
	if k, ok := llm.KindOf(err); ok {
		kind = k.String()
	}
	m.backendErrors.WithLabelValues(kind).Inc()
}

func (m *MetricsHook) OnToolCall(_ string, agent *Agent, call llm.ToolCall, result ExecutionResult) {
	outcome := result.Kind.String()
	if result.Kind == ExecutionReply && result.Err != nil {
		outcome = "error"
	}
	m.toolCalls.WithLabelValues(agent.Name(), call.Function.Name, outcome).Inc()
	if result.Kind != ExecutionNotFound {
		m.toolDuration.WithLabelValues(call.Function.Name).Observe(result.Duration.Seconds())
	}
}

func (m *MetricsHook) OnHandoff(_ string, handoff Handoff) {
	m.handoffs.WithLabelValues(handoff.From, handoff.To).Inc()
}

func (m *MetricsHook) OnRunEnd(_ string, resp Response, _ error) {
	status := resp.Status
	if status == "" {
		status = StatusFailed
	}
	m.runs.WithLabelValues(string(status)).Inc()
}
