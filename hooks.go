package swarmollama

import (
	"time"

	"github.com/prathyushnallamothu/swarmollama/llm"
)

// RunHook observes a run. Hooks are called synchronously from the run's goroutine and
// must not block.
type RunHook interface {
	OnRunStart(runID string, agent *Agent)
	OnTurnStart(runID string, agent *Agent, turn int)
	OnTurnComplete(runID string, agent *Agent, turn int, duration time.Duration)
	OnBackendError(runID string, agent *Agent, turn, attempt int, err error)
	OnToolCall(runID string, agent *Agent, call llm.ToolCall, result ExecutionResult)
	OnHandoff(runID string, handoff Handoff)
	OnRunEnd(runID string, resp Response, err error)
}

// DefaultRunHook implements RunHook with no-ops; embed it to override selectively
type DefaultRunHook struct{}

func (DefaultRunHook) OnRunStart(string, *Agent) {}
func (DefaultRunHook) OnTurnStart(string, *Agent, int) {}
func (DefaultRunHook) OnTurnComplete(string, *Agent, int, time.Duration) {}
func (DefaultRunHook) OnBackendError(string, *Agent, int, int, error) {}
func (DefaultRunHook) OnToolCall(string, *Agent, llm.ToolCall, ExecutionResult) {}
func (DefaultRunHook) OnHandoff(string, Handoff) {}
func (DefaultRunHook) OnRunEnd(string, Response, error) {}

// MultiHook fans events out to several hooks in order
type MultiHook []RunHook

func (m MultiHook) OnRunStart(runID string, agent *Agent) {
	for _, h := range m {
		h.OnRunStart(runID, agent)
	}
}

func (m MultiHook) OnTurnStart(runID string, agent *Agent, turn int) {
	for _, h := range m {
		h.OnTurnStart(runID, agent, turn)
	}
}

func (m MultiHook) OnTurnComplete(runID string, agent *Agent, turn int, duration time.Duration) {
	for _, h := range m {
		h.OnTurnComplete(runID, agent, turn, duration)
	}
}

func (m MultiHook) OnBackendError(runID string, agent *Agent, turn, attempt int, err error) {
	for _, h := range m {
		h.OnBackendError(runID, agent, turn, attempt, err)
	}
}

func (m MultiHook) OnToolCall(runID string, agent *Agent, call llm.ToolCall, result ExecutionResult) {
	for _, h := range m {
		h.OnToolCall(runID, agent, call, result)
	}
}

func (m MultiHook) OnHandoff(runID string, handoff Handoff) {
	for _, h := range m {
		h.OnHandoff(runID, handoff)
	}
}

func (m MultiHook) OnRunEnd(runID string, resp Response, err error) {
	for _, h := range m {
		h.OnRunEnd(runID, resp, err)
	}
}
