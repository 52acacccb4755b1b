package visualization

import (
	"sync"
	"time"

	"github.com/prathyushnallamothu/swarmollama"
	"github.com/prathyushnallamothu/swarmollama/llm"
)

// Hook is a swarmollama.RunHook that publishes run events to a Server
type Hook struct {
	server *Server

	mu       sync.Mutex
	handoffs map[string]map[[2]string]int // per run, count of each from→to transfer
}

// NewHook creates a hook broadcasting on server
func NewHook(server *Server) *Hook {
	return &Hook{server: server, handoffs: make(map[string]map[[2]string]int)}
}

func (h *Hook) emit(runID string, typ EventType, data interface{}) {
	h.server.BroadcastEvent(Event{
		Type:      typ,
		RunID:     runID,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// OnRunStart is called when a run starts
func (h *Hook) OnRunStart(runID string, agent *swarmollama.Agent) {
	functions := make([]string, 0)
	for _, fn := range agent.Functions() {
		functions = append(functions, fn.Name)
	}
	h.emit(runID, EventRunStarted, RunStartedData{AgentName: agent.Name(), Functions: functions})
}

// OnTurnStart is called before each backend call
func (h *Hook) OnTurnStart(runID string, agent *swarmollama.Agent, turn int) {
	h.emit(runID, EventAgentStarted, AgentStartedData{AgentName: agent.Name(), Turn: turn})
}

// OnTurnComplete is called when the backend replied
func (h *Hook) OnTurnComplete(runID string, agent *swarmollama.Agent, turn int, duration time.Duration) {
	h.emit(runID, EventAgentCompleted, AgentCompletedData{
		AgentName: agent.Name(),
		Turn:      turn,
		Duration:  duration,
	})
}

// OnBackendError is called for every failed backend attempt
func (h *Hook) OnBackendError(runID string, agent *swarmollama.Agent, turn, attempt int, err error) {
	h.emit(runID, EventBackendError, BackendErrorData{
		AgentName: agent.Name(),
		Turn:      turn,
		Attempt:   attempt,
		Error:     err.Error(),
	})
}

// OnToolCall is called after a function call was resolved
func (h *Hook) OnToolCall(runID string, agent *swarmollama.Agent, call llm.ToolCall, result swarmollama.ExecutionResult) {
	data := ToolCalledData{
		AgentName: agent.Name(),
		Function:  call.Function.Name,
		Arguments: call.Function.Arguments,
		Outcome:   result.Kind.String(),
		Result:    result.Message.Content,
	}
	if result.Err != nil {
		data.Error = result.Err.Error()
	}
	h.emit(runID, EventToolCalled, data)
}

// OnHandoff is called when control moves to another agent. A transfer seen more than
// once in the same run is also reported as a cycle.
func (h *Hook) OnHandoff(runID string, handoff swarmollama.Handoff) {
	h.emit(runID, EventHandoff, HandoffData{
		FromAgent: handoff.From,
		ToAgent:   handoff.To,
		Function:  handoff.Function,
		Turn:      handoff.Turn,
	})

	h.mu.Lock()
	counts, ok := h.handoffs[runID]
	if !ok {
		counts = make(map[[2]string]int)
		h.handoffs[runID] = counts
	}
	key := [2]string{handoff.From, handoff.To}
	counts[key]++
	count := counts[key]
	h.mu.Unlock()

	if count > 1 {
		h.emit(runID, EventCycleDetected, CycleDetectedData{
			FromAgent: handoff.From,
			ToAgent:   handoff.To,
			Count:     count,
		})
	}
}

// OnRunEnd is called when the run finished
func (h *Hook) OnRunEnd(runID string, resp swarmollama.Response, err error) {
	h.mu.Lock()
	delete(h.handoffs, runID)
	h.mu.Unlock()

	data := RunEndedData{Status: string(resp.Status), Turns: resp.Turns}
	if resp.Agent != nil {
		data.AgentName = resp.Agent.Name()
	}
	if err != nil {
		data.Error = err.Error()
	}
	h.emit(runID, EventRunEnded, data)
}
