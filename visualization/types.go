package visualization

import (
	"time"
)

// EventType represents different types of visualization events
type EventType string

const (
	EventRunStarted     EventType = "run_started"
	EventAgentStarted   EventType = "agent_started"
	EventAgentCompleted EventType = "agent_completed"
	EventBackendError   EventType = "backend_error"
	EventToolCalled     EventType = "tool_called"
	EventHandoff        EventType = "handoff"
	EventCycleDetected  EventType = "cycle_detected"
	EventRunEnded       EventType = "run_ended"
)

// Event represents a visualization event
type Event struct {
	Type      EventType   `json:"type"`
	RunID     string      `json:"run_id"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// RunStartedData represents data for run started event
type RunStartedData struct {
	AgentName string   `json:"agent_name"`
	Functions []string `json:"functions"`
}

// AgentStartedData represents data for agent started event
type AgentStartedData struct {
	AgentName string `json:"agent_name"`
	Turn      int    `json:"turn"`
}

// AgentCompletedData represents data for agent completed event
type AgentCompletedData struct {
	AgentName string        `json:"agent_name"`
	Turn      int           `json:"turn"`
	Duration  time.Duration `json:"duration"`
}

// BackendErrorData represents data for backend error event
type BackendErrorData struct {
	AgentName string `json:"agent_name"`
	Turn      int    `json:"turn"`
	Attempt   int    `json:"attempt"`
	Error     string `json:"error"`
}

// ToolCalledData represents data for tool called event
type ToolCalledData struct {
	AgentName string `json:"agent_name"`
	Function  string `json:"function"`
	Arguments string `json:"arguments"`
	Outcome   string `json:"outcome"`
	Result    string `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandoffData represents data for handoff event
type HandoffData struct {
	FromAgent string `json:"from_agent"`
	ToAgent   string `json:"to_agent"`
	Function  string `json:"function"`
	Turn      int    `json:"turn"`
}

// CycleDetectedData represents data for cycle detection event
type CycleDetectedData struct {
	FromAgent string `json:"from_agent"`
	ToAgent   string `json:"to_agent"`
	Count     int    `json:"count"`
}

// RunEndedData represents data for run ended event
type RunEndedData struct {
	AgentName string `json:"agent_name"`
	Status    string `json:"status"`
	Turns     int    `json:"turns"`
	Error     string `json:"error,omitempty"`
}
