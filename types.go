package swarmollama

import (
	"github.com/prathyushnallamothu/swarmollama/llm"
)

// RunStatus describes how a run ended
type RunStatus string

const (
	StatusCompleted        RunStatus = "completed"
	StatusMaxTurnsExceeded RunStatus = "max_turns_exceeded"
	StatusCancelled        RunStatus = "cancelled"
	StatusFailed           RunStatus = "failed"
)

// Response represents the outcome of a run: the transcript, the agent active at the end
// and the final context variables
type Response struct {
	Messages         []llm.Message          // Caller history followed by every message the run produced
	Agent            *Agent                 // Agent active when the run ended
	ContextVariables map[string]interface{} // Context variables after all function results were applied
	Status           RunStatus
	Turns            int       // Backend request/response cycles performed
	Handoffs         []Handoff // Agent switches in order
	Errors           []error   // Recovered function errors, oldest first
}

// MaxTurnsExceeded reports whether the run stopped on its turn budget
func (r Response) MaxTurnsExceeded() bool { return r.Status == StatusMaxTurnsExceeded }

// Cancelled reports whether the run stopped because its context was done
func (r Response) Cancelled() bool { return r.Status == StatusCancelled }

// LastMessage returns the final message of the transcript, or nil if it is empty
func (r Response) LastMessage() *llm.Message {
	if len(r.Messages) == 0 {
		return nil
	}
	return &r.Messages[len(r.Messages)-1]
}

// Result represents the outcome of a function call
type Result struct {
	Value            string                 // Text appended to the transcript as the tool result
	Agent            *Agent                 // When set, control is handed off to this agent
	ContextVariables map[string]interface{} // Updates merged into the run's context variables
}

// Handoff records one transfer of control between agents
type Handoff struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Function string `json:"function"`
	Turn     int    `json:"turn"`
}
