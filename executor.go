package swarmollama

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prathyushnallamothu/swarmollama/llm"
)

// ExecutionKind tells the loop what a function call amounted to
type ExecutionKind int

const (
	ExecutionReply ExecutionKind = iota
	ExecutionHandoff
	ExecutionNotFound
)

func (k ExecutionKind) String() string {
	switch k {
	case ExecutionHandoff:
		return "handoff"
	case ExecutionNotFound:
		return "not_found"
	default:
		return "reply"
	}
}

// ExecutionResult is the outcome of ExecuteToolCall
type ExecutionResult struct {
	Kind ExecutionKind
	// Message is the tool message to append. Empty for ExecutionNotFound.
	Message llm.Message
	// Agent is the handoff target for ExecutionHandoff.
	Agent *Agent
	// ContextVariables holds updates returned by the function.
	ContextVariables map[string]interface{}
	// Err is a *FunctionNotFoundError or *FunctionExecutionError. Neither aborts a run.
	Err      error
	Duration time.Duration
}

// handoffRecord is the tool message content documenting a transfer
func handoffRecord(agent *Agent) string {
	data, _ := json.Marshal(map[string]string{"assistant": agent.name})
	return string(data)
}

// ExecuteToolCall resolves call against agent's function set and runs it with the raw
// argument text. Function errors and panics are reported in the result, never raised.
func ExecuteToolCall(ctx context.Context, agent *Agent, call llm.ToolCall, contextVariables map[string]interface{}) ExecutionResult {
	name := call.Function.Name
	fn, ok := agent.Function(name)
	if !ok {
		return ExecutionResult{
			Kind: ExecutionNotFound,
			Err:  &FunctionNotFoundError{Agent: agent.name, Function: name},
		}
	}

	start := time.Now()
	var (
		result Result
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &panicError{val: r}
			}
		}()
		result, err = fn.Function(ctx, call.Function.Arguments, cloneContext(contextVariables))
	}()
	dur := time.Since(start)

	toolMessage := llm.Message{
		Role:       llm.RoleTool,
		Name:       name,
		ToolCallID: call.ID,
	}

	if err != nil {
		toolMessage.Content = fmt.Sprintf("Error: %v", err)
		return ExecutionResult{
			Kind:     ExecutionReply,
			Message:  toolMessage,
			Err:      &FunctionExecutionError{Agent: agent.name, Function: name, CallID: call.ID, Err: err},
			Duration: dur,
		}
	}

	if result.Agent != nil {
		toolMessage.Content = handoffRecord(result.Agent)
		return ExecutionResult{
			Kind:             ExecutionHandoff,
			Message:          toolMessage,
			Agent:            result.Agent,
			ContextVariables: result.ContextVariables,
			Duration:         dur,
		}
	}

	toolMessage.Content = result.Value
	return ExecutionResult{
		Kind:             ExecutionReply,
		Message:          toolMessage,
		ContextVariables: result.ContextVariables,
		Duration:         dur,
	}
}
