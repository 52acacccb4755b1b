package swarmollama

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prathyushnallamothu/swarmollama/llm"
)

func toolCall(name, args string) llm.ToolCall {
	return llm.ToolCall{ID: "call_1", Type: "function", Function: llm.ToolCallFunction{Name: name, Arguments: args}}
}

// TestExecuteToolCallReply tests a function returning a plain value
func TestExecuteToolCallReply(t *testing.T) {
	var seen map[string]interface{}
	agent := MustNewAgent("Agent", "m", WithFunctions(AgentFunction{
		Name: "echo",
		Function: func(_ context.Context, args string, cv map[string]interface{}) (Result, error) {
			seen = cv
			cv["mutated"] = true
			return Result{Value: "echo: " + args, ContextVariables: map[string]interface{}{"echoed": args}}, nil
		},
	}))
	vars := map[string]interface{}{"user": "james"}

	result := ExecuteToolCall(context.Background(), agent, toolCall("echo", "hi"), vars)

	assert.Equal(t, ExecutionReply, result.Kind)
	assert.NoError(t, result.Err)
	assert.Equal(t, llm.Message{Role: llm.RoleTool, Name: "echo", ToolCallID: "call_1", Content: "echo: hi"}, result.Message)
	assert.Equal(t, map[string]interface{}{"echoed": "hi"}, result.ContextVariables)
	assert.Equal(t, "james", seen["user"])
	assert.NotContains(t, vars, "mutated")
}

// TestExecuteToolCallHandoff tests a function that returns an agent
func TestExecuteToolCallHandoff(t *testing.T) {
	target := MustNewAgent("Spanish Agent", "m")
	agent := MustNewAgent("English Agent", "m", WithFunctions(TransferTo("transfer", "", func() *Agent { return target })))

	result := ExecuteToolCall(context.Background(), agent, toolCall("transfer", "{}"), nil)

	assert.Equal(t, ExecutionHandoff, result.Kind)
	assert.Same(t, target, result.Agent)
	assert.JSONEq(t, `{"assistant":"Spanish Agent"}`, result.Message.Content)
	assert.Equal(t, "handoff", result.Kind.String())
}

// TestExecuteToolCallHandoffTargetMissing tests a transfer whose target is not built
func TestExecuteToolCallHandoffTargetMissing(t *testing.T) {
	agent := MustNewAgent("Agent", "m", WithFunctions(TransferTo("transfer", "", func() *Agent { return nil })))

	result := ExecuteToolCall(context.Background(), agent, toolCall("transfer", "{}"), nil)

	assert.Equal(t, ExecutionReply, result.Kind)
	var execErr *FunctionExecutionError
	require.ErrorAs(t, result.Err, &execErr)
	assert.Equal(t, "Error: handoff target is not available", result.Message.Content)
}

// TestExecuteToolCallNotFound tests a call to an unknown function
func TestExecuteToolCallNotFound(t *testing.T) {
	agent := MustNewAgent("Agent", "m")

	result := ExecuteToolCall(context.Background(), agent, toolCall("missing", "{}"), nil)

	assert.Equal(t, ExecutionNotFound, result.Kind)
	assert.Equal(t, llm.Message{}, result.Message)
	var notFound *FunctionNotFoundError
	require.ErrorAs(t, result.Err, &notFound)
	assert.Equal(t, `agent "Agent" has no function "missing"`, notFound.Error())
	assert.Equal(t, "not_found", result.Kind.String())
}

// TestExecuteToolCallErrors tests that failures become tool messages
func TestExecuteToolCallErrors(t *testing.T) {
	cause := errors.New("database offline")
	agent := MustNewAgent("Agent", "m", WithFunctions(
		AgentFunction{Name: "fails", Function: func(context.Context, string, map[string]interface{}) (Result, error) {
			return Result{Value: "ignored"}, cause
		}},
		AgentFunction{Name: "panics", Function: func(context.Context, string, map[string]interface{}) (Result, error) {
			var m map[string]int
			m["x"] = 1
			return Result{}, nil
		}},
	))

	result := ExecuteToolCall(context.Background(), agent, toolCall("fails", ""), nil)
	assert.Equal(t, "Error: database offline", result.Message.Content)
	assert.ErrorIs(t, result.Err, cause)

	result = ExecuteToolCall(context.Background(), agent, toolCall("panics", ""), nil)
	assert.Contains(t, result.Message.Content, "Error: panic: assignment to entry in nil map")
	var execErr *FunctionExecutionError
	require.ErrorAs(t, result.Err, &execErr)
	assert.Equal(t, "panics", execErr.Function)
}
