package swarmollama

import (
	"errors"
	"fmt"

	"github.com/prathyushnallamothu/swarmollama/llm"
)

var (
	// Define common errors for better error handling
	ErrNilAgent          = errors.New("agent cannot be nil")
	ErrLLMClientNotReady = errors.New("LLM client is not initialized")
	ErrRegistryFrozen    = errors.New("agent registry is frozen")
	ErrInvalidName       = errors.New("function name must match [A-Za-z_][A-Za-z0-9_]*")
	ErrDuplicateFunction = errors.New("duplicate function name")

	// Backend failures, re-exported from the llm package
	ErrBackendUnreachable = llm.ErrBackendUnreachable
	ErrModel              = llm.ErrModel
	ErrAdapter            = llm.ErrAdapter
)

// DuplicateAgentError is returned when a registry already holds an agent with the same name
type DuplicateAgentError struct {
	Name string
}

func (e *DuplicateAgentError) Error() string {
	return fmt.Sprintf("agent %q is already registered", e.Name)
}

// UnknownAgentError is returned when a registry lookup misses
type UnknownAgentError struct {
	Name string
}

func (e *UnknownAgentError) Error() string {
	return fmt.Sprintf("unknown agent %q", e.Name)
}

// InstructionError wraps a failure of an agent's dynamic instructions. It aborts the run.
type InstructionError struct {
	Agent string
	Err   error
}

func (e *InstructionError) Error() string {
	return fmt.Sprintf("instructions for agent %q failed: %v", e.Agent, e.Err)
}

func (e *InstructionError) Unwrap() error { return e.Err }

// FunctionNotFoundError records a call to a name the active agent does not expose
type FunctionNotFoundError struct {
	Agent    string
	Function string
}

func (e *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("agent %q has no function %q", e.Agent, e.Function)
}

// FunctionExecutionError records a function that returned an error or panicked.
// The run continues with the error text in place of the function result.
type FunctionExecutionError struct {
	Agent    string
	Function string
	CallID   string
	Err      error
}

func (e *FunctionExecutionError) Error() string {
	return fmt.Sprintf("function %q of agent %q failed: %v", e.Function, e.Agent, e.Err)
}

func (e *FunctionExecutionError) Unwrap() error { return e.Err }

// panicError turns a recovered panic value into an error
type panicError struct {
	val any
}

func (p *panicError) Error() string { return fmt.Sprintf("panic: %v", p.val) }
