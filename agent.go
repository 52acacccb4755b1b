package swarmollama

import (
	"context"
	"errors"
	"fmt"
)

// Agent represents a persona with its own model, instructions and function set.
// An Agent is immutable once built and may be shared by concurrent runs.
type Agent struct {
	name         string
	model        string
	instructions Instructions
	functions    []AgentFunction
	index        map[string]int
}

// AgentFunction represents a function that an agent can perform.
type AgentFunction struct {
	Name        string                 // The name the model uses in [name(args)].
	Description string                 // A brief description of what the function does.
	Parameters  map[string]interface{} // JSON schema of the expected arguments, advertised only.
	// Function receives the raw argument text exactly as the model wrote it.
	Function func(ctx context.Context, args string, contextVariables map[string]interface{}) (Result, error)
}

// AgentOption configures an agent under construction
type AgentOption func(*Agent)

// WithInstructions sets fixed instructions
func WithInstructions(text string) AgentOption {
	return func(a *Agent) { a.instructions = StaticInstructions(text) }
}

// WithInstructionsFunc sets instructions computed from the context variables on every turn
func WithInstructionsFunc(fn InstructionsFunc) AgentOption {
	return func(a *Agent) { a.instructions = DynamicInstructions(fn) }
}

// WithInstructionTemplate sets instructions rendered from {name} placeholders
func WithInstructionTemplate(template string) AgentOption {
	return func(a *Agent) { a.instructions = TemplateInstructions(template) }
}

// WithFunctions adds functions to the agent's function set
func WithFunctions(functions ...AgentFunction) AgentOption {
	return func(a *Agent) { a.functions = append(a.functions, functions...) }
}

// NewAgent creates an agent. Function names must be valid identifiers and unique.
func NewAgent(name, model string, opts ...AgentOption) (*Agent, error) {
	a := &Agent{name: name, model: model}
	for _, opt := range opts {
		opt(a)
	}

	a.index = make(map[string]int, len(a.functions))
	for i, fn := range a.functions {
		if !identifierPattern.MatchString(fn.Name) {
			return nil, fmt.Errorf("agent %q: function %q: %w", name, fn.Name, ErrInvalidName)
		}
		if fn.Function == nil {
			return nil, fmt.Errorf("agent %q: function %q has no implementation", name, fn.Name)
		}
		if _, dup := a.index[fn.Name]; dup {
			return nil, fmt.Errorf("agent %q: function %q: %w", name, fn.Name, ErrDuplicateFunction)
		}
		a.index[fn.Name] = i
	}
	return a, nil
}

// MustNewAgent is like NewAgent but panics on error
func MustNewAgent(name, model string, opts ...AgentOption) *Agent {
	a, err := NewAgent(name, model, opts...)
	if err != nil {
		panic(err)
	}
	return a
}

// Name returns the display name
func (a *Agent) Name() string { return a.name }

// Model returns the model identifier passed to the backend
func (a *Agent) Model() string { return a.model }

// Instructions returns the instruction source
func (a *Agent) Instructions() Instructions { return a.instructions }

// Functions returns a copy of the function set in declaration order
func (a *Agent) Functions() []AgentFunction {
	out := make([]AgentFunction, len(a.functions))
	copy(out, a.functions)
	return out
}

// Function looks up a function by name
func (a *Agent) Function(name string) (AgentFunction, bool) {
	i, ok := a.index[name]
	if !ok {
		return AgentFunction{}, false
	}
	return a.functions[i], true
}

// TransferTo builds a handoff function. target is evaluated at call time, so agents may
// reference each other before both are constructed.
func TransferTo(name, description string, target func() *Agent) AgentFunction {
	return AgentFunction{
		Name:        name,
		Description: description,
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
		Function: func(ctx context.Context, args string, contextVariables map[string]interface{}) (Result, error) {
			next := target()
			if next == nil {
				return Result{}, errors.New("handoff target is not available")
			}
			return Result{Agent: next}, nil
		},
	}
}
