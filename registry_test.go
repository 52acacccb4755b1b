package swarmollama

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	sales := MustNewAgent("sales", "m")
	triage := MustNewAgent("triage", "m")

	r, err := NewRegistry(triage, sales)
	require.NoError(t, err)

	got, err := r.Lookup("sales")
	require.NoError(t, err)
	assert.Same(t, sales, got)

	_, err = r.Lookup("refunds")
	var unknown *UnknownAgentError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "refunds", unknown.Name)

	err = r.Register(MustNewAgent("sales", "other"))
	var dup *DuplicateAgentError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, `agent "sales" is already registered`, dup.Error())

	assert.ErrorIs(t, r.Register(nil), ErrNilAgent)

	agents := r.Agents()
	require.Len(t, agents, 2)
	assert.Equal(t, "sales", agents[0].Name())
	assert.Equal(t, "triage", agents[1].Name())
}

func TestRegistryFreeze(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	require.NoError(t, r.Register(MustNewAgent("a", "m")))

	r.Freeze()
	assert.True(t, r.Frozen())
	assert.ErrorIs(t, r.Register(MustNewAgent("b", "m")), ErrRegistryFrozen)

	_, err = r.Lookup("a")
	assert.NoError(t, err)
}

func TestNewRegistryDuplicate(t *testing.T) {
	_, err := NewRegistry(MustNewAgent("a", "m"), MustNewAgent("a", "m"))
	var dup *DuplicateAgentError
	assert.ErrorAs(t, err, &dup)
}

func TestRegistryConcurrentLookups(t *testing.T) {
	r, err := NewRegistry(MustNewAgent("a", "m"))
	require.NoError(t, err)
	r.Freeze()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Lookup("a")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestNewAgentValidation(t *testing.T) {
	noop := func(context.Context, string, map[string]interface{}) (Result, error) { return Result{}, nil }

	_, err := NewAgent("a", "m", WithFunctions(AgentFunction{Name: "bad-name", Function: noop}))
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = NewAgent("a", "m", WithFunctions(AgentFunction{Name: "f", Function: noop}, AgentFunction{Name: "f", Function: noop}))
	assert.ErrorIs(t, err, ErrDuplicateFunction)

	_, err = NewAgent("a", "m", WithFunctions(AgentFunction{Name: "f"}))
	assert.Error(t, err)

	assert.Panics(t, func() { MustNewAgent("a", "m", WithFunctions(AgentFunction{Name: "1f", Function: noop})) })

	agent, err := NewAgent("a", "m",
		WithFunctions(AgentFunction{Name: "first", Function: noop}),
		WithFunctions(AgentFunction{Name: "second", Function: noop}),
	)
	require.NoError(t, err)
	assert.Equal(t, "m", agent.Model())

	fns := agent.Functions()
	require.Len(t, fns, 2)
	assert.Equal(t, "first", fns[0].Name)
	fns[0].Name = "changed"
	_, ok := agent.Function("first")
	assert.True(t, ok)
	_, ok = agent.Function("changed")
	assert.False(t, ok)
}
