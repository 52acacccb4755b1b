package swarmollama

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunctionGuidance(t *testing.T) {
	assert.Empty(t, FunctionGuidance(nil))
	assert.Empty(t, FunctionGuidance(MustNewAgent("plain", "m")))

	agent := MustNewAgent("a", "m", WithFunctions(
		AgentFunction{
			Name:        "get_weather",
			Description: "Get the weather",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"location": map[string]interface{}{"type": "string"}},
			},
			Function: func(context.Context, string, map[string]interface{}) (Result, error) { return Result{}, nil },
		},
		AgentFunction{
			Name:     "ping",
			Function: func(context.Context, string, map[string]interface{}) (Result, error) { return Result{}, nil },
		},
	))

	guidance := FunctionGuidance(agent)

	require.True(t, strings.HasPrefix(guidance, "You can use the following functions:\n\n"))
	assert.True(t, strings.HasSuffix(guidance, "Only use one function per response and only when necessary."))
	assert.Contains(t, guidance, "[function_name(arguments)]")

	start := strings.Index(guidance, "[\n")
	end := strings.Index(guidance, "\n]") + 2
	var catalog []functionSpec
	require.NoError(t, json.Unmarshal([]byte(guidance[start:end]), &catalog))
	require.Len(t, catalog, 2)
	assert.Equal(t, "get_weather", catalog[0].Name)
	assert.Equal(t, "Get the weather", catalog[0].Description)
	assert.Equal(t, "ping", catalog[1].Name)
	assert.Equal(t, "object", catalog[1].Parameters["type"])
}
