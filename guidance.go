package swarmollama

import (
	"encoding/json"
	"strings"
)

type functionSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// FunctionGuidance describes an agent's functions and the [name(args)] calling
// convention in a form that can be appended to a system prompt. It returns an empty
// string for agents without functions.
func FunctionGuidance(agent *Agent) string {
	if agent == nil || len(agent.functions) == 0 {
		return ""
	}

	specs := make([]functionSpec, len(agent.functions))
	for i, fn := range agent.functions {
		params := fn.Parameters
		if params == nil {
			params = map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
		}
		specs[i] = functionSpec{Name: fn.Name, Description: fn.Description, Parameters: params}
	}
	catalog, err := json.MarshalIndent(specs, "", "  ")
	if err != nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("You can use the following functions:\n\n")
	sb.Write(catalog)
	sb.WriteString("\n\nIf you need to use a function, format your response as:\n")
	sb.WriteString("[function_name(arguments)]\n\n")
	sb.WriteString("Only use one function per response and only when necessary.")
	return sb.String()
}
