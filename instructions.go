package swarmollama

import (
	"fmt"
	"regexp"
	"strings"
)

// InstructionsFunc renders an agent's system prompt from the current context variables
type InstructionsFunc func(contextVariables map[string]interface{}) (string, error)

// Instructions is either a fixed system prompt or a function of the context variables.
// The zero value is an empty static prompt.
type Instructions struct {
	text string
	fn   InstructionsFunc
}

// StaticInstructions returns instructions that always resolve to text
func StaticInstructions(text string) Instructions {
	return Instructions{text: text}
}

// DynamicInstructions returns instructions computed by fn on every turn
func DynamicInstructions(fn InstructionsFunc) Instructions {
	return Instructions{fn: fn}
}

// TemplateInstructions returns dynamic instructions rendered from a template with
// {name} placeholders filled from the context variables. {name?} renders as an empty
// string when the variable is missing; a missing {name} is an error.
func TemplateInstructions(template string) Instructions {
	return Instructions{
		text: template,
		fn: func(contextVariables map[string]interface{}) (string, error) {
			return renderTemplate(template, contextVariables)
		},
	}
}

// IsDynamic reports whether the instructions depend on context variables
func (i Instructions) IsDynamic() bool { return i.fn != nil }

// Text returns the static text, or the raw template for template instructions
func (i Instructions) Text() string { return i.text }

// ResolveInstructions produces the system prompt for agent. It must be called on every
// turn since a function call may have changed the context variables.
func ResolveInstructions(agent *Agent, contextVariables map[string]interface{}) (prompt string, err error) {
	if agent == nil {
		return "", ErrNilAgent
	}
	if !agent.instructions.IsDynamic() {
		return agent.instructions.text, nil
	}

	defer func() {
		if r := recover(); r != nil {
			prompt = ""
			err = &InstructionError{Agent: agent.name, Err: &panicError{val: r}}
		}
	}()

	prompt, err = agent.instructions.fn(cloneContext(contextVariables))
	if err != nil {
		return "", &InstructionError{Agent: agent.name, Err: err}
	}
	return prompt, nil
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)(\?)?\}`)

// RenderTemplate fills {name} and {name?} placeholders from vars
func RenderTemplate(template string, vars map[string]interface{}) (string, error) {
	return renderTemplate(template, vars)
}

func renderTemplate(template string, vars map[string]interface{}) (string, error) {
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		parts := placeholderPattern.FindStringSubmatch(match)
		name, optional := parts[1], parts[2] == "?"
		val, ok := vars[name]
		if !ok {
			if !optional {
				missing = append(missing, name)
			}
			return ""
		}
		return fmt.Sprint(val)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("missing context variables: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// cloneContext returns a shallow copy so callees cannot mutate the run's variables
func cloneContext(contextVariables map[string]interface{}) map[string]interface{} {
	cloned := make(map[string]interface{}, len(contextVariables))
	for k, v := range contextVariables {
		cloned[k] = v
	}
	return cloned
}
