package swarmollama

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/prathyushnallamothu/swarmollama/llm"
)

// identifierPattern is the grammar of a callable function name
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// emptyArguments stands in for an empty argument list
const emptyArguments = "{}"

func callID(n int) string {
	return fmt.Sprintf("call_%d", n)
}

// ExtractToolCall finds a pseudo function call of the form [name(args)] in content.
//
// Only the first '[' and the first ']' after it are considered. When that segment is
// not a well formed call the content is plain text: it is returned unchanged with a nil
// call. Otherwise the bracketed segment is cut out and everything else is left as is,
// including any later bracket groups.
func ExtractToolCall(content string) (string, *llm.ToolCall) {
	open := strings.IndexByte(content, '[')
	if open < 0 {
		return content, nil
	}
	rel := strings.IndexByte(content[open+1:], ']')
	if rel < 0 {
		return content, nil
	}
	end := open + 1 + rel
	segment := content[open+1 : end]

	paren := strings.IndexByte(segment, '(')
	if paren < 0 {
		return content, nil
	}
	name := strings.TrimSpace(segment[:paren])
	if !identifierPattern.MatchString(name) {
		return content, nil
	}

	rest := segment[paren+1:]
	closing := strings.IndexByte(rest, ')')
	if closing < 0 {
		return content, nil
	}
	if strings.TrimSpace(rest[closing+1:]) != "" {
		return content, nil
	}

	args := rest[:closing]
	if args == "" {
		args = emptyArguments
	}

	call := &llm.ToolCall{
		ID:   callID(1),
		Type: "function",
		Function: llm.ToolCallFunction{
			Name:      name,
			Arguments: args,
		},
	}
	return content[:open] + content[end+1:], call
}
