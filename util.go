package swarmollama

import (
	"fmt"
	"io"
	"os"

	"github.com/prathyushnallamothu/swarmollama/llm"
)

// ProcessAndPrintResponse prints the messages of a response to stdout.
// Assistant messages are blue and tool results magenta.
func ProcessAndPrintResponse(response Response) {
	PrintMessages(os.Stdout, response.Agent, response.Messages)
}

// PrintMessages writes messages to w using the same colors as ProcessAndPrintResponse
func PrintMessages(w io.Writer, agent *Agent, messages []llm.Message) {
	name := "Assistant"
	if agent != nil && agent.Name() != "" {
		name = agent.Name()
	}

	for _, message := range messages {
		switch message.Role {
		case llm.RoleAssistant:
			for _, toolCall := range message.ToolCalls {
				fmt.Fprintf(w, "\033[94m%s\033[0m is calling function '%s' with arguments: %s\n",
					name, toolCall.Function.Name, toolCall.Function.Arguments)
			}
			if message.Content != "" {
				fmt.Fprintf(w, "\033[94m%s\033[0m: %s\n", name, message.Content)
			}
		case llm.RoleTool:
			fmt.Fprintf(w, "\033[95mFunction Result\033[0m (%s): %s\n", message.Name, message.Content)
		}
	}
}
