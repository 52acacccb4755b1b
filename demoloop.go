package swarmollama

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/prathyushnallamothu/swarmollama/llm"
)

// RunDemoLoop starts an interactive session with agent on the terminal. The
// conversation and the active agent carry over between inputs. It returns when the
// user types "exit", presses Ctrl-C or Ctrl-D, or ctx is done.
func RunDemoLoop(ctx context.Context, client *Swarm, agent *Agent, opts ...RunOption) error {
	rl, err := readline.New("\033[90mUser\033[0m: ")
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(rl.Stdout(), "Starting Swarm CLI 🐝")

	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}
	streaming := ro.stream != nil

	var messages []llm.Message
	contextVariables := map[string]interface{}{}

	for ctx.Err() == nil {
		input, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: input})

		response, err := client.Run(ctx, agent, messages, contextVariables, opts...)
		if err != nil {
			fmt.Fprintf(rl.Stderr(), "Error: %v\n", err)
			// drop the unanswered input so the next turn starts clean
			messages = messages[:len(messages)-1]
			continue
		}

		added := response.Messages[len(messages):]
		if streaming {
			// assistant text was already printed token by token
			added = toolResults(added)
		}
		PrintMessages(rl.Stdout(), response.Agent, added)
		messages = response.Messages
		agent = response.Agent
		contextVariables = response.ContextVariables
	}
	return ctx.Err()
}

func toolResults(messages []llm.Message) []llm.Message {
	var out []llm.Message
	for _, m := range messages {
		if m.Role == llm.RoleTool {
			out = append(out, m)
		}
	}
	return out
}
