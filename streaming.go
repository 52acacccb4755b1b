package swarmollama

import (
	"github.com/prathyushnallamothu/swarmollama/llm"
)

// StreamHandler represents a handler for streaming responses
type StreamHandler interface {
	OnStart(agent *Agent)
	OnToken(token string)
	OnToolCall(toolCall llm.ToolCall)
	OnComplete(message llm.Message)
	OnError(err error)
}

// DefaultStreamHandler provides a basic implementation of StreamHandler
type DefaultStreamHandler struct{}

func (h *DefaultStreamHandler) OnStart(agent *Agent) {}
func (h *DefaultStreamHandler) OnToken(token string) {}
func (h *DefaultStreamHandler) OnToolCall(toolCall llm.ToolCall) {}
func (h *DefaultStreamHandler) OnComplete(message llm.Message) {}
func (h *DefaultStreamHandler) OnError(err error) {}
