package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tmc/langchaingo/llms"
	lcollama "github.com/tmc/langchaingo/llms/ollama"
)

// LangChainLLM implements the LLM interface on top of any langchaingo llms.Model
type LangChainLLM struct {
	model llms.Model
}

// NewLangChainLLM wraps a langchaingo model
func NewLangChainLLM(model llms.Model) *LangChainLLM {
	return &LangChainLLM{model: model}
}

// NewLangChainOllama builds a langchaingo Ollama model for serverURL. defaultModel is
// used when a request leaves the model empty.
func NewLangChainOllama(serverURL, defaultModel string) (*LangChainLLM, error) {
	opts := []lcollama.Option{lcollama.WithModel(defaultModel)}
	if serverURL != "" {
		opts = append(opts, lcollama.WithServerURL(serverURL))
	}
	model, err := lcollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create langchaingo Ollama model: %w", err)
	}
	return NewLangChainLLM(model), nil
}

// Unwrap returns the underlying llms.Model
func (l *LangChainLLM) Unwrap() llms.Model {
	return l.model
}

func langChainRole(role Role) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// convertToLangChainMessages converts our generic Message type to langchaingo message content
func convertToLangChainMessages(messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, len(messages))
	for i, msg := range messages {
		text := msg.Content
		if msg.Role == RoleTool {
			text = toolResultText(msg)
		}
		out[i] = llms.TextParts(langChainRole(msg.Role), text)
	}
	return out
}

func (l *LangChainLLM) callOptions(req ChatCompletionRequest) []llms.CallOption {
	var opts []llms.CallOption
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}
	return opts
}

func classifyLangChainError(err error) error {
	if IsConnectionError(err) {
		return NewBackendError(KindUnreachable, LangChain, err)
	}
	return err
}

// CreateChatCompletion implements the LLM interface for langchaingo models
func (l *LangChainLLM) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	resp, err := l.model.GenerateContent(ctx, convertToLangChainMessages(req.Messages), l.callOptions(req)...)
	if err != nil {
		return ChatCompletionResponse{}, classifyLangChainError(err)
	}

	choices := make([]Choice, 0, len(resp.Choices))
	for i, c := range resp.Choices {
		if c == nil {
			continue
		}
		choices = append(choices, Choice{
			Index:        i,
			Message:      Message{Role: RoleAssistant, Content: c.Content},
			FinishReason: c.StopReason,
		})
	}
	return ChatCompletionResponse{Choices: choices}, nil
}

type langChainStream struct {
	chunks chan ChatCompletionResponse
	cancel context.CancelFunc
	err    error
}

func (s *langChainStream) Recv() (ChatCompletionResponse, error) {
	chunk, ok := <-s.chunks
	if !ok {
		if s.err != nil {
			return ChatCompletionResponse{}, s.err
		}
		return ChatCompletionResponse{}, io.EOF
	}
	return chunk, nil
}

func (s *langChainStream) Close() error {
	s.cancel()
	return nil
}

// CreateChatCompletionStream implements the LLM interface using langchaingo's streaming callback
func (l *LangChainLLM) CreateChatCompletionStream(ctx context.Context, req ChatCompletionRequest) (ChatCompletionStream, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	s := &langChainStream{
		chunks: make(chan ChatCompletionResponse),
		cancel: cancel,
	}

	opts := append(l.callOptions(req), llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		select {
		case s.chunks <- ChatCompletionResponse{
			Choices: []Choice{{Message: Message{Role: RoleAssistant, Content: string(chunk)}}},
		}:
			return nil
		case <-streamCtx.Done():
			return streamCtx.Err()
		}
	}))

	go func() {
		defer close(s.chunks)
		_, err := l.model.GenerateContent(streamCtx, convertToLangChainMessages(req.Messages), opts...)
		// Close cancels streamCtx; only report cancellation that came from the caller
		if err != nil && !(errors.Is(err, context.Canceled) && ctx.Err() == nil) {
			s.err = classifyLangChainError(err)
		}
	}()

	return s, nil
}
