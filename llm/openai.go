package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

// OpenAILLM implements the LLM interface for OpenAI-compatible servers, including the
// /v1 endpoint exposed by Ollama
type OpenAILLM struct {
	client *openai.Client
}

// NewOpenAILLM creates a new OpenAI LLM client
func NewOpenAILLM(apiKey string) *OpenAILLM {
	client := openai.NewClient(apiKey)
	return &OpenAILLM{client: client}
}

// NewOpenAILLMWithHost creates an OpenAI LLM client for a custom base URL
func NewOpenAILLMWithHost(apiKey string, host string) *OpenAILLM {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = host
	openAIClient := openai.NewClientWithConfig(config)
	return &OpenAILLM{client: openAIClient}
}

// toolResultText renders a tool-role message as plain text for APIs that reject tool
// results without a native tool call preceding them
func toolResultText(msg Message) string {
	if msg.Name == "" {
		return "Function result: " + msg.Content
	}
	return fmt.Sprintf("Function %s returned: %s", msg.Name, msg.Content)
}

// convertToOpenAIMessages converts our generic Message type to OpenAI's message type
func convertToOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	openAIMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		if msg.Role == RoleTool {
			openAIMessages[i] = openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: toolResultText(msg),
			}
			continue
		}
		openAIMessages[i] = openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}
	return openAIMessages
}

// classifyOpenAIError maps go-openai errors to backend error kinds
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewBackendError(kindForStatus(apiErr.HTTPStatusCode), OpenAI, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewBackendError(kindForStatus(reqErr.HTTPStatusCode), OpenAI, err)
	}
	if IsConnectionError(err) {
		return NewBackendError(KindUnreachable, OpenAI, err)
	}
	return err
}

// CreateChatCompletion implements the LLM interface for OpenAI
func (o *OpenAILLM) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	openAIReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: convertToOpenAIMessages(req.Messages),
	}

	resp, err := o.client.CreateChatCompletion(ctx, openAIReq)
	if err != nil {
		return ChatCompletionResponse{}, classifyOpenAIError(err)
	}

	choices := make([]Choice, len(resp.Choices))
	for i, c := range resp.Choices {
		choices[i] = Choice{
			Index: c.Index,
			Message: Message{
				Role:    Role(c.Message.Role),
				Content: c.Message.Content,
			},
			FinishReason: string(c.FinishReason),
		}
	}

	return ChatCompletionResponse{
		ID:      resp.ID,
		Choices: choices,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// openAIStreamWrapper adapts go-openai's stream to ChatCompletionStream
type openAIStreamWrapper struct {
	stream *openai.ChatCompletionStream
}

func (w *openAIStreamWrapper) Recv() (ChatCompletionResponse, error) {
	resp, err := w.stream.Recv()
	if errors.Is(err, io.EOF) {
		return ChatCompletionResponse{}, io.EOF
	}
	if err != nil {
		return ChatCompletionResponse{}, classifyOpenAIError(err)
	}

	choices := make([]Choice, len(resp.Choices))
	for i, c := range resp.Choices {
		choices[i] = Choice{
			Index: c.Index,
			Message: Message{
				Role:    Role(c.Delta.Role),
				Content: c.Delta.Content,
			},
			FinishReason: string(c.FinishReason),
		}
	}
	return ChatCompletionResponse{ID: resp.ID, Choices: choices}, nil
}

func (w *openAIStreamWrapper) Close() error {
	return w.stream.Close()
}

// CreateChatCompletionStream implements the LLM interface for OpenAI streaming
func (o *OpenAILLM) CreateChatCompletionStream(ctx context.Context, req ChatCompletionRequest) (ChatCompletionStream, error) {
	openAIReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: convertToOpenAIMessages(req.Messages),
		Stream:   true,
	}

	stream, err := o.client.CreateChatCompletionStream(ctx, openAIReq)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	return &openAIStreamWrapper{stream: stream}, nil
}
