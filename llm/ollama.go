package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// DefaultOllamaHost is used when no host is configured and OLLAMA_HOST is unset
const DefaultOllamaHost = "http://localhost:11434"

// OllamaLLM implements the LLM interface for Ollama
type OllamaLLM struct {
	client  *api.Client
	options map[string]interface{}
}

// NewOllamaLLM creates a new Ollama LLM client from the OLLAMA_HOST environment
func NewOllamaLLM() (*OllamaLLM, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}
	return &OllamaLLM{client: client}, nil
}

// NewOllamaLLMWithURL creates a new Ollama LLM client with a custom URL.
// httpClient may be nil.
func NewOllamaLLMWithURL(baseURL string, httpClient *http.Client) (*OllamaLLM, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaHost
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OllamaLLM{client: api.NewClient(parsedURL, httpClient)}, nil
}

// WithOptions sets model options (temperature, num_ctx, ...) sent with every request
func (o *OllamaLLM) WithOptions(options map[string]interface{}) *OllamaLLM {
	o.options = options
	return o
}

// convertToOllamaMessages converts our generic Message type to Ollama's message format.
// Tool calls are never forwarded: the backend only sees text.
func convertToOllamaMessages(messages []Message) []api.Message {
	ollamaMessages := make([]api.Message, len(messages))
	for i, msg := range messages {
		ollamaMessages[i] = api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}
	return ollamaMessages
}

func (o *OllamaLLM) newRequest(req ChatCompletionRequest, stream bool) *api.ChatRequest {
	return &api.ChatRequest{
		Model:    req.Model,
		Messages: convertToOllamaMessages(req.Messages),
		Stream:   &stream,
		Options:  o.options,
	}
}

// classifyOllamaError maps errors returned by the Ollama client
func classifyOllamaError(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return NewBackendError(kindForStatus(statusErr.StatusCode), Ollama, err)
	}
	var statusErrPtr *api.StatusError
	if errors.As(err, &statusErrPtr) {
		return NewBackendError(kindForStatus(statusErrPtr.StatusCode), Ollama, err)
	}
	if IsConnectionError(err) {
		return NewBackendError(KindUnreachable, Ollama, err)
	}
	return err
}

// kindForStatus maps an HTTP status reported by a serving process to an error kind
func kindForStatus(code int) ErrorKind {
	switch {
	case code == http.StatusNotFound, code == http.StatusBadRequest, code == http.StatusUnprocessableEntity:
		return KindModel
	case code == http.StatusBadGateway, code == http.StatusServiceUnavailable, code == http.StatusGatewayTimeout:
		return KindUnreachable
	case code >= http.StatusInternalServerError:
		return KindModel
	default:
		return KindAdapter
	}
}

// CreateChatCompletion implements the LLM interface for Ollama
func (o *OllamaLLM) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	var (
		role    string
		content string
		usage   Usage
		reason  string
	)
	err := o.client.Chat(ctx, o.newRequest(req, false), func(resp api.ChatResponse) error {
		if resp.Message.Role != "" {
			role = resp.Message.Role
		}
		content += resp.Message.Content
		if resp.Done {
			reason = resp.DoneReason
			usage = Usage{
				PromptTokens:     resp.PromptEvalCount,
				CompletionTokens: resp.EvalCount,
				TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
			}
		}
		return nil
	})
	if err != nil {
		return ChatCompletionResponse{}, classifyOllamaError(err)
	}

	return ChatCompletionResponse{
		Choices: []Choice{
			{
				Index:        0,
				Message:      Message{Role: Role(role), Content: content},
				FinishReason: reason,
			},
		},
		Usage: usage,
	}, nil
}

type ollamaStream struct {
	chunks chan ChatCompletionResponse
	cancel context.CancelFunc
	err    error
}

// Recv returns the next chunk, io.EOF once the reply is complete
func (s *ollamaStream) Recv() (ChatCompletionResponse, error) {
	chunk, ok := <-s.chunks
	if !ok {
		if s.err != nil {
			return ChatCompletionResponse{}, s.err
		}
		return ChatCompletionResponse{}, io.EOF
	}
	return chunk, nil
}

// Close stops the underlying request
func (s *ollamaStream) Close() error {
	s.cancel()
	return nil
}

// CreateChatCompletionStream implements the LLM interface for Ollama streaming
func (o *OllamaLLM) CreateChatCompletionStream(ctx context.Context, req ChatCompletionRequest) (ChatCompletionStream, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	s := &ollamaStream{
		chunks: make(chan ChatCompletionResponse),
		cancel: cancel,
	}
	ollamaReq := o.newRequest(req, true)

	go func() {
		defer close(s.chunks)
		err := o.client.Chat(streamCtx, ollamaReq, func(resp api.ChatResponse) error {
			chunk := ChatCompletionResponse{
				Choices: []Choice{
					{
						Message: Message{Role: Role(resp.Message.Role), Content: resp.Message.Content},
					},
				},
			}
			if resp.Done {
				chunk.Choices[0].FinishReason = resp.DoneReason
			}
			select {
			case s.chunks <- chunk:
				return nil
			case <-streamCtx.Done():
				return streamCtx.Err()
			}
		})
		if err != nil {
			s.err = classifyOllamaError(err)
		}
	}()

	return s, nil
}
