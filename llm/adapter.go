package llm

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// TokenHandler receives content fragments while a streamed reply is being accumulated
type TokenHandler func(token string)

// Adapter normalizes backend replies into Messages and backend failures into
// classified errors. It never retries.
type Adapter struct {
	client   LLM
	provider LLMProvider
	timeout  time.Duration
}

// NewAdapter wraps client. A zero timeout disables the per-call deadline.
func NewAdapter(client LLM, provider LLMProvider, timeout time.Duration) *Adapter {
	return &Adapter{client: client, provider: provider, timeout: timeout}
}

// Provider returns the backend the adapter talks to
func (a *Adapter) Provider() LLMProvider {
	return a.provider
}

// Send asks the backend for the next message of the conversation. The returned message
// always has an assistant role (unless the backend says otherwise) and no tool calls.
func (a *Adapter) Send(ctx context.Context, model string, messages []Message, stream bool, onToken TokenHandler) (Message, error) {
	if a.client == nil {
		return Message{}, NewBackendError(KindAdapter, a.provider, errors.New("LLM client is not initialized"))
	}

	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req := ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Stream:   stream,
	}

	var (
		msg Message
		err error
	)
	if stream {
		msg, err = a.receiveStream(callCtx, req, onToken)
	} else {
		msg, err = a.receive(callCtx, req)
	}
	if err != nil {
		return Message{}, classify(ctx, callCtx, a.provider, err)
	}
	return normalize(msg), nil
}

func (a *Adapter) receive(ctx context.Context, req ChatCompletionRequest) (Message, error) {
	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Message{}, err
	}
	if len(resp.Choices) == 0 {
		return Message{}, NewBackendError(KindAdapter, a.provider, ErrNoChoicesInResp)
	}
	return resp.Choices[0].Message, nil
}

func (a *Adapter) receiveStream(ctx context.Context, req ChatCompletionRequest, onToken TokenHandler) (Message, error) {
	stream, err := a.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return Message{}, err
	}
	defer stream.Close()

	var (
		role    Role
		content strings.Builder
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Message{}, err
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Message
		if role == "" && delta.Role != "" {
			role = delta.Role
		}
		if delta.Content != "" {
			content.WriteString(delta.Content)
			if onToken != nil {
				onToken(delta.Content)
			}
		}
	}
	return Message{Role: role, Content: content.String()}, nil
}

// normalize drops everything the orchestration loop does not trust from a backend reply
func normalize(msg Message) Message {
	role := msg.Role
	if role == "" {
		role = RoleAssistant
	}
	return Message{Role: role, Content: msg.Content}
}
