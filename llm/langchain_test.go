package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// scriptedModel is an llms.Model that answers with a fixed text
type scriptedModel struct {
	answer   string
	err      error
	messages []llms.MessageContent
	model    string
}

func (s *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	s.messages = messages
	s.model = opts.Model
	if s.err != nil {
		return nil, s.err
	}
	if opts.StreamingFunc != nil {
		for _, word := range strings.SplitAfter(s.answer, " ") {
			if err := opts.StreamingFunc(ctx, []byte(word)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: s.answer, StopReason: "stop"}}}, nil
}

func (s *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s, prompt, options...)
}

func TestLangChainCreateChatCompletion(t *testing.T) {
	model := &scriptedModel{answer: "[transfer_to_sales()]"}
	client := NewLangChainLLM(model)

	resp, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{
		Model: "llama3.2:3b",
		Messages: []Message{
			{Role: RoleSystem, Content: "triage"},
			{Role: RoleUser, Content: "I want to buy"},
			{Role: RoleTool, Name: "lookup", Content: "ok"},
		},
	})

	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "[transfer_to_sales()]", resp.Choices[0].Message.Content)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Equal(t, "llama3.2:3b", model.model)

	require.Len(t, model.messages, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[2].Role)
	assert.Equal(t, llms.TextContent{Text: "Function lookup returned: ok"}, model.messages[2].Parts[0])
	assert.Same(t, model, client.Unwrap())
}

func TestLangChainStream(t *testing.T) {
	client := NewLangChainLLM(&scriptedModel{answer: "one two three"})
	a := NewAdapter(client, LangChain, 0)

	var tokens []string
	msg, err := a.Send(context.Background(), "m", userTurn, true, func(token string) {
		tokens = append(tokens, token)
	})

	require.NoError(t, err)
	assert.Equal(t, "one two three", msg.Content)
	assert.Equal(t, []string{"one ", "two ", "three"}, tokens)
}

func TestLangChainError(t *testing.T) {
	client := NewLangChainLLM(&scriptedModel{err: errors.New("model exploded")})
	a := NewAdapter(client, LangChain, 0)

	_, err := a.Send(context.Background(), "m", userTurn, false, nil)

	assert.ErrorIs(t, err, ErrAdapter)
}
