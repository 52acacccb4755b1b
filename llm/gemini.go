package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiLLM implements the LLM interface for Google's Gemini
type GeminiLLM struct {
	client *genai.Client
}

// NewGeminiLLM creates a new Gemini LLM client
func NewGeminiLLM(ctx context.Context, apiKey string, opts ...option.ClientOption) (*GeminiLLM, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiLLM{client: client}, nil
}

// Close releases the underlying client
func (g *GeminiLLM) Close() error {
	return g.client.Close()
}

// geminiRole maps our roles onto the two roles a Gemini chat knows about
func geminiRole(role Role) string {
	if role == RoleAssistant {
		return "model"
	}
	return "user"
}

// convertToGeminiContents splits the conversation into a system instruction and a chat
// history. Consecutive messages with the same Gemini role are merged into one content.
func convertToGeminiContents(messages []Message) (*genai.Content, []*genai.Content) {
	var (
		system   []string
		contents []*genai.Content
	)
	for _, msg := range messages {
		text := msg.Content
		switch msg.Role {
		case RoleSystem:
			system = append(system, text)
			continue
		case RoleTool:
			text = toolResultText(msg)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		role := geminiRole(msg.Role)
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, genai.Text(text))
			continue
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(text)}})
	}

	var instruction *genai.Content
	if len(system) > 0 {
		instruction = &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))}}
	}
	return instruction, contents
}

// classifyGeminiError maps Google API errors to backend error kinds
func classifyGeminiError(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return NewBackendError(KindModel, Gemini, err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return NewBackendError(kindForStatus(apiErr.Code), Gemini, err)
	}
	if IsConnectionError(err) {
		return NewBackendError(KindUnreachable, Gemini, err)
	}
	return err
}

// startChat prepares a chat session and returns the parts of the final message
func (g *GeminiLLM) startChat(req ChatCompletionRequest) (*genai.ChatSession, []genai.Part, error) {
	instruction, contents := convertToGeminiContents(req.Messages)
	if len(contents) == 0 {
		return nil, nil, NewBackendError(KindAdapter, Gemini, errors.New("no message content to send"))
	}

	model := g.client.GenerativeModel(req.Model)
	model.SystemInstruction = instruction

	cs := model.StartChat()
	last := contents[len(contents)-1]
	cs.History = contents[:len(contents)-1]
	return cs, last.Parts, nil
}

// textOf concatenates the text parts of the first candidate
func textOf(resp *genai.GenerateContentResponse) (string, string) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String(), resp.Candidates[0].FinishReason.String()
}

// CreateChatCompletion implements the LLM interface for Gemini
func (g *GeminiLLM) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	cs, parts, err := g.startChat(req)
	if err != nil {
		return ChatCompletionResponse{}, err
	}

	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return ChatCompletionResponse{}, classifyGeminiError(err)
	}

	text, reason := textOf(resp)
	out := ChatCompletionResponse{
		Choices: []Choice{
			{
				Message:      Message{Role: RoleAssistant, Content: text},
				FinishReason: reason,
			},
		},
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

// geminiStreamWrapper wraps Gemini's response iterator
type geminiStreamWrapper struct {
	iter *genai.GenerateContentResponseIterator
}

func (w *geminiStreamWrapper) Recv() (ChatCompletionResponse, error) {
	resp, err := w.iter.Next()
	if errors.Is(err, iterator.Done) {
		return ChatCompletionResponse{}, io.EOF
	}
	if err != nil {
		return ChatCompletionResponse{}, classifyGeminiError(err)
	}
	text, reason := textOf(resp)
	return ChatCompletionResponse{
		Choices: []Choice{
			{
				Message:      Message{Role: RoleAssistant, Content: text},
				FinishReason: reason,
			},
		},
	}, nil
}

func (w *geminiStreamWrapper) Close() error {
	return nil
}

// CreateChatCompletionStream implements the LLM interface for Gemini streaming
func (g *GeminiLLM) CreateChatCompletionStream(ctx context.Context, req ChatCompletionRequest) (ChatCompletionStream, error) {
	cs, parts, err := g.startChat(req)
	if err != nil {
		return nil, err
	}
	return &geminiStreamWrapper{iter: cs.SendMessageStream(ctx, parts...)}, nil
}
