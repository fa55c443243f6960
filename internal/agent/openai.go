package agent

import (
	"context"
	"errors"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"triage-intake-agent/internal/chat"
)

// OpenAIGenerator produces the prose assessment with the OpenAI chat
// completion API. Credentials and model name come from the environment.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator reads OPENAI_API_KEY and OPENAI_MODEL_CHAT, falling back
// to a modern small model.
func NewOpenAIGenerator() *OpenAIGenerator {
	apiKey := os.Getenv("OPENAI_API_KEY")
	model := os.Getenv("OPENAI_MODEL_CHAT")
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIGenerator{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Generate sends the locked clinical context as the system prompt and the
// latest user message as the user turn. Low temperature keeps the output
// consistent with the locked frame.
func (g *OpenAIGenerator) Generate(ctx context.Context, cc chat.ClinicalContext, userMessage string) (string, error) {
	if g.client == nil {
		return "", errors.New("openai client not initialized")
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: BuildSystemPrompt(cc)},
			{Role: openai.ChatMessageRoleUser, Content: buildUserTurn(cc, userMessage)},
		},
		MaxTokens:   400,
		Temperature: 0.5,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
