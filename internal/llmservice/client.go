package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"multisource-rag/internal/config"
	"multisource-rag/internal/models"
)

// NewLLM builds the chat model for the configured provider.
func NewLLM(cfg *config.LLMConfig) (llms.Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		llm, err := openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("initializing openai client: %w", err)
		}
		return llm, nil
	case "ollama":
		llm, err := ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("initializing ollama client: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}

// GenerateText runs a non-streaming completion and returns the first choice.
func GenerateText(ctx context.Context, llm llms.Model, messages []llms.MessageContent) (string, error) {
	resp, err := llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// ChatMessages converts chat history into model messages.
func ChatMessages(history []models.Turn) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(history))
	for _, turn := range history {
		role := llms.ChatMessageTypeHuman
		if turn.Role == models.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Content))
	}
	return messages
}
