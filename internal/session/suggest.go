package session

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"multisource-rag/internal/config"
	"multisource-rag/internal/llmservice"
	"multisource-rag/internal/models"
)

const suggestionPromptTemplate = `Based on the following text, generate %d concise, insightful questions a user might want to ask. The questions should be distinct. Return them as a numbered list.

Text:
"""%s"""

Questions:`

// segments considered when building the suggestion prompt
const suggestionSegmentLimit = 3

var questionLineRe = regexp.MustCompile(`(?m)^\s*\d+[.)]\s*(.+)$`)

func suggestQuestions(ctx context.Context, llm llms.Model, segments []models.Segment, cfg *config.RAGConfig) ([]string, error) {
	if len(segments) == 0 {
		return nil, nil
	}

	limit := min(suggestionSegmentLimit, len(segments))
	parts := make([]string, 0, limit)
	for _, seg := range segments[:limit] {
		parts = append(parts, seg.Content)
	}
	combined := strings.Join(parts, " ")
	if len(combined) > cfg.SuggestionContextChars {
		combined = combined[:cfg.SuggestionContextChars]
	}

	prompt := fmt.Sprintf(suggestionPromptTemplate, cfg.SuggestionCount, combined)
	text, err := llmservice.GenerateText(ctx, llm, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	})
	if err != nil {
		return nil, err
	}

	var questions []string
	for _, match := range questionLineRe.FindAllStringSubmatch(text, -1) {
		q := strings.TrimSpace(match[1])
		if q == "" {
			continue
		}
		questions = append(questions, q)
		if len(questions) == cfg.SuggestionCount {
			break
		}
	}
	return questions, nil
}
