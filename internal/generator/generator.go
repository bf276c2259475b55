package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"multisource-rag/internal/llmservice"
	"multisource-rag/internal/models"
)

// The model is instructed to open its answer with one of these literal
// markers and Classify matches them back by prefix. A model that paraphrases
// the marker is classified as Unknown; that brittleness is inherited behavior
// and kept on purpose.
const (
	ContextMarker = "Based on the provided context:"
	GeneralMarker = "Based on general knowledge:"
	UnknownMarker = "I don't know."
)

const answerPromptTemplate = `You are an expert assistant.
Answer using the provided context when possible.

- If answer is in the context: start with "Based on the provided context: ..."
- If not in the context: use general knowledge, start with "Based on general knowledge: ..."
- If unsure: say "I don't know."
- Never invent facts. Be concise and clear.

CONTEXT:
%s`

// Generator produces grounded streamed answers.
type Generator struct {
	llm llms.Model
}

func New(llm llms.Model) *Generator {
	return &Generator{llm: llm}
}

// Generate streams an answer for the question given the retrieved chunks and
// the conversation so far. Each delta is handed to onDelta as it arrives; a
// non-nil onDelta error or context cancellation aborts the stream. The
// returned error is the terminal signal: a nil error means the answer
// completed and its provenance and citations are final. Citations are
// attached only when the answer text proves the context branch was taken.
func (g *Generator) Generate(ctx context.Context, question string, chunks []models.Chunk, history []models.Turn, onDelta func(delta string) error) (*models.Answer, error) {
	var contextText strings.Builder
	for _, chunk := range chunks {
		contextText.WriteString(chunk.Content)
		contextText.WriteString("\n\n")
	}

	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem,
		fmt.Sprintf(answerPromptTemplate, contextText.String())))
	messages = append(messages, llmservice.ChatMessages(history)...)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, question))

	var full strings.Builder
	resp, err := g.llm.GenerateContent(ctx, messages,
		llms.WithStreamingFunc(func(_ context.Context, delta []byte) error {
			full.Write(delta)
			if onDelta != nil {
				return onDelta(string(delta))
			}
			return nil
		}))
	if err != nil {
		return nil, &models.GenerationError{Err: err}
	}

	text := full.String()
	if text == "" && len(resp.Choices) > 0 {
		// Some backends ignore the streaming option and only return the
		// final choice.
		text = resp.Choices[0].Content
		if onDelta != nil {
			if err := onDelta(text); err != nil {
				return nil, &models.GenerationError{Err: err}
			}
		}
	}

	answer := &models.Answer{Text: text, Provenance: Classify(text)}
	if answer.Provenance == models.ProvenanceContext {
		answer.Citations = chunks
	}
	return answer, nil
}

// Classify maps answer text to its provenance by marker prefix.
func Classify(text string) models.Provenance {
	trimmed := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(trimmed, ContextMarker):
		return models.ProvenanceContext
	case strings.HasPrefix(trimmed, GeneralMarker):
		return models.ProvenanceGeneral
	default:
		return models.ProvenanceUnknown
	}
}
