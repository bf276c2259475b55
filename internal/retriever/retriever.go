package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"multisource-rag/internal/index"
	"multisource-rag/internal/llmservice"
	"multisource-rag/internal/models"
)

const contextualizePrompt = "Given a chat history and the latest user question " +
	"which might reference context in the chat history, formulate a standalone question " +
	"which can be understood without the chat history. Do NOT answer the question, " +
	"just reformulate it if needed and otherwise return it as is."

// Retriever resolves a follow-up question against chat history and pulls the
// most relevant chunks from the active index.
type Retriever struct {
	llm  llms.Model
	topK int
}

func New(llm llms.Model, topK int) *Retriever {
	return &Retriever{llm: llm, topK: topK}
}

// Retrieve returns the standalone form of the question and the top matching
// chunks. Reformulation is best-effort: any model failure degrades to the
// verbatim question. A nil index means no source was ever processed and is an
// ordering bug in the caller.
func (r *Retriever) Retrieve(ctx context.Context, ix *index.Index, question string, history []models.Turn) (string, []models.Chunk, error) {
	if ix == nil {
		return "", nil, models.ErrNoActiveIndex
	}

	standalone := question
	if len(history) > 0 {
		rewritten, err := r.reformulate(ctx, question, history)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("query reformulation failed, using question verbatim")
		case strings.TrimSpace(rewritten) == "":
			log.Warn().Msg("query reformulation returned empty text, using question verbatim")
		default:
			standalone = strings.TrimSpace(rewritten)
			log.Debug().Str("question", question).Str("standalone", standalone).Msg("reformulated question")
		}
	}

	chunks, err := ix.Search(ctx, standalone, r.topK)
	if err != nil {
		return "", nil, fmt.Errorf("searching index: %w", err)
	}
	return standalone, chunks, nil
}

func (r *Retriever) reformulate(ctx context.Context, question string, history []models.Turn) (string, error) {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, contextualizePrompt))
	messages = append(messages, llmservice.ChatMessages(history)...)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, question))
	return llmservice.GenerateText(ctx, r.llm, messages)
}
