package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"

	"multisource-rag/internal/archive"
	"multisource-rag/internal/config"
	"multisource-rag/internal/extractor"
	"multisource-rag/internal/generator"
	"multisource-rag/internal/index"
	"multisource-rag/internal/models"
	"multisource-rag/internal/retriever"
)

// Session holds the state of one conversation: the active vector index, the
// chat history, the source label and any pending suggested questions. All of
// it is replaced together when a new source is ingested. The mutex enforces
// the one-interaction-at-a-time model; it stays held for the whole of an ask,
// streaming included.
type Session struct {
	cfg       *config.Config
	extractor *extractor.Extractor
	embedder  embeddings.Embedder
	llm       llms.Model
	retriever *retriever.Retriever
	generator *generator.Generator
	archive   *archive.Store

	mu          sync.Mutex
	index       *index.Index
	history     []models.Turn
	sourceName  string
	suggestions []string
	suggestGen  uint64
}

// New builds an empty session. store may be nil to disable the archive.
func New(cfg *config.Config, ext *extractor.Extractor, embedder embeddings.Embedder, llm llms.Model, store *archive.Store) *Session {
	return &Session{
		cfg:       cfg,
		extractor: ext,
		embedder:  embedder,
		llm:       llm,
		retriever: retriever.New(llm, cfg.RAG.TopK),
		generator: generator.New(llm),
		archive:   store,
	}
}

// Ingest replaces the session's source. Extraction and indexing run against
// temporaries; only when both succeed are index, history, source label and
// suggestions swapped in one step, so a failed ingest leaves the previous
// state untouched. Suggested questions are computed in the background and
// never fail an ingest.
func (s *Session) Ingest(ctx context.Context, src extractor.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	segments, err := s.extractor.Extract(ctx, src)
	if err != nil {
		return err
	}
	ix, err := index.Build(ctx, segments, s.embedder, &s.cfg.RAG)
	if err != nil {
		return err
	}

	s.index = ix
	s.history = nil
	s.sourceName = src.Name
	s.suggestions = nil
	s.suggestGen++
	gen := s.suggestGen

	log.Info().Str("source", src.Name).Int("chunks", ix.Len()).Msg("source ingested")

	if s.archive != nil {
		if err := s.archive.ReplaceSource(ctx, src.Name, ix.Chunks(), ix.Vectors()); err != nil {
			log.Warn().Err(err).Msg("archiving ingested chunks failed")
		}
	}

	go s.computeSuggestions(context.WithoutCancel(ctx), segments, gen)
	return nil
}

// Ask appends the question to the history, retrieves grounding chunks and
// streams the answer through onDelta. On success the answer turn is appended
// with its citations and history has grown by exactly two turns. On failure
// or cancellation no answer turn is appended. Pending suggestions are cleared
// either way; they only describe the state right after an ingest.
func (s *Session) Ask(ctx context.Context, question string, onDelta func(delta string) error) (*models.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil {
		return nil, models.ErrNoActiveIndex
	}
	// Suggestions only describe the state right after an ingest; drop any
	// that are pending or still being generated.
	s.suggestions = nil
	s.suggestGen++

	prior := s.history
	s.history = append(s.history, models.Turn{Role: models.RoleUser, Content: question})

	standalone, chunks, err := s.retriever.Retrieve(ctx, s.index, question, prior)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("standalone", standalone).Int("chunks", len(chunks)).Msg("retrieved context")

	answer, err := s.generator.Generate(ctx, question, chunks, prior, onDelta)
	if err != nil {
		return nil, err
	}

	s.history = append(s.history, models.Turn{
		Role:      models.RoleAssistant,
		Content:   answer.Text,
		Citations: answer.Citations,
	})
	return answer, nil
}

// SourceName returns the label of the active source, empty before any ingest.
func (s *Session) SourceName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceName
}

// History returns a copy of the chat history.
func (s *Session) History() []models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Suggestions returns a copy of the pending suggested questions.
func (s *Session) Suggestions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.suggestions))
	copy(out, s.suggestions)
	return out
}

// ClearHistory empties the chat history without touching the index. Used by
// the evaluation harness to ask non-conversationally.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

func (s *Session) computeSuggestions(ctx context.Context, segments []models.Segment, gen uint64) {
	questions, err := suggestQuestions(ctx, s.llm, segments, &s.cfg.RAG)
	if err != nil {
		log.Warn().Err(err).Msg("suggested question generation failed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suggestGen != gen {
		// The source was replaced while we were generating.
		return
	}
	s.suggestions = questions
}
