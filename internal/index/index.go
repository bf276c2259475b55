package index

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"multisource-rag/internal/chunker"
	"multisource-rag/internal/config"
	"multisource-rag/internal/models"
)

const collectionName = "source"

// Index is the vector index over one source. It owns a fresh in-memory
// collection; replacing a source means building a new Index and dropping the
// old one, there is no incremental update path.
type Index struct {
	collection *chromem.Collection
	embedder   embeddings.Embedder
	chunks     []models.Chunk
	vectors    [][]float32
}

// Build chunks the segments, embeds every chunk and loads them into a new
// in-memory collection.
func Build(ctx context.Context, segments []models.Segment, embedder embeddings.Embedder, cfg *config.RAGConfig) (*Index, error) {
	if len(segments) == 0 {
		return nil, &models.IndexingError{Reason: "no segments to index"}
	}

	chunks := chunker.Split(segments, cfg.ChunkSize, cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return nil, &models.IndexingError{Reason: "segments produced no chunks"}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection(collectionName, nil, embeddingFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i := range chunks {
		chunks[i].ID = uuid.NewString()
		docs[i] = chromem.Document{
			ID:        chunks[i].ID,
			Content:   chunks[i].Content,
			Embedding: vectors[i],
			Metadata: map[string]string{
				"source": chunks[i].Source,
				"page":   strconv.Itoa(chunks[i].Page),
				"seq":    strconv.Itoa(chunks[i].Seq),
			},
		}
	}
	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("adding documents to collection: %w", err)
	}

	log.Debug().Int("segments", len(segments)).Int("chunks", len(chunks)).Msg("built vector index")
	return &Index{collection: collection, embedder: embedder, chunks: chunks, vectors: vectors}, nil
}

// Search embeds the query and returns the k most similar chunks, best first.
// k is clamped to the collection size.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]models.Chunk, error) {
	if k <= 0 {
		k = 1
	}
	if k > len(ix.chunks) {
		k = len(ix.chunks)
	}

	qvec, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := ix.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: qvec,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	chunks := make([]models.Chunk, 0, len(results))
	for _, res := range results {
		page, _ := strconv.Atoi(res.Metadata["page"])
		seq, _ := strconv.Atoi(res.Metadata["seq"])
		chunks = append(chunks, models.Chunk{
			ID:      res.ID,
			Content: res.Content,
			Source:  res.Metadata["source"],
			Page:    page,
			Seq:     seq,
		})
	}
	return chunks, nil
}

// Chunks returns the indexed chunks in source order.
func (ix *Index) Chunks() []models.Chunk { return ix.chunks }

// Vectors returns the chunk embeddings, aligned with Chunks.
func (ix *Index) Vectors() [][]float32 { return ix.vectors }

// Len reports the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.chunks) }

func embeddingFunc(e embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return e.EmbedQuery(ctx, text)
	}
}
