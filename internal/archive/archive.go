package archive

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"multisource-rag/internal/config"
	"multisource-rag/internal/models"
)

// ChunkRecord is the persisted form of an indexed chunk. The vector column is
// sized for nomic-embed-text; change it together with the embedding model.
type ChunkRecord struct {
	bun.BaseModel `bun:"table:ingested_chunks,alias:ic"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Source    string    `bun:"source,notnull"`
	Content   string    `bun:"content,notnull"`
	Page      int       `bun:"page,notnull"`
	Seq       int       `bun:"seq,notnull"`
	Embedding []float32 `bun:"embedding,type:vector(768)"`
}

// Store keeps a postgres record of what each ingest produced. It is an
// optional collaborator: retrieval never reads from it, the in-memory index
// is the only search path.
type Store struct {
	db *bun.DB
}

func Connect(cfg *config.DatabaseConfig) (*Store, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.URL+"?sslmode=disable"),
		pgdriver.WithPassword(cfg.Password),
	))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &Store{db: db}, nil
}

func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*ChunkRecord)(nil)).IfNotExists().Exec(ctx)
	return err
}

// ReplaceSource mirrors the one-source-at-a-time session model: previous
// records are dropped wholesale before the new chunks are written.
func (s *Store) ReplaceSource(ctx context.Context, source string, chunks []models.Chunk, vectors [][]float32) error {
	records := make([]ChunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = ChunkRecord{
			Source:  source,
			Content: c.Content,
			Page:    c.Page,
			Seq:     c.Seq,
		}
		if i < len(vectors) {
			records[i].Embedding = vectors[i]
		}
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewTruncateTable().Model((*ChunkRecord)(nil)).Exec(ctx); err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&records).Exec(ctx)
		return err
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}
