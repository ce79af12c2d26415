package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"tutor-rag/internal/config"
	"tutor-rag/internal/models"
)

// ChunkRow is the pgvector-backed chunk record. The embedding column
// width must match the configured embedding model.
type ChunkRow struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`
	ID            string    `bun:"id,pk"`
	Content       string    `bun:"content,notnull"`
	Source        string    `bun:"source,notnull"`
	Chapter       string    `bun:"chapter"`
	Page          int       `bun:"page"`
	Ordinal       int       `bun:"ordinal"`
	Type          string    `bun:"type"`
	Embedding     []float32 `bun:"embedding,notnull,type:vector(768)"`
	Similarity    float32   `bun:"similarity,scanonly"`
}

func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	return sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithPassword(cfg.Password),
	)), nil
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("enabling pgvector: %w", err)
	}
	_, err := db.NewCreateTable().Model((*ChunkRow)(nil)).IfNotExists().Exec(ctx)
	return err
}

// PostgresStore implements vectorstore.Store on pgvector. Unlike the
// chromem backend it embeds chunk text itself before writing.
type PostgresStore struct {
	db       *bun.DB
	embedder embeddings.Embedder
}

func NewPostgresStore(db *bun.DB, embedder embeddings.Embedder) *PostgresStore {
	return &PostgresStore{db: db, embedder: embedder}
}

func (s *PostgresStore) Add(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}

	rows := make([]ChunkRow, len(chunks))
	for i, chunk := range chunks {
		rows[i] = ChunkRow{
			ID:        chunk.ID,
			Content:   chunk.Content,
			Source:    chunk.Source,
			Chapter:   chunk.Chapter,
			Page:      chunk.Page,
			Ordinal:   chunk.Ordinal,
			Type:      string(chunk.Type),
			Embedding: vectors[i],
		}
	}

	_, err = s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("content = EXCLUDED.content").
		Set("embedding = EXCLUDED.embedding").
		Set("chapter = EXCLUDED.chapter").
		Set("page = EXCLUDED.page").
		Set("type = EXCLUDED.type").
		Exec(ctx)
	return err
}

func (s *PostgresStore) Query(ctx context.Context, text string, k int, threshold float32) ([]models.RetrievedChunk, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	queryEmbedding, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	var rows []ChunkRow
	err = s.db.NewSelect().
		Model(&rows).
		ColumnExpr("c.*").
		ColumnExpr("1 - (embedding <=> ?) AS similarity", pgdialect.Array(queryEmbedding)).
		OrderExpr("embedding <=> ?", pgdialect.Array(queryEmbedding)).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}

	retrieved := make([]models.RetrievedChunk, 0, len(rows))
	for _, row := range rows {
		if row.Similarity < threshold {
			continue
		}
		retrieved = append(retrieved, models.RetrievedChunk{
			Chunk: models.Chunk{
				ID:      row.ID,
				Content: row.Content,
				Source:  row.Source,
				Chapter: row.Chapter,
				Page:    row.Page,
				Ordinal: row.Ordinal,
				Type:    models.ChunkType(row.Type),
			},
			Similarity: row.Similarity,
		})
	}
	return retrieved, nil
}

func (s *PostgresStore) RemoveSource(ctx context.Context, source string) error {
	_, err := s.db.NewDelete().
		Model((*ChunkRow)(nil)).
		Where("source = ?", source).
		Exec(ctx)
	return err
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*ChunkRow)(nil)).Count(ctx)
}

func (s *PostgresStore) Reset(ctx context.Context) error {
	_, err := s.db.NewTruncateTable().Model((*ChunkRow)(nil)).Exec(ctx)
	return err
}
