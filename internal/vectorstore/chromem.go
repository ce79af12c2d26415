package vectorstore

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"tutor-rag/internal/models"
)

const compress = false

// ChromemStore keeps chunk vectors in a chromem-go collection that is
// persisted on disk and survives restarts.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	name       string
	embedFn    chromem.EmbeddingFunc
}

// NewChromemStore opens (or creates) the persistent collection at
// path. With inMemory set the store lives only for the process, which
// the tests use.
func NewChromemStore(path, collectionName string, inMemory bool, embedFn chromem.EmbeddingFunc) (*ChromemStore, error) {
	var (
		db  *chromem.DB
		err error
	)
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, compress)
		if err != nil {
			return nil, fmt.Errorf("opening vector store at %s: %w", path, err)
		}
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, embedFn)
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", collectionName, err)
	}

	return &ChromemStore{
		db:         db,
		collection: collection,
		name:       collectionName,
		embedFn:    embedFn,
	}, nil
}

// Add upserts one record per chunk; existing ids are overwritten.
func (s *ChromemStore) Add(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		docs = append(docs, chromem.Document{
			ID:      chunk.ID,
			Content: chunk.Content,
			Metadata: map[string]string{
				"source":  chunk.Source,
				"chapter": chunk.Chapter,
				"page":    strconv.Itoa(chunk.Page),
				"ordinal": strconv.Itoa(chunk.Ordinal),
				"type":    string(chunk.Type),
			},
		})
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("adding %d chunks: %w", len(docs), err)
	}
	log.Debug().Int("chunks", len(docs)).Str("collection", s.name).Msg("stored chunk embeddings")
	return nil
}

// Query embeds text with the collection's embedding function and
// returns the nearest chunks clearing threshold, best first.
func (s *ChromemStore) Query(ctx context.Context, text string, k int, threshold float32) ([]models.RetrievedChunk, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := s.collection.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", s.name, err)
	}

	retrieved := make([]models.RetrievedChunk, 0, len(results))
	for _, r := range results {
		if r.Similarity < threshold {
			continue
		}
		retrieved = append(retrieved, models.RetrievedChunk{
			Chunk:      chunkFromResult(r),
			Similarity: r.Similarity,
		})
	}
	return retrieved, nil
}

// RemoveSource deletes every chunk whose source metadata matches.
func (s *ChromemStore) RemoveSource(ctx context.Context, source string) error {
	if s.collection.Count() == 0 {
		return nil
	}
	if err := s.collection.Delete(ctx, map[string]string{"source": source}, nil); err != nil {
		return fmt.Errorf("removing chunks of %s: %w", source, err)
	}
	return nil
}

func (s *ChromemStore) Count(_ context.Context) (int, error) {
	return s.collection.Count(), nil
}

// Reset drops and recreates the collection.
func (s *ChromemStore) Reset(_ context.Context) error {
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("dropping collection %s: %w", s.name, err)
	}
	collection, err := s.db.GetOrCreateCollection(s.name, nil, s.embedFn)
	if err != nil {
		return fmt.Errorf("recreating collection %s: %w", s.name, err)
	}
	s.collection = collection
	return nil
}

func chunkFromResult(r chromem.Result) models.Chunk {
	page, _ := strconv.Atoi(r.Metadata["page"])
	ordinal, _ := strconv.Atoi(r.Metadata["ordinal"])
	return models.Chunk{
		ID:      r.ID,
		Content: r.Content,
		Source:  r.Metadata["source"],
		Chapter: r.Metadata["chapter"],
		Page:    page,
		Ordinal: ordinal,
		Type:    models.ChunkType(r.Metadata["type"]),
	}
}
