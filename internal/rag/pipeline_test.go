package rag

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutor-rag/internal/config"
	"tutor-rag/internal/llmservice"
	"tutor-rag/internal/models"
	"tutor-rag/internal/prompt"
)

type fakeStore struct {
	results  []models.RetrievedChunk
	count    int
	queryErr error
	added    int
}

func (s *fakeStore) Add(_ context.Context, chunks []models.Chunk) error {
	s.added += len(chunks)
	s.count += len(chunks)
	return nil
}

func (s *fakeStore) Query(_ context.Context, _ string, k int, threshold float32) ([]models.RetrievedChunk, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	var out []models.RetrievedChunk
	for _, r := range s.results {
		if r.Similarity >= threshold && len(out) < k {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) RemoveSource(_ context.Context, _ string) error { return nil }
func (s *fakeStore) Count(_ context.Context) (int, error)           { return s.count, nil }
func (s *fakeStore) Reset(_ context.Context) error                  { s.count = 0; return nil }

type fakeGenerator struct {
	result   *llmservice.Result
	err      error
	requests []prompt.Request
}

func (g *fakeGenerator) Generate(_ context.Context, req prompt.Request) (*llmservice.Result, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return &llmservice.Result{Attempts: 1}, g.err
	}
	return g.result, nil
}

func testCfg() *config.Config {
	return &config.Config{
		RAG: config.RAGConfig{
			TopK:                5,
			SimilarityThreshold: 0.4,
			ContextBudget:       6000,
			ChunkSize:           1000,
			ChunkOverlap:        200,
			MinChunkLength:      10,
		},
		ChatLLM: config.LLMConfig{Model: "test-model"},
		Store:   config.StoreConfig{Backend: "chromem"},
	}
}

func physicsChunks() []models.RetrievedChunk {
	return []models.RetrievedChunk{
		{
			Chunk:      models.Chunk{ID: "c1", Content: "Gravity pulls every object toward the earth.", Chapter: "Chapter 10", Page: 134},
			Similarity: 0.88,
		},
		{
			Chunk:      models.Chunk{ID: "c2", Content: "The force of gravitation depends on mass.", Chapter: "Chapter 10", Page: 135},
			Similarity: 0.81,
		},
	}
}

func stageNames(result *models.PipelineResult) []models.Stage {
	var names []models.Stage
	for _, s := range result.Stages {
		names = append(names, s.Stage)
	}
	return names
}

func TestPipelineQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("Completes the full stage sequence on success", func(t *testing.T) {
		store := &fakeStore{results: physicsChunks(), count: 2}
		gen := &fakeGenerator{result: &llmservice.Result{
			Content:  "Gravity pulls the ball back down.",
			Usage:    models.TokenUsage{TotalTokens: 150},
			Attempts: 1,
			Latency:  20 * time.Millisecond,
		}}
		p := New(store, gen, testCfg())

		result := p.Query(ctx, models.QueryRequest{
			Query:     "Why does a ball thrown upwards come back down?",
			Profile:   models.StudentProfile{UserType: models.WeakPhysics, WeakSubjects: []string{"physics"}},
			SessionID: "s1",
		})

		require.NoError(t, result.Err)
		assert.Equal(t, "Gravity pulls the ball back down.", result.Answer)
		assert.Len(t, result.Retrieved, 2)
		assert.Equal(t, []models.Stage{
			models.StageReceived, models.StageRetrieving,
			models.StageAssembling, models.StageGenerating, models.StageCompleted,
		}, stageNames(result))
		assert.True(t, result.Personalized)
		assert.Contains(t, result.MatchedTopics, "gravity")
		assert.Equal(t, 150, result.Usage.TotalTokens)
		assert.Zero(t, result.GenerateRetries)
		assert.Greater(t, result.TotalDuration, time.Duration(0))
	})

	t.Run("Personalization reaches the generation prompt", func(t *testing.T) {
		store := &fakeStore{results: physicsChunks(), count: 2}
		gen := &fakeGenerator{result: &llmservice.Result{Content: "ok", Attempts: 1}}
		p := New(store, gen, testCfg())

		p.Query(ctx, models.QueryRequest{
			Query:   "Why does gravity pull objects?",
			Profile: models.StudentProfile{UserType: models.WeakPhysics},
		})

		require.Len(t, gen.requests, 1)
		assert.Contains(t, gen.requests[0].System, "Vocabulary level: simple")
		assert.Contains(t, gen.requests[0].User, "[Source 1: Chapter 10, Page 134]")
	})

	t.Run("Uninitialized index fails with an instruction to ingest", func(t *testing.T) {
		p := New(&fakeStore{count: 0}, &fakeGenerator{}, testCfg())

		result := p.Query(ctx, models.QueryRequest{Query: "What is matter?"})

		require.ErrorIs(t, result.Err, models.ErrIndexUnavailable)
		assert.Equal(t, notInitializedText, result.Answer)
		assert.Contains(t, stageNames(result), models.StageFailed)
	})

	t.Run("Empty retrieval states insufficient grounding without generating", func(t *testing.T) {
		store := &fakeStore{results: nil, count: 10}
		gen := &fakeGenerator{}
		p := New(store, gen, testCfg())

		result := p.Query(ctx, models.QueryRequest{Query: "Tell me about quantum chromodynamics"})

		require.NoError(t, result.Err)
		assert.Equal(t, noGroundingAnswer, result.Answer)
		assert.Empty(t, result.Retrieved)
		assert.Empty(t, gen.requests, "generator must not be called without grounding")
		assert.Contains(t, stageNames(result), models.StageCompleted)
	})

	t.Run("Generation failure keeps the retrieved chunks in the result", func(t *testing.T) {
		store := &fakeStore{results: physicsChunks(), count: 2}
		gen := &fakeGenerator{err: &models.GeneratorError{Kind: models.GeneratorFatal, Err: errors.New("401 unauthorized")}}
		p := New(store, gen, testCfg())

		result := p.Query(ctx, models.QueryRequest{Query: "Why does gravity pull objects?"})

		require.Error(t, result.Err)
		var genErr *models.GeneratorError
		require.ErrorAs(t, result.Err, &genErr)
		assert.Equal(t, models.GeneratorFatal, genErr.Kind)
		assert.Len(t, result.Retrieved, 2, "partial result must report the found chunks")
		assert.Contains(t, result.Answer, "could not generate an answer")
		assert.Contains(t, stageNames(result), models.StageFailed)
	})

	t.Run("Retrieval error surfaces in the result instead of panicking", func(t *testing.T) {
		store := &fakeStore{count: 3, queryErr: errors.New("store offline")}
		p := New(store, &fakeGenerator{}, testCfg())

		result := p.Query(ctx, models.QueryRequest{Query: "What is matter?"})

		require.Error(t, result.Err)
		assert.Contains(t, result.Answer, "Retrieval failed")
	})
}

func TestPipelineHealth(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty store is not initialized", func(t *testing.T) {
		p := New(&fakeStore{count: 0}, &fakeGenerator{}, testCfg())
		status := p.Health(ctx)

		assert.Equal(t, "not_initialized", status.Status)
		assert.False(t, status.Initialized)
		assert.Zero(t, status.ChunkCount)
	})

	t.Run("Populated store with a configured generator is healthy", func(t *testing.T) {
		p := New(&fakeStore{count: 42}, &fakeGenerator{}, testCfg())
		status := p.Health(ctx)

		assert.Equal(t, "healthy", status.Status)
		assert.True(t, status.Initialized)
		assert.Equal(t, 42, status.ChunkCount)
		assert.Equal(t, "test-model", status.GeneratorModel)
	})
}

func TestPipelineDemo(t *testing.T) {
	t.Run("Runs every sample query", func(t *testing.T) {
		store := &fakeStore{results: physicsChunks(), count: 2}
		gen := &fakeGenerator{result: &llmservice.Result{Content: "ok", Attempts: 1}}
		p := New(store, gen, testCfg())

		results := p.Demo(context.Background())

		require.Len(t, results, len(models.DemoQueries))
		for i, r := range results {
			assert.Equal(t, models.DemoQueries[i], r.Query)
		}
	})
}
