// Package rag sequences the tutoring pipeline: retrieval over the
// chunk index, prompt assembly with personalization, and generation.
// Each query moves through received -> retrieving -> assembling ->
// generating -> completed, or fails from any stage with a partial
// result.
package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"tutor-rag/internal/config"
	"tutor-rag/internal/llmservice"
	"tutor-rag/internal/models"
	"tutor-rag/internal/personalize"
	"tutor-rag/internal/prompt"
	"tutor-rag/internal/vectorstore"
)

const (
	noGroundingAnswer  = "I could not find relevant information in the textbook for this question, so I cannot give a grounded answer. Try rephrasing, or ask about a topic the textbook covers."
	notInitializedText = "The knowledge base has not been initialized yet. Run ingestion before asking questions."
)

// Pipeline wires the store and generator into the per-query flow.
// Queries share no mutable state beyond the read-mostly store, so
// concurrent calls are safe.
type Pipeline struct {
	store     vectorstore.Store
	generator llmservice.Generator
	cfg       *config.Config
}

func New(store vectorstore.Store, generator llmservice.Generator, cfg *config.Config) *Pipeline {
	return &Pipeline{store: store, generator: generator, cfg: cfg}
}

// Retrieve returns the ranked chunks for a query. It is a pure
// function of the store state.
func (p *Pipeline) Retrieve(ctx context.Context, query string) ([]models.RetrievedChunk, error) {
	count, err := p.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, models.ErrIndexUnavailable
	}
	return p.store.Query(ctx, query, p.cfg.RAG.TopK, p.cfg.RAG.SimilarityThreshold)
}

// Query runs one request through the full pipeline and always returns
// a result: failures populate Err plus whatever partial data the
// earlier stages produced.
func (p *Pipeline) Query(ctx context.Context, req models.QueryRequest) *models.PipelineResult {
	start := time.Now()
	stageStart := start
	result := &models.PipelineResult{Query: req.Query}

	record := func(stage models.Stage) {
		now := time.Now()
		result.Stages = append(result.Stages, models.StageTiming{Stage: stage, Duration: now.Sub(stageStart)})
		stageStart = now
	}
	finish := func() *models.PipelineResult {
		result.TotalDuration = time.Since(start)
		return result
	}

	log.Info().
		Str("session", req.SessionID).
		Str("user_type", string(req.Profile.UserType)).
		Strs("weak_subjects", req.Profile.WeakSubjects).
		Str("query", req.Query).
		Msg("query received")
	record(models.StageReceived)

	// Retrieving
	retrieved, err := p.Retrieve(ctx, req.Query)
	if err != nil {
		record(models.StageFailed)
		result.Err = err
		if errors.Is(err, models.ErrIndexUnavailable) {
			result.Answer = notInitializedText
		} else {
			result.Answer = fmt.Sprintf("Retrieval failed: %v", err)
		}
		return finish()
	}
	result.Retrieved = retrieved
	record(models.StageRetrieving)

	result.MatchedTopics = personalize.MatchTopics(req.Query, retrieved)
	result.Personalized = personalize.Applied(req.Profile)

	// Zero grounding is a valid state, answered explicitly rather than
	// handed to the generator to hallucinate over.
	if len(retrieved) == 0 {
		result.Answer = noGroundingAnswer
		record(models.StageCompleted)
		return finish()
	}

	// Assembling
	style := personalize.DeriveStyle(req.Profile, result.MatchedTopics)
	genReq := prompt.Build(req.Query, retrieved, style, p.cfg.RAG.ContextBudget)
	record(models.StageAssembling)

	// Generating
	genResult, err := p.generator.Generate(ctx, genReq)
	if genResult != nil {
		result.GenerateRetries = genResult.Attempts - 1
		result.Usage = genResult.Usage
	}
	if err != nil {
		record(models.StageFailed)
		result.Err = err
		result.Answer = "I found relevant textbook passages but could not generate an answer: " + err.Error()
		log.Error().Err(err).Str("session", req.SessionID).Msg("generation failed")
		return finish()
	}
	result.Answer = genResult.Content
	record(models.StageGenerating)

	record(models.StageCompleted)
	log.Info().
		Str("session", req.SessionID).
		Int("chunks", len(retrieved)).
		Int("tokens", genResult.Usage.TotalTokens).
		Dur("total", time.Since(start)).
		Msg("query completed")
	return finish()
}
