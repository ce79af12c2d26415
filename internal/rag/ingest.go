package rag

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"tutor-rag/internal/embedding"
	"tutor-rag/internal/models"
	"tutor-rag/internal/parser"
	"tutor-rag/internal/vectorstore"
)

// InitializeKnowledgeBase runs the chunker over every discovered
// document and upserts the chunks into the store. It is idempotent:
// documents whose content hash is unchanged since the last run are
// skipped, and re-ingesting an unchanged document yields identical
// chunk ids. Changed documents replace their previous chunks, and
// documents no longer present in the corpus have their chunks removed.
// Unreadable documents are recorded and skipped; they never abort the
// run.
func (p *Pipeline) InitializeKnowledgeBase(ctx context.Context) (*models.IngestionReport, error) {
	start := time.Now()
	report := &models.IngestionReport{}

	manifest, err := vectorstore.LoadManifest(p.cfg.Store.Path, embedding.VersionID(&p.cfg.EmbedLLM))
	if err != nil {
		return nil, fmt.Errorf("loading ingestion manifest: %w", err)
	}

	files, err := parser.DiscoverDocuments(p.cfg.Documents.Dir, p.cfg.Documents.Pattern)
	if err != nil {
		return nil, err
	}
	log.Info().Int("documents", len(files)).Str("dir", p.cfg.Documents.Dir).Msg("starting knowledge base initialization")

	classifier := parser.DefaultClassifier{}
	opts := parser.ChunkOptions{
		MaxChars:     p.cfg.RAG.ChunkSize,
		OverlapChars: p.cfg.RAG.ChunkOverlap,
		MinLength:    p.cfg.RAG.MinChunkLength,
	}

	seen := make(map[string]bool, len(files))
	for _, file := range files {
		report.DocumentsSeen++
		source := filepath.Base(file)
		seen[source] = true

		hash, err := vectorstore.HashFile(file)
		if err != nil {
			report.Errors = append(report.Errors, models.IngestionError{Source: source, Reason: err.Error()})
			log.Warn().Err(err).Str("source", source).Msg("skipping unreadable document")
			continue
		}
		if !manifest.Changed(source, hash) {
			report.DocumentsSkipped++
			log.Debug().Str("source", source).Msg("document unchanged, skipping")
			continue
		}

		sections, err := parser.ExtractSections(file, classifier)
		if err != nil {
			report.Errors = append(report.Errors, models.IngestionError{Source: source, Reason: err.Error()})
			log.Warn().Err(err).Str("source", source).Msg("skipping corrupt document")
			continue
		}

		chunks := parser.BuildChunks(sections, opts, classifier)
		if len(chunks) == 0 {
			report.Errors = append(report.Errors, models.IngestionError{Source: source, Reason: "no text content extracted"})
			continue
		}

		// Drop the previous version first. Upserting alone would leave a
		// shrunk document's higher-ordinal chunks retrievable forever.
		if err := p.store.RemoveSource(ctx, source); err != nil {
			report.Errors = append(report.Errors, models.IngestionError{Source: source, Reason: err.Error()})
			log.Warn().Err(err).Str("source", source).Msg("failed to drop stale chunks")
			continue
		}
		if err := p.store.Add(ctx, chunks); err != nil {
			report.Errors = append(report.Errors, models.IngestionError{Source: source, Reason: err.Error()})
			log.Warn().Err(err).Str("source", source).Msg("failed to store chunks")
			continue
		}

		manifest.Record(source, hash)
		report.ChunksStored += len(chunks)
		log.Info().Str("source", source).Int("chunks", len(chunks)).Msg("document ingested")
	}

	// Documents that vanished from the corpus lose their chunks too.
	for _, source := range manifest.Sources() {
		if seen[source] {
			continue
		}
		if err := p.store.RemoveSource(ctx, source); err != nil {
			report.Errors = append(report.Errors, models.IngestionError{Source: source, Reason: err.Error()})
			log.Warn().Err(err).Str("source", source).Msg("failed to drop chunks of removed document")
			continue
		}
		manifest.Forget(source)
		report.DocumentsRemoved++
		log.Info().Str("source", source).Msg("document removed from corpus, chunks dropped")
	}

	if err := manifest.Save(); err != nil {
		return nil, fmt.Errorf("saving ingestion manifest: %w", err)
	}

	report.Duration = time.Since(start)
	log.Info().
		Int("seen", report.DocumentsSeen).
		Int("skipped", report.DocumentsSkipped).
		Int("removed", report.DocumentsRemoved).
		Int("chunks", report.ChunksStored).
		Int("errors", len(report.Errors)).
		Dur("took", report.Duration).
		Msg("knowledge base initialization finished")
	return report, nil
}
