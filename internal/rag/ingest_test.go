package rag

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutor-rag/internal/config"
	"tutor-rag/internal/models"
	"tutor-rag/internal/vectorstore"
)

func constantEmbedding(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func ingestFixture(t *testing.T) (*Pipeline, *config.Config, string) {
	t.Helper()

	docsDir := t.TempDir()
	cfg := testCfg()
	cfg.Documents = config.DocumentsConfig{Dir: docsDir, Pattern: "*.txt"}
	cfg.Store.Path = t.TempDir()
	cfg.EmbedLLM = config.LLMConfig{Provider: "test", Model: "fake-embedder"}

	store, err := vectorstore.NewChromemStore("", "ingest_test", true, chromem.EmbeddingFunc(constantEmbedding))
	require.NoError(t, err)

	return New(store, &fakeGenerator{}, cfg), cfg, docsDir
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const pageOne = "Matter has mass and occupies space. Everything around us is made of matter and every sample of it occupies some volume of its own."

func TestInitializeKnowledgeBase(t *testing.T) {
	ctx := context.Background()

	t.Run("Ingests every discovered document", func(t *testing.T) {
		p, _, docsDir := ingestFixture(t)
		writeDoc(t, docsDir, "iesc101.txt", pageOne)
		writeDoc(t, docsDir, "iesc102.txt", "Atoms combine to form molecules. The smallest unit of an element that retains its properties is the atom itself.")

		report, err := p.InitializeKnowledgeBase(ctx)

		require.NoError(t, err)
		assert.Equal(t, 2, report.DocumentsSeen)
		assert.Zero(t, report.DocumentsSkipped)
		assert.Greater(t, report.ChunksStored, 0)
		assert.Empty(t, report.Errors)

		count, err := p.store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, report.ChunksStored, count)
	})

	t.Run("Re-running on unchanged documents skips them", func(t *testing.T) {
		p, _, docsDir := ingestFixture(t)
		writeDoc(t, docsDir, "iesc101.txt", pageOne)

		_, err := p.InitializeKnowledgeBase(ctx)
		require.NoError(t, err)

		report, err := p.InitializeKnowledgeBase(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.DocumentsSeen)
		assert.Equal(t, 1, report.DocumentsSkipped)
		assert.Zero(t, report.ChunksStored)
	})

	t.Run("Changed documents are re-ingested", func(t *testing.T) {
		p, _, docsDir := ingestFixture(t)
		writeDoc(t, docsDir, "iesc101.txt", pageOne)

		_, err := p.InitializeKnowledgeBase(ctx)
		require.NoError(t, err)

		writeDoc(t, docsDir, "iesc101.txt", pageOne+" Gases fill their containers completely because their particles move freely.")
		report, err := p.InitializeKnowledgeBase(ctx)

		require.NoError(t, err)
		assert.Zero(t, report.DocumentsSkipped)
		assert.Greater(t, report.ChunksStored, 0)
	})

	t.Run("Shrinking a document drops its stale chunks", func(t *testing.T) {
		p, _, docsDir := ingestFixture(t)
		writeDoc(t, docsDir, "iesc101.txt", strings.Repeat(pageOne+" ", 20))

		_, err := p.InitializeKnowledgeBase(ctx)
		require.NoError(t, err)
		before, err := p.store.Count(ctx)
		require.NoError(t, err)
		require.Greater(t, before, 1, "long document must span several chunks")

		writeDoc(t, docsDir, "iesc101.txt", pageOne)
		report, err := p.InitializeKnowledgeBase(ctx)
		require.NoError(t, err)

		after, err := p.store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, report.ChunksStored, after, "only the new version's chunks may remain")
		assert.Less(t, after, before)
	})

	t.Run("Documents removed from the corpus lose their chunks", func(t *testing.T) {
		p, _, docsDir := ingestFixture(t)
		writeDoc(t, docsDir, "iesc101.txt", pageOne)
		writeDoc(t, docsDir, "iesc102.txt", "Atoms combine to form molecules. The smallest unit of an element that retains its properties is the atom itself.")

		first, err := p.InitializeKnowledgeBase(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, first.DocumentsSeen)

		require.NoError(t, os.Remove(filepath.Join(docsDir, "iesc102.txt")))
		report, err := p.InitializeKnowledgeBase(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, report.DocumentsSeen)
		assert.Equal(t, 1, report.DocumentsRemoved)

		count, err := p.store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "only the surviving document's chunk remains")

		// A third run must not report the removal again.
		report, err = p.InitializeKnowledgeBase(ctx)
		require.NoError(t, err)
		assert.Zero(t, report.DocumentsRemoved)
	})

	t.Run("Unreadable document is recorded and skipped, not fatal", func(t *testing.T) {
		p, _, docsDir := ingestFixture(t)
		writeDoc(t, docsDir, "iesc101.txt", pageOne)
		// A directory matching the pattern cannot be read as a document.
		require.NoError(t, os.Mkdir(filepath.Join(docsDir, "broken.txt"), 0o755))

		report, err := p.InitializeKnowledgeBase(ctx)

		require.NoError(t, err)
		assert.Equal(t, 2, report.DocumentsSeen)
		assert.Greater(t, report.ChunksStored, 0, "good document still ingested")
		require.Len(t, report.Errors, 1)
		assert.Equal(t, "broken.txt", report.Errors[0].Source)
	})

	t.Run("Embedder change invalidates the manifest", func(t *testing.T) {
		p, cfg, docsDir := ingestFixture(t)
		writeDoc(t, docsDir, "iesc101.txt", pageOne)

		_, err := p.InitializeKnowledgeBase(ctx)
		require.NoError(t, err)

		cfg.EmbedLLM.Model = "different-embedder"
		_, err = p.InitializeKnowledgeBase(ctx)
		assert.ErrorIs(t, err, models.ErrEmbedderMismatch)
	})
}
