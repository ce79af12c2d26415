// Package prompt assembles generation requests from retrieved chunks,
// a personalization directive and the raw query. Assembly is
// deterministic given identical inputs.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"tutor-rag/internal/models"
	"tutor-rag/internal/personalize"
)

const systemTemplate = `You are an AI tutoring assistant specialized in Class 9 NCERT Science.
Your role is to help students understand scientific concepts clearly and accurately.

IMPORTANT GUIDELINES:
1. Base your answers ONLY on the provided context from the NCERT textbook
2. If the context doesn't contain enough information, clearly state this limitation
3. Never make up facts or provide information not found in the context
4. Always cite the chapter/page when possible
5. Vocabulary level: %s
6. Example density: %s
7. Tone: %s`

const userTemplate = `Based on the following context from the NCERT Class 9 Science textbook, please answer the student's question.

CONTEXT:
%s

STUDENT'S QUESTION:
%s

Please provide a clear, accurate answer based on the context above. If the context doesn't fully address the question, mention what information is missing.`

// Request is a fully assembled generation request.
type Request struct {
	System   string
	User     string
	Included []models.RetrievedChunk
}

// Build formats the system and user prompts. Excerpts are tagged with
// their source metadata and truncated to stay within budget characters
// of context, dropping the lowest-similarity chunks first.
func Build(query string, retrieved []models.RetrievedChunk, style personalize.StyleDirective, budget int) Request {
	system := fmt.Sprintf(systemTemplate, style.Vocabulary, style.Examples, style.ToneNote)
	if style.Guidelines != "" {
		system += "\n\nPERSONALIZATION:\n" + style.Guidelines
	}

	included, context := fitContext(retrieved, budget)
	if context == "" {
		context = "No relevant context found in the textbook."
	}

	return Request{
		System:   system,
		User:     fmt.Sprintf(userTemplate, context, query),
		Included: included,
	}
}

// fitContext keeps the highest-similarity excerpts whose formatted
// text fits in budget characters.
func fitContext(retrieved []models.RetrievedChunk, budget int) ([]models.RetrievedChunk, string) {
	ranked := make([]models.RetrievedChunk, len(retrieved))
	copy(ranked, retrieved)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})

	var (
		included []models.RetrievedChunk
		parts    []string
		used     int
	)
	for i, rc := range ranked {
		excerpt := formatExcerpt(i+1, rc)
		if used+len(excerpt) > budget {
			break
		}
		used += len(excerpt)
		parts = append(parts, excerpt)
		included = append(included, rc)
	}
	return included, strings.Join(parts, "\n\n")
}

func formatExcerpt(n int, rc models.RetrievedChunk) string {
	chapter := rc.Chunk.Chapter
	if chapter == "" {
		chapter = models.UnknownChapter
	}
	return fmt.Sprintf("[Source %d: %s, Page %d]\n%s%s",
		n, chapter, rc.Chunk.Page, rc.Chunk.Content, models.ExcerptSeparator)
}
