package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"tutor-rag/internal/models"
)

// span marks one chunk window inside the source text.
type span struct {
	start int
	end   int
}

// chunkSpans cuts content into windows of at most maxChars with
// overlap overlapChars between neighbours. Windows prefer to end on a
// space, newline or sentence boundary found within the last tenth of
// the window. The spans cover the whole content with no gaps.
func chunkSpans(content string, maxChars, overlapChars int) []span {
	if maxChars <= 0 || len(content) == 0 {
		return nil
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars / 2
	}

	contentLen := len(content)
	if contentLen <= maxChars {
		return []span{{0, contentLen}}
	}

	var spans []span
	start := 0
	for start < contentLen {
		end := min(start+maxChars, contentLen)

		if end < contentLen {
			lookBack := min(maxChars/10, end-start)
			for i := end - 1; i >= end-lookBack && i > start; i-- {
				if content[i] == ' ' || content[i] == '\n' || content[i] == '.' {
					end = i + 1
					break
				}
			}
		}

		spans = append(spans, span{start, end})
		if end >= contentLen {
			break
		}

		// Advance relative to the chosen end so the overlap is exact
		// and no text between windows is ever skipped.
		next := end - overlapChars
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

// ChunkID derives a stable identifier from the source and position, so
// re-ingesting an unchanged document yields identical ids.
func ChunkID(source string, ordinal int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", source, ordinal)))
	return hex.EncodeToString(sum[:])[:32]
}

// ChunkOptions bound chunk size and overlap.
type ChunkOptions struct {
	MaxChars     int
	OverlapChars int
	MinLength    int
}

// BuildChunks turns extracted page sections into retrieval chunks with
// stable ids and structural metadata. Chunks shorter than MinLength
// after trimming are dropped.
func BuildChunks(sections []models.PageSection, opts ChunkOptions, classifier Classifier) []models.Chunk {
	var chunks []models.Chunk
	ordinal := 0
	for _, section := range sections {
		for _, sp := range chunkSpans(section.Text, opts.MaxChars, opts.OverlapChars) {
			text := strings.TrimSpace(section.Text[sp.start:sp.end])
			if len(text) < opts.MinLength {
				continue
			}
			chunks = append(chunks, models.Chunk{
				ID:      ChunkID(section.Source, ordinal),
				Content: text,
				Source:  section.Source,
				Chapter: section.Chapter,
				Page:    section.Page,
				Ordinal: ordinal,
				Type:    classifier.TypeOf(text),
			})
			ordinal++
		}
	}
	return chunks
}
