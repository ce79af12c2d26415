package parser

import (
	"fmt"
	"regexp"
	"strings"

	"tutor-rag/internal/models"
)

// Classifier derives structural metadata for chunks. The exact
// heuristics vary per corpus, so callers can swap in their own.
type Classifier interface {
	// ChapterOf labels a page with its chapter, or UnknownChapter.
	ChapterOf(filename, pageText string) string
	// TypeOf tags chunk text with its content kind.
	TypeOf(text string) models.ChunkType
}

// DefaultClassifier implements the NCERT textbook conventions:
// filename patterns first, then chapter headings in the page text.
type DefaultClassifier struct{}

var (
	chapterFile     = regexp.MustCompile(models.ChapterFileRegex)
	annexureFile    = regexp.MustCompile(models.AnnexureFileRegex)
	prefaceFile     = regexp.MustCompile(models.PrefaceFileRegex)
	chapterHeading  = regexp.MustCompile(models.ChapterHeadingRegex)
	numberedHeading = regexp.MustCompile(models.NumberedHeadingRegex)
	formulaChars    = "=∝±°"
)

func (DefaultClassifier) ChapterOf(filename, pageText string) string {
	// In-text headings win over filename hints because a file can span
	// front matter plus the chapter proper.
	if m := chapterHeading.FindStringSubmatch(pageText); m != nil {
		return fmt.Sprintf("Chapter %s: %s", m[1], strings.TrimSpace(m[2]))
	}
	if m := numberedHeading.FindStringSubmatch(pageText); m != nil {
		return fmt.Sprintf("Chapter %s: %s", m[1], strings.TrimSpace(m[2]))
	}

	if annexureFile.MatchString(filename) {
		return "Annexure"
	}
	if prefaceFile.MatchString(filename) {
		return "Preface"
	}
	if m := chapterFile.FindStringSubmatch(filename); m != nil {
		num := m[1]
		// iesc101 -> Chapter 1, iesc112 -> Chapter 12.
		if strings.HasPrefix(num, "10") && len(num) == 3 {
			num = num[2:]
		} else if strings.HasPrefix(num, "1") && len(num) == 3 {
			num = num[1:]
		}
		return "Chapter " + num
	}
	return models.UnknownChapter
}

func (DefaultClassifier) TypeOf(text string) models.ChunkType {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "is defined as"),
		strings.Contains(lower, "definition:"),
		strings.Contains(lower, "refers to"):
		return models.ChunkTypeDefinition
	case strings.HasSuffix(strings.TrimSpace(text), "?"),
		strings.Contains(lower, "question"):
		return models.ChunkTypeQuestion
	case strings.Contains(lower, "for instance"),
		strings.Contains(lower, "for example"),
		strings.Contains(lower, "such as"):
		return models.ChunkTypeExample
	case strings.ContainsAny(text, formulaChars):
		return models.ChunkTypeFormula
	default:
		return models.ChunkTypeContent
	}
}
