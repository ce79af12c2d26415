package models

const (
	// Filename conventions for NCERT textbook sources, e.g.
	// iesc101.pdf -> Chapter 1, iesc1an.pdf -> Annexure.
	ChapterFileRegex     = `(?i)iesc(\d+)\.[a-z]+$`
	AnnexureFileRegex    = `(?i)iesc1an\.`
	PrefaceFileRegex     = `(?i)iesc1ps\.`
	ChapterHeadingRegex  = `(?im)^chapter\s+(\d+)\s*[:\-]?\s*(.+?)\s*$`
	NumberedHeadingRegex = `(?m)^(\d+)\.\s+([A-Z].+?)\s*$`

	// UnknownChapter labels chunks whose source gives no chapter hint.
	UnknownChapter = "unknown"

	ExcerptSeparator = "\n---\n"
)

// DemoQueries is the fixed smoke-test set run by the demo operation.
var DemoQueries = []string{
	"Why does a ball thrown upwards come back down?",
	"What is the difference between mass and weight?",
	"Explain how sound travels through different materials",
	"What happens during photosynthesis in plants?",
	"How do forces affect motion in everyday life?",
	"What is the structure of an atom?",
}
