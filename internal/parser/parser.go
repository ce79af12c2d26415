package parser

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"tutor-rag/internal/models"
)

// DiscoverDocuments lists files matching pattern under dir, sorted so
// ingestion order is stable across runs.
func DiscoverDocuments(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad document pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// ExtractSections pulls per-page text out of a document and attaches
// source and chapter metadata. The format is picked by extension.
func ExtractSections(filePath string, classifier Classifier) ([]models.PageSection, error) {
	var (
		pages []pageText
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".pdf":
		pages, err = extractPDF(filePath)
	case ".docx":
		pages, err = extractDOCX(filePath)
	case ".xlsx":
		pages, err = extractXLSX(filePath)
	case ".ods":
		pages, err = extractODS(filePath)
	case ".txt":
		pages, err = extractText(filePath)
	case ".md":
		pages, err = extractMarkdown(filePath)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
	if err != nil {
		return nil, err
	}

	source := filepath.Base(filePath)
	var sections []models.PageSection
	for _, p := range pages {
		cleaned := CleanText(p.text)
		if cleaned == "" {
			continue
		}
		sections = append(sections, models.PageSection{
			Text:    cleaned,
			Page:    p.page,
			Chapter: classifier.ChapterOf(source, p.text),
			Source:  source,
		})
	}
	return sections, nil
}

type pageText struct {
	text string
	page int
}

func extractPDF(filePath string) ([]pageText, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var pages []pageText
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, pageText{text: text, page: i})
	}
	return pages, nil
}

func extractDOCX(filePath string) ([]pageText, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	// DOCX carries no page boundaries; the whole body is one page.
	content := r.Editable().GetContent()
	return []pageText{{text: content, page: 1}}, nil
}

func extractXLSX(filePath string) ([]pageText, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	var pages []pageText
	for sheetNum, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		pages = append(pages, pageText{text: text.String(), page: sheetNum + 1})
	}
	return pages, nil
}

func extractODS(filePath string) ([]pageText, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []pageText
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		pages = append(pages, pageText{text: text.String(), page: sheetNum + 1})
	}
	return pages, nil
}

func extractText(filePath string) ([]pageText, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return []pageText{{text: string(data), page: 1}}, nil
}

func extractMarkdown(filePath string) ([]pageText, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	rendered, err := renderMarkdown(string(data))
	if err != nil {
		return nil, err
	}
	return []pageText{{text: rendered, page: 1}}, nil
}

var tagRegex = regexp.MustCompile(`<[^>]+>`)

// renderMarkdown normalizes markdown through goldmark and strips the
// resulting HTML tags, so headings and lists survive as plain text.
func renderMarkdown(text string) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return tagRegex.ReplaceAllString(buf.String(), ""), nil
}

var (
	bareNumberLine = regexp.MustCompile(`(?m)^\s*\d+\s*$`)
	pageHeaderLine = regexp.MustCompile(`(?m)^Page \d+.*$`)
	figureLine     = regexp.MustCompile(`(?m)^Fig\.\s*\d+.*$`)
	tableLine      = regexp.MustCompile(`(?m)^Table\s*\d+.*$`)
	multiSpace     = regexp.MustCompile(`[ \t]+`)
	multiNewline   = regexp.MustCompile(`\n{3,}`)
)

// CleanText strips page furniture (standalone page numbers, figure and
// table captions) and collapses runs of whitespace.
func CleanText(text string) string {
	text = bareNumberLine.ReplaceAllString(text, "")
	text = pageHeaderLine.ReplaceAllString(text, "")
	text = figureLine.ReplaceAllString(text, "")
	text = tableLine.ReplaceAllString(text, "")
	text = multiSpace.ReplaceAllString(text, " ")
	text = multiNewline.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
