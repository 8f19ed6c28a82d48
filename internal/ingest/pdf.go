package ingest

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFTextExtractor pulls the embedded text layer out of a PDF document.
type PDFTextExtractor interface {
	// ExtractText returns the concatenated text of all pages. The progress
	// callback receives a percentage after each processed page.
	ExtractText(path string, progress func(percent int)) (string, error)
}

// LayerExtractor reads the text layer with the ledongthuc/pdf library,
// page by page. Scanned documents without a text layer yield little or no
// text; the pipeline falls back to OCR for those.
type LayerExtractor struct{}

// NewLayerExtractor creates a text layer extractor.
func NewLayerExtractor() *LayerExtractor {
	return &LayerExtractor{}
}

// ExtractText implements PDFTextExtractor. The pdf library panics on some
// malformed documents, so the extraction is wrapped in a recover that
// converts the panic into a regular error.
func (x *LayerExtractor) ExtractText(path string, progress func(percent int)) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf library crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return "", fmt.Errorf("pdf has no pages")
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		if pageText := extractPage(r, i); pageText != "" {
			pages = append(pages, pageText)
		}
		if progress != nil {
			progress(i * 100 / numPages)
		}
	}

	return strings.Join(pages, "\n"), nil
}

// extractPage tries row-based extraction first for better line ordering,
// then the plain text path with the page's font map.
func extractPage(r *pdf.Reader, pageNum int) string {
	page := r.Page(pageNum)
	if page.V.IsNull() {
		return ""
	}

	if rows, err := page.GetTextByRow(); err == nil && len(rows) > 0 {
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			return strings.Join(lines, "\n")
		}
	}

	fonts := make(map[string]*pdf.Font)
	for _, name := range page.Fonts() {
		f := page.Font(name)
		fonts[name] = &f
	}
	text, err := page.GetPlainText(fonts)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
