// Package ingest turns uploaded contract files into plain text. Plain text
// files pass through, PDFs go through text layer extraction with an OCR
// fallback for scanned documents. The pipeline is total: a file that yields
// no text produces a sentinel document instead of an error, so one broken
// upload never aborts a batch.
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"rent-reconciliation-service/pkg/logger"
)

// NoTextSentinel is the document text recorded when every extraction
// method came up empty. Drafts built from it are still reviewable by hand.
const NoTextSentinel = "no text recognized"

// minTextLayerLength is the threshold below which a PDF's text layer is
// considered absent and the scanned-document OCR fallback kicks in.
const minTextLayerLength = 10

// ocrLanguages are tried in order until one produces text. German contracts
// first, English as the retry.
var ocrLanguages = []string{"deu", "eng"}

// Method records which extraction path produced a document's text.
type Method string

const (
	MethodTextFile Method = "text_file"
	MethodPDFLayer Method = "pdf_layer"
	MethodOCR      Method = "ocr"
	MethodNone     Method = "none"
)

// Document is the result of ingesting one file.
type Document struct {
	FileName string
	Text     string
	Method   Method
}

// TextLength returns the length of the trimmed document text, with the
// sentinel counting as zero.
func (d Document) TextLength() int {
	if d.Method == MethodNone {
		return 0
	}
	return len(strings.TrimSpace(d.Text))
}

// Pipeline extracts text from uploaded contract files.
type Pipeline struct {
	pdf      PDFTextExtractor
	ocr      OCREngine
	progress *logger.ProgressTracker
	logger   logger.Logger
}

// NewPipeline creates a pipeline with the standard extractors.
func NewPipeline() *Pipeline {
	tracker := logger.NewProgressTracker("ingest", logger.GetGlobalLogger())
	return NewPipelineWith(NewLayerExtractor(), NewTesseractOCR(), tracker)
}

// NewPipelineWith creates a pipeline with explicit extractors, used by
// tests to substitute the external tools.
func NewPipelineWith(pdf PDFTextExtractor, ocr OCREngine, progress *logger.ProgressTracker) *Pipeline {
	return &Pipeline{
		pdf:      pdf,
		ocr:      ocr,
		progress: progress,
		logger:   logger.GetGlobalLogger().WithComponent("ingest_pipeline"),
	}
}

// Progress exposes the pipeline's progress tracker for observers.
func (p *Pipeline) Progress() *logger.ProgressTracker {
	return p.progress
}

// ProcessBatch ingests the files sequentially. Progress is reset at each
// file boundary. The returned slice always has one document per input
// path, in input order.
func (p *Pipeline) ProcessBatch(ctx context.Context, paths []string) []Document {
	docs := make([]Document, 0, len(paths))
	for _, path := range paths {
		if ctx.Err() != nil {
			docs = append(docs, sentinelDocument(path))
			continue
		}
		docs = append(docs, p.ProcessFile(ctx, path))
	}
	return docs
}

// ProcessFile ingests one file. It never returns an error: any failure
// degrades to the sentinel document, with the cause logged.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) Document {
	p.progress.Reset(filepath.Base(path))
	log := p.logger.WithField("file", filepath.Base(path))

	var doc Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text", ".md":
		doc = p.processTextFile(path, log)
	case ".pdf":
		doc = p.processPDF(ctx, path, log)
	default:
		// Unknown extension: assume PDF content, since that is what
		// scanners and export tools most often produce.
		doc = p.processPDF(ctx, path, log)
	}

	p.progress.Set(100)
	log.WithFields(logger.Fields{
		"method":      doc.Method,
		"text_length": doc.TextLength(),
	}).Info("File ingested")
	return doc
}

func (p *Pipeline) processTextFile(path string, log logger.Logger) Document {
	data, err := os.ReadFile(path)
	if err != nil {
		log.WithField("error", err.Error()).Warn("Text file unreadable")
		return sentinelDocument(path)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return sentinelDocument(path)
	}
	return Document{FileName: filepath.Base(path), Text: text, Method: MethodTextFile}
}

func (p *Pipeline) processPDF(ctx context.Context, path string, log logger.Logger) Document {
	text, err := p.pdf.ExtractText(path, p.progress.Set)
	if err != nil {
		log.WithField("error", err.Error()).Warn("PDF text layer extraction failed")
	}

	if len(strings.TrimSpace(text)) >= minTextLayerLength {
		return Document{FileName: filepath.Base(path), Text: text, Method: MethodPDFLayer}
	}

	// Little or no text layer: treat as a scanned document.
	log.Debug("Text layer below threshold, running OCR")
	for _, lang := range ocrLanguages {
		recognized, ocrErr := p.ocr.Recognize(ctx, path, lang)
		if ocrErr != nil {
			log.WithFields(logger.Fields{
				"language": lang,
				"error":    ocrErr.Error(),
			}).Warn("OCR attempt failed")
			continue
		}
		if strings.TrimSpace(recognized) != "" {
			return Document{FileName: filepath.Base(path), Text: recognized, Method: MethodOCR}
		}
	}

	return sentinelDocument(path)
}

func sentinelDocument(path string) Document {
	return Document{FileName: filepath.Base(path), Text: NoTextSentinel, Method: MethodNone}
}
