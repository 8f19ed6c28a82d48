package ingest

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// OCREngine recognizes text on the first page of a scanned document.
type OCREngine interface {
	// Recognize renders the document's first page and runs character
	// recognition with the given language model.
	Recognize(ctx context.Context, path, language string) (string, error)
}

// ocrDPI is the render resolution passed to pdftoppm. 300 DPI keeps
// tesseract accurate on typical contract scans without excessive render
// time.
const ocrDPI = "300"

// TesseractOCR shells out to pdftoppm (poppler-utils) for page rendering
// and tesseract for recognition. Only the first page is processed; rent
// contracts carry all relevant fields on page one, and full-document OCR
// is an order of magnitude slower.
type TesseractOCR struct{}

// NewTesseractOCR creates the external-tool OCR engine.
func NewTesseractOCR() *TesseractOCR {
	return &TesseractOCR{}
}

// Recognize implements OCREngine.
func (t *TesseractOCR) Recognize(ctx context.Context, path, language string) (string, error) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return "", fmt.Errorf("pdftoppm not available (install poppler-utils): %w", err)
	}
	if _, err := exec.LookPath("tesseract"); err != nil {
		return "", fmt.Errorf("tesseract not available (install tesseract-ocr): %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "rentcheck-ocr-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// First page only: -f 1 -l 1.
	imgPrefix := filepath.Join(tmpDir, "page")
	render := exec.CommandContext(ctx, "pdftoppm", "-r", ocrDPI, "-png", "-f", "1", "-l", "1", path, imgPrefix)
	if out, err := render.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(out))
	}

	image, err := firstPageImage(tmpDir)
	if err != nil {
		return "", err
	}

	outBase := strings.TrimSuffix(image, ".png") + "-ocr"
	recognize := exec.CommandContext(ctx, "tesseract", image, outBase, "-l", language, "--psm", "4")
	if out, err := recognize.CombinedOutput(); err != nil {
		return "", fmt.Errorf("tesseract failed: %w (output: %s)", err, string(out))
	}

	data, err := os.ReadFile(outBase + ".txt")
	if err != nil {
		return "", fmt.Errorf("read tesseract output: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func firstPageImage(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read render dir: %w", err)
	}

	var images []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".png") {
			images = append(images, filepath.Join(dir, e.Name()))
		}
	}
	if len(images) == 0 {
		return "", fmt.Errorf("pdftoppm produced no page image")
	}
	sort.Strings(images)
	return images[0], nil
}
