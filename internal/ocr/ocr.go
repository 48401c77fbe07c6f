package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/klaimcare/cyberclaim/internal/metrics"
)

// embeddedTextThreshold is the minimum embedded-text length on at least one
// page for a PDF to be treated as digitally generated (fast path).
const embeddedTextThreshold = 20

type Config struct {
	Pdftotext  string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm   string // primary rasterizer; if empty -> "pdftoppm"
	Pdftocairo string // secondary rasterizer tried when the primary fails
	Tesseract  string // if empty -> "tesseract"

	Language string // tesseract language pack(s), default "ind+eng"
	DPI      int    // rasterization DPI for scanned PDFs, default 300
	Timeout  time.Duration
}

// AcquisitionResult carries per-page text plus how it was produced.
type AcquisitionResult struct {
	Pages    []string
	Method   string // "pdf-text" | "pdf-ocr"
	Duration time.Duration
	Warnings []string
}

// TextAcquirer produces per-page plain text for a document file.
type TextAcquirer interface {
	AcquireText(ctx context.Context, path string) (AcquisitionResult, error)
	PageCount(ctx context.Context, path string) (int, error)
}

type Acquirer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewAcquirer(cfg Config, logger *slog.Logger) *Acquirer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Pdftocairo == "" {
		cfg.Pdftocairo = "pdftocairo"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "ind+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Acquirer{cfg: cfg, runner: execRunner{}, logger: logger}
}

// WithRunner swaps the external-command runner. Tests use this to stub
// pdftotext/tesseract.
func (a *Acquirer) WithRunner(r Runner) *Acquirer {
	a.runner = r
	return a
}

// AcquireText extracts per-page text from a PDF. Embedded text is preferred;
// documents without it are rasterized and OCR'd page by page. A page that
// fails to render or OCR yields an empty string, never an error for the
// whole document.
func (a *Acquirer) AcquireText(ctx context.Context, path string) (AcquisitionResult, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	pages, err := a.pdfToText(ctx, path)
	if err != nil {
		return AcquisitionResult{}, fmt.Errorf("open pdf %q: %w", path, err)
	}
	if hasEmbeddedText(pages) {
		a.logger.Debug("embedded text found", "path", path, "pages", len(pages))
		dur := time.Since(start)
		metrics.TextAcquisitionDuration.WithLabelValues("pdf-text").Observe(dur.Seconds())
		return AcquisitionResult{
			Pages:    pages,
			Method:   "pdf-text",
			Duration: dur,
		}, nil
	}

	a.logger.Debug("no embedded text, falling back to ocr", "path", path)
	ocrPages, warns, err := a.pdfToOCR(ctx, path)
	if err != nil {
		return AcquisitionResult{}, fmt.Errorf("ocr pdf %q: %w", path, err)
	}
	dur := time.Since(start)
	metrics.TextAcquisitionDuration.WithLabelValues("pdf-ocr").Observe(dur.Seconds())
	return AcquisitionResult{
		Pages:    ocrPages,
		Method:   "pdf-ocr",
		Duration: dur,
		Warnings: warns,
	}, nil
}

// PageCount reports the page count of a PDF using the embedded-text pass.
func (a *Acquirer) PageCount(ctx context.Context, path string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	pages, err := a.pdfToText(ctx, path)
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

func hasEmbeddedText(pages []string) bool {
	for _, p := range pages {
		if len(strings.TrimSpace(p)) > embeddedTextThreshold {
			return true
		}
	}
	return false
}
