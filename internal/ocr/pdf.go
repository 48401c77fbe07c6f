package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// pdfToText runs the embedded-text extractor and splits the output into
// pages on the form-feed separator.
func (a *Acquirer) pdfToText(ctx context.Context, path string) ([]string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := a.runner.Run(ctx, a.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w (%s)", err, truncate(string(errb), 512))
	}
	// A form-feed \f is emitted between pages; a trailing one ends the output.
	text := strings.TrimSuffix(string(out), "\f")
	return strings.Split(text, "\f"), nil
}

// pdfToOCR rasterizes the document and runs tesseract per page. Raster files
// live in a temp dir that is always removed. A failing page contributes an
// empty string so downstream extraction sees a stable page sequence.
func (a *Acquirer) pdfToOCR(ctx context.Context, path string) (pages []string, warnings []string, err error) {
	tmpDir, err := os.MkdirTemp("", "cc-raster-*")
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			a.logger.Warn("failed to remove raster temp dir", "dir", tmpDir, "error", rmErr)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	images, warns, err := a.rasterize(ctx, path, prefix)
	warnings = append(warnings, warns...)
	if err != nil {
		return nil, warnings, err
	}

	for _, img := range images {
		txt, w, ocrErr := a.tesseractOCR(ctx, img)
		warnings = append(warnings, w...)
		if ocrErr != nil {
			warnings = append(warnings, fmt.Sprintf("ocr %s: %v", filepath.Base(img), ocrErr))
			pages = append(pages, "")
			continue
		}
		pages = append(pages, txt)
	}
	return pages, warnings, nil
}

// rasterize renders each page to PNG, trying the primary backend first and
// the secondary one if it fails.
func (a *Acquirer) rasterize(ctx context.Context, path, prefix string) ([]string, []string, error) {
	var warnings []string

	// pdftoppm -r <dpi> -png <in.pdf> <prefix>
	_, errb, err := a.runner.Run(ctx, a.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", a.cfg.DPI), "-png", path, prefix)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("pdftoppm failed: %v", err))
		a.logger.Warn("primary rasterizer failed, trying secondary", "path", path, "error", err, "stderr", truncate(string(errb), 512))
		// pdftocairo -r <dpi> -png <in.pdf> <prefix>
		if _, errb2, err2 := a.runner.Run(ctx, a.cfg.Pdftocairo, "-r", fmt.Sprintf("%d", a.cfg.DPI), "-png", path, prefix); err2 != nil {
			warnings = append(warnings, fmt.Sprintf("pdftocairo failed: %v (%s)", err2, truncate(string(errb2), 512)))
			return nil, warnings, fmt.Errorf("all rendering backends failed: %w", err2)
		}
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, warnings, fmt.Errorf("no pages rendered")
	}
	return matches, warnings, nil
}

// tesseractOCR runs tesseract on one raster image with the configured
// bilingual model and returns the recognized text.
func (a *Acquirer) tesseractOCR(ctx context.Context, imgPath string) (string, []string, error) {
	// tesseract <img> stdout -l <lang> --psm 6
	out, errb, err := a.runner.Run(ctx, a.cfg.Tesseract, imgPath, "stdout", "-l", a.cfg.Language, "--psm", "6")
	if err != nil {
		return "", []string{truncate(string(errb), 512)}, err
	}
	var warns []string
	if msg := strings.TrimSpace(string(errb)); msg != "" {
		warns = append(warns, truncate(msg, 512))
	}
	return string(out), warns, nil
}
