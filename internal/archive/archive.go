// Package archive validates and unpacks the claim bundle uploaded with a
// submission. Bundles are zip or rar; members are PDFs or page images.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klaimcare/cyberclaim/constants"
	"github.com/klaimcare/cyberclaim/internal/common"
	"github.com/klaimcare/cyberclaim/internal/ocr"
)

var (
	zipMagic = []byte{'P', 'K', 0x03, 0x04}
	rarMagic = []byte{'R', 'a', 'r', '!', 0x1a, 0x07}
)

// Extractor unpacks claim archives. Rar extraction shells out to unrar; zip
// is handled in-process.
type Extractor struct {
	unrarBin string
	runner   ocr.Runner
	log      *slog.Logger
}

func NewExtractor(unrarBin string, log *slog.Logger) *Extractor {
	if unrarBin == "" {
		unrarBin = "unrar"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{unrarBin: unrarBin, runner: ocr.NewExecRunner(), log: log}
}

// WithRunner swaps the external-command runner for tests.
func (e *Extractor) WithRunner(r ocr.Runner) *Extractor {
	e.runner = r
	return e
}

// ValidateArchive checks extension and magic bytes before anything touches
// the archive contents. The extension must also agree with the magic: a rar
// renamed to .zip is rejected.
func ValidateArchive(path string) error {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if _, ok := constants.AllowedArchiveExtensions[ext]; !ok {
		return common.NewAppError("UNSUPPORTED_ARCHIVE",
			fmt.Sprintf("extension %q not allowed, use zip or rar", ext), common.ErrInvalidInput)
	}

	f, err := os.Open(path)
	if err != nil {
		return common.WrapError(err, "open archive")
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, 8)
	n, err := io.ReadFull(f, head)
	if err != nil && n < len(zipMagic) {
		return common.NewAppError("EMPTY_ARCHIVE", "archive is empty or truncated", common.ErrInvalidInput)
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, zipMagic):
		if ext != "zip" {
			return common.NewAppError("ARCHIVE_MISMATCH", "zip content with non-zip extension", common.ErrInvalidInput)
		}
	case bytes.HasPrefix(head, rarMagic):
		if ext != "rar" {
			return common.NewAppError("ARCHIVE_MISMATCH", "rar content with non-rar extension", common.ErrInvalidInput)
		}
	default:
		return common.NewAppError("CORRUPT_ARCHIVE", "file is not a zip or rar archive", common.ErrInvalidInput)
	}
	return nil
}

// Extract unpacks the archive into destDir and returns the paths of all PDF
// members, sorted by name. Non-document members are skipped with a log line.
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string) ([]string, error) {
	if err := ValidateArchive(archivePath); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, common.WrapError(err, "create extraction dir")
	}

	ext := constants.NormalizeExt(filepath.Ext(archivePath))
	var err error
	switch ext {
	case "zip":
		err = e.extractZip(archivePath, destDir)
	case "rar":
		err = e.extractRar(ctx, archivePath, destDir)
	}
	if err != nil {
		return nil, err
	}
	return e.collectPDFs(destDir)
}

func (e *Extractor) extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return common.WrapError(err, "open zip")
	}
	defer func() { _ = r.Close() }()

	for _, member := range r.File {
		if member.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(member.Name)
		memberExt := constants.NormalizeExt(filepath.Ext(name))
		if _, ok := constants.AllowedDocumentExtensions[memberExt]; !ok {
			e.log.Warn("skipping archive member with unsupported extension", "member", member.Name)
			continue
		}
		// flatten: member paths inside the archive are untrusted
		target := filepath.Join(destDir, name)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			e.log.Warn("skipping archive member escaping extraction dir", "member", member.Name)
			continue
		}
		if err := copyZipMember(member, target); err != nil {
			return common.WrapError(err, fmt.Sprintf("extract %s", member.Name))
		}
	}
	return nil
}

func copyZipMember(member *zip.File, target string) error {
	src, err := member.Open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	return err
}

// extractRar shells out to unrar. "e" extracts flattened into destDir,
// which matches the zip path's behavior of ignoring member directories.
func (e *Extractor) extractRar(ctx context.Context, archivePath, destDir string) error {
	_, stderr, err := e.runner.Run(ctx, e.unrarBin, "e", "-o+", "-y", archivePath, destDir+string(os.PathSeparator))
	if err != nil {
		return common.WrapError(fmt.Errorf("%w: %s", err, bytes.TrimSpace(stderr)), "unrar")
	}
	return nil
}

func (e *Extractor) collectPDFs(destDir string) ([]string, error) {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return nil, common.WrapError(err, "list extracted files")
	}
	var pdfs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if constants.IsPDFExt(filepath.Ext(entry.Name())) {
			pdfs = append(pdfs, filepath.Join(destDir, entry.Name()))
		}
	}
	sort.Strings(pdfs)
	e.log.Info("archive extracted", "dir", destDir, "pdf_files", len(pdfs))
	return pdfs, nil
}
