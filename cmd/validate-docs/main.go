// validate-docs runs the document validation pipeline offline over one or
// more claim PDFs and prints the verdict as JSON. Useful for checking a
// claim bundle before uploading it, and for debugging extraction rules.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/klaimcare/cyberclaim/internal/common"
	"github.com/klaimcare/cyberclaim/internal/extract"
	"github.com/klaimcare/cyberclaim/internal/ocr"
	"github.com/klaimcare/cyberclaim/internal/refdata"
	"github.com/klaimcare/cyberclaim/internal/validation"
)

func main() {
	strict := flag.Bool("strict", false, "escalate every missing mandatory field to a critical error")
	pretty := flag.Bool("pretty", true, "indent the JSON output")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] claim.pdf [more.pdf ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	_ = godotenv.Load()
	cfg := common.LoadConfig()
	if cfg.Reference.ICD10Path == "" || cfg.Reference.ICD9Path == "" {
		fmt.Fprintln(os.Stderr, "ICD10_PATH and ICD9_PATH must point at the reference workbooks")
		os.Exit(2)
	}

	codes, err := refdata.Load(cfg.Reference.ICD10Path, cfg.Reference.ICD9Path, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading reference tables: %v\n", err)
		os.Exit(1)
	}

	acquirer := ocr.NewAcquirer(ocr.Config{
		Pdftotext:  cfg.OCR.Pdftotext,
		Pdftoppm:   cfg.OCR.Pdftoppm,
		Pdftocairo: cfg.OCR.Pdftocairo,
		Tesseract:  cfg.OCR.Tesseract,
		Language:   cfg.OCR.Language,
		DPI:        cfg.OCR.DPI,
		Timeout:    cfg.OCR.Timeout,
	}, logger)
	validator := validation.NewValidator(acquirer, extract.NewExtractor(codes, logger), validation.Policy{
		RequiredPages: cfg.Pipeline.RequiredPages,
		Strict:        *strict,
	}, logger)

	verdict := validator.ValidateClaimDocuments(context.Background(), flag.Args())

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(verdict); err != nil {
		fmt.Fprintf(os.Stderr, "encoding verdict: %v\n", err)
		os.Exit(1)
	}
	if !verdict.Valid {
		os.Exit(1)
	}
}
