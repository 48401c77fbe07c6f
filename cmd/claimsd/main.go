// claimsd is the claim intake and processing service: it accepts claim
// archive uploads, validates the documents inside, runs fraud detection and
// serves claim status over HTTP.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/klaimcare/cyberclaim/internal/archive"
	"github.com/klaimcare/cyberclaim/internal/async"
	"github.com/klaimcare/cyberclaim/internal/common"
	"github.com/klaimcare/cyberclaim/internal/extract"
	"github.com/klaimcare/cyberclaim/internal/fraud"
	"github.com/klaimcare/cyberclaim/internal/ocr"
	"github.com/klaimcare/cyberclaim/internal/pipeline"
	"github.com/klaimcare/cyberclaim/internal/refdata"
	"github.com/klaimcare/cyberclaim/internal/repository"
	"github.com/klaimcare/cyberclaim/internal/server"
	"github.com/klaimcare/cyberclaim/internal/validation"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using environment")
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	codes, err := refdata.Load(cfg.Reference.ICD10Path, cfg.Reference.ICD9Path, logger)
	if err != nil {
		logger.Error("loading reference tables failed", "error", err)
		os.Exit(1)
	}

	claims := repository.NewClaimRepository(pool, logger)
	findings := repository.NewFraudRepository(pool, logger)
	tariffs := repository.NewCachedTariffRepository(repository.NewTariffRepository(pool, logger), 15*time.Minute)

	acquirer := ocr.NewAcquirer(ocr.Config{
		Pdftotext:  cfg.OCR.Pdftotext,
		Pdftoppm:   cfg.OCR.Pdftoppm,
		Pdftocairo: cfg.OCR.Pdftocairo,
		Tesseract:  cfg.OCR.Tesseract,
		Language:   cfg.OCR.Language,
		DPI:        cfg.OCR.DPI,
		Timeout:    cfg.OCR.Timeout,
	}, logger)
	extractor := extract.NewExtractor(codes, logger)
	validator := validation.NewValidator(acquirer, extractor, validation.Policy{
		RequiredPages: cfg.Pipeline.RequiredPages,
		Strict:        cfg.Pipeline.Strict,
	}, logger)

	detector := fraud.NewDetector(claims, tariffs, logger)
	validationStage := pipeline.NewValidationStage(validator, claims, logger)
	fraudStage := pipeline.NewFraudStage(detector, findings, claims, logger)
	processor := pipeline.NewProcessor(validationStage, fraudStage, claims, logger)

	queue := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithProcessTimeout(cfg.Pipeline.ProcessTimeout),
	)

	srv := server.New(server.Deps{
		Config:    cfg.Server,
		Pipeline:  cfg.Pipeline,
		Claims:    claims,
		Findings:  findings,
		Queue:     queue,
		Extractor: archive.NewExtractor(os.Getenv("UNRAR_BIN"), logger),
		Fraud:     fraudStage,
		Pool:      pool,
		Logger:    logger,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	if err := queue.Shutdown(shutdownCtx); err != nil {
		logger.Error("queue shutdown failed", "error", err)
	}
	logger.Info("claimsd stopped")
}
