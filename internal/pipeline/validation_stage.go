// Package pipeline drives a claim through its two processing stages:
// document validation and fraud detection. Each stage commits its status
// transition before the next stage starts, so a crash between stages leaves
// the claim in a consistent, resumable state.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/klaimcare/cyberclaim/constants"
	"github.com/klaimcare/cyberclaim/internal/metrics"
	"github.com/klaimcare/cyberclaim/internal/validation"
)

// DocumentValidator is the slice of the validation package the pipeline
// needs. Satisfied by *validation.Validator.
type DocumentValidator interface {
	ValidateClaimDocuments(ctx context.Context, pdfPaths []string) validation.Verdict
}

// StatusWriter is the slice of the claim repository the stages need.
type StatusWriter interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.ClaimStatus, data map[string]any) error
}

// ValidationStage runs the document pipeline and commits the resulting
// status: pending_verification on a valid verdict, rejected otherwise.
type ValidationStage struct {
	validator DocumentValidator
	claims    StatusWriter
	log       *slog.Logger
}

func NewValidationStage(validator DocumentValidator, claims StatusWriter, log *slog.Logger) *ValidationStage {
	if log == nil {
		log = slog.Default()
	}
	return &ValidationStage{validator: validator, claims: claims, log: log}
}

// Run validates the claim's PDFs and persists the outcome. Any internal
// failure, panics included, fails safe to rejected: a claim must never reach
// approval on a broken validation run.
func (s *ValidationStage) Run(ctx context.Context, claimID uuid.UUID, pdfPaths []string) (verdict validation.Verdict, err error) {
	start := time.Now()
	defer func() {
		metrics.PipelineDuration.WithLabelValues("validation").Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			s.log.Error("panic in validation stage", "claim_id", claimID, "panic", r)
			verdict = validation.Verdict{
				Valid:   false,
				Message: "validation failed due to an internal error",
				Errors:  []string{fmt.Sprintf("internal error: %v", r)},
			}
			err = s.commit(ctx, claimID, verdict)
		}
	}()

	verdict = s.validator.ValidateClaimDocuments(ctx, pdfPaths)
	return verdict, s.commit(ctx, claimID, verdict)
}

func (s *ValidationStage) commit(ctx context.Context, claimID uuid.UUID, verdict validation.Verdict) error {
	status := constants.StatusRejected
	if verdict.Valid {
		status = constants.StatusPendingVerification
	}
	data := map[string]any{
		"validation_data": verdict,
	}
	if !verdict.Valid {
		data["rejection_reason"] = verdict.Message
	}
	if err := s.claims.UpdateStatus(ctx, claimID, status, data); err != nil {
		return fmt.Errorf("commit validation outcome: %w", err)
	}
	metrics.StatusTransitions.WithLabelValues(string(constants.StatusUploaded), string(status)).Inc()
	s.log.Info("validation stage committed", "claim_id", claimID, "status", status, "valid", verdict.Valid)
	return nil
}
