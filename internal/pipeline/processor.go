package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/klaimcare/cyberclaim/constants"
	"github.com/klaimcare/cyberclaim/internal/entity"
	"github.com/klaimcare/cyberclaim/internal/metrics"
)

// ClaimReader loads the claim between stages so the fraud stage sees the
// committed validation state.
type ClaimReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Claim, error)
}

// Processor chains the two stages for one claim. Validation commits its
// transition before fraud detection starts.
type Processor struct {
	validation *ValidationStage
	fraud      *FraudStage
	claims     ClaimReader
	log        *slog.Logger
}

func NewProcessor(validation *ValidationStage, fraud *FraudStage, claims ClaimReader, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{validation: validation, fraud: fraud, claims: claims, log: log}
}

// Process runs the full pipeline for one uploaded claim. It returns the
// final status reached, which is also the claim's persisted status.
func (p *Processor) Process(ctx context.Context, claimID uuid.UUID, pdfPaths []string) (constants.ClaimStatus, error) {
	verdict, err := p.validation.Run(ctx, claimID, pdfPaths)
	if err != nil {
		return "", err
	}
	if !verdict.Valid {
		metrics.ClaimsProcessed.WithLabelValues(string(constants.StatusRejected)).Inc()
		p.log.Info("claim rejected at validation", "claim_id", claimID, "message", verdict.Message)
		return constants.StatusRejected, nil
	}

	claim, err := p.claims.GetByID(ctx, claimID)
	if err != nil {
		// The validation transition is already committed; a claim must not
		// stay stuck in pending_verification because the reload failed.
		status, perr := p.fraud.parkForReview(ctx, claimID,
			fmt.Sprintf("loading claim for fraud check failed: %v", err))
		if perr != nil {
			return "", perr
		}
		metrics.ClaimsProcessed.WithLabelValues(string(status)).Inc()
		return status, nil
	}
	status, err := p.fraud.Run(ctx, claim, &verdict)
	if err != nil {
		return "", err
	}
	metrics.ClaimsProcessed.WithLabelValues(string(status)).Inc()
	return status, nil
}
