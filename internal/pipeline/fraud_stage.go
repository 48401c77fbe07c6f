package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/klaimcare/cyberclaim/constants"
	"github.com/klaimcare/cyberclaim/internal/entity"
	"github.com/klaimcare/cyberclaim/internal/metrics"
	"github.com/klaimcare/cyberclaim/internal/validation"
)

// FraudChecker is the slice of the fraud package the stage needs. Satisfied
// by *fraud.Detector.
type FraudChecker interface {
	Detect(ctx context.Context, claim *entity.Claim, verdict *validation.Verdict) ([]*entity.FraudFinding, error)
}

// FindingWriter persists detection results.
type FindingWriter interface {
	CreateFindings(ctx context.Context, findings []*entity.FraudFinding) error
}

// FraudStage runs fraud detection over a claim that passed document
// validation and commits the final status.
type FraudStage struct {
	detector FraudChecker
	findings FindingWriter
	claims   StatusWriter
	log      *slog.Logger
}

func NewFraudStage(detector FraudChecker, findings FindingWriter, claims StatusWriter, log *slog.Logger) *FraudStage {
	if log == nil {
		log = slog.Default()
	}
	return &FraudStage{detector: detector, findings: findings, claims: claims, log: log}
}

// Run detects, persists findings and decides the final status. A detection
// or persistence failure never approves and never rejects: the claim parks
// in fraud_check flagged for manual review.
func (s *FraudStage) Run(ctx context.Context, claim *entity.Claim, verdict *validation.Verdict) (constants.ClaimStatus, error) {
	start := time.Now()
	defer func() {
		metrics.PipelineDuration.WithLabelValues("fraud").Observe(time.Since(start).Seconds())
	}()

	findings, err := s.detector.Detect(ctx, claim, verdict)
	if err != nil {
		return s.parkForReview(ctx, claim.ID, fmt.Sprintf("fraud detection failed: %v", err))
	}
	if err := s.findings.CreateFindings(ctx, findings); err != nil {
		return s.parkForReview(ctx, claim.ID, fmt.Sprintf("persisting fraud findings failed: %v", err))
	}
	for _, f := range findings {
		metrics.FraudFindings.WithLabelValues(string(f.DetectionType), string(f.RiskLevel)).Inc()
	}

	status := Decide(findings)
	data := map[string]any{
		"fraud_findings_count": len(findings),
	}
	if status == constants.StatusFraudCheck {
		data["requires_manual_review"] = true
	}
	if err := s.claims.UpdateStatus(ctx, claim.ID, status, data); err != nil {
		return "", fmt.Errorf("commit fraud outcome: %w", err)
	}
	metrics.StatusTransitions.WithLabelValues(string(constants.StatusPendingVerification), string(status)).Inc()
	s.log.Info("fraud stage committed", "claim_id", claim.ID, "status", status, "findings", len(findings))
	return status, nil
}

func (s *FraudStage) parkForReview(ctx context.Context, claimID uuid.UUID, reason string) (constants.ClaimStatus, error) {
	s.log.Error("fraud stage degraded, parking claim for manual review", "claim_id", claimID, "reason", reason)
	data := map[string]any{
		"requires_manual_review": true,
		"fraud_check_error":      reason,
	}
	if err := s.claims.UpdateStatus(ctx, claimID, constants.StatusFraudCheck, data); err != nil {
		return "", fmt.Errorf("park claim for review: %w", err)
	}
	metrics.StatusTransitions.WithLabelValues(string(constants.StatusPendingVerification), string(constants.StatusFraudCheck)).Inc()
	return constants.StatusFraudCheck, nil
}

// Decide maps detection results to the post-fraud-check status. A high or
// critical finding strictly above the reject threshold rejects; otherwise a
// medium finding strictly above the review threshold requires manual review;
// otherwise the claim is approved. A lone high-risk finding at or below the
// reject threshold approves, it does not fall through to review.
func Decide(findings []*entity.FraudFinding) constants.ClaimStatus {
	review := false
	for _, f := range findings {
		switch f.RiskLevel {
		case constants.RiskHigh, constants.RiskCritical:
			if f.Confidence > constants.RejectConfidence {
				return constants.StatusRejected
			}
		case constants.RiskMedium:
			if f.Confidence > constants.ReviewConfidence {
				review = true
			}
		}
	}
	if review {
		return constants.StatusFraudCheck
	}
	return constants.StatusApproved
}
