// Package fraud runs heuristic checks over a validated claim and its
// document verdict. Each check either fires a finding or stays silent; a
// check that cannot run because its data source failed surfaces as an error
// so the caller can fail safe.
package fraud

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/klaimcare/cyberclaim/constants"
	"github.com/klaimcare/cyberclaim/internal/consistency"
	"github.com/klaimcare/cyberclaim/internal/entity"
	"github.com/klaimcare/cyberclaim/internal/repository"
	"github.com/klaimcare/cyberclaim/internal/validation"
)

// Variance thresholds for the billing check, as fractions of the expected
// tariff amount.
const (
	highVarianceThreshold   = 0.50
	mediumVarianceThreshold = 0.30

	// A claimed diagnosis whose tariff exceeds 1.5x the patient's prior
	// claim tariff is treated as possible upcoding.
	manipulationTariffRatio = 1.5
)

type Detector struct {
	claims  repository.ClaimRepository
	tariffs repository.TariffRepository
	log     *slog.Logger
}

func NewDetector(claims repository.ClaimRepository, tariffs repository.TariffRepository, log *slog.Logger) *Detector {
	if log == nil {
		log = slog.Default()
	}
	return &Detector{claims: claims, tariffs: tariffs, log: log}
}

// Detect runs all checks and returns the fired findings. The verdict may be
// nil when document validation produced no usable data; checks that need it
// are skipped silently in that case.
func (d *Detector) Detect(ctx context.Context, claim *entity.Claim, verdict *validation.Verdict) ([]*entity.FraudFinding, error) {
	var findings []*entity.FraudFinding

	f, err := d.checkDuplicateSEP(ctx, claim)
	if err != nil {
		return nil, fmt.Errorf("duplicate SEP check: %w", err)
	}
	if f != nil {
		findings = append(findings, f)
	}

	f, err = d.checkBillingAnomaly(ctx, claim, verdict)
	if err != nil {
		return nil, fmt.Errorf("billing anomaly check: %w", err)
	}
	if f != nil {
		findings = append(findings, f)
	}

	f, err = d.checkDiagnosisManipulation(ctx, claim)
	if err != nil {
		return nil, fmt.Errorf("diagnosis manipulation check: %w", err)
	}
	if f != nil {
		findings = append(findings, f)
	}

	if f := d.checkDataInconsistency(claim, verdict); f != nil {
		findings = append(findings, f)
	}

	d.log.Info("fraud detection complete", "claim_id", claim.ID, "findings", len(findings))
	return findings, nil
}

// checkDuplicateSEP fires when the same SEP number was already claimed for a
// different patient. A SEP is issued per patient per encounter, so a cross
// patient reuse is near-certain fraud.
func (d *Detector) checkDuplicateSEP(ctx context.Context, claim *entity.Claim) (*entity.FraudFinding, error) {
	if claim.SEPNumber == "" {
		return nil, nil
	}
	other, err := d.claims.FindBySEPNumber(ctx, claim.SEPNumber, claim.PatientID)
	if err != nil {
		return nil, err
	}
	if other == nil {
		return nil, nil
	}
	return &entity.FraudFinding{
		ClaimID:       claim.ID,
		DetectionType: constants.DetectionDuplicateSEP,
		RiskLevel:     constants.RiskHigh,
		Confidence:    0.85,
		Description:   fmt.Sprintf("SEP number %s already used by claim %s for another patient", claim.SEPNumber, other.ID),
		Details: map[string]any{
			"sep_number":        claim.SEPNumber,
			"conflicting_claim": other.ID.String(),
		},
	}, nil
}

// checkBillingAnomaly compares the claimed amount against the reference
// tariff for the diagnosis plus extracted procedures. Only overbilling past
// the medium threshold fires; underbilling is not a fraud signal here.
func (d *Detector) checkBillingAnomaly(ctx context.Context, claim *entity.Claim, verdict *validation.Verdict) (*entity.FraudFinding, error) {
	if claim.DiagnosisCode == "" || claim.ClaimedAmount <= 0 {
		return nil, nil
	}
	expected, err := d.tariffs.ExpectedAmount(ctx, claim.DiagnosisCode, procedureCodes(verdict))
	if err != nil {
		return nil, err
	}
	if expected <= 0 {
		return nil, nil
	}
	variance := (claim.ClaimedAmount - expected) / expected
	if variance <= mediumVarianceThreshold {
		return nil, nil
	}

	risk := constants.RiskMedium
	confidence := 0.65
	if variance > highVarianceThreshold {
		risk = constants.RiskHigh
		confidence = 0.80
	}
	return &entity.FraudFinding{
		ClaimID:       claim.ID,
		DetectionType: constants.DetectionBillingAnomaly,
		RiskLevel:     risk,
		Confidence:    confidence,
		Description: fmt.Sprintf("claimed amount %.2f exceeds reference tariff %.2f by %.0f%%",
			claim.ClaimedAmount, expected, variance*100),
		Details: map[string]any{
			"claimed_amount":  claim.ClaimedAmount,
			"expected_amount": expected,
			"variance":        variance,
		},
	}, nil
}

// checkDiagnosisManipulation looks at the patient's prior claims: a changed
// diagnosis whose tariff jumps past manipulationTariffRatio times the prior
// tariff suggests upcoding.
func (d *Detector) checkDiagnosisManipulation(ctx context.Context, claim *entity.Claim) (*entity.FraudFinding, error) {
	if claim.DiagnosisCode == "" {
		return nil, nil
	}
	prior, err := d.claims.ListByPatient(ctx, claim.PatientID, claim.ID)
	if err != nil {
		return nil, err
	}
	if len(prior) == 0 {
		return nil, nil
	}
	last := prior[0]
	if last.DiagnosisCode == "" || last.DiagnosisCode == claim.DiagnosisCode {
		return nil, nil
	}

	current, err := d.tariffs.GetByDiagnosis(ctx, claim.DiagnosisCode)
	if err != nil {
		return nil, err
	}
	previous, err := d.tariffs.GetByDiagnosis(ctx, last.DiagnosisCode)
	if err != nil {
		return nil, err
	}
	if current == nil || previous == nil || previous.Amount <= 0 {
		return nil, nil
	}
	if current.Amount <= manipulationTariffRatio*previous.Amount {
		return nil, nil
	}
	return &entity.FraudFinding{
		ClaimID:       claim.ID,
		DetectionType: constants.DetectionDiagnosisManipulation,
		RiskLevel:     constants.RiskHigh,
		Confidence:    0.80,
		Description: fmt.Sprintf("diagnosis changed from %s to %s with tariff jump %.2f -> %.2f",
			last.DiagnosisCode, claim.DiagnosisCode, previous.Amount, current.Amount),
		Details: map[string]any{
			"previous_diagnosis": last.DiagnosisCode,
			"current_diagnosis":  claim.DiagnosisCode,
			"previous_tariff":    previous.Amount,
			"current_tariff":     current.Amount,
		},
	}, nil
}

// checkDataInconsistency reuses the cross-document report computed during
// validation instead of re-deriving it.
func (d *Detector) checkDataInconsistency(claim *entity.Claim, verdict *validation.Verdict) *entity.FraudFinding {
	if verdict == nil {
		return nil
	}
	var issues []string
	for _, file := range verdict.Files {
		rep := file.Consistency
		if rep == nil || !rep.HasMismatch() {
			continue
		}
		if rep.Diagnosis == consistency.NoMatch {
			issues = append(issues, "diagnosis codes differ between SEP and medical record")
		}
		if !rep.PatientNameConsistent {
			issues = append(issues, "patient name differs across documents")
		}
		if rep.ReferringSignature == consistency.SignatureNotFound {
			issues = append(issues, "referring physician signature missing")
		}
		if rep.AttendingSignature == consistency.SignatureNotFound {
			issues = append(issues, "attending physician signature missing")
		}
	}
	if len(issues) == 0 {
		return nil
	}
	sort.Strings(issues)
	issues = dedupe(issues)
	return &entity.FraudFinding{
		ClaimID:       claim.ID,
		DetectionType: constants.DetectionDataInconsistency,
		RiskLevel:     constants.RiskMedium,
		Confidence:    0.65,
		Description:   fmt.Sprintf("cross-document inconsistencies: %d issue(s)", len(issues)),
		Details:       map[string]any{"issues": issues},
	}
}

// procedureCodes collects valid procedure codes from every medical record in
// the verdict.
func procedureCodes(verdict *validation.Verdict) []string {
	if verdict == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, file := range verdict.Files {
		rm, ok := file.Documents[constants.DocMedicalRecord]
		if !ok {
			continue
		}
		for _, p := range rm.Procedures {
			if !p.Valid {
				continue
			}
			if _, dup := seen[p.Code]; dup {
				continue
			}
			seen[p.Code] = struct{}{}
			out = append(out, p.Code)
		}
	}
	sort.Strings(out)
	return out
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i > 0 && s == sorted[i-1] {
			continue
		}
		out = append(out, s)
	}
	return out
}
