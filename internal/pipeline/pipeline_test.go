package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/klaimcare/cyberclaim/constants"
	"github.com/klaimcare/cyberclaim/internal/entity"
	"github.com/klaimcare/cyberclaim/internal/validation"
)

// recordingStatusWriter enforces the state machine exactly like the real
// repository and keeps the transition history.
type recordingStatusWriter struct {
	status      constants.ClaimStatus
	transitions []constants.ClaimStatus
	data        []map[string]any
	failWith    error
}

func (w *recordingStatusWriter) UpdateStatus(_ context.Context, _ uuid.UUID, status constants.ClaimStatus, data map[string]any) error {
	if w.failWith != nil {
		return w.failWith
	}
	if !constants.CanTransition(w.status, status) {
		return errors.New("illegal transition " + string(w.status) + " -> " + string(status))
	}
	w.status = status
	w.transitions = append(w.transitions, status)
	w.data = append(w.data, data)
	return nil
}

type stubValidator struct {
	verdict validation.Verdict
	boom    bool
}

func (s *stubValidator) ValidateClaimDocuments(context.Context, []string) validation.Verdict {
	if s.boom {
		panic("extraction blew up")
	}
	return s.verdict
}

type stubDetector struct {
	findings []*entity.FraudFinding
	err      error
}

func (s *stubDetector) Detect(context.Context, *entity.Claim, *validation.Verdict) ([]*entity.FraudFinding, error) {
	return s.findings, s.err
}

type stubFindingWriter struct {
	saved []*entity.FraudFinding
	err   error
}

func (s *stubFindingWriter) CreateFindings(_ context.Context, findings []*entity.FraudFinding) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, findings...)
	return nil
}

type stubClaimReader struct {
	claim *entity.Claim
	err   error
}

func (s *stubClaimReader) GetByID(context.Context, uuid.UUID) (*entity.Claim, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.claim, nil
}

func highFinding(confidence float64) *entity.FraudFinding {
	return &entity.FraudFinding{
		ClaimID:       uuid.New(),
		DetectionType: constants.DetectionBillingAnomaly,
		RiskLevel:     constants.RiskHigh,
		Confidence:    confidence,
	}
}

func newProcessor(v *stubValidator, d *stubDetector, fw *stubFindingWriter, w *recordingStatusWriter, claim *entity.Claim) *Processor {
	vs := NewValidationStage(v, w, nil)
	fs := NewFraudStage(d, fw, w, nil)
	return NewProcessor(vs, fs, &stubClaimReader{claim: claim}, nil)
}

func TestProcessValidClaimApproved(t *testing.T) {
	claim := &entity.Claim{ID: uuid.New(), PatientID: uuid.New()}
	w := &recordingStatusWriter{status: constants.StatusUploaded}
	p := newProcessor(
		&stubValidator{verdict: validation.Verdict{Valid: true, FilesValid: 1}},
		&stubDetector{},
		&stubFindingWriter{},
		w, claim,
	)

	status, err := p.Process(context.Background(), claim.ID, []string{"claim.pdf"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if status != constants.StatusApproved {
		t.Errorf("status = %s, want approved", status)
	}
	want := []constants.ClaimStatus{constants.StatusPendingVerification, constants.StatusApproved}
	if len(w.transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", w.transitions, want)
	}
	for i := range want {
		if w.transitions[i] != want[i] {
			t.Errorf("transition[%d] = %s, want %s", i, w.transitions[i], want[i])
		}
	}
}

func TestProcessInvalidClaimRejectedBeforeFraud(t *testing.T) {
	claim := &entity.Claim{ID: uuid.New()}
	w := &recordingStatusWriter{status: constants.StatusUploaded}
	d := &stubDetector{findings: []*entity.FraudFinding{highFinding(0.99)}}
	p := newProcessor(
		&stubValidator{verdict: validation.Verdict{Valid: false, Message: "validation failed: archive contains no PDF documents"}},
		d, &stubFindingWriter{}, w, claim,
	)

	status, err := p.Process(context.Background(), claim.ID, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if status != constants.StatusRejected {
		t.Errorf("status = %s, want rejected", status)
	}
	if len(w.transitions) != 1 || w.transitions[0] != constants.StatusRejected {
		t.Errorf("transitions = %v, want single move to rejected", w.transitions)
	}
	if len(w.data) == 0 || w.data[0]["rejection_reason"] == nil {
		t.Error("rejection reason not persisted")
	}
}

func TestProcessValidatorPanicFailsSafe(t *testing.T) {
	claim := &entity.Claim{ID: uuid.New()}
	w := &recordingStatusWriter{status: constants.StatusUploaded}
	p := newProcessor(&stubValidator{boom: true}, &stubDetector{}, &stubFindingWriter{}, w, claim)

	status, err := p.Process(context.Background(), claim.ID, []string{"claim.pdf"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if status != constants.StatusRejected {
		t.Errorf("status = %s, want rejected on internal failure", status)
	}
	if w.status != constants.StatusRejected {
		t.Errorf("persisted status = %s, want rejected", w.status)
	}
}

func TestProcessClaimReloadFailureParksForReview(t *testing.T) {
	claimID := uuid.New()
	w := &recordingStatusWriter{status: constants.StatusUploaded}
	vs := NewValidationStage(&stubValidator{verdict: validation.Verdict{Valid: true, FilesValid: 1}}, w, nil)
	fs := NewFraudStage(&stubDetector{}, &stubFindingWriter{}, w, nil)
	p := NewProcessor(vs, fs, &stubClaimReader{err: errors.New("connection reset")}, nil)

	status, err := p.Process(context.Background(), claimID, []string{"claim.pdf"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if status != constants.StatusFraudCheck {
		t.Errorf("status = %s, want fraud_check when the claim cannot be reloaded", status)
	}
	if w.status != constants.StatusFraudCheck {
		t.Errorf("persisted status = %s, claim must not stay in pending_verification", w.status)
	}
	last := w.data[len(w.data)-1]
	if last["requires_manual_review"] != true {
		t.Error("requires_manual_review flag not set")
	}
}

func TestProcessDetectorErrorParksForReview(t *testing.T) {
	claim := &entity.Claim{ID: uuid.New()}
	w := &recordingStatusWriter{status: constants.StatusUploaded}
	p := newProcessor(
		&stubValidator{verdict: validation.Verdict{Valid: true, FilesValid: 1}},
		&stubDetector{err: errors.New("tariff table unreachable")},
		&stubFindingWriter{},
		w, claim,
	)

	status, err := p.Process(context.Background(), claim.ID, []string{"claim.pdf"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if status != constants.StatusFraudCheck {
		t.Errorf("status = %s, want fraud_check on detection failure", status)
	}
	last := w.data[len(w.data)-1]
	if last["requires_manual_review"] != true {
		t.Error("requires_manual_review flag not set")
	}
}

func TestProcessPersistsFindings(t *testing.T) {
	claim := &entity.Claim{ID: uuid.New()}
	w := &recordingStatusWriter{status: constants.StatusUploaded}
	fw := &stubFindingWriter{}
	p := newProcessor(
		&stubValidator{verdict: validation.Verdict{Valid: true, FilesValid: 1}},
		&stubDetector{findings: []*entity.FraudFinding{{
			RiskLevel: constants.RiskMedium, Confidence: 0.65,
		}}},
		fw, w, claim,
	)

	status, err := p.Process(context.Background(), claim.ID, []string{"claim.pdf"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if status != constants.StatusFraudCheck {
		t.Errorf("status = %s, want fraud_check for medium risk at 0.65", status)
	}
	if len(fw.saved) != 1 {
		t.Errorf("saved findings = %d, want 1", len(fw.saved))
	}
}

func TestProcessLoneHighFindingBelowRejectApproves(t *testing.T) {
	claim := &entity.Claim{ID: uuid.New()}
	w := &recordingStatusWriter{status: constants.StatusUploaded}
	p := newProcessor(
		&stubValidator{verdict: validation.Verdict{Valid: true, FilesValid: 1}},
		&stubDetector{findings: []*entity.FraudFinding{highFinding(0.65)}},
		&stubFindingWriter{}, w, claim,
	)

	status, err := p.Process(context.Background(), claim.ID, []string{"claim.pdf"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if status != constants.StatusApproved {
		t.Errorf("status = %s, want approved for high risk at 0.65", status)
	}
	if w.status != constants.StatusApproved {
		t.Errorf("persisted status = %s, want approved", w.status)
	}
}

func TestDecideThresholds(t *testing.T) {
	cases := []struct {
		name     string
		findings []*entity.FraudFinding
		want     constants.ClaimStatus
	}{
		{"no findings", nil, constants.StatusApproved},
		{"high at reject threshold approved", []*entity.FraudFinding{highFinding(0.70)}, constants.StatusApproved},
		{"high below reject threshold approved", []*entity.FraudFinding{highFinding(0.65)}, constants.StatusApproved},
		{"high just above reject threshold", []*entity.FraudFinding{highFinding(0.71)}, constants.StatusRejected},
		{"medium above review threshold", []*entity.FraudFinding{{
			RiskLevel: constants.RiskMedium, Confidence: 0.65,
		}}, constants.StatusFraudCheck},
		{"medium at review threshold approved", []*entity.FraudFinding{{
			RiskLevel: constants.RiskMedium, Confidence: 0.60,
		}}, constants.StatusApproved},
		{"low risk always approved", []*entity.FraudFinding{{
			RiskLevel: constants.RiskLow, Confidence: 0.99,
		}}, constants.StatusApproved},
		{"critical rejects like high", []*entity.FraudFinding{{
			RiskLevel: constants.RiskCritical, Confidence: 0.90,
		}}, constants.StatusRejected},
		{"reject wins over review", []*entity.FraudFinding{
			{RiskLevel: constants.RiskMedium, Confidence: 0.65},
			highFinding(0.85),
		}, constants.StatusRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Decide(tc.findings); got != tc.want {
				t.Errorf("Decide = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestFraudStagePersistFailureParksForReview(t *testing.T) {
	claim := &entity.Claim{ID: uuid.New()}
	w := &recordingStatusWriter{status: constants.StatusPendingVerification}
	fs := NewFraudStage(
		&stubDetector{findings: []*entity.FraudFinding{highFinding(0.9)}},
		&stubFindingWriter{err: errors.New("insert failed")},
		w, nil,
	)

	status, err := fs.Run(context.Background(), claim, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if status != constants.StatusFraudCheck {
		t.Errorf("status = %s, want fraud_check when findings cannot be saved", status)
	}
}
