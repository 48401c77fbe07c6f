package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/klaimcare/cyberclaim/constants"
)

// Claim mirrors a row of claim_submission. The document pipeline owns only
// Status, ValidationData and the pipeline timestamps; everything else is
// written once at upload by the CRUD layer.
type Claim struct {
	ID             uuid.UUID
	FacilityID     uuid.UUID
	PatientID      uuid.UUID
	SEPNumber      string
	DiagnosisCode  string // primary diagnosis as submitted with the claim
	ClaimedAmount  float64
	ArchivePath    string
	Status         constants.ClaimStatus
	ValidationData json.RawMessage
	UploadedAt     time.Time
	ValidatedAt    *time.Time
	FraudCheckedAt *time.Time
}
