package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/klaimcare/cyberclaim/constants"
)

// FraudFinding is one fired heuristic check, persisted as a row of
// fraud_detections. Immutable once created; the resolution side-record
// (resolved flag, resolver, notes) is written later by a human reviewer.
type FraudFinding struct {
	ID            uuid.UUID               `json:"id"`
	ClaimID       uuid.UUID               `json:"claim_id"`
	DetectionType constants.DetectionType `json:"detection_type"`
	RiskLevel     constants.RiskLevel     `json:"risk_level"`
	Confidence    float64                 `json:"confidence"`
	Description   string                  `json:"description"`
	Details       map[string]any          `json:"details,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
}
