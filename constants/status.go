package constants

// ClaimStatus is the canonical lifecycle status for rows in claim_submission.
type ClaimStatus string

// Stable values (store these exact strings in DB).
const (
	StatusUploaded            ClaimStatus = "uploaded"             // archive stored, pipeline scheduled
	StatusPendingVerification ClaimStatus = "pending_verification" // documents validated, awaiting fraud check
	StatusApproved            ClaimStatus = "approved"             // terminal
	StatusFraudCheck          ClaimStatus = "fraud_check"          // flagged, awaiting human review
	StatusRejected            ClaimStatus = "rejected"             // terminal
)

// transitions is the set of moves the pipeline itself may perform, plus the
// human-review resolution moves out of fraud_check.
var transitions = map[ClaimStatus][]ClaimStatus{
	StatusUploaded:            {StatusPendingVerification, StatusRejected},
	StatusPendingVerification: {StatusApproved, StatusFraudCheck, StatusRejected},
	StatusFraudCheck:          {StatusApproved, StatusRejected},
}

// CanTransition reports whether moving from -> to is a legal status change.
func CanTransition(from, to ClaimStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further pipeline transition is allowed.
func (s ClaimStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s ClaimStatus) String() string { return string(s) }
