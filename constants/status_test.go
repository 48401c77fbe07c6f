package constants

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to ClaimStatus
		want     bool
	}{
		{StatusUploaded, StatusPendingVerification, true},
		{StatusUploaded, StatusRejected, true},
		{StatusUploaded, StatusApproved, false},
		{StatusPendingVerification, StatusApproved, true},
		{StatusPendingVerification, StatusFraudCheck, true},
		{StatusPendingVerification, StatusRejected, true},
		{StatusPendingVerification, StatusUploaded, false},
		{StatusFraudCheck, StatusApproved, true},
		{StatusFraudCheck, StatusRejected, true},
		{StatusRejected, StatusUploaded, false},
		{StatusApproved, StatusPendingVerification, false},
		{StatusRejected, StatusPendingVerification, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []ClaimStatus{StatusApproved, StatusRejected} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []ClaimStatus{StatusUploaded, StatusPendingVerification, StatusFraudCheck} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
