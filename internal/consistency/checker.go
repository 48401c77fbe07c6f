// Package consistency cross-checks fields extracted from the three claim
// documents (SEP, referral letter, medical record). Every outcome is a
// structured report field; the checker itself never fails.
package consistency

import (
	"sort"
	"strings"

	"github.com/klaimcare/cyberclaim/internal/extract"
)

type MatchStatus string

const (
	Match          MatchStatus = "MATCH"
	NoMatch        MatchStatus = "NO_MATCH"
	IncompleteData MatchStatus = "INCOMPLETE_DATA"
)

type SignatureStatus string

const (
	SignatureFound    SignatureStatus = "FOUND"
	SignatureNotFound SignatureStatus = "NOT_FOUND"
)

// Report is the structured outcome of one cross-document check.
type Report struct {
	Diagnosis             MatchStatus     `json:"diagnosis"`
	PatientNameConsistent bool            `json:"patient_name_consistent"`
	PatientNames          []string        `json:"patient_names,omitempty"` // distinct normalized names when inconsistent
	ReferringSignature    SignatureStatus `json:"referring_signature"`
	AttendingSignature    SignatureStatus `json:"attending_signature"`
}

// HasMismatch reports whether any check found an inconsistency worth a
// warning or a fraud finding.
func (r Report) HasMismatch() bool {
	return r.Diagnosis == NoMatch ||
		!r.PatientNameConsistent ||
		r.ReferringSignature == SignatureNotFound ||
		r.AttendingSignature == SignatureNotFound
}

// Check compares the three extraction results. Diagnosis codes are compared
// between SEP and medical record (intersection non-empty = MATCH); patient
// names across all three sources case-insensitively; physician signatures
// are reported per document.
func Check(sep, referral, rm extract.FieldExtractionResult) Report {
	rep := Report{
		Diagnosis:             diagnosisMatch(sep, rm),
		ReferringSignature:    signatureStatus(referral, extract.FieldReferringSignature),
		AttendingSignature:    signatureStatus(rm, extract.FieldAttendingSignature),
		PatientNameConsistent: true,
	}

	names := distinctNames(
		sep.Fields[extract.FieldPatientName],
		referral.Fields[extract.FieldPatientName],
		rm.Fields[extract.FieldPatientName],
	)
	if len(names) > 1 {
		rep.PatientNameConsistent = false
		rep.PatientNames = names
	}
	return rep
}

func diagnosisMatch(sep, rm extract.FieldExtractionResult) MatchStatus {
	sepCodes := sep.DiagnosisCodes()
	rmCodes := rm.DiagnosisCodes()
	if len(sepCodes) == 0 || len(rmCodes) == 0 {
		return IncompleteData
	}
	for code := range sepCodes {
		if _, ok := rmCodes[code]; ok {
			return Match
		}
	}
	return NoMatch
}

func signatureStatus(res extract.FieldExtractionResult, field string) SignatureStatus {
	if res.Has(field) {
		return SignatureFound
	}
	return SignatureNotFound
}

func distinctNames(names ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, n := range names {
		norm := strings.ToUpper(strings.Join(strings.Fields(n), " "))
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	sort.Strings(out)
	return out
}
