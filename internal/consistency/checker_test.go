package consistency

import (
	"testing"

	"github.com/klaimcare/cyberclaim/internal/extract"
)

func resultWith(name string, sig string, codes ...string) extract.FieldExtractionResult {
	res := extract.FieldExtractionResult{Fields: map[string]string{}}
	if name != "" {
		res.Fields[extract.FieldPatientName] = name
	}
	if sig != "" {
		res.Fields[extract.FieldReferringSignature] = sig
		res.Fields[extract.FieldAttendingSignature] = sig
	}
	for _, c := range codes {
		res.Diagnoses = append(res.Diagnoses, extract.DiagnosisEntry{Code: c, Valid: true})
	}
	return res
}

func TestCheck_DiagnosisNoMatch(t *testing.T) {
	sep := resultWith("BUDI SANTOSO", "ttd", "I10")
	rm := resultWith("BUDI SANTOSO", "ttd", "E11")
	rep := Check(sep, resultWith("BUDI SANTOSO", "ttd"), rm)

	if rep.Diagnosis != NoMatch {
		t.Errorf("diagnosis = %s, want %s", rep.Diagnosis, NoMatch)
	}
	if !rep.HasMismatch() {
		t.Error("NO_MATCH must count as a mismatch")
	}
}

func TestCheck_DiagnosisMatchOnIntersection(t *testing.T) {
	sep := resultWith("BUDI", "ttd", "I10", "E11.9")
	rm := resultWith("BUDI", "ttd", "E11.9", "J18.9")
	rep := Check(sep, resultWith("BUDI", "ttd"), rm)

	if rep.Diagnosis != Match {
		t.Errorf("diagnosis = %s, want %s", rep.Diagnosis, Match)
	}
}

func TestCheck_DiagnosisIncompleteData(t *testing.T) {
	sep := resultWith("BUDI", "ttd", "I10")
	rm := resultWith("BUDI", "ttd") // no valid codes on the RM side
	rep := Check(sep, resultWith("BUDI", "ttd"), rm)

	if rep.Diagnosis != IncompleteData {
		t.Errorf("diagnosis = %s, want %s", rep.Diagnosis, IncompleteData)
	}
}

func TestCheck_InvalidCodesDoNotCount(t *testing.T) {
	sep := extract.FieldExtractionResult{
		Fields:    map[string]string{},
		Diagnoses: []extract.DiagnosisEntry{{Code: "Q99.9", Valid: false}},
	}
	rm := resultWith("", "", "Q99.9")
	rep := Check(sep, extract.FieldExtractionResult{Fields: map[string]string{}}, rm)

	if rep.Diagnosis != IncompleteData {
		t.Errorf("diagnosis = %s, want %s (invalid codes are not comparable)", rep.Diagnosis, IncompleteData)
	}
}

func TestCheck_PatientNameCaseInsensitive(t *testing.T) {
	rep := Check(
		resultWith("Budi Santoso", "ttd", "I10"),
		resultWith("BUDI  SANTOSO", "ttd"),
		resultWith("budi santoso", "ttd", "I10"),
	)
	if !rep.PatientNameConsistent {
		t.Errorf("names differing only in case/spacing must be consistent, got %v", rep.PatientNames)
	}

	rep = Check(
		resultWith("BUDI SANTOSO", "ttd", "I10"),
		resultWith("ANDI WIJAYA", "ttd"),
		resultWith("BUDI SANTOSO", "ttd", "I10"),
	)
	if rep.PatientNameConsistent {
		t.Error("two distinct names must be flagged")
	}
	if len(rep.PatientNames) != 2 {
		t.Errorf("distinct names = %v, want 2 entries", rep.PatientNames)
	}
}

func TestCheck_SignatureStatuses(t *testing.T) {
	rep := Check(
		resultWith("BUDI", "", "I10"),
		resultWith("BUDI", "", "I10"),
		resultWith("BUDI", "", "I10"),
	)
	if rep.ReferringSignature != SignatureNotFound || rep.AttendingSignature != SignatureNotFound {
		t.Errorf("signatures = %s/%s, want NOT_FOUND/NOT_FOUND", rep.ReferringSignature, rep.AttendingSignature)
	}
	if !rep.HasMismatch() {
		t.Error("missing signature must count as mismatch")
	}

	rep = Check(
		resultWith("BUDI", "ttd", "I10"),
		resultWith("BUDI", "ttd", "I10"),
		resultWith("BUDI", "ttd", "I10"),
	)
	if rep.ReferringSignature != SignatureFound || rep.AttendingSignature != SignatureFound {
		t.Errorf("signatures = %s/%s, want FOUND/FOUND", rep.ReferringSignature, rep.AttendingSignature)
	}
	if rep.HasMismatch() {
		t.Error("fully consistent claim must not report a mismatch")
	}
}
