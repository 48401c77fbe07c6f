package extract

import "github.com/klaimcare/cyberclaim/constants"

// Field names shared across rule tables and downstream consumers.
const (
	FieldSEPNumber           = "sep_number"
	FieldSEPDate             = "sep_date"
	FieldCardNumber          = "card_number"
	FieldPatientName         = "patient_name"
	FieldReferralNumber      = "referral_number"
	FieldReferringPhysician  = "referring_physician"
	FieldReferringSignature  = "referring_signature"
	FieldMedicalRecordNumber = "medical_record_number"
	FieldAttendingPhysician  = "attending_physician"
	FieldAttendingSignature  = "attending_signature"
	FieldDiagnosis           = "diagnosis"
)

// ExtractedDocument is the ephemeral product of text acquisition for one
// archive member.
type ExtractedDocument struct {
	Path  string
	Pages []string
	Kind  constants.DocumentKind
}

// DiagnosisEntry is one extracted diagnosis or procedure code, already run
// through the code validator.
type DiagnosisEntry struct {
	Code              string `json:"code"`
	Description       string `json:"description"`
	Valid             bool   `json:"valid"`
	ValidationMessage string `json:"validation_message"`
	CodingSystem      string `json:"coding_system,omitempty"`
}

// FieldExtractionResult maps extracted fields for one document kind.
// Absence of a field is data, not an error: missing mandatory fields are
// listed in MissingFields and the claim proceeds with partial data.
type FieldExtractionResult struct {
	Kind          constants.DocumentKind `json:"kind"`
	Fields        map[string]string      `json:"fields"`
	Diagnoses     []DiagnosisEntry       `json:"diagnoses"`
	Procedures    []DiagnosisEntry       `json:"procedures,omitempty"`
	MissingFields []string               `json:"missing_fields"`
}

// Has reports whether a non-empty value was extracted for field.
func (r FieldExtractionResult) Has(field string) bool {
	return r.Fields[field] != ""
}

// DiagnosisCodes returns the set of valid diagnosis codes in the result.
func (r FieldExtractionResult) DiagnosisCodes() map[string]struct{} {
	out := make(map[string]struct{})
	for _, d := range r.Diagnoses {
		if d.Valid {
			out[d.Code] = struct{}{}
		}
	}
	return out
}
