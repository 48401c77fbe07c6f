package extract

import (
	"regexp"

	"github.com/klaimcare/cyberclaim/constants"
)

// FieldRule binds one field to an ordered list of patterns. Patterns are
// tried in priority order and the first match wins; later alternatives exist
// to tolerate formatting drift between hospital systems and OCR noise.
// Every pattern captures the field value in group 1.
type FieldRule struct {
	Field     string
	Mandatory bool
	Patterns  []*regexp.Regexp
}

var sepRules = []FieldRule{
	{
		Field:     FieldSEPNumber,
		Mandatory: true,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)No\.?\s*SEP\s*[:;]\s*([0-9A-Z]{8,19})`),
			regexp.MustCompile(`(?i)Nomor\s+SEP\s*[:;]?\s*([0-9A-Z]{8,19})`),
			regexp.MustCompile(`(?i)\bSEP\s+([0-9]{4}[A-Z][0-9]{4,12}[A-Z]?[0-9]{0,6})`),
		},
	},
	{
		Field:     FieldSEPDate,
		Mandatory: true,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)Tgl\.?\s*SEP\s*[:;]\s*([0-9]{1,2}[-/][0-9]{1,2}[-/][0-9]{2,4})`),
			regexp.MustCompile(`(?i)Tanggal\s+SEP\s*[:;]?\s*([0-9]{1,2}\s+[A-Za-z]+\s+[0-9]{4})`),
			regexp.MustCompile(`(?i)Tgl\.?\s*SEP\s*[:;]?\s*([0-9]{4}-[0-9]{2}-[0-9]{2})`),
		},
	},
	{
		Field:     FieldCardNumber,
		Mandatory: true,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)No\.?\s*Kartu\s*[:;]\s*([0-9]{11,16})`),
			regexp.MustCompile(`(?i)Nomor\s+Kartu\s*(?:BPJS)?\s*[:;]?\s*([0-9]{11,16})`),
			regexp.MustCompile(`(?i)Kartu\s*BPJS\s*[:;]?\s*([0-9]{11,16})`),
		},
	},
	{
		Field:     FieldPatientName,
		Mandatory: true,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)Nama\s*Peserta\s*[:;]\s*([A-Za-z][A-Za-z.,' ]+)`),
			regexp.MustCompile(`(?i)Nama\s*Pasien\s*[:;]\s*([A-Za-z][A-Za-z.,' ]+)`),
			regexp.MustCompile(`(?i)\bNama\s*[:;]\s*([A-Za-z][A-Za-z.,' ]+)`),
		},
	},
}

var referralRules = []FieldRule{
	{
		Field:     FieldReferralNumber,
		Mandatory: true,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)No\.?\s*Rujukan\s*[:;]\s*([0-9A-Z/.-]{6,30})`),
			regexp.MustCompile(`(?i)Nomor\s+(?:Surat\s+)?Rujukan\s*[:;]?\s*([0-9A-Z/.-]{6,30})`),
		},
	},
	{
		Field:     FieldPatientName,
		Mandatory: true,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)Nama\s*Pasien\s*[:;]\s*([A-Za-z][A-Za-z.,' ]+)`),
			regexp.MustCompile(`(?i)Nama\s*Peserta\s*[:;]\s*([A-Za-z][A-Za-z.,' ]+)`),
			regexp.MustCompile(`(?i)\bNama\s*[:;]\s*([A-Za-z][A-Za-z.,' ]+)`),
		},
	},
	{
		Field: FieldReferringPhysician,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)Dokter\s*Perujuk\s*[:;]?\s*((?:dr|drg)\.?[A-Za-z.,' ]+)`),
			regexp.MustCompile(`(?i)Perujuk\s*[:;]\s*((?:dr|drg)\.?[A-Za-z.,' ]+)`),
		},
	},
	{
		Field:     FieldReferringSignature,
		Mandatory: true,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(Tanda\s*Tangan\s*(?:Dokter\s*)?Perujuk)`),
			regexp.MustCompile(`(?i)\b(TTD)\b`),
			regexp.MustCompile(`(?i)((?:dr|drg)\.\s*[A-Za-z.,' ]+(?:Sp\.[A-Za-z]+)?)\s*$`),
		},
	},
}

var medicalRecordRules = []FieldRule{
	{
		Field:     FieldMedicalRecordNumber,
		Mandatory: true,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)No\.?\s*(?:RM|Rekam\s*Medis)\s*[:;]\s*([0-9A-Z-]{4,20})`),
			regexp.MustCompile(`(?i)Nomor\s+Rekam\s+Medis\s*[:;]?\s*([0-9A-Z-]{4,20})`),
			regexp.MustCompile(`(?i)\bMR\s*[:;]\s*([0-9]{4,12})`),
		},
	},
	{
		Field:     FieldPatientName,
		Mandatory: true,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)Nama\s*Pasien\s*[:;]\s*([A-Za-z][A-Za-z.,' ]+)`),
			regexp.MustCompile(`(?i)\bNama\s*[:;]\s*([A-Za-z][A-Za-z.,' ]+)`),
		},
	},
	{
		Field:     FieldAttendingPhysician,
		Mandatory: true,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)DPJP\s*[:;]\s*((?:dr|drg)\.?[A-Za-z.,' ]+)`),
			regexp.MustCompile(`(?i)Dokter\s*Penanggung\s*Jawab(?:\s*Pelayanan)?\s*[:;]?\s*((?:dr|drg)\.?[A-Za-z.,' ]+)`),
		},
	},
	{
		Field: FieldAttendingSignature,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(Tanda\s*Tangan\s*DPJP)`),
			regexp.MustCompile(`(?i)\b(TTD)\b`),
			regexp.MustCompile(`(?i)((?:dr|drg)\.\s*[A-Za-z.,' ]+(?:Sp\.[A-Za-z]+)?)\s*$`),
		},
	},
}

// rulesFor returns the rule table for a document kind.
func rulesFor(kind constants.DocumentKind) []FieldRule {
	switch kind {
	case constants.DocSEP:
		return sepRules
	case constants.DocReferral:
		return referralRules
	case constants.DocMedicalRecord:
		return medicalRecordRules
	default:
		return nil
	}
}

// Diagnosis patterns. Stage one captures "{code} - {description}" on labeled
// lines; stage two scans the whole block for any code-shaped token.
var (
	reDiagnosisLabeled = regexp.MustCompile(`(?i)Diagnos[ae](?:\s*(?:Awal|Masuk|Utama|Akhir|Sekunder))?\s*[:;]?\s*([A-Z][0-9]{2}(?:\.[0-9A-Z]{1,4})?)\s*[-–]\s*([^\r\n]+)`)
	reDiagnosisPaired  = regexp.MustCompile(`\b([A-Z][0-9]{2}(?:\.[0-9A-Z]{1,4})?)\s*[-–]\s*([A-Za-z][^\r\n]{2,80})`)
	reCodeToken        = regexp.MustCompile(`\b([A-Z][0-9]{2}(?:\.[0-9A-Z]{1,4})?)\b`)
)

// Procedure patterns (medical record only).
var (
	reProcedureSection = regexp.MustCompile(`(?is)(?:Tindakan|Prosedur|Operasi)\s*[:;]?\s*(.{0,400})`)
	reProcedureToken   = regexp.MustCompile(`\b([0-9]{2}\.[0-9]{1,2}|[0-9]{3,4})\b`)
)
