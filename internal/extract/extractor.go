package extract

import (
	"log/slog"
	"strings"

	"github.com/klaimcare/cyberclaim/constants"
	"github.com/klaimcare/cyberclaim/internal/refdata"
)

// Extractor recovers typed fields from semi-structured claim document text.
type Extractor struct {
	codes  *refdata.Table
	logger *slog.Logger
}

func NewExtractor(codes *refdata.Table, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{codes: codes, logger: logger}
}

// Extract applies the rule table for kind over text, first-match-wins per
// field. Missing fields never produce an error; they are recorded on the
// result so the claim can proceed with partial data.
func (e *Extractor) Extract(kind constants.DocumentKind, text string) FieldExtractionResult {
	res := FieldExtractionResult{
		Kind:   kind,
		Fields: make(map[string]string),
	}

	for _, rule := range rulesFor(kind) {
		value := ""
		for _, p := range rule.Patterns {
			if m := p.FindStringSubmatch(text); m != nil {
				value = cleanValue(m[1])
				break
			}
		}
		if value != "" {
			res.Fields[rule.Field] = value
		} else if rule.Mandatory {
			res.MissingFields = append(res.MissingFields, rule.Field)
		}
	}

	res.Diagnoses = e.extractDiagnoses(text)
	if len(res.Diagnoses) == 0 {
		res.MissingFields = append(res.MissingFields, FieldDiagnosis)
	}

	if kind == constants.DocMedicalRecord {
		res.Procedures = e.extractProcedures(text)
	}

	e.logger.Debug("field extraction done",
		"kind", kind,
		"fields", len(res.Fields),
		"diagnoses", len(res.Diagnoses),
		"missing", len(res.MissingFields),
	)
	return res
}

// extractDiagnoses is a two-stage attempt. The structured "{code} - {desc}"
// pattern is tried first on labeled lines, then anywhere in the block; if
// neither matches, a fallback scan records any code-shaped token with an
// unknown description. Each code is validated immediately.
func (e *Extractor) extractDiagnoses(text string) []DiagnosisEntry {
	seen := make(map[string]struct{})
	var entries []DiagnosisEntry

	add := func(code, desc string) {
		v := e.codes.Validate(code)
		norm := strings.ToUpper(strings.TrimSpace(code))
		if _, dup := seen[norm]; dup {
			return
		}
		seen[norm] = struct{}{}
		if desc == "" && v.Valid {
			desc = v.Description
		}
		entries = append(entries, DiagnosisEntry{
			Code:              norm,
			Description:       strings.TrimSpace(desc),
			Valid:             v.Valid,
			ValidationMessage: v.Message,
			CodingSystem:      v.System,
		})
	}

	for _, m := range reDiagnosisLabeled.FindAllStringSubmatch(text, -1) {
		add(m[1], cleanValue(m[2]))
	}
	if len(entries) > 0 {
		return entries
	}

	for _, m := range reDiagnosisPaired.FindAllStringSubmatch(text, -1) {
		add(m[1], cleanValue(m[2]))
	}
	if len(entries) > 0 {
		return entries
	}

	// Fallback: any code-shaped token in the block, description unknown.
	for _, m := range reCodeToken.FindAllStringSubmatch(text, -1) {
		add(m[1], "")
	}
	return entries
}

// extractProcedures pulls ICD-9 procedure codes out of the
// operations/procedures section of a medical record.
func (e *Extractor) extractProcedures(text string) []DiagnosisEntry {
	section := reProcedureSection.FindStringSubmatch(text)
	if section == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var entries []DiagnosisEntry
	for _, m := range reProcedureToken.FindAllStringSubmatch(section[1], -1) {
		v := e.codes.ValidateProcedure(m[1])
		if !v.Valid {
			// free-text sections are noisy; only year-like or unknown numeric
			// tokens that fail ICD-9 lookup are dropped silently
			continue
		}
		norm := strings.ToUpper(strings.TrimSpace(m[1]))
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		entries = append(entries, DiagnosisEntry{
			Code:              norm,
			Description:       v.Description,
			Valid:             true,
			ValidationMessage: v.Message,
			CodingSystem:      v.System,
		})
	}
	return entries
}

// cleanValue trims a captured value down to a plausible field content:
// whitespace collapsed, trailing label separators removed.
func cleanValue(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " :;,-")
}
