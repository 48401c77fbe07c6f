package refdata

import (
	"regexp"
	"strconv"
	"strings"
)

// Result is the outcome of validating one candidate code.
type Result struct {
	Valid       bool   `json:"valid"`
	Message     string `json:"message"`
	System      string `json:"system,omitempty"` // ICD-10 | ICD-9 | empty when format unrecognized
	Description string `json:"description,omitempty"`
}

var (
	// A01.03, J18.9, Z00.00
	reICD10Dotted = regexp.MustCompile(`^[A-Z][0-9]{2}\.[0-9A-Z]{1,4}$`)
	// A0103 -> dotted by inserting a separator after the 3rd character
	reICD10Undotted = regexp.MustCompile(`^[A-Z][0-9]{2}[0-9A-Z]{1,4}$`)
	// I10, J18 (category codes are valid on their own)
	reICD10Category = regexp.MustCompile(`^[A-Z][0-9]{2}$`)
	// 38.95, 4800, 480 (the ICD-9 shape)
	reICD9 = regexp.MustCompile(`^[0-9]{2,4}(\.[0-9]{1,2})?$`)

	reYear = regexp.MustCompile(`^[0-9]{4}$`)
)

const (
	msgFound     = "code found in reference database"
	msgNotFound  = "code not found in reference database"
	msgMalformed = "unrecognized code format"
	msgYearLike  = "numeric token looks like a calendar year, not a code"
)

func normalize(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), ""))
}

// Validate normalizes a candidate code and checks membership in the loaded
// reference. Lookup order: converted undotted form against ICD-10, raw form
// against ICD-10, then both forms against ICD-9. A miss distinguishes a
// malformed token from a well-formed but unknown code.
func (t *Table) Validate(code string) Result {
	c := normalize(code)
	if c == "" {
		return Result{Valid: false, Message: msgMalformed}
	}

	// 4-digit numeric tokens in the calendar-year range are noise from
	// free-text scanning, never codes.
	if reYear.MatchString(c) {
		if y, err := strconv.Atoi(c); err == nil && y >= 1900 && y <= 2100 {
			return Result{Valid: false, Message: msgYearLike}
		}
	}

	candidates10 := icd10Candidates(c)
	for _, cand := range candidates10 {
		if e, ok := t.lookup(cand, SystemICD10); ok {
			return Result{Valid: true, Message: msgFound, System: SystemICD10, Description: e.LongDescription}
		}
	}

	candidates9 := icd9Candidates(c)
	for _, cand := range candidates9 {
		if e, ok := t.lookup(cand, SystemICD9); ok {
			return Result{Valid: true, Message: msgFound, System: SystemICD9, Description: e.LongDescription}
		}
	}

	if len(candidates10) == 0 && len(candidates9) == 0 {
		return Result{Valid: false, Message: msgMalformed}
	}

	res := Result{Valid: false, Message: msgNotFound}
	if len(candidates10) > 0 {
		res.System = SystemICD10
	} else {
		res.System = SystemICD9
	}
	return res
}

// ValidateProcedure checks a candidate against the ICD-9 procedure table
// only (used for the operations/procedures section of a medical record).
func (t *Table) ValidateProcedure(code string) Result {
	c := normalize(code)
	if c == "" {
		return Result{Valid: false, Message: msgMalformed}
	}
	if reYear.MatchString(c) {
		if y, err := strconv.Atoi(c); err == nil && y >= 1900 && y <= 2100 {
			return Result{Valid: false, Message: msgYearLike}
		}
	}
	candidates := icd9Candidates(c)
	if len(candidates) == 0 {
		return Result{Valid: false, Message: msgMalformed}
	}
	for _, cand := range candidates {
		if e, ok := t.lookup(cand, SystemICD9); ok {
			return Result{Valid: true, Message: msgFound, System: SystemICD9, Description: e.LongDescription}
		}
	}
	return Result{Valid: false, Message: msgNotFound, System: SystemICD9}
}

// icd10Candidates returns normalized lookup forms for the ICD-10 table, the
// undotted->dotted conversion first.
func icd10Candidates(c string) []string {
	var out []string
	if reICD10Undotted.MatchString(c) && len(c) > 3 {
		out = append(out, c[:3]+"."+c[3:])
	}
	if reICD10Dotted.MatchString(c) || reICD10Category.MatchString(c) {
		out = append(out, c)
	}
	return out
}

// icd9Candidates returns normalized lookup forms for the ICD-9 table. An
// undotted numeric token gets a separator inserted after the 2nd digit
// ("4800" -> "48.00").
func icd9Candidates(c string) []string {
	if !reICD9.MatchString(c) {
		return nil
	}
	var out []string
	if !strings.Contains(c, ".") && len(c) > 2 {
		out = append(out, c[:2]+"."+c[2:])
	}
	out = append(out, c)
	return out
}
