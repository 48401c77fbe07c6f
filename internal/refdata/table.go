package refdata

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Coding systems recognized by the validator.
const (
	SystemICD10 = "ICD-10"
	SystemICD9  = "ICD-9"
)

// CodeEntry describes one reference code.
type CodeEntry struct {
	ShortDescription string
	LongDescription  string
	System           string
}

// Table is the process-wide coding reference. It is built once at startup
// and never mutated afterwards, so concurrent lookups need no locking.
type Table struct {
	codes map[string]CodeEntry
}

// Load reads the ICD-10 and ICD-9 workbooks and applies the hardcoded
// supplement. Expected layout per sheet: column A = code, column B = short
// description, column C = long description (optional). A header row is
// skipped automatically.
func Load(icd10Path, icd9Path string, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Table{codes: make(map[string]CodeEntry)}

	n10, err := t.loadWorkbook(icd10Path, SystemICD10)
	if err != nil {
		return nil, fmt.Errorf("load ICD-10 reference %q: %w", icd10Path, err)
	}
	n9, err := t.loadWorkbook(icd9Path, SystemICD9)
	if err != nil {
		return nil, fmt.Errorf("load ICD-9 reference %q: %w", icd9Path, err)
	}

	added := t.applySupplement()
	logger.Info("reference code tables loaded",
		"icd10_codes", n10,
		"icd9_codes", n9,
		"supplement_codes", added,
	)
	return t, nil
}

// NewTable builds a table from in-memory entries. Tests and the supplement
// use this path.
func NewTable(entries map[string]CodeEntry) *Table {
	t := &Table{codes: make(map[string]CodeEntry, len(entries))}
	for code, e := range entries {
		t.codes[normalize(code)] = e
	}
	t.applySupplement()
	return t
}

func (t *Table) loadWorkbook(path, system string) (int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return 0, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return 0, err
	}

	count := 0
	for i, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		code := normalize(row[0])
		if i == 0 && !looksLikeCode(code) {
			continue // header row
		}
		entry := CodeEntry{System: system}
		if len(row) > 1 {
			entry.ShortDescription = strings.TrimSpace(row[1])
		}
		if len(row) > 2 && strings.TrimSpace(row[2]) != "" {
			entry.LongDescription = strings.TrimSpace(row[2])
		} else {
			entry.LongDescription = entry.ShortDescription
		}
		t.codes[code] = entry
		count++
	}
	return count, nil
}

// looksLikeCode reports whether a normalized cell value has the shape of an
// ICD-10 or ICD-9 code. Used to skip header rows.
func looksLikeCode(code string) bool {
	return reICD10Dotted.MatchString(code) ||
		reICD10Undotted.MatchString(code) ||
		reICD10Category.MatchString(code) ||
		reICD9.MatchString(code)
}

// lookup returns the entry for an already-normalized code restricted to one
// coding system.
func (t *Table) lookup(code, system string) (CodeEntry, bool) {
	e, ok := t.codes[code]
	if !ok || e.System != system {
		return CodeEntry{}, false
	}
	return e, true
}

// Describe returns the stored descriptions for a normalized code, if any.
func (t *Table) Describe(code string) (CodeEntry, bool) {
	e, ok := t.codes[normalize(code)]
	return e, ok
}

// Len reports the number of loaded codes.
func (t *Table) Len() int { return len(t.codes) }
