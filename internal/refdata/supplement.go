package refdata

// supplement patches codes that are commonly present on SEP documents but
// missing from the published reference workbooks.
var supplement = map[string]CodeEntry{
	"I10":   {ShortDescription: "Essential (primary) hypertension", LongDescription: "Hipertensi esensial (primer)", System: SystemICD10},
	"E11.9": {ShortDescription: "Type 2 diabetes mellitus without complications", LongDescription: "Diabetes melitus tipe 2 tanpa komplikasi", System: SystemICD10},
	"J18.9": {ShortDescription: "Pneumonia, unspecified organism", LongDescription: "Pneumonia, organisme tidak spesifik", System: SystemICD10},
	"A09":   {ShortDescription: "Infectious gastroenteritis and colitis, unspecified", LongDescription: "Gastroenteritis dan kolitis infeksius", System: SystemICD10},
	"K30":   {ShortDescription: "Functional dyspepsia", LongDescription: "Dispepsia fungsional", System: SystemICD10},
	"Z00.0": {ShortDescription: "General adult medical examination", LongDescription: "Pemeriksaan medis umum dewasa", System: SystemICD10},
	"89.52": {ShortDescription: "Electrocardiogram", LongDescription: "Elektrokardiogram (EKG)", System: SystemICD9},
	"88.72": {ShortDescription: "Diagnostic ultrasound of heart", LongDescription: "USG jantung diagnostik", System: SystemICD9},
	"99.29": {ShortDescription: "Injection or infusion of other therapeutic substance", LongDescription: "Injeksi atau infus zat terapeutik lain", System: SystemICD9},
	"38.95": {ShortDescription: "Venous catheterization", LongDescription: "Kateterisasi vena", System: SystemICD9},
}

// applySupplement inserts supplement entries that the workbooks did not
// already provide. Returns how many were added.
func (t *Table) applySupplement() int {
	added := 0
	for code, e := range supplement {
		if _, exists := t.codes[code]; exists {
			continue
		}
		t.codes[code] = e
		added++
	}
	return added
}
