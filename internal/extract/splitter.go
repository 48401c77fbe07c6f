package extract

import (
	"strings"

	"github.com/klaimcare/cyberclaim/constants"
)

// SplitPages assigns page text to document kinds by position: page 1 = SEP,
// page 2 = referral, pages 3+ = medical record (continuation pages are
// merged). When the layout is ambiguous (fewer than 3 pages) the full
// concatenated text is handed to all three extractors instead of failing.
func SplitPages(pages []string) map[constants.DocumentKind]string {
	out := make(map[constants.DocumentKind]string, 3)

	if len(pages) >= 3 {
		out[constants.DocSEP] = pages[0]
		out[constants.DocReferral] = pages[1]
		out[constants.DocMedicalRecord] = strings.Join(pages[2:], "\n")
		return out
	}

	full := strings.Join(pages, "\n")
	out[constants.DocSEP] = full
	out[constants.DocReferral] = full
	out[constants.DocMedicalRecord] = full
	return out
}
