package validation

import (
	"github.com/klaimcare/cyberclaim/constants"
	"github.com/klaimcare/cyberclaim/internal/consistency"
	"github.com/klaimcare/cyberclaim/internal/extract"
)

// FileResult is the per-archive-member outcome.
type FileResult struct {
	Path        string                                                  `json:"path"`
	Valid       bool                                                    `json:"valid"`
	PageCount   int                                                     `json:"page_count"`
	Errors      []string                                                `json:"errors"`   // critical issues
	Warnings    []string                                                `json:"warnings"` // minor issues
	Documents   map[constants.DocumentKind]extract.FieldExtractionResult `json:"documents,omitempty"`
	Consistency *consistency.Report                                     `json:"consistency,omitempty"`
}

// Verdict aggregates all per-file results for one uploaded archive. It is
// owned by a single orchestrator invocation and serialized into the claim's
// validation_data on completion.
type Verdict struct {
	Valid       bool         `json:"valid"`
	Message     string       `json:"message"`
	Errors      []string     `json:"errors"`
	Warnings    []string     `json:"warnings"`
	FilesValid  int          `json:"files_valid"`
	FilesFailed int          `json:"files_failed"`
	Files       []FileResult `json:"files"`
}
