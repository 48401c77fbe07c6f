package constants

import "strings"

// DocumentKind identifies which claim document a block of text belongs to.
type DocumentKind string

const (
	DocSEP           DocumentKind = "SEP"
	DocReferral      DocumentKind = "RUJUKAN"
	DocMedicalRecord DocumentKind = "REKAM_MEDIS"
)

// AllowedArchiveExtensions are the upload formats accepted for a claim bundle.
var AllowedArchiveExtensions = map[string]struct{}{
	"rar": {},
	"zip": {},
}

// AllowedDocumentExtensions are the formats accepted inside a claim archive.
var AllowedDocumentExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsPDFExt reports whether ext names a PDF file.
func IsPDFExt(ext string) bool { return NormalizeExt(ext) == "pdf" }
