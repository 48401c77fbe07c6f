package validation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/klaimcare/cyberclaim/constants"
	"github.com/klaimcare/cyberclaim/internal/consistency"
	"github.com/klaimcare/cyberclaim/internal/extract"
	"github.com/klaimcare/cyberclaim/internal/ocr"
)

// Policy is the configurable critical/warning split. RequiredPages is the
// structural contract for one claim PDF (SEP, referral, medical record);
// continuation pages beyond it are tolerated. Strict escalates every
// mandatory-field miss to a critical error instead of only identity fields.
type Policy struct {
	RequiredPages int
	Strict        bool
}

// identityFields are the fields whose absence invalidates a file even under
// the lenient policy: without them the claim cannot be tied to a person or
// document at all.
var identityFields = map[string]struct{}{
	extract.FieldSEPNumber:           {},
	extract.FieldCardNumber:          {},
	extract.FieldMedicalRecordNumber: {},
	extract.FieldReferralNumber:      {},
}

// Validator sequences text acquisition, field extraction, code validation
// and consistency checking over the PDFs of one uploaded archive.
type Validator struct {
	acquirer  ocr.TextAcquirer
	extractor *extract.Extractor
	policy    Policy
	logger    *slog.Logger
}

func NewValidator(acquirer ocr.TextAcquirer, extractor *extract.Extractor, policy Policy, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.RequiredPages <= 0 {
		policy.RequiredPages = 3
	}
	return &Validator{acquirer: acquirer, extractor: extractor, policy: policy, logger: logger}
}

// ValidateClaimDocuments runs the full document pipeline over pdfPaths.
// Files are processed sequentially and independently: a failure in one file
// is recorded on that file and never aborts the rest. Results keep the
// input order.
func (v *Validator) ValidateClaimDocuments(ctx context.Context, pdfPaths []string) Verdict {
	verdict := Verdict{}

	if len(pdfPaths) == 0 {
		verdict.Valid = false
		verdict.Errors = append(verdict.Errors, "no PDF documents found in archive")
		verdict.Message = "validation failed: archive contains no PDF documents"
		return verdict
	}

	for _, path := range pdfPaths {
		fr := v.validateFile(ctx, path)
		if fr.Valid {
			verdict.FilesValid++
		} else {
			verdict.FilesFailed++
		}
		verdict.Errors = append(verdict.Errors, fr.Errors...)
		verdict.Warnings = append(verdict.Warnings, fr.Warnings...)
		verdict.Files = append(verdict.Files, fr)
	}

	verdict.Valid = verdict.FilesFailed == 0 && verdict.FilesValid > 0
	verdict.Message = fmt.Sprintf("%d of %d claim documents valid", verdict.FilesValid, len(pdfPaths))
	v.logger.Info("claim document validation finished",
		"files", len(pdfPaths),
		"valid", verdict.FilesValid,
		"failed", verdict.FilesFailed,
		"verdict", verdict.Valid,
	)
	return verdict
}

// validateFile processes one PDF end to end. A panic inside extraction is
// converted into a critical error on this file only.
func (v *Validator) validateFile(ctx context.Context, path string) (fr FileResult) {
	fr = FileResult{Path: path}
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("panic during file validation", "path", path, "panic", r)
			fr.Errors = append(fr.Errors, fmt.Sprintf("%s: internal error during validation: %v", path, r))
			fr.Valid = false
		}
	}()

	res, err := v.acquirer.AcquireText(ctx, path)
	if err != nil {
		fr.Errors = append(fr.Errors, fmt.Sprintf("%s: text acquisition failed: %v", path, err))
		return fr
	}
	fr.PageCount = len(res.Pages)
	fr.Warnings = append(fr.Warnings, res.Warnings...)

	// Structural pre-check is a warning, not a stop: extraction still runs
	// best-effort on whatever pages are there.
	if fr.PageCount < v.policy.RequiredPages {
		fr.Warnings = append(fr.Warnings, fmt.Sprintf(
			"%s: expected %d pages (SEP, rujukan, rekam medis), got %d", path, v.policy.RequiredPages, fr.PageCount))
	}

	blocks := extract.SplitPages(res.Pages)
	fr.Documents = make(map[constants.DocumentKind]extract.FieldExtractionResult, 3)
	for _, kind := range []constants.DocumentKind{constants.DocSEP, constants.DocReferral, constants.DocMedicalRecord} {
		fr.Documents[kind] = v.extractor.Extract(kind, blocks[kind])
	}

	rep := consistency.Check(
		fr.Documents[constants.DocSEP],
		fr.Documents[constants.DocReferral],
		fr.Documents[constants.DocMedicalRecord],
	)
	fr.Consistency = &rep

	v.classify(&fr)
	fr.Valid = len(fr.Errors) == 0
	return fr
}

// classify sorts extraction and consistency outcomes into critical errors
// and warnings according to the policy.
func (v *Validator) classify(fr *FileResult) {
	// fixed kind order keeps error/warning ordering deterministic
	for _, kind := range []constants.DocumentKind{constants.DocSEP, constants.DocReferral, constants.DocMedicalRecord} {
		doc, ok := fr.Documents[kind]
		if !ok {
			continue
		}
		for _, field := range doc.MissingFields {
			_, identity := identityFields[field]
			msg := fmt.Sprintf("%s: %s: mandatory field %q not found", fr.Path, kind, field)
			if identity || v.policy.Strict {
				fr.Errors = append(fr.Errors, msg)
			} else {
				fr.Warnings = append(fr.Warnings, msg)
			}
		}
		for _, d := range doc.Diagnoses {
			if !d.Valid {
				fr.Warnings = append(fr.Warnings, fmt.Sprintf(
					"%s: %s: diagnosis code %q: %s", fr.Path, kind, d.Code, d.ValidationMessage))
			}
		}
	}

	if rm, ok := fr.Documents[constants.DocMedicalRecord]; ok && len(rm.Procedures) == 0 {
		fr.Warnings = append(fr.Warnings, fmt.Sprintf("%s: no ICD-9 procedure codes found in medical record", fr.Path))
	}

	if fr.Consistency == nil {
		return
	}
	if fr.Consistency.Diagnosis == consistency.NoMatch {
		fr.Warnings = append(fr.Warnings, fmt.Sprintf("%s: diagnosis codes on SEP and medical record do not match", fr.Path))
	}
	if !fr.Consistency.PatientNameConsistent {
		fr.Warnings = append(fr.Warnings, fmt.Sprintf(
			"%s: patient name differs across documents: %v", fr.Path, fr.Consistency.PatientNames))
	}
	if fr.Consistency.ReferringSignature == consistency.SignatureNotFound {
		fr.Warnings = append(fr.Warnings, fmt.Sprintf("%s: referring physician signature not found on rujukan", fr.Path))
	}
	if fr.Consistency.AttendingSignature == consistency.SignatureNotFound {
		fr.Warnings = append(fr.Warnings, fmt.Sprintf("%s: DPJP signature not found on medical record", fr.Path))
	}
}
