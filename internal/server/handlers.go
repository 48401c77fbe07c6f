package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/klaimcare/cyberclaim/constants"
	"github.com/klaimcare/cyberclaim/internal/archive"
	"github.com/klaimcare/cyberclaim/internal/async"
	"github.com/klaimcare/cyberclaim/internal/common"
	"github.com/klaimcare/cyberclaim/internal/entity"
	"github.com/klaimcare/cyberclaim/internal/repository"
	"github.com/klaimcare/cyberclaim/internal/validation"
)

type uploadResponse struct {
	ID      uuid.UUID             `json:"id"`
	Status  constants.ClaimStatus `json:"status"`
	Message string                `json:"message"`
}

type claimResponse struct {
	ID             uuid.UUID              `json:"id"`
	FacilityID     uuid.UUID              `json:"facility_id"`
	PatientID      uuid.UUID              `json:"patient_id"`
	SEPNumber      string                 `json:"sep_number"`
	DiagnosisCode  string                 `json:"diagnosis_code,omitempty"`
	ClaimedAmount  float64                `json:"claimed_amount"`
	Status         constants.ClaimStatus  `json:"status"`
	ValidationData json.RawMessage        `json:"validation_data,omitempty"`
	FraudFindings  []*entity.FraudFinding `json:"fraud_findings,omitempty"`
	UploadedAt     string                 `json:"uploaded_at"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// handleUploadClaim accepts a multipart claim submission: metadata fields
// plus one archive. The claim row is committed and the pipeline scheduled
// before the response; processing itself is asynchronous.
func (s *Server) handleUploadClaim(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploads.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.uploads.MaxUploadBytes); err != nil {
		s.respondError(w, http.StatusRequestEntityTooLarge, "upload too large or malformed", "UPLOAD_TOO_LARGE")
		return
	}

	claim, err := claimFromForm(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error(), "INVALID_SUBMISSION")
		return
	}

	file, header, err := r.FormFile("archive")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "archive file is required", "MISSING_ARCHIVE")
		return
	}
	defer func() { _ = file.Close() }()

	claim.ID = uuid.New()
	archivePath, err := s.saveUpload(file, header.Filename, claim.ID)
	if err != nil {
		s.log.Error("saving upload failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "could not store upload", "UPLOAD_FAILED")
		return
	}
	claim.ArchivePath = archivePath

	if err := archive.ValidateArchive(archivePath); err != nil {
		_ = os.Remove(archivePath)
		s.respondError(w, http.StatusBadRequest, err.Error(), "INVALID_ARCHIVE")
		return
	}

	extractDir := filepath.Join(s.uploads.UploadDir, claim.ID.String())
	pdfs, err := s.extractor.Extract(r.Context(), archivePath, extractDir)
	if err != nil {
		_ = os.Remove(archivePath)
		_ = os.RemoveAll(extractDir)
		s.respondError(w, http.StatusBadRequest, err.Error(), "EXTRACTION_FAILED")
		return
	}

	if err := s.claims.Create(r.Context(), claim); err != nil {
		_ = os.Remove(archivePath)
		_ = os.RemoveAll(extractDir)
		s.log.Error("claim create failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "could not register claim", "CREATE_FAILED")
		return
	}

	job := async.Job{
		ClaimID:  claim.ID,
		PDFPaths: pdfs,
		TraceID:  middleware.GetReqID(r.Context()),
	}
	if err := s.queue.Enqueue(job); err != nil {
		if errors.Is(err, async.ErrQueueFull) {
			s.respondError(w, http.StatusServiceUnavailable, "processing queue is full, retry later", "QUEUE_FULL")
			return
		}
		s.log.Error("enqueue failed", "claim_id", claim.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "could not schedule processing", "ENQUEUE_FAILED")
		return
	}

	s.respondJSON(w, http.StatusAccepted, uploadResponse{
		ID:      claim.ID,
		Status:  claim.Status,
		Message: "claim accepted, validation in progress",
	})
}

func (s *Server) handleGetClaim(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "claimID"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "claim id must be a UUID", "INVALID_ID")
		return
	}
	claim, err := s.claims.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "claim not found", "CLAIM_NOT_FOUND")
			return
		}
		s.log.Error("get claim failed", "claim_id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "could not load claim", "LOAD_FAILED")
		return
	}

	findings, err := s.findings.ListByClaim(r.Context(), id)
	if err != nil {
		s.log.Warn("listing fraud findings failed", "claim_id", id, "error", err)
	}

	s.respondJSON(w, http.StatusOK, claimResponse{
		ID:             claim.ID,
		FacilityID:     claim.FacilityID,
		PatientID:      claim.PatientID,
		SEPNumber:      claim.SEPNumber,
		DiagnosisCode:  claim.DiagnosisCode,
		ClaimedAmount:  claim.ClaimedAmount,
		Status:         claim.Status,
		ValidationData: claim.ValidationData,
		FraudFindings:  findings,
		UploadedAt:     claim.UploadedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// handleFraudCheck re-runs fraud detection on a claim awaiting its fraud
// stage. Useful when detection was parked by an outage.
func (s *Server) handleFraudCheck(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "claimID"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "claim id must be a UUID", "INVALID_ID")
		return
	}
	claim, err := s.claims.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "claim not found", "CLAIM_NOT_FOUND")
			return
		}
		s.respondError(w, http.StatusInternalServerError, "could not load claim", "LOAD_FAILED")
		return
	}
	if claim.Status != constants.StatusPendingVerification {
		s.respondError(w, http.StatusConflict,
			fmt.Sprintf("claim is %s, fraud check runs on pending_verification claims", claim.Status), "WRONG_STATUS")
		return
	}

	verdict := decodeVerdict(claim.ValidationData)
	status, err := s.fraud.Run(r.Context(), claim, verdict)
	if err != nil {
		s.log.Error("manual fraud check failed", "claim_id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "fraud check failed", "FRAUD_CHECK_FAILED")
		return
	}
	s.respondJSON(w, http.StatusOK, uploadResponse{ID: id, Status: status, Message: "fraud check complete"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pool != nil {
		if err := repository.HealthCheck(r.Context(), s.pool, 0, s.log); err != nil {
			s.respondError(w, http.StatusServiceUnavailable, "database unreachable", "DB_DOWN")
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func claimFromForm(r *http.Request) (*entity.Claim, error) {
	facilityID, err := uuid.Parse(r.FormValue("facility_id"))
	if err != nil {
		return nil, errors.New("facility_id must be a UUID")
	}
	patientID, err := uuid.Parse(r.FormValue("patient_id"))
	if err != nil {
		return nil, errors.New("patient_id must be a UUID")
	}
	sepNumber := r.FormValue("sep_number")
	if sepNumber == "" {
		return nil, errors.New("sep_number is required")
	}
	amount := 0.0
	if raw := r.FormValue("claimed_amount"); raw != "" {
		amount, err = strconv.ParseFloat(raw, 64)
		if err != nil || amount < 0 {
			return nil, errors.New("claimed_amount must be a non-negative number")
		}
	}
	return &entity.Claim{
		FacilityID:    facilityID,
		PatientID:     patientID,
		SEPNumber:     sepNumber,
		DiagnosisCode: r.FormValue("diagnosis_code"),
		ClaimedAmount: amount,
	}, nil
}

func (s *Server) saveUpload(file io.Reader, originalName string, claimID uuid.UUID) (string, error) {
	if err := os.MkdirAll(s.uploads.UploadDir, 0o755); err != nil {
		return "", err
	}
	ext := constants.NormalizeExt(filepath.Ext(originalName))
	target := filepath.Join(s.uploads.UploadDir, fmt.Sprintf("%s.%s", claimID, ext))
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	_, err = io.Copy(dst, file)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(target)
		return "", err
	}
	return target, nil
}

// decodeVerdict pulls the stored verdict back out of validation_data. A
// missing or unreadable verdict yields nil; the detector treats that as "no
// document evidence".
func decodeVerdict(raw json.RawMessage) *validation.Verdict {
	if len(raw) == 0 {
		return nil
	}
	var bag struct {
		ValidationData *validation.Verdict `json:"validation_data"`
	}
	if err := json.Unmarshal(raw, &bag); err != nil {
		return nil
	}
	return bag.ValidationData
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("writing response failed", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg, code string) {
	s.respondJSON(w, status, errorResponse{Error: msg, Code: code})
}
