package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/klaimcare/cyberclaim/constants"
	"github.com/klaimcare/cyberclaim/internal/archive"
	"github.com/klaimcare/cyberclaim/internal/async"
	"github.com/klaimcare/cyberclaim/internal/common"
	"github.com/klaimcare/cyberclaim/internal/entity"
	"github.com/klaimcare/cyberclaim/internal/pipeline"
	"github.com/klaimcare/cyberclaim/internal/validation"
)

type stubClaims struct {
	created []*entity.Claim
	byID    map[uuid.UUID]*entity.Claim
	updates []constants.ClaimStatus
}

func (s *stubClaims) Create(_ context.Context, c *entity.Claim) error {
	s.created = append(s.created, c)
	return nil
}

func (s *stubClaims) GetByID(_ context.Context, id uuid.UUID) (*entity.Claim, error) {
	if c, ok := s.byID[id]; ok {
		return c, nil
	}
	return nil, common.NewAppError("CLAIM_NOT_FOUND", id.String(), common.ErrNotFound)
}

func (s *stubClaims) UpdateStatus(_ context.Context, _ uuid.UUID, status constants.ClaimStatus, _ map[string]any) error {
	s.updates = append(s.updates, status)
	return nil
}

func (s *stubClaims) FindBySEPNumber(context.Context, string, uuid.UUID) (*entity.Claim, error) {
	return nil, nil
}

func (s *stubClaims) ListByPatient(context.Context, uuid.UUID, uuid.UUID) ([]*entity.Claim, error) {
	return nil, nil
}

type stubFindings struct{ byClaim []*entity.FraudFinding }

func (s *stubFindings) CreateFindings(context.Context, []*entity.FraudFinding) error { return nil }
func (s *stubFindings) ListByClaim(context.Context, uuid.UUID) ([]*entity.FraudFinding, error) {
	return s.byClaim, nil
}

type stubQueue struct {
	jobs []async.Job
	err  error
}

func (q *stubQueue) Enqueue(job async.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *stubQueue) Shutdown(context.Context) error { return nil }

type stubChecker struct{ findings []*entity.FraudFinding }

func (s *stubChecker) Detect(context.Context, *entity.Claim, *validation.Verdict) ([]*entity.FraudFinding, error) {
	return s.findings, nil
}

func newTestServer(t *testing.T, claims *stubClaims, queue *stubQueue, findings *stubFindings) *Server {
	t.Helper()
	if claims.byID == nil {
		claims.byID = map[uuid.UUID]*entity.Claim{}
	}
	fraudStage := pipeline.NewFraudStage(&stubChecker{}, findings, claims, nil)
	return New(Deps{
		Config: common.ServerConfig{Addr: ":0"},
		Pipeline: common.PipelineConfig{
			UploadDir:      t.TempDir(),
			MaxUploadBytes: 10 << 20,
		},
		Claims:    claims,
		Findings:  findings,
		Queue:     queue,
		Extractor: archive.NewExtractor("", nil),
		Fraud:     fraudStage,
	})
}

func multipartUpload(t *testing.T, fields map[string]string, archiveName string, members map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if archiveName != "" {
		fw, err := mw.CreateFormFile("archive", archiveName)
		if err != nil {
			t.Fatal(err)
		}
		zw := zip.NewWriter(fw)
		for name, content := range members {
			w, err := zw.Create(name)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := w.Write([]byte(content)); err != nil {
				t.Fatal(err)
			}
		}
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, mw.FormDataContentType()
}

func validFields() map[string]string {
	return map[string]string{
		"facility_id":    uuid.NewString(),
		"patient_id":     uuid.NewString(),
		"sep_number":     "0301R0011224V000001",
		"diagnosis_code": "J18.9",
		"claimed_amount": "15000000",
	}
}

func TestUploadClaimAccepted(t *testing.T) {
	claims := &stubClaims{}
	queue := &stubQueue{}
	srv := newTestServer(t, claims, queue, &stubFindings{})

	body, ctype := multipartUpload(t, validFields(), "claim.zip", map[string]string{
		"sep.pdf":         "%PDF-1.4 sep",
		"rekam_medis.pdf": "%PDF-1.4 rm",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/claims", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != constants.StatusUploaded {
		t.Errorf("claim status = %s, want uploaded", resp.Status)
	}
	if len(claims.created) != 1 {
		t.Fatalf("claims created = %d, want 1", len(claims.created))
	}
	if len(queue.jobs) != 1 || len(queue.jobs[0].PDFPaths) != 2 {
		t.Errorf("queued jobs = %+v, want one job with two pdfs", queue.jobs)
	}
}

func TestUploadClaimRejectsMissingMetadata(t *testing.T) {
	srv := newTestServer(t, &stubClaims{}, &stubQueue{}, &stubFindings{})

	fields := validFields()
	delete(fields, "sep_number")
	body, ctype := multipartUpload(t, fields, "claim.zip", map[string]string{"sep.pdf": "%PDF-1.4"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/claims", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadClaimRejectsBadArchive(t *testing.T) {
	claims := &stubClaims{}
	srv := newTestServer(t, claims, &stubQueue{}, &stubFindings{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range validFields() {
		_ = mw.WriteField(k, v)
	}
	fw, _ := mw.CreateFormFile("archive", "claim.zip")
	_, _ = fw.Write([]byte("this is not a zip"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/claims", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(claims.created) != 0 {
		t.Error("claim must not be created for an invalid archive")
	}
}

func TestUploadClaimQueueFull(t *testing.T) {
	srv := newTestServer(t, &stubClaims{}, &stubQueue{err: async.ErrQueueFull}, &stubFindings{})

	body, ctype := multipartUpload(t, validFields(), "claim.zip", map[string]string{"sep.pdf": "%PDF-1.4"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/claims", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestGetClaim(t *testing.T) {
	id := uuid.New()
	claims := &stubClaims{byID: map[uuid.UUID]*entity.Claim{
		id: {ID: id, SEPNumber: "0301R0011224V000001", Status: constants.StatusApproved},
	}}
	srv := newTestServer(t, claims, &stubQueue{}, &stubFindings{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/claims/"+id.String(), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp claimResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != constants.StatusApproved {
		t.Errorf("status = %s, want approved", resp.Status)
	}
}

func TestGetClaimNotFound(t *testing.T) {
	srv := newTestServer(t, &stubClaims{}, &stubQueue{}, &stubFindings{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/claims/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestFraudCheckWrongStatus(t *testing.T) {
	id := uuid.New()
	claims := &stubClaims{byID: map[uuid.UUID]*entity.Claim{
		id: {ID: id, Status: constants.StatusApproved},
	}}
	srv := newTestServer(t, claims, &stubQueue{}, &stubFindings{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/claims/"+id.String()+"/fraud-check", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestFraudCheckPendingClaim(t *testing.T) {
	id := uuid.New()
	claims := &stubClaims{byID: map[uuid.UUID]*entity.Claim{
		id: {ID: id, Status: constants.StatusPendingVerification},
	}}
	srv := newTestServer(t, claims, &stubQueue{}, &stubFindings{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/claims/"+id.String()+"/fraud-check", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != constants.StatusApproved {
		t.Errorf("status = %s, want approved with no findings", resp.Status)
	}
	if len(claims.updates) != 1 || claims.updates[0] != constants.StatusApproved {
		t.Errorf("updates = %v, want one move to approved", claims.updates)
	}
}

func TestHealthzWithoutPool(t *testing.T) {
	srv := newTestServer(t, &stubClaims{}, &stubQueue{}, &stubFindings{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
