package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"

	"opd-claims/models"
	"opd-claims/repository"
	"opd-claims/storage"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type sandbox struct {
	router *gin.Engine
	stores repository.Stores
}

func newSandbox(t *testing.T) *sandbox {
	t.Helper()

	stores := repository.NewMemoryStores()
	_, err := repository.Seed(context.Background(), stores.Members)
	require.NoError(t, err)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	return &sandbox{
		router: NewRouter(RouterConfig{Stores: stores, Storage: store}),
		stores: stores,
	}
}

func (s *sandbox) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *sandbox) get(path string) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (s *sandbox) putJSON(path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

type part struct {
	name        string
	contentType string
	data        []byte
}

func claimForm(t *testing.T, memberID, date string, files ...part) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if memberID != "" {
		require.NoError(t, w.WriteField("member_id", memberID))
	}
	if date != "" {
		require.NoError(t, w.WriteField("treatment_date", date))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, f.name))
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (s *sandbox) submit(t *testing.T, memberID, date string, files ...part) *httptest.ResponseRecorder {
	body, ct := claimForm(t, memberID, date, files...)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/claims", body)
	req.Header.Set("Content-Type", ct)
	return s.do(req)
}

func detailOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body models.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Detail
}

var pdf = part{name: "bill.pdf", contentType: "application/pdf", data: []byte("%PDF-1.4 test")}

func TestRootAndHealth(t *testing.T) {
	s := newSandbox(t)

	w := s.get("/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())

	w = s.get("/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"running"`)

	w = s.get("/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "opd_sandbox_http_requests_total")
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newSandbox(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := s.do(req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	w = s.get("/health")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestMembers(t *testing.T) {
	s := newSandbox(t)

	w := s.get("/api/v1/members")
	require.Equal(t, http.StatusOK, w.Code)
	var members []models.Member
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &members))
	require.Len(t, members, 10)
	assert.Equal(t, "Rajesh Kumar", members[0].Name)

	w = s.get("/api/v1/members/EMP005")
	require.Equal(t, http.StatusOK, w.Code)
	var m models.Member
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, "Vikram Joshi", m.Name)
	assert.Equal(t, "2024-09-01", m.JoinDate.Format("2006-01-02"))
	assert.False(t, m.JoinDate.HasTime)

	w = s.get("/api/v1/members/EMP404")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Member EMP404 not found", detailOf(t, w))
}

func TestCreateMember(t *testing.T) {
	s := newSandbox(t)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/members", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return s.do(req)
	}

	w := post(`{"id":"EMP011","name":"Meera Iyer","policy_id":"PLUM_OPD_2024","join_date":"2024-03-01","gender":"female"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got, err := s.stores.Members.Get(context.Background(), "EMP011")
	require.NoError(t, err)
	assert.Equal(t, "Meera Iyer", got.Name)
	assert.True(t, got.AnnualLimitUsed.IsZero())

	w = post(`{"id":"EMP001","name":"Dup","policy_id":"P","join_date":"2024-03-01"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Member EMP001 already exists", detailOf(t, w))

	w = post(`{"id":"EMP012","name":"No Date","policy_id":"P"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSubmitClaim(t *testing.T) {
	s := newSandbox(t)

	w := s.submit(t, "EMP001", "2024-01-15",
		pdf,
		part{name: "prescription.png", contentType: "image/png", data: []byte("\x89PNG\r\n\x1a\n")},
	)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Regexp(t, `^CLM_[0-9A-F]{8}$`, resp.ClaimID)
	assert.Equal(t, models.StatusProcessing, resp.Status)
	assert.Equal(t, "Claim received. Status: PROCESSING", resp.Message)

	w = s.get("/api/v1/claims/" + resp.ClaimID)
	require.Equal(t, http.StatusOK, w.Code)
	var claim models.Claim
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &claim))
	assert.Equal(t, "EMP001", claim.MemberID)
	assert.Equal(t, "2024-01-15", claim.TreatmentDate.Format("2006-01-02"))
	assert.Nil(t, claim.ApprovedAmount)

	w = s.get("/api/v1/claims/" + resp.ClaimID + "/documents")
	require.Equal(t, http.StatusOK, w.Code)
	var docs []models.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, models.DocumentBill, docs[0].DocumentType)
	assert.Equal(t, models.DocumentPrescription, docs[1].DocumentType)
	assert.True(t, strings.HasPrefix(docs[0].FileURL, "/uploads/"+resp.ClaimID+"_"))

	w = s.get(docs[0].FileURL)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.4 test", w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	w = s.get("/api/v1/claims/" + resp.ClaimID + "/audit")
	require.Equal(t, http.StatusOK, w.Code)
	var trail []repository.AuditEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trail))
	require.Len(t, trail, 2)
	assert.Equal(t, repository.ActionClaimSubmitted, trail[0].Action)
	assert.Equal(t, "EMP001", trail[0].Details["member_id"])
	assert.EqualValues(t, 2, trail[0].Details["file_count"])
	assert.Equal(t, repository.ActionDocumentsProcessed, trail[1].Action)
	assert.Equal(t, []interface{}{"bill.pdf", "prescription.png"}, trail[1].Details["filenames"])

	w = s.get("/api/v1/decisions/" + resp.ClaimID)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, fmt.Sprintf("Decision for claim %s not found", resp.ClaimID), detailOf(t, w))
}

type failingDocuments struct {
	repository.DocumentStore
}

func (failingDocuments) Create(context.Context, *models.Document) error {
	return errors.New("documents table unavailable")
}

func TestSubmitClaim_UnrecordedDocumentIsRemoved(t *testing.T) {
	stores := repository.NewMemoryStores()
	_, err := repository.Seed(context.Background(), stores.Members)
	require.NoError(t, err)
	stores.Documents = failingDocuments{stores.Documents}

	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	s := &sandbox{router: NewRouter(RouterConfig{Stores: stores, Storage: store}), stores: stores}

	w := s.submit(t, "EMP001", "2024-01-15", pdf)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	var resp models.SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	trail, err := stores.Audit.ListByClaim(context.Background(), resp.ClaimID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Empty(t, trail[1].Details["filenames"])
	assert.EqualValues(t, 0, trail[1].Details["stored"])
}

func TestSubmitClaim_Rejections(t *testing.T) {
	s := newSandbox(t)

	tests := []struct {
		name   string
		member string
		date   string
		files  []part
		status int
		detail string
	}{
		{
			name: "unknown member", member: "EMP404", date: "2024-01-15", files: []part{pdf},
			status: http.StatusNotFound, detail: "Member EMP404 not found",
		},
		{
			name: "disallowed type", member: "EMP001", date: "2024-01-15",
			files:  []part{{name: "notes.txt", contentType: "text/plain", data: []byte("hello")}},
			status: http.StatusBadRequest,
			detail: "File type text/plain not allowed. Allowed: [image/jpeg image/png image/jpg application/pdf]",
		},
		{
			name: "missing member", date: "2024-01-15", files: []part{pdf},
			status: http.StatusUnprocessableEntity,
		},
		{
			name: "no files", member: "EMP001", date: "2024-01-15",
			status: http.StatusUnprocessableEntity, detail: "At least one file is required",
		},
		{
			name: "bad date", member: "EMP001", date: "15/01/2024", files: []part{pdf},
			status: http.StatusUnprocessableEntity, detail: "Invalid treatment_date 15/01/2024",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.submit(t, tt.member, tt.date, tt.files...)
			assert.Equal(t, tt.status, w.Code)
			if tt.detail != "" {
				assert.Equal(t, tt.detail, detailOf(t, w))
			}
		})
	}

	claims, err := s.stores.Claims.List(context.Background(), repository.ClaimFilter{})
	require.NoError(t, err)
	assert.Empty(t, claims, "rejected submissions create nothing")
}

func TestSubmitClaim_SniffsUndeclaredType(t *testing.T) {
	s := newSandbox(t)

	w := s.submit(t, "EMP001", "2024-01-15", part{name: "scan", data: []byte("%PDF-1.7\n%test")})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestListClaims(t *testing.T) {
	s := newSandbox(t)

	var ids []string
	for _, member := range []string{"EMP001", "EMP002", "EMP001"} {
		w := s.submit(t, member, "2024-01-15", pdf)
		require.Equal(t, http.StatusOK, w.Code)
		var resp models.SubmitResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		ids = append(ids, resp.ClaimID)
	}

	list := func(query string) []models.Claim {
		w := s.get("/api/v1/claims" + query)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var claims []models.Claim
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &claims))
		return claims
	}

	assert.Len(t, list(""), 3)
	assert.Len(t, list("?member_id=EMP001"), 2)
	assert.Len(t, list("?limit=1"), 1)
	assert.Empty(t, list("?status=APPROVED"))

	w := s.get("/api/v1/claims?skip=-1")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRecordDecision(t *testing.T) {
	s := newSandbox(t)

	w := s.submit(t, "EMP003", "2024-01-15", pdf)
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	approve := map[string]interface{}{
		"decision":         "APPROVED",
		"approved_amount":  1350,
		"confidence_score": 0.91,
		"reasoning":        []string{"Consultation covered"},
		"deductions":       map[string]float64{"copay": 150},
	}
	w = s.putJSON("/api/v1/decisions/"+resp.ClaimID, approve)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// recording the same approval twice consumes the limit once
	w = s.putJSON("/api/v1/decisions/"+resp.ClaimID, approve)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.get("/api/v1/decisions/" + resp.ClaimID)
	require.Equal(t, http.StatusOK, w.Code)
	var d models.Decision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, models.StatusApproved, d.Decision)
	assert.Equal(t, []string{}, d.RejectionReasons)
	assert.True(t, decimal.NewFromInt(150).Equal(d.Deductions["copay"]))

	claim, err := s.stores.Claims.Get(context.Background(), resp.ClaimID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, claim.Status)
	require.NotNil(t, claim.ApprovedAmount)
	assert.True(t, decimal.NewFromInt(1350).Equal(*claim.ApprovedAmount))

	member, err := s.stores.Members.Get(context.Background(), "EMP003")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1350).Equal(member.AnnualLimitUsed))

	w = s.putJSON("/api/v1/decisions/"+resp.ClaimID, map[string]interface{}{
		"decision": "REJECTED", "approved_amount": 1350, "confidence_score": 0.8,
		"rejection_reasons": []string{"NOT_COVERED"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	claim, err = s.stores.Claims.Get(context.Background(), resp.ClaimID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, claim.Status)
	assert.Nil(t, claim.ApprovedAmount, "only approved or partial claims carry an approved amount")
}

func TestRecordDecision_Validation(t *testing.T) {
	s := newSandbox(t)

	w := s.putJSON("/api/v1/decisions/CLM_NONE", map[string]interface{}{"decision": "APPROVED", "confidence_score": 0.5})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Claim CLM_NONE not found", detailOf(t, w))

	w = s.putJSON("/api/v1/decisions/CLM_NONE", map[string]interface{}{"decision": "PROCESSING"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.putJSON("/api/v1/decisions/CLM_NONE", map[string]interface{}{"decision": "APPROVED", "confidence_score": 1.5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServeUpload_Missing(t *testing.T) {
	s := newSandbox(t)
	w := s.get("/uploads/CLM_X_deadbeef.pdf")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDetectDocumentType(t *testing.T) {
	tests := map[string]models.DocumentType{
		"Prescription_Jan.pdf": models.DocumentPrescription,
		"rx-scan.png":          models.DocumentPrescription,
		"hospital_bill.pdf":    models.DocumentBill,
		"Invoice.JPG":          models.DocumentBill,
		"blood_test.pdf":       models.DocumentReport,
		"lab-results.png":      models.DocumentReport,
		"scan001.jpg":          models.DocumentBill,
	}
	for name, want := range tests {
		assert.Equal(t, want, DetectDocumentType(name), name)
	}
}

func TestNewClaimID(t *testing.T) {
	a, b := NewClaimID(), NewClaimID()
	assert.Regexp(t, `^CLM_[0-9A-F]{8}$`, a)
	assert.NotEqual(t, a, b)
}
