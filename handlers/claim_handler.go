package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"opd-claims/models"
	"opd-claims/repository"
	"opd-claims/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AllowedDocumentTypes are the content types accepted for claim documents
var AllowedDocumentTypes = []string{"image/jpeg", "image/png", "image/jpg", "application/pdf"}

// ClaimHandler handles HTTP requests for claims, their documents and decisions
type ClaimHandler struct {
	stores        repository.Stores
	storage       storage.Storage
	uploadBaseURL string
	maxFileSize   int64
	newClaimID    func() string
	log           *zap.SugaredLogger
}

// NewClaimHandler creates a new claim handler
func NewClaimHandler(stores repository.Stores, store storage.Storage, uploadBaseURL string, log *zap.SugaredLogger) *ClaimHandler {
	return &ClaimHandler{
		stores:        stores,
		storage:       store,
		uploadBaseURL: strings.TrimRight(uploadBaseURL, "/"),
		maxFileSize:   10 * 1024 * 1024, // 10MB
		newClaimID:    NewClaimID,
		log:           log,
	}
}

// NewClaimID returns "CLM_" followed by eight upper-case hex characters
func NewClaimID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "CLM_" + strings.ToUpper(hex[:8])
}

// DetectDocumentType infers the document type from its filename
func DetectDocumentType(filename string) models.DocumentType {
	name := strings.ToLower(filename)
	containsAny := func(terms ...string) bool {
		for _, t := range terms {
			if strings.Contains(name, t) {
				return true
			}
		}
		return false
	}

	switch {
	case containsAny("prescription", "rx", "presc"):
		return models.DocumentPrescription
	case containsAny("bill", "invoice", "receipt"):
		return models.DocumentBill
	case containsAny("report", "test", "lab", "diagnostic"):
		return models.DocumentReport
	default:
		return models.DocumentBill
	}
}

// SubmitClaim handles POST /claims
func (h *ClaimHandler) SubmitClaim(c *gin.Context) {
	ctx := c.Request.Context()
	memberID := c.PostForm("member_id")
	treatmentDate := c.PostForm("treatment_date")
	if memberID == "" || treatmentDate == "" {
		respondDetail(c, http.StatusUnprocessableEntity, "member_id and treatment_date are required")
		return
	}

	treated, err := models.ParseTimestamp(treatmentDate)
	if err != nil {
		respondDetail(c, http.StatusUnprocessableEntity, fmt.Sprintf("Invalid treatment_date %s", treatmentDate))
		return
	}

	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		respondDetail(c, http.StatusUnprocessableEntity, "At least one file is required")
		return
	}
	files := form.File["files"]

	h.log.Infow("Received claim submission", "memberID", memberID, "files", len(files))

	if _, err := h.stores.Members.Get(ctx, memberID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondDetail(c, http.StatusNotFound, fmt.Sprintf("Member %s not found", memberID))
			return
		}
		h.log.Errorw("Failed to look up member", "memberID", memberID, "error", err)
		respondDetail(c, http.StatusInternalServerError, "Failed to look up member")
		return
	}

	for _, fh := range files {
		if fh.Size > h.maxFileSize {
			respondDetail(c, http.StatusBadRequest, fmt.Sprintf("File %s exceeds maximum of %d bytes", fh.Filename, h.maxFileSize))
			return
		}
		contentType, err := documentContentType(fh)
		if err != nil {
			respondDetail(c, http.StatusBadRequest, err.Error())
			return
		}
		if !isAllowedDocumentType(contentType) {
			respondDetail(c, http.StatusBadRequest, fmt.Sprintf("File type %s not allowed. Allowed: %v", contentType, AllowedDocumentTypes))
			return
		}
	}

	claim := &models.Claim{
		ID:            h.newClaimID(),
		MemberID:      memberID,
		TreatmentDate: models.NewDate(treated.Time),
		TotalAmount:   decimal.Zero,
		Status:        models.StatusProcessing,
	}
	if err := h.stores.Claims.Create(ctx, claim); err != nil {
		h.log.Errorw("Failed to create claim", "memberID", memberID, "error", err)
		respondDetail(c, http.StatusInternalServerError, fmt.Sprintf("Error processing claim: %v", err))
		return
	}
	h.audit(c, claim.ID, repository.ActionClaimSubmitted, map[string]interface{}{
		"member_id":      memberID,
		"treatment_date": claim.TreatmentDate.Format("2006-01-02"),
		"file_count":     len(files),
	})

	stored := make([]string, 0, len(files))
	for _, fh := range files {
		if err := h.storeDocument(c, claim.ID, fh); err != nil {
			h.log.Warnw("Failed to store document", "claimID", claim.ID, "filename", fh.Filename, "error", err)
			continue
		}
		stored = append(stored, fh.Filename)
	}
	h.audit(c, claim.ID, repository.ActionDocumentsProcessed, map[string]interface{}{
		"filenames":      stored,
		"document_count": len(files),
		"stored":         len(stored),
	})

	h.log.Infow("Claim received", "claimID", claim.ID, "documents", len(stored))

	c.JSON(http.StatusOK, models.SubmitResponse{
		Success:         true,
		ClaimID:         claim.ID,
		Status:          claim.Status,
		ApprovedAmount:  decimal.Zero,
		ConfidenceScore: 0,
		Message:         fmt.Sprintf("Claim received. Status: %s", claim.Status),
	})
}

func (h *ClaimHandler) storeDocument(c *gin.Context, claimID string, fh *multipart.FileHeader) error {
	file, err := fh.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	path, err := h.storage.Upload(c.Request.Context(), claimID, uuid.New(), fh.Filename, file)
	if err != nil {
		return err
	}
	getMetrics().uploads.Inc()

	doc := &models.Document{
		ClaimID:      claimID,
		DocumentType: DetectDocumentType(fh.Filename),
		Filename:     fh.Filename,
		FileURL:      h.uploadBaseURL + "/" + path,
	}
	if err := h.stores.Documents.Create(c.Request.Context(), doc); err != nil {
		if delErr := h.storage.Delete(c.Request.Context(), path); delErr != nil {
			h.log.Warnw("Failed to remove unrecorded document", "path", path, "error", delErr)
		}
		return fmt.Errorf("failed to record document: %w", err)
	}
	return nil
}

// documentContentType returns the declared content type of an upload,
// sniffing the content when none was declared
func documentContentType(fh *multipart.FileHeader) (string, error) {
	declared := fh.Header.Get("Content-Type")
	if declared != "" && declared != "application/octet-stream" {
		return declared, nil
	}

	file, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer file.Close()

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return "", fmt.Errorf("failed to detect type of %s: %w", fh.Filename, err)
	}
	return strings.TrimSpace(strings.SplitN(mtype.String(), ";", 2)[0]), nil
}

func isAllowedDocumentType(contentType string) bool {
	for _, t := range AllowedDocumentTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

// GetClaim handles GET /claims/:id
func (h *ClaimHandler) GetClaim(c *gin.Context) {
	claim, ok := h.loadClaim(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, claim)
}

// ListClaims handles GET /claims
func (h *ClaimHandler) ListClaims(c *gin.Context) {
	filter := repository.ClaimFilter{
		MemberID: c.Query("member_id"),
		Status:   models.ClaimStatus(c.Query("status")),
	}

	var err error
	if filter.Skip, err = intQuery(c, "skip", 0); err != nil {
		respondDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if filter.Limit, err = intQuery(c, "limit", repository.DefaultClaimLimit); err != nil {
		respondDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	claims, err := h.stores.Claims.List(c.Request.Context(), filter)
	if err != nil {
		h.log.Errorw("Failed to list claims", "error", err)
		respondDetail(c, http.StatusInternalServerError, "Failed to list claims")
		return
	}

	c.JSON(http.StatusOK, claims)
}

// GetClaimDocuments handles GET /claims/:id/documents
func (h *ClaimHandler) GetClaimDocuments(c *gin.Context) {
	claim, ok := h.loadClaim(c)
	if !ok {
		return
	}

	docs, err := h.stores.Documents.ListByClaim(c.Request.Context(), claim.ID)
	if err != nil {
		h.log.Errorw("Failed to list documents", "claimID", claim.ID, "error", err)
		respondDetail(c, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	c.JSON(http.StatusOK, docs)
}

// GetAuditTrail handles GET /claims/:id/audit
func (h *ClaimHandler) GetAuditTrail(c *gin.Context) {
	claim, ok := h.loadClaim(c)
	if !ok {
		return
	}

	entries, err := h.stores.Audit.ListByClaim(c.Request.Context(), claim.ID)
	if err != nil {
		h.log.Errorw("Failed to list audit trail", "claimID", claim.ID, "error", err)
		respondDetail(c, http.StatusInternalServerError, "Failed to list audit trail")
		return
	}

	c.JSON(http.StatusOK, entries)
}

// GetDecision handles GET /decisions/:id
func (h *ClaimHandler) GetDecision(c *gin.Context) {
	claimID := c.Param("id")

	decision, err := h.stores.Decisions.GetByClaim(c.Request.Context(), claimID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondDetail(c, http.StatusNotFound, fmt.Sprintf("Decision for claim %s not found", claimID))
			return
		}
		h.log.Errorw("Failed to get decision", "claimID", claimID, "error", err)
		respondDetail(c, http.StatusInternalServerError, "Failed to get decision")
		return
	}

	c.JSON(http.StatusOK, decision)
}

// RecordDecisionRequest is the body of PUT /decisions/:id
type RecordDecisionRequest struct {
	Decision         models.ClaimStatus `json:"decision" binding:"required"`
	ApprovedAmount   decimal.Decimal    `json:"approved_amount"`
	RejectedAmount   *decimal.Decimal   `json:"rejected_amount"`
	RejectionReasons []string           `json:"rejection_reasons"`
	ConfidenceScore  float64            `json:"confidence_score"`
	Reasoning        []string           `json:"reasoning"`
	Notes            *string            `json:"notes"`
	NextSteps        *string            `json:"next_steps"`
	Flags            []string           `json:"flags"`
	Deductions       models.Deductions  `json:"deductions"`
}

// RecordDecision handles PUT /decisions/:id. It stands in for the
// adjudication engine: the decision is stored and the claim moves to the
// decided status.
func (h *ClaimHandler) RecordDecision(c *gin.Context) {
	ctx := c.Request.Context()

	var req RecordDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !req.Decision.Valid() || !req.Decision.ExpectsDecision() {
		respondDetail(c, http.StatusBadRequest, "Decision must be one of APPROVED, REJECTED, PARTIAL, MANUAL_REVIEW")
		return
	}
	if req.ConfidenceScore < 0 || req.ConfidenceScore > 1 {
		respondDetail(c, http.StatusBadRequest, "confidence_score must be between 0 and 1")
		return
	}

	claim, ok := h.loadClaim(c)
	if !ok {
		return
	}

	decision := &models.Decision{
		ClaimID:          claim.ID,
		Decision:         req.Decision,
		ApprovedAmount:   req.ApprovedAmount,
		RejectedAmount:   req.RejectedAmount,
		RejectionReasons: nonNil(req.RejectionReasons),
		ConfidenceScore:  req.ConfidenceScore,
		Reasoning:        nonNil(req.Reasoning),
		Notes:            req.Notes,
		NextSteps:        req.NextSteps,
		Flags:            nonNil(req.Flags),
		Deductions:       req.Deductions,
	}
	if decision.Deductions == nil {
		decision.Deductions = models.Deductions{}
	}

	if err := h.stores.Decisions.Save(ctx, decision); err != nil {
		h.log.Errorw("Failed to save decision", "claimID", claim.ID, "error", err)
		respondDetail(c, http.StatusInternalServerError, "Failed to save decision")
		return
	}

	var approved *decimal.Decimal
	if req.Decision.CarriesApprovedAmount() {
		amount := req.ApprovedAmount
		approved = &amount
	}
	if err := h.stores.Claims.UpdateOutcome(ctx, claim.ID, req.Decision, approved); err != nil {
		h.log.Errorw("Failed to update claim", "claimID", claim.ID, "error", err)
		respondDetail(c, http.StatusInternalServerError, "Failed to update claim")
		return
	}

	// A claim re-decided as APPROVED must not consume the limit twice.
	if req.Decision == models.StatusApproved && claim.Status != models.StatusApproved {
		if err := h.stores.Members.AddLimitUsed(ctx, claim.MemberID, req.ApprovedAmount); err != nil {
			h.log.Errorw("Failed to update member limit", "memberID", claim.MemberID, "error", err)
			respondDetail(c, http.StatusInternalServerError, "Failed to update member limit")
			return
		}
	}

	h.audit(c, claim.ID, repository.ActionDecisionMade, map[string]interface{}{
		"decision":        string(req.Decision),
		"approved_amount": req.ApprovedAmount.String(),
		"confidence":      req.ConfidenceScore,
	})

	h.log.Infow("Decision recorded", "claimID", claim.ID, "decision", req.Decision)
	c.JSON(http.StatusOK, decision)
}

// loadClaim fetches the claim named by the :id parameter, writing the error
// response itself when it cannot
func (h *ClaimHandler) loadClaim(c *gin.Context) (*models.Claim, bool) {
	id := c.Param("id")

	claim, err := h.stores.Claims.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondDetail(c, http.StatusNotFound, fmt.Sprintf("Claim %s not found", id))
			return nil, false
		}
		h.log.Errorw("Failed to get claim", "claimID", id, "error", err)
		respondDetail(c, http.StatusInternalServerError, "Failed to get claim")
		return nil, false
	}
	return claim, true
}

// audit records an audit entry. Failures are logged and never fail the request.
func (h *ClaimHandler) audit(c *gin.Context, claimID, action string, details map[string]interface{}) {
	if err := h.stores.Audit.Record(c.Request.Context(), claimID, action, details); err != nil {
		h.log.Warnw("Failed to record audit entry", "claimID", claimID, "action", action, "error", err)
	}
}

// ServeUpload handles GET /uploads/*path
func (h *ClaimHandler) ServeUpload(c *gin.Context) {
	path := strings.TrimPrefix(c.Param("path"), "/")

	rc, err := h.storage.Download(c.Request.Context(), path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondDetail(c, http.StatusNotFound, "File not found")
			return
		}
		h.log.Errorw("Failed to read stored document", "path", path, "error", err)
		respondDetail(c, http.StatusInternalServerError, "Failed to read file")
		return
	}
	defer rc.Close()

	c.Header("Content-Type", storage.ContentTypeFor(path))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.log.Warnw("Failed to stream stored document", "path", path, "error", err)
	}
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
