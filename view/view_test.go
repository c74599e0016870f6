package view

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"opd-claims/models"
	"opd-claims/notify"
	"opd-claims/service"
	"opd-claims/upload"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

func strPtr(s string) *string { return &s }

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   decimal.Decimal
		want string
	}{
		{decimal.Zero, "₹0.00"},
		{decimal.NewFromFloat(1500), "₹1,500.00"},
		{decimal.NewFromFloat(1234.5), "₹1,234.50"},
		{decimal.NewFromFloat(0.129), "₹0.13"},
		{decimal.NewFromFloat(1250000.75), "₹1,250,000.75"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(tt.in))
		})
	}

	assert.Equal(t, "-", FormatOptionalAmount(nil))
	assert.Equal(t, "₹10.00", FormatOptionalAmount(dec(10)))
}

func TestFormatDates(t *testing.T) {
	at := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, "Jan 15, 2024", FormatDate(models.NewTimestamp(at)))
	assert.Equal(t, "Jan 15, 2024 02:30 PM", FormatDateTime(models.NewTimestamp(at)))
	assert.Equal(t, "Jan 15, 2024", FormatDateTime(models.NewDate(at)))
	assert.Equal(t, "-", FormatDate(models.Timestamp{}))
	assert.Equal(t, "-", FormatDateTime(models.Timestamp{}))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "87%", FormatPercent(0.87))
	assert.Equal(t, "100%", FormatPercent(1))
	assert.Equal(t, "0%", FormatPercent(0))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "1.00 KB", FormatSize(1024))
	assert.Equal(t, "0.50 KB", FormatSize(512))
}

func TestRenderer_ListingRows(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	claims := []models.Claim{
		{
			ID:             "CLM_1",
			MemberID:       "EMP001",
			TreatmentDate:  models.NewDate(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)),
			SubmissionDate: models.NewTimestamp(time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC)),
			TotalAmount:    decimal.NewFromFloat(1500),
			ApprovedAmount: dec(1350),
			Status:         models.StatusApproved,
		},
		{
			ID:          "CLM_2",
			MemberID:    "EMP002",
			TotalAmount: decimal.NewFromFloat(800),
			Status:      models.StatusManualReview,
		},
	}
	stats := service.ComputeStats(claims)

	require.NoError(t, r.Listing(stats, service.FilterAll, claims, nil))
	out := buf.String()

	assert.Contains(t, out, "Claims Dashboard")
	assert.Contains(t, out, "Filter: ALL")
	assert.Contains(t, out, "₹1,350.00")
	assert.Contains(t, out, "Manual Review")
	assert.Contains(t, out, "Jan 15, 2024")
	assert.NotContains(t, out, "No claims found")
}

func TestRenderer_ListingEmptyState(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	err := r.Listing(service.ComputeStats(nil), service.FilterAll, nil, &service.EmptyState{
		Title: "No claims found", Hint: "Start by submitting your first claim", ShowSubmit: true,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Start by submitting your first claim")
	assert.Contains(t, buf.String(), "opdclaims submit")

	buf.Reset()
	err = r.Listing(service.ComputeStats(nil), service.Filter("REJECTED"), nil, &service.EmptyState{
		Title: "No claims found", Hint: "No REJECTED claims",
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No REJECTED claims")
	assert.NotContains(t, buf.String(), "opdclaims submit")
}

func TestRenderer_DetailWithDecision(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	ocr := 0.92
	v := &service.DetailView{
		Claim: &models.Claim{
			ID:             "CLM_1",
			MemberID:       "EMP001",
			SubmissionDate: models.NewTimestamp(time.Date(2024, 1, 16, 9, 15, 0, 0, time.UTC)),
			TreatmentDate:  models.NewDate(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)),
			TotalAmount:    decimal.NewFromFloat(1500),
			ApprovedAmount: dec(1200),
			Status:         models.StatusPartial,
			HospitalName:   strPtr("Apollo Clinic"),
		},
		Documents: []models.Document{
			{Filename: "bill.pdf", DocumentType: models.DocumentBill, OCRConfidence: &ocr, ExtractedData: models.ExtractedData{"total": 1500}},
		},
		Decision: &models.Decision{
			Decision:         models.StatusPartial,
			RejectedAmount:   dec(300),
			ConfidenceScore:  0.87,
			Reasoning:        []string{"Consultation covered"},
			RejectionReasons: []string{"SUB_LIMIT_EXCEEDED"},
			Deductions:       models.Deductions{"sub_limit": decimal.NewFromFloat(150), "copay": decimal.NewFromFloat(150)},
			NextSteps:        strPtr("Pay the co-pay at the clinic"),
		},
	}

	require.NoError(t, r.Detail(v))
	out := buf.String()

	assert.Contains(t, out, "Claim CLM_1  [Partial]")
	assert.Contains(t, out, "Submitted on Jan 16, 2024 09:15 AM")
	assert.Contains(t, out, "Apollo Clinic")
	assert.Contains(t, out, "Rejected Amount")
	assert.Contains(t, out, "₹300.00")
	assert.Contains(t, out, "87%")
	assert.Contains(t, out, "SUB_LIMIT_EXCEEDED")
	assert.Contains(t, out, "Pay the co-pay at the clinic")
	assert.Contains(t, out, "BILL  OCR 92%")
	assert.Contains(t, out, `"total": 1500`)
	assert.Less(t, strings.Index(out, "copay"), strings.Index(out, "sub_limit"), "deductions are sorted")
}

func TestRenderer_DetailHidesZeroRejectedAmount(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	zero := decimal.Zero
	v := &service.DetailView{
		Claim:    &models.Claim{ID: "CLM_2", Status: models.StatusApproved, TotalAmount: decimal.NewFromFloat(500)},
		Decision: &models.Decision{Decision: models.StatusApproved, RejectedAmount: &zero},
	}
	require.NoError(t, r.Detail(v))
	assert.NotContains(t, buf.String(), "Rejected Amount")
	assert.NotContains(t, buf.String(), "Approved Amount")
	assert.NotContains(t, buf.String(), "Documents")
}

func TestRenderer_DetailError(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf).DetailError("Claim CLM_X not found")
	assert.Contains(t, buf.String(), "Claim CLM_X not found")
	assert.Contains(t, buf.String(), "Back to claims: opdclaims claims")

	buf.Reset()
	NewRenderer(&buf).DetailError("")
	assert.Contains(t, buf.String(), "Claim not found")
}

func TestRenderer_MembersAndFiles(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	require.NoError(t, r.Members([]models.Member{{ID: "EMP001", Name: "Rajesh Kumar", PolicyID: "PLUM_OPD_2024"}}))
	assert.Contains(t, buf.String(), "Rajesh Kumar")

	buf.Reset()
	require.NoError(t, r.Files([]upload.File{
		upload.FromBytes("rx.pdf", "application/pdf", make([]byte, 2048)),
		upload.FromBytes("scan.png", "image/png", nil),
	}))
	out := buf.String()
	assert.Contains(t, out, "rx.pdf")
	assert.Contains(t, out, "PDF")
	assert.Contains(t, out, "2.00 KB")
	assert.Contains(t, out, "IMAGE")
}

func TestRenderer_Toast(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)
	r.Toast(notify.Toast{Severity: notify.SeverityError, Message: "Failed to submit claim"})
	r.Toast(notify.Toast{Severity: notify.SeveritySuccess, Message: "done"})
	assert.Equal(t, "✗ Failed to submit claim\n✓ done\n", buf.String())
}
