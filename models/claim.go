package models

import "github.com/shopspring/decimal"

func init() {
	// Amounts travel as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Claim represents an OPD claim as reported by the adjudication backend
type Claim struct {
	ID             string           `json:"id"`
	MemberID       string           `json:"member_id"`
	SubmissionDate Timestamp        `json:"submission_date"`
	TreatmentDate  Timestamp        `json:"treatment_date"`
	TotalAmount    decimal.Decimal  `json:"total_amount"`
	ApprovedAmount *decimal.Decimal `json:"approved_amount"`
	Status         ClaimStatus      `json:"status"`
	Category       *string          `json:"category"`
	HospitalName   *string          `json:"hospital_name"`
	CreatedAt      Timestamp        `json:"created_at"`
}

// ApprovedOrZero returns the approved amount, treating null as zero.
func (c *Claim) ApprovedOrZero() decimal.Decimal {
	if c.ApprovedAmount == nil {
		return decimal.Zero
	}
	return *c.ApprovedAmount
}

// SubmitResponse is the acknowledgement returned by POST /claims
type SubmitResponse struct {
	Success         bool            `json:"success"`
	ClaimID         string          `json:"claim_id"`
	Status          ClaimStatus     `json:"status"`
	ApprovedAmount  decimal.Decimal `json:"approved_amount"`
	ConfidenceScore float64         `json:"confidence_score"`
	Message         string          `json:"message"`
}

// ErrorBody is the JSON error payload returned on non-2xx responses
type ErrorBody struct {
	Detail string `json:"detail"`
}
