package models

import (
	"database/sql/driver"
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// Deductions maps a deduction label (co-pay, sub-limit, ...) to the amount
// deducted for it
type Deductions map[string]decimal.Decimal

// Value implements driver.Valuer for JSONB
func (d Deductions) Value() (driver.Value, error) {
	if d == nil {
		return json.Marshal(map[string]decimal.Decimal{})
	}
	return json.Marshal(map[string]decimal.Decimal(d))
}

// Scan implements sql.Scanner for JSONB
func (d *Deductions) Scan(value interface{}) error {
	if value == nil {
		*d = make(Deductions)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*d = make(Deductions)
		return nil
	}

	if len(bytes) == 0 {
		*d = make(Deductions)
		return nil
	}

	return json.Unmarshal(bytes, (*map[string]decimal.Decimal)(d))
}

// Labels returns the deduction labels in sorted order so renderings are stable.
func (d Deductions) Labels() []string {
	labels := make([]string, 0, len(d))
	for k := range d {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}

// Decision is the adjudication outcome for a claim. It exists only once the
// claim has left PENDING/PROCESSING.
type Decision struct {
	ID               string           `json:"id"`
	ClaimID          string           `json:"claim_id"`
	Decision         ClaimStatus      `json:"decision"`
	ApprovedAmount   decimal.Decimal  `json:"approved_amount"`
	RejectedAmount   *decimal.Decimal `json:"rejected_amount"`
	RejectionReasons []string         `json:"rejection_reasons"`
	ConfidenceScore  float64          `json:"confidence_score"`
	Reasoning        []string         `json:"reasoning"`
	Notes            *string          `json:"notes"`
	NextSteps        *string          `json:"next_steps"`
	Flags            []string         `json:"flags"`
	Deductions       Deductions       `json:"deductions"`
	CreatedAt        Timestamp        `json:"created_at"`
}

// HasRejectedAmount reports whether a strictly positive rejected amount is set.
func (d *Decision) HasRejectedAmount() bool {
	return d != nil && d.RejectedAmount != nil && d.RejectedAmount.GreaterThan(decimal.Zero)
}
