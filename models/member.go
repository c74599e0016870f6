package models

import "github.com/shopspring/decimal"

// Member represents an insured employee covered by an OPD policy
type Member struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	PolicyID        string          `json:"policy_id"`
	JoinDate        Timestamp       `json:"join_date"`
	AnnualLimitUsed decimal.Decimal `json:"annual_limit_used"`
	Gender          *string         `json:"gender,omitempty"`
	CreatedAt       Timestamp       `json:"created_at"`
}
