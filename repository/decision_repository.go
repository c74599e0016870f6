package repository

import (
	"context"

	"opd-claims/models"
)

// DecisionRepository handles database operations for adjudication decisions
type DecisionRepository struct {
	db DBTX
}

// NewDecisionRepository creates a new decision repository
func NewDecisionRepository(db DBTX) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// Save inserts the decision of a claim, replacing any earlier one
func (r *DecisionRepository) Save(ctx context.Context, d *models.Decision) error {
	query := `
		INSERT INTO decisions (
			claim_id, decision, approved_amount, rejected_amount, rejection_reasons,
			confidence_score, reasoning, notes, next_steps, flags, deductions
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (claim_id) DO UPDATE SET
			decision = EXCLUDED.decision,
			approved_amount = EXCLUDED.approved_amount,
			rejected_amount = EXCLUDED.rejected_amount,
			rejection_reasons = EXCLUDED.rejection_reasons,
			confidence_score = EXCLUDED.confidence_score,
			reasoning = EXCLUDED.reasoning,
			notes = EXCLUDED.notes,
			next_steps = EXCLUDED.next_steps,
			flags = EXCLUDED.flags,
			deductions = EXCLUDED.deductions,
			created_at = NOW()
		RETURNING id::text, created_at`

	return r.db.QueryRow(
		ctx, query,
		d.ClaimID,
		string(d.Decision),
		d.ApprovedAmount,
		d.RejectedAmount,
		d.RejectionReasons,
		d.ConfidenceScore,
		d.Reasoning,
		d.Notes,
		d.NextSteps,
		d.Flags,
		d.Deductions,
	).Scan(&d.ID, &d.CreatedAt)
}

// GetByClaim retrieves the decision of a claim
func (r *DecisionRepository) GetByClaim(ctx context.Context, claimID string) (*models.Decision, error) {
	query := `
		SELECT id::text, claim_id, decision, approved_amount, rejected_amount,
			COALESCE(rejection_reasons, '{}'), confidence_score, COALESCE(reasoning, '{}'),
			notes, next_steps, COALESCE(flags, '{}'), deductions, created_at
		FROM decisions
		WHERE claim_id = $1`

	d := &models.Decision{}
	var decision string
	err := r.db.QueryRow(ctx, query, claimID).Scan(
		&d.ID,
		&d.ClaimID,
		&decision,
		&d.ApprovedAmount,
		&d.RejectedAmount,
		&d.RejectionReasons,
		&d.ConfidenceScore,
		&d.Reasoning,
		&d.Notes,
		&d.NextSteps,
		&d.Flags,
		&d.Deductions,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, mapNotFound(err)
	}
	d.Decision = models.ClaimStatus(decision)
	if d.Deductions == nil {
		d.Deductions = models.Deductions{}
	}
	return d, nil
}
