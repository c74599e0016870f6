package repository

import (
	"context"

	"opd-claims/models"
)

// AuditRepository handles database operations for the claim audit trail
type AuditRepository struct {
	db DBTX
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record appends an entry to a claim's audit trail
func (r *AuditRepository) Record(ctx context.Context, claimID, action string, details map[string]interface{}) error {
	query := `INSERT INTO audit_logs (claim_id, action, details) VALUES ($1, $2, $3)`

	_, err := r.db.Exec(ctx, query, claimID, action, models.ExtractedData(details))
	return err
}

// ListByClaim retrieves a claim's audit trail, oldest first
func (r *AuditRepository) ListByClaim(ctx context.Context, claimID string) ([]AuditEntry, error) {
	query := `
		SELECT id, claim_id, action, details, timestamp
		FROM audit_logs
		WHERE claim_id = $1
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []AuditEntry{}
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.ClaimID, &e.Action, &e.Details, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
