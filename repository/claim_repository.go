package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"opd-claims/models"

	"github.com/shopspring/decimal"
)

// ClaimRepository handles database operations for claims
type ClaimRepository struct {
	db DBTX
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db DBTX) *ClaimRepository {
	return &ClaimRepository{db: db}
}

const claimColumns = `id, member_id, submission_date, treatment_date, total_amount, approved_amount,
		status, category, hospital_name, created_at`

func scanClaim(row interface{ Scan(...any) error }) (*models.Claim, error) {
	c := &models.Claim{}
	var treated time.Time
	var status string
	err := row.Scan(
		&c.ID,
		&c.MemberID,
		&c.SubmissionDate,
		&treated,
		&c.TotalAmount,
		&c.ApprovedAmount,
		&status,
		&c.Category,
		&c.HospitalName,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.TreatmentDate = models.NewDate(treated)
	c.Status = models.ClaimStatus(status)
	return c, nil
}

// Create inserts a new claim
func (r *ClaimRepository) Create(ctx context.Context, c *models.Claim) error {
	query := `
		INSERT INTO claims (id, member_id, treatment_date, total_amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING submission_date, created_at`

	return r.db.QueryRow(
		ctx, query,
		c.ID,
		c.MemberID,
		c.TreatmentDate.Time,
		c.TotalAmount,
		string(c.Status),
	).Scan(&c.SubmissionDate, &c.CreatedAt)
}

// Get retrieves a claim by ID
func (r *ClaimRepository) Get(ctx context.Context, id string) (*models.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = $1`

	c, err := scanClaim(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return c, nil
}

// List retrieves claims matching the filter, newest first
func (r *ClaimRepository) List(ctx context.Context, f ClaimFilter) ([]models.Claim, error) {
	var where []string
	var args []any
	if f.MemberID != "" {
		args = append(args, f.MemberID)
		where = append(where, fmt.Sprintf("member_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + claimColumns + ` FROM claims`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.skip(), f.limit())
	query += fmt.Sprintf(` ORDER BY submission_date DESC OFFSET $%d LIMIT $%d`, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	claims := []models.Claim{}
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, *c)
	}

	return claims, rows.Err()
}

// UpdateOutcome records the adjudicated status of a claim. approved may be
// nil to clear the approved amount.
func (r *ClaimRepository) UpdateOutcome(ctx context.Context, id string, status models.ClaimStatus, approved *decimal.Decimal) error {
	query := `
		UPDATE claims
		SET status = $2, approved_amount = $3, updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, string(status), approved)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
