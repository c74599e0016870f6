package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"opd-claims/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// ErrDuplicate is returned when inserting a row whose key already exists
var ErrDuplicate = errors.New("record already exists")

// MemberRepository handles database operations for members
type MemberRepository struct {
	db DBTX
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db DBTX) *MemberRepository {
	return &MemberRepository{db: db}
}

const memberColumns = `id, name, policy_id, join_date, annual_limit_used, gender, created_at`

func scanMember(row interface{ Scan(...any) error }) (*models.Member, error) {
	m := &models.Member{}
	var joined time.Time
	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.PolicyID,
		&joined,
		&m.AnnualLimitUsed,
		&m.Gender,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.JoinDate = models.NewDate(joined)
	return m, nil
}

// List retrieves all members ordered by id
func (r *MemberRepository) List(ctx context.Context) ([]models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}

	return members, rows.Err()
}

// Get retrieves a member by ID
func (r *MemberRepository) Get(ctx context.Context, id string) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`

	m, err := scanMember(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return m, nil
}

// Create inserts a new member
func (r *MemberRepository) Create(ctx context.Context, m *models.Member) error {
	query := `
		INSERT INTO members (id, name, policy_id, join_date, annual_limit_used, gender)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRow(
		ctx, query,
		m.ID,
		m.Name,
		m.PolicyID,
		m.JoinDate.Time,
		m.AnnualLimitUsed,
		m.Gender,
	).Scan(&m.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: member %s", ErrDuplicate, m.ID)
	}
	return err
}

// AddLimitUsed increases a member's consumed annual limit
func (r *MemberRepository) AddLimitUsed(ctx context.Context, id string, amount decimal.Decimal) error {
	query := `UPDATE members SET annual_limit_used = annual_limit_used + $2 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
