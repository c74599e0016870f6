package repository

import (
	"context"
	"errors"

	"opd-claims/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

// DBTX is the subset of pgxpool.Pool used by the repositories
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ClaimFilter narrows a claim listing. Zero values mean "no filter".
type ClaimFilter struct {
	MemberID string
	Status   models.ClaimStatus
	Skip     int
	Limit    int
}

// DefaultClaimLimit is the page size used when a listing sets no limit
const DefaultClaimLimit = 20

func (f ClaimFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultClaimLimit
	}
	return f.Limit
}

func (f ClaimFilter) skip() int {
	if f.Skip < 0 {
		return 0
	}
	return f.Skip
}

// Audit actions recorded against a claim
const (
	ActionClaimSubmitted     = "CLAIM_SUBMITTED"
	ActionDocumentsProcessed = "DOCUMENTS_PROCESSED"
	ActionDecisionMade       = "DECISION_MADE"
)

// AuditEntry is one row of a claim's audit trail
type AuditEntry struct {
	ID        int64                `json:"id"`
	ClaimID   string               `json:"claim_id"`
	Action    string               `json:"action"`
	Details   models.ExtractedData `json:"details"`
	Timestamp models.Timestamp     `json:"timestamp"`
}

// MemberStore persists members
type MemberStore interface {
	List(ctx context.Context) ([]models.Member, error)
	Get(ctx context.Context, id string) (*models.Member, error)
	Create(ctx context.Context, m *models.Member) error
	AddLimitUsed(ctx context.Context, id string, amount decimal.Decimal) error
}

// ClaimStore persists claims
type ClaimStore interface {
	Create(ctx context.Context, c *models.Claim) error
	Get(ctx context.Context, id string) (*models.Claim, error)
	List(ctx context.Context, f ClaimFilter) ([]models.Claim, error)
	UpdateOutcome(ctx context.Context, id string, status models.ClaimStatus, approved *decimal.Decimal) error
}

// DocumentStore persists claim documents
type DocumentStore interface {
	Create(ctx context.Context, d *models.Document) error
	ListByClaim(ctx context.Context, claimID string) ([]models.Document, error)
}

// DecisionStore persists adjudication decisions, one per claim
type DecisionStore interface {
	Save(ctx context.Context, d *models.Decision) error
	GetByClaim(ctx context.Context, claimID string) (*models.Decision, error)
}

// AuditStore records the audit trail of claims
type AuditStore interface {
	Record(ctx context.Context, claimID, action string, details map[string]interface{}) error
	ListByClaim(ctx context.Context, claimID string) ([]AuditEntry, error)
}

// Stores groups the stores backing the sandbox API
type Stores struct {
	Members   MemberStore
	Claims    ClaimStore
	Documents DocumentStore
	Decisions DecisionStore
	Audit     AuditStore
}

// NewPostgresStores creates pgx backed stores sharing db
func NewPostgresStores(db DBTX) Stores {
	return Stores{
		Members:   NewMemberRepository(db),
		Claims:    NewClaimRepository(db),
		Documents: NewDocumentRepository(db),
		Decisions: NewDecisionRepository(db),
		Audit:     NewAuditRepository(db),
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
