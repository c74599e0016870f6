package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"opd-claims/models"

	"github.com/shopspring/decimal"
)

// Statement is a named DDL statement
type Statement struct {
	Name string
	SQL  string
}

// Tables creates the sandbox schema in dependency order
var Tables = []Statement{
	{
		Name: "members table",
		SQL: `
CREATE TABLE IF NOT EXISTS members (
    id VARCHAR(50) PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    policy_id VARCHAR(100) NOT NULL,
    join_date DATE NOT NULL,
    annual_limit_used NUMERIC(12, 2) NOT NULL DEFAULT 0,
    gender VARCHAR(20),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
	},
	{
		Name: "claims table",
		SQL: `
CREATE TABLE IF NOT EXISTS claims (
    id VARCHAR(50) PRIMARY KEY,
    member_id VARCHAR(50) NOT NULL REFERENCES members(id),
    submission_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    treatment_date DATE NOT NULL,
    total_amount NUMERIC(12, 2) NOT NULL DEFAULT 0,
    approved_amount NUMERIC(12, 2),
    status VARCHAR(20) NOT NULL DEFAULT 'PENDING'
        CHECK (status IN ('PENDING', 'PROCESSING', 'APPROVED', 'REJECTED', 'PARTIAL', 'MANUAL_REVIEW')),
    category VARCHAR(100),
    hospital_name VARCHAR(255),
    is_network BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ
);`,
	},
	{
		Name: "documents table",
		SQL: `
CREATE TABLE IF NOT EXISTS documents (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    claim_id VARCHAR(50) NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
    document_type VARCHAR(20) NOT NULL,
    file_url TEXT NOT NULL,
    filename VARCHAR(255) NOT NULL,
    extracted_data JSONB,
    ocr_text TEXT,
    ocr_confidence DOUBLE PRECISION,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
	},
	{
		Name: "decisions table",
		SQL: `
CREATE TABLE IF NOT EXISTS decisions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    claim_id VARCHAR(50) NOT NULL UNIQUE REFERENCES claims(id) ON DELETE CASCADE,
    decision VARCHAR(20) NOT NULL,
    approved_amount NUMERIC(12, 2) NOT NULL DEFAULT 0,
    rejected_amount NUMERIC(12, 2),
    rejection_reasons TEXT[],
    confidence_score DOUBLE PRECISION NOT NULL,
    reasoning TEXT[],
    notes TEXT,
    next_steps TEXT,
    flags TEXT[],
    deductions JSONB DEFAULT '{}'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
	},
	{
		Name: "audit_logs table",
		SQL: `
CREATE TABLE IF NOT EXISTS audit_logs (
    id BIGSERIAL PRIMARY KEY,
    claim_id VARCHAR(50) NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
    action VARCHAR(50) NOT NULL,
    details JSONB,
    timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
	},
}

// Indexes backs the listing and lookup queries
var Indexes = []Statement{
	{Name: "Claims by member", SQL: "CREATE INDEX IF NOT EXISTS idx_claims_member_id ON claims(member_id);"},
	{Name: "Claims by status", SQL: "CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status);"},
	{Name: "Claims newest first", SQL: "CREATE INDEX IF NOT EXISTS idx_claims_submission_date ON claims(submission_date DESC);"},
	{Name: "Documents by claim", SQL: "CREATE INDEX IF NOT EXISTS idx_documents_claim_id ON documents(claim_id);"},
	{Name: "Audit trail by claim", SQL: "CREATE INDEX IF NOT EXISTS idx_audit_logs_claim_id ON audit_logs(claim_id);"},
}

// CreateSchema executes every table and index statement. done is called
// after each statement succeeds and may be nil.
func CreateSchema(ctx context.Context, db DBTX, done func(Statement)) error {
	stmts := append(append([]Statement{}, Tables...), Indexes...)
	for _, st := range stmts {
		if _, err := db.Exec(ctx, st.SQL); err != nil {
			return fmt.Errorf("failed to create %s: %w", st.Name, err)
		}
		if done != nil {
			done(st)
		}
	}
	return nil
}

func seedMember(id, name, gender string, joined time.Time) models.Member {
	g := gender
	return models.Member{
		ID:              id,
		Name:            name,
		PolicyID:        "PLUM_OPD_2024",
		JoinDate:        models.NewDate(joined),
		AnnualLimitUsed: decimal.Zero,
		Gender:          &g,
	}
}

// SeedMembers returns the test members every sandbox starts with
func SeedMembers() []models.Member {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sep := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	return []models.Member{
		seedMember("EMP001", "Rajesh Kumar", "male", jan),
		seedMember("EMP002", "Priya Singh", "female", jan),
		seedMember("EMP003", "Amit Verma", "male", jan),
		seedMember("EMP004", "Sneha Reddy", "female", jan),
		seedMember("EMP005", "Vikram Joshi", "male", sep),
		seedMember("EMP006", "Kavita Nair", "female", jan),
		seedMember("EMP007", "Suresh Patil", "male", jan),
		seedMember("EMP008", "Ravi Menon", "male", jan),
		seedMember("EMP009", "Anita Desai", "female", jan),
		seedMember("EMP010", "Deepak Shah", "male", jan),
	}
}

// Seed inserts the seed members that are not stored yet and returns how
// many were added.
func Seed(ctx context.Context, members MemberStore) (int, error) {
	added := 0
	for _, m := range SeedMembers() {
		_, err := members.Get(ctx, m.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return added, fmt.Errorf("failed to look up member %s: %w", m.ID, err)
		}
		if err := members.Create(ctx, &m); err != nil {
			return added, fmt.Errorf("failed to seed member %s: %w", m.ID, err)
		}
		added++
	}
	return added, nil
}
