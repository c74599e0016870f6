package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"opd-claims/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memory keeps every sandbox table in process. Used when no database is
// configured and in tests.
type memory struct {
	mu        sync.RWMutex
	now       func() time.Time
	members   map[string]models.Member
	claims    map[string]models.Claim
	claimSeq  map[string]int
	documents map[string][]models.Document
	decisions map[string]models.Decision
	audit     map[string][]AuditEntry
	seq       int
}

// NewMemoryStores creates in-memory stores sharing one lock
func NewMemoryStores() Stores {
	return newMemoryStores(time.Now)
}

func newMemoryStores(now func() time.Time) Stores {
	m := &memory{
		now:       now,
		members:   make(map[string]models.Member),
		claims:    make(map[string]models.Claim),
		claimSeq:  make(map[string]int),
		documents: make(map[string][]models.Document),
		decisions: make(map[string]models.Decision),
		audit:     make(map[string][]AuditEntry),
	}
	return Stores{
		Members:   memoryMembers{m},
		Claims:    memoryClaims{m},
		Documents: memoryDocuments{m},
		Decisions: memoryDecisions{m},
		Audit:     memoryAudit{m},
	}
}

type memoryMembers struct{ *memory }

func (s memoryMembers) List(ctx context.Context) ([]models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]models.Member, 0, len(s.members))
	for _, m := range s.members {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

func (s memoryMembers) Get(ctx context.Context, id string) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s memoryMembers) Create(ctx context.Context, m *models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[m.ID]; ok {
		return fmt.Errorf("%w: member %s", ErrDuplicate, m.ID)
	}
	m.CreatedAt = models.NewTimestamp(s.now())
	s.members[m.ID] = *m
	return nil
}

func (s memoryMembers) AddLimitUsed(ctx context.Context, id string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[id]
	if !ok {
		return ErrNotFound
	}
	m.AnnualLimitUsed = m.AnnualLimitUsed.Add(amount)
	s.members[id] = m
	return nil
}

type memoryClaims struct{ *memory }

func (s memoryClaims) Create(ctx context.Context, c *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.claims[c.ID]; ok {
		return fmt.Errorf("%w: claim %s", ErrDuplicate, c.ID)
	}
	if _, ok := s.members[c.MemberID]; !ok {
		return fmt.Errorf("member %s: %w", c.MemberID, ErrNotFound)
	}
	now := models.NewTimestamp(s.now())
	c.SubmissionDate = now
	c.CreatedAt = now
	s.seq++
	s.claims[c.ID] = *c
	s.claimSeq[c.ID] = s.seq
	return nil
}

func (s memoryClaims) Get(ctx context.Context, id string) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.claims[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s memoryClaims) List(ctx context.Context, f ClaimFilter) ([]models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.Claim
	for _, c := range s.claims {
		if f.MemberID != "" && c.MemberID != f.MemberID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.SubmissionDate.Equal(b.SubmissionDate.Time) {
			return a.SubmissionDate.After(b.SubmissionDate.Time)
		}
		return s.claimSeq[a.ID] > s.claimSeq[b.ID]
	})

	claims := []models.Claim{}
	skip, limit := f.skip(), f.limit()
	if skip >= len(matched) {
		return claims, nil
	}
	end := skip + limit
	if end > len(matched) {
		end = len(matched)
	}
	return append(claims, matched[skip:end]...), nil
}

func (s memoryClaims) UpdateOutcome(ctx context.Context, id string, status models.ClaimStatus, approved *decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.claims[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	c.ApprovedAmount = approved
	s.claims[id] = c
	return nil
}

type memoryDocuments struct{ *memory }

func (s memoryDocuments) Create(ctx context.Context, d *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d.ID = uuid.NewString()
	d.CreatedAt = models.NewTimestamp(s.now())
	s.documents[d.ClaimID] = append(s.documents[d.ClaimID], *d)
	return nil
}

func (s memoryDocuments) ListByClaim(ctx context.Context, claimID string) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.Document{}, s.documents[claimID]...), nil
}

type memoryDecisions struct{ *memory }

func (s memoryDecisions) Save(ctx context.Context, d *models.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.decisions[d.ClaimID]; ok {
		d.ID = prev.ID
	} else {
		d.ID = uuid.NewString()
	}
	d.CreatedAt = models.NewTimestamp(s.now())
	s.decisions[d.ClaimID] = *d
	return nil
}

func (s memoryDecisions) GetByClaim(ctx context.Context, claimID string) (*models.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.decisions[claimID]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

type memoryAudit struct{ *memory }

func (s memoryAudit) Record(ctx context.Context, claimID, action string, details map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.audit[claimID] = append(s.audit[claimID], AuditEntry{
		ID:        int64(s.seq),
		ClaimID:   claimID,
		Action:    action,
		Details:   models.ExtractedData(details),
		Timestamp: models.NewTimestamp(s.now()),
	})
	return nil
}

func (s memoryAudit) ListByClaim(ctx context.Context, claimID string) ([]AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]AuditEntry{}, s.audit[claimID]...), nil
}
