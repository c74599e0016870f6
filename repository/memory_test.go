package repository

import (
	"context"
	"testing"
	"time"

	"opd-claims/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock returns a clock advancing one minute per call
func fixedClock() func() time.Time {
	t := time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func seeded(t *testing.T) Stores {
	s := newMemoryStores(fixedClock())
	n, err := Seed(context.Background(), s.Members)
	require.NoError(t, err)
	require.Equal(t, 10, n)
	return s
}

func TestSeed_Idempotent(t *testing.T) {
	s := seeded(t)

	n, err := Seed(context.Background(), s.Members)
	require.NoError(t, err)
	assert.Zero(t, n)

	members, err := s.Members.List(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 10)
	assert.Equal(t, "EMP001", members[0].ID)
	assert.Equal(t, "EMP010", members[9].ID)
	assert.Equal(t, 9, int(members[4].JoinDate.Month()), "EMP005 joined in September")
}

func TestMemoryMembers(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	err := s.Members.Create(ctx, &models.Member{ID: "EMP001"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = s.Members.Get(ctx, "EMP404")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Members.AddLimitUsed(ctx, "EMP002", decimal.NewFromInt(500)))
	require.NoError(t, s.Members.AddLimitUsed(ctx, "EMP002", decimal.NewFromFloat(250.5)))
	m, err := s.Members.Get(ctx, "EMP002")
	require.NoError(t, err)
	assert.Equal(t, "750.5", m.AnnualLimitUsed.String())

	assert.ErrorIs(t, s.Members.AddLimitUsed(ctx, "EMP404", decimal.NewFromInt(1)), ErrNotFound)
}

func TestMemoryClaims_ListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	create := func(id, member string, status models.ClaimStatus) {
		require.NoError(t, s.Claims.Create(ctx, &models.Claim{ID: id, MemberID: member, Status: status}))
	}
	create("CLM_A", "EMP001", models.StatusProcessing)
	create("CLM_B", "EMP002", models.StatusProcessing)
	create("CLM_C", "EMP001", models.StatusProcessing)
	require.NoError(t, s.Claims.UpdateOutcome(ctx, "CLM_C", models.StatusRejected, nil))

	all, err := s.Claims.List(ctx, ClaimFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"CLM_C", "CLM_B", "CLM_A"}, claimIDs(all), "newest first")

	mine, err := s.Claims.List(ctx, ClaimFilter{MemberID: "EMP001"})
	require.NoError(t, err)
	assert.Equal(t, []string{"CLM_C", "CLM_A"}, claimIDs(mine))

	rejected, err := s.Claims.List(ctx, ClaimFilter{Status: models.StatusRejected})
	require.NoError(t, err)
	assert.Equal(t, []string{"CLM_C"}, claimIDs(rejected))

	page, err := s.Claims.List(ctx, ClaimFilter{Skip: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"CLM_B"}, claimIDs(page))

	past, err := s.Claims.List(ctx, ClaimFilter{Skip: 10})
	require.NoError(t, err)
	assert.NotNil(t, past)
	assert.Empty(t, past)
}

func TestMemoryClaims_CreateRequiresMember(t *testing.T) {
	s := seeded(t)
	err := s.Claims.Create(context.Background(), &models.Claim{ID: "CLM_X", MemberID: "EMP404"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDecisions_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	_, err := s.Decisions.GetByClaim(ctx, "CLM_1")
	assert.ErrorIs(t, err, ErrNotFound)

	first := &models.Decision{ClaimID: "CLM_1", Decision: models.StatusManualReview}
	require.NoError(t, s.Decisions.Save(ctx, first))
	second := &models.Decision{ClaimID: "CLM_1", Decision: models.StatusApproved}
	require.NoError(t, s.Decisions.Save(ctx, second))

	got, err := s.Decisions.GetByClaim(ctx, "CLM_1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Decision)
	assert.Equal(t, first.ID, got.ID)
}

func TestMemoryDocumentsAndAudit(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)

	require.NoError(t, s.Documents.Create(ctx, &models.Document{ClaimID: "CLM_1", Filename: "a.pdf"}))
	require.NoError(t, s.Documents.Create(ctx, &models.Document{ClaimID: "CLM_1", Filename: "b.png"}))
	docs, err := s.Documents.ListByClaim(ctx, "CLM_1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.pdf", docs[0].Filename)
	assert.NotEmpty(t, docs[0].ID)

	none, err := s.Documents.ListByClaim(ctx, "CLM_2")
	require.NoError(t, err)
	assert.NotNil(t, none)

	require.NoError(t, s.Audit.Record(ctx, "CLM_1", ActionClaimSubmitted, map[string]interface{}{"member_id": "EMP001"}))
	require.NoError(t, s.Audit.Record(ctx, "CLM_1", ActionDocumentsProcessed, map[string]interface{}{"document_count": 2}))
	entries, err := s.Audit.ListByClaim(ctx, "CLM_1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionClaimSubmitted, entries[0].Action)
	assert.Less(t, entries[0].ID, entries[1].ID)
}

func claimIDs(claims []models.Claim) []string {
	ids := make([]string, len(claims))
	for i, c := range claims {
		ids[i] = c.ID
	}
	return ids
}
