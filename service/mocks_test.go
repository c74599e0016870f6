package service

import (
	"context"
	"sync"
	"time"

	"opd-claims/client"
	"opd-claims/logger"
	"opd-claims/models"

	"github.com/stretchr/testify/mock"
)

func init() {
	logger.IsTest = true
}

type MockClaimsAPI struct {
	mock.Mock
}

func (m *MockClaimsAPI) ListMembers(ctx context.Context) ([]models.Member, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Member), args.Error(1)
}

func (m *MockClaimsAPI) GetMember(ctx context.Context, memberID string) (*models.Member, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Member), args.Error(1)
}

func (m *MockClaimsAPI) SubmitClaim(ctx context.Context, req client.SubmitClaimRequest) (*models.SubmitResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubmitResponse), args.Error(1)
}

func (m *MockClaimsAPI) GetClaim(ctx context.Context, claimID string) (*models.Claim, error) {
	args := m.Called(ctx, claimID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Claim), args.Error(1)
}

func (m *MockClaimsAPI) ListClaims(ctx context.Context, params client.ListClaimsParams) ([]models.Claim, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Claim), args.Error(1)
}

func (m *MockClaimsAPI) GetClaimDocuments(ctx context.Context, claimID string) ([]models.Document, error) {
	args := m.Called(ctx, claimID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Document), args.Error(1)
}

func (m *MockClaimsAPI) GetDecision(ctx context.Context, claimID string) (*models.Decision, error) {
	args := m.Called(ctx, claimID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Decision), args.Error(1)
}

// recordingNotifier keeps every toast emitted by a flow.
type recordingNotifier struct {
	mu      sync.Mutex
	entries []toast
}

type toast struct {
	severity string
	message  string
}

func (n *recordingNotifier) add(sev, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, toast{sev, msg})
}

func (n *recordingNotifier) Success(msg string) { n.add("success", msg) }
func (n *recordingNotifier) Error(msg string)   { n.add("error", msg) }
func (n *recordingNotifier) Info(msg string)    { n.add("info", msg) }

func (n *recordingNotifier) all() []toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]toast, len(n.entries))
	copy(out, n.entries)
	return out
}

// manualScheduler records scheduled callbacks instead of running them.
type manualScheduler struct {
	mu     sync.Mutex
	delays []time.Duration
	funcs  []func()
}

func (s *manualScheduler) schedule(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	s.funcs = append(s.funcs, f)
}

func (s *manualScheduler) runAll() {
	s.mu.Lock()
	funcs := s.funcs
	s.funcs = nil
	s.mu.Unlock()
	for _, f := range funcs {
		f()
	}
}
