package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"opd-claims/client"
	"opd-claims/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DetailState is the lifecycle state of the claim detail view.
type DetailState int

const (
	DetailLoading DetailState = iota
	DetailLoaded
	DetailError
)

func (s DetailState) String() string {
	switch s {
	case DetailLoading:
		return "Loading"
	case DetailLoaded:
		return "Loaded"
	case DetailError:
		return "Error"
	default:
		return fmt.Sprintf("DetailState(%d)", int(s))
	}
}

// DetailView is everything the detail page renders for one claim. Decision
// is nil when the claim is still in flight or no decision could be fetched.
type DetailView struct {
	Claim     *models.Claim
	Documents []models.Document
	Decision  *models.Decision
}

// HasDecision reports whether decision details are available
func (v *DetailView) HasDecision() bool {
	return v != nil && v.Decision != nil
}

// ShowRejectedAmount reports whether the rejected amount should be displayed:
// only when a decision is present and its rejected amount is positive.
func (v *DetailView) ShowRejectedAmount() bool {
	return v.HasDecision() && v.Decision.HasRejectedAmount()
}

// RejectedAmount returns the decision's rejected amount, or zero.
func (v *DetailView) RejectedAmount() decimal.Decimal {
	if !v.ShowRejectedAmount() {
		return decimal.Zero
	}
	return *v.Decision.RejectedAmount
}

// DetailFlow loads and holds the detail view of a single claim.
type DetailFlow struct {
	mu sync.Mutex

	api ClaimsAPI
	log *zap.SugaredLogger

	seq     uint64
	claimID string
	state   DetailState
	view    *DetailView
	errMsg  string
}

// NewDetailFlow creates a detail flow in the Loading state
func NewDetailFlow(api ClaimsAPI, opts ...Option) *DetailFlow {
	o := buildOptions(opts)
	return &DetailFlow{
		api:   api,
		log:   o.log,
		state: DetailLoading,
	}
}

// Load fetches the claim and its documents concurrently, then the decision
// when the claim's status calls for one. A failure of the claim or documents
// fetch moves the flow to DetailError; a decision failure is only logged.
// When a newer Load starts before this one finishes, this result is dropped
// and ErrSuperseded is returned.
func (f *DetailFlow) Load(ctx context.Context, claimID string) (*DetailView, error) {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.claimID = claimID
	f.state = DetailLoading
	f.view = nil
	f.errMsg = ""
	f.mu.Unlock()

	var (
		claim *models.Claim
		docs  []models.Document
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := f.api.GetClaim(gctx, claimID)
		if err != nil {
			return err
		}
		claim = c
		return nil
	})
	g.Go(func() error {
		d, err := f.api.GetClaimDocuments(gctx, claimID)
		if err != nil {
			return err
		}
		docs = d
		return nil
	})

	if err := g.Wait(); err != nil {
		msg := client.MessageOf(err, MsgLoadClaimFailed)
		if !f.commit(seq, DetailError, nil, msg) {
			return nil, ErrSuperseded
		}
		f.log.Errorw("Failed to load claim details", "claimID", claimID, "error", err)
		return nil, fmt.Errorf("failed to load claim %s: %w", claimID, err)
	}
	if docs == nil {
		docs = []models.Document{}
	}

	view := &DetailView{Claim: claim, Documents: docs}
	if claim.Status.ExpectsDecision() {
		view.Decision = f.fetchDecision(ctx, claimID)
	}

	if !f.commit(seq, DetailLoaded, view, "") {
		return nil, ErrSuperseded
	}
	return view, nil
}

// fetchDecision never fails; a missing or broken decision renders the view
// without decision details.
func (f *DetailFlow) fetchDecision(ctx context.Context, claimID string) *models.Decision {
	d, err := f.api.GetDecision(ctx, claimID)
	switch {
	case err == nil:
		return d
	case errors.Is(err, client.ErrNotFound):
		f.log.Debugw("Decision not available yet", "claimID", claimID)
	default:
		f.log.Warnw("Failed to load decision", "claimID", claimID, "error", err)
	}
	return nil
}

func (f *DetailFlow) commit(seq uint64, state DetailState, view *DetailView, errMsg string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if seq != f.seq {
		return false
	}
	f.state = state
	f.view = view
	f.errMsg = errMsg
	return true
}

// State returns the current lifecycle state
func (f *DetailFlow) State() DetailState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// View returns the loaded view, or nil unless the state is DetailLoaded
func (f *DetailFlow) View() *DetailView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

// ErrorMessage returns the user-facing error text in the DetailError state
func (f *DetailFlow) ErrorMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errMsg
}

// ClaimID returns the identifier of the most recently requested claim
func (f *DetailFlow) ClaimID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.claimID
}
