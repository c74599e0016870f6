package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"opd-claims/client"
	"opd-claims/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ListingState is the lifecycle state of the claims dashboard.
type ListingState int

const (
	ListingLoading ListingState = iota
	ListingLoaded
)

func (s ListingState) String() string {
	if s == ListingLoading {
		return "Loading"
	}
	return "Loaded"
}

// Filter selects which claims are visible on the dashboard. FilterAll shows
// everything; any other value is matched against the claim status exactly.
type Filter string

// FilterAll disables status filtering
const FilterAll Filter = "ALL"

// Filters lists the filter choices offered to the user, in display order.
var Filters = []Filter{
	FilterAll,
	Filter(models.StatusProcessing),
	Filter(models.StatusApproved),
	Filter(models.StatusRejected),
	Filter(models.StatusPartial),
	Filter(models.StatusManualReview),
}

// ParseFilter converts user input (case-insensitive) into a Filter. An empty
// string means FilterAll.
func ParseFilter(s string) (Filter, error) {
	v := Filter(strings.ToUpper(strings.TrimSpace(s)))
	if v == "" {
		return FilterAll, nil
	}
	for _, f := range Filters {
		if f == v {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown status filter %q", s)
}

// Stats summarizes the unfiltered claim list.
type Stats struct {
	Total         int
	Approved      int
	Rejected      int
	Pending       int
	TotalApproved decimal.Decimal
}

// ComputeStats derives dashboard statistics. Pending counts PENDING and
// PROCESSING claims; TotalApproved sums approved amounts of APPROVED claims
// only, treating null as zero.
func ComputeStats(claims []models.Claim) Stats {
	st := Stats{Total: len(claims), TotalApproved: decimal.Zero}
	for i := range claims {
		c := &claims[i]
		switch {
		case c.Status == models.StatusApproved:
			st.Approved++
			st.TotalApproved = st.TotalApproved.Add(c.ApprovedOrZero())
		case c.Status == models.StatusRejected:
			st.Rejected++
		case c.Status.IsInFlight():
			st.Pending++
		}
	}
	return st
}

// FilterClaims returns the claims matching f, preserving order.
func FilterClaims(claims []models.Claim, f Filter) []models.Claim {
	if f == FilterAll || f == "" {
		out := make([]models.Claim, len(claims))
		copy(out, claims)
		return out
	}
	out := make([]models.Claim, 0, len(claims))
	for _, c := range claims {
		if Filter(c.Status) == f {
			out = append(out, c)
		}
	}
	return out
}

// EmptyState is what the dashboard shows when no claim is visible.
type EmptyState struct {
	Title string
	Hint  string
	// ShowSubmit offers a call to action for submitting a first claim.
	ShowSubmit bool
}

// ListingFlow drives the claims dashboard.
type ListingFlow struct {
	mu sync.Mutex

	api      ClaimsAPI
	notifier Notifier
	log      *zap.SugaredLogger

	state   ListingState
	claims  []models.Claim
	filter  Filter
	visible []models.Claim
	stats   Stats
}

// NewListingFlow creates a listing flow in the Loading state with FilterAll
func NewListingFlow(api ClaimsAPI, opts ...Option) *ListingFlow {
	o := buildOptions(opts)
	return &ListingFlow{
		api:      api,
		notifier: o.notifier,
		log:      o.log,
		state:    ListingLoading,
		filter:   FilterAll,
		stats:    Stats{TotalApproved: decimal.Zero},
	}
}

// Load fetches every claim. The backend is asked without filters; status
// filtering happens locally.
func (f *ListingFlow) Load(ctx context.Context) error {
	f.mu.Lock()
	f.state = ListingLoading
	f.mu.Unlock()

	claims, err := f.api.ListClaims(ctx, client.ListClaimsParams{})

	// A failed reload keeps the claims of the last successful one.
	f.mu.Lock()
	if err == nil {
		f.claims = claims
		f.recompute()
	}
	f.state = ListingLoaded
	f.mu.Unlock()

	if err != nil {
		f.log.Errorw("Failed to load claims", "error", err)
		f.notifier.Error(client.MessageOf(err, MsgLoadClaimsFailed))
		return fmt.Errorf("failed to load claims: %w", err)
	}
	f.log.Debugw("Claims loaded", "count", len(claims))
	return nil
}

// SetFilter changes the visible subset. No request is made.
func (f *ListingFlow) SetFilter(filter Filter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if filter == "" {
		filter = FilterAll
	}
	f.filter = filter
	f.visible = FilterClaims(f.claims, f.filter)
}

// Filter returns the active filter
func (f *ListingFlow) Filter() Filter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter
}

// State returns the current lifecycle state
func (f *ListingFlow) State() ListingState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Claims returns the full, unfiltered list
func (f *ListingFlow) Claims() []models.Claim {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Claim, len(f.claims))
	copy(out, f.claims)
	return out
}

// Visible returns the claims matching the active filter
func (f *ListingFlow) Visible() []models.Claim {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Claim, len(f.visible))
	copy(out, f.visible)
	return out
}

// Stats returns statistics over the unfiltered list
func (f *ListingFlow) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

// Empty returns the empty-state presentation, or nil when at least one claim
// is visible.
func (f *ListingFlow) Empty() *EmptyState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.visible) > 0 {
		return nil
	}
	if f.filter == FilterAll {
		return &EmptyState{
			Title:      "No claims found",
			Hint:       "Start by submitting your first claim",
			ShowSubmit: true,
		}
	}
	return &EmptyState{
		Title: "No claims found",
		Hint:  fmt.Sprintf("No %s claims", f.filter),
	}
}

// recompute must be called with f.mu held.
func (f *ListingFlow) recompute() {
	f.stats = ComputeStats(f.claims)
	f.visible = FilterClaims(f.claims, f.filter)
}
