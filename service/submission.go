package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"opd-claims/client"
	"opd-claims/models"
	"opd-claims/upload"

	"go.uber.org/zap"
)

// SubmissionState is the lifecycle state of the submission form.
type SubmissionState int

const (
	SubmissionIdle SubmissionState = iota
	SubmissionLoadingMembers
	SubmissionReady
	SubmissionSubmitting
	SubmissionRedirecting
)

func (s SubmissionState) String() string {
	switch s {
	case SubmissionIdle:
		return "Idle"
	case SubmissionLoadingMembers:
		return "LoadingMembers"
	case SubmissionReady:
		return "ReadyToSubmit"
	case SubmissionSubmitting:
		return "Submitting"
	case SubmissionRedirecting:
		return "SubmittedRedirecting"
	default:
		return fmt.Sprintf("SubmissionState(%d)", int(s))
	}
}

// SubmissionForm is a snapshot of the user-entered fields.
type SubmissionForm struct {
	MemberID      string
	TreatmentDate string
	Files         []upload.File
}

// SubmissionFlow drives the claim submission form.
type SubmissionFlow struct {
	mu sync.Mutex

	api           ClaimsAPI
	notifier      Notifier
	navigator     Navigator
	redirectDelay time.Duration
	schedule      Scheduler
	log           *zap.SugaredLogger

	state         SubmissionState
	members       []models.Member
	memberID      string
	treatmentDate string
	buffer        *upload.Buffer
}

// NewSubmissionFlow creates a submission flow in the Idle state
func NewSubmissionFlow(api ClaimsAPI, opts ...Option) *SubmissionFlow {
	o := buildOptions(opts)
	return &SubmissionFlow{
		api:           api,
		notifier:      o.notifier,
		navigator:     o.navigator,
		redirectDelay: o.redirectDelay,
		schedule:      o.schedule,
		log:           o.log,
		buffer:        upload.NewBuffer(),
	}
}

// Enter loads the member list. A failure leaves the list empty and the form
// usable.
func (f *SubmissionFlow) Enter(ctx context.Context) error {
	f.mu.Lock()
	f.state = SubmissionLoadingMembers
	f.mu.Unlock()

	members, err := f.api.ListMembers(ctx)

	f.mu.Lock()
	if err != nil {
		f.members = nil
	} else {
		f.members = members
	}
	f.state = SubmissionReady
	f.mu.Unlock()

	if err != nil {
		f.log.Errorw("Failed to load members", "error", err)
		f.notifier.Error(MsgLoadMembersFailed)
		return fmt.Errorf("failed to load members: %w", err)
	}
	return nil
}

// SetMemberID selects the member the claim is for
func (f *SubmissionFlow) SetMemberID(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberID = id
}

// SetTreatmentDate sets the treatment date (YYYY-MM-DD)
func (f *SubmissionFlow) SetTreatmentDate(date string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.treatmentDate = date
}

// Buffer returns the file selection buffer backing the form
func (f *SubmissionFlow) Buffer() *upload.Buffer {
	return f.buffer
}

// Members returns the members available for selection
func (f *SubmissionFlow) Members() []models.Member {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Member, len(f.members))
	copy(out, f.members)
	return out
}

// State returns the current lifecycle state
func (f *SubmissionFlow) State() SubmissionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Form returns a snapshot of the entered fields and buffered files
func (f *SubmissionFlow) Form() SubmissionForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return SubmissionForm{
		MemberID:      f.memberID,
		TreatmentDate: f.treatmentDate,
		Files:         f.buffer.Files(),
	}
}

// Submit validates the form and sends the claim. On success the form is
// cleared and navigation to the new claim is scheduled after the redirect
// delay. The flow then stays in SubmissionRedirecting until the next Enter.
func (f *SubmissionFlow) Submit(ctx context.Context) (*models.SubmitResponse, error) {
	f.mu.Lock()
	if f.state == SubmissionSubmitting {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	form := SubmissionForm{
		MemberID:      f.memberID,
		TreatmentDate: f.treatmentDate,
		Files:         f.buffer.Files(),
	}
	if form.MemberID == "" || form.TreatmentDate == "" || len(form.Files) == 0 {
		f.mu.Unlock()
		f.notifier.Error(MsgSubmitInvalid)
		return nil, &ValidationError{Message: MsgSubmitInvalid}
	}
	f.state = SubmissionSubmitting
	f.mu.Unlock()

	f.log.Infow("Submitting claim", "memberID", form.MemberID, "treatmentDate", form.TreatmentDate, "files", len(form.Files))
	resp, err := f.api.SubmitClaim(ctx, client.SubmitClaimRequest{
		MemberID:      form.MemberID,
		TreatmentDate: form.TreatmentDate,
		Files:         form.Files,
	})
	if err != nil {
		f.mu.Lock()
		f.state = SubmissionReady
		f.mu.Unlock()

		f.log.Errorw("Failed to submit claim", "memberID", form.MemberID, "error", err)
		f.notifier.Error(client.MessageOf(err, MsgSubmitFailed))
		return nil, fmt.Errorf("failed to submit claim: %w", err)
	}
	if resp == nil {
		f.mu.Lock()
		f.state = SubmissionReady
		f.mu.Unlock()
		f.notifier.Error(MsgSubmitFailed)
		return nil, errors.New("empty submit response")
	}

	f.mu.Lock()
	f.memberID = ""
	f.treatmentDate = ""
	f.buffer.Clear()
	f.state = SubmissionRedirecting
	f.mu.Unlock()

	f.log.Infow("Claim submitted", "claimID", resp.ClaimID, "status", resp.Status)
	f.notifier.Success(fmt.Sprintf(msgSubmittedWithIDFmt, resp.ClaimID))

	claimID := resp.ClaimID
	f.schedule(f.redirectDelay, func() {
		if f.navigator != nil {
			f.navigator.ShowClaim(claimID)
		}
	})

	return resp, nil
}
