// Package service holds the UI-agnostic claim flows: submission, listing and
// detail. Each flow owns its state behind a mutex and reports user-facing
// outcomes through a Notifier.
package service

import (
	"time"

	"opd-claims/client"
	"opd-claims/logger"

	"go.uber.org/zap"
)

// ClaimsAPI is the backend surface the flows call. *client.Client satisfies it.
type ClaimsAPI = client.API

// Notifier is the capability to emit user-facing toasts. *notify.Queue
// satisfies it.
type Notifier interface {
	Success(message string)
	Error(message string)
	Info(message string)
}

// Navigator moves the front end to another view.
type Navigator interface {
	ShowClaim(claimID string)
}

// NavigatorFunc adapts a plain function to Navigator.
type NavigatorFunc func(claimID string)

// ShowClaim calls f(claimID).
func (f NavigatorFunc) ShowClaim(claimID string) {
	f(claimID)
}

// Scheduler runs f once after d has elapsed.
type Scheduler func(d time.Duration, f func())

func afterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}
func (nopNotifier) Info(string)    {}

// User-facing messages emitted by the flows.
const (
	MsgLoadMembersFailed  = "Failed to load members"
	MsgSubmitInvalid      = "Please fill all fields and upload at least one document"
	MsgSubmitFailed       = "Failed to submit claim"
	MsgLoadClaimsFailed   = "Failed to load claims"
	MsgLoadClaimFailed    = "Failed to load claim details"
	msgSubmittedWithIDFmt = "Claim submitted successfully! ID: %s"
)

// DefaultRedirectDelay is the pause between a successful submission and
// navigation to the new claim.
const DefaultRedirectDelay = 1500 * time.Millisecond

type options struct {
	notifier      Notifier
	navigator     Navigator
	redirectDelay time.Duration
	schedule      Scheduler
	log           *zap.SugaredLogger
}

// Option configures a flow. Options that do not apply to a flow are ignored.
type Option func(*options)

// WithNotifier sets where toasts go
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithNavigator sets the navigator used after a successful submission
func WithNavigator(n Navigator) Option {
	return func(o *options) {
		o.navigator = n
	}
}

// WithRedirectDelay sets the pause between success and navigation
func WithRedirectDelay(d time.Duration) Option {
	return func(o *options) {
		o.redirectDelay = d
	}
}

// WithScheduler overrides how delayed navigation is scheduled
func WithScheduler(s Scheduler) Option {
	return func(o *options) {
		o.schedule = s
	}
}

// WithLogger sets the flow logger
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

func buildOptions(opts []Option) options {
	o := options{
		notifier:      nopNotifier{},
		redirectDelay: DefaultRedirectDelay,
		schedule:      afterFunc,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.notifier == nil {
		o.notifier = nopNotifier{}
	}
	if o.log == nil {
		o.log = logger.GetLogger()
	}
	return o
}
