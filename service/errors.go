package service

import "errors"

var (
	// ErrBusy is returned when Submit is called while a submission is in flight.
	ErrBusy = errors.New("submission already in progress")
	// ErrSuperseded is returned by a detail load whose result was discarded
	// because a newer load started.
	ErrSuperseded = errors.New("load superseded by a newer request")
)

// ValidationError reports a form that failed the pre-flight check. It never
// reaches the network.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
