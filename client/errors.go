package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is matched by any RemoteError carrying a 404 status. The
// decision endpoint answers 404 until a claim has been adjudicated.
var ErrNotFound = errors.New("not found")

// RemoteError is returned for every non-2xx response from the claims API.
type RemoteError struct {
	StatusCode int
	// Detail is the human readable "detail" field of the error body, if any.
	Detail string
	Method string
	Path   string
}

func (e *RemoteError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *RemoteError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// DetailOf returns the backend-provided detail text carried by err, or "".
func DetailOf(err error) string {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Detail
	}
	return ""
}

// MessageOf returns the backend detail text when present and fallback
// otherwise.
func MessageOf(err error, fallback string) string {
	if d := DetailOf(err); d != "" {
		return d
	}
	return fallback
}
