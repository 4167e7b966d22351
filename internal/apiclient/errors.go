package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ConnectivityFailure means no response arrived from the API at all.
type ConnectivityFailure struct {
	Op  string
	Err error
}

func (e *ConnectivityFailure) Error() string {
	return fmt.Sprintf("%s: api unreachable: %v", e.Op, e.Err)
}

func (e *ConnectivityFailure) Unwrap() error { return e.Err }

// ErrSessionExpired is returned for a 401 on a request that carried a
// session token. The session has already been cleared when it is returned.
var ErrSessionExpired = errors.New("session expired")

// ErrAuthRequired is returned before any request is sent when an operation
// needs a session token and none is bound to the context.
var ErrAuthRequired = errors.New("authorization required")

// RequestFailure is any other non-2xx answer, or a 2xx answer whose body
// reports success=false.
type RequestFailure struct {
	Op      string
	Status  int
	Message string
}

func (e *RequestFailure) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
}

// ValidationFailure blocks an operation before any request is sent. Reason
// is a user-facing message key.
type ValidationFailure struct {
	Field  string
	Reason string
}

func (e *ValidationFailure) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// Message picks the text to show for err: the server's message when one was
// sent, the connectivity text when the API was unreachable, and fallback
// otherwise.
func Message(err error, connectivity, fallback string) string {
	var rf *RequestFailure
	if errors.As(err, &rf) && rf.Message != "" {
		return rf.Message
	}
	var cf *ConnectivityFailure
	if errors.As(err, &cf) {
		return connectivity
	}
	return fallback
}

// IsAuthFailure reports whether err means the visitor must sign in again.
func IsAuthFailure(err error) bool {
	if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrAuthRequired) {
		return true
	}
	var rf *RequestFailure
	return errors.As(err, &rf) && (rf.Status == http.StatusUnauthorized || rf.Status == http.StatusForbidden)
}
