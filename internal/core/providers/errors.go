package providers

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrCapabilityDisabled is returned by gated operations when the provider
// does not declare the matching capability. No network request is issued.
// Callers are expected to treat it as "skip", not as a failure.
var ErrCapabilityDisabled = errors.New("capability disabled for provider")

// TransportError reports a network or HTTP-layer failure, carrying the
// backend identity and status for user-visible reporting.
type TransportError struct {
	Provider string
	Status   int
	Message  string
}

func (e *TransportError) Error() string {
	switch e.Status {
	case http.StatusUnauthorized:
		return fmt.Sprintf("provider %s: unauthorized: %s", e.Provider, e.Message)
	case http.StatusTooManyRequests:
		return fmt.Sprintf("provider %s: rate limit exceeded: %s", e.Provider, e.Message)
	case http.StatusBadRequest:
		return fmt.Sprintf("provider %s: bad request: %s", e.Provider, e.Message)
	case 0:
		return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
	default:
		return fmt.Sprintf("provider %s: HTTP %d: %s", e.Provider, e.Status, e.Message)
	}
}

// ExtractionError reports a response that did not contain the path
// declared in the response rule. Snippet holds a truncated piece of the
// actual response for diagnosis.
type ExtractionError struct {
	Path    string
	Snippet string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("response missing path %q (body: %s)", e.Path, e.Snippet)
}

// SessionCreationError reports a create_session call whose response could
// not be extracted even though the capability is declared.
type SessionCreationError struct {
	Provider string
	Err      error
}

func (e *SessionCreationError) Error() string {
	return fmt.Sprintf("provider %s: session creation failed: %v", e.Provider, e.Err)
}

func (e *SessionCreationError) Unwrap() error { return e.Err }

// MissingUserFieldError reports a declared user field with no stored
// value. The calling layer uses Prompt to collect it from the user.
type MissingUserFieldError struct {
	Provider string
	Field    string
	Prompt   string
	Scope    string
}

func (e *MissingUserFieldError) Error() string {
	return fmt.Sprintf("missing user field %s for provider %s", e.Field, e.Provider)
}

// UnknownUserFieldError reports a template referencing a user field the
// provider never declared.
type UnknownUserFieldError struct {
	Provider string
	Field    string
}

func (e *UnknownUserFieldError) Error() string {
	return fmt.Sprintf("unknown user field %q for provider %s", e.Field, e.Provider)
}
