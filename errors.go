package livellm

import (
	"fmt"
	"strings"
)

// ModelNotFoundErr is returned when no configured provider exposes the requested model.
// The string value is the model name.
type ModelNotFoundErr string

func (m ModelNotFoundErr) Error() string {
	return fmt.Sprintf("model not found: %s", string(m))
}

// UnsupportedMimeTypeErr is returned when a BinaryMessage carries a MIME type whose media
// type is not image, audio or video. The string value is the offending MIME type.
type UnsupportedMimeTypeErr string

func (u UnsupportedMimeTypeErr) Error() string {
	return fmt.Sprintf("unsupported mime type: %q", string(u))
}

// NoCapableModelErr is returned when a binary message has to be converted to text but no
// configured model has the capability required to read it.
type NoCapableModelErr struct {
	Capability Capability
}

func (n NoCapableModelErr) Error() string {
	return fmt.Sprintf("no model with capability %s found", n.Capability)
}

// AttemptErr records the failure of one candidate in a fallback sequence.
type AttemptErr struct {
	// Model is the model name the attempt was made with
	Model string
	// Provider is the provider identifier of the credentials used
	Provider string
	// Err is the error the attempt failed with
	Err error
}

func (a AttemptErr) Error() string {
	return fmt.Sprintf("%s via %s: %v", a.Model, a.Provider, a.Err)
}

// Unwrap returns the underlying cause of the failed attempt
func (a AttemptErr) Unwrap() error {
	return a.Err
}

// FallbackExhaustedErr is returned when every candidate of a fallback sequence failed.
// Model is the requested model, or "<capability> transform" when the candidates were
// readers of a binary message. Attempts holds one entry per candidate, in the order the
// candidates were tried.
type FallbackExhaustedErr struct {
	Model    string
	Attempts []AttemptErr
}

func (f FallbackExhaustedErr) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "all %d candidates for %s failed", len(f.Attempts), f.Model)
	for i, a := range f.Attempts {
		fmt.Fprintf(&sb, "\n  %d. %s", i+1, a.Error())
	}
	return sb.String()
}

// Unwrap exposes every attempt so errors.Is and errors.As can match a cause of any attempt.
func (f FallbackExhaustedErr) Unwrap() []error {
	errs := make([]error, len(f.Attempts))
	for i, a := range f.Attempts {
		errs[i] = a
	}
	return errs
}

// ApiErr is returned by a Transport when the gateway answers with a non-2xx status.
type ApiErr struct {
	// StatusCode is the HTTP status code
	StatusCode int
	// Type is a short classification of the failure, e.g. "not_found_error"
	Type string
	// Message is the response body as sent by the gateway
	Message string
}

func (a ApiErr) Error() string {
	if a.Type == "" {
		return fmt.Sprintf("api error (status %d): %s", a.StatusCode, a.Message)
	}
	return fmt.Sprintf("api error (status %d, %s): %s", a.StatusCode, a.Type, a.Message)
}

// RateLimitErr is returned by a Transport when the gateway or the provider behind it
// rejects a call because of rate limiting.
type RateLimitErr string

func (r RateLimitErr) Error() string {
	return fmt.Sprintf("rate limit exceeded: %s", string(r))
}

// AuthenticationErr is returned by a Transport when the credentials of a call are rejected.
type AuthenticationErr string

func (a AuthenticationErr) Error() string {
	return fmt.Sprintf("authentication error: %s", string(a))
}
