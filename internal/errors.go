package internal

import "fmt"

// ValidationError reports a malformed query. It is never retried.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string { return e.Message }

func Invalid(code, msg string) *ValidationError {
	return &ValidationError{Code: code, Message: msg}
}

// UpstreamError reports that a provider could not be reached or answered
// with garbage. Unwrap exposes the underlying cause, so circuit-breaker
// rejections stay distinguishable via errors.Is.
type UpstreamError struct {
	Provider ProviderIdentity
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
