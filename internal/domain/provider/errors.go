package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// ProviderError is returned by outbound clients. StatusCode is zero for transport failures.
type ProviderError struct {
	Provider   string `json:"provider"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	Details    string `json:"details,omitempty"`
	Err        error  `json:"-"`
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the call may succeed: transport failures, 429 and 5xx.
func (e *ProviderError) Retryable() bool {
	if e.StatusCode == 0 {
		return e.Code != CodeInvalidRequest
	}
	return IsRetryableStatus(e.StatusCode)
}

// IsRetryableStatus classifies an HTTP status from a downstream service.
func IsRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// Codes used in ProviderError.Code.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeTransport      = "TRANSPORT_ERROR"
	CodeTimeout        = "TIMEOUT"
	CodeRejected       = "REJECTED"
	CodeUnavailable    = "UNAVAILABLE"
	CodeParse          = "PARSE_ERROR"
)

// Retryable reports whether err is a retryable ProviderError.
func Retryable(err error) bool {
	pe, ok := AsProviderError(err)
	return ok && pe.Retryable()
}

// AsProviderError unwraps err to a ProviderError.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
