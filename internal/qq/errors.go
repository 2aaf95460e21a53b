package qq

import (
	"errors"
	"fmt"
)

// CodeLoggedInElsewhere is the retcode the service returns when the account
// is already online in another web client.
const CodeLoggedInElsewhere = 103

// ErrNotLoggedIn is returned by session-bound calls made before Login has
// completed.
var ErrNotLoggedIn = errors.New("qq: session not established")

// TransportError reports a call that did not produce an HTTP 200. StatusCode
// is zero when the request failed before a response arrived.
type TransportError struct {
	StatusCode int
	URL        string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("qq: request %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("qq: request %s returned HTTP %d", e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports a response whose shape did not match what the call
// expects: invalid JSON, a missing retcode, or a missing required field.
type ProtocolError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("qq: %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("qq: %s: %s", e.Op, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ApiError is a well-formed envelope whose retcode (or errCode) is non-zero.
// Callers can use errors.As to get at the code:
//
//	var apiErr *ApiError
//	if errors.As(err, &apiErr) && apiErr.Code == CodeLoggedInElsewhere { ... }
type ApiError struct {
	Code int
	Op   string
}

func (e *ApiError) Error() string {
	if e.Code == CodeLoggedInElsewhere {
		return fmt.Sprintf("qq: %s: retcode %d: account is logged in elsewhere, log out of w.qq.com", e.Op, e.Code)
	}
	return fmt.Sprintf("qq: %s: retcode %d", e.Op, e.Code)
}

// IsApiError checks whether err is an *ApiError with the given code.
func IsApiError(err error, code int) bool {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// IsLoggedInElsewhere reports whether err carries retcode 103.
func IsLoggedInElsewhere(err error) bool {
	return IsApiError(err, CodeLoggedInElsewhere)
}

func protocolError(op, reason string, err error) error {
	return &ProtocolError{Op: op, Reason: reason, Err: err}
}
