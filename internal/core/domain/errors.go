package domain

import (
	"errors"
	"fmt"
)

// DomainError is a classified failure with a code of the form
// IR-<AREA>-<NNNN>.
type DomainError struct {
	Code    string
	Message string
	Details string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches any DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError reports whether err wraps a DomainError. An empty code
// matches any DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	return errors.As(err, &de) && (code == "" || de.Code == code)
}

// ============================================================================
// Gateway Errors (GW)
// ============================================================================

var (
	// ErrGatewayRefused indicates the messaging endpoint understood the
	// command and rejected it.
	ErrGatewayRefused = NewDomainError("IR-GW-4000", "command refused by messaging endpoint")

	// ErrGatewayProtocol indicates the endpoint answered something that does
	// not follow its API protocol.
	ErrGatewayProtocol = NewDomainError("IR-GW-5020", "messaging endpoint protocol violation")

	// ErrGatewayUnreachable indicates the endpoint could not be reached or
	// did not answer in time.
	ErrGatewayUnreachable = NewDomainError("IR-GW-5030", "messaging endpoint unreachable")
)

// GatewayErrorKind names the class of a gateway error for logs and metrics.
// It returns "" for errors that are not gateway errors.
func GatewayErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrGatewayRefused):
		return "refused"
	case errors.Is(err, ErrGatewayUnreachable):
		return "unreachable"
	case errors.Is(err, ErrGatewayProtocol):
		return "protocol"
	default:
		return ""
	}
}

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrAuthFailed indicates the username or password check failed.
	ErrAuthFailed = NewDomainError("IR-AUTH-4010", "username and/or password wrong")

	// ErrHandshakeMalformed indicates a handshake line did not have the
	// expected "<KEYWORD> <value>" form.
	ErrHandshakeMalformed = NewDomainError("IR-AUTH-4000", "malformed handshake line")

	// ErrHandshakeTimeout indicates the client did not finish the handshake in time.
	ErrHandshakeTimeout = NewDomainError("IR-AUTH-4080", "handshake timed out")
)

// ============================================================================
// Session Errors (SESS)
// ============================================================================

var (
	// ErrLineTooLong indicates an inbound line exceeded the configured limit.
	ErrLineTooLong = NewDomainError("IR-SESS-4130", "line too long")

	// ErrSessionNotFound indicates no session matches the request.
	ErrSessionNotFound = NewDomainError("IR-SESS-4040", "session not found")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternal indicates an unexpected internal failure.
	ErrInternal = NewDomainError("IR-SYS-5000", "internal error")

	// ErrRateLimited indicates too many handshake attempts.
	ErrRateLimited = NewDomainError("IR-SYS-4290", "too many requests")

	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("IR-ARG-1001", "invalid argument")
)
