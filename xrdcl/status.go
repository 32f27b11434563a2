// Package xrdcl implements the per-connection asynchronous socket core of
// an XRootD-style client: the state machine that drives a single TCP (and
// optionally TLS) connection through its handshake and then multiplexes
// request/response traffic with a Stream owner.
package xrdcl

import (
	"errors"
	"fmt"
)

// StatusCode classifies a Status. Codes with Fatal()==true always route
// through a connection's OnFault callback; the rest are surfaced to the
// Stream for it to decide on.
type StatusCode uint8

const (
	StatusOK StatusCode = iota
	StatusPollerError
	StatusConnectError
	StatusConnectTimeout
	StatusSocketError
	StatusTLSError
	StatusHandshakeError
	StatusHeaderCorrupted
	StatusReadTimeout
	StatusWriteTimeout
	StatusIllegalTransition
)

func (c StatusCode) String() string {
	switch c {
	case StatusOK:
		return "ok"
	case StatusPollerError:
		return "poller-error"
	case StatusConnectError:
		return "connect-error"
	case StatusConnectTimeout:
		return "connect-timeout"
	case StatusSocketError:
		return "socket-error"
	case StatusTLSError:
		return "tls-error"
	case StatusHandshakeError:
		return "handshake-error"
	case StatusHeaderCorrupted:
		return "header-corrupted"
	case StatusReadTimeout:
		return "read-timeout"
	case StatusWriteTimeout:
		return "write-timeout"
	case StatusIllegalTransition:
		return "illegal-transition"
	default:
		return "unknown-status"
	}
}

// Status is the error currency of the package. It wraps an optional
// underlying cause so callers can still errors.Is/errors.As through to the
// originating net.Error, tls error, etc.
type Status struct {
	Code    StatusCode
	Message string
	Cause   error
}

// Ok reports whether the status represents success.
func (s Status) Ok() bool { return s.Code == StatusOK }

// Fatal reports whether this status kind always routes through OnFault.
// ReadTimeout and WriteTimeout are the two kinds the Stream decides on;
// everything else (including OK, which is never "fatal" but also never
// routed to OnFault) is handled by the caller directly.
func (s Status) Fatal() bool {
	switch s.Code {
	case StatusReadTimeout, StatusWriteTimeout, StatusOK:
		return false
	default:
		return true
	}
}

func (s Status) Error() string {
	if s.Message == "" && s.Cause == nil {
		return s.Code.String()
	}
	if s.Cause == nil {
		return fmt.Sprintf("%s: %s", s.Code, s.Message)
	}
	if s.Message == "" {
		return fmt.Sprintf("%s: %v", s.Code, s.Cause)
	}
	return fmt.Sprintf("%s: %s: %v", s.Code, s.Message, s.Cause)
}

// Unwrap lets errors.Is/errors.As see through to Cause, and also matches
// against the StatusCode sentinels below via errors.Is(status, ErrXxx).
func (s Status) Unwrap() error { return s.Cause }

// Is implements the errors.Is contract against the sentinel Err* values
// declared below, comparing by StatusCode rather than identity.
func (s Status) Is(target error) bool {
	var other Status
	if errors.As(target, &other) {
		return s.Code == other.Code
	}
	return false
}

// NewStatus builds a Status, optionally wrapping cause.
func NewStatus(code StatusCode, message string, cause error) Status {
	return Status{Code: code, Message: message, Cause: cause}
}

func newStatusf(code StatusCode, cause error, format string, args ...any) Status {
	return Status{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// OKStatus is the sentinel zero-value success status.
var OKStatus = Status{Code: StatusOK}

// Sentinel statuses for use with errors.Is(err, xrdcl.ErrConnectTimeout),
// mirroring spec.md's abstract error kinds one-for-one.
var (
	ErrPollerError       = Status{Code: StatusPollerError}
	ErrConnectError      = Status{Code: StatusConnectError}
	ErrConnectTimeout    = Status{Code: StatusConnectTimeout}
	ErrSocketError       = Status{Code: StatusSocketError}
	ErrTLSError          = Status{Code: StatusTLSError}
	ErrHandshakeError    = Status{Code: StatusHandshakeError}
	ErrHeaderCorrupted   = Status{Code: StatusHeaderCorrupted}
	ErrReadTimeout       = Status{Code: StatusReadTimeout}
	ErrWriteTimeout      = Status{Code: StatusWriteTimeout}
	ErrIllegalTransition = Status{Code: StatusIllegalTransition}
)
