package routing

import (
	"errors"
	"fmt"
)

// ErrorKind classifies routing failures.
type ErrorKind int

const (
	// KindInvalidInput is a request rejected before anything was sent.
	KindInvalidInput ErrorKind = iota + 1
	// KindTransportError covers connection failures, timeouts and cancellation.
	KindTransportError
	// KindServiceError is a non-200 answer from the directions service.
	KindServiceError
	// KindParseError is a 200 answer whose body is not a complete route.
	KindParseError
)

// String returns the snake_case name used in logs and API responses.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindTransportError:
		return "transport_error"
	case KindServiceError:
		return "service_error"
	case KindParseError:
		return "parse_error"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks against the kind of an *Error.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrTransport    = errors.New("transport error")
	ErrService      = errors.New("service error")
	ErrParse        = errors.New("parse error")
)

// Error is returned by every failing Client call. StatusCode is only set
// for KindServiceError.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidInput:
		return e.Kind == KindInvalidInput
	case ErrTransport:
		return e.Kind == KindTransportError
	case ErrService:
		return e.Kind == KindServiceError
	case ErrParse:
		return e.Kind == KindParseError
	}
	return false
}

// KindOf returns the kind of a routing error, or 0 if err is not one.
func KindOf(err error) ErrorKind {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	return 0
}

func invalidInput(msg string, err error) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg, Err: err}
}

func transportError(msg string, err error) *Error {
	return &Error{Kind: KindTransportError, Message: msg, Err: err}
}

func serviceError(status int, msg string) *Error {
	return &Error{Kind: KindServiceError, StatusCode: status, Message: msg}
}

func parseError(err error) *Error {
	return &Error{Kind: KindParseError, Message: "malformed directions response", Err: err}
}
