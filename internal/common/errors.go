package common

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
)

// Kind classifies an Error for translation into a protocol response.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindUnauthorized
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Status maps the kind onto an HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is the structured domain error returned by services. Message is safe
// to show to clients; Err carries the internal cause and is never rendered.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code for the error.
func (e *Error) Status() int { return e.Kind.Status() }

// Is lets errors.Is match on kind against ErrorUnauthorized and ErrorInternal.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrorUnauthorized:
		return e.Kind == KindUnauthorized
	case ErrorInternal:
		return e.Kind == KindInternal
	}
	return false
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *Error { return newError(KindValidation, msg, nil) }

func Conflict(msg string) *Error { return newError(KindConflict, msg, nil) }

func NotFound(msg string) *Error { return newError(KindNotFound, msg, nil) }

func Unauthorized(msg string) *Error { return newError(KindUnauthorized, msg, nil) }

func Upstream(msg string, err error) *Error { return newError(KindUpstream, msg, err) }

func Internal(msg string, err error) *Error { return newError(KindInternal, msg, err) }

// KindOf reports the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
