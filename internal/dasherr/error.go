package dasherr

import (
	"errors"
	"fmt"
)

// Kinds of poll failures. Use errors.Is to tell them apart.
var (
	ErrNetwork    = errors.New("network error")
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	ErrDecode     = errors.New("decode error")
)

// Error is the error type returned by the fetch and decode layers.
//
// Please use errors.Is or errors.Unwrap if you want to know what kind of error is it.
type Error struct {
	kind    error
	from    error
	message string
}

// New creates a new Error.
func New(kind error, from error, format string, args ...interface{}) Error {
	msg := fmt.Sprintf(format, args...)
	if from != nil {
		if msg != "" {
			msg += ": "
		}
		msg += from.Error()
	}

	return Error{
		kind:    kind,
		from:    from,
		message: msg,
	}
}

// Error implements error interface.
func (e Error) Error() string {
	return e.message
}

// Unwrap implement for errors.Unwrap.
func (e Error) Unwrap() error {
	return e.from
}

// Is implement for errors.Is.
func (e Error) Is(err error) bool {
	return e.kind == err
}

// Kind returns the kind of err, or nil if err is not an Error.
func Kind(err error) error {
	var e Error
	if errors.As(err, &e) {
		return e.kind
	}
	return nil
}
