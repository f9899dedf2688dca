// Package atierr defines the error kinds atilink's link engine and session
// orchestrator propagate, mirroring the original commons::error::Error enum
// one variant at a time so callers can branch on kind rather than text.
package atierr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error categories described in spec.md §7.
type Kind int

const (
	// InvalidAddress means a socket string did not parse.
	InvalidAddress Kind = iota
	// InvalidArgument means a CLI or config value was rejected.
	InvalidArgument
	// IO wraps any OS I/O failure.
	IO
	// Deserialize means a message failed to decode.
	Deserialize
	// ConnectionFailed means a transport-level connect failed.
	ConnectionFailed
	// IntegrityError means a checksum was absent, invalid, mismatched, or a
	// checksum frame was zero-length.
	IntegrityError
	// DownloadError wraps a Result::Err message received by a pull client.
	DownloadError
	// InvalidRequest means a path violated the relative-containment invariant.
	InvalidRequest
)

func (k Kind) String() string {
	switch k {
	case InvalidAddress:
		return "invalid address"
	case InvalidArgument:
		return "invalid argument"
	case IO:
		return "io error"
	case Deserialize:
		return "deserialize error"
	case ConnectionFailed:
		return "connection failed"
	case IntegrityError:
		return "integrity error"
	case DownloadError:
		return "download error"
	case InvalidRequest:
		return "invalid request"
	default:
		return "unknown error"
	}
}

// Error is the single error type atilink raises. Kind lets callers decide
// propagation policy (spec.md §7); Err carries the underlying cause, if any.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg == "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Err)
		}
		return e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, atierr.New(atierr.IntegrityError)) style kind
// checks work by comparing against a bare Kind value wrapped in an *Error.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

func newf(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// New builds a bare, causeless error of the given kind for use as an
// errors.Is/errors.As comparison target.
func New(k Kind) *Error { return &Error{Kind: k} }

// Wrap builds an error of the given kind around an existing cause.
func Wrap(k Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, Err: err}
}

// InvalidAddressf builds an InvalidAddress error.
func InvalidAddressf(format string, args ...interface{}) *Error {
	return newf(InvalidAddress, format, args...)
}

// InvalidArgumentf builds an InvalidArgument error.
func InvalidArgumentf(format string, args ...interface{}) *Error {
	return newf(InvalidArgument, format, args...)
}

// IOf wraps an I/O failure with added context.
func IOf(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: IO, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Deserializef builds a Deserialize error.
func Deserializef(format string, args ...interface{}) *Error {
	return newf(Deserialize, format, args...)
}

// ConnectionFailedf builds a ConnectionFailed error.
func ConnectionFailedf(format string, args ...interface{}) *Error {
	return newf(ConnectionFailed, format, args...)
}

// IntegrityErrorf builds an IntegrityError.
func IntegrityErrorf(format string, args ...interface{}) *Error {
	return newf(IntegrityError, format, args...)
}

// DownloadErrorf builds a DownloadError.
func DownloadErrorf(format string, args ...interface{}) *Error {
	return newf(DownloadError, format, args...)
}

// InvalidRequestf builds an InvalidRequest error.
func InvalidRequestf(format string, args ...interface{}) *Error {
	return newf(InvalidRequest, format, args...)
}

// IsKind reports whether err is, or wraps, an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == k
}
