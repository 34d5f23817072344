// If you are AI: This file defines MMS error sentinels and the classified Error type.

package mms

import (
	"errors"
	"fmt"
)

var (
	ErrPollTimeout       = errors.New("poll timeout")
	ErrBadMagic          = errors.New("bad command magic")
	ErrTruncatedCommand  = errors.New("truncated command")
	ErrMalformedPacket   = errors.New("malformed data packet")
	ErrServerClosed      = errors.New("socket closed by server")
	ErrEndOfStream       = errors.New("end of stream")
	ErrReinitRequired    = errors.New("server requested reinitialisation")
	ErrRetryExhausted    = errors.New("retry bound exceeded")
	ErrUnexpectedCommand = errors.New("unexpected command")
	ErrSessionEOF        = errors.New("session at end of stream")
	ErrInvalidURL        = errors.New("invalid mms url")
)

// ErrorKind classifies how a session reacts to an error.
type ErrorKind int

const (
	// KindTransient errors are logged and the receive loop retries.
	KindTransient ErrorKind = iota
	// KindMismatch is a reply id other than the awaited one.
	KindMismatch
	// KindFatal marks the session at EOF.
	KindFatal
	// KindRejected is a server refusal of the media path or credentials.
	KindRejected
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindMismatch:
		return "mismatch"
	case KindFatal:
		return "fatal"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Error is a classified protocol error.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("mms %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsFatal reports whether the session can no longer be used.
func (e *Error) IsFatal() bool {
	return e.Kind == KindFatal || e.Kind == KindRejected
}

// newError wraps err with a kind and operation name.
func newError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Fatal wraps err as a fatal error for op.
func Fatal(op string, err error) error {
	return newError(KindFatal, op, err)
}

// Rejected wraps err as a server rejection for op.
func Rejected(op string, err error) error {
	return newError(KindRejected, op, err)
}

// IsFatal reports whether err, or any error it wraps, is a fatal *Error.
func IsFatal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.IsFatal()
	}
	return false
}

// KindOf returns the classification of err. Unclassified errors are fatal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFatal
}
