// Package errs defines the error taxonomy shared by every annet component.
//
// Each failure carries a Kind so the presentation layer can branch on it:
//
//	if errors.Is(err, errs.ErrDimensionMismatch) { ... }
//
//	var e *errs.Error
//	if errors.As(err, &e) && e.Kind == errs.KindIO { ... }
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

// Error kinds.
const (
	KindConfiguration Kind = iota + 1
	KindDimensionMismatch
	KindIO
	KindDevice
	KindNumericInstability
)

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrConfiguration      = errors.New("configuration error")
	ErrDimensionMismatch  = errors.New("dimension mismatch")
	ErrIO                 = errors.New("io error")
	ErrDevice             = errors.New("device error")
	ErrNumericInstability = errors.New("numeric instability")

	// ErrMissingTrainingData is wrapped in a configuration error when a
	// trainer runs without an attached training set.
	ErrMissingTrainingData = errors.New("missing training data")
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindDimensionMismatch:
		return "dimension_mismatch"
	case KindIO:
		return "io"
	case KindDevice:
		return "device"
	case KindNumericInstability:
		return "numeric_instability"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindDimensionMismatch:
		return ErrDimensionMismatch
	case KindIO:
		return ErrIO
	case KindDevice:
		return ErrDevice
	case KindNumericInstability:
		return ErrNumericInstability
	default:
		return nil
	}
}

// Error is a classified failure.
type Error struct {
	Kind    Kind   // Failure class
	Op      string // Operation that failed (e.g., "nn.PropagateForward")
	Details string // Human readable context
	Err     error  // Underlying cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// New returns an *Error of the given kind.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Details: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. It returns nil when err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Configuration returns a configuration error.
func Configuration(op, format string, args ...any) *Error {
	return New(KindConfiguration, op, format, args...)
}

// DimensionMismatch returns a dimension mismatch error reporting both sizes.
func DimensionMismatch(op, what string, want, got int) *Error {
	return New(KindDimensionMismatch, op, "%s: expected %d, got %d", what, want, got)
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
