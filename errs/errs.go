package errs

import (
	"github.com/annet-ml/annet/internal/errs"
)

// Kind classifies an error.
type Kind = errs.Kind

// Error is the error type returned by annet operations.
type Error = errs.Error

// Error kinds.
const (
	KindConfiguration      = errs.KindConfiguration
	KindDimensionMismatch  = errs.KindDimensionMismatch
	KindIO                 = errs.KindIO
	KindDevice             = errs.KindDevice
	KindNumericInstability = errs.KindNumericInstability
)

// Sentinels matched by errors.Is.
var (
	ErrConfiguration       = errs.ErrConfiguration
	ErrDimensionMismatch   = errs.ErrDimensionMismatch
	ErrIO                  = errs.ErrIO
	ErrDevice              = errs.ErrDevice
	ErrNumericInstability  = errs.ErrNumericInstability
	ErrMissingTrainingData = errs.ErrMissingTrainingData
)

// KindOf returns the kind of the first annet error in err's chain.
func KindOf(err error) Kind {
	return errs.KindOf(err)
}

// New returns an *Error of the given kind.
func New(kind Kind, op, format string, args ...any) *Error {
	return errs.New(kind, op, format, args...)
}

// Wrap classifies err. It returns nil when err is nil.
func Wrap(kind Kind, op string, err error) error {
	return errs.Wrap(kind, op, err)
}
