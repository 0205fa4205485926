// Package xerrors defines the error taxonomy shared by all gradgraph packages.
//
// Errors are created with github.com/pkg/errors wrapping one of the sentinels below, so they
// carry a stack trace and can be matched with errors.Is:
//
//	err := errors.Wrapf(xerrors.ErrShapeMismatch, "cannot add %s and %s", a, b)
//	...
//	if errors.Is(err, xerrors.ErrShapeMismatch) { ... }
//
// None of the failures are transient: they are raised at the point of violation and abort the
// current forward or backward pass.
package xerrors

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument is returned for malformed construction, arity mismatches when assigning
	// an operation and unknown elementary-function names.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrShapeMismatch is returned when operand dimensions are incompatible for an elementwise
	// operation or a matrix product.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrIllegalState is returned when a graph node is used before its required fields are set.
	ErrIllegalState = errors.New("illegal state")

	// ErrDomain is returned when an elementary function is evaluated outside its domain,
	// e.g. the logarithm of a non-positive value.
	ErrDomain = errors.New("domain error")

	// ErrNotFound is returned by registry lookups of unknown names. It is also an ErrInvalidArgument.
	ErrNotFound = kindOf(ErrInvalidArgument, "not found")

	// ErrOutOfRange is returned when indexing outside the bounds of an array. It is also an
	// ErrInvalidArgument.
	ErrOutOfRange = kindOf(ErrInvalidArgument, "out of range")
)

// subKind is a sentinel that also matches its parent sentinel with errors.Is.
type subKind struct {
	parent error
	msg    string
}

func kindOf(parent error, msg string) error { return &subKind{parent: parent, msg: msg} }

func (k *subKind) Error() string { return k.msg }

func (k *subKind) Unwrap() error { return k.parent }

// IsInvalidArgument reports whether err is (or wraps) ErrInvalidArgument.
func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }

// IsShapeMismatch reports whether err is (or wraps) ErrShapeMismatch.
func IsShapeMismatch(err error) bool { return errors.Is(err, ErrShapeMismatch) }

// IsIllegalState reports whether err is (or wraps) ErrIllegalState.
func IsIllegalState(err error) bool { return errors.Is(err, ErrIllegalState) }

// IsDomain reports whether err is (or wraps) ErrDomain.
func IsDomain(err error) bool { return errors.Is(err, ErrDomain) }

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
