// errors.go - Error kinds surfaced by the computation pipeline
package interferometry

import (
	"errors"
	"fmt"
)

// Kind distinguishes the failure classes a caller may need to react to.
type Kind int

const (
	// KindUnknown is returned by KindOf for errors not produced by this package.
	KindUnknown Kind = iota
	// KindValidation covers malformed inputs: bad tables, bad parameters.
	KindValidation
	// KindComputation covers numerical kernels rejecting their inputs.
	KindComputation
	// KindResource covers missing or unreadable files and unknown presets.
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindComputation:
		return "computation"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

// Error is a pipeline error tagged with its Kind and the failing operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Validationf creates a validation error for op.
func Validationf(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Err: fmt.Errorf(format, args...)}
}

// Computationf creates a computation error for op.
func Computationf(op, format string, args ...any) error {
	return &Error{Kind: KindComputation, Op: op, Err: fmt.Errorf(format, args...)}
}

// Resourcef creates a resource error for op.
func Resourcef(op, format string, args ...any) error {
	return &Error{Kind: KindResource, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsComputation reports whether err is a computation error.
func IsComputation(err error) bool { return KindOf(err) == KindComputation }

// IsResource reports whether err is a resource error.
func IsResource(err error) bool { return KindOf(err) == KindResource }
