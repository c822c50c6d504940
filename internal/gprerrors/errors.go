// Package gprerrors defines the closed set of error kinds the tiled-task
// execution core can raise. There is no local recovery: the first failure
// detected propagates unchanged through every dependent future to the
// caller awaiting the terminal handle.
package gprerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a failure so callers can branch without string matching.
type Kind int

const (
	// KindConfiguration marks an invalid scheduler or dataset configuration,
	// rejected at construction time before any task runs.
	KindConfiguration Kind = iota
	// KindTopology marks a handle whose manager list has no entry for the
	// resolving locality. Fatal at handle resolution.
	KindTopology
	// KindTransport marks a failed remote get/set.
	KindTransport
	// KindKernel marks a numeric kernel that signaled failure.
	KindKernel
	// KindOutOfRange marks an out-of-bounds tiled-dataset index access.
	KindOutOfRange
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTopology:
		return "topology"
	case KindTransport:
		return "transport"
	case KindKernel:
		return "kernel"
	case KindOutOfRange:
		return "out_of_range"
	default:
		return "unknown"
	}
}

// Error is a gprat-core error: a Kind plus a wrapped cause with stack
// context captured at the point of first detection.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gprat: %s: %v", e.Kind, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// Wrap builds an Error of the given kind, attaching a stack trace to msg
// via github.com/pkg/errors so the first failure carries enough context to
// debug without retries.
func Wrap(kind Kind, msg string, args ...any) *Error {
	return &Error{Kind: kind, cause: errors.Errorf(msg, args...)}
}

// WrapErr attaches kind and stack context to an existing error.
func WrapErr(kind Kind, err error, msg string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, cause: errors.Wrap(err, msg)}
}

// Is reports whether err is a gprat Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
