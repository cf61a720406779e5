package benchmark

import (
	"errors"
	"fmt"
)

// Kind classifies why a run was aborted. Every kind is fatal.
type Kind int

const (
	//ConfigFailure is an invalid configuration, detected before anything is allocated
	ConfigFailure Kind = iota
	//SetupFailure covers device discovery and the creation of buffers, programs and kernels
	SetupFailure
	//LaunchFailure covers dispatching, waiting on and reading back a launch
	LaunchFailure
	//AllocationFailure is a host side allocation that can not be satisfied
	AllocationFailure
	//MeasurementFailure is an elapsed time that can not produce a bandwidth
	MeasurementFailure
	//ValidationFailure is a device result that differs from the host reference
	ValidationFailure
)

func (k Kind) String() string {
	switch k {
	case ConfigFailure:
		return "ConfigFailure"
	case SetupFailure:
		return "SetupFailure"
	case LaunchFailure:
		return "LaunchFailure"
	case AllocationFailure:
		return "AllocationFailure"
	case MeasurementFailure:
		return "MeasurementFailure"
	case ValidationFailure:
		return "ValidationFailure"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the error returned by a failed run, it names the operation that failed
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v in %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%v in %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

//IsKind reports whether err, or an error it wraps, is an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
