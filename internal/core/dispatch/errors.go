package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnimplemented matches every *UnimplementedError.
	ErrUnimplemented = errors.New("method not implemented")
	// ErrHandlerPanic wraps a recovered handler panic.
	ErrHandlerPanic = errors.New("handler panicked")
	// ErrInvalidArgument marks calls whose request could not be read.
	ErrInvalidArgument = errors.New("invalid argument")
)

// UnimplementedError is returned by Dispatch for an unknown method.
type UnimplementedError struct {
	Method    string
	Available []string
}

func (e *UnimplementedError) Error() string {
	return fmt.Sprintf("unknown method %q; available methods: [%s]", e.Method, strings.Join(e.Available, ", "))
}

// Is makes errors.Is(err, ErrUnimplemented) true.
func (e *UnimplementedError) Is(target error) bool {
	return target == ErrUnimplemented
}

// Call outcomes reported by Outcome.
const (
	OutcomeOK               = "ok"
	OutcomeUnimplemented    = "unimplemented"
	OutcomeCanceled         = "canceled"
	OutcomeDeadlineExceeded = "deadline_exceeded"
	OutcomeInvalidArgument  = "invalid_argument"
	OutcomePanic            = "panic"
	OutcomeError            = "error"
)

// Outcome classifies the result of a dispatched call.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrUnimplemented):
		return OutcomeUnimplemented
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeDeadlineExceeded
	case errors.Is(err, ErrInvalidArgument):
		return OutcomeInvalidArgument
	case errors.Is(err, ErrHandlerPanic):
		return OutcomePanic
	default:
		return OutcomeError
	}
}
