package services

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an index or alias does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPreconditionFailed marks an ordering violation, such as a force
	// merge attempted before the index is read-only. Retried after the
	// prerequisite is enforced.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrNotEligible marks an action that must not run against the index
	// in its current role, such as deleting a live write index. Surfaced,
	// not retried automatically.
	ErrNotEligible = errors.New("not eligible")
	// ErrRequestTimeout marks a transient engine timeout. Retried.
	ErrRequestTimeout = errors.New("request timed out")
	// ErrEngineOperation wraps an opaque failure response from the
	// engine. The response is recorded verbatim.
	ErrEngineOperation = errors.New("engine operation failed")
)

func NotFoundError(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

func PreconditionFailedError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPreconditionFailed, fmt.Sprintf(format, args...))
}

func NotEligibleError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotEligible, fmt.Sprintf(format, args...))
}

func EngineError(resp string) error {
	return fmt.Errorf("%w: %s", ErrEngineOperation, resp)
}

// WrapTransportError classifies a transport-level failure: deadline
// expiries become ErrRequestTimeout, everything else ErrEngineOperation.
func WrapTransportError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrRequestTimeout, err)
	}
	return fmt.Errorf("%w: %s", ErrEngineOperation, err)
}

// IsRetryable reports whether the orchestrator should retry the failed
// action on the next tick.
func IsRetryable(err error) bool {
	return !errors.Is(err, ErrNotEligible)
}
