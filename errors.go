package fmgo

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFitted is returned when an operation requiring a trained model
	// is invoked before Fit has succeeded.
	ErrNotFitted = errors.New("model is not fitted")

	// ErrDisposed is returned for any operation on a disposed model.
	// Dispose itself stays callable and is idempotent.
	ErrDisposed = errors.New("model is disposed")
)

// ErrInvalidArgument indicates malformed or inconsistent caller input,
// detected before any engine resources are allocated.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidArgument struct {
	Reason string
	cause  error
}

func (e *ErrInvalidArgument) Error() string {
	return fmt.Sprintf("invalid argument: %s", e.Reason)
}

func (e *ErrInvalidArgument) Unwrap() error { return e.cause }

func invalidArgf(format string, args ...any) error {
	return &ErrInvalidArgument{Reason: fmt.Sprintf(format, args...)}
}

// NativeOp names the engine boundary call that failed.
type NativeOp string

const (
	OpCreate  NativeOp = "create"
	OpParam   NativeOp = "set_param"
	OpFit     NativeOp = "fit"
	OpPredict NativeOp = "predict"
	OpAlloc   NativeOp = "alloc"
)

// NativeError indicates a failed engine boundary call. Msg carries the
// engine's last-error text for the failing call.
type NativeError struct {
	Op  NativeOp
	Msg string
}

func (e *NativeError) Error() string {
	return fmt.Sprintf("engine %s failed: %s", e.Op, e.Msg)
}

// IsNativeError reports whether err is a NativeError for op, anywhere in
// its chain.
func IsNativeError(err error, op NativeOp) bool {
	var ne *NativeError
	return errors.As(err, &ne) && ne.Op == op
}
