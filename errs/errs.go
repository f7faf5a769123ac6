// Package errs defines the runtime's error taxonomy.
//
// Errors are caught like values: a RuntimeError raised during a resumption
// chain is placed into a frame's result so the frame's resume logic can
// rethrow at the correct logical point, making error behavior identical
// whether the original raise happened before or after a suspension.
package errs

import "fmt"

// RuntimeError is a user-observable error carrying source + byte offset
// for diagnostics.
type RuntimeError struct {
	Source string
	Offset int
	Msg    string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Offset, e.Msg)
}

func NewRuntimeError(source string, offset int, msg string) *RuntimeError {
	return &RuntimeError{Source: source, Offset: offset, Msg: msg}
}

// TimeoutError is raised when a script exceeds its loop-iteration budget
// or wall-clock deadline.
type TimeoutError struct {
	RuntimeError
}

func NewTimeoutError(source string, offset int, msg string) *TimeoutError {
	return &TimeoutError{RuntimeError{Source: source, Offset: offset, Msg: msg}}
}

// DieError is a user-initiated termination, with an optional message.
type DieError struct {
	Msg string
}

func (e *DieError) Error() string {
	if e.Msg == "" {
		return "die()"
	}
	return "die(): " + e.Msg
}

// NullError is the sentinel the Stream iterator uses internally to signal
// end-of-source. It carries no state; identity is checked with errors.Is.
type NullError struct{}

func (*NullError) Error() string { return "null" }

// ErrNull is the canonical NullError instance, for errors.Is comparisons.
var ErrNull = &NullError{}

// CheckpointFormatError is non-recoverable and is raised during restore
// when a byte offset yields a mismatched tag, object id, or version.
type CheckpointFormatError struct {
	Offset int64
	Msg    string
}

func (e *CheckpointFormatError) Error() string {
	return fmt.Sprintf("checkpoint format error at offset %d: %s", e.Offset, e.Msg)
}

func NewCheckpointFormatError(offset int64, msg string) *CheckpointFormatError {
	return &CheckpointFormatError{Offset: offset, Msg: msg}
}

// InternalError indicates an invariant violation — a bug in the runtime or
// in compiler-emitted code, never in user scripts.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return "internal error: " + e.Msg
}

func NewInternalError(msg string) *InternalError {
	return &InternalError{Msg: msg}
}
