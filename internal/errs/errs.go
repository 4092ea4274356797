// Package errs defines the typed error family the rest of the pipeline
// reports failures through: every error carries a Category (bad wiring
// vs. a failed read/write vs. a failed inference call) and the
// operation it happened in, so callers can branch on what went wrong
// with errors.As instead of string-matching a message.
package errs

import (
	"errors"
	"fmt"
)

// Category classifies what kind of thing went wrong.
type Category int

const (
	// Configuration errors come from invalid wiring discovered at
	// construction time: a network with the wrong number of
	// inputs/outputs, an unsupported input shape, a bad option value.
	Configuration Category = iota
	// IO errors come from reading or writing external data: decoding
	// an image, loading a model file, opening a video source.
	IO
	// Inference errors come from running a model: the estimator
	// itself failed, or its output didn't match the shape the caller
	// expected.
	Inference
)

func (c Category) String() string {
	switch c {
	case Configuration:
		return "configuration"
	case IO:
		return "io"
	case Inference:
		return "inference"
	default:
		return "unknown"
	}
}

// Error is the pipeline's own error type: a Category, the operation it
// occurred in, and the underlying error (if any).
type Error struct {
	Category  Category
	Operation string
	Err       error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s error in %s", e.Category, e.Operation)
	}
	return fmt.Sprintf("%s error in %s: %v", e.Category, e.Operation, e.Err)
}

// Unwrap lets errors.Is/errors.As see through to the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// Config wraps err as a Configuration error that occurred in operation.
func Config(operation string, err error) *Error {
	return &Error{Category: Configuration, Operation: operation, Err: err}
}

// Configf is Config, with the underlying error built from a format
// string.
func Configf(operation, format string, args ...any) *Error {
	return Config(operation, fmt.Errorf(format, args...))
}

// IOErr wraps err as an IO error that occurred in operation.
func IOErr(operation string, err error) *Error {
	return &Error{Category: IO, Operation: operation, Err: err}
}

// Infer wraps err as an Inference error that occurred in operation.
func Infer(operation string, err error) *Error {
	return &Error{Category: Inference, Operation: operation, Err: err}
}

// Inferf is Infer, with the underlying error built from a format
// string.
func Inferf(operation, format string, args ...any) *Error {
	return Infer(operation, fmt.Errorf(format, args...))
}

// Is reports whether err is an *Error in the given Category, looking
// through any wrapping via errors.As.
func Is(err error, category Category) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Category == category
	}
	return false
}
