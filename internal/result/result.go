// Package result carries the outcome of one pipeline stage so the caller,
// not the stage, decides whether to continue, warn or abort.
package result

import (
	"errors"
	"fmt"
)

// Kind enumerates stage outcomes.
type Kind int

const (
	KindOk Kind = iota
	KindSkip
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindOk:
		return "ok"
	case KindSkip:
		return "skip"
	case KindFatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is Ok(value), Skip(reason) or Fatal(err).
type Result[T any] struct {
	kind   Kind
	value  T
	reason string
	err    error
}

// Ok wraps a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{kind: KindOk, value: value}
}

// Skip records a non-fatal anomaly; the stage produced nothing usable.
func Skip[T any](format string, args ...any) Result[T] {
	return Result[T]{kind: KindSkip, reason: fmt.Sprintf(format, args...)}
}

// Fatal records a condition that makes the whole request meaningless.
func Fatal[T any](err error) Result[T] {
	if err == nil {
		err = errors.New("fatal stage error")
	}
	return Result[T]{kind: KindFatal, err: err, reason: err.Error()}
}

func (r Result[T]) Kind() Kind     { return r.kind }
func (r Result[T]) IsOk() bool     { return r.kind == KindOk }
func (r Result[T]) IsSkip() bool   { return r.kind == KindSkip }
func (r Result[T]) IsFatal() bool  { return r.kind == KindFatal }
func (r Result[T]) Value() T       { return r.value }
func (r Result[T]) Reason() string { return r.reason }
func (r Result[T]) Err() error     { return r.err }
