// Package ferrors defines the closed error taxonomy that Lexer, Parser,
// and Evaluator surface at the module boundary (spec §7). Every error
// the core returns is one of these kinds and carries a source position.
package ferrors

import (
	"fmt"

	"github.com/pkg/errors"

	"fhirpath/token"
)

// Kind is one of the closed set of error categories. Stable identifiers
// so callers can switch on them programmatically.
type Kind string

const (
	Lexical        Kind = "lexical"
	Syntactic      Kind = "syntactic"
	Evaluation     Kind = "evaluation"
	TypeMismatch   Kind = "type"
	UnknownVar     Kind = "unknown-variable"
	UnknownFunc    Kind = "unknown-function"
	ArgumentCount  Kind = "argument-count"
	ArgumentType   Kind = "argument-type"
	Configuration  Kind = "configuration"
)

// Error is the single concrete error type returned across the module
// boundary. Internal helpers (Lexicalf, Syntaxf, ...) construct one with
// the right Kind; code further up the call stack should prefer Wrap
// over re-wrapping so github.com/pkg/errors can still recover the cause
// with errors.Cause.
type Error struct {
	Kind    Kind
	Message string
	Pos     token.Position
	Snippet string
	cause   error
}

func (e *Error) Error() string {
	if e.Pos.Line == 0 && e.Pos.Col == 0 && e.Pos.Offset == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s at %s", e.Kind, e.Message, e.Pos)
}

// AtPosition returns a copy of e with Pos set, unless e already carries
// a non-zero position. Used by the Evaluator to attach a node's source
// position to errors raised by position-agnostic Registry evaluators.
func (e *Error) AtPosition(pos token.Position) *Error {
	if e.Pos.Line != 0 || e.Pos.Col != 0 || e.Pos.Offset != 0 {
		return e
	}
	cp := *e
	cp.Pos = pos
	return &cp
}

// Cause implements github.com/pkg/errors' Causer interface so
// errors.Cause(err) unwraps to whatever underlying error (if any) was
// wrapped when this Error was constructed.
func (e *Error) Cause() error { return e.cause }

// Unwrap supports the standard library's errors.Is/errors.As as well.
func (e *Error) Unwrap() error { return e.cause }

func newf(kind Kind, pos token.Position, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos}
}

// Lexicalf builds a LexicalError.
func Lexicalf(pos token.Position, format string, args ...any) *Error {
	return newf(Lexical, pos, format, args...)
}

// Syntaxf builds a SyntaxError.
func Syntaxf(pos token.Position, format string, args ...any) *Error {
	return newf(Syntactic, pos, format, args...)
}

// Evaluationf builds an EvaluationError.
func Evaluationf(pos token.Position, format string, args ...any) *Error {
	return newf(Evaluation, pos, format, args...)
}

// TypeErrorf builds a TypeError.
func TypeErrorf(pos token.Position, format string, args ...any) *Error {
	return newf(TypeMismatch, pos, format, args...)
}

// UnknownVariablef builds an UnknownVariable error.
func UnknownVariablef(pos token.Position, name string) *Error {
	return newf(UnknownVar, pos, "unknown variable %q", name)
}

// UnknownFunctionf builds an UnknownFunction error.
func UnknownFunctionf(pos token.Position, name string) *Error {
	return newf(UnknownFunc, pos, "unknown function %q", name)
}

// ArgumentCountf builds an ArgumentCountError.
func ArgumentCountf(pos token.Position, format string, args ...any) *Error {
	return newf(ArgumentCount, pos, format, args...)
}

// ArgumentTypef builds an ArgumentTypeError, wrapping cause if non-nil so
// errors.Cause still recovers the original conversion/validation failure.
func ArgumentTypef(pos token.Position, cause error, format string, args ...any) *Error {
	e := newf(ArgumentType, pos, format, args...)
	if cause != nil {
		e.cause = errors.WithStack(cause)
	}
	return e
}

// Configurationf builds a ConfigurationError (no position: these arise
// from the Config passed to Evaluate, not from source text).
func Configurationf(format string, args ...any) *Error {
	return newf(Configuration, token.Position{}, format, args...)
}

// Wrap attaches additional context to err the way aretext wraps
// lower-level failures, preserving err as the recoverable Cause.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}

// Is reports whether err (or anything it wraps) is a *Error of kind k.
func Is(err error, k Kind) bool {
	var fe *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			fe = e
			break
		}
		cause := errors.Cause(err)
		if cause == err {
			break
		}
		err = cause
	}
	return fe != nil && fe.Kind == k
}
