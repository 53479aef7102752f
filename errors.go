package cachesim

import (
	"errors"
	"fmt"
)

// Error is a structured simulator error with context and a coarse
// category: an Op/Code/Msg/Inner shape that lets callers match on Code
// without parsing message text.
type Error struct {
	Op   string  // operation that failed (e.g., "ParseTrace", "Validate")
	Code ErrCode // high-level error category

	// File/Line annotate an ErrCodeTraceParse error with the offending
	// trace line; zero for every other code.
	File string
	Line int

	// Invariant names the violated invariant for an ErrCodeInvariant
	// error, e.g. "bus-owner-exclusivity".
	Invariant string

	Msg   string // human-readable message
	Inner error  // wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.File != "" {
		parts = append(parts, fmt.Sprintf("%s:%d", e.File, e.Line))
	}
	if e.Invariant != "" {
		parts = append(parts, fmt.Sprintf("invariant=%s", e.Invariant))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("cachesim: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("cachesim: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support, comparing by Code so callers can test
// against a bare *Error{Code: ErrCodeConfig} sentinel.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// ErrCode is the error taxonomy: configuration problems, malformed
// trace input, and violated runtime invariants.
type ErrCode string

const (
	// ErrCodeConfig covers non-power-of-two cache geometry, an unknown
	// protocol name, or any other Config.Validate failure.
	ErrCodeConfig ErrCode = "invalid configuration"

	// ErrCodeTraceParse covers a malformed trace line or unknown
	// opcode; always annotated with File/Line.
	ErrCodeTraceParse ErrCode = "trace parse error"

	// ErrCodeInvariant covers an impossible state transition detected
	// at runtime; always annotated with Invariant.
	ErrCodeInvariant ErrCode = "invariant violation"
)

// NewConfigError builds an ErrCodeConfig error.
func NewConfigError(op, msg string) *Error {
	return &Error{Op: op, Code: ErrCodeConfig, Msg: msg}
}

// NewTraceParseError builds an ErrCodeTraceParse error, annotated with
// the offending file and line number.
func NewTraceParseError(op, file string, line int, inner error) *Error {
	return &Error{
		Op:    op,
		Code:  ErrCodeTraceParse,
		File:  file,
		Line:  line,
		Msg:   inner.Error(),
		Inner: inner,
	}
}

// NewInvariantError builds an ErrCodeInvariant error, annotated with the
// name of the violated invariant.
func NewInvariantError(op, invariant, msg string) *Error {
	return &Error{Op: op, Code: ErrCodeInvariant, Invariant: invariant, Msg: msg}
}

// WrapError wraps an existing error with cachesim context, preserving
// its code if it is already a structured *Error.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	if ue, ok := inner.(*Error); ok {
		return &Error{
			Op:        op,
			Code:      ue.Code,
			File:      ue.File,
			Line:      ue.Line,
			Invariant: ue.Invariant,
			Msg:       ue.Msg,
			Inner:     ue.Inner,
		}
	}

	return &Error{Op: op, Code: ErrCodeConfig, Msg: inner.Error(), Inner: inner}
}

// IsCode checks whether err is a *Error matching the given code.
func IsCode(err error, code ErrCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
