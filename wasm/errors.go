package wasm

import (
	"errors"
	"fmt"
)

var (
	ErrUnresolvedSymbol = errors.New("unresolved symbol")
	ErrValidation       = errors.New("validation error")
	ErrIO               = errors.New("io error")
)

// UnresolvedSymbolError reports a symbolic reference that could not be
// bound to an index. Func and Index locate the reference when it appears
// inside a function body; Index is -1 otherwise.
type UnresolvedSymbolError struct {
	Kind   string // "function", "local" or "export"
	Name   string
	Func   string
	Index  int
	Reason string
}

func (e *UnresolvedSymbolError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "not defined"
	}
	if e.Func != "" && e.Index >= 0 {
		return fmt.Sprintf("%v: %s $%s in %s[%d]: %s", ErrUnresolvedSymbol, e.Kind, e.Name, e.Func, e.Index, reason)
	}
	return fmt.Sprintf("%v: %s %q: %s", ErrUnresolvedSymbol, e.Kind, e.Name, reason)
}

func (e *UnresolvedSymbolError) Unwrap() error { return ErrUnresolvedSymbol }

// ValidationError reports a stack or type discipline violation. Index is
// the offending instruction within Func's body, len(body) for the implicit
// end of the body, or -1 for module-level problems.
type ValidationError struct {
	Func  string
	Index int
	Op    Opcode
	Msg   string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Func == "":
		return fmt.Sprintf("%v: %s", ErrValidation, e.Msg)
	case e.Index < 0:
		return fmt.Sprintf("%v: func %s: %s", ErrValidation, e.Func, e.Msg)
	case e.Op == 0:
		return fmt.Sprintf("%v: func %s[%d] (end): %s", ErrValidation, e.Func, e.Index, e.Msg)
	default:
		return fmt.Sprintf("%v: func %s[%d] (%s): %s", ErrValidation, e.Func, e.Index, e.Op, e.Msg)
	}
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
