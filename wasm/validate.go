package wasm

import (
	"fmt"
	"unicode/utf8"
)

// validate checks module-level well-formedness and simulates the operand
// stack through every function body.
func validate(r *resolved) error {
	d := r.desc

	for _, imp := range d.Imports {
		if imp.Module == "" || imp.Name == "" {
			return &ValidationError{Index: -1, Msg: fmt.Sprintf("import $%s has an empty module or function name", imp.Sym)}
		}
		if !utf8.ValidString(imp.Module) || !utf8.ValidString(imp.Name) {
			return &ValidationError{Index: -1, Msg: fmt.Sprintf("import $%s name is not valid UTF-8", imp.Sym)}
		}
		if err := checkTypes(imp.Sig); err != nil {
			return &ValidationError{Index: -1, Msg: fmt.Sprintf("import $%s: %v", imp.Sym, err)}
		}
	}

	for _, want := range d.Requires {
		found := false
		for _, imp := range d.Imports {
			if imp.Sig.Equal(want) {
				found = true
				break
			}
		}
		if !found {
			return &ValidationError{Index: -1, Msg: fmt.Sprintf("no import with required signature %s", want)}
		}
	}

	seen := make(map[string]bool, len(d.Exports))
	for _, exp := range d.Exports {
		if exp.Name == "" || !utf8.ValidString(exp.Name) {
			return &ValidationError{Index: -1, Msg: fmt.Sprintf("export of $%s has an invalid name", exp.Func)}
		}
		if seen[exp.Name] {
			return &ValidationError{Index: -1, Msg: fmt.Sprintf("duplicate export %q", exp.Name)}
		}
		seen[exp.Name] = true
	}

	for fi := range d.Functions {
		if err := validateBody(r, fi); err != nil {
			return err
		}
	}
	return nil
}

func checkTypes(sig Signature) error {
	for _, t := range sig.Params {
		if t != I32 {
			return fmt.Errorf("unsupported parameter type %s", t)
		}
	}
	for _, t := range sig.Results {
		if t != I32 {
			return fmt.Errorf("unsupported result type %s", t)
		}
	}
	return nil
}

// validateBody simulates the abstract operand stack through one function.
func validateBody(r *resolved, fi int) error {
	fn := &r.desc.Functions[fi]
	idx := r.bodies[fi]

	if err := checkTypes(fn.Sig); err != nil {
		return &ValidationError{Func: fn.Name, Index: -1, Msg: err.Error()}
	}
	for _, l := range fn.Locals {
		if l.Type != I32 {
			return &ValidationError{Func: fn.Name, Index: -1, Msg: fmt.Sprintf("local $%s has unsupported type %s", l.Name, l.Type)}
		}
	}

	localType := func(slot uint32) ValType {
		if int(slot) < len(fn.Sig.Params) {
			return fn.Sig.Params[slot]
		}
		return fn.Locals[int(slot)-len(fn.Sig.Params)].Type
	}

	var stack []ValType
	fail := func(i int, op Opcode, format string, args ...any) error {
		return &ValidationError{Func: fn.Name, Index: i, Op: op, Msg: fmt.Sprintf(format, args...)}
	}
	pop := func(i int, op Opcode, want ValType, what string) error {
		if len(stack) == 0 {
			return fail(i, op, "expected %s %s, operand stack is empty", want, what)
		}
		got := stack[len(stack)-1]
		if got != want {
			return fail(i, op, "expected %s %s, found %s", want, what, got)
		}
		stack = stack[:len(stack)-1]
		return nil
	}

	for i, in := range fn.Body {
		switch in.Op {
		case OpI32Const:
			stack = append(stack, I32)

		case OpI32Add, OpI32Mul:
			if err := pop(i, in.Op, I32, "right operand"); err != nil {
				return err
			}
			if err := pop(i, in.Op, I32, "left operand"); err != nil {
				return err
			}
			stack = append(stack, I32)

		case OpLocalGet:
			stack = append(stack, localType(idx[i]))

		case OpLocalSet, OpLocalTee:
			t := localType(idx[i])
			if err := pop(i, in.Op, t, "value for $"+in.Sym); err != nil {
				return err
			}
			if in.Op == OpLocalTee {
				stack = append(stack, t)
			}

		case OpCall:
			callee := r.sigs[idx[i]]
			for p := len(callee.Params) - 1; p >= 0; p-- {
				if err := pop(i, in.Op, callee.Params[p], fmt.Sprintf("argument %d to $%s", p, in.Sym)); err != nil {
					return err
				}
			}
			stack = append(stack, callee.Results...)

		case OpReturn:
			if err := checkResults(stack, fn.Sig.Results, false); err != nil {
				return fail(i, in.Op, "%v", err)
			}
			if i != len(fn.Body)-1 {
				return fail(i+1, fn.Body[i+1].Op, "unreachable instruction after return")
			}
			return nil

		default:
			return fail(i, in.Op, "unknown instruction")
		}
	}

	if err := checkResults(stack, fn.Sig.Results, true); err != nil {
		return &ValidationError{Func: fn.Name, Index: len(fn.Body), Msg: err.Error()}
	}
	return nil
}

// checkResults verifies the top of stack holds results. When exact is set
// nothing else may remain below them.
func checkResults(stack, results []ValType, exact bool) error {
	if exact && len(stack) != len(results) {
		return fmt.Errorf("body leaves %d value(s) on the stack, signature declares %d", len(stack), len(results))
	}
	if len(stack) < len(results) {
		return fmt.Errorf("return needs %d value(s), stack has %d", len(results), len(stack))
	}
	top := stack[len(stack)-len(results):]
	for i := range results {
		if top[i] != results[i] {
			return fmt.Errorf("result %d: expected %s, found %s", i, results[i], top[i])
		}
	}
	return nil
}
