// Package codegen lowers an expression tree to a module descriptor.
//
// The generated module imports one host log function, defines calculate,
// which evaluates the tree, and main, which calls calculate. Both are
// exported and return i32.
package codegen

import (
	"errors"
	"fmt"

	"github.com/caffeineduck/wexpr/ast"
	"github.com/caffeineduck/wexpr/wasm"
)

var (
	ErrStructural           = errors.New("structural error")
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

const (
	DefaultModule = "env"
	DefaultName   = "log_i32"
	DefaultSymbol = "imported_log_i32"

	// TempLocal holds a printed value while the log call consumes its copy.
	TempLocal = "temp_for_log"

	CalculateFunc = "calculate"
	MainFunc      = "main"
)

// Imports names the host log function: Module and Name are what the host
// binds, Symbol is how the module's call instructions refer to it.
type Imports struct {
	Module string
	Name   string
	Symbol string
}

// DefaultImports returns env.log_i32 referenced as $imported_log_i32.
func DefaultImports() Imports {
	return Imports{Module: DefaultModule, Name: DefaultName, Symbol: DefaultSymbol}
}

// Generate lowers root into a descriptor. On error no descriptor is
// returned.
func Generate(root ast.Node, imp Imports) (*wasm.Descriptor, error) {
	if imp.Module == "" || imp.Name == "" || imp.Symbol == "" {
		return nil, fmt.Errorf("%w: import module, name and symbol must be set", ErrStructural)
	}
	if imp.Symbol == CalculateFunc || imp.Symbol == MainFunc {
		return nil, fmt.Errorf("%w: import symbol %q collides with a generated function", ErrStructural, imp.Symbol)
	}

	body, err := Emit(root, imp.Symbol)
	if err != nil {
		return nil, err
	}

	i32 := []wasm.ValType{wasm.I32}
	return &wasm.Descriptor{
		Imports: []wasm.Import{
			{Module: imp.Module, Name: imp.Name, Sym: imp.Symbol, Sig: wasm.LogSignature},
		},
		Functions: []wasm.Function{
			{
				Name:   CalculateFunc,
				Sig:    wasm.Signature{Results: i32},
				Locals: []wasm.Local{{Name: TempLocal, Type: wasm.I32}},
				Body:   body,
			},
			{
				Name: MainFunc,
				Sig:  wasm.Signature{Results: i32},
				Body: wasm.Program{wasm.Call(CalculateFunc), wasm.Return()},
			},
		},
		Exports: []wasm.Export{
			{Name: CalculateFunc, Func: CalculateFunc},
			{Name: MainFunc, Func: MainFunc},
		},
		Requires: []wasm.Signature{wasm.LogSignature},
	}, nil
}

// task is one step of the emission walk: either lower a node or append a
// finished instruction.
type task struct {
	node  ast.Node
	instr wasm.Instruction
	emit  bool
	level int
}

// Emit lowers root to a program that leaves exactly one i32 on the stack.
// logSym is the call target used for print. The walk is post-order over
// an explicit stack, so deep trees do not grow the goroutine stack.
func Emit(root ast.Node, logSym string) (wasm.Program, error) {
	var prog wasm.Program
	work := []task{{node: root}}
	depth := 0

	for len(work) > 0 {
		t := work[len(work)-1]
		work = work[:len(work)-1]

		if t.emit {
			prog = append(prog, t.instr)
			depth += stackEffect(t.instr.Op)
			if depth < 0 {
				return nil, fmt.Errorf("%w: operand stack underflow after %s", ErrStructural, t.instr)
			}
			continue
		}

		switch n := t.node.(type) {
		case *ast.Number:
			if n == nil {
				return nil, missing(t.level)
			}
			prog = append(prog, wasm.Const(n.Value))
			depth++

		case *ast.Binary:
			if n == nil {
				return nil, missing(t.level)
			}
			var op wasm.Instruction
			switch n.Op {
			case ast.OpAdd:
				op = wasm.Add()
			case ast.OpMul:
				op = wasm.Mul()
			default:
				return nil, fmt.Errorf("%w: %s at depth %d", ErrUnsupportedOperation, n.Op, t.level)
			}
			if isNil(n.Left) {
				return nil, fmt.Errorf("%w: %s at depth %d has no left operand", ErrStructural, n.Op, t.level)
			}
			if isNil(n.Right) {
				return nil, fmt.Errorf("%w: %s at depth %d has no right operand", ErrStructural, n.Op, t.level)
			}
			work = append(work,
				task{emit: true, instr: op},
				task{node: n.Right, level: t.level + 1},
				task{node: n.Left, level: t.level + 1},
			)

		case *ast.Print:
			if n == nil {
				return nil, missing(t.level)
			}
			if isNil(n.Expr) {
				return nil, fmt.Errorf("%w: print at depth %d has no operand", ErrStructural, t.level)
			}
			work = append(work,
				task{emit: true, instr: wasm.LocalGet(TempLocal)},
				task{emit: true, instr: wasm.Call(logSym)},
				task{emit: true, instr: wasm.LocalTee(TempLocal)},
				task{node: n.Expr, level: t.level + 1},
			)

		default:
			return nil, missing(t.level)
		}
	}

	if depth != 1 {
		return nil, fmt.Errorf("%w: program leaves %d values, want 1", ErrStructural, depth)
	}
	return prog, nil
}

func stackEffect(op wasm.Opcode) int {
	switch op {
	case wasm.OpI32Const, wasm.OpLocalGet:
		return 1
	case wasm.OpI32Add, wasm.OpI32Mul, wasm.OpCall:
		return -1
	default:
		return 0
	}
}

func missing(level int) error {
	return fmt.Errorf("%w: missing node at depth %d", ErrStructural, level)
}

// isNil also catches typed nil pointers stored in a non-nil Node.
func isNil(n ast.Node) bool {
	switch n := n.(type) {
	case *ast.Number:
		return n == nil
	case *ast.Binary:
		return n == nil
	case *ast.Print:
		return n == nil
	default:
		return n == nil
	}
}
