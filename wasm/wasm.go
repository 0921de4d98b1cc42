// Package wasm holds the module descriptor produced by the code generator
// and the assembler that turns it into a WebAssembly binary.
//
// A [Descriptor] references functions, imports and locals by symbolic name.
// [Assemble] runs three gates in order: name resolution, static validation
// of every function body against its signature, and binary encoding. A
// failure at any gate returns no output.
package wasm

import (
	"fmt"
	"strings"
)

// ValType is a WebAssembly value type. Only i32 is produced today.
type ValType byte

const I32 ValType = 0x7F

func (v ValType) String() string {
	if v == I32 {
		return "i32"
	}
	return fmt.Sprintf("valtype(0x%02x)", byte(v))
}

// Signature is a function type.
type Signature struct {
	Params  []ValType
	Results []ValType
}

// LogSignature is the type of the host log import: (i32) -> ().
var LogSignature = Signature{Params: []ValType{I32}}

// Equal reports whether s and o have identical parameter and result types.
func (s Signature) Equal(o Signature) bool {
	return equalTypes(s.Params, o.Params) && equalTypes(s.Results, o.Results)
}

func (s Signature) String() string {
	return "(" + joinTypes(s.Params) + ") -> (" + joinTypes(s.Results) + ")"
}

func equalTypes(a, b []ValType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func joinTypes(ts []ValType) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// Opcode is a stack-machine instruction opcode. Values are the WebAssembly
// binary opcodes.
type Opcode byte

const (
	OpReturn   Opcode = 0x0F
	OpCall     Opcode = 0x10
	OpLocalGet Opcode = 0x20
	OpLocalSet Opcode = 0x21
	OpLocalTee Opcode = 0x22
	OpI32Const Opcode = 0x41
	OpI32Add   Opcode = 0x6A
	OpI32Mul   Opcode = 0x6C
)

var opcodeNames = map[Opcode]string{
	OpReturn:   "return",
	OpCall:     "call",
	OpLocalGet: "local.get",
	OpLocalSet: "local.set",
	OpLocalTee: "local.tee",
	OpI32Const: "i32.const",
	OpI32Add:   "i32.add",
	OpI32Mul:   "i32.mul",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("opcode(0x%02x)", byte(op))
}

// Instruction is one stack-machine instruction. Value is the immediate of
// i32.const; Sym names the callee of call or the local of local.*.
type Instruction struct {
	Op    Opcode
	Value int32
	Sym   string
}

func (in Instruction) String() string {
	switch in.Op {
	case OpI32Const:
		return fmt.Sprintf("%s %d", in.Op, in.Value)
	case OpCall, OpLocalGet, OpLocalSet, OpLocalTee:
		return fmt.Sprintf("%s $%s", in.Op, in.Sym)
	default:
		return in.Op.String()
	}
}

func Const(v int32) Instruction { return Instruction{Op: OpI32Const, Value: v} }
func Add() Instruction { return Instruction{Op: OpI32Add} }
func Mul() Instruction { return Instruction{Op: OpI32Mul} }
func Call(sym string) Instruction { return Instruction{Op: OpCall, Sym: sym} }
func LocalGet(sym string) Instruction { return Instruction{Op: OpLocalGet, Sym: sym} }
func LocalSet(sym string) Instruction { return Instruction{Op: OpLocalSet, Sym: sym} }
func LocalTee(sym string) Instruction { return Instruction{Op: OpLocalTee, Sym: sym} }
func Return() Instruction { return Instruction{Op: OpReturn} }

// Program is a linear instruction sequence forming one function body.
type Program []Instruction

// Import declares a host function the module requires. Sym is the name
// used by call instructions inside the module.
type Import struct {
	Module string
	Name   string
	Sym    string
	Sig    Signature
}

// Local is a named local slot of a function.
type Local struct {
	Name string
	Type ValType
}

// Function is a module-defined function. Name is both its symbol and its
// name in the text form.
type Function struct {
	Name   string
	Sig    Signature
	Locals []Local
	Body   Program
}

// Export exposes Func under Name.
type Export struct {
	Name string
	Func string
}

// Descriptor describes a whole module before assembly. Requires lists
// import signatures the module's producer depends on; Assemble rejects the
// descriptor unless each one is declared by some import.
type Descriptor struct {
	Imports   []Import
	Functions []Function
	Exports   []Export
	Requires  []Signature
}

// Function returns the function named name, or nil.
func (d *Descriptor) Function(name string) *Function {
	for i := range d.Functions {
		if d.Functions[i].Name == name {
			return &d.Functions[i]
		}
	}
	return nil
}
