// Package ast defines the expression tree consumed by the code generator.
//
// A tree is built from three node kinds: [Number] literals, [Binary]
// operations and [Print] expressions. Trees are plain data; nothing in this
// package evaluates them.
//
//	root := ast.Add(
//	    ast.PrintOf(ast.Add(ast.Num(10), ast.Mul(ast.Num(2), ast.Num(5)))),
//	    ast.Num(30),
//	)
//
// or, from text:
//
//	root, err := ast.Parse("print(10 + 2 * 5) + 30")
package ast

import "fmt"

// Node is an expression tree node. The set of implementations is closed:
// *Number, *Binary and *Print.
type Node interface {
	node()
}

// Op is a binary operator.
type Op int

const (
	OpAdd Op = iota + 1
	OpMul
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpMul:
		return "mul"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Valid reports whether o is a recognized operator.
func (o Op) Valid() bool {
	return o == OpAdd || o == OpMul
}

// Number is a 32-bit signed integer literal.
type Number struct {
	Value int32
}

// Binary applies Op to Left and Right, evaluated in that order.
type Binary struct {
	Op    Op
	Left  Node
	Right Node
}

// Print evaluates Expr, hands its value to the host log function and
// yields the same value unchanged.
type Print struct {
	Expr Node
}

func (*Number) node() {}
func (*Binary) node() {}
func (*Print) node() {}

// Num returns a literal node.
func Num(v int32) *Number { return &Number{Value: v} }

// Add returns left + right.
func Add(left, right Node) *Binary { return &Binary{Op: OpAdd, Left: left, Right: right} }

// Mul returns left * right.
func Mul(left, right Node) *Binary { return &Binary{Op: OpMul, Left: left, Right: right} }

// PrintOf wraps expr in a print side effect.
func PrintOf(expr Node) *Print { return &Print{Expr: expr} }

// Sample returns the tree add(print(10 + 2 * 5), 30). Running it logs 20
// and returns 50.
func Sample() Node {
	return Add(PrintOf(Add(Num(10), Mul(Num(2), Num(5)))), Num(30))
}
