package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError reports a malformed expression string.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg)
}

// Parse reads an infix expression such as "print(10 + 2 * 5) + 30".
//
// Grammar:
//
//	expr   = term { "+" term }
//	term   = factor { "*" factor }
//	factor = integer | "(" expr ")" | "print" "(" expr ")"
//
// Integers may carry a leading minus sign and must fit in 32 bits.
// Both operators are left associative and "*" binds tighter than "+".
func Parse(src string) (Node, error) {
	p := &parser{src: src}
	p.next()
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected %s", p.tok)
	}
	return n, nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokInt
	tokIdent
	tokPlus
	tokStar
	tokLParen
	tokRParen
	tokInvalid
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of input"
	}
	return strconv.Quote(t.text)
}

type parser struct {
	src string
	off int
	tok token
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Pos: p.tok.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) next() {
	for p.off < len(p.src) && isSpace(p.src[p.off]) {
		p.off++
	}
	start := p.off
	if p.off >= len(p.src) {
		p.tok = token{kind: tokEOF, pos: start}
		return
	}

	c := p.src[p.off]
	switch {
	case c == '+':
		p.off++
		p.tok = token{kind: tokPlus, text: "+", pos: start}
	case c == '*':
		p.off++
		p.tok = token{kind: tokStar, text: "*", pos: start}
	case c == '(':
		p.off++
		p.tok = token{kind: tokLParen, text: "(", pos: start}
	case c == ')':
		p.off++
		p.tok = token{kind: tokRParen, text: ")", pos: start}
	case isDigit(c) || (c == '-' && p.off+1 < len(p.src) && isDigit(p.src[p.off+1])):
		p.off++
		for p.off < len(p.src) && isDigit(p.src[p.off]) {
			p.off++
		}
		p.tok = token{kind: tokInt, text: p.src[start:p.off], pos: start}
	case isLetter(c):
		for p.off < len(p.src) && (isLetter(p.src[p.off]) || isDigit(p.src[p.off])) {
			p.off++
		}
		p.tok = token{kind: tokIdent, text: p.src[start:p.off], pos: start}
	default:
		p.off++
		p.tok = token{kind: tokInvalid, text: string(c), pos: start}
	}
}

func (p *parser) expect(kind tokKind, what string) error {
	if p.tok.kind != kind {
		return p.errorf("expected %s, found %s", what, p.tok)
	}
	p.next()
	return nil
}

func (p *parser) expr() (Node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokPlus {
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = Add(left, right)
	}
	return left, nil
}

func (p *parser) term() (Node, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokStar {
		p.next()
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = Mul(left, right)
	}
	return left, nil
}

func (p *parser) factor() (Node, error) {
	switch p.tok.kind {
	case tokInt:
		v, err := strconv.ParseInt(p.tok.text, 10, 32)
		if err != nil {
			return nil, p.errorf("integer %s out of 32-bit range", p.tok.text)
		}
		p.next()
		return Num(int32(v)), nil
	case tokLParen:
		p.next()
		n, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, `")"`); err != nil {
			return nil, err
		}
		return n, nil
	case tokIdent:
		if p.tok.text != "print" {
			return nil, p.errorf("unknown identifier %s", p.tok)
		}
		p.next()
		if err := p.expect(tokLParen, `"(" after print`); err != nil {
			return nil, err
		}
		inner, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, `")"`); err != nil {
			return nil, err
		}
		return PrintOf(inner), nil
	default:
		return nil, p.errorf("unexpected %s", p.tok)
	}
}

func isSpace(c byte) bool  { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c == '_' || (c|0x20 >= 'a' && c|0x20 <= 'z') }

// Format renders n in the syntax accepted by Parse. Parentheses are added
// only where needed to keep the tree shape.
func Format(n Node) string {
	var b strings.Builder
	format(&b, n, 0)
	return b.String()
}

func precedence(n Node) int {
	if b, ok := n.(*Binary); ok && b != nil {
		if b.Op == OpMul {
			return 2
		}
		return 1
	}
	return 3
}

func format(b *strings.Builder, n Node, minPrec int) {
	switch n := n.(type) {
	case *Number:
		if n == nil {
			b.WriteString("<nil>")
			return
		}
		b.WriteString(strconv.FormatInt(int64(n.Value), 10))
	case *Print:
		if n == nil {
			b.WriteString("<nil>")
			return
		}
		b.WriteString("print(")
		format(b, n.Expr, 0)
		b.WriteString(")")
	case *Binary:
		if n == nil {
			b.WriteString("<nil>")
			return
		}
		prec := precedence(n)
		paren := prec < minPrec
		if paren {
			b.WriteString("(")
		}
		format(b, n.Left, prec)
		switch n.Op {
		case OpAdd:
			b.WriteString(" + ")
		case OpMul:
			b.WriteString(" * ")
		default:
			fmt.Fprintf(b, " %s ", n.Op)
		}
		format(b, n.Right, prec+1)
		if paren {
			b.WriteString(")")
		}
	default:
		b.WriteString("<nil>")
	}
}
