package wasm

import (
	"fmt"
	"strings"
)

// WAT renders d in the WebAssembly text format. The output is a debugging
// artifact; Assemble never reads it.
func (d *Descriptor) WAT() string {
	var b strings.Builder
	b.WriteString("(module\n")

	for _, imp := range d.Imports {
		fmt.Fprintf(&b, "  (import %q %q (func $%s%s))\n", imp.Module, imp.Name, imp.Sym, watSig(imp.Sig))
	}

	for _, fn := range d.Functions {
		fmt.Fprintf(&b, "  (func $%s%s", fn.Name, watSig(fn.Sig))
		for _, l := range fn.Locals {
			fmt.Fprintf(&b, " (local $%s %s)", l.Name, l.Type)
		}
		b.WriteString("\n")
		for _, in := range fn.Body {
			fmt.Fprintf(&b, "    %s\n", in)
		}
		b.WriteString("  )\n")
	}

	for _, exp := range d.Exports {
		fmt.Fprintf(&b, "  (export %q (func $%s))\n", exp.Name, exp.Func)
	}

	b.WriteString(")\n")
	return b.String()
}

func watSig(s Signature) string {
	var b strings.Builder
	if len(s.Params) > 0 {
		b.WriteString(" (param")
		for _, t := range s.Params {
			b.WriteString(" " + t.String())
		}
		b.WriteString(")")
	}
	if len(s.Results) > 0 {
		b.WriteString(" (result")
		for _, t := range s.Results {
			b.WriteString(" " + t.String())
		}
		b.WriteString(")")
	}
	return b.String()
}
