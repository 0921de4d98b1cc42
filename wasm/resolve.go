package wasm

// resolved is a descriptor with every symbol bound to an index.
type resolved struct {
	desc    *Descriptor
	funcs   map[string]uint32 // imports first, then defined functions
	sigs    []Signature       // indexed like funcs
	bodies  [][]uint32        // per defined function, per instruction: immediate index
	exports []uint32
}

// resolve binds call targets, local names and export targets to indices.
func resolve(d *Descriptor) (*resolved, error) {
	r := &resolved{
		desc:  d,
		funcs: make(map[string]uint32, len(d.Imports)+len(d.Functions)),
	}

	define := func(sym string) error {
		if _, dup := r.funcs[sym]; dup {
			return &UnresolvedSymbolError{Kind: "function", Name: sym, Index: -1, Reason: "defined more than once"}
		}
		r.funcs[sym] = uint32(len(r.sigs))
		return nil
	}

	for _, imp := range d.Imports {
		if imp.Sym == "" {
			return nil, &UnresolvedSymbolError{Kind: "function", Name: imp.Module + "." + imp.Name, Index: -1, Reason: "import has no symbol"}
		}
		if err := define(imp.Sym); err != nil {
			return nil, err
		}
		r.sigs = append(r.sigs, imp.Sig)
	}
	for _, fn := range d.Functions {
		if err := define(fn.Name); err != nil {
			return nil, err
		}
		r.sigs = append(r.sigs, fn.Sig)
	}

	r.bodies = make([][]uint32, len(d.Functions))
	for fi, fn := range d.Functions {
		locals := make(map[string]uint32, len(fn.Locals))
		for li, l := range fn.Locals {
			if _, dup := locals[l.Name]; dup {
				return nil, &UnresolvedSymbolError{Kind: "local", Name: l.Name, Func: fn.Name, Index: -1, Reason: "declared more than once"}
			}
			// Parameters occupy the first local indices.
			locals[l.Name] = uint32(len(fn.Sig.Params) + li)
		}

		idx := make([]uint32, len(fn.Body))
		for i, in := range fn.Body {
			switch in.Op {
			case OpCall:
				target, ok := r.funcs[in.Sym]
				if !ok {
					return nil, &UnresolvedSymbolError{Kind: "function", Name: in.Sym, Func: fn.Name, Index: i}
				}
				idx[i] = target
			case OpLocalGet, OpLocalSet, OpLocalTee:
				slot, ok := locals[in.Sym]
				if !ok {
					return nil, &UnresolvedSymbolError{Kind: "local", Name: in.Sym, Func: fn.Name, Index: i}
				}
				idx[i] = slot
			}
		}
		r.bodies[fi] = idx
	}

	for _, exp := range d.Exports {
		target, ok := r.funcs[exp.Func]
		if !ok {
			return nil, &UnresolvedSymbolError{Kind: "export", Name: exp.Name, Index: -1, Reason: "target $" + exp.Func + " not defined"}
		}
		r.exports = append(r.exports, target)
	}

	return r, nil
}
