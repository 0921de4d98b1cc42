package wasm

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// CompiledModule is a validated, encoded WebAssembly binary. It is
// immutable; Bytes returns a copy.
type CompiledModule struct {
	bin []byte
}

// Bytes returns a copy of the binary.
func (m CompiledModule) Bytes() []byte {
	return bytes.Clone(m.bin)
}

// Len returns the size of the binary in bytes.
func (m CompiledModule) Len() int { return len(m.bin) }

// Digest returns the hex SHA-256 of the binary.
func (m CompiledModule) Digest() string {
	sum := sha256.Sum256(m.bin)
	return hex.EncodeToString(sum[:])
}

// Equal reports whether both modules hold the same bytes.
func (m CompiledModule) Equal(o CompiledModule) bool {
	return bytes.Equal(m.bin, o.bin)
}

// WriteTo writes the binary to w.
func (m CompiledModule) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(m.bin)
	return int64(n), err
}

// Assemble resolves, validates and encodes d. Encoding is deterministic:
// equal descriptors yield byte-identical modules.
func Assemble(d *Descriptor) (CompiledModule, error) {
	r, err := resolve(d)
	if err != nil {
		return CompiledModule{}, err
	}
	if err := validate(r); err != nil {
		return CompiledModule{}, err
	}
	return CompiledModule{bin: encode(r)}, nil
}

// Validate runs name resolution and static validation without encoding.
func Validate(d *Descriptor) error {
	r, err := resolve(d)
	if err != nil {
		return err
	}
	return validate(r)
}

// typeTable deduplicates signatures in order of first use.
type typeTable struct {
	sigs []Signature
}

func (t *typeTable) index(s Signature) uint32 {
	for i, have := range t.sigs {
		if have.Equal(s) {
			return uint32(i)
		}
	}
	t.sigs = append(t.sigs, s)
	return uint32(len(t.sigs) - 1)
}

func encode(r *resolved) []byte {
	d := r.desc

	var types typeTable
	importTypes := make([]uint32, len(d.Imports))
	for i, imp := range d.Imports {
		importTypes[i] = types.index(imp.Sig)
	}
	funcTypes := make([]uint32, len(d.Functions))
	for i, fn := range d.Functions {
		funcTypes[i] = types.index(fn.Sig)
	}

	out := &encoder{}
	out.bytes(magic)
	out.bytes(version)

	var sec encoder
	sec.u32(uint32(len(types.sigs)))
	for _, s := range types.sigs {
		sec.byte(typeFunc)
		sec.valTypes(s.Params)
		sec.valTypes(s.Results)
	}
	out.section(sectionType, sec.buf)

	if len(d.Imports) > 0 {
		sec = encoder{}
		sec.u32(uint32(len(d.Imports)))
		for i, imp := range d.Imports {
			sec.name(imp.Module)
			sec.name(imp.Name)
			sec.byte(externFunc)
			sec.u32(importTypes[i])
		}
		out.section(sectionImport, sec.buf)
	}

	sec = encoder{}
	sec.u32(uint32(len(d.Functions)))
	for _, ti := range funcTypes {
		sec.u32(ti)
	}
	out.section(sectionFunction, sec.buf)

	if len(d.Exports) > 0 {
		sec = encoder{}
		sec.u32(uint32(len(d.Exports)))
		for i, exp := range d.Exports {
			sec.name(exp.Name)
			sec.byte(externFunc)
			sec.u32(r.exports[i])
		}
		out.section(sectionExport, sec.buf)
	}

	sec = encoder{}
	sec.u32(uint32(len(d.Functions)))
	for fi := range d.Functions {
		body := encodeBody(&d.Functions[fi], r.bodies[fi])
		sec.u32(uint32(len(body)))
		sec.bytes(body)
	}
	out.section(sectionCode, sec.buf)

	return out.buf
}

// encodeBody encodes locals (run-length grouped by type) and instructions.
func encodeBody(fn *Function, idx []uint32) []byte {
	var groups []ValType
	var counts []uint32
	for _, l := range fn.Locals {
		if n := len(groups); n > 0 && groups[n-1] == l.Type {
			counts[n-1]++
			continue
		}
		groups = append(groups, l.Type)
		counts = append(counts, 1)
	}

	e := &encoder{}
	e.u32(uint32(len(groups)))
	for i, t := range groups {
		e.u32(counts[i])
		e.byte(byte(t))
	}

	for i, in := range fn.Body {
		e.byte(byte(in.Op))
		switch in.Op {
		case OpI32Const:
			e.i32(in.Value)
		case OpCall, OpLocalGet, OpLocalSet, OpLocalTee:
			e.u32(idx[i])
		}
	}
	e.byte(opEnd)
	return e.buf
}
