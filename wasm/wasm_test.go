package wasm_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/caffeineduck/wexpr/wasm"
	"github.com/google/go-cmp/cmp"
)

var i32 = []wasm.ValType{wasm.I32}

// sampleDescriptor mirrors what the generator emits for
// print(10 + 2 * 5) + 30.
func sampleDescriptor() *wasm.Descriptor {
	return &wasm.Descriptor{
		Imports: []wasm.Import{
			{Module: "env", Name: "log_i32", Sym: "imported_log_i32", Sig: wasm.LogSignature},
		},
		Functions: []wasm.Function{
			{
				Name:   "calculate",
				Sig:    wasm.Signature{Results: i32},
				Locals: []wasm.Local{{Name: "temp_for_log", Type: wasm.I32}},
				Body: wasm.Program{
					wasm.Const(10),
					wasm.Const(2),
					wasm.Const(5),
					wasm.Mul(),
					wasm.Add(),
					wasm.LocalTee("temp_for_log"),
					wasm.Call("imported_log_i32"),
					wasm.LocalGet("temp_for_log"),
					wasm.Const(30),
					wasm.Add(),
				},
			},
			{
				Name: "main",
				Sig:  wasm.Signature{Results: i32},
				Body: wasm.Program{wasm.Call("calculate"), wasm.Return()},
			},
		},
		Exports: []wasm.Export{
			{Name: "calculate", Func: "calculate"},
			{Name: "main", Func: "main"},
		},
		Requires: []wasm.Signature{wasm.LogSignature},
	}
}

func TestAssembleHeaderAndSections(t *testing.T) {
	mod, err := wasm.Assemble(sampleDescriptor())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bin := mod.Bytes()
	if !bytes.Equal(bin[:8], []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}) {
		t.Fatalf("bad header % x", bin[:8])
	}

	var ids []byte
	for _, s := range parseSections(t, bin[8:]) {
		ids = append(ids, s.id)
	}
	want := []byte{1, 2, 3, 7, 10}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("section order mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleGoldenBytes(t *testing.T) {
	d := &wasm.Descriptor{
		Functions: []wasm.Function{
			{Name: "f", Sig: wasm.Signature{Results: i32}, Body: wasm.Program{wasm.Const(42)}},
		},
		Exports: []wasm.Export{{Name: "f", Func: "f"}},
	}
	mod, err := wasm.Assemble(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []byte{
		0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7F, // type: () -> (i32)
		0x03, 0x02, 0x01, 0x00, // function: type 0
		0x07, 0x05, 0x01, 0x01, 'f', 0x00, 0x00, // export "f" func 0
		0x0A, 0x06, 0x01, 0x04, 0x00, 0x41, 0x2A, 0x0B, // code: i32.const 42; end
	}
	if diff := cmp.Diff(want, mod.Bytes()); diff != "" {
		t.Errorf("binary mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleSampleCode(t *testing.T) {
	mod, err := wasm.Assemble(sampleDescriptor())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var code []byte
	for _, s := range parseSections(t, mod.Bytes()[8:]) {
		if s.id == 10 {
			code = s.body
		}
	}

	// Two bodies: calculate (one i32 local) then main.
	calculate := []byte{
		0x01, 0x01, 0x7F, // 1 local group: 1 x i32
		0x41, 0x0A, 0x41, 0x02, 0x41, 0x05, 0x6C, 0x6A,
		0x22, 0x00, // local.tee 0
		0x10, 0x00, // call import 0
		0x20, 0x00, // local.get 0
		0x41, 0x1E, 0x6A,
		0x0B,
	}
	main := []byte{0x00, 0x10, 0x01, 0x0F, 0x0B} // call 1; return; end

	var want []byte
	want = append(want, 0x02, byte(len(calculate)))
	want = append(want, calculate...)
	want = append(want, byte(len(main)))
	want = append(want, main...)

	if diff := cmp.Diff(want, code); diff != "" {
		t.Errorf("code section mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleDeterministic(t *testing.T) {
	a, err := wasm.Assemble(sampleDescriptor())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := wasm.Assemble(sampleDescriptor())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Equal(b) {
		t.Error("assembling the same descriptor twice produced different bytes")
	}
	if a.Digest() != b.Digest() {
		t.Error("digests differ")
	}
}

func TestBytesReturnsCopy(t *testing.T) {
	mod, _ := wasm.Assemble(sampleDescriptor())
	bin := mod.Bytes()
	bin[0] = 0xFF
	if mod.Bytes()[0] != 0x00 {
		t.Error("mutating Bytes() result changed the module")
	}
}

func TestUnresolvedSymbols(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *wasm.Descriptor)
		kind   string
	}{
		{"unknown call", func(d *wasm.Descriptor) {
			d.Functions[0].Body[6] = wasm.Call("nope")
		}, "function"},
		{"unknown local", func(d *wasm.Descriptor) {
			d.Functions[0].Body[7] = wasm.LocalGet("nope")
		}, "local"},
		{"unknown export target", func(d *wasm.Descriptor) {
			d.Exports = append(d.Exports, wasm.Export{Name: "x", Func: "nope"})
		}, "export"},
		{"duplicate function", func(d *wasm.Descriptor) {
			d.Functions[1].Name = "calculate"
		}, "function"},
		{"duplicate local", func(d *wasm.Descriptor) {
			d.Functions[0].Locals = append(d.Functions[0].Locals, wasm.Local{Name: "temp_for_log", Type: wasm.I32})
		}, "local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sampleDescriptor()
			tt.mutate(d)
			mod, err := wasm.Assemble(d)
			if mod.Len() != 0 {
				t.Error("expected no output on failure")
			}
			var unres *wasm.UnresolvedSymbolError
			if !errors.As(err, &unres) {
				t.Fatalf("expected UnresolvedSymbolError, got %v", err)
			}
			if !errors.Is(err, wasm.ErrUnresolvedSymbol) {
				t.Error("expected errors.Is(ErrUnresolvedSymbol)")
			}
			if unres.Kind != tt.kind {
				t.Errorf("expected kind %q, got %q", tt.kind, unres.Kind)
			}
		})
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *wasm.Descriptor)
		fn     string
		index  int
		msg    string
	}{
		{"calculate leaves nothing", func(d *wasm.Descriptor) {
			d.Functions[0].Body = wasm.Program{wasm.Const(1), wasm.Call("imported_log_i32")}
		}, "calculate", 2, "leaves 0 value(s)"},
		{"calculate leaves two", func(d *wasm.Descriptor) {
			d.Functions[0].Body = wasm.Program{wasm.Const(1), wasm.Const(2)}
		}, "calculate", 2, "leaves 2 value(s)"},
		{"add underflow", func(d *wasm.Descriptor) {
			d.Functions[0].Body = wasm.Program{wasm.Const(1), wasm.Add()}
		}, "calculate", 1, "operand stack is empty"},
		{"call without argument", func(d *wasm.Descriptor) {
			d.Functions[0].Body = wasm.Program{wasm.Call("imported_log_i32"), wasm.Const(1)}
		}, "calculate", 0, "argument 0"},
		{"tee on empty stack", func(d *wasm.Descriptor) {
			d.Functions[0].Body = wasm.Program{wasm.LocalTee("temp_for_log")}
		}, "calculate", 0, "value for $temp_for_log"},
		{"return without value", func(d *wasm.Descriptor) {
			d.Functions[1].Body = wasm.Program{wasm.Return()}
		}, "main", 0, "return needs 1"},
		{"code after return", func(d *wasm.Descriptor) {
			d.Functions[1].Body = wasm.Program{wasm.Call("calculate"), wasm.Return(), wasm.Const(1)}
		}, "main", 2, "unreachable"},
		{"unknown opcode", func(d *wasm.Descriptor) {
			d.Functions[1].Body = wasm.Program{{Op: 0x99}}
		}, "main", 0, "unknown instruction"},
		{"missing log import", func(d *wasm.Descriptor) {
			d.Imports = nil
			d.Functions[0].Body = wasm.Program{wasm.Const(1)}
		}, "", -1, "required signature (i32) -> ()"},
		{"wrong import signature", func(d *wasm.Descriptor) {
			d.Imports[0].Sig = wasm.Signature{Params: i32, Results: i32}
		}, "", -1, "required signature"},
		{"duplicate export", func(d *wasm.Descriptor) {
			d.Exports = append(d.Exports, wasm.Export{Name: "main", Func: "calculate"})
		}, "", -1, "duplicate export"},
		{"empty import name", func(d *wasm.Descriptor) {
			d.Imports[0].Name = ""
		}, "", -1, "empty module or function name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sampleDescriptor()
			tt.mutate(d)
			mod, err := wasm.Assemble(d)
			if mod.Len() != 0 {
				t.Error("expected no output on failure")
			}
			var verr *wasm.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if !errors.Is(err, wasm.ErrValidation) {
				t.Error("expected errors.Is(ErrValidation)")
			}
			if verr.Func != tt.fn || verr.Index != tt.index {
				t.Errorf("expected location %s[%d], got %s[%d]", tt.fn, tt.index, verr.Func, verr.Index)
			}
			if !strings.Contains(verr.Error(), tt.msg) {
				t.Errorf("error %q should contain %q", verr.Error(), tt.msg)
			}
		})
	}
}

func TestValidateWithoutEncoding(t *testing.T) {
	if err := wasm.Validate(sampleDescriptor()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWAT(t *testing.T) {
	wat := sampleDescriptor().WAT()

	expected := []string{
		`(import "env" "log_i32" (func $imported_log_i32 (param i32)))`,
		`(func $calculate (result i32) (local $temp_for_log i32)`,
		`local.tee $temp_for_log`,
		`call $imported_log_i32`,
		`i32.const 30`,
		`(export "main" (func $main))`,
	}
	for _, line := range expected {
		if !strings.Contains(wat, line) {
			t.Errorf("WAT output should contain %q\n%s", line, wat)
		}
	}
}

func TestWriteAndReadFile(t *testing.T) {
	mod, err := wasm.Assemble(sampleDescriptor())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "out", "application.wasm")
	if err := wasm.WriteFile(path, mod); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := wasm.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(data, mod.Bytes()) {
		t.Error("read bytes differ from written module")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the module in output dir, found %d entries", len(entries))
	}
}

func TestWriteFileFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	os.WriteFile(blocker, []byte("x"), 0o644)

	mod, _ := wasm.Assemble(sampleDescriptor())
	err := wasm.WriteFile(filepath.Join(blocker, "application.wasm"), mod)
	if !errors.Is(err, wasm.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}

	_, err = wasm.ReadFile(filepath.Join(dir, "missing.wasm"))
	if !errors.Is(err, wasm.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

type section struct {
	id   byte
	body []byte
}

func parseSections(t *testing.T, data []byte) []section {
	t.Helper()
	var out []section
	for len(data) > 0 {
		id := data[0]
		size, n := readULEB(data[1:])
		start := 1 + n
		if start+int(size) > len(data) {
			t.Fatalf("section %d overruns input", id)
		}
		out = append(out, section{id: id, body: data[start : start+int(size)]})
		data = data[start+int(size):]
	}
	return out
}

func readULEB(data []byte) (uint64, int) {
	var v uint64
	var shift uint
	for i, b := range data {
		v |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return v, i + 1
		}
		shift += 7
	}
	return v, len(data)
}
