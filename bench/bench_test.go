// Package bench measures the compile and run paths.
//
// Run with: go test -v -run=Test ./bench/
// Benchmarks: go test -bench=. ./bench/
package bench

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/caffeineduck/wexpr/ast"
	"github.com/caffeineduck/wexpr/compiler"
	"github.com/caffeineduck/wexpr/host"
	"github.com/caffeineduck/wexpr/hostfunc"
)

func registry() *hostfunc.Registry {
	var rec hostfunc.Recorder
	return hostfunc.NewRegistry().MustRegister(rec.Binding("env", "log_i32"))
}

// deepTree returns a left-leaning chain of n additions with a print every
// tenth level.
func deepTree(n int) ast.Node {
	var root ast.Node = ast.Num(1)
	for i := 0; i < n; i++ {
		root = ast.Add(root, ast.Num(int32(i)))
		if i%10 == 0 {
			root = ast.PrintOf(root)
		}
	}
	return root
}

func mustCompile(tb testing.TB, root ast.Node) []byte {
	tb.Helper()
	mod, err := compiler.Compile(root)
	if err != nil {
		tb.Fatal(err)
	}
	return mod.Bytes()
}

// --- Compile ---

func BenchmarkCompile_Sample(b *testing.B) {
	root := ast.Sample()
	for i := 0; i < b.N; i++ {
		compiler.Compile(root)
	}
}

func BenchmarkCompile_Deep10k(b *testing.B) {
	root := deepTree(10000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		compiler.Compile(root)
	}
}

func BenchmarkCompileAll_64(b *testing.B) {
	roots := make([]ast.Node, 64)
	for i := range roots {
		roots[i] = deepTree(500 + i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		compiler.CompileAll(context.Background(), roots)
	}
}

// --- Run: cold start (new host each time) ---

func BenchmarkRun_ColdStart(b *testing.B) {
	bin := mustCompile(b, ast.Sample())
	reg := registry()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h, _ := host.New()
		h.Run(context.Background(), bin, reg)
		h.Close()
	}
}

// --- Run: warm start (reuse host) ---

func BenchmarkRun_WarmStart(b *testing.B) {
	bin := mustCompile(b, ast.Sample())
	reg := registry()
	h, _ := host.New()
	defer h.Close()

	h.Run(context.Background(), bin, reg)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Run(context.Background(), bin, reg)
	}
}

func BenchmarkRun_WarmStart_Interpreter(b *testing.B) {
	bin := mustCompile(b, ast.Sample())
	reg := registry()
	h, _ := host.New(host.WithInterpreter())
	defer h.Close()

	h.Run(context.Background(), bin, reg)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Run(context.Background(), bin, reg)
	}
}

// --- Call: reuse one instance ---

func BenchmarkCall_Instance(b *testing.B) {
	ctx := context.Background()
	h, _ := host.New()
	defer h.Close()

	mod, err := h.Load(ctx, mustCompile(b, deepTree(1000)))
	if err != nil {
		b.Fatal(err)
	}
	linked, err := mod.Link(registry())
	if err != nil {
		b.Fatal(err)
	}
	inst, err := linked.Instantiate(ctx)
	if err != nil {
		b.Fatal(err)
	}
	defer inst.Close(ctx)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		inst.Call(ctx, "main")
	}
}

// =============================================================================
// DISK CACHE (simulates CLI usage)
// =============================================================================

func TestDiskCacheBenefit(t *testing.T) {
	cacheDir, _ := os.MkdirTemp("", "wexpr-bench-cache")
	defer os.RemoveAll(cacheDir)

	bin := mustCompile(t, deepTree(20000))
	reg := registry()

	var times []time.Duration

	// Each iteration is a separate CLI invocation with a new host.
	for i := 0; i < 5; i++ {
		start := time.Now()

		h, err := host.New(host.WithDiskCache(cacheDir))
		if err != nil {
			t.Fatal(err)
		}
		result := h.Run(context.Background(), bin, reg)
		h.Close()
		if result.Error != nil {
			t.Fatalf("run %d: %v", i, result.Error)
		}

		times = append(times, time.Since(start))
	}

	fmt.Println()
	fmt.Printf("=== Disk Cache Benefit (%s/%s) ===\n", runtime.GOOS, runtime.GOARCH)
	for i, d := range times {
		label := "cached"
		if i == 0 {
			label = "compile"
		}
		fmt.Printf("Call %d (%s): %v\n", i+1, label, d)
	}
	fmt.Println()
}

func TestMemoryUsage(t *testing.T) {
	var m runtime.MemStats

	runtime.GC()
	runtime.ReadMemStats(&m)
	before := m.Alloc

	h, _ := host.New()
	bin := mustCompile(t, ast.Sample())
	reg := registry()
	for i := 0; i < 100; i++ {
		h.Run(context.Background(), bin, reg)
	}

	runtime.ReadMemStats(&m)
	after := m.Alloc

	h.Close()

	runtime.GC()
	runtime.ReadMemStats(&m)
	afterGC := m.Alloc

	t.Logf("Memory before: %d KB", before/1024)
	t.Logf("Memory after 100 runs: %d KB", after/1024)
	t.Logf("Memory after GC: %d KB", afterGC/1024)
}
