// Package compiler runs the full pipeline from an expression tree to a
// verified module binary: code generation, then assembly and validation.
//
// Compilations share no state and may run in parallel:
//
//	mod, err := compiler.Compile(ast.Sample())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	wasm.WriteFile("output/application.wasm", mod)
package compiler

import (
	"context"
	"fmt"
	"time"

	"github.com/caffeineduck/wexpr/ast"
	"github.com/caffeineduck/wexpr/codegen"
	"github.com/caffeineduck/wexpr/wasm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Artifact is the output of one compilation.
type Artifact struct {
	Descriptor *wasm.Descriptor
	Module     wasm.CompiledModule
}

// Build lowers root and assembles it. On error nothing is returned.
func Build(root ast.Node, opts ...Option) (*Artifact, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return build(root, cfg)
}

func build(root ast.Node, cfg config) (*Artifact, error) {
	start := time.Now()

	desc, err := codegen.Generate(root, cfg.imports)
	if err != nil {
		cfg.logger.Debug("generation failed", zap.String("stage", "generate"), zap.Error(err))
		return nil, err
	}

	mod, err := wasm.Assemble(desc)
	if err != nil {
		cfg.logger.Debug("assembly failed", zap.String("stage", "assemble"), zap.Error(err))
		return nil, err
	}

	cfg.logger.Debug("compiled",
		zap.String("module", cfg.imports.Module),
		zap.String("import", cfg.imports.Name),
		zap.Int("instructions", len(desc.Function(codegen.CalculateFunc).Body)),
		zap.Int("bytes", mod.Len()),
		zap.Duration("duration", time.Since(start)),
	)
	return &Artifact{Descriptor: desc, Module: mod}, nil
}

// Compile is Build without the descriptor.
func Compile(root ast.Node, opts ...Option) (wasm.CompiledModule, error) {
	a, err := Build(root, opts...)
	if err != nil {
		return wasm.CompiledModule{}, err
	}
	return a.Module, nil
}

// CompileAll compiles every root in parallel. Results are in input order.
// The first failure cancels the remaining work and is returned tagged with
// its index.
func CompileAll(ctx context.Context, roots []ast.Node, opts ...Option) ([]wasm.CompiledModule, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	out := make([]wasm.CompiledModule, len(roots))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)

	for i, root := range roots {
		i, root := i, root
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a, err := build(root, cfg)
			if err != nil {
				return fmt.Errorf("expression %d: %w", i, err)
			}
			out[i] = a.Module
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
