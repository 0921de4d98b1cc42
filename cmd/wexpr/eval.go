package main

import (
	"context"
	"time"

	"github.com/caffeineduck/wexpr/ast"
	"github.com/caffeineduck/wexpr/compiler"
	"github.com/caffeineduck/wexpr/host"
	"github.com/caffeineduck/wexpr/hostfunc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// evaluator compiles and runs single expressions on a shared host. Used by
// repl and serve.
type evaluator struct {
	host        *host.Host
	compileOpts []compiler.Option
	module      string
	name        string
	timeout     time.Duration
}

func newEvaluator(cmd *cobra.Command, h *host.Host, logger *zap.Logger, timeout time.Duration) *evaluator {
	module, name := importNames(cmd)
	return &evaluator{
		host:        h,
		compileOpts: compilerOptions(cmd, logger),
		module:      module,
		name:        name,
		timeout:     timeout,
	}
}

type evalResult struct {
	Value  int32
	Output []int32
	State  host.State
}

// registry returns a fresh registry recording into rec.
func (e *evaluator) registry(rec *hostfunc.Recorder) *hostfunc.Registry {
	return hostfunc.NewRegistry().MustRegister(rec.Binding(e.module, e.name))
}

func (e *evaluator) eval(ctx context.Context, src string) (evalResult, error) {
	root, err := ast.Parse(src)
	if err != nil {
		return evalResult{}, err
	}
	mod, err := compiler.Compile(root, e.compileOpts...)
	if err != nil {
		return evalResult{}, err
	}
	return e.run(ctx, mod.Bytes(), host.WithEntryPoint("main"))
}

func (e *evaluator) run(ctx context.Context, bin []byte, opts ...host.Option) (evalResult, error) {
	var rec hostfunc.Recorder
	opts = append([]host.Option{host.WithTimeout(e.timeout)}, opts...)

	result := e.host.Run(ctx, bin, e.registry(&rec), opts...)
	return evalResult{
		Value:  result.Value,
		Output: rec.Values(),
		State:  result.State,
	}, result.Error
}
