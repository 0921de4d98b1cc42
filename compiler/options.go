package compiler

import (
	"runtime"

	"github.com/caffeineduck/wexpr/codegen"
	"go.uber.org/zap"
)

// Option configures compilation.
type Option func(*config)

type config struct {
	imports     codegen.Imports
	concurrency int
	logger      *zap.Logger
}

func defaultConfig() config {
	return config{
		imports:     codegen.DefaultImports(),
		concurrency: runtime.GOMAXPROCS(0),
		logger:      zap.NewNop(),
	}
}

// WithImport sets the host module and function name the print side effect
// is imported from. Default is env.log_i32.
func WithImport(module, name string) Option {
	return func(c *config) {
		c.imports.Module = module
		c.imports.Name = name
	}
}

// WithImportSymbol sets the in-module symbol of the imported function.
func WithImportSymbol(sym string) Option {
	return func(c *config) {
		c.imports.Symbol = sym
	}
}

// WithConcurrency bounds the number of parallel compilations in CompileAll.
// Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
