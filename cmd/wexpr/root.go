package main

import (
	"io"
	"os"

	"github.com/caffeineduck/wexpr/codegen"
	"github.com/caffeineduck/wexpr/compiler"
	"github.com/caffeineduck/wexpr/host"
	"github.com/caffeineduck/wexpr/hostfunc"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultModulePath = "output/application.wasm"

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wexpr",
		Short: "Compile arithmetic expressions to WebAssembly and run them",
		Long: `wexpr - compile small arithmetic/print expressions to WebAssembly modules
and run them on an embedded wazero host.

An expression uses integers, +, *, parentheses and print(...), for example
"print(10 + 2 * 5) + 30". print passes its value to the host function the
module imports (env.log_i32 by default) and evaluates to the same value.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolP("verbose", "v", false, "Log pipeline stages to stderr")
	root.PersistentFlags().String("import-module", codegen.DefaultModule, "Host module the log function is imported from")
	root.PersistentFlags().String("import-name", codegen.DefaultName, "Name of the imported log function")
	root.PersistentFlags().Bool("no-cache", false, "Disable the on-disk compilation cache")

	root.AddCommand(
		newCompileCmd(),
		newRunCmd(),
		newReplCmd(),
		newServeCmd(),
	)
	return root
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger returns a development logger on stderr when --verbose is set.
// Level colours are used only on a terminal.
func newLogger(cmd *cobra.Command) *zap.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return zap.NewNop()
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	if f, ok := cmd.ErrOrStderr().(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr())),
		zapcore.DebugLevel,
	)
	return zap.New(core)
}

func importNames(cmd *cobra.Command) (module, name string) {
	module, _ = cmd.Flags().GetString("import-module")
	name, _ = cmd.Flags().GetString("import-name")
	return module, name
}

func compilerOptions(cmd *cobra.Command, logger *zap.Logger) []compiler.Option {
	module, name := importNames(cmd)
	return []compiler.Option{
		compiler.WithImport(module, name),
		compiler.WithLogger(logger),
	}
}

// logRegistry binds the configured import to a writer, one value per line.
func logRegistry(cmd *cobra.Command, w io.Writer) *hostfunc.Registry {
	module, name := importNames(cmd)
	return hostfunc.NewRegistry().MustRegister(hostfunc.Log(module, name, w))
}

func newHost(cmd *cobra.Command, logger *zap.Logger, extra ...host.HostOption) (*host.Host, error) {
	noCache, _ := cmd.Flags().GetBool("no-cache")

	opts := []host.HostOption{host.WithLogger(logger)}
	if !noCache {
		opts = append(opts, host.WithDiskCache())
	}
	opts = append(opts, extra...)
	return host.New(opts...)
}
