package main

import (
	"context"
	"fmt"
	"time"

	"github.com/caffeineduck/wexpr/host"
	"github.com/caffeineduck/wexpr/wasm"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [module]",
		Short: "Load, link and run a compiled module",
		Long: `Load a WebAssembly module, bind its log import, instantiate it and call
its entry point.

Logged values are printed one per line, followed by the return value.
Defaults to output/application.wasm.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRun,
	}

	cmd.Flags().Duration("timeout", 30*time.Second, "Execution timeout")
	cmd.Flags().String("entry", "main", "Exported function to call")
	cmd.Flags().Bool("interpreter", false, "Use the interpreter instead of the compiler")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	entry, _ := cmd.Flags().GetString("entry")
	interpreter, _ := cmd.Flags().GetBool("interpreter")

	path := defaultModulePath
	if len(args) > 0 {
		path = args[0]
	}

	bin, err := wasm.ReadFile(path)
	if err != nil {
		return err
	}

	logger := newLogger(cmd)
	defer logger.Sync()

	var extra []host.HostOption
	if interpreter {
		extra = append(extra, host.WithInterpreter())
	}
	h, err := newHost(cmd, logger, extra...)
	if err != nil {
		return err
	}
	defer h.Close()

	out := cmd.OutOrStdout()
	result := h.Run(context.Background(), bin, logRegistry(cmd, out),
		host.WithTimeout(timeout),
		host.WithEntryPoint(entry),
	)
	if result.Error != nil {
		return fmt.Errorf("%s: %w", path, result.Error)
	}

	fmt.Fprintf(out, "%s returned: %d\n", entry, result.Value)
	return nil
}
