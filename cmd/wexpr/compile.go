package main

import (
	"fmt"
	"strings"

	"github.com/caffeineduck/wexpr/ast"
	"github.com/caffeineduck/wexpr/compiler"
	"github.com/caffeineduck/wexpr/wasm"
	"github.com/spf13/cobra"
)

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile [output]",
		Short: "Compile an expression to a WebAssembly module",
		Long: `Compile an expression tree into a WebAssembly binary.

The expression can be provided via:
  - Inline flag: wexpr compile -e 'print(1 + 2) * 3'
  - Tree file:   wexpr compile --tree expr.yaml (YAML, JSON or infix text)
  - Neither:     the built-in tree add(print(10 + (2 * 5)), 30)

The module is written to output/application.wasm unless an output path is
given. It imports one function (env.log_i32 by default) and exports
"calculate" and "main".`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompile,
	}

	cmd.Flags().StringP("expr", "e", "", "Infix expression to compile")
	cmd.Flags().StringP("tree", "t", "", "Expression tree file (.yaml, .yml, .json or infix text)")
	cmd.Flags().Bool("emit-wat", false, "Also write the text form next to the binary (.wat)")
	return cmd
}

func runCompile(cmd *cobra.Command, args []string) error {
	expr, _ := cmd.Flags().GetString("expr")
	tree, _ := cmd.Flags().GetString("tree")
	emitWAT, _ := cmd.Flags().GetBool("emit-wat")

	output := defaultModulePath
	if len(args) > 0 {
		output = args[0]
	}

	root, err := loadExpression(expr, tree)
	if err != nil {
		return err
	}

	logger := newLogger(cmd)
	defer logger.Sync()

	artifact, err := compiler.Build(root, compilerOptions(cmd, logger)...)
	if err != nil {
		return err
	}

	if err := wasm.WriteFile(output, artifact.Module); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "compiled %s (%d bytes) to %s\n", ast.Format(root), artifact.Module.Len(), output)

	if emitWAT {
		watPath := strings.TrimSuffix(output, ".wasm") + ".wat"
		if err := wasm.WriteText(watPath, artifact.Descriptor); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "text form written to %s\n", watPath)
	}
	return nil
}

func loadExpression(expr, tree string) (ast.Node, error) {
	switch {
	case expr != "" && tree != "":
		return nil, fmt.Errorf("--expr and --tree are mutually exclusive")
	case expr != "":
		return ast.Parse(expr)
	case tree != "":
		return ast.LoadFile(tree)
	default:
		return ast.Sample(), nil
	}
}
