package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caffeineduck/wexpr/ast"
	"github.com/caffeineduck/wexpr/codegen"
	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func newReplCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive expression REPL",
		Long: `Start an interactive REPL. Each line is parsed, compiled to a module,
linked and run; logged values are printed, then "=> " and the result.

Features:
  - Command history (up/down arrows)
  - Line editing (left/right, backspace, delete)
  - History search (Ctrl+R)
  - ":wat <expr>" shows the text form of the compiled module

Type 'exit' or 'quit' to end the session, or press Ctrl+D.`,
		Args: cobra.NoArgs,
		RunE: runRepl,
	}

	cmd.Flags().String("history", "", "History file path (default: ~/.wexpr_history)")
	cmd.Flags().Duration("timeout", 5*time.Second, "Execution timeout per line")
	return cmd
}

func runRepl(cmd *cobra.Command, args []string) error {
	historyFile, _ := cmd.Flags().GetString("history")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".wexpr_history")
	}

	logger := newLogger(cmd)
	defer logger.Sync()

	h, err := newHost(cmd, logger)
	if err != nil {
		return err
	}
	defer h.Close()

	ev := newEvaluator(cmd, h, logger, timeout)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            ">>> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdout:            cmd.OutOrStdout(),
		Stderr:            cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	if isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Fprintln(cmd.ErrOrStderr(), "wexpr REPL (type 'exit' to quit, Ctrl+D to exit)")
	}

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		if err := replLine(context.Background(), ev, line, cmd.OutOrStdout()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}
}

// replLine handles one input line.
func replLine(ctx context.Context, ev *evaluator, line string, out io.Writer) error {
	if src, ok := strings.CutPrefix(line, ":wat"); ok {
		root, err := ast.Parse(src)
		if err != nil {
			return err
		}
		desc, err := codegen.Generate(root, codegen.Imports{
			Module: ev.module,
			Name:   ev.name,
			Symbol: codegen.DefaultSymbol,
		})
		if err != nil {
			return err
		}
		fmt.Fprint(out, desc.WAT())
		return nil
	}

	res, err := ev.eval(ctx, line)
	for _, v := range res.Output {
		fmt.Fprintln(out, v)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "=> %d\n", res.Value)
	return nil
}
