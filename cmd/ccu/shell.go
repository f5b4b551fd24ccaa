package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

// lineReader is the part of *readline.Instance the shell loop uses.
type lineReader interface {
	Readline() (string, error)
}

func shellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell running the same commands on one open session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "ccu> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				AutoComplete:    shellCompleter(newShellTree(a)),
			})
			if err != nil {
				return fmt.Errorf("failed to create readline: %w", err)
			}
			defer rl.Close()

			return runShell(cmd.Context(), a, rl, rl.Stdout())
		},
	}
}

// newShellTree returns the command tree run for one shell line. Every line
// gets a fresh tree so flag values never leak between lines.
func newShellTree(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "ccu",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addCommands(root, a)

	return root
}

func shellCompleter(tree *cobra.Command) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	for _, c := range tree.Commands() {
		var sub []readline.PrefixCompleterInterface
		for _, s := range c.Commands() {
			sub = append(sub, readline.PcItem(s.Name()))
		}
		items = append(items, readline.PcItem(c.Name(), sub...))
	}
	items = append(items, readline.PcItem("help"), readline.PcItem("exit"))

	return readline.NewPrefixCompleter(items...)
}

// runShell reads commands from rl until exit, EOF or ctx ends. Command
// errors are printed and the loop continues.
func runShell(ctx context.Context, a *app, rl lineReader, out io.Writer) error {
	fmt.Fprintln(out, "ccu shell, type 'help' for commands and 'exit' to quit")

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			// EOF
			return nil
		}

		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch strings.ToLower(args[0]) {
		case "exit", "quit", "q":
			return nil
		case "shell":
			fmt.Fprintln(out, "already in the shell")
			continue
		}

		tree := newShellTree(a)
		tree.SetArgs(args)
		tree.SetOut(out)
		tree.SetErr(out)
		if err := tree.ExecuteContext(ctx); err != nil {
			fmt.Fprintf(out, "Error: %s\n", describeError(err))
		}
	}
}
