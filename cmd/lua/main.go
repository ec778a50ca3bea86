// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

// Command lua is the REPL/script-runner driver for the lua package
// (specification §6.4): "lua [file]" executes a file then enters the
// REPL, or enters the REPL immediately with no file.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"lumalang.dev/lua"
)

func main() {
	var showDebug bool
	var exprs []string

	rootCommand := &cobra.Command{
		Use:           "lua [file]",
		Short:         "run or interactively evaluate Lua 5.4 source",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCommand.PersistentFlags().BoolVar(&showDebug, "debug", false, "show debugging output")
	rootCommand.Flags().StringArrayVarP(&exprs, "execute", "e", nil, "execute `statement` before running the file or REPL")
	rootCommand.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		initLogging(showDebug)
		return nil
	}
	rootCommand.AddCommand(newDisasmCommand())
	rootCommand.RunE = func(cmd *cobra.Command, args []string) error {
		env := lua.New(lua.WithOutput(os.Stdout))
		ctx := cmd.Context()
		for _, src := range exprs {
			if _, err := env.EvalChunk(ctx, []byte(src)); err != nil {
				return err
			}
		}
		if len(args) == 1 {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if _, err := env.EvalChunk(ctx, src); err != nil {
				reportError(err)
				os.Exit(1)
			}
		}
		return runREPL(ctx, env, os.Stdin, os.Stdout)
	}

	ctx := context.Background()
	if err := rootCommand.ExecuteContext(ctx); err != nil {
		initLogging(showDebug)
		reportError(err)
		os.Exit(1)
	}
}

// runREPL implements the driver loop of specification §6.4: prompt "> "
// for fresh input, ">> " while a chunk is pending (FeedLine reported
// incomplete input), exit on EOF.
func runREPL(ctx context.Context, env *lua.Environment, in io.Reader, out io.Writer) error {
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}
	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			prompt := "> "
			if env.IsFeedPending() {
				prompt = ">> "
			}
			fmt.Fprint(out, prompt)
		}
		if !scanner.Scan() {
			if env.IsFeedPending() {
				fmt.Fprintln(out)
			}
			return scanner.Err()
		}
		line := scanner.Text()
		results, err := env.FeedLine(ctx, []byte(line))
		if err != nil {
			if lua.IsIncomplete(err) {
				continue
			}
			reportError(err)
			env.ClearFeedPending()
			continue
		}
		appendHistory(line)
		for _, v := range results {
			fmt.Fprintln(out, env.ToString(v))
		}
	}
}

// reportError formats an error the way specification §7 describes:
// printed to stderr with source-byte-range diagnostics when available.
func reportError(err error) {
	fmt.Fprintf(os.Stderr, "lua: %v\n", err)
}

var initLogOnce sync.Once

func initLogging(showDebug bool) {
	initLogOnce.Do(func() {
		setupLogging(showDebug)
	})
}
