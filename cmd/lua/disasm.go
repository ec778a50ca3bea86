// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lumalang.dev/lua/internal/compile"
	"lumalang.dev/lua/internal/parser"
)

// newDisasmCommand is a bytecode listing tool (grounded on cmd/zb/luac.go),
// printing the compiled form of a chunk without executing it.
func newDisasmCommand() *cobra.Command {
	var asJSON bool
	c := &cobra.Command{
		Use:                   "disasm FILE",
		Short:                 "print the compiled bytecode of a Lua chunk",
		Args:                  cobra.ExactArgs(1),
		DisableFlagsInUseLine: true,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	c.Flags().BoolVar(&asJSON, "json", false, "emit a JSON listing instead of the text table")
	c.RunE = func(cmd *cobra.Command, args []string) error {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		block, err := parser.Parse(src)
		if err != nil {
			return err
		}
		ann, err := compile.Resolve(block)
		if err != nil {
			return err
		}
		proto := compile.Compile(string(src), block, ann)
		if asJSON {
			data, err := proto.DumpJSON()
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}
		fmt.Print(proto.Listing())
		return nil
	}
	return c
}
