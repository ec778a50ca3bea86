// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package stdlib_test

import (
	"bytes"
	"testing"

	"lumalang.dev/lua/internal/compile"
	"lumalang.dev/lua/internal/parser"
	"lumalang.dev/lua/internal/stdlib"
	"lumalang.dev/lua/internal/vm"
)

// newVM and run give every stdlib test file the same pipeline used by
// internal/vm/vm_test.go: parse, resolve, compile, run. Grounded on the
// teacher's table-driven style for exercising auxlib.go functions
// (internal/mylua/stdlib_test.go) through real chunks rather than by
// calling Go functions directly, since most of this library's behavior
// is only observable at the Lua level (argument coercion, multiple
// returns, error formatting).
func newVM(out *bytes.Buffer) *vm.VM {
	v := vm.New()
	stdlib.Open(v, &stdlib.Options{Output: out, Seed: 1})
	return v
}

func run(t *testing.T, v *vm.VM, src string) []vm.Value {
	t.Helper()
	block, err := parser.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	ann, err := compile.Resolve(block)
	if err != nil {
		t.Fatalf("Resolve(%q): %v", src, err)
	}
	proto := compile.Compile(src, block, ann)
	results, err := v.Run(proto, nil)
	if err != nil {
		t.Fatalf("Run(%q): %v", src, err)
	}
	return results
}

func runPrint(t *testing.T, src string) string {
	t.Helper()
	var buf bytes.Buffer
	v := newVM(&buf)
	run(t, v, src)
	return buf.String()
}
