// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package compile

import (
	"testing"

	"lumalang.dev/lua/internal/ast"
	"lumalang.dev/lua/internal/parser"
)

func mustParse(t *testing.T, src string) *ast.Block {
	t.Helper()
	block, err := parser.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return block
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ErrorKind
	}{
		{
			name: "MultipleLabel",
			src:  "do ::top:: ::top:: end",
			kind: MultipleLabel,
		},
		{
			name: "VariadicInNonVariadicFunction",
			src:  "local function f() print(...) end",
			kind: VariadicInNonVariadicFunction,
		},
		{
			name: "BreakOutsideLoop",
			src:  "break",
			kind: BreakOutsideLoop,
		},
		{
			name: "InvalidLabel",
			src:  "goto nowhere",
			kind: InvalidLabel,
		},
		{
			name: "InvalidGotoScope",
			src:  "goto skip; local x = 1; ::skip:: print(x)",
			kind: InvalidGotoScope,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			block := mustParse(t, test.src)
			_, err := Resolve(block)
			if err == nil {
				t.Fatalf("Resolve(%q): expected error kind %v, got nil", test.src, test.kind)
			}
			se, ok := err.(*SemanticError)
			if !ok {
				t.Fatalf("Resolve(%q): got %T, want *SemanticError", test.src, err)
			}
			if se.Kind != test.kind {
				t.Errorf("Resolve(%q): kind = %v, want %v (%v)", test.src, se.Kind, test.kind, se)
			}
		})
	}
}

func TestResolveValidPrograms(t *testing.T) {
	tests := []string{
		"local x = 1; return x",
		"local function fib(n) if n < 2 then return n end return fib(n-1)+fib(n-2) end",
		"local function outer() local x = 0; return function() x = x + 1; return x end end",
		"for i = 1, 10 do print(i) end",
		"for k, v in pairs({}) do print(k, v) end",
		"do ::top:: goto top end",
		"local function f(...) return ... end",
		"while true do break end",
		"repeat local y = 1 until y == 1",
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			block := mustParse(t, src)
			if _, err := Resolve(block); err != nil {
				t.Fatalf("Resolve(%q): %v", src, err)
			}
		})
	}
}

func TestUpvalueCapturePropagatesThroughNesting(t *testing.T) {
	// A variable captured two function levels down must be registered as
	// an upvalue on every intermediate function scope (specification
	// §4.1 step 4), not just the innermost one.
	src := `
		local function outer()
			local x = 1
			return function()
				return function()
					return x
				end
			end
		end
	`
	block := mustParse(t, src)
	ann, err := Resolve(block)
	if err != nil {
		t.Fatal(err)
	}
	if len(ann.FuncInfo) != 3 {
		t.Fatalf("got %d function infos, want 3 (outer, middle, inner)", len(ann.FuncInfo))
	}
	found := 0
	for _, info := range ann.FuncInfo {
		if len(info.Upvalues) > 0 {
			found++
		}
	}
	if found != 2 {
		t.Errorf("got %d functions with upvalues, want 2 (middle captures x as upvalue 0 of outer, inner captures it as upvalue 0 of middle)", found)
	}
}
