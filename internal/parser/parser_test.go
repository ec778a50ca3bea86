// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package parser

import (
	"testing"

	"lumalang.dev/lua/internal/ast"
)

func TestParseBasics(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"local", "local x = 1"},
		{"local multi", "local x, y = 1, 2"},
		{"if", "if x then return 1 elseif y then return 2 else return 3 end"},
		{"while", "while x do x = x - 1 end"},
		{"repeat", "repeat x = x - 1 until x == 0"},
		{"numeric for", "for i = 1, 10 do print(i) end"},
		{"generic for", "for k, v in pairs(t) do print(k, v) end"},
		{"function decl", "function foo.bar:baz(a, b, ...) return a end"},
		{"local function", "local function fib(n) if n < 2 then return n end return fib(n-1)+fib(n-2) end"},
		{"table ctor", "local t = {1, 2, [3]=4, x=5; 6}"},
		{"method call", "obj:method(1, 2)"},
		{"concat and arith", "local s = 'a' .. 'b' .. 1 + 2 * 3 ^ 2"},
		{"goto label", "::top:: goto top"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Parse([]byte(test.src)); err != nil {
				t.Fatalf("Parse(%q): %v", test.src, err)
			}
		})
	}
}

func TestParsePrecedence(t *testing.T) {
	block, err := Parse([]byte("return 1 + 2 * 3"))
	if err != nil {
		t.Fatal(err)
	}
	if block.Return == nil || len(block.Return.Exprs) != 1 {
		t.Fatalf("expected single return expression, got %+v", block.Return)
	}
	bin, ok := block.Return.Exprs[0].(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected top-level BinaryExpr, got %T", block.Return.Exprs[0])
	}
	if bin.Op != ast.OpAdd {
		t.Fatalf("expected + at top level (lower precedence binds looser), got %v", bin.Op)
	}
	if _, ok := bin.Right.(*ast.BinaryExpr); !ok {
		t.Fatalf("expected * to nest on the right, got %T", bin.Right)
	}
}

func TestParseIncomplete(t *testing.T) {
	_, err := Parse([]byte("if x then"))
	if err == nil {
		t.Fatal("expected error for incomplete chunk")
	}
	if !IsTruncated(err) {
		t.Fatalf("expected truncated-input error, got %v", err)
	}
}
