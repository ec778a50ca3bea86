// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package vm_test

import (
	"testing"

	"lumalang.dev/lua/internal/compile"
	"lumalang.dev/lua/internal/parser"
	"lumalang.dev/lua/internal/stdlib"
	"lumalang.dev/lua/internal/vm"
)

// newVM builds a VM with the standard library installed, for tests that
// exercise builtins like ipairs/select/setmetatable alongside raw opcodes.
func newVM() *vm.VM {
	v := vm.New()
	stdlib.Open(v, nil)
	return v
}

// run compiles and executes src on a fresh VM, grounded on the teacher's
// internal/mylua/vm_test.go shape (State.Load + State.Call), adapted to
// this module's parser → compile → vm pipeline.
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

func TestArithmeticAndCoercion(t *testing.T) {
	tests := []struct {
		src  string
		want vm.Value
	}{
		{"return 1 + 2", vm.Integer(3)},
		{"return 1 + 2.0", vm.Float(3)},
		{"return 7 // 2", vm.Integer(3)},
		{"return -7 // 2", vm.Integer(-4)}, // floor division
		{"return 7 % -2", vm.Integer(-1)},  // sign of divisor
		{"return 2 ^ 10", vm.Float(1024)},
		{"return 10 / 4", vm.Float(2.5)},
		{"return '10' + 1", vm.Integer(11)}, // string-to-number coercion
		{"return 3 & 5", vm.Integer(1)},
		{"return 1 << 4", vm.Integer(16)},
	}
	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			v := vm.New()
			results := run(t, v, test.src)
			if len(results) != 1 {
				t.Fatalf("got %d results, want 1: %v", len(results), results)
			}
			if results[0] != test.want {
				t.Errorf("got %#v, want %#v", results[0], test.want)
			}
		})
	}
}

func TestIntegerDivisionByZeroErrors(t *testing.T) {
	v := vm.New()
	block, err := parser.Parse([]byte("return 1 // 0"))
	if err != nil {
		t.Fatal(err)
	}
	ann, err := compile.Resolve(block)
	if err != nil {
		t.Fatal(err)
	}
	proto := compile.Compile("", block, ann)
	if _, err := v.Run(proto, nil); err == nil {
		t.Fatal("expected a runtime error for integer division by zero")
	}
}

func TestFloatDivisionByZeroIsInf(t *testing.T) {
	v := vm.New()
	results := run(t, v, "return 1.0 / 0")
	f, ok := results[0].(vm.Float)
	if !ok || f <= 0 {
		t.Errorf("got %#v, want +Inf", results[0])
	}
}

func TestMultipleReturnAdjustment(t *testing.T) {
	v := vm.New()
	results := run(t, v, `
		local function three() return 1, 2, 3 end
		local a, b = three()
		return a, b, three()
	`)
	want := []vm.Value{vm.Integer(1), vm.Integer(2), vm.Integer(1), vm.Integer(2), vm.Integer(3)}
	if len(results) != len(want) {
		t.Fatalf("got %d results %v, want %d %v", len(results), results, len(want), want)
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("results[%d] = %#v, want %#v", i, results[i], want[i])
		}
	}
}

func TestVariadicArguments(t *testing.T) {
	v := newVM()
	results := run(t, v, `
		local function f(...) return select('#', ...), ... end
		return f(10, 20, 30)
	`)
	want := []vm.Value{vm.Integer(3), vm.Integer(10), vm.Integer(20), vm.Integer(30)}
	if len(results) != len(want) {
		t.Fatalf("got %v, want %v", results, want)
	}
}

// TestBorderProperty checks specification §8.1's border property of "#"
// for a table with no __len.
func TestBorderProperty(t *testing.T) {
	v := vm.New()
	results := run(t, v, `
		local t = {1, 2, 3}
		local n = #t
		return n, t[n], t[n+1]
	`)
	n, ok := results[0].(vm.Integer)
	if !ok {
		t.Fatalf("#t = %#v, want an integer", results[0])
	}
	if n != 0 && results[1] == nil {
		t.Errorf("t[#t] is nil, violating the border property")
	}
	if results[2] != nil {
		t.Errorf("t[#t+1] = %#v, want nil", results[2])
	}
}

// TestStackBalance checks specification §8.1's stack-balance invariant:
// evaluating the same chunk repeatedly does not leak operand-stack depth
// between top-level invocations.
func TestStackBalance(t *testing.T) {
	v := newVM()
	for i := 0; i < 100; i++ {
		run(t, v, `
			local t = {}
			for i = 1, 10 do t[i] = i * i end
			local s = 0
			for _, x in ipairs(t) do s = s + x end
		`)
	}
}

func TestMetatableIndexChain(t *testing.T) {
	v := newVM()
	results := run(t, v, `
		local base = {greeting = "hi"}
		local mid = setmetatable({}, {__index = base})
		local leaf = setmetatable({}, {__index = mid})
		return leaf.greeting
	`)
	if s, ok := results[0].(vm.String); !ok || string(s) != "hi" {
		t.Errorf("got %#v, want \"hi\"", results[0])
	}
}

// TestCyclicIndexChainErrors checks that a cyclic __index chain raises a
// controlled runtime error rather than recursing without bound.
func TestCyclicIndexChainErrors(t *testing.T) {
	v := newVM()
	block, err := parser.Parse([]byte(`
		local a = setmetatable({}, {})
		local b = setmetatable({}, {})
		getmetatable(a).__index = b
		getmetatable(b).__index = a
		return a.missing
	`))
	if err != nil {
		t.Fatal(err)
	}
	ann, err := compile.Resolve(block)
	if err != nil {
		t.Fatal(err)
	}
	proto := compile.Compile("", block, ann)
	if _, err := v.Run(proto, nil); err == nil {
		t.Fatal("expected a runtime error for a cyclic __index chain")
	}
}

func TestCallNonFunctionErrors(t *testing.T) {
	v := vm.New()
	block, err := parser.Parse([]byte("local x = 5; x()"))
	if err != nil {
		t.Fatal(err)
	}
	ann, err := compile.Resolve(block)
	if err != nil {
		t.Fatal(err)
	}
	proto := compile.Compile("", block, ann)
	if _, err := v.Run(proto, nil); err == nil {
		t.Fatal("expected an error calling a non-function value")
	}
}
