// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

// Package stdlib implements the Lua standard library surface named in
// specification §6.3: base, string, math, table, coroutine, and minimal
// os/io stubs. Each library is a Go function registered under vm.VM's
// globals table, grounded on the teacher's internal/mylua auxlib.go
// argument-checking helpers (CheckString, NewArgError, and so on)
// adapted to this VM's slice-based calling convention instead of the
// teacher's indexed State stack.
package stdlib

import (
	"fmt"

	"lumalang.dev/lua/internal/vm"
)

// arg returns the i'th argument (1-based, Lua convention), or nil if
// fewer were supplied.
func arg(args []vm.Value, i int) vm.Value {
	if i < 1 || i > len(args) {
		return nil
	}
	return args[i-1]
}

func argError(i int, msg string) error {
	return fmt.Errorf("bad argument #%d (%s)", i, msg)
}

func typeError(i int, want string, got vm.Value) error {
	return argError(i, fmt.Sprintf("%s expected, got %s", want, vm.TypeOf(got)))
}

func checkString(args []vm.Value, i int) (string, error) {
	v := arg(args, i)
	switch v := v.(type) {
	case vm.String:
		return string(v), nil
	case vm.Integer, vm.Float:
		return vm.ToString(v), nil
	default:
		return "", typeError(i, "string", v)
	}
}

func optString(args []vm.Value, i int, def string) (string, error) {
	if arg(args, i) == nil {
		return def, nil
	}
	return checkString(args, i)
}

func checkNumber(args []vm.Value, i int) (vm.Value, error) {
	v := arg(args, i)
	n, ok := vm.ToNumber(v)
	if !ok {
		return nil, typeError(i, "number", v)
	}
	return n, nil
}

func checkFloat(args []vm.Value, i int) (float64, error) {
	n, err := checkNumber(args, i)
	if err != nil {
		return 0, err
	}
	f, _ := vm.ToFloat(n)
	return f, nil
}

func optFloat(args []vm.Value, i int, def float64) (float64, error) {
	if arg(args, i) == nil {
		return def, nil
	}
	return checkFloat(args, i)
}

func checkInt(args []vm.Value, i int) (int64, error) {
	v := arg(args, i)
	n, ok := vm.ToNumber(v)
	if !ok {
		return 0, typeError(i, "number", v)
	}
	iv, ok := vm.ToInteger(n)
	if !ok {
		return 0, argError(i, "number has no integer representation")
	}
	return iv, nil
}

func optInt(args []vm.Value, i int, def int64) (int64, error) {
	if arg(args, i) == nil {
		return def, nil
	}
	return checkInt(args, i)
}

func checkTable(args []vm.Value, i int) (*vm.Table, error) {
	v := arg(args, i)
	t, ok := v.(*vm.Table)
	if !ok {
		return nil, typeError(i, "table", v)
	}
	return t, nil
}

func checkFunction(args []vm.Value, i int) (vm.Value, error) {
	v := arg(args, i)
	switch v.(type) {
	case *vm.Closure, *vm.GoFunction:
		return v, nil
	default:
		return nil, typeError(i, "function", v)
	}
}

func checkThread(args []vm.Value, i int) (*vm.Thread, error) {
	v := arg(args, i)
	t, ok := v.(*vm.Thread)
	if !ok {
		return nil, typeError(i, "coroutine", v)
	}
	return t, nil
}

// register installs fns into tbl, wrapping each as a named *vm.GoFunction
// (grounded on the teacher's SetFuncs, which does the equivalent over a
// State's stack rather than a *vm.Table).
func register(tbl *vm.Table, fns map[string]func(*vm.VM, []vm.Value) ([]vm.Value, error)) {
	for name, fn := range fns {
		tbl.Set(vm.String(name), &vm.GoFunction{Name: name, Func: fn})
	}
}

func one(v vm.Value) []vm.Value { return []vm.Value{v} }
