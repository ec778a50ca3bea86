// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package stdlib

import (
	"strings"

	"lumalang.dev/lua/internal/vm"
)

// OpenTable installs the "table" library, implemented in full per
// SPEC_FULL.md (spec.md §6.3 allows a stub minimum; original_source's
// builtin/mod.rs leans on table.unpack internally, so this module
// completes the library rather than stubbing it).
func OpenTable(v *vm.VM) {
	t := vm.NewTable(0)
	register(t, map[string]func(*vm.VM, []vm.Value) ([]vm.Value, error){
		"insert": tableInsert,
		"remove": tableRemove,
		"concat": tableConcat,
		"sort":   tableSort,
		"unpack": tableUnpack,
		"pack":   tablePack,
	})
	v.Globals.Set(vm.String("table"), t)
}

func tableInsert(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	t, err := checkTable(args, 1)
	if err != nil {
		return nil, err
	}
	n := t.Len()
	switch len(args) {
	case 2:
		return nil, t.Set(vm.Integer(n+1), args[1])
	case 3:
		pos, err := checkInt(args, 2)
		if err != nil {
			return nil, err
		}
		if pos < 1 || pos > n+1 {
			return nil, argError(2, "position out of bounds")
		}
		for i := n + 1; i > pos; i-- {
			t.Set(vm.Integer(i), t.Get(vm.Integer(i-1)))
		}
		return nil, t.Set(vm.Integer(pos), args[2])
	default:
		return nil, argError(2, "wrong number of arguments to 'insert'")
	}
}

func tableRemove(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	t, err := checkTable(args, 1)
	if err != nil {
		return nil, err
	}
	n := t.Len()
	pos, err := optInt(args, 2, n)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return one(nil), nil
	}
	if pos < 1 || pos > n+1 {
		return nil, argError(2, "position out of bounds")
	}
	v := t.Get(vm.Integer(pos))
	for i := pos; i < n; i++ {
		t.Set(vm.Integer(i), t.Get(vm.Integer(i+1)))
	}
	t.Set(vm.Integer(n), nil)
	return one(v), nil
}

func tableConcat(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	t, err := checkTable(args, 1)
	if err != nil {
		return nil, err
	}
	sep, err := optString(args, 2, "")
	if err != nil {
		return nil, err
	}
	i, err := optInt(args, 3, 1)
	if err != nil {
		return nil, err
	}
	j, err := optInt(args, 4, t.Len())
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	for k := i; k <= j; k++ {
		if k > i {
			b.WriteString(sep)
		}
		v := t.Get(vm.Integer(k))
		s, ok := concatElement(v)
		if !ok {
			return nil, argError(1, "invalid value (at index "+vm.ToString(vm.Integer(k))+") in table for 'concat'")
		}
		b.WriteString(s)
	}
	return one(vm.String(b.String())), nil
}

func concatElement(v vm.Value) (string, bool) {
	switch v.(type) {
	case vm.String, vm.Integer, vm.Float:
		return vm.ToString(v), true
	default:
		return "", false
	}
}

func tableSort(vmi *vm.VM, args []vm.Value) ([]vm.Value, error) {
	t, err := checkTable(args, 1)
	if err != nil {
		return nil, err
	}
	n := int(t.Len())
	vals := make([]vm.Value, n)
	for i := 0; i < n; i++ {
		vals[i] = t.Get(vm.Integer(i + 1))
	}
	cmp := arg(args, 2)
	var sortErr error
	less := func(a, b vm.Value) bool {
		if sortErr != nil {
			return false
		}
		if cmp != nil {
			results, err := vmi.Call(cmp, []vm.Value{a, b})
			if err != nil {
				sortErr = err
				return false
			}
			return len(results) > 0 && vm.Truthy(results[0])
		}
		ok, err := vmi.Less(a, b, false)
		if err != nil {
			sortErr = err
			return false
		}
		return ok
	}
	insertionSort(vals, less)
	if sortErr != nil {
		return nil, sortErr
	}
	for i, v := range vals {
		t.Set(vm.Integer(i+1), v)
	}
	return nil, nil
}

// insertionSort avoids sort.Slice's requirement that less be a total,
// panic-free order: a buggy or erroring Lua comparator must surface as a
// Lua error, not a Go panic from an inconsistent ordering.
func insertionSort(vals []vm.Value, less func(a, b vm.Value) bool) {
	for i := 1; i < len(vals); i++ {
		for j := i; j > 0 && less(vals[j], vals[j-1]); j-- {
			vals[j], vals[j-1] = vals[j-1], vals[j]
		}
	}
}

func tableUnpack(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	t, err := checkTable(args, 1)
	if err != nil {
		return nil, err
	}
	i, err := optInt(args, 2, 1)
	if err != nil {
		return nil, err
	}
	j, err := optInt(args, 3, t.Len())
	if err != nil {
		return nil, err
	}
	if i > j {
		return nil, nil
	}
	out := make([]vm.Value, 0, j-i+1)
	for k := i; k <= j; k++ {
		out = append(out, t.Get(vm.Integer(k)))
	}
	return out, nil
}

func tablePack(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	t := vm.NewTable(len(args))
	for i, v := range args {
		t.Set(vm.Integer(i+1), v)
	}
	t.Set(vm.String("n"), vm.Integer(len(args)))
	return one(t), nil
}
