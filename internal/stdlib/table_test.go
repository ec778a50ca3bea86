// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package stdlib_test

import (
	"testing"

	"lumalang.dev/lua/internal/vm"
)

// TestTableInsertAppend checks the two-argument form appends at #t+1.
func TestTableInsertAppend(t *testing.T) {
	got := runPrint(t, `
		local t = {1, 2}
		table.insert(t, 3)
		io.write(t[1], t[2], t[3], #t)
	`)
	if got != "1233" {
		t.Errorf("got %q, want %q", got, "1233")
	}
}

// TestTableInsertAtPosition checks the three-argument form shifts
// later elements up by one.
func TestTableInsertAtPosition(t *testing.T) {
	got := runPrint(t, `
		local t = {1, 2, 3}
		table.insert(t, 2, 99)
		io.write(t[1], ",", t[2], ",", t[3], ",", t[4])
	`)
	if got != "1,99,2,3" {
		t.Errorf("got %q, want %q", got, "1,99,2,3")
	}
}

// TestTableRemove checks the default (last element) and explicit
// position forms, and that later elements shift down.
func TestTableRemove(t *testing.T) {
	v := newVM(nil)
	results := run(t, v, `
		local t = {10, 20, 30}
		local removed = table.remove(t)
		return removed, #t, t[1], t[2], t[3]
	`)
	want := []vm.Value{vm.Integer(30), vm.Integer(2), vm.Integer(10), vm.Integer(20), nil}
	if len(results) != len(want) {
		t.Fatalf("got %v, want %v", results, want)
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("result[%d] = %#v, want %#v", i, results[i], want[i])
		}
	}
}

func TestTableRemoveAtPosition(t *testing.T) {
	v := newVM(nil)
	results := run(t, v, `
		local t = {10, 20, 30}
		local removed = table.remove(t, 1)
		return removed, t[1], t[2], t[3]
	`)
	want := []vm.Value{vm.Integer(10), vm.Integer(20), vm.Integer(30), nil}
	if len(results) != len(want) {
		t.Fatalf("got %v, want %v", results, want)
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("result[%d] = %#v, want %#v", i, results[i], want[i])
		}
	}
}

// TestTableConcat checks the separator and range arguments.
func TestTableConcat(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`return table.concat({"a", "b", "c"})`, "abc"},
		{`return table.concat({"a", "b", "c"}, ", ")`, "a, b, c"},
		{`return table.concat({"a", "b", "c", "d"}, "-", 2, 3)`, "b-c"},
	}
	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			v := newVM(nil)
			results := run(t, v, test.src)
			s, ok := results[0].(vm.String)
			if !ok || string(s) != test.want {
				t.Errorf("got %#v, want %q", results[0], test.want)
			}
		})
	}
}

// TestTableSortDefault checks the default less-than ordering.
func TestTableSortDefault(t *testing.T) {
	got := runPrint(t, `
		local t = {5, 3, 1, 4, 2}
		table.sort(t)
		io.write(table.concat(t, ","))
	`)
	if got != "1,2,3,4,5" {
		t.Errorf("got %q, want %q", got, "1,2,3,4,5")
	}
}

// TestTableSortComparator checks a custom comparator is used in place
// of the default less-than.
func TestTableSortComparator(t *testing.T) {
	got := runPrint(t, `
		local t = {5, 3, 1, 4, 2}
		table.sort(t, function(a, b) return a > b end)
		io.write(table.concat(t, ","))
	`)
	if got != "5,4,3,2,1" {
		t.Errorf("got %q, want %q", got, "5,4,3,2,1")
	}
}

// TestTableUnpack checks table.unpack's default range (1 to #t), with
// all of its results returned from the chunk; an explicit range is
// checked by TestTableUnpackRange.
func TestTableUnpack(t *testing.T) {
	v := newVM(nil)
	results := run(t, v, `
		local t = {1, 2, 3}
		return table.unpack(t)
	`)
	want := []vm.Value{vm.Integer(1), vm.Integer(2), vm.Integer(3)}
	if len(results) != len(want) {
		t.Fatalf("got %v, want %v", results, want)
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("result[%d] = %#v, want %#v", i, results[i], want[i])
		}
	}
}

func TestTableUnpackRange(t *testing.T) {
	v := newVM(nil)
	results := run(t, v, `return table.unpack({1, 2, 3, 4, 5}, 2, 4)`)
	want := []vm.Value{vm.Integer(2), vm.Integer(3), vm.Integer(4)}
	if len(results) != len(want) {
		t.Fatalf("got %v, want %v", results, want)
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("result[%d] = %#v, want %#v", i, results[i], want[i])
		}
	}
}

// TestTablePack checks the "n" field records the original argument
// count, including any trailing nils that #t would not see.
func TestTablePack(t *testing.T) {
	v := newVM(nil)
	results := run(t, v, `
		local t = table.pack(1, nil, 3)
		return t.n, t[1], t[2], t[3]
	`)
	want := []vm.Value{vm.Integer(3), vm.Integer(1), nil, vm.Integer(3)}
	if len(results) != len(want) {
		t.Fatalf("got %v, want %v", results, want)
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("result[%d] = %#v, want %#v", i, results[i], want[i])
		}
	}
}
