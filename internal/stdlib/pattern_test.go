// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package stdlib_test

import (
	"testing"

	"lumalang.dev/lua/internal/vm"
)

// TestStringFind checks specification SPEC_FULL.md §D.1's pattern
// engine against string.find's plain and pattern-matching forms.
func TestStringFind(t *testing.T) {
	tests := []struct {
		src  string
		want []vm.Value
	}{
		{`return string.find("hello world", "wor")`, []vm.Value{vm.Integer(7), vm.Integer(9)}},
		{`return string.find("hello world", "o", 6)`, []vm.Value{vm.Integer(8), vm.Integer(8)}},
		{`return string.find("hello world", "xyz")`, []vm.Value{nil}},
		{`return string.find("hello", "l+")`, []vm.Value{vm.Integer(3), vm.Integer(4)}},
		{`return string.find("2024-07-29", "(%d+)-(%d+)-(%d+)")`, []vm.Value{
			vm.Integer(1), vm.Integer(10), vm.String("2024"), vm.String("07"), vm.String("29"),
		}},
		{`return string.find("a.b.c", ".", 1, true)`, []vm.Value{vm.Integer(1), vm.Integer(1)}},
	}
	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			v := newVM(nil)
			results := run(t, v, test.src)
			if len(results) != len(test.want) {
				t.Fatalf("got %v, want %v", results, test.want)
			}
			for i := range test.want {
				if results[i] != test.want[i] {
					t.Errorf("result[%d] = %#v, want %#v", i, results[i], test.want[i])
				}
			}
		})
	}
}

// TestStringMatch checks string.match's single- and multi-capture forms.
func TestStringMatch(t *testing.T) {
	v := newVM(nil)
	results := run(t, v, `return string.match("key = value", "(%w+)%s*=%s*(%w+)")`)
	want := []vm.Value{vm.String("key"), vm.String("value")}
	if len(results) != len(want) {
		t.Fatalf("got %v, want %v", results, want)
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("result[%d] = %#v, want %#v", i, results[i], want[i])
		}
	}
}

// TestStringGmatch checks that gmatch's iterator form yields every
// non-overlapping match across successive calls.
func TestStringGmatch(t *testing.T) {
	got := runPrint(t, `
		for word in string.gmatch("one two three", "%a+") do
			io.write(word, ";")
		end
	`)
	if got != "one;two;three;" {
		t.Errorf("got %q, want %q", got, "one;two;three;")
	}
}

// TestStringGsub checks plain substitution, the count limit together
// with the returned substitution count, and %1-style capture references
// in the replacement text.
func TestStringGsub(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		want    string
		wantN   int64
		checkN  bool
	}{
		{
			name: "PlainReplace",
			src:  `return string.gsub("hello world", "o", "0")`,
			want: "hell0 w0rld",
		},
		{
			name:   "CountLimit",
			src:    `return string.gsub("aaaa", "a", "b", 2)`,
			want:   "bbaa",
			wantN:  2,
			checkN: true,
		},
		{
			name: "CaptureReference",
			src:  `return string.gsub("2024-07-29", "(%d+)-(%d+)-(%d+)", "%3/%2/%1")`,
			want: "29/07/2024",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v := newVM(nil)
			results := run(t, v, test.src)
			s, ok := results[0].(vm.String)
			if !ok || string(s) != test.want {
				t.Errorf("got %#v, want %q", results[0], test.want)
			}
			if test.checkN {
				n, ok := results[1].(vm.Integer)
				if !ok || int64(n) != test.wantN {
					t.Errorf("gsub count = %#v, want %d", results[1], test.wantN)
				}
			}
		})
	}
}

// TestStringGsubFunctionReplacement checks the function-replacement form
// of gsub, where a nil/false return keeps the original match text.
func TestStringGsubFunctionReplacement(t *testing.T) {
	v := newVM(nil)
	results := run(t, v, `
		return string.gsub("hello world", "%w+", function(w)
			if w == "world" then return "lua" end
		end)
	`)
	s, ok := results[0].(vm.String)
	if !ok || string(s) != "hello lua" {
		t.Errorf("got %#v, want %q", results[0], "hello lua")
	}
}

// TestStringGsubTableReplacement checks the table-replacement form.
func TestStringGsubTableReplacement(t *testing.T) {
	v := newVM(nil)
	results := run(t, v, `
		local map = {["$name"] = "lua"}
		return string.gsub("hi $name", "%$%w+", map)
	`)
	s, ok := results[0].(vm.String)
	if !ok || string(s) != "hi lua" {
		t.Errorf("got %#v, want %q", results[0], "hi lua")
	}
}

// TestStringFindAnchor checks the '^' anchor is honored and does not
// match at later positions.
func TestStringFindAnchor(t *testing.T) {
	v := newVM(nil)
	results := run(t, v, `return string.find("hello", "^ello")`)
	if results[0] != nil {
		t.Errorf("got %#v, want nil (anchor should not match)", results[0])
	}
}
