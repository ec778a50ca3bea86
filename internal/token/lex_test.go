// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package token

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func scanAll(t *testing.T, src string) ([]Token, error) {
	t.Helper()
	l := New([]byte(src))
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return toks, err
		}
		if tok.Kind == EOF {
			return toks, nil
		}
		toks = append(toks, tok)
	}
}

func TestLexer(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []Token
		bad  bool
	}{
		{name: "empty", src: ""},
		{
			name: "identifier",
			src:  "foo",
			want: []Token{{Kind: Name, Pos: Position{1, 1}, Value: "foo"}},
		},
		{
			name: "leading whitespace",
			src:  "  foo  ",
			want: []Token{{Kind: Name, Pos: Position{1, 3}, Value: "foo"}},
		},
		{
			name: "keyword",
			src:  "return",
			want: []Token{{Kind: Return, Pos: Position{1, 1}}},
		},
		{
			name: "integer",
			src:  "345",
			want: []Token{{Kind: Number, Pos: Position{1, 1}, Value: "345"}},
		},
		{
			name: "hex integer",
			src:  "0xBEBADA",
			want: []Token{{Kind: Number, Pos: Position{1, 1}, Value: "0xBEBADA"}},
		},
		{
			name: "float",
			src:  "3.1416",
			want: []Token{{Kind: Number, Pos: Position{1, 1}, Value: "3.1416"}},
		},
		{
			name: "short string",
			src:  `"hi\tthere"`,
			want: []Token{{Kind: String, Pos: Position{1, 1}, Value: "hi\tthere"}},
		},
		{
			name: "long string",
			src:  "[[hello\nworld]]",
			want: []Token{{Kind: String, Pos: Position{1, 1}, Value: "hello\nworld"}},
		},
		{
			name: "long string with equals",
			src:  "[==[a]]b]==]",
			want: []Token{{Kind: String, Pos: Position{1, 1}, Value: "a]]b"}},
		},
		{
			name: "comment skipped",
			src:  "-- comment\n1",
			want: []Token{{Kind: Number, Pos: Position{2, 1}, Value: "1"}},
		},
		{
			name: "long comment skipped",
			src:  "--[[ multi\nline ]]1",
			want: []Token{{Kind: Number, Pos: Position{2, 8}, Value: "1"}},
		},
		{
			name: "operators",
			src:  "== ~= <= >= // ..",
			want: []Token{
				{Kind: Eq, Pos: Position{1, 1}},
				{Kind: NotEq, Pos: Position{1, 4}},
				{Kind: LtEq, Pos: Position{1, 7}},
				{Kind: GtEq, Pos: Position{1, 10}},
				{Kind: DSlash, Pos: Position{1, 13}},
				{Kind: Concat, Pos: Position{1, 16}},
			},
		},
		{
			name: "vararg",
			src:  "...",
			want: []Token{{Kind: Ellipsis, Pos: Position{1, 1}}},
		},
		{
			name: "unterminated string",
			src:  `"abc`,
			bad:  true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := scanAll(t, test.src)
			if test.bad {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("tokens (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseNumbers(t *testing.T) {
	if i, err := ParseInt("0xff"); err != nil || i != 255 {
		t.Errorf("ParseInt(0xff) = %d, %v; want 255, nil", i, err)
	}
	if f, err := ParseFloat("3.0"); err != nil || f != 3.0 {
		t.Errorf("ParseFloat(3.0) = %v, %v; want 3.0, nil", f, err)
	}
	if f, err := ParseFloat("0x1p4"); err != nil || f != 16.0 {
		t.Errorf("ParseFloat(0x1p4) = %v, %v; want 16.0, nil", f, err)
	}
}
