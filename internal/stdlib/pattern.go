// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package stdlib

import (
	"fmt"
	"strings"

	"lumalang.dev/lua/internal/vm"
)

// Lua pattern matching, grounded on the classic recursive-backtracking
// algorithm reference Lua's lstrlib.c uses (character classes, '*+-?'
// quantifiers, anchors, %b/%f, and captures), reimplemented here because
// spec.md explicitly allows string.find/match/gmatch/gsub to be stubbed
// but original_source/lua_ir/src/builtin/string.rs does not stub them
// (see SPEC_FULL.md §D.1).

const maxCaptures = 32

type capture struct {
	start int
	len   int // -1: position capture pending close; -2: position capture
}

const (
	capUnfinished = -1
	capPosition   = -2
)

type matchState struct {
	src, pat string
	caps     []capture
	depth    int
}

var errPatternTooComplex = fmt.Errorf("pattern too complex")

const maxMatchDepth = 200

func (ms *matchState) match(s, p int) (int, error) {
	ms.depth++
	defer func() { ms.depth-- }()
	if ms.depth > maxMatchDepth {
		return -1, errPatternTooComplex
	}
	if p >= len(ms.pat) {
		return s, nil
	}
	switch ms.pat[p] {
	case '(':
		if p+1 < len(ms.pat) && ms.pat[p+1] == ')' {
			return ms.startCapture(s, p+2, capPosition)
		}
		return ms.startCapture(s, p+1, capUnfinished)
	case ')':
		return ms.endCapture(s, p+1)
	case '$':
		if p+1 == len(ms.pat) {
			if s == len(ms.src) {
				return s, nil
			}
			return -1, nil
		}
	case '%':
		if p+1 < len(ms.pat) {
			switch ms.pat[p+1] {
			case 'b':
				return ms.matchBalance(s, p+2)
			case 'f':
				return ms.matchFrontier(s, p+2)
			default:
				if ms.pat[p+1] >= '0' && ms.pat[p+1] <= '9' {
					ns, err := ms.matchCapture(s, int(ms.pat[p+1]-'0'))
					if err != nil || ns < 0 {
						return ns, err
					}
					return ms.match(ns, p+2)
				}
			}
		}
	}
	ep := ms.classEnd(p)
	matches := s < len(ms.src) && ms.singleMatch(s, p, ep)
	if ep < len(ms.pat) {
		switch ms.pat[ep] {
		case '?':
			if matches {
				if r, err := ms.match(s+1, ep+1); err != nil || r >= 0 {
					return r, err
				}
			}
			return ms.match(s, ep+1)
		case '+':
			if matches {
				return ms.maxExpand(s+1, p, ep)
			}
			return -1, nil
		case '*':
			return ms.maxExpand(s, p, ep)
		case '-':
			return ms.minExpand(s, p, ep)
		}
	}
	if !matches {
		return -1, nil
	}
	return ms.match(s+1, ep)
}

func (ms *matchState) startCapture(s, p, what int) (int, error) {
	ms.caps = append(ms.caps, capture{start: s, len: what})
	if len(ms.caps) > maxCaptures {
		return -1, errPatternTooComplex
	}
	r, err := ms.match(s, p)
	if err != nil || r < 0 {
		ms.caps = ms.caps[:len(ms.caps)-1]
	}
	return r, err
}

func (ms *matchState) endCapture(s, p int) (int, error) {
	idx := -1
	for i := len(ms.caps) - 1; i >= 0; i-- {
		if ms.caps[i].len == capUnfinished {
			idx = i
			break
		}
	}
	if idx < 0 {
		return -1, fmt.Errorf("invalid pattern capture")
	}
	ms.caps[idx].len = s - ms.caps[idx].start
	r, err := ms.match(s, p)
	if err != nil || r < 0 {
		ms.caps[idx].len = capUnfinished
	}
	return r, err
}

func (ms *matchState) matchCapture(s, idx int) (int, error) {
	idx--
	if idx < 0 || idx >= len(ms.caps) || ms.caps[idx].len == capUnfinished {
		return -1, fmt.Errorf("invalid capture index")
	}
	c := ms.caps[idx]
	captured := ms.src[c.start : c.start+c.len]
	if strings.HasPrefix(ms.src[s:], captured) {
		return s + len(captured), nil
	}
	return -1, nil
}

func (ms *matchState) matchBalance(s, p int) (int, error) {
	if p+1 >= len(ms.pat) {
		return -1, fmt.Errorf("missing arguments to '%%b'")
	}
	if s >= len(ms.src) || ms.src[s] != ms.pat[p] {
		return -1, nil
	}
	b, e := ms.pat[p], ms.pat[p+1]
	depth := 1
	i := s + 1
	for i < len(ms.src) {
		if ms.src[i] == e {
			depth--
			if depth == 0 {
				return ms.match(i+1, p+2)
			}
		} else if ms.src[i] == b {
			depth++
		}
		i++
	}
	return -1, nil
}

func (ms *matchState) matchFrontier(s, p int) (int, error) {
	if p >= len(ms.pat) || ms.pat[p] != '[' {
		return -1, fmt.Errorf("missing '[' after '%%f' in pattern")
	}
	ep := ms.classEnd(p)
	var prev byte
	if s > 0 {
		prev = ms.src[s-1]
	}
	var cur byte
	if s < len(ms.src) {
		cur = ms.src[s]
	}
	if !matchClassSet(prev, ms.pat, p, ep) && matchClassSet(cur, ms.pat, p, ep) {
		return ms.match(s, ep)
	}
	return -1, nil
}

// classEnd returns the pattern index just past the single-character class
// starting at p ('.', '%x', or a '[...]' set).
func (ms *matchState) classEnd(p int) int {
	c := ms.pat[p]
	p++
	if c == '%' {
		return p + 1
	}
	if c == '[' {
		if p < len(ms.pat) && ms.pat[p] == '^' {
			p++
		}
		for {
			if p >= len(ms.pat) {
				return p
			}
			c = ms.pat[p]
			p++
			if c == '%' {
				p++
			} else if c == ']' {
				return p
			}
		}
	}
	return p
}

func (ms *matchState) singleMatch(s, p, ep int) bool {
	if s >= len(ms.src) {
		return false
	}
	return matchClassSet(ms.src[s], ms.pat, p, ep)
}

func matchClassSet(c byte, pat string, p, ep int) bool {
	switch pat[p] {
	case '.':
		return true
	case '%':
		return matchClass(c, pat[p+1])
	case '[':
		return matchSet(c, pat, p, ep-1)
	default:
		return pat[p] == c
	}
}

func matchClass(c, cl byte) bool {
	var res bool
	switch lower(cl) {
	case 'a':
		res = isAlpha(c)
	case 'd':
		res = c >= '0' && c <= '9'
	case 'l':
		res = c >= 'a' && c <= 'z'
	case 's':
		res = c == ' ' || c == '\t' || c == '\n' || c == '\v' || c == '\f' || c == '\r'
	case 'u':
		res = c >= 'A' && c <= 'Z'
	case 'w':
		res = isAlpha(c) || (c >= '0' && c <= '9')
	case 'c':
		res = c < 32 || c == 127
	case 'p':
		res = isPunct(c)
	case 'x':
		res = isHex(c)
	case 'g':
		res = c > 32 && c < 127
	default:
		return cl == c
	}
	if cl >= 'A' && cl <= 'Z' {
		return !res
	}
	return res
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
func isPunct(c byte) bool {
	return strings.IndexByte("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", c) >= 0
}

// matchSet tests c against a "[...]" set spanning pat[p:ep] (p at the '[').
func matchSet(c byte, pat string, p, ep int) bool {
	negate := false
	p++
	if p < ep && pat[p] == '^' {
		negate = true
		p++
	}
	found := false
	for p < ep {
		if pat[p] == '%' && p+1 < ep {
			p++
			if matchClass(c, pat[p]) {
				found = true
			}
			p++
		} else if p+2 < ep && pat[p+1] == '-' {
			if pat[p] <= c && c <= pat[p+2] {
				found = true
			}
			p += 3
		} else {
			if pat[p] == c {
				found = true
			}
			p++
		}
	}
	return found != negate
}

func (ms *matchState) maxExpand(s, p, ep int) (int, error) {
	i := 0
	for ms.singleMatch(s+i, p, ep) {
		i++
	}
	for i >= 0 {
		r, err := ms.match(s+i, ep+1)
		if err != nil || r >= 0 {
			return r, err
		}
		i--
	}
	return -1, nil
}

func (ms *matchState) minExpand(s, p, ep int) (int, error) {
	for {
		r, err := ms.match(s, ep+1)
		if err != nil || r >= 0 {
			return r, err
		}
		if ms.singleMatch(s, p, ep) {
			s++
		} else {
			return -1, nil
		}
	}
}

// patternMatch runs pat against src starting no earlier than init
// (0-based), honoring a leading '^' anchor. It returns the match's
// [start, end) byte range and captures (empty when the pattern has none).
func patternMatch(src, pat string, init int) (start, end int, caps []capture, ok bool, err error) {
	anchor := strings.HasPrefix(pat, "^")
	if anchor {
		pat = pat[1:]
	}
	s := init
	for {
		ms := &matchState{src: src, pat: pat}
		e, merr := ms.match(s, 0)
		if merr != nil {
			return 0, 0, nil, false, merr
		}
		if e >= 0 {
			return s, e, ms.caps, true, nil
		}
		s++
		if anchor || s > len(src) {
			return 0, 0, nil, false, nil
		}
	}
}

// captureValues converts the match's captures to Lua values: the whole
// match when there are none, each substring/position otherwise.
func captureValues(src string, start, end int, caps []capture) []vm.Value {
	if len(caps) == 0 {
		return []vm.Value{vm.String(src[start:end])}
	}
	out := make([]vm.Value, len(caps))
	for i, c := range caps {
		if c.len == capPosition {
			out[i] = vm.Integer(c.start + 1)
		} else {
			out[i] = vm.String(src[c.start : c.start+c.len])
		}
	}
	return out
}

func stringFind(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	s, err := checkString(args, 1)
	if err != nil {
		return nil, err
	}
	pat, err := checkString(args, 2)
	if err != nil {
		return nil, err
	}
	init, err := optInt(args, 3, 1)
	if err != nil {
		return nil, err
	}
	plain := vm.Truthy(arg(args, 4))
	start := initIndex(init, int64(len(s)))
	if plain || !strings.ContainsAny(pat, "^$*+?.([%-") {
		idx := strings.Index(s[start:], pat)
		if idx < 0 {
			return one(nil), nil
		}
		return []vm.Value{vm.Integer(start + idx + 1), vm.Integer(start + idx + len(pat))}, nil
	}
	st, en, caps, ok, merr := patternMatch(s, pat, start)
	if merr != nil {
		return nil, merr
	}
	if !ok {
		return one(nil), nil
	}
	out := []vm.Value{vm.Integer(st + 1), vm.Integer(en)}
	if len(caps) > 0 {
		out = append(out, captureValues(s, st, en, caps)...)
	}
	return out, nil
}

func initIndex(init, n int64) int {
	i := strIndex(init, n) - 1
	if i < 0 {
		i = 0
	}
	if i > n {
		i = n
	}
	return int(i)
}

func stringMatch(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	s, err := checkString(args, 1)
	if err != nil {
		return nil, err
	}
	pat, err := checkString(args, 2)
	if err != nil {
		return nil, err
	}
	init, err := optInt(args, 3, 1)
	if err != nil {
		return nil, err
	}
	start := initIndex(init, int64(len(s)))
	st, en, caps, ok, merr := patternMatch(s, pat, start)
	if merr != nil {
		return nil, merr
	}
	if !ok {
		return one(nil), nil
	}
	return captureValues(s, st, en, caps), nil
}

func stringGmatch(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	s, err := checkString(args, 1)
	if err != nil {
		return nil, err
	}
	pat, err := checkString(args, 2)
	if err != nil {
		return nil, err
	}
	pos := 0
	iter := &vm.GoFunction{Name: "gmatch.iterator", Func: func(_ *vm.VM, _ []vm.Value) ([]vm.Value, error) {
		for pos <= len(s) {
			st, en, caps, ok, merr := patternMatch(s, pat, pos)
			if merr != nil {
				return nil, merr
			}
			if !ok {
				return one(nil), nil
			}
			if en == st {
				pos = en + 1
			} else {
				pos = en
			}
			return captureValues(s, st, en, caps), nil
		}
		return one(nil), nil
	}}
	return one(iter), nil
}

func stringGsub(vmi *vm.VM, args []vm.Value) ([]vm.Value, error) {
	s, err := checkString(args, 1)
	if err != nil {
		return nil, err
	}
	pat, err := checkString(args, 2)
	if err != nil {
		return nil, err
	}
	repl := arg(args, 3)
	maxN, err := optInt(args, 4, int64(len(s)+1))
	if err != nil {
		return nil, err
	}

	var out strings.Builder
	pos := 0
	count := int64(0)
	for pos <= len(s) && count < maxN {
		st, en, caps, ok, merr := patternMatch(s, pat, pos)
		if merr != nil {
			return nil, merr
		}
		if !ok {
			break
		}
		out.WriteString(s[pos:st])
		matched := s[st:en]
		capVals := captureValues(s, st, en, caps)
		replaced, rerr := gsubReplacement(vmi, repl, matched, capVals)
		if rerr != nil {
			return nil, rerr
		}
		out.WriteString(replaced)
		count++
		if en == st {
			if st < len(s) {
				out.WriteByte(s[st])
			}
			pos = st + 1
		} else {
			pos = en
		}
	}
	if pos < len(s) {
		out.WriteString(s[pos:])
	}
	return []vm.Value{vm.String(out.String()), vm.Integer(count)}, nil
}

func gsubReplacement(vmi *vm.VM, repl vm.Value, matched string, caps []vm.Value) (string, error) {
	switch r := repl.(type) {
	case vm.String:
		return expandReplacementTemplate(string(r), matched, caps), nil
	case vm.Integer, vm.Float:
		return expandReplacementTemplate(vm.ToString(r), matched, caps), nil
	case *vm.Table:
		v := r.Get(caps[0])
		return replacementValueToString(v, matched)
	case *vm.Closure, *vm.GoFunction:
		results, err := vmi.Call(r, caps)
		if err != nil {
			return "", err
		}
		var v vm.Value
		if len(results) > 0 {
			v = results[0]
		}
		return replacementValueToString(v, matched)
	default:
		return "", fmt.Errorf("bad argument #3 to 'gsub' (string/function/table expected)")
	}
}

func replacementValueToString(v vm.Value, matched string) (string, error) {
	switch v := v.(type) {
	case nil, vm.Boolean:
		if v == vm.Boolean(false) || v == nil {
			return matched, nil
		}
	case vm.String:
		return string(v), nil
	case vm.Integer, vm.Float:
		return vm.ToString(v), nil
	}
	return "", fmt.Errorf("invalid replacement value (a %s)", vm.TypeOf(v))
}

func expandReplacementTemplate(tmpl, matched string, caps []vm.Value) string {
	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '%' || i+1 >= len(tmpl) {
			b.WriteByte(c)
			continue
		}
		i++
		d := tmpl[i]
		switch {
		case d == '%':
			b.WriteByte('%')
		case d == '0':
			b.WriteString(matched)
		case d >= '1' && d <= '9':
			idx := int(d - '1')
			if idx < len(caps) {
				b.WriteString(vm.ToString(caps[idx]))
			}
		default:
			b.WriteByte(d)
		}
	}
	return b.String()
}
