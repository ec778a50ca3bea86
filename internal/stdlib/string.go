// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package stdlib

import (
	"fmt"
	"strconv"
	"strings"

	"lumalang.dev/lua/internal/vm"
)

// OpenString installs the "string" library and sets it as the shared
// metatable __index for string values, so "s:upper()" method-call sugar
// works (specification §4.2's method-call lowering). spec.md §6.3 allows
// format/find/match/gmatch/gsub to be stubbed; this module implements
// them for real via pattern.go, per SPEC_FULL.md's supplemented-features
// section.
func OpenString(v *vm.VM) {
	t := vm.NewTable(0)
	register(t, map[string]func(*vm.VM, []vm.Value) ([]vm.Value, error){
		"byte":    stringByte,
		"char":    stringChar,
		"len":     stringLen,
		"lower":   stringLower,
		"upper":   stringUpper,
		"rep":     stringRep,
		"reverse": stringReverse,
		"sub":     stringSub,
		"format":  stringFormat,
		"find":    stringFind,
		"match":   stringMatch,
		"gmatch":  stringGmatch,
		"gsub":    stringGsub,
	})
	v.Globals.Set(vm.String("string"), t)

	meta := vm.NewTable(0)
	meta.Set(vm.String("__index"), t)
	v.StringMeta = meta
}

// strIndex converts a Lua 1-based, possibly-negative string index (as
// used by sub/byte) to the equivalent non-negative 1-based position: a
// negative index counts back from the end, and one reaching before the
// start gives 0. Indices past the end are returned unchanged.
func strIndex(i, n int64) int64 {
	switch {
	case i >= 0:
		return i
	case -i > n:
		return 0
	default:
		return n + i + 1
	}
}

func stringByte(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	s, err := checkString(args, 1)
	if err != nil {
		return nil, err
	}
	n := int64(len(s))
	i, err := optInt(args, 2, 1)
	if err != nil {
		return nil, err
	}
	j, err := optInt(args, 3, i)
	if err != nil {
		return nil, err
	}
	i = clampIndex(strIndex(i, n), n)
	j = clampIndex(strIndex(j, n), n)
	if i < 1 {
		i = 1
	}
	if j > n {
		j = n
	}
	if i > j {
		return nil, nil
	}
	out := make([]vm.Value, 0, j-i+1)
	for k := i; k <= j; k++ {
		out = append(out, vm.Integer(s[k-1]))
	}
	return out, nil
}

func clampIndex(i, n int64) int64 {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func stringChar(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	b := make([]byte, len(args))
	for i := range args {
		c, err := checkInt(args, i+1)
		if err != nil {
			return nil, err
		}
		b[i] = byte(c)
	}
	return one(vm.String(b)), nil
}

func stringLen(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	s, err := checkString(args, 1)
	if err != nil {
		return nil, err
	}
	return one(vm.Integer(len(s))), nil
}

func stringLower(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	s, err := checkString(args, 1)
	if err != nil {
		return nil, err
	}
	return one(vm.String(strings.ToLower(s))), nil
}

func stringUpper(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	s, err := checkString(args, 1)
	if err != nil {
		return nil, err
	}
	return one(vm.String(strings.ToUpper(s))), nil
}

func stringRep(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	s, err := checkString(args, 1)
	if err != nil {
		return nil, err
	}
	n, err := checkInt(args, 2)
	if err != nil {
		return nil, err
	}
	sep, err := optString(args, 3, "")
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return one(vm.String("")), nil
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = s
	}
	return one(vm.String(strings.Join(parts, sep))), nil
}

func stringReverse(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	s, err := checkString(args, 1)
	if err != nil {
		return nil, err
	}
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return one(vm.String(b)), nil
}

func stringSub(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	s, err := checkString(args, 1)
	if err != nil {
		return nil, err
	}
	n := int64(len(s))
	i, err := optInt(args, 2, 1)
	if err != nil {
		return nil, err
	}
	j, err := optInt(args, 3, -1)
	if err != nil {
		return nil, err
	}
	i = strIndex(i, n)
	if i < 1 {
		i = 1
	}
	j = strIndex(j, n)
	if j > n {
		j = n
	}
	if i > j {
		return one(vm.String("")), nil
	}
	return one(vm.String(s[i-1 : j])), nil
}

func stringFormat(vmi *vm.VM, args []vm.Value) ([]vm.Value, error) {
	format, err := checkString(args, 1)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	argi := 1
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		start := i
		i++
		for i < len(format) && strings.ContainsRune("-+ #0", rune(format[i])) {
			i++
		}
		for i < len(format) && format[i] >= '0' && format[i] <= '9' {
			i++
		}
		if i < len(format) && format[i] == '.' {
			i++
			for i < len(format) && format[i] >= '0' && format[i] <= '9' {
				i++
			}
		}
		if i >= len(format) {
			return nil, fmt.Errorf("invalid conversion to 'format'")
		}
		verb := format[i]
		spec := format[start : i+1]
		if verb == '%' {
			b.WriteByte('%')
			continue
		}
		argi++
		v := arg(args, argi)
		switch verb {
		case 'd', 'i':
			n, ok := vm.ToInteger(v)
			if !ok {
				return nil, typeError(argi, "number", v)
			}
			fmt.Fprintf(&b, spec[:len(spec)-1]+"d", n)
		case 'u':
			n, _ := vm.ToInteger(v)
			fmt.Fprintf(&b, spec[:len(spec)-1]+"d", n)
		case 'c':
			n, _ := vm.ToInteger(v)
			b.WriteByte(byte(n))
		case 'x', 'X', 'o':
			n, ok := vm.ToInteger(v)
			if !ok {
				return nil, typeError(argi, "number", v)
			}
			fmt.Fprintf(&b, spec, n)
		case 'f', 'F', 'g', 'G', 'e', 'E':
			f, ok := vm.ToFloat(v)
			if !ok {
				return nil, typeError(argi, "number", v)
			}
			fmt.Fprintf(&b, spec, f)
		case 's':
			s, serr := toStringMeta(vmi, v)
			if serr != nil {
				return nil, serr
			}
			fmt.Fprintf(&b, spec, s)
		case 'q':
			b.WriteString(strconv.Quote(vm.ToString(v)))
		default:
			return nil, fmt.Errorf("invalid conversion '%%%c' to 'format'", verb)
		}
	}
	return one(vm.String(b.String())), nil
}
