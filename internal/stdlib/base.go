// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package stdlib

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"lumalang.dev/lua/internal/vm"
)

// Version is the value of the "_VERSION" global (specification §6.3).
const Version = "Lua 5.4"

// BaseOptions configures the basic library (grounded on the teacher's
// BaseOptions/NewOpenBase option-struct pattern in internal/mylua).
type BaseOptions struct {
	// Output receives "print" and "io.write" output; os.Stdout if nil.
	Output io.Writer
}

// OpenBase installs the base library named in specification §6.3 into
// globals: print, type, tostring, tonumber, select, rawequal, rawlen,
// rawget, rawset, setmetatable, getmetatable, assert, error, pcall,
// xpcall, ipairs, pairs, next, _VERSION, _G.
func OpenBase(v *vm.VM, opts *BaseOptions) {
	if opts == nil {
		opts = &BaseOptions{}
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	g := v.Globals
	register(g, map[string]func(*vm.VM, []vm.Value) ([]vm.Value, error){
		"print":        basePrint(out),
		"type":         baseType,
		"tostring":     baseToString,
		"tonumber":     baseToNumber,
		"select":       baseSelect,
		"rawequal":     baseRawEqual,
		"rawlen":       baseRawLen,
		"rawget":       baseRawGet,
		"rawset":       baseRawSet,
		"setmetatable": baseSetMetatable,
		"getmetatable": baseGetMetatable,
		"assert":       baseAssert,
		"error":        baseError,
		"pcall":        basePCall,
		"xpcall":       baseXPCall,
		"ipairs":       baseIPairs,
		"pairs":        basePairs,
		"next":         baseNext,
	})
	g.Set(vm.String("_VERSION"), vm.String(Version))
	g.Set(vm.String("_G"), g)
}

func basePrint(out io.Writer) func(*vm.VM, []vm.Value) ([]vm.Value, error) {
	return func(vmi *vm.VM, args []vm.Value) ([]vm.Value, error) {
		w := bufio.NewWriter(out)
		for i, a := range args {
			if i > 0 {
				w.WriteByte('\t')
			}
			s, err := toStringMeta(vmi, a)
			if err != nil {
				return nil, err
			}
			w.WriteString(s)
		}
		w.WriteByte('\n')
		return nil, w.Flush()
	}
}

func baseType(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	return one(vm.String(vm.TypeOf(arg(args, 1)).String())), nil
}

// toStringMeta implements tostring's full rule: consult __tostring, else
// the metatable's __name for non-described values, else the default
// rendering.
// ToStringMeta renders v the way "tostring"/"print" do: via a __tostring
// metamethod if present, via a metatable's __name for an address-style
// fallback, or via [vm.ToString] otherwise. The driver's error-formatting
// path (specification §7) uses the same rule for error values.
func ToStringMeta(vmi *vm.VM, v vm.Value) (string, error) {
	return toStringMeta(vmi, v)
}

func toStringMeta(vmi *vm.VM, v vm.Value) (string, error) {
	if h := vmi.Metamethod(v, "__tostring"); h != nil {
		results, err := vmi.Call(h, []vm.Value{v})
		if err != nil {
			return "", err
		}
		if len(results) == 0 {
			return "", nil
		}
		s, _ := results[0].(vm.String)
		return string(s), nil
	}
	if t, ok := v.(*vm.Table); ok {
		if name := t.Metatable().Get(vm.String("__name")); name != nil {
			if s, ok := name.(vm.String); ok {
				return fmt.Sprintf("%s: %p", string(s), t), nil
			}
		}
	}
	return vm.ToString(v), nil
}

func baseToString(vmi *vm.VM, args []vm.Value) ([]vm.Value, error) {
	s, err := toStringMeta(vmi, arg(args, 1))
	if err != nil {
		return nil, err
	}
	return one(vm.String(s)), nil
}

func baseToNumber(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	if arg(args, 2) != nil {
		s, err := checkString(args, 1)
		if err != nil {
			return nil, err
		}
		base, err := checkInt(args, 2)
		if err != nil {
			return nil, err
		}
		s = strings.TrimSpace(s)
		neg := false
		if strings.HasPrefix(s, "-") {
			neg, s = true, s[1:]
		} else if strings.HasPrefix(s, "+") {
			s = s[1:]
		}
		if s == "" {
			return one(nil), nil
		}
		n, err := strconv.ParseInt(strings.ToLower(s), int(base), 64)
		if err != nil {
			return one(nil), nil
		}
		if neg {
			n = -n
		}
		return one(vm.Integer(n)), nil
	}
	v := arg(args, 1)
	switch v := v.(type) {
	case vm.Integer, vm.Float:
		return one(v), nil
	case vm.String:
		if n, ok := vm.ToNumber(v); ok {
			return one(n), nil
		}
		return one(nil), nil
	default:
		return one(nil), nil
	}
}

func baseSelect(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	sel := arg(args, 1)
	if s, ok := sel.(vm.String); ok && s == "#" {
		return one(vm.Integer(len(args) - 1)), nil
	}
	n, err := checkInt(args, 1)
	if err != nil {
		return nil, err
	}
	rest := args[1:]
	switch {
	case n < 0:
		n += int64(len(rest)) + 1
		if n < 1 {
			return nil, argError(1, "index out of range")
		}
		fallthrough
	case n >= 1:
		if int(n) > len(rest) {
			return nil, nil
		}
		return rest[n-1:], nil
	default:
		return nil, argError(1, "index out of range")
	}
}

func baseRawEqual(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	return one(vm.Boolean(vm.RawEqual(arg(args, 1), arg(args, 2)))), nil
}

func baseRawLen(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	switch v := arg(args, 1).(type) {
	case vm.String:
		return one(vm.Integer(len(v))), nil
	case *vm.Table:
		return one(vm.Integer(v.Len())), nil
	default:
		return nil, argError(1, "table or string expected")
	}
}

func baseRawGet(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	t, err := checkTable(args, 1)
	if err != nil {
		return nil, err
	}
	return one(t.Get(arg(args, 2))), nil
}

func baseRawSet(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	t, err := checkTable(args, 1)
	if err != nil {
		return nil, err
	}
	if err := t.Set(arg(args, 2), arg(args, 3)); err != nil {
		return nil, err
	}
	return one(t), nil
}

func baseSetMetatable(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	t, err := checkTable(args, 1)
	if err != nil {
		return nil, err
	}
	if t.Metatable() != nil && t.Metatable().Get(vm.String("__metatable")) != nil {
		return nil, fmt.Errorf("cannot change a protected metatable")
	}
	switch meta := arg(args, 2).(type) {
	case nil:
		t.SetMetatable(nil)
	case *vm.Table:
		t.SetMetatable(meta)
	default:
		return nil, typeError(2, "nil or table", meta)
	}
	return one(t), nil
}

func baseGetMetatable(vmi *vm.VM, args []vm.Value) ([]vm.Value, error) {
	var meta *vm.Table
	switch v := arg(args, 1).(type) {
	case *vm.Table:
		meta = v.Metatable()
	case vm.String:
		meta = vmi.StringMeta
	}
	if meta == nil {
		return one(nil), nil
	}
	if protected := meta.Get(vm.String("__metatable")); protected != nil {
		return one(protected), nil
	}
	return one(meta), nil
}

func baseAssert(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	if vm.Truthy(arg(args, 1)) {
		return args, nil
	}
	if len(args) >= 2 {
		return nil, &vm.RuntimeError{Value: args[1]}
	}
	return nil, &vm.RuntimeError{Value: vm.String("assertion failed!")}
}

// baseError implements specification §7's error(v[, level]). Source-position
// prefixing (the "level" argument's usual effect in reference Lua) is not
// applied: host callbacks are not handed the calling frame's program
// counter, and debug-info preservation across lowering is a named
// Non-goal (specification §9/§1).
func baseError(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	return nil, &vm.RuntimeError{Value: arg(args, 1)}
}

func basePCall(vmi *vm.VM, args []vm.Value) ([]vm.Value, error) {
	if len(args) == 0 {
		return nil, argError(1, "value expected")
	}
	results, err := vmi.Call(args[0], args[1:])
	if err != nil {
		return []vm.Value{vm.Boolean(false), vm.ErrorValue(err)}, nil
	}
	return append([]vm.Value{vm.Boolean(true)}, results...), nil
}

func baseXPCall(vmi *vm.VM, args []vm.Value) ([]vm.Value, error) {
	if len(args) < 2 {
		return nil, argError(2, "value expected")
	}
	handler := args[1]
	results, err := vmi.Call(args[0], args[2:])
	if err != nil {
		handled, herr := vmi.Call(handler, []vm.Value{vm.ErrorValue(err)})
		if herr != nil {
			return []vm.Value{vm.Boolean(false), vm.ErrorValue(herr)}, nil
		}
		out := []vm.Value{vm.Boolean(false)}
		return append(out, handled...), nil
	}
	return append([]vm.Value{vm.Boolean(true)}, results...), nil
}

func baseIPairs(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	t, err := checkTable(args, 1)
	if err != nil {
		return nil, err
	}
	iter := &vm.GoFunction{Name: "ipairs.iterator", Func: func(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
		tbl := args[0].(*vm.Table)
		i, _ := vm.ToInteger(args[1])
		i++
		v := tbl.Get(vm.Integer(i))
		if v == nil {
			return one(nil), nil
		}
		return []vm.Value{vm.Integer(i), v}, nil
	}}
	return []vm.Value{iter, t, vm.Integer(0)}, nil
}

func basePairs(vmi *vm.VM, args []vm.Value) ([]vm.Value, error) {
	t := arg(args, 1)
	if h := vmi.Metamethod(t, "__pairs"); h != nil {
		return vmi.Call(h, []vm.Value{t})
	}
	if _, ok := t.(*vm.Table); !ok {
		return nil, typeError(1, "table", t)
	}
	return []vm.Value{&vm.GoFunction{Name: "next", Func: baseNext}, t, nil}, nil
}

func baseNext(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	t, err := checkTable(args, 1)
	if err != nil {
		return nil, err
	}
	k, v, ok := t.Next(arg(args, 2))
	if !ok {
		return one(nil), nil
	}
	return []vm.Value{k, v}, nil
}
