// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

// Package vm implements the stack-based bytecode interpreter: value
// representation, tables, closures, coroutines, and the dispatch loop
// that executes the instruction streams produced by internal/compile.
package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type enumerates the Lua data types (specification §3.1).
type Type int

const (
	TypeNil Type = iota
	TypeBoolean
	TypeNumber
	TypeString
	TypeTable
	TypeFunction
	TypeUserdata
	TypeThread
)

func (t Type) String() string {
	switch t {
	case TypeNil:
		return "nil"
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeTable:
		return "table"
	case TypeFunction:
		return "function"
	case TypeUserdata:
		return "userdata"
	case TypeThread:
		return "thread"
	default:
		return fmt.Sprintf("vm.Type(%d)", int(t))
	}
}

// Value is the internal representation of a Lua value. nil itself
// represents the Lua nil.
type Value interface {
	valueType() Type
}

func valueType(v Value) Type {
	if v == nil {
		return TypeNil
	}
	return v.valueType()
}

// TypeOf reports v's Lua type.
func TypeOf(v Value) Type { return valueType(v) }

type (
	Boolean bool
	Integer int64
	Float   float64
	String  string
)

func (Boolean) valueType() Type { return TypeBoolean }
func (Integer) valueType() Type { return TypeNumber }
func (Float) valueType() Type   { return TypeNumber }
func (String) valueType() Type  { return TypeString }

// Truthy implements Lua's truthiness rule: everything is true except nil
// and false.
func Truthy(v Value) bool {
	if v == nil {
		return false
	}
	b, ok := v.(Boolean)
	return !ok || bool(b)
}

// ToNumber attempts the numeric coercion used by arithmetic operators and
// tonumber: numbers pass through, numeral strings are parsed.
func ToNumber(v Value) (Value, bool) {
	switch v := v.(type) {
	case Integer, Float:
		return v, true
	case String:
		return stringToNumber(string(v))
	default:
		return nil, false
	}
}

func stringToNumber(s string) (Value, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if i, err := strconv.ParseInt(s, 0, 64); err == nil {
		return Integer(i), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(f), true
	}
	return nil, false
}

// ToFloat coerces a number value to a float64, as required by operators
// that always produce a float result (division, exponentiation).
func ToFloat(v Value) (float64, bool) {
	switch v := v.(type) {
	case Integer:
		return float64(v), true
	case Float:
		return float64(v), true
	default:
		return 0, false
	}
}

// ToInteger coerces a number to an integer, succeeding only for integers
// and for floats with no fractional part that fit in an int64.
func ToInteger(v Value) (int64, bool) {
	switch v := v.(type) {
	case Integer:
		return int64(v), true
	case Float:
		i := int64(v)
		if Float(i) == v && !math.IsInf(float64(v), 0) {
			return i, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// ToString renders a value the way tostring/print do for values with no
// __tostring metamethod.
func ToString(v Value) string {
	switch v := v.(type) {
	case nil:
		return "nil"
	case Boolean:
		if v {
			return "true"
		}
		return "false"
	case Integer:
		return strconv.FormatInt(int64(v), 10)
	case Float:
		return formatFloat(float64(v))
	case String:
		return string(v)
	case *Table:
		return fmt.Sprintf("table: %p", v)
	case *Closure:
		return fmt.Sprintf("function: %p", v)
	case *GoFunction:
		return fmt.Sprintf("function: builtin: %s", v.Name)
	case *Thread:
		return fmt.Sprintf("thread: %p", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', 14, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// RawEqual reports whether two values are equal without consulting any
// __eq metamethod.
func RawEqual(a, b Value) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case Integer:
		switch b := b.(type) {
		case Integer:
			return a == b
		case Float:
			return Float(a) == b
		}
		return false
	case Float:
		switch b := b.(type) {
		case Integer:
			return a == Float(b)
		case Float:
			return a == b
		}
		return false
	case Boolean:
		b, ok := b.(Boolean)
		return ok && a == b
	case String:
		b, ok := b.(String)
		return ok && a == b
	default:
		return a == b
	}
}

// Compare orders two values for <, <=: -1, 0, 1, and ok=false if they are
// not comparable without a metamethod (left to the caller to consult).
func Compare(a, b Value) (int, bool) {
	af, aok := ToFloat(a)
	bf, bok := ToFloat(b)
	if aok && bok {
		ai, aInt := a.(Integer)
		bi, bInt := b.(Integer)
		if aInt && bInt {
			switch {
			case ai < bi:
				return -1, true
			case ai > bi:
				return 1, true
			default:
				return 0, true
			}
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		case af == bf:
			return 0, true
		default:
			return 0, false // NaN
		}
	}
	as, aStr := a.(String)
	bs, bStr := b.(String)
	if aStr && bStr {
		return strings.Compare(string(as), string(bs)), true
	}
	return 0, false
}
