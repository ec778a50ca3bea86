// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package vm

import "lumalang.dev/lua/internal/compile"

// upvalue is a lazily-converted closure cell (specification §4.3.4): while
// the variable it names is still live on some frame's stack, open points
// at that frame's slot directly, so reads/writes alias the local. Once
// the frame returns, the value is copied into closed and open is cleared,
// so the closure keeps working with no dangling reference to the dead
// frame.
type upvalue struct {
	open   *Value
	closed Value
}

func (u *upvalue) get() Value {
	if u.open != nil {
		return *u.open
	}
	return u.closed
}

func (u *upvalue) set(v Value) {
	if u.open != nil {
		*u.open = v
		return
	}
	u.closed = v
}

func (u *upvalue) close() {
	if u.open != nil {
		u.closed = *u.open
		u.open = nil
	}
}

// Closure is a Lua function value: a compiled prototype plus the upvalue
// cells it was instantiated with.
type Closure struct {
	proto    *compile.Prototype
	upvalues []*upvalue
}

func (c *Closure) valueType() Type { return TypeFunction }

// GoFunction is a builtin implemented in Go. It receives its arguments and
// returns its results as plain value slices, mirroring the calling
// convention Lua functions use once unwound from the data stack.
type GoFunction struct {
	Name string
	Func func(vm *VM, args []Value) ([]Value, error)
}

func (f *GoFunction) valueType() Type { return TypeFunction }
