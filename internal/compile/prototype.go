// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package compile

// UpvalueSource describes where a closure should seed one upvalue cell
// when it is instantiated: either from a stack slot of the function that
// is doing the instantiating, or from one of that enclosing function's
// own upvalues.
type UpvalueSource struct {
	FromParentLocal bool
	Index           int // slot offset, or upvalue index of the parent
	Name            string
}

// Prototype is the compile-time description of one function: its code,
// frame size, and upvalue wiring plan. The top-level chunk is itself a
// Prototype with no parameters and no upvalues.
type Prototype struct {
	Source       string
	NumParams    int
	IsVararg     bool
	MaxStackSize int
	Code         []Instruction
	Upvalues     []UpvalueSource
	Children     []*Prototype

	// Lines maps each instruction index to the source line it was
	// compiled from, for the disassembly listing; the VM does not read
	// it, and runtime error messages carry no line. It is not preserved
	// across any serialization boundary (debug-info preservation across
	// lowering is out of scope per the specification).
	Lines []int
}
