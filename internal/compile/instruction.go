// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

// Package compile implements the two hard middle stages of the pipeline:
// a semantic analyzer that resolves names to stack slots, upvalues, or
// globals and validates labels/gotos (see [Resolve]), and a bytecode
// compiler that lowers the resulting annotated tree to a linear,
// stack-machine instruction stream (see [Compile]).
//
// Unlike the teacher package this one is grounded on (internal/luacode,
// which emits the reference Lua register-based bytecode), the instruction
// set here is a small stack machine: every instruction pops its operands
// off a shared data stack and pushes its result, mirroring the simpler
// machine this specification calls for instead of register allocation.
package compile

import "fmt"

// Opcode enumerates the stack-machine instructions the VM executes.
type Opcode int

const (
	OpNop Opcode = iota

	// Stack movement.
	OpClone // duplicate top of data stack
	OpPop   // discard top of data stack
	OpSp    // push current data-stack depth onto the aux stack
	OpDeref // read the stack slot indexed by top-of-aux-stack, push it

	// Control flow. A carries the absolute target instruction index.
	OpJump
	OpJumpTrue
	OpJumpFalse
	// OpJumpNil pops a value and jumps iff it is exactly nil: generic-for's
	// continuation test stops only on a nil first result, unlike an "if"
	// condition, which also stops on false.
	OpJumpNil

	// Locals. A is the stack-frame slot offset.
	OpGetLocal
	OpSetLocal
	OpInitLocal

	// Upvalues. A is the index into the running closure's upvalue list.
	OpGetUpvalue
	OpSetUpvalue

	// Literals and environment.
	OpNil
	OpTrue
	OpFalse
	OpNumberInt   // pushes Int as an integer value
	OpNumberFloat // pushes Float as a float value
	OpString      // pushes Str
	OpGetEnv      // push _ENV

	// Tables. A is capacity (TableInit) or the base index (TableInitLast).
	// OpTableIndex pops (key, table) and pushes the result. OpTableIndexSet
	// pops (key, table, value), in that top-to-bottom order: compiled
	// assignment pushes the new value first and the table/key last.
	OpTableInit
	OpTableSetKV
	OpTableInitLast
	OpTableIndex
	OpTableIndexSet

	// Function objects. A is an index into the enclosing Prototype's
	// Children slice (FunctionInit), or a slot offset / upvalue index
	// (UpvalueFromLocal / UpvalueFromUpvalue).
	OpFunctionInit
	OpUpvalueFromLocal
	OpUpvalueFromUpvalue

	// OpForCheck pops (step, limit, control) and pushes a boolean: whether
	// a numeric for loop should continue, using Lua 5.4's step-direction
	// comparison (control <= limit when step > 0, control >= limit when
	// step < 0) rather than an unconditional <=.
	OpForCheck

	// Arithmetic / bitwise / comparison / string / unary.
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpIDiv
	OpMod
	OpPow
	OpBAnd
	OpBOr
	OpBXor
	OpShl
	OpShr
	OpConcat
	OpEq
	OpLt
	OpLe
	OpLen
	OpUnm
	OpNot
	OpBNot

	// Calls and returns. HasB indicates whether B holds a finite expected
	// count; when false, the call/return/vararg is in "multi" (all
	// results) mode.
	OpCall
	OpReturn
	OpVararg
)

// Instruction is one stack-machine instruction. Field meaning depends on
// Op; see the constant comments above.
//
// For OpCall: A is the argument count, or -1 if the final argument was
// itself multi-valued, in which case an OpSp immediately before the
// arguments were pushed lets the VM recover the callee's stack position
// from the aux stack instead of from A. B/HasB is the desired result
// count (HasB false keeps every result the callee returned). Method, when
// true, means the stack holds (receiver, callee, args...) rather than
// (callee, args...): the receiver is prepended to the argument list the
// callee actually receives, matching "recv:method(args)" sugar.
type Instruction struct {
	Op     Opcode
	A      int
	B      int
	HasB   bool
	Method bool
	Int    int64
	Float  float64
	Str    string
}

func (ins Instruction) String() string {
	switch ins.Op {
	case OpJump, OpJumpTrue, OpJumpFalse, OpJumpNil, OpGetLocal, OpSetLocal, OpInitLocal,
		OpGetUpvalue, OpSetUpvalue, OpTableInit, OpTableInitLast, OpFunctionInit,
		OpUpvalueFromLocal, OpUpvalueFromUpvalue:
		return fmt.Sprintf("%s %d", opcodeNames[ins.Op], ins.A)
	case OpNumberInt:
		return fmt.Sprintf("%s %d", opcodeNames[ins.Op], ins.Int)
	case OpNumberFloat:
		return fmt.Sprintf("%s %g", opcodeNames[ins.Op], ins.Float)
	case OpString:
		return fmt.Sprintf("%s %q", opcodeNames[ins.Op], ins.Str)
	case OpCall, OpVararg:
		if ins.HasB {
			return fmt.Sprintf("%s %d", opcodeNames[ins.Op], ins.B)
		}
		return fmt.Sprintf("%s multi", opcodeNames[ins.Op])
	default:
		return opcodeNames[ins.Op]
	}
}

var opcodeNames = map[Opcode]string{
	OpNop: "nop", OpClone: "clone", OpPop: "pop", OpSp: "sp", OpDeref: "deref",
	OpJump: "jump", OpJumpTrue: "jump.true", OpJumpFalse: "jump.false", OpJumpNil: "jump.nil", OpForCheck: "for.check",
	OpGetLocal: "local.get", OpSetLocal: "local.set", OpInitLocal: "local.init",
	OpGetUpvalue: "upvalue.get", OpSetUpvalue: "upvalue.set",
	OpNil: "nil", OpTrue: "true", OpFalse: "false",
	OpNumberInt: "int", OpNumberFloat: "float", OpString: "string", OpGetEnv: "env",
	OpTableInit: "table.init", OpTableSetKV: "table.setkv",
	OpTableInitLast: "table.initlast", OpTableIndex: "table.index", OpTableIndexSet: "table.newindex",
	OpFunctionInit: "function.init", OpUpvalueFromLocal: "upvalue.fromlocal", OpUpvalueFromUpvalue: "upvalue.fromupvalue",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpIDiv: "idiv", OpMod: "mod", OpPow: "pow",
	OpBAnd: "band", OpBOr: "bor", OpBXor: "bxor", OpShl: "shl", OpShr: "shr",
	OpConcat: "concat", OpEq: "eq", OpLt: "lt", OpLe: "le", OpLen: "len",
	OpUnm: "unm", OpNot: "not", OpBNot: "bnot",
	OpCall: "call", OpReturn: "return", OpVararg: "vararg",
}
