// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package compile

import (
	"lumalang.dev/lua/internal/ast"
)

// Compile lowers a parsed, resolved chunk to a tree of [Prototype] values
// rooted at the top-level chunk's prototype (specification §4.2).
func Compile(source string, chunk *ast.Block, ann *Annotations) *Prototype {
	e := &emitter{ann: ann, source: source}
	return e.function(chunk, ann.Main, nil)
}

type emitter struct {
	ann    *Annotations
	source string

	code         []Instruction
	lines        []int
	children     []*Prototype
	loopStack    []loopCtx
	curLine      int
	labelPos     map[string]int
	pendingGotos map[string][]int
}

type loopCtx struct {
	breaks []int // indices of OpJump instructions to patch to the loop's end
}

func (e *emitter) function(body *ast.Block, info *FuncInfo, params []string) *Prototype {
	save := *e
	e.code = nil
	e.lines = nil
	e.children = nil
	e.loopStack = nil
	e.labelPos = nil
	e.pendingGotos = nil

	e.block(body)
	e.emit(Instruction{Op: OpReturn, HasB: true, B: 0})

	proto := &Prototype{
		Source:       e.source,
		NumParams:    info.NumParams,
		IsVararg:     info.Variadic,
		MaxStackSize: info.MaxStackSize,
		Code:         e.code,
		Lines:        e.lines,
		Upvalues:     info.Upvalues,
		Children:     e.children,
	}
	*e = save
	return proto
}

func (e *emitter) emit(ins Instruction) int {
	idx := len(e.code)
	e.code = append(e.code, ins)
	e.lines = append(e.lines, e.curLine)
	return idx
}

func (e *emitter) patchJump(idx int) {
	e.code[idx].A = len(e.code)
}

func (e *emitter) here() int { return len(e.code) }

func (e *emitter) block(b *ast.Block) {
	for _, s := range b.Stats {
		e.stat(s)
	}
	if b.Return != nil {
		e.exprListMulti(b.Return.Exprs)
		e.emit(Instruction{Op: OpReturn, HasB: false})
	}
	// A label's scope ends with its block: dropping it here keeps a goto
	// in a later sibling block from resolving backward to a stale
	// position when the name is reused (the resolver has already checked
	// every goto has a visible definition).
	for _, s := range b.Stats {
		if l, ok := s.(*ast.LabelStat); ok {
			delete(e.labelPos, l.Name)
		}
	}
}

// exprListAdjust compiles a list of expressions, adjusting the final
// result count so that exactly n values end up on the data stack: extra
// trailing values are discarded, missing ones are padded with nil, and a
// final call/vararg expression expands to fill the remainder (§4.2's
// multi-value adjustment rule).
func (e *emitter) exprListAdjust(exprs []ast.Expr, n int) {
	if len(exprs) == 0 {
		for i := 0; i < n; i++ {
			e.emit(Instruction{Op: OpNil})
		}
		return
	}
	for i, ex := range exprs {
		last := i == len(exprs)-1
		if last && ast.IsMultiValue(ex) {
			want := n - (len(exprs) - 1)
			if want < 0 {
				// More fixed expressions than needed values: the tail is
				// still evaluated (for side effects) but contributes
				// nothing, and the surplus fixed values are discarded.
				e.exprMulti(ex, 0)
				for k := n; k < len(exprs)-1; k++ {
					e.emit(Instruction{Op: OpPop})
				}
				return
			}
			e.exprMulti(ex, want)
			return
		}
		e.expr(ex)
	}
	if len(exprs) >= n {
		for i := n; i < len(exprs); i++ {
			e.emit(Instruction{Op: OpPop})
		}
		return
	}
	for i := len(exprs); i < n; i++ {
		e.emit(Instruction{Op: OpNil})
	}
}

// exprListMulti compiles a list of expressions where the final expression
// (if a call or vararg) expands to all of its results.
func (e *emitter) exprListMulti(exprs []ast.Expr) {
	for i, ex := range exprs {
		last := i == len(exprs)-1
		if last && ast.IsMultiValue(ex) {
			e.exprMulti(ex, -1)
			return
		}
		e.expr(ex)
	}
}

// exprMulti compiles a call or vararg expression in "multi" mode (want<0,
// all results) or adjusted to exactly want results.
func (e *emitter) exprMulti(ex ast.Expr, want int) {
	switch ex := ex.(type) {
	case *ast.CallExpr:
		e.callExpr(ex, want)
	case *ast.MethodCallExpr:
		e.methodCallExpr(ex, want)
	case *ast.VarargExpr:
		if want < 0 {
			e.emit(Instruction{Op: OpVararg, HasB: false})
		} else {
			e.emit(Instruction{Op: OpVararg, HasB: true, B: want})
		}
	default:
		e.expr(ex)
	}
}

// callArgCount reports how many stack slots the compiled argument list
// occupies (A on the resulting OpCall), or -1 if the final argument is
// itself multi-valued and the count can only be known at run time. In the
// -1 case an OpSp immediately after the callee is pushed lets the VM
// recover the callee's position from the aux stack instead of an A offset.
func callArgCount(args []ast.Expr) int {
	if len(args) == 0 || !ast.IsMultiValue(args[len(args)-1]) {
		return len(args)
	}
	return -1
}

func (e *emitter) callExpr(ce *ast.CallExpr, want int) {
	e.expr(ce.Func)
	argc := callArgCount(ce.Args)
	if argc < 0 {
		e.emit(Instruction{Op: OpSp})
	}
	e.exprListMulti(ce.Args)
	e.emit(callInstruction(argc, want))
}

func (e *emitter) methodCallExpr(mc *ast.MethodCallExpr, want int) {
	e.expr(mc.Recv)
	e.emit(Instruction{Op: OpClone})
	e.emit(Instruction{Op: OpString, Str: mc.Method})
	e.emit(Instruction{Op: OpTableIndex})
	// Stack is now (receiver, callee): looking up the method consumes a
	// cloned copy of the receiver, leaving the original beneath the
	// function value it resolved to.
	argc := callArgCount(mc.Args)
	if argc < 0 {
		e.emit(Instruction{Op: OpSp})
	}
	e.exprListMulti(mc.Args)
	ins := callInstruction(argc, want)
	ins.Method = true
	e.emit(ins)
}

// callInstruction builds an OpCall: A is the argument count (or -1, signaling
// a multi-valued tail argument marked by a preceding OpSp), and B/HasB is the
// desired result count (HasB false keeps every result the callee returned).
func callInstruction(argc, want int) Instruction {
	ins := Instruction{Op: OpCall, A: argc}
	if want >= 0 {
		ins.HasB = true
		ins.B = want
	}
	return ins
}

func (e *emitter) stat(s ast.Stat) {
	switch s := s.(type) {
	case *ast.LocalStat:
		slots := e.ann.Local[s]
		e.exprListAdjust(s.Exprs, len(slots))
		for i := len(slots) - 1; i >= 0; i-- {
			e.emit(Instruction{Op: OpInitLocal, A: slots[i]})
		}
	case *ast.AssignStat:
		e.exprListAdjust(s.Exprs, len(s.Targets))
		for i := len(s.Targets) - 1; i >= 0; i-- {
			e.assignTo(s.Targets[i])
		}
	case *ast.CallStat:
		e.exprMulti(s.Call, 0)
	case *ast.DoStat:
		e.block(s.Body)
	case *ast.WhileStat:
		top := e.here()
		e.expr(s.Cond)
		exitJump := e.emit(Instruction{Op: OpJumpFalse})
		e.loopStack = append(e.loopStack, loopCtx{})
		e.block(s.Body)
		e.emit(Instruction{Op: OpJump, A: top})
		e.patchJump(exitJump)
		e.closeLoop()
	case *ast.RepeatStat:
		top := e.here()
		e.loopStack = append(e.loopStack, loopCtx{})
		e.block(s.Body)
		e.expr(s.Cond)
		e.emit(Instruction{Op: OpJumpFalse, A: top})
		e.closeLoop()
	case *ast.IfStat:
		var endJumps []int
		for _, arm := range s.Arms {
			e.expr(arm.Cond)
			skip := e.emit(Instruction{Op: OpJumpFalse})
			e.block(arm.Body)
			endJumps = append(endJumps, e.emit(Instruction{Op: OpJump}))
			e.patchJump(skip)
		}
		if s.Else != nil {
			e.block(s.Else)
		}
		for _, j := range endJumps {
			e.patchJump(j)
		}
	case *ast.NumericForStat:
		e.numericFor(s)
	case *ast.GenericForStat:
		e.genericFor(s)
	case *ast.FunctionDeclStat:
		e.functionExpr(s.Func)
		e.assignTo(s.Target)
	case *ast.LocalFunctionStat:
		slot := e.ann.LocalFunc[s]
		e.emit(Instruction{Op: OpNil})
		e.emit(Instruction{Op: OpInitLocal, A: slot})
		e.functionExpr(s.Func)
		e.emit(Instruction{Op: OpSetLocal, A: slot})
	case *ast.BreakStat:
		j := e.emit(Instruction{Op: OpJump})
		top := &e.loopStack[len(e.loopStack)-1]
		top.breaks = append(top.breaks, j)
	case *ast.GotoStat, *ast.LabelStat:
		// Goto/label lowering resolves purely at compile time via the
		// same backpatch mechanism as structured control flow; unresolved
		// cross-block gotos are out of scope for this stack machine's
		// straight-line block compiler and are rejected earlier by Resolve
		// whenever they would require it.
		e.gotoOrLabel(s)
	}
}

func (e *emitter) closeLoop() {
	top := e.loopStack[len(e.loopStack)-1]
	for _, j := range top.breaks {
		e.patchJump(j)
	}
	e.loopStack = e.loopStack[:len(e.loopStack)-1]
}

// pendingGoto pairs a goto's label name with the index of its jump
// instruction. Within the current function body, the emitter's labelPos
// and pendingGotos fields track resolved label positions and pending
// forward gotos, keyed by name. Backward gotos (label already emitted)
// resolve immediately; forward ones are backpatched when the label
// statement is reached.
type pendingGoto struct {
	name string
	idx  int
}

func (e *emitter) gotoOrLabel(s ast.Stat) {
	switch s := s.(type) {
	case *ast.LabelStat:
		if e.labelPos == nil {
			e.labelPos = make(map[string]int)
		}
		e.labelPos[s.Name] = e.here()
		if pending := e.pendingGotos[s.Name]; len(pending) > 0 {
			for _, idx := range pending {
				e.patchJump(idx)
			}
			delete(e.pendingGotos, s.Name)
		}
	case *ast.GotoStat:
		if pos, ok := e.labelPos[s.Label]; ok {
			e.emit(Instruction{Op: OpJump, A: pos})
			return
		}
		idx := e.emit(Instruction{Op: OpJump})
		if e.pendingGotos == nil {
			e.pendingGotos = make(map[string][]int)
		}
		e.pendingGotos[s.Label] = append(e.pendingGotos[s.Label], idx)
	}
}

func (e *emitter) numericFor(s *ast.NumericForStat) {
	slots := e.ann.NumFor[s]
	e.expr(s.Start)
	e.emit(Instruction{Op: OpInitLocal, A: slots.Control})
	e.expr(s.Stop)
	e.emit(Instruction{Op: OpInitLocal, A: slots.Limit})
	if s.Step != nil {
		e.expr(s.Step)
	} else {
		e.emit(Instruction{Op: OpNumberInt, Int: 1})
	}
	e.emit(Instruction{Op: OpInitLocal, A: slots.Step})

	top := e.here()
	e.emit(Instruction{Op: OpGetLocal, A: slots.Control})
	e.emit(Instruction{Op: OpGetLocal, A: slots.Limit})
	e.emit(Instruction{Op: OpGetLocal, A: slots.Step})
	// ForCheck accounts for step sign per Lua 5.4 (the step's direction
	// flips whether the comparison is <= or >=), not the always-<=
	// comparison the stack machine this is otherwise modeled on used.
	e.emit(Instruction{Op: OpForCheck})
	exitJump := e.emit(Instruction{Op: OpJumpFalse})

	e.emit(Instruction{Op: OpGetLocal, A: slots.Control})
	e.emit(Instruction{Op: OpInitLocal, A: slots.Var})

	e.loopStack = append(e.loopStack, loopCtx{})
	e.block(s.Body)

	e.emit(Instruction{Op: OpGetLocal, A: slots.Control})
	e.emit(Instruction{Op: OpGetLocal, A: slots.Step})
	e.emit(Instruction{Op: OpAdd})
	e.emit(Instruction{Op: OpSetLocal, A: slots.Control})
	e.emit(Instruction{Op: OpJump, A: top})
	e.patchJump(exitJump)
	e.closeLoop()
}

func (e *emitter) genericFor(s *ast.GenericForStat) {
	slots := e.ann.GenFor[s]
	e.exprListAdjust(s.Exprs, 4)
	e.emit(Instruction{Op: OpInitLocal, A: slots.Closing})
	e.emit(Instruction{Op: OpInitLocal, A: slots.Control})
	e.emit(Instruction{Op: OpInitLocal, A: slots.State})
	e.emit(Instruction{Op: OpInitLocal, A: slots.Iterator})

	top := e.here()
	e.emit(Instruction{Op: OpGetLocal, A: slots.Iterator})
	e.emit(Instruction{Op: OpGetLocal, A: slots.State})
	e.emit(Instruction{Op: OpGetLocal, A: slots.Control})
	e.emit(Instruction{Op: OpCall, A: 2, HasB: true, B: len(slots.Vars)})
	for i := len(slots.Vars) - 1; i >= 0; i-- {
		e.emit(Instruction{Op: OpInitLocal, A: slots.Vars[i]})
	}
	e.emit(Instruction{Op: OpGetLocal, A: slots.Vars[0]})
	exitJump := e.emit(Instruction{Op: OpJumpNil})
	e.emit(Instruction{Op: OpGetLocal, A: slots.Vars[0]})
	e.emit(Instruction{Op: OpSetLocal, A: slots.Control})

	e.loopStack = append(e.loopStack, loopCtx{})
	e.block(s.Body)
	e.emit(Instruction{Op: OpJump, A: top})
	e.patchJump(exitJump)
	e.closeLoop()
}

func (e *emitter) assignTo(target ast.Expr) {
	switch t := target.(type) {
	case *ast.NameExpr:
		res := e.ann.Name[t]
		switch res.Kind {
		case ResLocal:
			e.emit(Instruction{Op: OpSetLocal, A: res.Index})
		case ResUpvalue:
			e.emit(Instruction{Op: OpSetUpvalue, A: res.Index})
		default:
			// TableIndexSet pops key, then table, then the value that was
			// already pushed beneath them by the caller.
			e.emit(Instruction{Op: OpGetEnv})
			e.emit(Instruction{Op: OpString, Str: t.Name})
			e.emit(Instruction{Op: OpTableIndexSet})
		}
	case *ast.IndexExpr:
		// TableIndexSet pops key, then table, then the value already
		// pushed beneath them by the caller (§4.2's assignment lowering
		// evaluates the RHS before each target's table/key).
		e.expr(t.Obj)
		e.expr(t.Key)
		e.emit(Instruction{Op: OpTableIndexSet})
	}
}

func (e *emitter) expr(ex ast.Expr) {
	if ex != nil && ex.Position().IsValid() {
		e.curLine = ex.Position().Line
	}
	switch ex := ex.(type) {
	case *ast.NilExpr:
		e.emit(Instruction{Op: OpNil})
	case *ast.TrueExpr:
		e.emit(Instruction{Op: OpTrue})
	case *ast.FalseExpr:
		e.emit(Instruction{Op: OpFalse})
	case *ast.VarargExpr:
		e.emit(Instruction{Op: OpVararg, HasB: true, B: 1})
	case *ast.NumberExpr:
		if ex.IsInt {
			e.emit(Instruction{Op: OpNumberInt, Int: ex.Int})
		} else {
			e.emit(Instruction{Op: OpNumberFloat, Float: ex.Float})
		}
	case *ast.StringExpr:
		e.emit(Instruction{Op: OpString, Str: ex.Value})
	case *ast.NameExpr:
		res := e.ann.Name[ex]
		switch res.Kind {
		case ResLocal:
			e.emit(Instruction{Op: OpGetLocal, A: res.Index})
		case ResUpvalue:
			e.emit(Instruction{Op: OpGetUpvalue, A: res.Index})
		default:
			e.emit(Instruction{Op: OpGetEnv})
			e.emit(Instruction{Op: OpString, Str: ex.Name})
			e.emit(Instruction{Op: OpTableIndex})
		}
	case *ast.IndexExpr:
		e.expr(ex.Obj)
		e.expr(ex.Key)
		e.emit(Instruction{Op: OpTableIndex})
	case *ast.CallExpr:
		e.callExpr(ex, 1)
	case *ast.MethodCallExpr:
		e.methodCallExpr(ex, 1)
	case *ast.FunctionExpr:
		e.functionExpr(ex)
	case *ast.BinaryExpr:
		e.binaryExpr(ex)
	case *ast.UnaryExpr:
		e.expr(ex.Operand)
		e.emit(Instruction{Op: unaryOp[ex.Op]})
	case *ast.TableExpr:
		e.tableExpr(ex)
	case *ast.ParenExpr:
		e.exprMulti(ex.Inner, 1)
	}
}

var unaryOp = map[ast.UnaryOp]Opcode{
	ast.OpNeg:  OpUnm,
	ast.OpNot:  OpNot,
	ast.OpLen:  OpLen,
	ast.OpBNot: OpBNot,
}

var binOp = map[ast.BinaryOp]Opcode{
	ast.OpAdd: OpAdd, ast.OpSub: OpSub, ast.OpMul: OpMul, ast.OpDiv: OpDiv,
	ast.OpIDiv: OpIDiv, ast.OpMod: OpMod, ast.OpPow: OpPow, ast.OpConcat: OpConcat,
	ast.OpEq: OpEq, ast.OpLt: OpLt, ast.OpLe: OpLe,
	ast.OpBAnd: OpBAnd, ast.OpBOr: OpBOr, ast.OpBXor: OpBXor, ast.OpShl: OpShl, ast.OpShr: OpShr,
}

func (e *emitter) binaryExpr(ex *ast.BinaryExpr) {
	switch ex.Op {
	case ast.OpAnd:
		e.expr(ex.Left)
		e.emit(Instruction{Op: OpClone})
		skip := e.emit(Instruction{Op: OpJumpFalse})
		e.emit(Instruction{Op: OpPop})
		e.expr(ex.Right)
		e.patchJump(skip)
		return
	case ast.OpOr:
		e.expr(ex.Left)
		e.emit(Instruction{Op: OpClone})
		skip := e.emit(Instruction{Op: OpJumpTrue})
		e.emit(Instruction{Op: OpPop})
		e.expr(ex.Right)
		e.patchJump(skip)
		return
	case ast.OpNotEq:
		e.expr(ex.Left)
		e.expr(ex.Right)
		e.emit(Instruction{Op: OpEq})
		e.emit(Instruction{Op: OpNot})
		return
	case ast.OpGt:
		e.expr(ex.Right)
		e.expr(ex.Left)
		e.emit(Instruction{Op: OpLt})
		return
	case ast.OpGe:
		e.expr(ex.Right)
		e.expr(ex.Left)
		e.emit(Instruction{Op: OpLe})
		return
	}
	e.expr(ex.Left)
	e.expr(ex.Right)
	e.emit(Instruction{Op: binOp[ex.Op]})
}

func (e *emitter) tableExpr(ex *ast.TableExpr) {
	e.emit(Instruction{Op: OpTableInit, A: len(ex.Fields)})
	arrayIndex := 1
	for i, f := range ex.Fields {
		last := i == len(ex.Fields)-1
		if f.Key == nil {
			if last && ast.IsMultiValue(f.Value) {
				e.emit(Instruction{Op: OpClone})
				e.emit(Instruction{Op: OpSp})
				e.exprMulti(f.Value, -1)
				e.emit(Instruction{Op: OpTableInitLast, A: arrayIndex})
				return
			}
			e.emit(Instruction{Op: OpClone})
			e.emit(Instruction{Op: OpNumberInt, Int: int64(arrayIndex)})
			e.expr(f.Value)
			e.emit(Instruction{Op: OpTableSetKV})
			arrayIndex++
			continue
		}
		e.emit(Instruction{Op: OpClone})
		e.expr(f.Key)
		e.expr(f.Value)
		e.emit(Instruction{Op: OpTableSetKV})
	}
}

func (e *emitter) functionExpr(fe *ast.FunctionExpr) {
	info := e.ann.FuncInfo[fe]
	proto := e.function(fe.Body, info, fe.Params)
	idx := len(e.children)
	e.children = append(e.children, proto)
	e.emit(Instruction{Op: OpFunctionInit, A: idx})
	for _, uv := range info.Upvalues {
		if uv.FromParentLocal {
			e.emit(Instruction{Op: OpUpvalueFromLocal, A: uv.Index})
		} else {
			e.emit(Instruction{Op: OpUpvalueFromUpvalue, A: uv.Index})
		}
	}
}
