// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package compile

import (
	"lumalang.dev/lua/internal/ast"
	"lumalang.dev/lua/internal/token"
)

// ResKind distinguishes the three ways a name can resolve, per
// specification §4.1's lookup algorithm.
type ResKind int

const (
	ResLocal ResKind = iota
	ResUpvalue
	ResGlobal
)

// Resolution records how one [ast.NameExpr] was resolved.
type Resolution struct {
	Kind  ResKind
	Index int // stack slot (ResLocal) or upvalue index (ResUpvalue)
}

// FuncInfo is the semantic analyzer's output for one function (or the
// top-level chunk): its frame size, variadic flag, and the upvalue
// sources its closures must be built with.
type FuncInfo struct {
	NumParams    int
	Variadic     bool
	MaxStackSize int
	Upvalues     []UpvalueSource
}

// NumForSlots records the stack slots the compiler should use for a
// numeric for loop: Control is a hidden accumulator never visible to Lua
// code, and Var is the named, user-visible loop variable, re-initialized
// fresh from Control at the top of every iteration so closures created in
// different iterations capture distinct cells.
type NumForSlots struct {
	Control int // hidden accumulator, never visible to Lua code
	Limit   int
	Step    int
	Var     int // named, user-visible loop variable
}

// GenForSlots records the four hidden control slots and the named
// variable slots of a generic for loop.
type GenForSlots struct {
	Iterator, State, Control, Closing int
	Vars                              []int
}

// Annotations is the "annotated AST": a side table keyed by AST node
// identity, produced by [Resolve] and consumed by [Compile]. Keeping it
// as a side table (rather than rewriting ast.Expr/ast.Stat in place)
// keeps internal/ast free of any semantic-analysis concerns, matching the
// pipeline's "external AST in, richer facts out" shape.
type Annotations struct {
	Name      map[*ast.NameExpr]Resolution
	Local     map[*ast.LocalStat][]int
	LocalFunc map[*ast.LocalFunctionStat]int
	NumFor    map[*ast.NumericForStat]NumForSlots
	GenFor    map[*ast.GenericForStat]GenForSlots
	FuncInfo  map[*ast.FunctionExpr]*FuncInfo
	Main      *FuncInfo
}

// Resolve performs semantic analysis on a parsed chunk: scope resolution,
// upvalue capture, and label/goto validation (specification §4.1).
func Resolve(chunk *ast.Block) (*Annotations, error) {
	r := &resolver{
		ann: &Annotations{
			Name:      make(map[*ast.NameExpr]Resolution),
			Local:     make(map[*ast.LocalStat][]int),
			LocalFunc: make(map[*ast.LocalFunctionStat]int),
			NumFor:    make(map[*ast.NumericForStat]NumForSlots),
			GenFor:    make(map[*ast.GenericForStat]GenForSlots),
			FuncInfo:  make(map[*ast.FunctionExpr]*FuncInfo),
		},
	}
	main := r.pushFunc(nil, true)
	r.pushBlock(false)
	if err := r.block(chunk); err != nil {
		return nil, err
	}
	if err := r.popBlock(); err != nil {
		return nil, err
	}
	info, err := r.popFunc(main)
	if err != nil {
		return nil, err
	}
	r.ann.Main = info
	return r.ann, nil
}

type localDecl struct {
	name string
	slot int
}

type blockScope struct {
	parent    *blockScope
	fn        *funcScope
	base      int // fn.nextSlot when this block was opened
	locals    []localDecl
	isLoop    bool
	labelsHere []string
}

type labelDef struct {
	block   *blockScope
	pos     token.Position
	nlocals int // len(block.locals) at definition time
}

type gotoUse struct {
	name    string
	block   *blockScope
	pos     token.Position
	nlocals int
}

type funcScope struct {
	parent         *funcScope
	enclosingBlock *blockScope
	node           *ast.FunctionExpr
	variadic       bool
	nextSlot       int
	maxSlot        int
	upvalues       []UpvalueSource
	upvalueIndex   map[string]int
	labels         map[string]labelDef
	gotos          []gotoUse
}

type resolver struct {
	ann      *Annotations
	curFunc  *funcScope
	curBlock *blockScope
}

func (r *resolver) pushFunc(node *ast.FunctionExpr, variadic bool) *funcScope {
	f := &funcScope{
		parent:         r.curFunc,
		enclosingBlock: r.curBlock,
		node:           node,
		variadic:       variadic,
		upvalueIndex:   make(map[string]int),
		labels:         make(map[string]labelDef),
	}
	r.curFunc = f
	return f
}

func (r *resolver) popFunc(f *funcScope) (*FuncInfo, error) {
	// Gotos are matched against labels as each block closes (popBlock);
	// anything still pending here never found a visible definition.
	for _, g := range f.gotos {
		return nil, &SemanticError{Kind: InvalidLabel, Pos: g.pos, Label: g.name,
			Msg: "no visible label '" + g.name + "' for goto"}
	}
	numParams := 0
	if f.node != nil {
		numParams = len(f.node.Params)
	}
	info := &FuncInfo{
		NumParams:    numParams,
		Variadic:     f.variadic,
		MaxStackSize: f.maxSlot,
		Upvalues:     f.upvalues,
	}
	r.curFunc = f.parent
	return info, nil
}

// checkGotoScope implements specification §4.1's validity rule: the
// goto's block must be the label's block or a descendant of it (goto may
// only exit blocks), and if they are the same block, the goto may not
// precede any local whose declaration is visible at the label.
func checkGotoScope(g gotoUse, def labelDef) error {
	for b := g.block; b != nil; b = b.parent {
		if b == def.block {
			if b == g.block && def.nlocals > g.nlocals {
				return &SemanticError{Kind: InvalidGotoScope, Pos: g.pos, LabelAt: def.pos, Label: g.name,
					Msg: "goto '" + g.name + "' jumps into the scope of a local variable"}
			}
			return nil
		}
	}
	return &SemanticError{Kind: InvalidGotoScope, Pos: g.pos, LabelAt: def.pos, Label: g.name,
		Msg: "goto '" + g.name + "' jumps into a block it cannot enter"}
}

func (r *resolver) pushBlock(isLoop bool) *blockScope {
	b := &blockScope{parent: r.curBlock, fn: r.curFunc, base: r.curFunc.nextSlot, isLoop: isLoop}
	r.curBlock = b
	return b
}

// popBlock closes the current block scope. Labels defined in the block go
// out of scope here, so this is the last moment the gotos that could
// legally target them (those lexically inside the block, per the
// scope-tree prefix rule) can be matched; a matched goto is validated and
// dropped from the pending list, everything else stays pending for an
// enclosing block's label or popFunc's undefined-label report.
func (r *resolver) popBlock() error {
	b := r.curBlock
	f := b.fn
	if len(b.labelsHere) > 0 {
		remaining := f.gotos[:0]
		for _, g := range f.gotos {
			def, ok := f.labels[g.name]
			if ok && def.block == b && blockEncloses(b, g.block) {
				if err := checkGotoScope(g, def); err != nil {
					return err
				}
				continue
			}
			remaining = append(remaining, g)
		}
		f.gotos = remaining
		for _, name := range b.labelsHere {
			delete(f.labels, name)
		}
	}
	f.nextSlot = b.base
	r.curBlock = b.parent
	return nil
}

// blockEncloses reports whether outer is inner or one of its ancestors.
func blockEncloses(outer, inner *blockScope) bool {
	for b := inner; b != nil; b = b.parent {
		if b == outer {
			return true
		}
	}
	return false
}

func (r *resolver) declareLocal(name string) int {
	slot := r.curFunc.nextSlot
	r.curFunc.nextSlot++
	if r.curFunc.nextSlot > r.curFunc.maxSlot {
		r.curFunc.maxSlot = r.curFunc.nextSlot
	}
	r.curBlock.locals = append(r.curBlock.locals, localDecl{name: name, slot: slot})
	return slot
}

// lookup implements specification §4.1's name-resolution algorithm.
func (r *resolver) lookup(name string) Resolution {
	for blk := r.curBlock; blk != nil && blk.fn == r.curFunc; blk = blk.parent {
		for i := len(blk.locals) - 1; i >= 0; i-- {
			if blk.locals[i].name == name {
				return Resolution{Kind: ResLocal, Index: blk.locals[i].slot}
			}
		}
	}
	if idx, ok := r.resolveUpvalue(r.curFunc, name); ok {
		return Resolution{Kind: ResUpvalue, Index: idx}
	}
	return Resolution{Kind: ResGlobal}
}

func (r *resolver) resolveUpvalue(f *funcScope, name string) (int, bool) {
	if idx, ok := f.upvalueIndex[name]; ok {
		return idx, true
	}
	if f.parent == nil {
		return 0, false
	}
	for blk := f.enclosingBlock; blk != nil && blk.fn == f.parent; blk = blk.parent {
		for i := len(blk.locals) - 1; i >= 0; i-- {
			if blk.locals[i].name == name {
				return f.addUpvalue(name, UpvalueSource{FromParentLocal: true, Index: blk.locals[i].slot, Name: name}), true
			}
		}
	}
	if parentIdx, ok := r.resolveUpvalue(f.parent, name); ok {
		return f.addUpvalue(name, UpvalueSource{FromParentLocal: false, Index: parentIdx, Name: name}), true
	}
	return 0, false
}

func (f *funcScope) addUpvalue(name string, src UpvalueSource) int {
	idx := len(f.upvalues)
	f.upvalues = append(f.upvalues, src)
	f.upvalueIndex[name] = idx
	return idx
}

// ---- Statement / expression walk ----

func (r *resolver) block(b *ast.Block) error {
	for _, s := range b.Stats {
		if err := r.stat(s); err != nil {
			return err
		}
	}
	if b.Return != nil {
		for _, e := range b.Return.Exprs {
			if err := r.expr(e); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *resolver) nestedBlock(b *ast.Block, isLoop bool) error {
	r.pushBlock(isLoop)
	if err := r.block(b); err != nil {
		return err
	}
	return r.popBlock()
}

func (r *resolver) stat(s ast.Stat) error {
	switch s := s.(type) {
	case *ast.LocalStat:
		for _, e := range s.Exprs {
			if err := r.expr(e); err != nil {
				return err
			}
		}
		slots := make([]int, len(s.Names))
		for i, name := range s.Names {
			slots[i] = r.declareLocal(name)
		}
		r.ann.Local[s] = slots
		return nil
	case *ast.AssignStat:
		for _, e := range s.Exprs {
			if err := r.expr(e); err != nil {
				return err
			}
		}
		for _, t := range s.Targets {
			if err := r.expr(t); err != nil {
				return err
			}
		}
		return nil
	case *ast.CallStat:
		return r.expr(s.Call)
	case *ast.DoStat:
		return r.nestedBlock(s.Body, false)
	case *ast.WhileStat:
		if err := r.expr(s.Cond); err != nil {
			return err
		}
		return r.nestedBlock(s.Body, true)
	case *ast.RepeatStat:
		// The until-condition can see locals declared in the body, so the
		// scope stays open across both.
		r.pushBlock(true)
		if err := r.block(s.Body); err != nil {
			return err
		}
		if err := r.expr(s.Cond); err != nil {
			return err
		}
		return r.popBlock()
	case *ast.IfStat:
		for _, arm := range s.Arms {
			if err := r.expr(arm.Cond); err != nil {
				return err
			}
			if err := r.nestedBlock(arm.Body, false); err != nil {
				return err
			}
		}
		if s.Else != nil {
			return r.nestedBlock(s.Else, false)
		}
		return nil
	case *ast.NumericForStat:
		if err := r.expr(s.Start); err != nil {
			return err
		}
		if err := r.expr(s.Stop); err != nil {
			return err
		}
		if s.Step != nil {
			if err := r.expr(s.Step); err != nil {
				return err
			}
		}
		r.pushBlock(true)
		control := r.declareLocal(" for-control")
		limit := r.declareLocal(" for-limit")
		step := r.declareLocal(" for-step")
		v := r.declareLocal(s.Name)
		r.ann.NumFor[s] = NumForSlots{Control: control, Limit: limit, Step: step, Var: v}
		if err := r.block(s.Body); err != nil {
			return err
		}
		return r.popBlock()
	case *ast.GenericForStat:
		for _, e := range s.Exprs {
			if err := r.expr(e); err != nil {
				return err
			}
		}
		r.pushBlock(true)
		it := r.declareLocal(" for-iterator")
		st := r.declareLocal(" for-state")
		ctl := r.declareLocal(" for-control")
		cl := r.declareLocal(" for-closing")
		vars := make([]int, len(s.Names))
		for i, name := range s.Names {
			vars[i] = r.declareLocal(name)
		}
		r.ann.GenFor[s] = GenForSlots{Iterator: it, State: st, Control: ctl, Closing: cl, Vars: vars}
		if err := r.block(s.Body); err != nil {
			return err
		}
		return r.popBlock()
	case *ast.FunctionDeclStat:
		if err := r.expr(s.Target); err != nil {
			return err
		}
		return r.funcExpr(s.Func)
	case *ast.LocalFunctionStat:
		slot := r.declareLocal(s.Name)
		r.ann.LocalFunc[s] = slot
		return r.funcExpr(s.Func)
	case *ast.ReturnStat:
		for _, e := range s.Exprs {
			if err := r.expr(e); err != nil {
				return err
			}
		}
		return nil
	case *ast.BreakStat:
		for blk := r.curBlock; blk != nil && blk.fn == r.curFunc; blk = blk.parent {
			if blk.isLoop {
				return nil
			}
		}
		return &SemanticError{Kind: BreakOutsideLoop, Pos: s.Pos, Msg: "break outside a loop"}
	case *ast.GotoStat:
		r.curFunc.gotos = append(r.curFunc.gotos, gotoUse{
			name: s.Label, block: r.curBlock, pos: s.Pos, nlocals: len(r.curBlock.locals),
		})
		return nil
	case *ast.LabelStat:
		if _, exists := r.curFunc.labels[s.Name]; exists {
			return &SemanticError{Kind: MultipleLabel, Pos: s.Pos, Label: s.Name,
				Msg: "label '" + s.Name + "' already defined in this scope"}
		}
		r.curFunc.labels[s.Name] = labelDef{block: r.curBlock, pos: s.Pos, nlocals: len(r.curBlock.locals)}
		r.curBlock.labelsHere = append(r.curBlock.labelsHere, s.Name)
		return nil
	default:
		return nil
	}
}

func (r *resolver) funcExpr(fe *ast.FunctionExpr) error {
	f := r.pushFunc(fe, fe.Variadic)
	r.pushBlock(false)
	for _, p := range fe.Params {
		r.declareLocal(p)
	}
	if err := r.block(fe.Body); err != nil {
		return err
	}
	if err := r.popBlock(); err != nil {
		return err
	}
	info, err := r.popFunc(f)
	if err != nil {
		return err
	}
	r.ann.FuncInfo[fe] = info
	return nil
}

func (r *resolver) expr(e ast.Expr) error {
	switch e := e.(type) {
	case *ast.NilExpr, *ast.TrueExpr, *ast.FalseExpr, *ast.NumberExpr, *ast.StringExpr:
		return nil
	case *ast.VarargExpr:
		if !r.curFunc.variadic {
			return &SemanticError{Kind: VariadicInNonVariadicFunction, Pos: e.Pos,
				Msg: "cannot use '...' outside a variadic function"}
		}
		return nil
	case *ast.NameExpr:
		r.ann.Name[e] = r.lookup(e.Name)
		return nil
	case *ast.IndexExpr:
		if err := r.expr(e.Obj); err != nil {
			return err
		}
		return r.expr(e.Key)
	case *ast.CallExpr:
		if err := r.expr(e.Func); err != nil {
			return err
		}
		for _, a := range e.Args {
			if err := r.expr(a); err != nil {
				return err
			}
		}
		return nil
	case *ast.MethodCallExpr:
		if err := r.expr(e.Recv); err != nil {
			return err
		}
		for _, a := range e.Args {
			if err := r.expr(a); err != nil {
				return err
			}
		}
		return nil
	case *ast.FunctionExpr:
		return r.funcExpr(e)
	case *ast.BinaryExpr:
		if err := r.expr(e.Left); err != nil {
			return err
		}
		return r.expr(e.Right)
	case *ast.UnaryExpr:
		return r.expr(e.Operand)
	case *ast.TableExpr:
		for _, f := range e.Fields {
			if f.Key != nil {
				if err := r.expr(f.Key); err != nil {
					return err
				}
			}
			if err := r.expr(f.Value); err != nil {
				return err
			}
		}
		return nil
	case *ast.ParenExpr:
		return r.expr(e.Inner)
	default:
		return nil
	}
}
