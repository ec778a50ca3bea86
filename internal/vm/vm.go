// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package vm

import (
	"math"

	"lumalang.dev/lua/internal/compile"
)

// Metamethod names (specification §3.2).
const (
	metaIndex    = "__index"
	metaNewIndex = "__newindex"
	metaCall     = "__call"
	metaEq       = "__eq"
	metaLt       = "__lt"
	metaLe       = "__le"
	metaLen      = "__len"
	metaConcat   = "__concat"
	metaMeta     = "__metatable"
	metaAdd      = "__add"
	metaSub      = "__sub"
	metaMul      = "__mul"
	metaDiv      = "__div"
	metaIDiv     = "__idiv"
	metaMod      = "__mod"
	metaPow      = "__pow"
	metaUnm      = "__unm"
	metaBAnd     = "__band"
	metaBOr      = "__bor"
	metaBXor     = "__bxor"
	metaBNot     = "__bnot"
	metaShl      = "__shl"
	metaShr      = "__shr"
)

// MaxCallDepth bounds Go-stack recursion from nested Lua calls; exceeding
// it raises a "stack overflow" runtime error rather than crashing the
// process.
const MaxCallDepth = 200

// VM executes compiled Lua chunks. One VM corresponds to one independent
// global state (specification §6.1's Environment sits on top of this).
type VM struct {
	Globals    *Table
	StringMeta *Table // shared metatable consulted when indexing a string value

	// MaxCallDepth bounds Go-stack recursion from nested Lua calls;
	// exceeding it raises a "stack overflow" runtime error rather than
	// crashing the process. Defaults to the package-level MaxCallDepth
	// but callers may lower or raise it (specification §6.1's StackLimit
	// option).
	MaxCallDepth int

	// threads is the coroutine stack of specification §3.6: the
	// bottommost entry is always the main thread, and the topmost entry
	// is whichever thread is currently Running. Exactly one goroutine
	// touches this slice at a time, because Resume/Yield hand off control
	// through unbuffered channels rather than running concurrently.
	threads []*Thread
}

// New creates a VM with a fresh, empty global table and a main thread.
func New() *VM {
	vm := &VM{Globals: NewTable(0), MaxCallDepth: MaxCallDepth}
	main := &Thread{status: ThreadRunning}
	vm.threads = []*Thread{main}
	return vm
}

// MainThread returns the VM's main thread, which is always Running or
// Normal (never Suspended or Dead): per specification §3.5 the main thread
// has no body closure and is never itself resumed.
func (vm *VM) MainThread() *Thread { return vm.threads[0] }

// Current returns the Thread that is presently executing Lua code.
func (vm *VM) Current() *Thread { return vm.threads[len(vm.threads)-1] }

// cannotResumeError mirrors specification §4.3.7 step 1: resuming a
// Running, Normal, or Dead coroutine is reported to the caller as a
// (false, msg) pair rather than raised as an exception.
type cannotResumeError string

func (e cannotResumeError) Error() string { return string(e) }

// Resume implements specification §4.3.7's resume(c, args...): it hands
// args to c (starting its body on first resume, or satisfying a pending
// yield otherwise), runs until c yields, returns, or errors, and reports
// the transferred values. A non-nil error here is always "the second
// return value coroutine.resume should produce on failure", never a Go
// panic-worthy condition: the caller (the coroutine library) turns it into
// (false, err) uniformly for both the cannot-resume case and a runtime
// error raised inside the coroutine's body.
func (vm *VM) Resume(t *Thread, args []Value) ([]Value, error) {
	switch t.status {
	case ThreadRunning, ThreadNormal, ThreadDead:
		return nil, cannotResumeError("cannot resume " + t.status.String() + " coroutine")
	}
	resuming := vm.Current()
	resuming.status = ThreadNormal
	t.status = ThreadRunning
	vm.threads = append(vm.threads, t)

	if !t.started {
		t.started = true
		t.resumeCh = make(chan []Value)
		t.yieldCh = make(chan yieldResult)
		go func() {
			results, err := vm.call(t.fn, args)
			t.yieldCh <- yieldResult{values: results, err: err, done: true}
		}()
	} else {
		t.resumeCh <- args
	}

	res := <-t.yieldCh
	vm.threads = vm.threads[:len(vm.threads)-1]
	resuming.status = ThreadRunning

	if res.done {
		t.status = ThreadDead
		if res.err != nil {
			return nil, res.err
		}
		return res.values, nil
	}
	t.status = ThreadSuspended
	return res.values, nil
}

// Yield implements specification §4.3.7's yield(v...): it suspends the
// currently running thread (which must not be the main thread) and blocks
// until its resumer hands control back with a fresh Resume call.
func (vm *VM) Yield(args []Value) ([]Value, error) {
	t := vm.Current()
	if t == vm.MainThread() {
		return nil, runtimeErrorf("attempt to yield from outside a coroutine")
	}
	t.yieldCh <- yieldResult{values: args}
	return <-t.resumeCh, nil
}

// frame is one activation record: a closure's locals, its private
// expression stack, and the auxiliary depth stack Sp/Deref address.
type frame struct {
	closure  *Closure
	locals   []Value
	varargs  []Value
	stack    []Value
	aux      []int
	openUV   map[int]*upvalue
}

// Run executes the top-level chunk proto as the VM's main thread.
func (vm *VM) Run(proto *compile.Prototype, args []Value) ([]Value, error) {
	cl := &Closure{proto: proto}
	return vm.call(cl, args)
}

func (vm *VM) call(callee Value, args []Value) ([]Value, error) {
	// Depth is tracked per thread: a suspended coroutine keeps its own
	// frames (and their unrun decrements) on its own counter, so a yield
	// does not inflate the resumer's headroom.
	t := vm.Current()
	t.callDepth++
	defer func() { t.callDepth-- }()
	limit := vm.MaxCallDepth
	if limit == 0 {
		limit = MaxCallDepth
	}
	if t.callDepth > limit {
		return nil, runtimeErrorf("stack overflow")
	}
	switch c := callee.(type) {
	case *GoFunction:
		return c.Func(vm, args)
	case *Closure:
		return vm.callClosure(c, args)
	default:
		if h := vm.metamethod(callee, metaCall); h != nil {
			return vm.call(h, append([]Value{callee}, args...))
		}
		return nil, runtimeErrorf("attempt to call a %s value", valueType(callee))
	}
}

func (vm *VM) callClosure(cl *Closure, args []Value) ([]Value, error) {
	p := cl.proto
	fr := &frame{
		closure: cl,
		locals:  make([]Value, p.MaxStackSize),
	}
	copy(fr.locals, args)
	if p.IsVararg && len(args) > p.NumParams {
		fr.varargs = args[p.NumParams:]
	}
	return vm.run(fr, p)
}

func (fr *frame) push(v Value) { fr.stack = append(fr.stack, v) }

func (fr *frame) pop() Value {
	v := fr.stack[len(fr.stack)-1]
	fr.stack = fr.stack[:len(fr.stack)-1]
	return v
}

func (fr *frame) popN(n int) []Value {
	if n == 0 {
		return nil
	}
	v := append([]Value(nil), fr.stack[len(fr.stack)-n:]...)
	fr.stack = fr.stack[:len(fr.stack)-n]
	return v
}

func (fr *frame) peek() Value { return fr.stack[len(fr.stack)-1] }

func (fr *frame) closeUpvaluesAt(slot int) {
	if u, ok := fr.openUV[slot]; ok {
		u.close()
		delete(fr.openUV, slot)
	}
}

func (fr *frame) closeAllUpvalues() {
	for _, u := range fr.openUV {
		u.close()
	}
}

func (fr *frame) upvalueFor(slot int) *upvalue {
	if fr.openUV == nil {
		fr.openUV = make(map[int]*upvalue)
	}
	if u, ok := fr.openUV[slot]; ok {
		return u
	}
	u := &upvalue{open: &fr.locals[slot]}
	fr.openUV[slot] = u
	return u
}

func adjustResults(want int, hasWant bool, results []Value) []Value {
	if !hasWant {
		return results
	}
	if len(results) >= want {
		return results[:want]
	}
	out := make([]Value, want)
	copy(out, results)
	return out
}

// run is the dispatch loop: it executes proto.Code against fr until an
// OpReturn produces the function's result list.
func (vm *VM) run(fr *frame, proto *compile.Prototype) ([]Value, error) {
	code := proto.Code
	pc := 0
	for pc < len(code) {
		ins := code[pc]
		switch ins.Op {
		case compile.OpNop:
		case compile.OpClone:
			fr.push(fr.peek())
		case compile.OpPop:
			fr.pop()
		case compile.OpSp:
			fr.aux = append(fr.aux, len(fr.stack))
		case compile.OpDeref:
			depth := fr.aux[len(fr.aux)-1]
			fr.aux = fr.aux[:len(fr.aux)-1]
			fr.push(fr.stack[depth])

		case compile.OpJump:
			pc = ins.A
			continue
		case compile.OpJumpTrue:
			if Truthy(fr.pop()) {
				pc = ins.A
				continue
			}
		case compile.OpJumpFalse:
			if !Truthy(fr.pop()) {
				pc = ins.A
				continue
			}
		case compile.OpJumpNil:
			if fr.pop() == nil {
				pc = ins.A
				continue
			}

		case compile.OpGetLocal:
			fr.push(fr.locals[ins.A])
		case compile.OpSetLocal:
			fr.locals[ins.A] = fr.pop()
		case compile.OpInitLocal:
			fr.closeUpvaluesAt(ins.A)
			fr.locals[ins.A] = fr.pop()

		case compile.OpGetUpvalue:
			fr.push(fr.closure.upvalues[ins.A].get())
		case compile.OpSetUpvalue:
			fr.closure.upvalues[ins.A].set(fr.pop())

		case compile.OpNil:
			fr.push(nil)
		case compile.OpTrue:
			fr.push(Boolean(true))
		case compile.OpFalse:
			fr.push(Boolean(false))
		case compile.OpNumberInt:
			fr.push(Integer(ins.Int))
		case compile.OpNumberFloat:
			fr.push(Float(ins.Float))
		case compile.OpString:
			fr.push(String(ins.Str))
		case compile.OpGetEnv:
			fr.push(vm.Globals)

		case compile.OpTableInit:
			fr.push(NewTable(ins.A))
		case compile.OpTableSetKV:
			v := fr.pop()
			k := fr.pop()
			t := fr.pop().(*Table)
			if err := t.Set(k, v); err != nil {
				return nil, &RuntimeError{Value: String(err.Error())}
			}
		case compile.OpTableInitLast:
			depth := fr.aux[len(fr.aux)-1]
			fr.aux = fr.aux[:len(fr.aux)-1]
			vals := fr.stack[depth:]
			t := fr.stack[depth-1].(*Table)
			for i, v := range vals {
				if err := t.Set(Integer(ins.A+i), v); err != nil {
					return nil, &RuntimeError{Value: String(err.Error())}
				}
			}
			fr.stack = fr.stack[:depth-1]
		case compile.OpTableIndex:
			k := fr.pop()
			t := fr.pop()
			v, err := vm.index(t, k)
			if err != nil {
				return nil, err
			}
			fr.push(v)
		case compile.OpTableIndexSet:
			k := fr.pop()
			t := fr.pop()
			v := fr.pop()
			if err := vm.newindex(t, k, v); err != nil {
				return nil, err
			}

		case compile.OpFunctionInit:
			child := proto.Children[ins.A]
			fr.push(&Closure{proto: child, upvalues: make([]*upvalue, 0, len(child.Upvalues))})
		case compile.OpUpvalueFromLocal:
			cl := fr.peek().(*Closure)
			cl.upvalues = append(cl.upvalues, fr.upvalueFor(ins.A))
		case compile.OpUpvalueFromUpvalue:
			cl := fr.peek().(*Closure)
			cl.upvalues = append(cl.upvalues, fr.closure.upvalues[ins.A])

		case compile.OpAdd, compile.OpSub, compile.OpMul, compile.OpDiv, compile.OpIDiv,
			compile.OpMod, compile.OpPow, compile.OpBAnd, compile.OpBOr, compile.OpBXor,
			compile.OpShl, compile.OpShr:
			b := fr.pop()
			a := fr.pop()
			v, err := vm.arith(ins.Op, a, b)
			if err != nil {
				return nil, err
			}
			fr.push(v)
		case compile.OpConcat:
			b := fr.pop()
			a := fr.pop()
			v, err := vm.concat(a, b)
			if err != nil {
				return nil, err
			}
			fr.push(v)
		case compile.OpEq:
			b := fr.pop()
			a := fr.pop()
			v, err := vm.equals(a, b)
			if err != nil {
				return nil, err
			}
			fr.push(Boolean(v))
		case compile.OpLt, compile.OpLe:
			b := fr.pop()
			a := fr.pop()
			v, err := vm.less(a, b, ins.Op == compile.OpLe)
			if err != nil {
				return nil, err
			}
			fr.push(Boolean(v))
		case compile.OpLen:
			v, err := vm.length(fr.pop())
			if err != nil {
				return nil, err
			}
			fr.push(v)
		case compile.OpUnm:
			v, err := vm.negate(fr.pop())
			if err != nil {
				return nil, err
			}
			fr.push(v)
		case compile.OpNot:
			fr.push(Boolean(!Truthy(fr.pop())))
		case compile.OpBNot:
			v, err := vm.bnot(fr.pop())
			if err != nil {
				return nil, err
			}
			fr.push(v)

		case compile.OpForCheck:
			step := fr.pop()
			limit := fr.pop()
			control := fr.pop()
			cont, err := forContinue(control, limit, step)
			if err != nil {
				return nil, err
			}
			fr.push(Boolean(cont))

		case compile.OpCall:
			results, err := vm.dispatchCall(fr, ins)
			if err != nil {
				return nil, err
			}
			fr.stack = append(fr.stack, adjustResults(ins.B, ins.HasB, results)...)

		case compile.OpReturn:
			fr.closeAllUpvalues()
			if ins.HasB {
				return fr.popN(ins.B), nil
			}
			results := fr.stack
			fr.stack = nil
			return results, nil

		case compile.OpVararg:
			if ins.HasB {
				fr.stack = append(fr.stack, adjustResults(ins.B, true, fr.varargs)...)
			} else {
				fr.stack = append(fr.stack, fr.varargs...)
			}

		default:
			return nil, runtimeErrorf("unimplemented opcode %v", ins.Op)
		}
		pc++
	}
	fr.closeAllUpvalues()
	return nil, nil
}

// dispatchCall implements OpCall's calling convention (see Instruction's
// doc comment in internal/compile): it locates the callee and its
// arguments (accounting for a multi-valued tail argument marked by a
// preceding OpSp, and for the implicit receiver of a method call), then
// performs the call.
func (vm *VM) dispatchCall(fr *frame, ins compile.Instruction) ([]Value, error) {
	var args []Value
	var calleeIdx int
	if ins.A >= 0 {
		n := ins.A
		calleeIdx = len(fr.stack) - n - 1
		args = append([]Value(nil), fr.stack[calleeIdx+1:]...)
	} else {
		depth := fr.aux[len(fr.aux)-1]
		fr.aux = fr.aux[:len(fr.aux)-1]
		calleeIdx = depth - 1
		args = append([]Value(nil), fr.stack[depth:]...)
	}
	if ins.Method {
		recvIdx := calleeIdx - 1
		recv := fr.stack[recvIdx]
		args = append([]Value{recv}, args...)
		calleeIdx = recvIdx
	}
	callee := fr.stack[calleeIdx]
	fr.stack = fr.stack[:calleeIdx]
	return vm.call(callee, args)
}

func forContinue(control, limit, step Value) (bool, error) {
	stepF, ok := ToFloat(step)
	if !ok {
		return false, runtimeErrorf("'for' step must be a number")
	}
	c, ok1 := Compare(control, limit)
	if !ok1 {
		return false, runtimeErrorf("'for' limit must be a number")
	}
	if stepF >= 0 {
		return c <= 0, nil
	}
	return c >= 0, nil
}

// metamethod looks up name in v's metatable, if it has one.
func (vm *VM) metamethod(v Value, name string) Value {
	var meta *Table
	switch v := v.(type) {
	case *Table:
		meta = v.Metatable()
	case String:
		meta = vm.StringMeta
	default:
		return nil
	}
	if meta == nil {
		return nil
	}
	return meta.Get(String(name))
}

// maxMetaChain bounds how many __index/__newindex table hops a single
// access may follow, so a cyclic metatable chain raises a runtime error
// instead of recursing without limit.
const maxMetaChain = 100

func (vm *VM) index(t, k Value) (Value, error) {
	for depth := 0; depth < maxMetaChain; depth++ {
		if tbl, ok := t.(*Table); ok {
			if v := tbl.Get(k); v != nil {
				return v, nil
			}
		}
		h := vm.metamethod(t, metaIndex)
		switch handler := h.(type) {
		case nil:
			if _, ok := t.(*Table); ok {
				return nil, nil
			}
			return nil, runtimeErrorf("attempt to index a %s value", valueType(t))
		case *Table:
			t = handler
		default:
			results, err := vm.call(handler, []Value{t, k})
			if err != nil {
				return nil, err
			}
			if len(results) == 0 {
				return nil, nil
			}
			return results[0], nil
		}
	}
	return nil, runtimeErrorf("'__index' chain too long; possible loop")
}

func (vm *VM) newindex(t, k, v Value) error {
	for depth := 0; depth < maxMetaChain; depth++ {
		if tbl, ok := t.(*Table); ok {
			if tbl.Get(k) != nil || tbl.Metatable() == nil || tbl.Metatable().Get(String(metaNewIndex)) == nil {
				return tbl.Set(k, v)
			}
		}
		h := vm.metamethod(t, metaNewIndex)
		switch handler := h.(type) {
		case nil:
			return runtimeErrorf("attempt to index a %s value", valueType(t))
		case *Table:
			t = handler
		default:
			_, err := vm.call(handler, []Value{t, k, v})
			return err
		}
	}
	return runtimeErrorf("'__newindex' chain too long; possible loop")
}

func (vm *VM) arith(op compile.Opcode, a, b Value) (Value, error) {
	if isBitwiseOp(op) {
		return vm.bitwise(op, a, b)
	}
	an, aok := ToNumber(a)
	bn, bok := ToNumber(b)
	if aok && bok {
		ai, aInt := an.(Integer)
		bi, bInt := bn.(Integer)
		if aInt && bInt && op != compile.OpDiv && op != compile.OpPow {
			if bi == 0 {
				switch op {
				case compile.OpIDiv:
					return nil, runtimeErrorf("attempt to perform 'n//0'")
				case compile.OpMod:
					return nil, runtimeErrorf("attempt to perform 'n%%0'")
				}
			}
			if v, ok := intArith(op, int64(ai), int64(bi)); ok {
				return v, nil
			}
		}
		af, _ := ToFloat(an)
		bf, _ := ToFloat(bn)
		if v, ok := floatArith(op, af, bf); ok {
			return v, nil
		}
	}
	name := arithMetaName(op)
	if h := vm.metamethod(a, name); h != nil {
		return vm.call1(h, a, b)
	}
	if h := vm.metamethod(b, name); h != nil {
		return vm.call1(h, a, b)
	}
	bad := a
	if aok {
		bad = b
	}
	return nil, runtimeErrorf("attempt to perform arithmetic on a %s value", valueType(bad))
}

func isBitwiseOp(op compile.Opcode) bool {
	switch op {
	case compile.OpBAnd, compile.OpBOr, compile.OpBXor, compile.OpShl, compile.OpShr:
		return true
	default:
		return false
	}
}

// bitwise handles &, |, ~, <<, >>: both operands must be representable as
// integers (an integer-valued float is fine; a fractional one is not),
// with the usual metamethod fallback otherwise.
func (vm *VM) bitwise(op compile.Opcode, a, b Value) (Value, error) {
	ai, aok := ToInteger(a)
	bi, bok := ToInteger(b)
	if aok && bok {
		v, _ := intArith(op, ai, bi)
		return v, nil
	}
	name := arithMetaName(op)
	if h := vm.metamethod(a, name); h != nil {
		return vm.call1(h, a, b)
	}
	if h := vm.metamethod(b, name); h != nil {
		return vm.call1(h, a, b)
	}
	bad := a
	if aok {
		bad = b
	}
	if valueType(bad) == TypeNumber {
		return nil, runtimeErrorf("number has no integer representation")
	}
	return nil, runtimeErrorf("attempt to perform bitwise operation on a %s value", valueType(bad))
}

// negate implements unary minus, dispatching __unm with (x, x) when the
// operand is not a number.
func (vm *VM) negate(a Value) (Value, error) {
	if n, ok := ToNumber(a); ok {
		switch n := n.(type) {
		case Integer:
			return Integer(-n), nil
		case Float:
			return Float(-n), nil
		}
	}
	if h := vm.metamethod(a, metaUnm); h != nil {
		return vm.call1(h, a, a)
	}
	return nil, runtimeErrorf("attempt to perform arithmetic on a %s value", valueType(a))
}

// bnot implements unary ~, dispatching __bnot with (x, x) when the
// operand has no integer representation.
func (vm *VM) bnot(a Value) (Value, error) {
	if i, ok := ToInteger(a); ok {
		return Integer(^i), nil
	}
	if h := vm.metamethod(a, metaBNot); h != nil {
		return vm.call1(h, a, a)
	}
	if valueType(a) == TypeNumber {
		return nil, runtimeErrorf("number has no integer representation")
	}
	return nil, runtimeErrorf("attempt to perform bitwise operation on a %s value", valueType(a))
}

func (vm *VM) call1(h, a, b Value) (Value, error) {
	results, err := vm.call(h, []Value{a, b})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func intArith(op compile.Opcode, a, b int64) (Value, bool) {
	switch op {
	case compile.OpAdd:
		return Integer(a + b), true
	case compile.OpSub:
		return Integer(a - b), true
	case compile.OpMul:
		return Integer(a * b), true
	case compile.OpIDiv:
		if b == 0 {
			return nil, false
		}
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q--
		}
		return Integer(q), true
	case compile.OpMod:
		if b == 0 {
			return nil, false
		}
		m := a % b
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return Integer(m), true
	case compile.OpBAnd:
		return Integer(a & b), true
	case compile.OpBOr:
		return Integer(a | b), true
	case compile.OpBXor:
		return Integer(a ^ b), true
	case compile.OpShl:
		return shiftInt(a, b), true
	case compile.OpShr:
		return shiftInt(a, -b), true
	default:
		return nil, false
	}
}

func shiftInt(a, n int64) Integer {
	switch {
	case n <= -64 || n >= 64:
		return 0
	case n >= 0:
		return Integer(uint64(a) << uint(n))
	default:
		return Integer(uint64(a) >> uint(-n))
	}
}

func floatArith(op compile.Opcode, a, b float64) (Value, bool) {
	switch op {
	case compile.OpAdd:
		return Float(a + b), true
	case compile.OpSub:
		return Float(a - b), true
	case compile.OpMul:
		return Float(a * b), true
	case compile.OpDiv:
		return Float(a / b), true
	case compile.OpPow:
		return Float(math.Pow(a, b)), true
	case compile.OpIDiv:
		return Float(math.Floor(a / b)), true
	case compile.OpMod:
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return Float(m), true
	default:
		return nil, false
	}
}

func arithMetaName(op compile.Opcode) string {
	switch op {
	case compile.OpAdd:
		return metaAdd
	case compile.OpSub:
		return metaSub
	case compile.OpMul:
		return metaMul
	case compile.OpDiv:
		return metaDiv
	case compile.OpIDiv:
		return metaIDiv
	case compile.OpMod:
		return metaMod
	case compile.OpPow:
		return metaPow
	case compile.OpBAnd:
		return metaBAnd
	case compile.OpBOr:
		return metaBOr
	case compile.OpBXor:
		return metaBXor
	case compile.OpShl:
		return metaShl
	case compile.OpShr:
		return metaShr
	default:
		return ""
	}
}

func (vm *VM) concat(a, b Value) (Value, error) {
	as, aok := concatString(a)
	bs, bok := concatString(b)
	if aok && bok {
		return String(as + bs), nil
	}
	if h := vm.metamethod(a, metaConcat); h != nil {
		return vm.call1(h, a, b)
	}
	if h := vm.metamethod(b, metaConcat); h != nil {
		return vm.call1(h, a, b)
	}
	bad := a
	if aok {
		bad = b
	}
	return nil, runtimeErrorf("attempt to concatenate a %s value", valueType(bad))
}

func concatString(v Value) (string, bool) {
	switch v := v.(type) {
	case String:
		return string(v), true
	case Integer, Float:
		return ToString(v), true
	default:
		return "", false
	}
}

func (vm *VM) equals(a, b Value) (bool, error) {
	if RawEqual(a, b) {
		return true, nil
	}
	ta, aok := a.(*Table)
	tb, bok := b.(*Table)
	if !aok || !bok {
		return false, nil
	}
	h := vm.metamethod(ta, metaEq)
	if h == nil {
		h = vm.metamethod(tb, metaEq)
	}
	if h == nil {
		return false, nil
	}
	results, err := vm.call(h, []Value{a, b})
	if err != nil {
		return false, err
	}
	return len(results) > 0 && Truthy(results[0]), nil
}

func (vm *VM) less(a, b Value, orEqual bool) (bool, error) {
	if c, ok := Compare(a, b); ok {
		if orEqual {
			return c <= 0, nil
		}
		return c < 0, nil
	}
	name := metaLt
	if orEqual {
		name = metaLe
	}
	h := vm.metamethod(a, name)
	if h == nil {
		h = vm.metamethod(b, name)
	}
	if h == nil {
		return false, runtimeErrorf("attempt to compare two %s values", valueType(a))
	}
	results, err := vm.call(h, []Value{a, b})
	if err != nil {
		return false, err
	}
	return len(results) > 0 && Truthy(results[0]), nil
}

func (vm *VM) length(v Value) (Value, error) {
	switch v := v.(type) {
	case String:
		return Integer(len(v)), nil
	case *Table:
		if h := vm.metamethod(v, metaLen); h != nil {
			results, err := vm.call(h, []Value{v})
			if err != nil {
				return nil, err
			}
			if len(results) == 0 {
				return nil, nil
			}
			return results[0], nil
		}
		return Integer(v.Len()), nil
	default:
		return nil, runtimeErrorf("attempt to get length of a %s value", valueType(v))
	}
}

// Call invokes a Lua-visible callable value with args, for use by
// embedding code and the stdlib (pcall, metamethod-driven iteration,
// table.sort comparators, and so on).
func (vm *VM) Call(callee Value, args []Value) ([]Value, error) {
	return vm.call(callee, args)
}

// Metamethod looks up name in v's metatable (exported for the stdlib:
// tostring's __tostring, rawequal-adjacent __eq introspection by
// embedders, and so on).
func (vm *VM) Metamethod(v Value, name string) Value {
	return vm.metamethod(v, name)
}

// Index performs a metamethod-dispatching t[k] read (specification
// §4.3.6), for the stdlib's "next"-adjacent helpers and embedder code.
func (vm *VM) Index(t, k Value) (Value, error) {
	return vm.index(t, k)
}

// NewIndex performs a metamethod-dispatching t[k] = v write (specification
// §4.3.6).
func (vm *VM) NewIndex(t, k, v Value) error {
	return vm.newindex(t, k, v)
}

// Length implements the "#" operator, including __len dispatch.
func (vm *VM) Length(v Value) (Value, error) {
	return vm.length(v)
}

// Less implements "<"/"<=", including __lt/__le dispatch.
func (vm *VM) Less(a, b Value, orEqual bool) (bool, error) {
	return vm.less(a, b, orEqual)
}

// Equals implements "==", including __eq dispatch.
func (vm *VM) Equals(a, b Value) (bool, error) {
	return vm.equals(a, b)
}

// NewClosure wraps a compiled prototype with no upvalues, for invoking a
// freshly compiled chunk.
func NewClosure(proto *compile.Prototype) *Closure {
	return &Closure{proto: proto}
}
