// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package stdlib

import "lumalang.dev/lua/internal/vm"

// OpenCoroutine installs the "coroutine" library (specification §4.3.7):
// create, resume, yield, status, running, isyieldable, close, wrap.
func OpenCoroutine(v *vm.VM) {
	t := vm.NewTable(0)
	register(t, map[string]func(*vm.VM, []vm.Value) ([]vm.Value, error){
		"create":      coroutineCreate,
		"resume":      coroutineResume,
		"yield":       coroutineYield,
		"status":      coroutineStatus,
		"running":     coroutineRunning,
		"isyieldable": coroutineIsYieldable,
		"close":       coroutineClose,
		"wrap":        coroutineWrap,
	})
	v.Globals.Set(vm.String("coroutine"), t)
}

func coroutineCreate(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	fn, err := checkFunction(args, 1)
	if err != nil {
		return nil, err
	}
	return one(vm.NewThread(fn)), nil
}

func coroutineResume(vmi *vm.VM, args []vm.Value) ([]vm.Value, error) {
	t, err := checkThread(args, 1)
	if err != nil {
		return nil, err
	}
	results, rerr := vmi.Resume(t, args[1:])
	if rerr != nil {
		return []vm.Value{vm.Boolean(false), vm.ErrorValue(rerr)}, nil
	}
	return append([]vm.Value{vm.Boolean(true)}, results...), nil
}

func coroutineYield(vmi *vm.VM, args []vm.Value) ([]vm.Value, error) {
	return vmi.Yield(args)
}

func coroutineStatus(vmi *vm.VM, args []vm.Value) ([]vm.Value, error) {
	t, err := checkThread(args, 1)
	if err != nil {
		return nil, err
	}
	return one(vm.String(t.Status().String())), nil
}

func coroutineRunning(vmi *vm.VM, _ []vm.Value) ([]vm.Value, error) {
	cur := vmi.Current()
	return []vm.Value{cur, vm.Boolean(cur == vmi.MainThread())}, nil
}

func coroutineIsYieldable(vmi *vm.VM, _ []vm.Value) ([]vm.Value, error) {
	return one(vm.Boolean(vmi.Current() != vmi.MainThread())), nil
}

func coroutineClose(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	t, err := checkThread(args, 1)
	if err != nil {
		return nil, err
	}
	switch t.Status() {
	case vm.ThreadRunning, vm.ThreadNormal:
		return nil, argError(1, "cannot close a running coroutine")
	}
	t.Close()
	return one(vm.Boolean(true)), nil
}

func coroutineWrap(vmi *vm.VM, args []vm.Value) ([]vm.Value, error) {
	fn, err := checkFunction(args, 1)
	if err != nil {
		return nil, err
	}
	t := vm.NewThread(fn)
	wrapped := &vm.GoFunction{Name: "coroutine.wrap", Func: func(vmi *vm.VM, args []vm.Value) ([]vm.Value, error) {
		results, rerr := vmi.Resume(t, args)
		if rerr != nil {
			return nil, rerr
		}
		return results, nil
	}}
	return one(wrapped), nil
}
