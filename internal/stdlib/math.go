// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package stdlib

import (
	"math"
	"math/rand"

	"lumalang.dev/lua/internal/vm"
)

// OpenMath installs the "math" library named in specification §6.3, with
// its random-number generator (specification §3.6) seeded from seed.
func OpenMath(v *vm.VM, seed int64) {
	t := vm.NewTable(0)
	rng := rand.New(rand.NewSource(seed))
	register(t, map[string]func(*vm.VM, []vm.Value) ([]vm.Value, error){
		"abs":         mathAbs,
		"ceil":        mathCeil,
		"floor":       mathFloor,
		"sin":         mathUnary(math.Sin),
		"cos":         mathUnary(math.Cos),
		"asin":        mathUnary(math.Asin),
		"acos":        mathUnary(math.Acos),
		"atan":        mathAtan,
		"exp":         mathUnary(math.Exp),
		"log":         mathLog,
		"sqrt":        mathUnary(math.Sqrt),
		"deg":         mathUnary(func(x float64) float64 { return x * 180 / math.Pi }),
		"rad":         mathUnary(func(x float64) float64 { return x * math.Pi / 180 }),
		"modf":        mathModf,
		"fmod":        mathFmod,
		"type":        mathType,
		"tointeger":   mathToInteger,
		"ult":         mathUlt,
		"max":         mathMax,
		"min":         mathMin,
		"random":      mathRandom(rng),
		"randomseed":  mathRandomSeed(rng),
	})
	t.Set(vm.String("pi"), vm.Float(math.Pi))
	t.Set(vm.String("huge"), vm.Float(math.Inf(1)))
	t.Set(vm.String("maxinteger"), vm.Integer(math.MaxInt64))
	t.Set(vm.String("mininteger"), vm.Integer(math.MinInt64))
	v.Globals.Set(vm.String("math"), t)
}

func mathUnary(f func(float64) float64) func(*vm.VM, []vm.Value) ([]vm.Value, error) {
	return func(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
		x, err := checkFloat(args, 1)
		if err != nil {
			return nil, err
		}
		return one(vm.Float(f(x))), nil
	}
}

func mathAbs(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	n, err := checkNumber(args, 1)
	if err != nil {
		return nil, err
	}
	if i, ok := n.(vm.Integer); ok {
		if i < 0 {
			i = -i
		}
		return one(i), nil
	}
	f, _ := vm.ToFloat(n)
	return one(vm.Float(math.Abs(f))), nil
}

func mathCeil(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	n, err := checkNumber(args, 1)
	if err != nil {
		return nil, err
	}
	if i, ok := n.(vm.Integer); ok {
		return one(i), nil
	}
	f, _ := vm.ToFloat(n)
	return one(floatToIntResult(math.Ceil(f))), nil
}

func mathFloor(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	n, err := checkNumber(args, 1)
	if err != nil {
		return nil, err
	}
	if i, ok := n.(vm.Integer); ok {
		return one(i), nil
	}
	f, _ := vm.ToFloat(n)
	return one(floatToIntResult(math.Floor(f))), nil
}

// floatToIntResult mirrors Lua 5.4's math.floor/ceil: the result is an
// integer when it fits, otherwise it stays a float.
func floatToIntResult(f float64) vm.Value {
	if i := int64(f); float64(i) == f {
		return vm.Integer(i)
	}
	return vm.Float(f)
}

func mathAtan(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	y, err := checkFloat(args, 1)
	if err != nil {
		return nil, err
	}
	x, err := optFloat(args, 2, 1)
	if err != nil {
		return nil, err
	}
	return one(vm.Float(math.Atan2(y, x))), nil
}

func mathLog(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	x, err := checkFloat(args, 1)
	if err != nil {
		return nil, err
	}
	if arg(args, 2) == nil {
		return one(vm.Float(math.Log(x))), nil
	}
	base, err := checkFloat(args, 2)
	if err != nil {
		return nil, err
	}
	switch base {
	case 2:
		return one(vm.Float(math.Log2(x))), nil
	case 10:
		return one(vm.Float(math.Log10(x))), nil
	default:
		return one(vm.Float(math.Log(x) / math.Log(base))), nil
	}
}

func mathModf(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	x, err := checkFloat(args, 1)
	if err != nil {
		return nil, err
	}
	ip, fp := math.Modf(x)
	return []vm.Value{floatToIntResult(ip), vm.Float(fp)}, nil
}

func mathFmod(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	a, err := checkNumber(args, 1)
	if err != nil {
		return nil, err
	}
	b, err := checkNumber(args, 2)
	if err != nil {
		return nil, err
	}
	ai, aInt := a.(vm.Integer)
	bi, bInt := b.(vm.Integer)
	if aInt && bInt {
		if bi == 0 {
			return nil, argError(2, "zero")
		}
		return one(vm.Integer(int64(ai) % int64(bi))), nil
	}
	af, _ := vm.ToFloat(a)
	bf, _ := vm.ToFloat(b)
	return one(vm.Float(math.Mod(af, bf))), nil
}

func mathType(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	switch arg(args, 1).(type) {
	case vm.Integer:
		return one(vm.String("integer")), nil
	case vm.Float:
		return one(vm.String("float")), nil
	default:
		return one(nil), nil
	}
}

func mathToInteger(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	i, ok := vm.ToInteger(arg(args, 1))
	if !ok {
		return one(nil), nil
	}
	return one(vm.Integer(i)), nil
}

func mathUlt(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	a, err := checkInt(args, 1)
	if err != nil {
		return nil, err
	}
	b, err := checkInt(args, 2)
	if err != nil {
		return nil, err
	}
	return one(vm.Boolean(uint64(a) < uint64(b))), nil
}

func mathMax(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	if len(args) == 0 {
		return nil, argError(1, "value expected")
	}
	best := args[0]
	for _, v := range args[1:] {
		c, ok := vm.Compare(best, v)
		if ok && c < 0 {
			best = v
		}
	}
	return one(best), nil
}

func mathMin(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	if len(args) == 0 {
		return nil, argError(1, "value expected")
	}
	best := args[0]
	for _, v := range args[1:] {
		c, ok := vm.Compare(best, v)
		if ok && c > 0 {
			best = v
		}
	}
	return one(best), nil
}

func mathRandom(rng *rand.Rand) func(*vm.VM, []vm.Value) ([]vm.Value, error) {
	return func(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
		switch len(args) {
		case 0:
			return one(vm.Float(rng.Float64())), nil
		case 1:
			m, err := checkInt(args, 1)
			if err != nil {
				return nil, err
			}
			if m == 0 {
				return one(vm.Integer(int64(rng.Uint64()))), nil
			}
			return one(vm.Integer(1 + rng.Int63n(m))), nil
		default:
			lo, err := checkInt(args, 1)
			if err != nil {
				return nil, err
			}
			hi, err := checkInt(args, 2)
			if err != nil {
				return nil, err
			}
			if lo > hi {
				return nil, argError(2, "interval is empty")
			}
			return one(vm.Integer(lo + rng.Int63n(hi-lo+1))), nil
		}
	}
}

func mathRandomSeed(rng *rand.Rand) func(*vm.VM, []vm.Value) ([]vm.Value, error) {
	return func(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
		seed, err := optInt(args, 1, 0)
		if err != nil {
			return nil, err
		}
		rng.Seed(seed)
		return nil, nil
	}
}
