// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package stdlib

import (
	"io"

	"lumalang.dev/lua/internal/vm"
)

// Options configures the set of libraries [Open] installs.
type Options struct {
	// Output receives "print" and "io.write" output; os.Stdout if nil.
	Output io.Writer
	// Seed seeds math.random's generator (specification §3.6); 1 if zero.
	Seed int64
}

// Open installs the full standard library surface named in specification
// §6.3 into v's globals: base, string, math, table, coroutine, a minimal
// os, and a print-compatible io stub.
func Open(v *vm.VM, opts *Options) {
	if opts == nil {
		opts = &Options{}
	}
	seed := opts.Seed
	if seed == 0 {
		seed = 1
	}
	OpenBase(v, &BaseOptions{Output: opts.Output})
	OpenString(v)
	OpenMath(v, seed)
	OpenTable(v)
	OpenCoroutine(v)
	OpenOS(v)
	OpenIO(v, opts.Output)
}
