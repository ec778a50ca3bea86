// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package lua

import "io"

// Option configures an [Environment] at construction time (grounded on
// the teacher's BaseOptions/NewOpenBase option-struct pattern, generalized
// into functional options per specification §6.1's Environment::new).
type Option func(*config)

type config struct {
	output     io.Writer
	seed       int64
	stackLimit int
}

// WithOutput directs "print" and "io.write" to w instead of os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(c *config) { c.output = w }
}

// WithSeed seeds the Environment's random-number generator (specification
// §3.6) deterministically, overriding the default seed.
func WithSeed(seed int64) Option {
	return func(c *config) { c.seed = seed }
}

// WithStackLimit bounds Go-stack recursion from nested Lua calls
// (specification §6.1's StackLimit option); exceeding it raises a "stack
// overflow" runtime error. Zero keeps the VM's default.
func WithStackLimit(n int) Option {
	return func(c *config) { c.stackLimit = n }
}
