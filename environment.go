// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package lua

import (
	"context"

	"github.com/google/uuid"
	"zombiezen.com/go/log"

	"lumalang.dev/lua/internal/compile"
	"lumalang.dev/lua/internal/parser"
	"lumalang.dev/lua/internal/stdlib"
	"lumalang.dev/lua/internal/token"
	"lumalang.dev/lua/internal/vm"
)

// Environment is the embedding entry point (specification §6.1): one
// process-wide interpreter state (globals table, main thread, coroutine
// stack, RNG — specification §3.6) with the standard library already
// installed.
//
// Environment is not safe for concurrent use: like the VM it wraps, it is
// single-threaded and cooperative (specification §5).
type Environment struct {
	id      uuid.UUID
	vm      *vm.VM
	pending []byte // buffered source from a prior incomplete FeedLine
}

// New constructs an Environment with the standard library populated
// (specification §6.3).
func New(opts ...Option) *Environment {
	cfg := &config{seed: 1}
	for _, opt := range opts {
		opt(cfg)
	}
	v := vm.New()
	if cfg.stackLimit > 0 {
		v.MaxCallDepth = cfg.stackLimit
	}
	stdlib.Open(v, &stdlib.Options{Output: cfg.output, Seed: cfg.seed})
	return &Environment{id: uuid.New(), vm: v}
}

// ID is a per-Environment correlation id attached to log records, so
// embedders running multiple interpreters concurrently can tell their log
// lines apart.
func (env *Environment) ID() uuid.UUID { return env.id }

// Globals returns the distinguished globals table (_ENV/_G of
// specification §3.6), for embedders that want to install additional host
// functions or inspect/modify global state directly.
func (env *Environment) Globals() *vm.Table { return env.vm.Globals }

// IsFeedPending reports whether a partial chunk is buffered from a prior
// [Environment.FeedLine] call that returned an incomplete-input error.
func (env *Environment) IsFeedPending() bool { return len(env.pending) > 0 }

// ClearFeedPending discards any partial chunk buffered by FeedLine,
// letting a REPL driver abandon a construct the user gave up on (e.g. on
// Ctrl-C).
func (env *Environment) ClearFeedPending() { env.pending = nil }

// FeedLine feeds one line of source incrementally (specification §6.1):
// if the accumulated buffer parses as a complete chunk, it is compiled
// and executed and the buffer is cleared; if the parser reports the input
// is truncated mid-construct, the line is retained (concatenated with any
// previously pending text) and FeedLine returns an error satisfying
// [IsIncomplete] so the driver knows to prompt for another line instead of
// reporting failure. Any other error clears the pending buffer.
func (env *Environment) FeedLine(ctx context.Context, line []byte) ([]any, error) {
	var buf []byte
	if len(env.pending) > 0 {
		buf = append(append(buf, env.pending...), '\n')
	}
	buf = append(buf, line...)
	results, err := env.eval(ctx, buf)
	if err != nil {
		if IsIncomplete(err) {
			env.pending = buf
			return nil, err
		}
		env.pending = nil
		return nil, err
	}
	env.pending = nil
	return results, nil
}

// EvalChunk compiles and executes src as a complete chunk in one step
// (specification §6.1's eval_chunk). Unlike FeedLine, a truncated chunk is
// always reported as an error, never buffered.
func (env *Environment) EvalChunk(ctx context.Context, src []byte) ([]any, error) {
	return env.eval(ctx, src)
}

// IsIncomplete reports whether err indicates a chunk ended mid-construct
// (specification §7 kind 5: ambiguous/incomplete input) and more text fed
// to FeedLine might complete it.
func IsIncomplete(err error) bool {
	return parser.IsTruncated(err)
}

func (env *Environment) eval(ctx context.Context, src []byte) ([]any, error) {
	log.Debugf(ctx, "lua[%s]: parsing %d-byte chunk", env.id, len(src))
	block, err := parser.Parse(src)
	if err != nil {
		return nil, &SyntaxError{Pos: positionOf(err), Err: err}
	}
	ann, err := compile.Resolve(block)
	if err != nil {
		pos := token.Position{}
		if se, ok := err.(*compile.SemanticError); ok {
			pos = se.Pos
		}
		return nil, &SyntaxError{Pos: pos, Err: err}
	}
	proto := compile.Compile(string(src), block, ann)

	log.Debugf(ctx, "lua[%s]: executing chunk", env.id)
	values, err := env.vm.Run(proto, nil)
	if err != nil {
		log.Debugf(ctx, "lua[%s]: chunk raised: %v", env.id, err)
		return nil, wrapRuntimeError(err)
	}
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out, nil
}

// positionOf extracts a source position from a parser error if one is
// attached, for SyntaxError's diagnostic (specification §6.4).
func positionOf(err error) token.Position {
	if pe, ok := err.(*parser.Error); ok {
		return pe.Pos
	}
	return token.Position{}
}

// ToString renders a value the way "print"/"tostring" do (via __tostring
// if present), for a driver formatting results or error values
// (specification §7's user-visible error formatting).
func (env *Environment) ToString(v any) string {
	vv, _ := v.(vm.Value)
	s, err := stdlib.ToStringMeta(env.vm, vv)
	if err != nil {
		return vm.ToString(vv)
	}
	return s
}
