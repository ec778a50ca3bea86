// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package lua

import (
	"fmt"

	"lumalang.dev/lua/internal/token"
	"lumalang.dev/lua/internal/vm"
)

// SyntaxError reports a failure in tokenizing, parsing, or analyzing a
// chunk (specification §7 kinds 1-3: Tokenize, Parse, Semantic errors).
// It carries the source position where possible so a driver can print a
// byte-range diagnostic (specification §6.4).
type SyntaxError struct {
	Pos token.Position
	Err error
}

func (e *SyntaxError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%v: %v", e.Pos, e.Err)
	}
	return e.Err.Error()
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// RuntimeError reports a failure raised while executing bytecode
// (specification §7 kind 4): a Lua error value propagated out of a
// pcall/xpcall-unprotected call, or an uncaught error from a coroutine
// resumed at the top level. The underlying Lua value is available via
// [RuntimeError.Value].
type RuntimeError struct {
	inner *vm.RuntimeError
}

func (e *RuntimeError) Error() string { return e.inner.Error() }

// Value returns the Lua value passed to "error" (or synthesized by a
// trapped runtime fault), for embedders that want to inspect it directly
// rather than its string rendering.
func (e *RuntimeError) Value() any { return e.inner.Value }

func wrapRuntimeError(err error) error {
	if err == nil {
		return nil
	}
	if re, ok := err.(*vm.RuntimeError); ok {
		return &RuntimeError{inner: re}
	}
	return err
}
