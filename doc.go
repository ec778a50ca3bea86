// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

// Package lua is the embedding surface for a from-scratch Lua 5.4
// interpreter: tokenizer and parser feed a semantic analyzer and bytecode
// compiler (internal/compile), whose output runs on a stack-based virtual
// machine (internal/vm) backed by the standard library (internal/stdlib).
//
// [Environment] is the entry point (specification §6.1): construct one
// with [New], then drive it a line at a time with [Environment.FeedLine]
// (for a REPL) or all at once with [Environment.EvalChunk].
package lua
