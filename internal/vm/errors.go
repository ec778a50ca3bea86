// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package vm

import "fmt"

// RuntimeError wraps a Lua error value (specification §7): whatever was
// passed to "error", or a string describing a trapped runtime fault
// (type mismatch, missing metamethod, and so on).
type RuntimeError struct {
	Value     Value
	Traceback []string
}

func (e *RuntimeError) Error() string {
	return ToString(e.Value)
}

func runtimeErrorf(format string, args ...any) error {
	return &RuntimeError{Value: String(fmt.Sprintf(format, args...))}
}

// ErrorValue converts a Go error to the Lua value it should surface as,
// for pcall/xpcall and coroutine.resume's failure results. A *RuntimeError
// carries its original value through unchanged; everything else becomes a
// string built from Error().
func ErrorValue(err error) Value {
	if err == nil {
		return nil
	}
	if re, ok := err.(*RuntimeError); ok {
		return re.Value
	}
	return String(err.Error())
}
