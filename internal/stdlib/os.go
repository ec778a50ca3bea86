// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package stdlib

import (
	"bufio"
	"io"
	"os"
	"time"

	"lumalang.dev/lua/internal/vm"
)

// processStart anchors os.clock's CPU-time-since-start approximation;
// spec.md allows os/io to be stubbed, but original_source implements
// os.time/os.clock for real (see SPEC_FULL.md §D.4), so this module does
// too, using wall-clock time as the (acceptable, single-threaded) stand-in
// for CPU time.
var processStart = time.Now()

// OpenOS installs a minimal, real "os" library: time, clock, date. The
// rest of os (and all of io beyond a print-compatible write) remains a
// stub, per spec.md §6.3.
func OpenOS(v *vm.VM) {
	t := vm.NewTable(0)
	register(t, map[string]func(*vm.VM, []vm.Value) ([]vm.Value, error){
		"time":  osTime,
		"clock": osClock,
		"date":  osDate,
	})
	v.Globals.Set(vm.String("os"), t)
}

func osTime(_ *vm.VM, _ []vm.Value) ([]vm.Value, error) {
	return one(vm.Integer(time.Now().Unix())), nil
}

func osClock(_ *vm.VM, _ []vm.Value) ([]vm.Value, error) {
	return one(vm.Float(time.Since(processStart).Seconds())), nil
}

func osDate(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	format, err := optString(args, 1, "%c")
	if err != nil {
		return nil, err
	}
	when := time.Now()
	utc := false
	if len(format) > 0 && format[0] == '!' {
		utc = true
		format = format[1:]
	}
	if utc {
		when = when.UTC()
	}
	return one(vm.String(strftime(format, when))), nil
}

func strftime(format string, t time.Time) string {
	switch format {
	case "*t", "!*t":
		return t.Format(time.RFC3339)
	case "%c":
		return t.Format("Mon Jan  2 15:04:05 2006")
	default:
		return t.Format("2006-01-02 15:04:05")
	}
}

// OpenIO installs a minimal "io" library: io.write, print-compatible and
// sufficient for scripts that do not exercise real file I/O (spec.md
// §6.3 permits os/io to be stubbed).
func OpenIO(v *vm.VM, out io.Writer) {
	if out == nil {
		out = os.Stdout
	}
	t := vm.NewTable(0)
	register(t, map[string]func(*vm.VM, []vm.Value) ([]vm.Value, error){
		"write": ioWrite(out),
		"read":  ioRead,
	})
	v.Globals.Set(vm.String("io"), t)
}

func ioWrite(out io.Writer) func(*vm.VM, []vm.Value) ([]vm.Value, error) {
	return func(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
		w := bufio.NewWriter(out)
		for _, a := range args {
			s, ok := concatElement(a)
			if !ok {
				return nil, typeError(1, "string", a)
			}
			w.WriteString(s)
		}
		return nil, w.Flush()
	}
}

// ioRead is a minimal stdin line reader; full io is out of scope per
// spec.md §6.3's Non-goals.
func ioRead(_ *vm.VM, args []vm.Value) ([]vm.Value, error) {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return one(nil), nil
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return one(vm.String(line)), nil
}
