// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"go4.org/xdgdir"
)

// historyPath returns the REPL's line-history file (grounded on
// cmd/zb/main.go's use of xdgdir.Cache.Path() to locate zb's cache.db).
func historyPath() string {
	dir := xdgdir.Cache.Path()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "lua", "history")
}

// appendHistory records one accepted REPL line, best-effort: a failure to
// persist history never interrupts the session.
func appendHistory(line string) {
	path := historyPath()
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
	if err != nil {
		return
	}
	defer f.Close()
	io.WriteString(f, line+"\n")
}

// loadHistory returns the previously recorded REPL lines, oldest first,
// for a driver that wants to preload readline-style history. The bundled
// REPL does not wire this into interactive recall (no line-editing
// library is part of this module's dependency set); it is exposed so an
// embedder driving [lua.Environment] from a richer line editor can reuse
// the same history file.
func loadHistory() []string {
	path := historyPath()
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}
