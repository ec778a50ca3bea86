// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package main

import (
	"os"

	"zombiezen.com/go/log"
)

// setupLogging installs the package-level default logger (grounded on
// cmd/zb/main.go's initLogging): Info level normally, Debug when --debug
// is set, writing to stderr with a "lua: " prefix.
func setupLogging(showDebug bool) {
	minLevel := log.Info
	if showDebug {
		minLevel = log.Debug
	}
	log.SetDefault(&log.LevelFilter{
		Min:    minLevel,
		Output: log.New(os.Stderr, "lua: ", log.StdFlags, nil),
	})
}
