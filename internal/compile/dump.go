// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package compile

import (
	"fmt"
	"strings"

	"github.com/go-json-experiment/json"
)

// Listing renders proto and its nested Children as a teacher-style text
// disassembly (grounded on cmd/zb/luac.go's printFunction), one
// instruction per line with its source line number.
func (proto *Prototype) Listing() string {
	var sb strings.Builder
	proto.listing(&sb, "main")
	return sb.String()
}

func (proto *Prototype) listing(sb *strings.Builder, name string) {
	fmt.Fprintf(sb, "function %s (%d params%s, %d slots)\n", name, proto.NumParams, varargSuffix(proto.IsVararg), proto.MaxStackSize)
	for i, ins := range proto.Code {
		line := 0
		if i < len(proto.Lines) {
			line = proto.Lines[i]
		}
		fmt.Fprintf(sb, "\t%d\t[%d]\t%s\n", i, line, ins)
	}
	for i, child := range proto.Children {
		child.listing(sb, fmt.Sprintf("%s.%d", name, i))
	}
}

func varargSuffix(vararg bool) string {
	if vararg {
		return ", vararg"
	}
	return ""
}

// jsonPrototype is the JSON-serializable shadow of [Prototype]: Code is
// rendered as opcode mnemonics (via [Instruction.String]) rather than
// exposing the numeric Opcode encoding, which specification §9 treats as
// an implementation detail (not a target for cross-version stability).
type jsonPrototype struct {
	Source       string          `json:"source"`
	NumParams    int             `json:"numParams"`
	IsVararg     bool            `json:"isVararg"`
	MaxStackSize int             `json:"maxStackSize"`
	Code         []string        `json:"code"`
	Children     []jsonPrototype `json:"children,omitempty"`
}

// DumpJSON renders proto as a JSON bytecode listing (an alternative to
// [Prototype.Listing] for tools, such as the "lua disasm --json" CLI
// subcommand, that want structured output instead of a text table).
func (proto *Prototype) DumpJSON() ([]byte, error) {
	return json.Marshal(proto.toJSON())
}

func (proto *Prototype) toJSON() jsonPrototype {
	out := jsonPrototype{
		Source:       proto.Source,
		NumParams:    proto.NumParams,
		IsVararg:     proto.IsVararg,
		MaxStackSize: proto.MaxStackSize,
		Code:         make([]string, len(proto.Code)),
	}
	for i, ins := range proto.Code {
		out.Code[i] = ins.String()
	}
	for _, child := range proto.Children {
		out.Children = append(out.Children, child.toJSON())
	}
	return out
}
