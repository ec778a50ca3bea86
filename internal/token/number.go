// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package token

import (
	"strconv"
	"strings"
)

// ParseInt converts a Lua numeral (as spelled in source) to a 64-bit signed
// integer. Hexadecimal numerals without a radix point or exponent wrap
// around on overflow rather than erroring, matching Lua 5.4 semantics.
func ParseInt(s string) (int64, error) {
	neg, body := splitSign(strings.TrimSpace(s))
	if strings.Contains(body, "_") {
		return 0, strconv.ErrSyntax
	}
	if hex, ok := splitHexPrefix(body); ok {
		const nibblesIn64Bits = 64 / 4
		if len(hex) > nibblesIn64Bits {
			// Keep only the least-significant nibbles; still validate the
			// discarded prefix so "0xZZ...<64 valid digits>" is rejected.
			discarded, hex := hex[:len(hex)-nibblesIn64Bits], hex[len(hex)-nibblesIn64Bits:]
			for i := 0; i < len(discarded); i++ {
				if !isHexDigit(discarded[i]) {
					return 0, strconv.ErrSyntax
				}
			}
			u, err := strconv.ParseUint(hex, 16, 64)
			if neg {
				return -int64(u), err
			}
			return int64(u), err
		}
		u, err := strconv.ParseUint(hex, 16, 64)
		if neg {
			return -int64(u), err
		}
		return int64(u), err
	}
	return strconv.ParseInt(s, 10, 64)
}

// ParseFloat converts a Lua numeral to a 64-bit float, accepting the
// hexadecimal-float forms ("0x1.8p3") that Go's strconv.ParseFloat also
// understands but normalizing the exponent-less "0x10.8" case, which Lua
// permits but Go does not.
func ParseFloat(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	_, body := splitSign(trimmed)
	if strings.ContainsAny(body, "iInN") || strings.Contains(body, "_") {
		// Reject Go's "inf"/"nan" spellings, which are not valid Lua numerals.
		return 0, strconv.ErrSyntax
	}
	toParse := trimmed
	if hex, ok := splitHexPrefix(body); ok && !strings.ContainsAny(body, "pP") {
		if !strings.Contains(hex, ".") {
			i, err := ParseInt(trimmed)
			return float64(i), err
		}
		toParse = trimmed + "p0"
	}
	f, err := strconv.ParseFloat(toParse, 64)
	if err == strconv.ErrRange {
		err = nil
	}
	return f, err
}

func splitSign(s string) (neg bool, rest string) {
	switch {
	case strings.HasPrefix(s, "-"):
		return true, s[1:]
	case strings.HasPrefix(s, "+"):
		return false, s[1:]
	default:
		return false, s
	}
}

func splitHexPrefix(s string) (rest string, ok bool) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:], true
	}
	return s, false
}

func isHexDigit(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F'
}
