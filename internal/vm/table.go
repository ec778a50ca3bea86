// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package vm

import (
	"slices"
	"unsafe"
)

// Table is Lua's one structured data type: an associative array with an
// optional metatable. Entries are kept in a single slice ordered by key
// comparison (rather than splitting array/hash parts into separate
// storage), so lookups, insertion, and deletion are all a binary search
// plus a slice splice.
type Table struct {
	entries []tableEntry
	meta    *Table
}

type tableEntry struct {
	key, value Value
}

// NewTable allocates an empty table, optionally reserving room for
// capacity entries.
func NewTable(capacity int) *Table {
	t := &Table{}
	if capacity > 0 {
		t.entries = make([]tableEntry, 0, capacity)
	}
	return t
}

func (t *Table) valueType() Type { return TypeTable }

// Metatable returns the table's metatable, or nil if it has none.
func (t *Table) Metatable() *Table {
	if t == nil {
		return nil
	}
	return t.meta
}

// SetMetatable replaces the table's metatable.
func (t *Table) SetMetatable(meta *Table) { t.meta = meta }

func normalizeKey(key Value) Value {
	if f, ok := key.(Float); ok {
		if i := int64(f); Float(i) == f {
			return Integer(i)
		}
	}
	return key
}

func findEntry(entries []tableEntry, key Value) (int, bool) {
	return slices.BinarySearchFunc(entries, key, func(e tableEntry, key Value) int {
		return compareKeys(e.key, key)
	})
}

// compareKeys imposes a strict total order over every key a table can hold,
// so the sorted-entries representation can binary-search keys that [Compare]
// itself only orders partially (booleans, and the identity-compared table/
// function/thread handles), not just numbers and strings.
func compareKeys(a, b Value) int {
	ta, tb := valueType(a), valueType(b)
	if ta != tb {
		return int(ta) - int(tb)
	}
	switch a := a.(type) {
	case Integer, Float:
		c, _ := Compare(a, b) // same Type tag (TypeNumber); always comparable
		return c
	case String:
		c, _ := Compare(a, b)
		return c
	case Boolean:
		bb := b.(Boolean)
		switch {
		case a == bb:
			return 0
		case bool(bb):
			return -1
		default:
			return 1
		}
	default:
		// Identity-compared handles (*Table, *Closure, *GoFunction, *Thread,
		// *UserData): order by pointer address. This ordering is only ever
		// used internally to keep the entries slice searchable; it is never
		// observed from Lua, so its instability across different runs (or a
		// moving GC) is harmless.
		pa := pointerOf(a)
		pb := pointerOf(b)
		switch {
		case pa == pb:
			return 0
		case pa < pb:
			return -1
		default:
			return 1
		}
	}
}

func pointerOf(v Value) uintptr {
	switch v := v.(type) {
	case *Table:
		return uintptr(unsafe.Pointer(v))
	case *Closure:
		return uintptr(unsafe.Pointer(v))
	case *GoFunction:
		return uintptr(unsafe.Pointer(v))
	case *Thread:
		return uintptr(unsafe.Pointer(v))
	default:
		return 0
	}
}

// Get performs a raw (no metamethod) lookup.
func (t *Table) Get(key Value) Value {
	if t == nil {
		return nil
	}
	key = normalizeKey(key)
	i, found := findEntry(t.entries, key)
	if !found {
		return nil
	}
	return t.entries[i].value
}

// Set performs a raw (no metamethod) store. Storing nil deletes the key.
func (t *Table) Set(key, value Value) error {
	key = normalizeKey(key)
	if key == nil {
		return errIndexNil
	}
	if f, ok := key.(Float); ok && f != f {
		return errIndexNaN
	}
	i, found := findEntry(t.entries, key)
	switch {
	case found && value != nil:
		t.entries[i].value = value
	case found && value == nil:
		t.entries = slices.Delete(t.entries, i, i+1)
	case !found && value != nil:
		t.entries = slices.Insert(t.entries, i, tableEntry{key: key, value: value})
	}
	return nil
}

var (
	errIndexNil = tableIndexError("table index is nil")
	errIndexNaN = tableIndexError("table index is NaN")
)

type tableIndexError string

func (e tableIndexError) Error() string { return string(e) }

// Len returns a border of the table, per Lua's "#" operator: any n such
// that t[n] ~= nil and t[n+1] == nil. An exponential probe finds an
// absent index, then a binary search narrows the gap to a border (the
// same unbound-search shape reference Lua uses, so a sparse array still
// yields a valid border in logarithmic probes).
func (t *Table) Len() int64 {
	if t == nil || t.Get(Integer(1)) == nil {
		return 0
	}
	i, j := int64(1), int64(2)
	for t.Get(Integer(j)) != nil {
		i = j
		if j > maxLenProbe {
			for k := i + 1; ; k++ {
				if t.Get(Integer(k)) == nil {
					return k - 1
				}
			}
		}
		j *= 2
	}
	for j-i > 1 {
		m := i + (j-i)/2
		if t.Get(Integer(m)) != nil {
			i = m
		} else {
			j = m
		}
	}
	return i
}

// maxLenProbe caps the exponential probe before doubling could overflow;
// beyond it Len degrades to a linear scan.
const maxLenProbe = int64(1) << 62

// Next implements the iteration protocol behind "pairs"/"next": given a
// key previously returned by Next (or nil to start), it returns the
// following key/value pair, or ok=false when iteration is complete.
func (t *Table) Next(key Value) (nextKey, value Value, ok bool) {
	if t == nil {
		return nil, nil, false
	}
	if key == nil {
		if len(t.entries) == 0 {
			return nil, nil, false
		}
		e := t.entries[0]
		return e.key, e.value, true
	}
	i, found := findEntry(t.entries, normalizeKey(key))
	if !found {
		return nil, nil, false
	}
	if i+1 >= len(t.entries) {
		return nil, nil, false
	}
	e := t.entries[i+1]
	return e.key, e.value, true
}
