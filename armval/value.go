// This file is part of armvm.
//
// armvm is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// armvm is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with armvm.  If not, see <https://www.gnu.org/licenses/>.

// Package armval is the tagged-value model shared by a thread's registers
// and its memory: every 32-bit slot holds either a concrete integer or a
// symbolic pointer token (a stack offset, a heap handle+offset, or the
// return sentinel), and arithmetic on tokens preserves their identity
// instead of collapsing them to plain integers.
package armval

import (
	"fmt"

	"github.com/dyldarm/armvm/vmerrors"
)

// Kind discriminates a Value's representation.
type Kind int

const (
	KindInt Kind = iota
	KindStack
	KindHeap
	KindReturn
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindStack:
		return "stack"
	case KindHeap:
		return "heap"
	case KindReturn:
		return "return"
	default:
		return "unknown"
	}
}

// Value is a 32-bit slot: a concrete integer, a stack-offset token, a
// heap handle+offset token, or the return sentinel. The zero Value is
// Int(0).
type Value struct {
	kind   Kind
	raw    uint32
	offset int64
	handle uint64
}

// Int wraps a concrete 32-bit integer.
func Int(v uint32) Value { return Value{kind: KindInt, raw: v} }

// Stack wraps a signed byte offset from the stack's origin.
func Stack(offset int64) Value { return Value{kind: KindStack, offset: offset} }

// Heap wraps a signed byte offset from a heap allocation identified by
// handle.
func Heap(handle uint64, offset int64) Value {
	return Value{kind: KindHeap, handle: handle, offset: offset}
}

// Ret is the singleton return sentinel: writing it to a thread's PC means
// "stop, control returns to the caller".
var Ret = Value{kind: KindReturn}

func (v Value) Kind() Kind { return v.kind }

// IsInt reports whether v is a concrete integer.
func (v Value) IsInt() bool { return v.kind == KindInt }

// Uint32 returns v's concrete value. It panics if v is not an Int; callers
// that aren't certain should check Kind first, or use AsInt.
func (v Value) Uint32() uint32 {
	if v.kind != KindInt {
		panic(fmt.Sprintf("armval: Uint32 called on a %s value", v.kind))
	}
	return v.raw
}

// AsInt returns v's concrete value and true if v is an Int, else 0, false.
func (v Value) AsInt() (uint32, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.raw, true
}

// StackOffset returns v's offset and true if v is a Stack token.
func (v Value) StackOffset() (int64, bool) {
	if v.kind != KindStack {
		return 0, false
	}
	return v.offset, true
}

// HeapHandle returns v's handle and offset and true if v is a Heap token.
func (v Value) HeapHandle() (uint64, int64, bool) {
	if v.kind != KindHeap {
		return 0, 0, false
	}
	return v.handle, v.offset, true
}

// IsReturn reports whether v is the return sentinel.
func (v Value) IsReturn() bool { return v.kind == KindReturn }

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("%#x", v.raw)
	case KindStack:
		return fmt.Sprintf("stack%+d", v.offset)
	case KindHeap:
		return fmt.Sprintf("heap#%d%+d", v.handle, v.offset)
	case KindReturn:
		return "return"
	default:
		return "?"
	}
}

// Equal reports whether v and other denote the same value: same kind and,
// for Stack/Heap, the same offset (and handle, for Heap).
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.raw == other.raw
	case KindStack:
		return v.offset == other.offset
	case KindHeap:
		return v.handle == other.handle && v.offset == other.offset
	case KindReturn:
		return true
	default:
		return false
	}
}

func withOffset(v Value, delta int64) Value {
	switch v.kind {
	case KindStack:
		return Stack(v.offset + delta)
	case KindHeap:
		return Heap(v.handle, v.offset+delta)
	default:
		panic("armval: withOffset on a non-token value")
	}
}

// Add implements token + int, int + token, and int + int. Two tokens
// cannot be added to each other: that is always a TokenKindMismatch.
func Add(a, b Value) (Value, error) {
	switch {
	case a.kind == KindInt && b.kind == KindInt:
		return Int(a.raw + b.raw), nil
	case a.kind == KindInt && isToken(b):
		return withOffset(b, int64(int32(a.raw))), nil
	case isToken(a) && b.kind == KindInt:
		return withOffset(a, int64(int32(b.raw))), nil
	default:
		return Value{}, mismatch("add", a, b)
	}
}

// Sub implements token - int (shifts the token), stack - stack and
// heap - heap with matching handle (integer distance), and int - int.
// Every other combination, including heap - heap with different handles,
// is a TokenKindMismatch.
func Sub(a, b Value) (Value, error) {
	switch {
	case a.kind == KindInt && b.kind == KindInt:
		return Int(a.raw - b.raw), nil
	case isToken(a) && b.kind == KindInt:
		return withOffset(a, -int64(int32(b.raw))), nil
	case a.kind == KindStack && b.kind == KindStack:
		return Int(uint32(a.offset - b.offset)), nil
	case a.kind == KindHeap && b.kind == KindHeap:
		if a.handle != b.handle {
			return Value{}, mismatch("sub", a, b)
		}
		return Int(uint32(a.offset - b.offset)), nil
	default:
		return Value{}, mismatch("sub", a, b)
	}
}

// And, Or, Xor, and the shifts only accept Int operands: bitwise and
// shift operations on a symbolic address are never meaningful pointer
// arithmetic, so they fail loudly rather than silently truncating the
// token to its raw representation.
func And(a, b Value) (Value, error) { return bitwise("and", a, b, func(x, y uint32) uint32 { return x & y }) }
func Or(a, b Value) (Value, error)  { return bitwise("or", a, b, func(x, y uint32) uint32 { return x | y }) }
func Xor(a, b Value) (Value, error) { return bitwise("xor", a, b, func(x, y uint32) uint32 { return x ^ y }) }

func bitwise(op string, a, b Value, f func(uint32, uint32) uint32) (Value, error) {
	if a.kind != KindInt || b.kind != KindInt {
		return Value{}, mismatch(op, a, b)
	}
	return Int(f(a.raw, b.raw)), nil
}

// Compare orders two values of the same kind: Int by unsigned value,
// Stack/Heap by offset (Heap additionally requires equal handles). Cross
// kind or cross-handle comparisons are a TokenKindMismatch, per the rule
// that ordering across incompatible tokens is undefined rather than
// silently falling back to some arbitrary order.
func Compare(a, b Value) (int, error) {
	if a.kind != b.kind {
		return 0, mismatch("compare", a, b)
	}
	switch a.kind {
	case KindInt:
		return cmpUint32(a.raw, b.raw), nil
	case KindStack:
		return cmpInt64(a.offset, b.offset), nil
	case KindHeap:
		if a.handle != b.handle {
			return 0, mismatch("compare", a, b)
		}
		return cmpInt64(a.offset, b.offset), nil
	case KindReturn:
		return 0, nil
	default:
		return 0, mismatch("compare", a, b)
	}
}

func cmpUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func isToken(v Value) bool { return v.kind == KindStack || v.kind == KindHeap }

func mismatch(op string, a, b Value) error {
	return vmerrors.Errorf(vmerrors.TokenKindMismatch, fmt.Sprintf("%s %s", op, a.kind), b.kind)
}
