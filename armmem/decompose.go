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

// Package armmem is the tagged-memory model: a RAM copy-on-write layer
// over an immutable ROM, a bidirectional stack deque, a monotonic heap
// handle table, and a Memory that dispatches Get/Set/Alloc/Free across
// all three by the discriminant of the pointer it's given.
package armmem

import (
	"github.com/dyldarm/armvm/armval"
	"github.com/dyldarm/armvm/vmerrors"
)

// decompose extracts length bytes of obj starting at byte offset, in
// little-endian order. Only an Int can be decomposed byte-wise; any other
// tagged value can only be "decomposed" as its whole self, at offset 0
// with the full word length — anything finer is an
// UnsupportedPartialAccess, since slicing a symbolic pointer into bytes
// would destroy the identity the rest of the core relies on.
func decompose(obj armval.Value, offset, length int) (armval.Value, error) {
	v, ok := obj.AsInt()
	if !ok {
		if offset == 0 && (length < 0 || length >= wordSize(obj)) {
			return obj, nil
		}
		return armval.Value{}, vmerrors.Errorf(vmerrors.UnsupportedPartialAccess, obj)
	}
	rightShift := uint(offset) * 8
	if length < 0 {
		return armval.Int(v >> rightShift), nil
	}
	mask := uint32(1)<<(uint(length)*8) - 1
	if length >= 4 {
		mask = ^uint32(0)
	}
	return armval.Int((v >> rightShift) & mask), nil
}

// replaceDecomposed replaces length bytes of obj at byte offset with
// value (itself decomposed the same way), returning the new whole value.
// As with decompose, only Int obj/value pairs support a genuine partial
// write; a full-word (offset 0, length covering the whole word) write of
// any tagged value replaces it wholesale.
func replaceDecomposed(obj armval.Value, offset int, value armval.Value, length int) (armval.Value, error) {
	objInt, objIsInt := obj.AsInt()
	valInt, valIsInt := value.AsInt()
	if !objIsInt || !valIsInt {
		if offset == 0 && (length < 0 || length >= wordSize(obj)) {
			return value, nil
		}
		culprit := obj
		if objIsInt {
			culprit = value
		}
		return armval.Value{}, vmerrors.Errorf(vmerrors.UnsupportedPartialAccess, culprit)
	}

	rightShift := uint(offset) * 8
	if length < 0 {
		objInt &^= ^uint32(0) << rightShift
	} else {
		mask := uint32(1)<<(uint(length)*8) - 1
		if length >= 4 {
			mask = ^uint32(0)
		}
		objInt &^= mask << rightShift
	}
	objInt |= valInt << rightShift
	return armval.Int(objInt), nil
}

// wordSize is the byte width treated as "the whole value" for a
// non-decomposable tagged value: always the native pointer width, since a
// Stack/Heap/Return token only ever occupies one aligned word.
func wordSize(armval.Value) int { return 4 }
