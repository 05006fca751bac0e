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

package armmem

import "github.com/dyldarm/armvm/armval"

// wordAlign is the native pointer width in bytes. Both RAM and Stack are
// word-addressed at this granularity; only a 32-bit target is modelled,
// so this is fixed rather than a configurable Memory field.
const wordAlign = 4
const wordShift = 2

// itemStore is the aligned, whole-word storage RAM and Stack each
// implement: getItem/setItem address a single aligned word by its word
// index (item == offset / wordAlign), with minLength a hint for how many
// bytes of that word the caller actually needs (RAM uses it to avoid
// dereferencing more ROM bytes than necessary).
type itemStore interface {
	getItem(item int64, minLength int) (armval.Value, error)
	setItem(item int64, value armval.Value) error
}

// alignedGet and alignedSet implement unaligned access on top of an
// itemStore's whole-word primitives: a request that crosses a word
// boundary is split into the bytes available in the low word and a
// recursive call for whatever remains, the same decomposition the
// teacher's own unaligned memory access helpers use, just parameterised
// over any itemStore instead of being specific to RAM.
//
// length is capped at wordAlign: unlike the Python original (where a
// memory cell could hold an arbitrary-width Python int), an armval.Value
// is always a single 32-bit slot, so there is no representation for a
// combined value wider than one word. A caller that needs a wider access
// (e.g. LDRD) issues two separate word-sized Get/Set calls instead.

func alignedGet(s itemStore, offset int64, length int) (armval.Value, error) {
	if length == 0 {
		length = wordAlign
	}
	if length > wordAlign {
		panic("armmem: access wider than the native word; issue separate word-sized accesses instead")
	}

	item := offset >> wordShift
	unaligned := int(offset & (wordAlign - 1))

	if unaligned == 0 {
		if length == wordAlign {
			return s.getItem(item, wordAlign)
		}
		whole, err := s.getItem(item, length)
		if err != nil {
			return armval.Value{}, err
		}
		return decompose(whole, 0, length)
	}

	bytesCount := wordAlign - unaligned
	if bytesCount > length {
		bytesCount = length
	}
	whole, err := s.getItem(item, unaligned+bytesCount)
	if err != nil {
		return armval.Value{}, err
	}
	obj, err := decompose(whole, unaligned, bytesCount)
	if err != nil {
		return armval.Value{}, err
	}
	alignedBytes := length - bytesCount
	if alignedBytes <= 0 {
		return obj, nil
	}
	higher, err := alignedGet(s, offset+int64(bytesCount), alignedBytes)
	if err != nil {
		return armval.Value{}, err
	}
	return replaceDecomposed(obj, bytesCount, higher, -1)
}

func alignedSet(s itemStore, offset int64, value armval.Value, length int) error {
	if length == 0 {
		length = wordAlign
	}
	if length > wordAlign {
		panic("armmem: access wider than the native word; issue separate word-sized accesses instead")
	}

	item := offset >> wordShift
	unaligned := int(offset & (wordAlign - 1))

	if unaligned == 0 && length == wordAlign {
		return s.setItem(item, value)
	}

	bytesCount := wordAlign - unaligned
	if bytesCount > length {
		bytesCount = length
	}
	orig, err := s.getItem(item, wordAlign)
	if err != nil {
		return err
	}
	lower, err := decompose(value, 0, bytesCount)
	if err != nil {
		return err
	}
	newObj, err := replaceDecomposed(orig, unaligned, lower, bytesCount)
	if err != nil {
		return err
	}
	if err := s.setItem(item, newObj); err != nil {
		return err
	}

	alignedBytes := length - bytesCount
	if alignedBytes <= 0 {
		return nil
	}
	higher, err := decompose(value, bytesCount, -1)
	if err != nil {
		return err
	}
	return alignedSet(s, offset+int64(bytesCount), higher, length-bytesCount)
}
