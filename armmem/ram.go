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

// bestLength rounds minLength up to a width ROM can actually decode: 1, 2
// or 4 bytes, matching the byte/halfword/word accesses ARM ever performs
// against a single aligned slot.
func bestLength(minLength int) int {
	switch {
	case minLength <= 1:
		return 1
	case minLength <= 2:
		return 2
	default:
		return 4
	}
}

// RAM is a copy-on-write overlay over an immutable ROM: reads fall
// through to ROM on a miss, writes promote a whole aligned word into an
// in-memory map keyed by word index. Two RAMs backed by the same ROM are
// independent once either is written to.
type RAM struct {
	rom ROM
	cow map[int64]armval.Value
}

// NewRAM creates a RAM backed by rom.
func NewRAM(rom ROM) *RAM {
	return &RAM{rom: rom, cow: make(map[int64]armval.Value)}
}

// CopyFrom replaces r's overlay with a copy of other's, which must be
// backed by the same ROM. Used by Memory.Copy to produce an isolated
// instance.
func (r *RAM) CopyFrom(other *RAM) {
	r.cow = make(map[int64]armval.Value, len(other.cow))
	for k, v := range other.cow {
		r.cow[k] = v
	}
}

func (r *RAM) getItem(item int64, minLength int) (armval.Value, error) {
	if v, ok := r.cow[item]; ok {
		return v, nil
	}
	length := bestLength(minLength)
	bs, err := r.rom.DerefBytes(uint32(item)*wordAlign, length)
	if err != nil {
		return armval.Value{}, err
	}
	var v uint32
	for i := length - 1; i >= 0; i-- {
		v = v<<8 | uint32(bs[i])
	}
	return armval.Int(v), nil
}

func (r *RAM) setItem(item int64, value armval.Value) error {
	r.cow[item] = value
	return nil
}

// Get reads length bytes (or the native word if length is 0) at the
// given VM address.
func (r *RAM) Get(vmaddr uint32, length int) (armval.Value, error) {
	return alignedGet(r, int64(vmaddr), length)
}

// Set writes value (length bytes, or the native word if 0) at vmaddr.
func (r *RAM) Set(vmaddr uint32, value armval.Value, length int) error {
	return alignedSet(r, int64(vmaddr), value, length)
}
