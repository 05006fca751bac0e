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

import "github.com/dyldarm/armvm/vmerrors"

// ROM is the host-provided, immutable backing store RAM reads through on
// a cache miss. A Mach-O reader's mapped-segment view satisfies this
// directly; SimulatedROM is a minimal in-memory implementation for tests
// and the demonstration CLI.
type ROM interface {
	// DerefBytes returns the length bytes at vmaddr, little-endian, or an
	// error if any part of the range lies outside the ROM.
	DerefBytes(vmaddr uint32, length int) ([]byte, error)
}

// SimulatedROM is a ROM backed by a single flat in-memory buffer starting
// at Base.
type SimulatedROM struct {
	Content []byte
	Base    uint32
}

// NewSimulatedROM wraps content as a ROM mapped starting at base.
func NewSimulatedROM(content []byte, base uint32) *SimulatedROM {
	return &SimulatedROM{Content: content, Base: base}
}

func (r *SimulatedROM) DerefBytes(vmaddr uint32, length int) ([]byte, error) {
	if vmaddr < r.Base {
		return nil, vmerrors.Errorf(vmerrors.ROMOutOfRange, vmaddr, length)
	}
	offset := int(vmaddr - r.Base)
	if length < 0 || offset+length > len(r.Content) {
		return nil, vmerrors.Errorf(vmerrors.ROMOutOfRange, vmaddr, length)
	}
	return r.Content[offset : offset+length], nil
}
