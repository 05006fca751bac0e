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

import (
	"fmt"

	"github.com/dyldarm/armvm/armval"
)

// notAPointer panics: every caller is expected to pass a concrete RAM
// address, a stack token, or a heap token. A Return sentinel (or any
// other value) reaching Get/Set/Free is a decoder or dispatcher bug, not
// a recoverable runtime condition.
func notAPointer(pointer armval.Value) {
	panic(fmt.Sprintf("armmem: %v is not a valid memory pointer", pointer))
}

// Memory is the complete tagged-memory model for one thread: a RAM over
// an immutable ROM, a Stack, and a Heap. Get/Set/Alloc/Free dispatch on
// the discriminant of the armval.Value pointer they're given, so callers
// never need to know which region an address belongs to.
type Memory struct {
	RAM   *RAM
	Stack *Stack
	Heap  *Heap
}

// New creates a Memory backed by rom.
func New(rom ROM) *Memory {
	return &Memory{RAM: NewRAM(rom), Stack: NewStack(), Heap: NewHeap()}
}

// Get reads length bytes (or the native word if 0) at pointer, which may
// be a concrete RAM address, a stack token, or a heap token.
func (m *Memory) Get(pointer armval.Value, length int) (armval.Value, error) {
	if length == 0 {
		length = wordAlign
	}

	if off, ok := pointer.StackOffset(); ok {
		return m.Stack.Get(off, length)
	}
	if handle, offset, ok := pointer.HeapHandle(); ok {
		obj, err := m.Heap.Get(handle)
		if err != nil {
			return armval.Value{}, err
		}
		if length < wordAlign || offset != 0 {
			return decompose(obj, int(offset), length)
		}
		return obj, nil
	}
	vmaddr, ok := pointer.AsInt()
	if !ok {
		notAPointer(pointer)
	}
	return m.RAM.Get(vmaddr, length)
}

// Set writes value (length bytes, or the native word if 0) at pointer.
func (m *Memory) Set(pointer armval.Value, value armval.Value, length int) error {
	if length == 0 {
		length = wordAlign
	}

	if off, ok := pointer.StackOffset(); ok {
		return m.Stack.Set(off, value, length)
	}
	if handle, offset, ok := pointer.HeapHandle(); ok {
		if length < wordAlign || offset != 0 {
			obj, err := m.Heap.Get(handle)
			if err != nil {
				return err
			}
			replaced, err := replaceDecomposed(obj, int(offset), value, length)
			if err != nil {
				return err
			}
			return m.Heap.Set(handle, replaced)
		}
		return m.Heap.Set(handle, value)
	}
	vmaddr, ok := pointer.AsInt()
	if !ok {
		notAPointer(pointer)
	}
	return m.RAM.Set(vmaddr, value, length)
}

// Alloc allocates heap space holding value and returns its heap token.
func (m *Memory) Alloc(value armval.Value) armval.Value {
	handle := m.Heap.Alloc(value)
	return armval.Heap(handle, 0)
}

// Free releases the heap allocation pointer refers to.
func (m *Memory) Free(pointer armval.Value) error {
	handle, _, ok := pointer.HeapHandle()
	if !ok {
		notAPointer(pointer)
	}
	return m.Heap.Free(handle)
}

// Copy returns a deep-isolated copy of m: subsequent writes to either
// instance are invisible to the other. The RAM copy shares the same
// (immutable) ROM but gets its own copy-on-write overlay.
func (m *Memory) Copy() *Memory {
	cp := New(m.RAM.rom)
	cp.RAM.CopyFrom(m.RAM)
	cp.Stack = m.Stack.Copy()
	cp.Heap = m.Heap.Copy()
	return cp
}
