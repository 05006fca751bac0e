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
	"github.com/dyldarm/armvm/armval"
	"github.com/dyldarm/armvm/vmerrors"
)

// Heap is a dictionary from monotonically increasing handles to tagged
// values. A handle is never reused in the lifetime of the Heap, even
// after Free — a later Alloc always issues a strictly larger one.
type Heap struct {
	content    map[uint64]armval.Value
	nextHandle uint64
}

// NewHeap creates an empty Heap.
func NewHeap() *Heap {
	return &Heap{content: make(map[uint64]armval.Value)}
}

// Alloc allocates a new region holding value and returns its handle.
func (h *Heap) Alloc(value armval.Value) uint64 {
	handle := h.nextHandle
	h.content[handle] = value
	h.nextHandle++
	return handle
}

// Free releases handle. A later access to it is a HeapUseAfterFree error.
func (h *Heap) Free(handle uint64) error {
	if _, ok := h.content[handle]; !ok {
		return vmerrors.Errorf(vmerrors.HeapUseAfterFree, handle)
	}
	delete(h.content, handle)
	return nil
}

// Get returns the value stored at handle.
func (h *Heap) Get(handle uint64) (armval.Value, error) {
	v, ok := h.content[handle]
	if !ok {
		return armval.Value{}, vmerrors.Errorf(vmerrors.HeapUseAfterFree, handle)
	}
	return v, nil
}

// Set replaces the value stored at handle.
func (h *Heap) Set(handle uint64, value armval.Value) error {
	if _, ok := h.content[handle]; !ok {
		return vmerrors.Errorf(vmerrors.HeapUseAfterFree, handle)
	}
	h.content[handle] = value
	return nil
}

// Copy returns an isolated copy of h, preserving the next handle to
// issue so a copy never reuses a handle the original later allocates.
func (h *Heap) Copy() *Heap {
	cp := &Heap{content: make(map[uint64]armval.Value, len(h.content)), nextHandle: h.nextHandle}
	for k, v := range h.content {
		cp.content[k] = v
	}
	return cp
}
