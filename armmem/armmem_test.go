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
	"testing"

	"github.com/dyldarm/armvm/armval"
)

func mustInt(t *testing.T) func(armval.Value, error) uint32 {
	return func(v armval.Value, err error) uint32 {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, ok := v.AsInt()
		if !ok {
			t.Fatalf("value %v is not an Int", v)
		}
		return got
	}
}

func TestDecompose(t *testing.T) {
	v := armval.Int(0x12345678)

	cases := []struct {
		offset, length int
		want            uint32
	}{
		{0, 1, 0x78},
		{1, 1, 0x56},
		{2, 1, 0x34},
		{3, 1, 0x12},
		{0, 2, 0x5678},
		{2, 2, 0x1234},
		{0, -1, 0x12345678},
		{1, -1, 0x123456},
		{2, -1, 0x1234},
	}
	for _, c := range cases {
		got := mustInt(t)(decompose(v, c.offset, c.length))
		if got != c.want {
			t.Errorf("decompose(%#x, %d, %d) = %#x, want %#x", 0x12345678, c.offset, c.length, got, c.want)
		}
	}
}

func TestReplaceDecomposed(t *testing.T) {
	v := armval.Int(0x12345678)

	cases := []struct {
		offset, length int
		value, want     uint32
	}{
		{0, 1, 0xff, 0x123456ff},
		{1, 1, 0xff, 0x1234ff78},
		{2, 1, 0xff, 0x12ff5678},
		{3, 1, 0xff, 0xff345678},
		{0, 2, 0xff, 0x123400ff},
		{2, 2, 0xff, 0x00ff5678},
		{0, -1, 0xff, 0xff},
		{1, -1, 0xff, 0xff78},
		{2, -1, 0xff, 0xff5678},
		{3, -1, 0xff, 0xff345678},
	}
	for _, c := range cases {
		got := mustInt(t)(replaceDecomposed(v, c.offset, armval.Int(c.value), c.length))
		if got != c.want {
			t.Errorf("replaceDecomposed(offset=%d, value=%#x, length=%d) = %#x, want %#x", c.offset, c.value, c.length, got, c.want)
		}
	}
}

func TestRAMGetSet(t *testing.T) {
	rom := NewSimulatedROM([]byte{0x90, 0xef, 0xcd, 0xab, 0x78, 0x56, 0x34, 0x12}, 0x1000)
	ram := NewRAM(rom)

	if got := mustInt(t)(ram.Get(0x1000, 0)); got != 0xabcdef90 {
		t.Fatalf("ram.Get(0x1000) = %#x", got)
	}
	if got := mustInt(t)(ram.Get(0x1004, 0)); got != 0x12345678 {
		t.Fatalf("ram.Get(0x1004) = %#x", got)
	}
	if got := mustInt(t)(ram.Get(0x1000, 1)); got != 0x90 {
		t.Fatalf("ram.Get(0x1000, 1) = %#x", got)
	}
	if got := mustInt(t)(ram.Get(0x1002, 2)); got != 0xabcd {
		t.Fatalf("ram.Get(0x1002, 2) = %#x", got)
	}

	if err := ram.Set(0x1001, armval.Int(0x25), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mustInt(t)(ram.Get(0x1000, 0)); got != 0xabcd2590 {
		t.Fatalf("ram.Get(0x1000) after partial write = %#x", got)
	}
	if got := mustInt(t)(ram.Get(0x1004, 0)); got != 0x12345678 {
		t.Fatalf("ram.Get(0x1004) after unrelated write = %#x", got)
	}

	if err := ram.Set(0x1002, armval.Int(0x4321), 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mustInt(t)(ram.Get(0x1000, 0)); got != 0x43212590 {
		t.Fatalf("ram.Get(0x1000) after straddling write = %#x", got)
	}

	if err := ram.Set(0x1000, armval.Int(0xabcdefff), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mustInt(t)(ram.Get(0x1000, 0)); got != 0xabcdefff {
		t.Fatalf("ram.Get(0x1000) after full-word write = %#x", got)
	}
}

func TestStackGetSet(t *testing.T) {
	s := NewStack()

	if got := mustInt(t)(s.Get(0, 0)); got != 0 {
		t.Fatalf("s.Get(0) on an untouched offset = %#x, want 0", got)
	}

	if err := s.Set(0, armval.Int(0x12345678), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mustInt(t)(s.Get(0, 0)); got != 0x12345678 {
		t.Fatalf("s.Get(0) = %#x", got)
	}
	if got := mustInt(t)(s.Get(2, 2)); got != 0x1234 {
		t.Fatalf("s.Get(2, 2) = %#x", got)
	}

	if err := s.Set(-4, armval.Int(0xabcdef90), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mustInt(t)(s.Get(-4, 0)); got != 0xabcdef90 {
		t.Fatalf("s.Get(-4) = %#x", got)
	}

	if err := s.Set(14, armval.Int(0x4321), 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mustInt(t)(s.Get(12, 0)); got != 0x43210000 {
		t.Fatalf("s.Get(12) after straddling write = %#x", got)
	}
}

func TestHeapAllocFreeHandleMonotonic(t *testing.T) {
	h := NewHeap()
	a := h.Alloc(armval.Int(1))
	b := h.Alloc(armval.Int(2))
	if b <= a {
		t.Fatalf("handles are not strictly increasing: a=%d b=%d", a, b)
	}
	if err := h.Free(a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := h.Get(a); err == nil {
		t.Fatalf("expected Get on a freed handle to fail")
	}
	c := h.Alloc(armval.Int(3))
	if c <= b {
		t.Fatalf("a freed handle was reused: b=%d c=%d", b, c)
	}
}

func TestMemoryDispatchesByPointerKind(t *testing.T) {
	rom := NewSimulatedROM([]byte{0x90, 0xef, 0xcd, 0xab, 0x78, 0x56, 0x34, 0x12}, 0x1000)
	mem := New(rom)

	if got := mustInt(t)(mem.Get(armval.Int(0x1000), 0)); got != 0xabcdef90 {
		t.Fatalf("mem.Get(ram) = %#x", got)
	}
	if got := mustInt(t)(mem.Get(armval.Stack(0), 0)); got != 0 {
		t.Fatalf("mem.Get(stack) = %#x, want 0", got)
	}

	heapPtr := mem.Alloc(armval.Int(0x12345678))
	if got := mustInt(t)(mem.Get(heapPtr, 0)); got != 0x12345678 {
		t.Fatalf("mem.Get(heap) = %#x", got)
	}
	if got := mustInt(t)(mem.Get(heapPtr, 1)); got != 0x78 {
		t.Fatalf("mem.Get(heap, 1) = %#x", got)
	}

	off, err := armval.Add(heapPtr, armval.Int(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mem.Set(off, armval.Int(0x6543), 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mustInt(t)(mem.Get(heapPtr, 0)); got != 0x65435678 {
		t.Fatalf("mem.Get(heap) after offset write = %#x", got)
	}

	if err := mem.Free(heapPtr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := mem.Get(heapPtr, 0); err == nil {
		t.Fatalf("expected Get on a freed heap pointer to fail")
	}
}

func TestMemoryCopyIsIsolated(t *testing.T) {
	rom := NewSimulatedROM([]byte{0x90, 0xef, 0xcd, 0xab}, 0x1000)
	mem := New(rom)

	if err := mem.Set(armval.Stack(0), armval.Int(0x1300), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	heapPtr := mem.Alloc(armval.Int(0x1224))

	mem2 := mem.Copy()
	if got := mustInt(t)(mem2.Get(armval.Stack(0), 0)); got != 0x1300 {
		t.Fatalf("mem2.Get(stack) = %#x", got)
	}

	if err := mem2.Set(armval.Stack(0), armval.Int(0x4445), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mustInt(t)(mem2.Get(armval.Stack(0), 0)); got != 0x4445 {
		t.Fatalf("mem2.Get(stack) after write = %#x", got)
	}
	if got := mustInt(t)(mem.Get(armval.Stack(0), 0)); got != 0x1300 {
		t.Fatalf("mem.Get(stack) should be unaffected by mem2's write, got %#x", got)
	}

	if err := mem.Set(heapPtr, armval.Int(0), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mustInt(t)(mem2.Get(heapPtr, 0)); got != 0x1224 {
		t.Fatalf("mem2's heap should be unaffected by mem's write, got %#x", got)
	}
}
