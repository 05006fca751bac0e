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

package arm_test

import (
	"testing"

	"github.com/dyldarm/armvm/arm"
)

// A one-instruction IT block (mask 0b1000) exhausts on the very first
// advance: its low 3 mask bits are already zero.
func TestITAdvanceExhaustion(t *testing.T) {
	itstate := uint32(arm.EQ)<<4 | 0b1000
	if got := arm.ITAdvance(itstate); got != 0 {
		t.Fatalf("ITAdvance(%#x) = %#x, want 0", itstate, got)
	}
}

// "ITEET eq" covers four instructions with conditions eq, ne, ne, eq (the
// E arms invert the lead condition, the T arms keep it). Each step's
// condition is read off the top nibble of the state in effect for it;
// ITAdvance computes the state the following instruction sees.
func TestITAdvanceFourStepSequence(t *testing.T) {
	states := []uint32{0x0d, 0x1a, 0x14, 0x08}
	wantConds := []arm.Condition{arm.EQ, arm.NE, arm.NE, arm.EQ}

	for i, state := range states {
		if got := arm.Condition(state >> 4); got != wantConds[i] {
			t.Fatalf("step %d: condition = %s, want %s", i, got, wantConds[i])
		}
	}

	for i := 0; i < len(states)-1; i++ {
		if got := arm.ITAdvance(states[i]); got != states[i+1] {
			t.Fatalf("ITAdvance(%#x) = %#x, want %#x", states[i], got, states[i+1])
		}
	}
	if got := arm.ITAdvance(states[len(states)-1]); got != 0 {
		t.Fatalf("ITAdvance(%#x) = %#x, want 0 (block exhausted)", states[len(states)-1], got)
	}
}

// Shift and ShiftC must agree on the shifted value for every shift type;
// ShiftC additionally reports the carry-out Shift drops.
func TestShiftAgreesWithShiftC(t *testing.T) {
	cases := []struct {
		value  uint32
		typ    arm.ShiftType
		amount uint
		carry  bool
	}{
		{0x80000000, arm.SRTypeLSL, 1, false},
		{0x00000001, arm.SRTypeLSR, 1, true},
		{0x80000000, arm.SRTypeASR, 4, false},
		{0x0000000f, arm.SRTypeROR, 4, false},
		{0x00000001, arm.SRTypeRRX, 0, true},
	}
	for _, c := range cases {
		wantValue, _ := arm.ShiftC(0xffffffff, c.value, c.typ, c.amount, c.carry)
		if got := arm.Shift(0xffffffff, c.value, c.typ, c.amount, c.carry); got != wantValue {
			t.Fatalf("Shift(%#x, %s, %d) = %#x, want %#x (ShiftC)", c.value, c.typ, c.amount, got, wantValue)
		}
	}
}

func TestAddWithCarryOverflowAndCarry(t *testing.T) {
	sum, carry, overflow := arm.AddWithCarry(0xffffffff, 0x7fffffff, 1, false)
	if sum != 0x80000000 || carry || !overflow {
		t.Fatalf("AddWithCarry(0x7fffffff, 1) = (%#x, carry=%v, overflow=%v), want (0x80000000, false, true)", sum, carry, overflow)
	}

	sum, carry, overflow = arm.AddWithCarry(0xffffffff, 0xffffffff, 1, false)
	if sum != 0 || !carry || overflow {
		t.Fatalf("AddWithCarry(0xffffffff, 1) = (%#x, carry=%v, overflow=%v), want (0, true, false)", sum, carry, overflow)
	}
}

func TestDecodeImmShiftRORZeroIsRRX(t *testing.T) {
	typ, amount := arm.DecodeImmShift(arm.SRTypeROR, 0)
	if typ != arm.SRTypeRRX || amount != 1 {
		t.Fatalf("DecodeImmShift(ROR, 0) = (%s, %d), want (rrx, 1)", typ, amount)
	}
}
