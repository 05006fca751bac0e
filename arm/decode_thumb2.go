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

package arm

import (
	"github.com/dyldarm/armvm/armval"
	"github.com/dyldarm/armvm/bitpattern"
)

// Thumb-2 32-bit encodings arrive here as the two constituent halfwords
// concatenated in program order, first halfword in the high 16 bits —
// the form Thread.Fetch already reconstructs them in.

func init() {
	Register(4, 1, false, decodeThumb2DataProcessingRegister)
	Register(4, 1, false, decodeThumb2BL)
}

// Data-processing (register), T2 encoding: AND/EOR/ORR/BIC/ADD/ADC/SBC/
// SUB/RSB with an optional constant shift applied to Rm. Covers the wide
// forms an IT block commonly widens its covered instructions to when
// the 16-bit Thumb encoding can't reach a high register or needs a
// shift the 16-bit forms don't offer.
var thumb2DataProcPattern = bitpattern.Compile(
	"1110101ooooSnnnn0iiiddddiittmmmm",
	map[byte]string{'o': "Op", 'n': "Rn", 'S': "S", 'i': "Imm", 'd': "Rd", 't': "Type", 'm': "Rm"},
	nil,
)

// thumb2DPOp is one data-processing (register) T2 opcode: the wide
// encoding's Rd==1111 special forms (TST/TEQ/CMN/CMP) aren't modelled
// separately, since nothing in this emulator's scope reaches them.
type thumb2DPOp struct {
	mnemonic string
	apply    func(t *Thread, x, y armval.Value, setFlags bool) armval.Value
}

var thumb2DPOps = map[uint32]thumb2DPOp{
	0b0000: {"and", func(t *Thread, x, y armval.Value, s bool) armval.Value {
		v, err := armval.And(x, y)
		if err != nil {
			panic(err)
		}
		if s {
			setNZ(t, v)
		}
		return v
	}},
	0b0010: {"orr", func(t *Thread, x, y armval.Value, s bool) armval.Value {
		v, err := armval.Or(x, y)
		if err != nil {
			panic(err)
		}
		if s {
			setNZ(t, v)
		}
		return v
	}},
	0b0100: {"eor", func(t *Thread, x, y armval.Value, s bool) armval.Value {
		v, err := armval.Xor(x, y)
		if err != nil {
			panic(err)
		}
		if s {
			setNZ(t, v)
		}
		return v
	}},
	0b0001: {"bic", func(t *Thread, x, y armval.Value, s bool) armval.Value {
		notY, err := armval.Xor(y, armval.Int(0xffffffff))
		if err != nil {
			panic(err)
		}
		v, err := armval.And(x, notY)
		if err != nil {
			panic(err)
		}
		if s {
			setNZ(t, v)
		}
		return v
	}},
	0b1000: {"add", func(t *Thread, x, y armval.Value, s bool) armval.Value {
		return performAdd(t, x, y, false, s)
	}},
	0b1010: {"adc", func(t *Thread, x, y armval.Value, s bool) armval.Value {
		return performAdd(t, x, y, t.CPSR.C(), s)
	}},
	0b1011: {"sbc", func(t *Thread, x, y armval.Value, s bool) armval.Value {
		return performSub(t, x, y, t.CPSR.C(), s)
	}},
	0b1101: {"sub", func(t *Thread, x, y armval.Value, s bool) armval.Value {
		return performSub(t, x, y, true, s)
	}},
	0b1110: {"rsb", func(t *Thread, x, y armval.Value, s bool) armval.Value {
		return performSub(t, y, x, true, s)
	}},
}

func setNZ(t *Thread, v armval.Value) {
	if iv, ok := v.AsInt(); ok {
		t.CPSR.SetN(iv&0x80000000 != 0)
		t.CPSR.SetZ(iv == 0)
	}
}

func decodeThumb2DataProcessingRegister(encoding uint32, cond uint8) *Instruction {
	f, ok := thumb2DataProcPattern.Unpack(encoding)
	if !ok {
		return nil
	}
	op, ok := thumb2DPOps[f["Op"]]
	if !ok {
		return nil
	}
	rn, rd, rm := int(f["Rn"]), int(f["Rd"]), int(f["Rm"])
	setFlags := f["S"] != 0
	shiftType, amount := DecodeImmShift(ShiftType(f["Type"]), uint(f["Imm"]))

	return (&Instruction{
		Condition:   AL,
		Mnemonic:    op.mnemonic,
		Operands:    []Operand{Register{rd}, Register{rn}, Register{rm}},
		ShiftType:   shiftType,
		ShiftAmount: Constant{uint32(amount)},
		Exec: func(t *Thread, instr *Instruction) {
			rmv := t.Reg(rm)
			if iv, isInt := rmv.AsInt(); isInt {
				shifted := instr.ApplyShift(t, iv, t.CPSR.C())
				rmv = armval.Int(shifted)
			}
			result := op.apply(t, t.Reg(rn), rmv, setFlags)
			t.SetReg(rd, result)
		},
	}).ForceWide()
}

// BL/BLX (immediate), T1/T2 encoding. Only the BL (Thumb-to-Thumb) form
// is modelled: the BLX (Thumb-to-ARM interworking) form this emulator
// never exercises, since every binary in scope stays in Thumb state.
var thumb2BLPattern = bitpattern.Compile(
	"11110Siiiiiiiiii11j1kiiiiiiiiiii",
	map[byte]string{'S': "S", 'i': "Imm", 'j': "J1", 'k': "J2"},
	nil,
)

func decodeThumb2BL(encoding uint32, cond uint8) *Instruction {
	f, ok := thumb2BLPattern.Unpack(encoding)
	if !ok {
		return nil
	}
	s := f["S"]
	j1 := f["J1"]
	j2 := f["J2"]
	i1 := 1 - (j1 ^ s)
	i2 := 1 - (j2 ^ s)
	imm := f["Imm"]
	// Imm packs imm10 (high) then imm11 (low) as one discontiguous field,
	// matching the ARM ARM's I1:I2:imm10:imm11:'0' assembly.
	imm32 := (s << 24) | (i1 << 23) | (i2 << 22) | (imm << 1)
	delta := int32(imm32<<7) >> 7

	target := BranchTarget{Delta: delta}
	return (&Instruction{
		Condition:   AL,
		Mnemonic:    "bl",
		Operands:    []Operand{target},
		ShiftAmount: Constant{0},
		Exec: func(t *Thread, instr *Instruction) {
			addr := target.Get(t).Uint32()
			returnAddr, _ := t.PCRaw().AsInt()
			t.SetReg(RegLR, armval.Int(returnAddr|1))
			t.WritePCBranch(addr)
		},
	}).ForceWide()
}
