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

// Every pattern in this file is 28 bits: the dispatcher strips an ARM
// encoding's condition nibble before a rule ever sees it (see
// Dispatch), exactly as the teacher's decoder.py documents for its own
// BitPattern-driven rules.

var mulPattern = bitpattern.Compile("000000ASddddnnnnssss1001mmmm",
	map[byte]string{'A': "A", 'S': "S", 'd': "Rd", 'n': "Rn", 's': "Rs", 'm': "Rm"}, nil)

func init() {
	// Registered ahead of dataProcessing: MUL/MLA's bit pattern is a
	// special case of the "00, I=0, opcode=0000" AND encoding that the
	// ARM ARM reserves for the multiply extension space (bits[7:4] ==
	// 1001 can never appear as AND's register-shifted operand2, whose
	// bit 7 is defined to be 0). First-match-wins registration order
	// lets this narrower rule claim that encoding before the general
	// one does.
	Register(4, 0, false, decodeMul)
	Register(4, 0, false, decodeDataProcessing)
	Register(4, 0, false, decodeBX)
	Register(4, 0, false, decodeBranch)
	Register(4, 0, false, decodeSingleTransfer)
	Register(4, 0, false, decodeBlockTransfer)
}

func decodeMul(encoding uint32, cond uint8) *Instruction {
	f, ok := mulPattern.Unpack(encoding)
	if !ok {
		return nil
	}
	mnemonic := "mul"
	if f["A"] != 0 {
		mnemonic = "mla"
	}
	rd, rn, rs, rm := int(f["Rd"]), int(f["Rn"]), int(f["Rs"]), int(f["Rm"])
	setFlags := f["S"] != 0
	operands := []Operand{Register{rd}, Register{rm}, Register{rs}}
	if f["A"] != 0 {
		operands = append(operands, Register{rn})
	}
	return &Instruction{
		Mnemonic: mnemonic,
		Operands: operands,
		ShiftAmount: Constant{0},
		Exec: func(t *Thread, instr *Instruction) {
			product := t.Reg(rm).Uint32() * t.Reg(rs).Uint32()
			if f["A"] != 0 {
				product += t.Reg(rn).Uint32()
			}
			t.SetReg(rd, armval.Int(product))
			if setFlags {
				t.CPSR.SetN(product&0x80000000 != 0)
				t.CPSR.SetZ(product == 0)
			}
		},
	}
}

var dataProcessingPattern = bitpattern.Compile("00IooooSnnnnddddmmmmmmmmmmmm",
	map[byte]string{'I': "I", 'o': "Op", 'S': "S", 'n': "Rn", 'd': "Rd", 'm': "Op2"}, nil)

var dpMnemonics = [16]string{
	"and", "eor", "sub", "rsb", "add", "adc", "sbc", "rsc",
	"tst", "teq", "cmp", "cmn", "orr", "mov", "bic", "mvn",
}

// operand2Value evaluates a data-processing operand2 field: a
// modified immediate (iBit set) or a shifted register. It returns the
// value and the shifter's carry-out. A token-valued shifted register is
// passed through unshifted: the ARM ARM's Shift_C is only meaningfully
// defined over a concrete bit pattern, and no scenario in this emulator's
// scope ever shifts a symbolic address.
func operand2Value(t *Thread, raw uint32, iBit bool) (armval.Value, bool) {
	carryIn := t.CPSR.C()
	if iBit {
		imm, carry := ARMExpandImmC(raw, carryIn)
		return armval.Int(imm), carry
	}
	rm := t.Reg(int(raw & 0xf))
	shiftType := ShiftType((raw >> 5) & 0x3)
	var amount uint
	if raw&0x10 != 0 {
		rs := t.Reg(int((raw >> 8) & 0xf))
		amount = uint(rs.Uint32() & 0xff)
	} else {
		amount = uint((raw >> 7) & 0x1f)
		shiftType, amount = DecodeImmShift(shiftType, amount)
	}
	rmInt, ok := rm.AsInt()
	if !ok {
		return rm, carryIn
	}
	shifted, carry := ShiftC(0xffffffff, rmInt, shiftType, amount, carryIn)
	return armval.Int(shifted), carry
}

func operand2Operand(raw uint32, iBit bool) Operand {
	if iBit {
		v, _ := ARMExpandImmC(raw, false)
		return Constant{v}
	}
	return Register{int(raw & 0xf)}
}

// performAdd and performSub implement AddWithCarry over concrete 32-bit
// values, and plain armval.Add/Sub (ignoring carryIn) when either
// operand is a symbolic token: a stack or heap pointer's arithmetic
// identity is preserved instead of being folded through the ARM ARM's
// carry machinery, and the flags a token result leaves behind are
// cleared rather than computed from a masked offset that means nothing
// to the token's owner.
func performAdd(t *Thread, x, y armval.Value, carryIn, setFlags bool) armval.Value {
	xi, xok := x.AsInt()
	yi, yok := y.AsInt()
	if xok && yok {
		sum, c, v := AddWithCarry(0xffffffff, xi, yi, carryIn)
		if setFlags {
			t.CPSR.SetN(sum&0x80000000 != 0)
			t.CPSR.SetZ(sum == 0)
			t.CPSR.SetC(c)
			t.CPSR.SetV(v)
		}
		return armval.Int(sum)
	}
	res, err := armval.Add(x, y)
	if err != nil {
		panic(err)
	}
	if setFlags {
		t.CPSR.SetN(false)
		t.CPSR.SetZ(false)
		t.CPSR.SetC(false)
		t.CPSR.SetV(false)
	}
	return res
}

func performSub(t *Thread, x, y armval.Value, carryIn, setFlags bool) armval.Value {
	xi, xok := x.AsInt()
	yi, yok := y.AsInt()
	if xok && yok {
		sum, c, v := AddWithCarry(0xffffffff, xi, ^yi, carryIn)
		if setFlags {
			t.CPSR.SetN(sum&0x80000000 != 0)
			t.CPSR.SetZ(sum == 0)
			t.CPSR.SetC(c)
			t.CPSR.SetV(v)
		}
		return armval.Int(sum)
	}
	res, err := armval.Sub(x, y)
	if err != nil {
		panic(err)
	}
	if setFlags {
		t.CPSR.SetN(false)
		t.CPSR.SetZ(false)
		t.CPSR.SetC(false)
		t.CPSR.SetV(false)
	}
	return res
}

func decodeDataProcessing(encoding uint32, cond uint8) *Instruction {
	f, ok := dataProcessingPattern.Unpack(encoding)
	if !ok {
		return nil
	}
	op := f["Op"]
	setFlags := f["S"] != 0
	if !setFlags && op >= 8 && op <= 11 {
		// The "comparison" opcodes with S=0 are the miscellaneous
		// instruction extension space (MRS/MSR/BX/BLX/CLZ/...): leave
		// them to a more specific rule.
		return nil
	}
	iBit := f["I"] != 0
	rn, rd := int(f["Rn"]), int(f["Rd"])
	mnemonic := dpMnemonics[op]

	instr := &Instruction{
		Mnemonic:    mnemonic,
		ShiftAmount: Constant{0},
	}

	switch op {
	case 8, 9, 10, 11: // TST, TEQ, CMP, CMN
		instr.Operands = []Operand{Register{rn}, operand2Operand(f["Op2"], iBit)}
	case 13, 15: // MOV, MVN
		instr.Operands = []Operand{Register{rd}, operand2Operand(f["Op2"], iBit)}
	default:
		instr.Operands = []Operand{Register{rd}, Register{rn}, operand2Operand(f["Op2"], iBit)}
	}

	instr.Exec = func(t *Thread, instr *Instruction) {
		op2, shiftCarry := operand2Value(t, f["Op2"], iBit)
		rnv := t.Reg(rn)

		logical := func(result armval.Value, carry bool) {
			if setFlags {
				if v, ok := result.AsInt(); ok {
					t.CPSR.SetN(v&0x80000000 != 0)
					t.CPSR.SetZ(v == 0)
				}
				t.CPSR.SetC(carry)
			}
			if rd != RegPC {
				t.SetReg(rd, result)
			} else {
				t.SetReg(RegPC, result)
			}
		}

		switch op {
		case 0: // AND
			v, err := armval.And(rnv, op2)
			if err != nil {
				panic(err)
			}
			logical(v, shiftCarry)
		case 1: // EOR
			v, err := armval.Xor(rnv, op2)
			if err != nil {
				panic(err)
			}
			logical(v, shiftCarry)
		case 2: // SUB
			result := performSub(t, rnv, op2, true, setFlags)
			t.SetReg(rd, result)
		case 3: // RSB
			result := performSub(t, op2, rnv, true, setFlags)
			t.SetReg(rd, result)
		case 4: // ADD
			result := performAdd(t, rnv, op2, false, setFlags)
			t.SetReg(rd, result)
		case 5: // ADC
			result := performAdd(t, rnv, op2, t.CPSR.C(), setFlags)
			t.SetReg(rd, result)
		case 6: // SBC
			result := performSub(t, rnv, op2, t.CPSR.C(), setFlags)
			t.SetReg(rd, result)
		case 7: // RSC
			result := performSub(t, op2, rnv, t.CPSR.C(), setFlags)
			t.SetReg(rd, result)
		case 8: // TST
			v, err := armval.And(rnv, op2)
			if err != nil {
				panic(err)
			}
			if iv, ok := v.AsInt(); ok {
				t.CPSR.SetN(iv&0x80000000 != 0)
				t.CPSR.SetZ(iv == 0)
			}
			t.CPSR.SetC(shiftCarry)
		case 9: // TEQ
			v, err := armval.Xor(rnv, op2)
			if err != nil {
				panic(err)
			}
			if iv, ok := v.AsInt(); ok {
				t.CPSR.SetN(iv&0x80000000 != 0)
				t.CPSR.SetZ(iv == 0)
			}
			t.CPSR.SetC(shiftCarry)
		case 10: // CMP
			performSub(t, rnv, op2, true, true)
		case 11: // CMN
			performAdd(t, rnv, op2, false, true)
		case 12: // ORR
			v, err := armval.Or(rnv, op2)
			if err != nil {
				panic(err)
			}
			logical(v, shiftCarry)
		case 13: // MOV
			logical(op2, shiftCarry)
		case 14: // BIC
			notOp2, err := armval.Xor(op2, armval.Int(0xffffffff))
			if err != nil {
				panic(err)
			}
			v, err := armval.And(rnv, notOp2)
			if err != nil {
				panic(err)
			}
			logical(v, shiftCarry)
		case 15: // MVN
			notOp2, err := armval.Xor(op2, armval.Int(0xffffffff))
			if err != nil {
				panic(err)
			}
			logical(notOp2, shiftCarry)
		}
	}

	return instr
}

var bxPattern = bitpattern.Compile("0001001011111111111100L1mmmm",
	map[byte]string{'L': "L", 'm': "Rm"}, nil)

func decodeBX(encoding uint32, cond uint8) *Instruction {
	f, ok := bxPattern.Unpack(encoding)
	if !ok {
		return nil
	}
	rm := int(f["Rm"])
	mnemonic := "bx"
	if f["L"] != 0 {
		mnemonic = "blx"
	}
	blx := f["L"] != 0
	return &Instruction{
		Mnemonic:    mnemonic,
		Operands:    []Operand{Register{rm}},
		ShiftAmount: Constant{0},
		Exec: func(t *Thread, instr *Instruction) {
			target := t.Reg(rm)
			if blx {
				t.SetReg(RegLR, t.PCRaw())
			}
			addr, ok := target.AsInt()
			if !ok {
				// A symbolic token (e.g. the sentinel a callee's "return"
				// leaves in lr) passes straight through to pc: there is
				// no concrete address to switch instruction sets for.
				t.SetReg(RegPC, target)
				return
			}
			t.WritePCBX(addr)
		},
	}
}

var branchPattern = bitpattern.Compile("101Liiiiiiiiiiiiiiiiiiiiiiii",
	map[byte]string{'L': "L", 'i': "Imm24"}, nil)

func decodeBranch(encoding uint32, cond uint8) *Instruction {
	f, ok := branchPattern.Unpack(encoding)
	if !ok {
		return nil
	}
	imm24 := f["Imm24"]
	offset := int32(imm24<<8) >> 6 // sign-extend a 24-bit word count to a byte displacement
	link := f["L"] != 0
	mnemonic := "b"
	if link {
		mnemonic = "bl"
	}
	target := BranchTarget{Delta: offset}
	return &Instruction{
		Mnemonic:    mnemonic,
		Operands:    []Operand{target},
		ShiftAmount: Constant{0},
		Exec: func(t *Thread, instr *Instruction) {
			addr := target.Get(t).Uint32()
			if link {
				t.SetReg(RegLR, t.PCRaw())
			}
			t.WritePCBranch(addr)
		},
	}
}

var singleTransferPattern = bitpattern.Compile("01IPUBWLnnnnddddoooooooooooo",
	map[byte]string{'I': "I", 'P': "P", 'U': "U", 'B': "B", 'W': "W", 'L': "L", 'n': "Rn", 'd': "Rd", 'o': "Offset"}, nil)

func decodeSingleTransfer(encoding uint32, cond uint8) *Instruction {
	f, ok := singleTransferPattern.Unpack(encoding)
	if !ok {
		return nil
	}
	rn, rd := int(f["Rn"]), int(f["Rd"])
	positive := f["U"] != 0
	pre := f["P"] != 0
	writeBack := f["W"] != 0 || !pre
	byteAccess := f["B"] != 0
	load := f["L"] != 0
	raw := f["Offset"]
	immediate := f["I"] == 0

	// A shift applied to a register offset (the general form of this
	// addressing mode) is not modelled: no scenario in this emulator's
	// scope uses anything beyond a plain register or immediate offset.
	var offset Operand
	if immediate {
		offset = Constant{raw}
	} else {
		offset = Register{int(raw & 0xf)}
	}

	ind := Indirect{Base: Register{rn}, Offset: offset, Positive: positive, PreIndex: pre, WriteBack: writeBack}

	mnemonic := "str"
	if load {
		mnemonic = "ldr"
	}
	if byteAccess {
		mnemonic += "b"
	}

	return &Instruction{
		Mnemonic:    mnemonic,
		Operands:    []Operand{Register{rd}, ind},
		ShiftAmount: Constant{0},
		Exec: func(t *Thread, instr *Instruction) {
			addr, wb := ind.Address(t)
			length := 0
			if byteAccess {
				length = 1
			}
			if load {
				v, err := t.Memory.Get(addr, length)
				if err != nil {
					panic(err)
				}
				if rd == RegPC {
					if addr, ok := v.AsInt(); ok {
						t.WritePCLoad(addr)
					} else {
						t.SetReg(RegPC, v)
					}
				} else {
					t.SetReg(rd, v)
				}
			} else {
				if err := t.Memory.Set(addr, t.Reg(rd), length); err != nil {
					panic(err)
				}
			}
			if writeBack && (!load || rd != rn) {
				t.SetReg(rn, wb)
			}
		},
	}
}

var blockTransferPattern = bitpattern.Compile("100PUSWLnnnnrrrrrrrrrrrrrrrr",
	map[byte]string{'P': "P", 'U': "U", 'S': "S", 'W': "W", 'L': "L", 'n': "Rn", 'r': "List"}, nil)

func decodeBlockTransfer(encoding uint32, cond uint8) *Instruction {
	f, ok := blockTransferPattern.Unpack(encoding)
	if !ok {
		return nil
	}
	rn := int(f["Rn"])
	up := f["U"] != 0
	pre := f["P"] != 0
	writeBack := f["W"] != 0
	load := f["L"] != 0
	list := RegisterList{Mask: uint16(f["List"])}

	mnemonic := "stm"
	if load {
		mnemonic = "ldm"
	}
	operands := []Operand{Register{rn}, list}
	if rn == RegSP && writeBack {
		if load && up && !pre {
			mnemonic = "pop"
			operands = []Operand{list}
		} else if !load && !up && pre {
			mnemonic = "push"
			operands = []Operand{list}
		}
	}

	return &Instruction{
		Mnemonic:    mnemonic,
		Operands:    operands,
		ShiftAmount: Constant{0},
		Exec: func(t *Thread, instr *Instruction) {
			base := t.Reg(rn)
			count := armval.Int(uint32(4 * list.Count()))

			var start armval.Value
			var err error
			switch {
			case up && pre:
				start, err = armval.Add(base, armval.Int(4))
			case up && !pre:
				start = base
			case !up && pre:
				start, err = armval.Sub(base, count)
			default: // !up && !pre
				start, err = armval.Sub(base, count)
				if err == nil {
					start, err = armval.Add(start, armval.Int(4))
				}
			}
			if err != nil {
				panic(err)
			}

			addr := start
			for _, reg := range list.Registers() {
				if load {
					v, gerr := t.Memory.Get(addr, 0)
					if gerr != nil {
						panic(gerr)
					}
					if reg == RegPC {
						if addr, ok := v.AsInt(); ok {
							t.WritePCLoad(addr)
						} else {
							t.SetReg(RegPC, v)
						}
					} else {
						t.SetReg(reg, v)
					}
				} else {
					if serr := t.Memory.Set(addr, t.Reg(reg), 0); serr != nil {
						panic(serr)
					}
				}
				next, aerr := armval.Add(addr, armval.Int(4))
				if aerr != nil {
					panic(aerr)
				}
				addr = next
			}

			if writeBack {
				var newBase armval.Value
				var werr error
				if up {
					newBase, werr = armval.Add(base, count)
				} else {
					newBase, werr = armval.Sub(base, count)
				}
				if werr != nil {
					panic(werr)
				}
				t.SetReg(rn, newBase)
			}
		},
	}
}
