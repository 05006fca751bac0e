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

// The 16-bit Thumb formats this file decodes are numbered the way the
// ARM Thumb quick reference card numbers them (format1 .. format18); the
// numbering has no bearing on registration order, only on which
// teacher-familiar name to hang on each decoder.

func init() {
	Register(2, 1, false, decodeThumbShift)
	Register(2, 1, false, decodeThumbAddSub)
	Register(2, 1, false, decodeThumbImmediate)
	Register(2, 1, false, decodeThumbALU)
	Register(2, 1, false, decodeThumbHiReg)
	Register(2, 1, false, decodePCRelativeLoad)
	Register(2, 1, false, decodeThumbIT)
	Register(2, 1, false, decodeSPOffset)
	Register(2, 1, false, decodePushPop)
	Register(2, 1, false, decodeThumbBlockTransfer)
	Register(2, 1, false, decodeThumbCondBranch)
	Register(2, 1, false, decodeThumbBranch)
}

// format1: move shifted register (LSL/LSR/ASR Rd, Rs, #imm5).
var thumbShiftPattern = bitpattern.Compile("000ooiiiiisssddd",
	map[byte]string{'o': "Op", 'i': "Imm5", 's': "Rs", 'd': "Rd"}, nil)

func decodeThumbShift(encoding uint32, cond uint8) *Instruction {
	f, ok := thumbShiftPattern.Unpack(encoding)
	if !ok || f["Op"] == 3 {
		return nil // Op==3 is format2's "00011" prefix, not a shift
	}
	rs, rd := int(f["Rs"]), int(f["Rd"])
	shiftType := ShiftType(f["Op"])
	_, amount := DecodeImmShift(shiftType, uint(f["Imm5"]))
	mnemonic := shiftType.String()
	return &Instruction{
		Condition:   AL,
		Mnemonic:    mnemonic,
		Operands:    []Operand{Register{rd}, Register{rs}},
		ShiftType:   shiftType,
		ShiftAmount: Constant{uint32(amount)},
		Exec: func(t *Thread, instr *Instruction) {
			rsv := t.Reg(rs).Uint32()
			result, carry := ShiftC(0xffffffff, rsv, shiftType, amount, t.CPSR.C())
			t.SetReg(rd, armval.Int(result))
			t.CPSR.SetN(result&0x80000000 != 0)
			t.CPSR.SetZ(result == 0)
			t.CPSR.SetC(carry)
		},
	}
}

// format2: add/subtract register or 3-bit immediate.
var thumbAddSubPattern = bitpattern.Compile("00011Ioxxxsssddd",
	map[byte]string{'I': "I", 'o': "Op", 'x': "Rn", 's': "Rs", 'd': "Rd"}, nil)

func decodeThumbAddSub(encoding uint32, cond uint8) *Instruction {
	f, ok := thumbAddSubPattern.Unpack(encoding)
	if !ok {
		return nil
	}
	rs, rd := int(f["Rs"]), int(f["Rd"])
	subtract := f["Op"] != 0
	immediate := f["I"] != 0
	mnemonic := "add"
	if subtract {
		mnemonic = "sub"
	}
	var rhs Operand
	if immediate {
		rhs = Constant{f["Rn"]}
	} else {
		rhs = Register{int(f["Rn"])}
	}
	return &Instruction{
		Condition:   AL,
		Mnemonic:    mnemonic,
		Operands:    []Operand{Register{rd}, Register{rs}, rhs},
		ShiftAmount: Constant{0},
		Exec: func(t *Thread, instr *Instruction) {
			var rhsVal armval.Value
			if immediate {
				rhsVal = armval.Int(f["Rn"])
			} else {
				rhsVal = t.Reg(int(f["Rn"]))
			}
			var result armval.Value
			if subtract {
				result = performSub(t, t.Reg(rs), rhsVal, true, true)
			} else {
				result = performAdd(t, t.Reg(rs), rhsVal, false, true)
			}
			t.SetReg(rd, result)
		},
	}
}

// format3: move/compare/add/subtract immediate.
var thumbImmediatePattern = bitpattern.Compile("001oodddiiiiiiii",
	map[byte]string{'o': "Op", 'd': "Rd", 'i': "Imm8"}, nil)

func decodeThumbImmediate(encoding uint32, cond uint8) *Instruction {
	f, ok := thumbImmediatePattern.Unpack(encoding)
	if !ok {
		return nil
	}
	rd := int(f["Rd"])
	imm := f["Imm8"]
	switch f["Op"] {
	case 0: // MOV
		return &Instruction{
			Condition: AL, Mnemonic: "mov", Operands: []Operand{Register{rd}, Constant{imm}}, ShiftAmount: Constant{0},
			Exec: func(t *Thread, instr *Instruction) {
				t.SetReg(rd, armval.Int(imm))
				t.CPSR.SetN(false)
				t.CPSR.SetZ(imm == 0)
			},
		}
	case 1: // CMP
		return &Instruction{
			Condition: AL, Mnemonic: "cmp", Operands: []Operand{Register{rd}, Constant{imm}}, ShiftAmount: Constant{0},
			Exec: func(t *Thread, instr *Instruction) {
				performSub(t, t.Reg(rd), armval.Int(imm), true, true)
			},
		}
	case 2: // ADD
		return &Instruction{
			Condition: AL, Mnemonic: "add", Operands: []Operand{Register{rd}, Register{rd}, Constant{imm}}, ShiftAmount: Constant{0},
			Exec: func(t *Thread, instr *Instruction) {
				t.SetReg(rd, performAdd(t, t.Reg(rd), armval.Int(imm), false, true))
			},
		}
	default: // SUB
		return &Instruction{
			Condition: AL, Mnemonic: "sub", Operands: []Operand{Register{rd}, Register{rd}, Constant{imm}}, ShiftAmount: Constant{0},
			Exec: func(t *Thread, instr *Instruction) {
				t.SetReg(rd, performSub(t, t.Reg(rd), armval.Int(imm), true, true))
			},
		}
	}
}

// format4: ALU operations (two-register, Rd implicitly also a source).
var thumbALUPattern = bitpattern.Compile("010000oooosssddd",
	map[byte]string{'o': "Op", 's': "Rs", 'd': "Rd"}, nil)

var thumbALUMnemonics = [16]string{
	"and", "eor", "lsl", "lsr", "asr", "adc", "sbc", "ror",
	"tst", "neg", "cmp", "cmn", "orr", "mul", "bic", "mvn",
}

func decodeThumbALU(encoding uint32, cond uint8) *Instruction {
	f, ok := thumbALUPattern.Unpack(encoding)
	if !ok {
		return nil
	}
	op := f["Op"]
	rs, rd := int(f["Rs"]), int(f["Rd"])
	mnemonic := thumbALUMnemonics[op]

	operands := []Operand{Register{rd}, Register{rs}}

	return &Instruction{
		Condition:   AL,
		Mnemonic:    mnemonic,
		Operands:    operands,
		ShiftAmount: Constant{0},
		Exec: func(t *Thread, instr *Instruction) {
			rdv, rsv := t.Reg(rd), t.Reg(rs)
			setLogical := func(result armval.Value) {
				if v, ok := result.AsInt(); ok {
					t.CPSR.SetN(v&0x80000000 != 0)
					t.CPSR.SetZ(v == 0)
				}
				t.SetReg(rd, result)
			}
			switch op {
			case 0: // AND
				v, err := armval.And(rdv, rsv)
				if err != nil {
					panic(err)
				}
				setLogical(v)
			case 1: // EOR
				v, err := armval.Xor(rdv, rsv)
				if err != nil {
					panic(err)
				}
				setLogical(v)
			case 2: // LSL
				amount := uint(rsv.Uint32() & 0xff)
				v, carry := ShiftC(0xffffffff, rdv.Uint32(), SRTypeLSL, amount, t.CPSR.C())
				t.CPSR.SetC(carry)
				setLogical(armval.Int(v))
			case 3: // LSR
				amount := uint(rsv.Uint32() & 0xff)
				v, carry := ShiftC(0xffffffff, rdv.Uint32(), SRTypeLSR, amount, t.CPSR.C())
				t.CPSR.SetC(carry)
				setLogical(armval.Int(v))
			case 4: // ASR
				amount := uint(rsv.Uint32() & 0xff)
				v, carry := ShiftC(0xffffffff, rdv.Uint32(), SRTypeASR, amount, t.CPSR.C())
				t.CPSR.SetC(carry)
				setLogical(armval.Int(v))
			case 5: // ADC
				t.SetReg(rd, performAdd(t, rdv, rsv, t.CPSR.C(), true))
			case 6: // SBC
				t.SetReg(rd, performSub(t, rdv, rsv, t.CPSR.C(), true))
			case 7: // ROR
				raw := rsv.Uint32() & 0xff
				var v uint32
				var carry bool
				switch {
				case raw == 0:
					v, carry = rdv.Uint32(), t.CPSR.C()
				case raw%32 == 0:
					// A rotate by a non-zero multiple of 32 leaves the
					// value unchanged but still redefines carry, from
					// the value's top bit.
					v = rdv.Uint32()
					carry = v&0x80000000 != 0
				default:
					v, carry = ShiftC(0xffffffff, rdv.Uint32(), SRTypeROR, uint(raw%32), t.CPSR.C())
				}
				t.CPSR.SetC(carry)
				setLogical(armval.Int(v))
			case 8: // TST
				v, err := armval.And(rdv, rsv)
				if err != nil {
					panic(err)
				}
				if iv, ok := v.AsInt(); ok {
					t.CPSR.SetN(iv&0x80000000 != 0)
					t.CPSR.SetZ(iv == 0)
				}
			case 9: // NEG
				t.SetReg(rd, performSub(t, armval.Int(0), rsv, true, true))
			case 10: // CMP
				performSub(t, rdv, rsv, true, true)
			case 11: // CMN
				performAdd(t, rdv, rsv, false, true)
			case 12: // ORR
				v, err := armval.Or(rdv, rsv)
				if err != nil {
					panic(err)
				}
				setLogical(v)
			case 13: // MUL
				t.SetReg(rd, armval.Int(rdv.Uint32()*rsv.Uint32()))
				t.CPSR.SetN(t.Reg(rd).Uint32()&0x80000000 != 0)
				t.CPSR.SetZ(t.Reg(rd).Uint32() == 0)
			case 14: // BIC
				notRs, err := armval.Xor(rsv, armval.Int(0xffffffff))
				if err != nil {
					panic(err)
				}
				v, err := armval.And(rdv, notRs)
				if err != nil {
					panic(err)
				}
				setLogical(v)
			case 15: // MVN
				v, err := armval.Xor(rsv, armval.Int(0xffffffff))
				if err != nil {
					panic(err)
				}
				setLogical(v)
			}
		},
	}
}

// format5: hi-register operations and branch exchange.
var thumbHiRegPattern = bitpattern.Compile("010001oohlsssddd",
	map[byte]string{'o': "Op", 'h': "H1", 'l': "H2", 's': "Rs", 'd': "Rd"}, nil)

func decodeThumbHiReg(encoding uint32, cond uint8) *Instruction {
	f, ok := thumbHiRegPattern.Unpack(encoding)
	if !ok {
		return nil
	}
	rs := int(f["Rs"]) + int(f["H2"])<<3
	rd := int(f["Rd"]) + int(f["H1"])<<3
	switch f["Op"] {
	case 0: // ADD
		return &Instruction{
			Condition: AL, Mnemonic: "add", Operands: []Operand{Register{rd}, Register{rs}}, ShiftAmount: Constant{0},
			Exec: func(t *Thread, instr *Instruction) {
				t.SetReg(rd, performAdd(t, t.Reg(rd), t.Reg(rs), false, false))
			},
		}
	case 1: // CMP
		return &Instruction{
			Condition: AL, Mnemonic: "cmp", Operands: []Operand{Register{rd}, Register{rs}}, ShiftAmount: Constant{0},
			Exec: func(t *Thread, instr *Instruction) { performSub(t, t.Reg(rd), t.Reg(rs), true, true) },
		}
	case 2: // MOV
		return &Instruction{
			Condition: AL, Mnemonic: "mov", Operands: []Operand{Register{rd}, Register{rs}}, ShiftAmount: Constant{0},
			Exec: func(t *Thread, instr *Instruction) {
				if rd == RegPC {
					t.WritePCBranch(t.Reg(rs).Uint32())
				} else {
					t.SetReg(rd, t.Reg(rs))
				}
			},
		}
	default: // BX / BLX
		blx := f["H1"] != 0
		mnemonic := "bx"
		if blx {
			mnemonic = "blx"
		}
		return &Instruction{
			Condition: AL, Mnemonic: mnemonic, Operands: []Operand{Register{rs}}, ShiftAmount: Constant{0},
			Exec: func(t *Thread, instr *Instruction) {
				target := t.Reg(rs)
				if blx {
					t.SetReg(RegLR, t.PCRaw())
				}
				addr, ok := target.AsInt()
				if !ok {
					t.SetReg(RegPC, target)
					return
				}
				t.WritePCBX(addr)
			},
		}
	}
}

// format6: PC-relative load.
var pcRelativeLoadPattern = bitpattern.Compile("01001dddiiiiiiii",
	map[byte]string{'d': "Rd", 'i': "Imm8"}, nil)

func decodePCRelativeLoad(encoding uint32, cond uint8) *Instruction {
	f, ok := pcRelativeLoadPattern.Unpack(encoding)
	if !ok {
		return nil
	}
	rd := int(f["Rd"])
	addr := PCRelative{Delta: f["Imm8"] * 4}
	return &Instruction{
		Condition: AL, Mnemonic: "ldr", Operands: []Operand{Register{rd}, addr}, ShiftAmount: Constant{0},
		Exec: func(t *Thread, instr *Instruction) {
			v, err := t.Memory.Get(addr.Address(t), 0)
			if err != nil {
				panic(err)
			}
			t.SetReg(rd, v)
		},
	}
}

// The IT instruction (ARMv6T2+): establishes the If-Then execution
// state the instructions that follow read from Thread.ExecuteOne.
var thumbITPattern = bitpattern.Compile("10111111ccccmmmm",
	map[byte]string{'c': "FirstCond", 'm': "Mask"}, nil)

func decodeThumbIT(encoding uint32, cond uint8) *Instruction {
	f, ok := thumbITPattern.Unpack(encoding)
	if !ok || f["Mask"] == 0 {
		return nil
	}
	firstCond, mask := f["FirstCond"], f["Mask"]
	return &Instruction{
		Condition: AL, Mnemonic: "it", Operands: []Operand{}, ShiftAmount: Constant{0},
		Exec: func(t *Thread, instr *Instruction) {
			t.CPSR.SetIT(firstCond<<4 | mask)
		},
	}
}

// format13: add a signed, word-aligned offset to SP.
var spOffsetPattern = bitpattern.Compile("10110000Siiiiiii",
	map[byte]string{'S': "S", 'i': "Imm7"}, nil)

func decodeSPOffset(encoding uint32, cond uint8) *Instruction {
	f, ok := spOffsetPattern.Unpack(encoding)
	if !ok {
		return nil
	}
	delta := f["Imm7"] * 4
	negative := f["S"] != 0
	mnemonic := "add"
	if negative {
		mnemonic = "sub"
	}
	return &Instruction{
		Condition: AL, Mnemonic: mnemonic, Operands: []Operand{Register{RegSP}, Register{RegSP}, Constant{delta}}, ShiftAmount: Constant{0},
		Exec: func(t *Thread, instr *Instruction) {
			if negative {
				t.SetReg(RegSP, performSub(t, t.Reg(RegSP), armval.Int(delta), true, false))
			} else {
				t.SetReg(RegSP, performAdd(t, t.Reg(RegSP), armval.Int(delta), false, false))
			}
		},
	}
}

// format14: push/pop registers (with the LR/PC store/load bit).
var pushPopPattern = bitpattern.Compile("1011L10Rrrrrrrrr",
	map[byte]string{'L': "L", 'R': "R", 'r': "List"}, nil)

func decodePushPop(encoding uint32, cond uint8) *Instruction {
	f, ok := pushPopPattern.Unpack(encoding)
	if !ok {
		return nil
	}
	pop := f["L"] != 0
	mask := uint16(f["List"])
	if f["R"] != 0 {
		if pop {
			mask |= 1 << RegPC
		} else {
			mask |= 1 << RegLR
		}
	}
	list := RegisterList{Mask: mask}
	mnemonic := "push"
	if pop {
		mnemonic = "pop"
	}
	return &Instruction{
		Condition: AL, Mnemonic: mnemonic, Operands: []Operand{list}, ShiftAmount: Constant{0},
		Exec: func(t *Thread, instr *Instruction) {
			sp := t.Reg(RegSP)
			if pop {
				addr := sp
				for _, reg := range list.Registers() {
					v, err := t.Memory.Get(addr, 0)
					if err != nil {
						panic(err)
					}
					if reg == RegPC {
						if addr, ok := v.AsInt(); ok {
							t.WritePCBX(addr)
						} else {
							t.SetReg(RegPC, v)
						}
					} else {
						t.SetReg(reg, v)
					}
					next, err := armval.Add(addr, armval.Int(4))
					if err != nil {
						panic(err)
					}
					addr = next
				}
				newSP, err := armval.Add(sp, armval.Int(uint32(4*list.Count())))
				if err != nil {
					panic(err)
				}
				t.SetReg(RegSP, newSP)
			} else {
				base, err := armval.Sub(sp, armval.Int(uint32(4*list.Count())))
				if err != nil {
					panic(err)
				}
				addr := base
				for _, reg := range list.Registers() {
					if err := t.Memory.Set(addr, t.Reg(reg), 0); err != nil {
						panic(err)
					}
					next, err := armval.Add(addr, armval.Int(4))
					if err != nil {
						panic(err)
					}
					addr = next
				}
				t.SetReg(RegSP, base)
			}
		},
	}
}

// format15: STMIA/LDMIA with base write-back always implied.
var thumbBlockTransferPattern = bitpattern.Compile("1100Lbbbrrrrrrrr",
	map[byte]string{'L': "L", 'b': "Rb", 'r': "List"}, nil)

func decodeThumbBlockTransfer(encoding uint32, cond uint8) *Instruction {
	f, ok := thumbBlockTransferPattern.Unpack(encoding)
	if !ok {
		return nil
	}
	rb := int(f["Rb"])
	load := f["L"] != 0
	list := RegisterList{Mask: uint16(f["List"])}
	mnemonic := "stmia"
	if load {
		mnemonic = "ldmia"
	}
	return &Instruction{
		Condition: AL, Mnemonic: mnemonic, Operands: []Operand{Register{rb}, list}, ShiftAmount: Constant{0},
		Exec: func(t *Thread, instr *Instruction) {
			addr := t.Reg(rb)
			for _, reg := range list.Registers() {
				if load {
					v, err := t.Memory.Get(addr, 0)
					if err != nil {
						panic(err)
					}
					t.SetReg(reg, v)
				} else {
					if err := t.Memory.Set(addr, t.Reg(reg), 0); err != nil {
						panic(err)
					}
				}
				next, err := armval.Add(addr, armval.Int(4))
				if err != nil {
					panic(err)
				}
				addr = next
			}
			t.SetReg(rb, addr)
		},
	}
}

// format16: conditional branch.
var thumbCondBranchPattern = bitpattern.Compile("1101ccccIIIIIIII",
	map[byte]string{'c': "Cond", 'I': "Imm8"}, nil)

func decodeThumbCondBranch(encoding uint32, cond uint8) *Instruction {
	f, ok := thumbCondBranchPattern.Unpack(encoding)
	if !ok || f["Cond"] >= 14 {
		return nil // 1110 undefined, 1111 is SWI
	}
	delta := int32(int8(uint8(f["Imm8"]))) * 2
	target := BranchTarget{Delta: delta}
	instr := &Instruction{
		Mnemonic: "b", Operands: []Operand{target}, ShiftAmount: Constant{0},
		Exec: func(t *Thread, instr *Instruction) {
			t.WritePCBranch(target.Get(t).Uint32())
		},
	}
	instr.Condition = Condition(f["Cond"])
	return instr
}

// format18: unconditional branch.
var thumbBranchPattern = bitpattern.Compile("11100iiiiiiiiiii",
	map[byte]string{'i': "Imm11"}, nil)

func decodeThumbBranch(encoding uint32, cond uint8) *Instruction {
	f, ok := thumbBranchPattern.Unpack(encoding)
	if !ok {
		return nil
	}
	imm11 := f["Imm11"]
	delta := (int32(imm11<<21) >> 20)
	target := BranchTarget{Delta: delta}
	return &Instruction{
		Condition: AL, Mnemonic: "b", Operands: []Operand{target}, ShiftAmount: Constant{0},
		Exec: func(t *Thread, instr *Instruction) {
			t.WritePCBranch(target.Get(t).Uint32())
		},
	}
}
