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
	"fmt"
	"strings"
)

// ExecFunc carries out an Instruction's semantics against a thread whose
// condition has already been checked. It is the Go analogue of a
// per-instruction subclass's exec method: decoder rules close over the
// decoded operands and hand back one of these rather than a type.
type ExecFunc func(t *Thread, instr *Instruction)

// Instruction is a single decoded ARM or Thumb instruction: its raw
// encoding, its condition and shift, the operand list used to both
// execute and disassemble it, and the Exec closure the decoder rule that
// produced it supplied.
//
// The teacher's Python original models each opcode as an Instruction
// subclass; Go favours data over a class hierarchy here, so every opcode
// is instead one concrete Instruction value carrying its own ExecFunc,
// built by a decoder rule (see dispatcher.go and the decode_*.go files).
type Instruction struct {
	Encoding       uint32
	Length         int
	InstructionSet uint32
	Condition      Condition
	Unconditional  bool // true for the ARM cond==NV-only family (e.g. BLX, PLD)

	Width string // "", ".n" or ".w"; affects disassembly only

	ShiftType   ShiftType
	ShiftAmount Operand // Constant(0) if this instruction's last operand isn't shifted

	Mnemonic string
	Operands []Operand

	Exec ExecFunc
}

// ForceWide sets the ".w" disassembly qualifier and returns instr, for
// chaining onto the decoder rule that built it.
func (instr *Instruction) ForceWide() *Instruction {
	instr.Width = ".w"
	return instr
}

// SetShift sets the shift applied to the instruction's last operand and
// returns instr, for chaining.
func (instr *Instruction) SetShift(shiftType ShiftType, amount Operand) *Instruction {
	instr.ShiftType = shiftType
	instr.ShiftAmount = amount
	return instr
}

// Opcode returns the disassembled mnemonic including its condition
// suffix and width qualifier.
func (instr *Instruction) Opcode() string {
	return instr.Mnemonic + instr.Condition.String() + instr.Width
}

// ApplyShiftC applies this instruction's shift to value, returning the
// shifted value and the resulting carry-out, per the ARM ARM's Shift_C
// over a full 32-bit value.
func (instr *Instruction) ApplyShiftC(t *Thread, value uint32, carry bool) (uint32, bool) {
	amount := uint(instr.ShiftAmount.Get(t).Uint32())
	return ShiftC(0xffffffff, value, instr.ShiftType, amount, carry)
}

// ApplyShift is ApplyShiftC without the carry-out.
func (instr *Instruction) ApplyShift(t *Thread, value uint32, carry bool) uint32 {
	v, _ := instr.ApplyShiftC(t, value, carry)
	return v
}

// Execute runs instr against t: it advances the program counter past
// this instruction's encoding, then — only if instr's condition is
// satisfied — calls Exec. If Exec leaves the program counter somewhere
// other than the plain sequential advance (a taken branch, a return, or
// any other redirect), t.OnBranch is notified with the address instr was
// fetched from.
func (instr *Instruction) Execute(t *Thread) {
	location, ok := t.PCRaw().AsInt()
	if !ok {
		panic("arm: Execute called on a halted thread")
	}
	next := location + uint32(instr.Length)
	t.Goto(next)

	if !instr.Unconditional && !instr.Condition.Check(t.CPSR) {
		return
	}

	instr.Exec(t, instr)

	if addr, ok := t.PCRaw().AsInt(); !ok || addr != next {
		if t.OnBranch != nil {
			t.OnBranch(location, instr, t)
		}
	}
}

func (instr *Instruction) String() string {
	parts := make([]string, len(instr.Operands))
	for i, op := range instr.Operands {
		parts[i] = op.String()
	}
	operands := strings.Join(parts, ", ")
	if c, ok := instr.ShiftAmount.(Constant); !ok || c.Imm != 0 {
		suffix := instr.ShiftType.String() + " " + instr.ShiftAmount.String()
		if instr.ShiftType == SRTypeRRX {
			suffix = "rrx"
		}
		if operands != "" {
			operands += ", " + suffix
		} else {
			operands = suffix
		}
	}
	return fmt.Sprintf("%s\t%s", instr.Opcode(), operands)
}
