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

	"github.com/dyldarm/armvm/armval"
)

// Operand is an instruction argument: a constant, a register, or an
// addressing mode, read from (or, for a MutableOperand, written to) a
// Thread.
type Operand interface {
	Get(t *Thread) armval.Value
	String() string
}

// MutableOperand is an Operand whose value a Set instruction can
// overwrite.
type MutableOperand interface {
	Operand
	Set(t *Thread, v armval.Value)
}

// Constant is an immediate value.
type Constant struct {
	Imm uint32
}

func (c Constant) Get(t *Thread) armval.Value { return armval.Int(c.Imm) }
func (c Constant) String() string             { return fmt.Sprintf("#0x%x", c.Imm) }
func (c Constant) DecString() string          { return fmt.Sprintf("#%d", int32(c.Imm)) }

// regNames gives r13/r14/r15 their conventional aliases in disassembly;
// every other register prints as rN.
var regNames = [16]string{
	"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
	"r8", "r9", "r10", "r11", "r12", "sp", "lr", "pc",
}

// Register is one of the 16 general-purpose registers.
type Register struct {
	Num int
}

func (r Register) Get(t *Thread) armval.Value   { return t.Reg(r.Num) }
func (r Register) Set(t *Thread, v armval.Value) { t.SetReg(r.Num, v) }
func (r Register) String() string               { return regNames[r.Num&0xf] }

// SRegister is a 32-bit VFP single-precision register (storage only:
// this emulator tracks VFP/NEON register contents but never performs
// floating-point arithmetic on them).
type SRegister struct{ Num int }

func (r SRegister) Get(t *Thread) uint32      { return t.s[r.Num] }
func (r SRegister) Set(t *Thread, v uint32)   { t.s[r.Num] = v }
func (r SRegister) String() string            { return fmt.Sprintf("s%d", r.Num) }

// DRegister is a 64-bit VFP/NEON double-precision register.
type DRegister struct{ Num int }

func (r DRegister) Get(t *Thread) uint64    { return t.d[r.Num] }
func (r DRegister) Set(t *Thread, v uint64) { t.d[r.Num] = v }
func (r DRegister) String() string          { return fmt.Sprintf("d%d", r.Num) }

// QRegister is a 128-bit NEON register, stored as two 64-bit halves.
type QRegister struct{ Num int }

func (r QRegister) Get(t *Thread) [2]uint64    { return t.q[r.Num] }
func (r QRegister) Set(t *Thread, v [2]uint64) { t.q[r.Num] = v }
func (r QRegister) String() string             { return fmt.Sprintf("q%d", r.Num) }

// RegisterList is the register set bitmask an LDM/STM/PUSH/POP
// instruction operates over, bit N set meaning register N is included.
type RegisterList struct {
	Mask uint16
}

// Registers returns the included register numbers in ascending order,
// the order LDM/STM/PUSH/POP always process them in regardless of
// encoding bit order.
func (l RegisterList) Registers() []int {
	var regs []int
	for i := 0; i < 16; i++ {
		if l.Mask&(1<<uint(i)) != 0 {
			regs = append(regs, i)
		}
	}
	return regs
}

func (l RegisterList) Has(n int) bool { return l.Mask&(1<<uint(n)) != 0 }
func (l RegisterList) Count() int     { return len(l.Registers()) }

// Get returns the raw inclusion bitmask. LDM/STM/PUSH/POP never read a
// RegisterList's value through Operand.Get — they walk Registers()
// directly — this exists only so RegisterList satisfies Operand for
// disassembly purposes.
func (l RegisterList) Get(t *Thread) armval.Value { return armval.Int(uint32(l.Mask)) }

func (l RegisterList) String() string {
	regs := l.Registers()
	names := make([]string, len(regs))
	for i, r := range regs {
		names[i] = regNames[r]
	}
	return "{" + strings.Join(names, ", ") + "}"
}

// Indirect is a memory addressing mode: [base, #offset] with optional
// pre/post-indexing and base write-back. offset may be nil for
// register-indirect addressing with no displacement ("[r0]").
type Indirect struct {
	Base      Register
	Offset    Operand // nil, a Constant, or a Register (no shift is applied)
	Positive  bool    // offset is added (true) or subtracted (false)
	PreIndex  bool    // [base, #off] computes the address before the access
	WriteBack bool    // base is updated to the computed address afterwards
}

// Address computes the effective address used by this access, and the
// value the base register should be written back to if WriteBack is
// set (PreIndex: the same address; post-indexed: base +/- offset,
// computed regardless of PreIndex since a post-indexed form always
// writes back).
func (ind Indirect) Address(t *Thread) (effective, writeBackValue armval.Value) {
	base := ind.Base.Get(t)
	if ind.Offset == nil {
		return base, base
	}
	off := ind.Offset.Get(t)
	var adjusted armval.Value
	var err error
	if ind.Positive {
		adjusted, err = armval.Add(base, off)
	} else {
		adjusted, err = armval.Sub(base, off)
	}
	if err != nil {
		panic(err)
	}
	if ind.PreIndex {
		return adjusted, adjusted
	}
	return base, adjusted
}

// Get loads the word at the effective address. Byte-sized accesses are
// decoded and sized in their own Exec closures, which call Address and
// Memory.Get directly; this exists so Indirect satisfies Operand for
// disassembly purposes.
func (ind Indirect) Get(t *Thread) armval.Value {
	addr, _ := ind.Address(t)
	v, err := t.Memory.Get(addr, 0)
	if err != nil {
		panic(err)
	}
	return v
}

func (ind Indirect) String() string {
	sign := ""
	if !ind.Positive {
		sign = "-"
	}
	var s string
	switch {
	case ind.Offset == nil:
		s = fmt.Sprintf("[%s]", ind.Base)
	case ind.PreIndex:
		s = fmt.Sprintf("[%s, %s%s]", ind.Base, sign, ind.Offset)
		if ind.WriteBack {
			s += "!"
		}
	default:
		s = fmt.Sprintf("[%s], %s%s", ind.Base, sign, ind.Offset)
	}
	return s
}

// PCRelative is a Thumb literal-pool addressing mode: the effective
// address is PC (word-aligned, i.e. read-ahead value with bit 1
// cleared) plus a non-negative byte displacement.
type PCRelative struct {
	Delta uint32
}

func (p PCRelative) Address(t *Thread) armval.Value {
	pc := t.Reg(RegPC).Uint32() &^ 3
	return armval.Int(pc + p.Delta)
}

// Get loads the word the literal pool address holds.
func (p PCRelative) Get(t *Thread) armval.Value {
	v, err := t.Memory.Get(p.Address(t), 0)
	if err != nil {
		panic(err)
	}
	return v
}

func (p PCRelative) String() string {
	return fmt.Sprintf("[pc, #0x%x]", p.Delta)
}

// BranchTarget is a B/BL/Thumb branch's displacement: the effective
// address is PC (the read-ahead value) plus a signed byte delta fixed at
// decode time. Get resolves the absolute target at run time; String
// shows the displacement alone, the only part of it decode time knows.
type BranchTarget struct {
	Delta int32
}

func (b BranchTarget) Get(t *Thread) armval.Value {
	base := t.Reg(RegPC).Uint32()
	return armval.Int(uint32(int32(base) + b.Delta))
}

func (b BranchTarget) String() string {
	return fmt.Sprintf("#%+d", b.Delta)
}
