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
	"context"
	"fmt"

	"github.com/dyldarm/armvm/armmem"
	"github.com/dyldarm/armvm/armval"
)

// OnBranch is called whenever an executed instruction leaves the
// program counter somewhere other than where it would have landed by
// simple sequential advance: taken branches, returns, and any write to
// PC via a data-processing or load instruction. prevPC is the address
// the branching instruction itself was fetched from.
type OnBranch func(prevPC uint32, instr *Instruction, t *Thread)

// Thread is one ARM/Thumb thread of execution: its registers, VFP/NEON
// storage, status registers and tagged memory.
//
// Unlike the teacher's r[16] array of plain integers, r[15] is never
// stored directly: pc holds the raw fetch address (or the Return
// sentinel once the thread has returned to its caller), and Reg(15)
// computes the ARM ARM's read-ahead value (+4 Thumb, +8 ARM) only when
// PC is actually read as an operand. This mirrors the real hardware's
// pipeline-offset behaviour more directly than mutating r[15] to the
// pre-offset value on every jump, and gives a symbolic Return value
// somewhere to live when a function returns through a register holding
// it.
type Thread struct {
	r    [15]armval.Value // r0-r14; r15 (pc) is held separately, see pc
	pc   armval.Value     // raw fetch address, or armval.Ret once halted
	s    [32]uint32
	d    [32]uint64
	q    [16][2]uint64

	CPSR Status
	SPSR Status
	FPSCR FPStatus

	Memory *armmem.Memory

	OnBranch OnBranch
}

// NewThread creates a Thread over rom, starting in ARM mode with sp at
// stack offset 0 and lr holding the Return sentinel, exactly as the
// teacher's own thread construction does.
func NewThread(rom armmem.ROM) *Thread {
	t := &Thread{
		Memory: armmem.New(rom),
		CPSR:   NewStatus(),
		SPSR:   NewStatus(),
	}
	t.r[RegSP] = armval.Stack(0)
	t.r[RegLR] = armval.Ret
	return t
}

// Copy returns a deep, fully isolated fork of t: writes to either
// thread's registers or memory are invisible to the other.
func (t *Thread) Copy() *Thread {
	cp := *t
	cp.Memory = t.Memory.Copy()
	return &cp
}

// pcOffset is the ARM ARM's pipeline read-ahead: 4 bytes in Thumb mode,
// 8 in ARM mode.
func (t *Thread) pcOffset() uint32 {
	if t.CPSR.T() {
		return 4
	}
	return 8
}

// Reg reads general register n (0-15). Reading 15 returns the
// pipeline-ahead value of the raw fetch address; every other register
// (including sp/lr, which may hold a token) is returned as stored.
func (t *Thread) Reg(n int) armval.Value {
	if n == RegPC {
		if raw, ok := t.pc.AsInt(); ok {
			return armval.Int(raw + t.pcOffset())
		}
		return t.pc
	}
	return t.r[n]
}

// SetReg writes general register n. Writing 15 applies the ARM ARM's
// ALUWritePC behaviour (the fixup a plain data-processing write to PC
// uses; BX/BLX/load go through WritePCBX/WritePCLoad instead, which may
// additionally switch instruction set).
func (t *Thread) SetReg(n int, v armval.Value) {
	if n == RegPC {
		raw, ok := v.AsInt()
		if !ok {
			t.pc = v
			return
		}
		addr, thumb := fixPCAddrALU(raw, t.CPSR.T())
		t.CPSR.SetT(thumb)
		t.pc = armval.Int(addr)
		return
	}
	t.r[n] = v
}

// PCRaw returns the thread's raw program counter: the address the next
// Fetch will read from, or armval.Ret if the thread has returned.
func (t *Thread) PCRaw() armval.Value { return t.pc }

// Goto sets the raw program counter directly, without any of the
// BX/ALU/Load fixups — used to seed the first fetch address and by
// Instruction.Execute to advance past the instruction it runs.
func (t *Thread) Goto(addr uint32) { t.pc = armval.Int(addr) }

// WritePCBX applies BXWritePC: the low bit of addr selects Thumb mode
// and is then stripped.
func (t *Thread) WritePCBX(addr uint32) {
	fixed, thumb := fixPCAddrBX(addr)
	t.CPSR.SetT(thumb)
	t.pc = armval.Int(fixed)
}

// WritePCLoad applies LoadWritePC (identical to BXWritePC).
func (t *Thread) WritePCLoad(addr uint32) { t.WritePCBX(addr) }

// WritePCBranch applies BranchWritePC: aligns addr to the current
// instruction set's natural width without changing instruction set.
func (t *Thread) WritePCBranch(addr uint32) {
	t.pc = armval.Int(fixPCAddrB(addr, t.CPSR.T()))
}

// ForceReturn halts the thread immediately by setting the program
// counter to the Return sentinel, as if execution had just branched
// through a register holding it. Used by a host embedding this package
// to unwind a thread that has run long enough (e.g. a watchdog on an
// injected call).
func (t *Thread) ForceReturn() { t.pc = armval.Ret }

// Halted reports whether the thread has returned (PC is the Return
// sentinel) and so has nothing left to execute.
func (t *Thread) Halted() bool { return t.pc.IsReturn() }

// Alias accessors matching the ARM ARM's conventional register names.
func (t *Thread) SL() armval.Value { return t.Reg(10) }
func (t *Thread) FP() armval.Value { return t.Reg(11) }
func (t *Thread) IP() armval.Value { return t.Reg(12) }
func (t *Thread) SP() armval.Value { return t.Reg(RegSP) }
func (t *Thread) LR() armval.Value { return t.Reg(RegLR) }

// S returns single-precision VFP register n's raw storage.
func (t *Thread) S(n int) uint32 { return t.s[n] }

// SetS sets single-precision VFP register n's raw storage.
func (t *Thread) SetS(n int, v uint32) { t.s[n] = v }

// D returns double-precision VFP/NEON register n's raw storage.
func (t *Thread) D(n int) uint64 { return t.d[n] }

// SetD sets double-precision VFP/NEON register n's raw storage.
func (t *Thread) SetD(n int, v uint64) { t.d[n] = v }

// Fetch reads the instruction at the current program counter without
// advancing it. It returns the raw encoding, its length (2 or 4 bytes),
// and the instruction set Dispatch should use. Thumb halfwords are
// fetched as a single little-endian word and reassembled exactly as the
// teacher's own thumbMode fetch does: if, after the word's halfwords are
// swapped into (low, high) order, the top 5 bits are below 0b11101, the
// low halfword alone is the (narrow, 2-byte) instruction.
func (t *Thread) Fetch() (encoding uint32, length int, instrSet uint32, err error) {
	loc, ok := t.pc.AsInt()
	if !ok {
		panic("arm: Fetch called on a halted thread")
	}

	instrSet = t.CPSR.InstructionSet()
	thumbMode := instrSet&1 != 0

	v, err := t.Memory.Get(armval.Int(loc), 4)
	if err != nil {
		return 0, 0, 0, err
	}
	instr := v.Uint32()
	length = 4
	if thumbMode {
		swapped := (instr&0xffff)<<16 | instr>>16
		if swapped < 0b11101<<27 {
			instr = swapped >> 16
			length = 2
		} else {
			instr = swapped
		}
	}
	return instr, length, instrSet, nil
}

// ExecuteOne fetches, decodes and executes a single instruction,
// advancing the program counter and the Thumb IT-block state machine.
// It returns the decoded instruction (useful for tracing/disassembly)
// or an error if fetch or dispatch failed.
func (t *Thread) ExecuteOne() (*Instruction, error) {
	encoding, length, instrSet, err := t.Fetch()
	if err != nil {
		return nil, err
	}

	thumb := instrSet&1 != 0
	wasInIT := thumb && t.CPSR.InIT()
	forceCond := uint8(CondNone)
	if wasInIT {
		forceCond = uint8(t.CPSR.IT() >> 4)
	}

	instr, err := Dispatch(encoding, length, instrSet, forceCond)
	if err != nil {
		return nil, err
	}

	instr.Execute(t)

	// The IT directive itself establishes the IT state; it must not also
	// advance it; only IT-covered instructions do. wasInIT, captured
	// before Execute ran, distinguishes the two.
	if wasInIT {
		t.CPSR.SetIT(ITAdvance(t.CPSR.IT()))
	}

	return instr, nil
}

// Run executes instructions until the thread halts (PC becomes the
// Return sentinel), ctx is cancelled, or ExecuteOne returns an error.
func (t *Thread) Run(ctx context.Context) error {
	for !t.Halted() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := t.ExecuteOne(); err != nil {
			return err
		}
	}
	return nil
}

func (t *Thread) String() string {
	return fmt.Sprintf("pc=%v cpsr=%#x", t.pc, t.CPSR.Value())
}
